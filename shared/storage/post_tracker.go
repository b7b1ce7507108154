package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// PostTracker manages a persistent store of platform/product pairs that have
// already been posted, so repeated runs do not double-post the same product.
type PostTracker struct {
	filePath string
	posted   map[string]time.Time
	mu       sync.RWMutex
}

// PostedEntry represents one recorded platform post
type PostedEntry struct {
	Platform  string    `json:"platform"`
	ProductID string    `json:"product_id"`
	PostedAt  time.Time `json:"posted_at"`
}

// NewPostTracker creates a post tracker backed by a JSON file under dataDir.
func NewPostTracker(dataDir string) (*PostTracker, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	tracker := &PostTracker{
		filePath: filepath.Join(dataDir, "posted_content.json"),
		posted:   make(map[string]time.Time),
	}

	if err := tracker.load(); err != nil {
		return nil, fmt.Errorf("failed to load post tracker data: %w", err)
	}

	return tracker, nil
}

// HasPosted checks whether a product was already posted to a platform.
func (pt *PostTracker) HasPosted(platform, productID string) bool {
	pt.mu.RLock()
	defer pt.mu.RUnlock()

	_, exists := pt.posted[trackerKey(platform, productID)]
	return exists
}

// MarkPosted records a successful platform post.
func (pt *PostTracker) MarkPosted(platform, productID string) error {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	pt.posted[trackerKey(platform, productID)] = time.Now()
	return pt.save()
}

// PostedCount returns the number of recorded posts.
func (pt *PostTracker) PostedCount() int {
	pt.mu.RLock()
	defer pt.mu.RUnlock()
	return len(pt.posted)
}

func trackerKey(platform, productID string) string {
	return platform + "/" + productID
}

func splitTrackerKey(key string) (platform, productID string) {
	for i := 0; i < len(key); i++ {
		if key[i] == '/' {
			return key[:i], key[i+1:]
		}
	}
	return key, ""
}

// load reads the posted entries from the JSON file
func (pt *PostTracker) load() error {
	file, err := os.Open(pt.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist yet, start with empty tracker
			return nil
		}
		return fmt.Errorf("failed to open tracker file: %w", err)
	}
	defer file.Close()

	var entries []PostedEntry
	if err := json.NewDecoder(file).Decode(&entries); err != nil {
		return fmt.Errorf("failed to decode tracker data: %w", err)
	}

	for _, e := range entries {
		pt.posted[trackerKey(e.Platform, e.ProductID)] = e.PostedAt
	}

	return nil
}

// save writes the posted entries to the JSON file
func (pt *PostTracker) save() error {
	var entries []PostedEntry
	for key, postedAt := range pt.posted {
		platform, productID := splitTrackerKey(key)
		entries = append(entries, PostedEntry{
			Platform:  platform,
			ProductID: productID,
			PostedAt:  postedAt,
		})
	}

	file, err := os.Create(pt.filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(entries)
}
