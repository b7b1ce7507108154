package logging

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ActivityLog is an append-only log file of run events, served back through
// the logs endpoint.
type ActivityLog struct {
	filePath string
	mu       sync.Mutex
}

func NewActivityLog(filePath string) (*ActivityLog, error) {
	if dir := filepath.Dir(filePath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	return &ActivityLog{filePath: filePath}, nil
}

// Record appends one event line. Failures are returned but callers treat
// this as best-effort bookkeeping.
func (a *ActivityLog) Record(eventType, message string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	file, err := os.OpenFile(a.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open activity log: %w", err)
	}
	defer file.Close()

	line := fmt.Sprintf("[%s] %s: %s\n", time.Now().UTC().Format(time.RFC3339), eventType, message)
	if _, err := file.WriteString(line); err != nil {
		return fmt.Errorf("failed to write activity log: %w", err)
	}
	return nil
}

// Tail returns up to n of the most recent log lines. A missing log file
// yields an empty slice, not an error.
func (a *ActivityLog) Tail(n int) ([]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	file, err := os.Open(a.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to open activity log: %w", err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read activity log: %w", err)
	}

	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}
