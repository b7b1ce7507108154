package resolver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"social-stack/agents/social-poster/heygen"
	"social-stack/internal/models"
	"social-stack/shared/config"
)

// ErrNoVideoAvailable signals that neither a static asset nor AI generation
// could produce a video for a product. Callers skip the product without
// aborting the run.
var ErrNoVideoAvailable = errors.New("no video available")

// educationalKeywords mark titles that work better as AI avatar videos than
// as product demo footage.
var educationalKeywords = []string{
	"how to", "guide", "tutorial", "tips", "benefits", "uses",
	"application", "instructions", "best practices",
}

// VideoGenerator is the AI generation surface the resolver depends on.
type VideoGenerator interface {
	CreateVideo(ctx context.Context, job *heygen.VideoJob) (string, error)
	PollForVideoURL(ctx context.Context, videoID string) (string, error)
}

// Resolver decides per product whether to reuse a static video asset or
// generate one, and produces the final VideoSelection.
type Resolver struct {
	config *config.StaticVideoConfig
	// generator is nil when no AI credential is configured, which disables
	// the generation path for the run.
	generator VideoGenerator
	client    *http.Client
}

func New(cfg *config.StaticVideoConfig, generator VideoGenerator) *Resolver {
	return &Resolver{
		config:    cfg,
		generator: generator,
		client: &http.Client{
			Timeout: time.Duration(cfg.HeadTimeoutSec) * time.Second,
		},
	}
}

// SelectStrategy routes a product to a video source:
//   - educational titles go to AI generation, where an avatar presenter
//     fits the content better than demo footage
//   - products with a reachable pre-rendered asset use it directly, since
//     that path is cheap and deterministic
//   - everything else is hybrid: static first, AI as fallback
func (r *Resolver) SelectStrategy(ctx context.Context, productID, title string) models.VideoStrategy {
	if isEducational(title) {
		return models.StrategyAIGenerated
	}
	if r.inStaticSet(productID) && r.staticAssetExists(ctx, productID) {
		return models.StrategyStatic
	}
	return models.StrategyHybrid
}

// Resolve produces a playable video for the product, or ErrNoVideoAvailable.
func (r *Resolver) Resolve(ctx context.Context, product *models.ProductRow, script string) (*models.VideoSelection, error) {
	strategy := r.SelectStrategy(ctx, product.ProductID, product.Title)
	log.Printf("Video strategy for %s: %s", product.ProductID, strategy)

	switch strategy {
	case models.StrategyStatic:
		return r.staticSelection(product.ProductID, "existing-assets", strategy), nil

	case models.StrategyAIGenerated:
		selection, err := r.generate(ctx, product, script, strategy)
		if err != nil {
			log.Printf("AI video generation failed for %s: %v", product.ProductID, err)
			return nil, fmt.Errorf("%w: %v", ErrNoVideoAvailable, err)
		}
		return selection, nil

	default: // hybrid: try static first, fall back to AI
		if r.staticAssetExists(ctx, product.ProductID) {
			log.Printf("Using static video for %s (hybrid)", product.ProductID)
			return r.staticSelection(product.ProductID, "existing-assets-fallback", strategy), nil
		}

		log.Printf("Static video not available for %s, generating AI video (hybrid)", product.ProductID)
		selection, err := r.generate(ctx, product, script, models.StrategyFallback)
		if err != nil {
			log.Printf("Hybrid AI fallback failed for %s: %v", product.ProductID, err)
			return nil, fmt.Errorf("%w: %v", ErrNoVideoAvailable, err)
		}
		return selection, nil
	}
}

// GenerateAI forces the AI generation path regardless of static assets,
// used when a caller explicitly asks for a fresh video.
func (r *Resolver) GenerateAI(ctx context.Context, product *models.ProductRow, script string) (*models.VideoSelection, error) {
	selection, err := r.generate(ctx, product, script, models.StrategyAIGenerated)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoVideoAvailable, err)
	}
	return selection, nil
}

func (r *Resolver) inStaticSet(productID string) bool {
	for _, id := range r.config.ProductIDs {
		if id == productID {
			return true
		}
	}
	return false
}

// staticAssetExists issues a HEAD request against the predictable asset URL.
func (r *Resolver) staticAssetExists(ctx context.Context, productID string) bool {
	videoURL := fmt.Sprintf("%s/%s.mp4", r.config.BaseURL, productID)

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, videoURL, nil)
	if err != nil {
		return false
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

func (r *Resolver) staticSelection(productID, source string, strategy models.VideoStrategy) *models.VideoSelection {
	return &models.VideoSelection{
		URL:          fmt.Sprintf("%s/%s.mp4", r.config.BaseURL, productID),
		Type:         models.VideoTypeStatic,
		Source:       source,
		Strategy:     strategy,
		ThumbnailURL: fmt.Sprintf("%s/%s.jpg", r.config.BaseURL, productID),
	}
}

func (r *Resolver) generate(ctx context.Context, product *models.ProductRow, script string, strategy models.VideoStrategy) (*models.VideoSelection, error) {
	if r.generator == nil {
		return nil, fmt.Errorf("AI video generation is not configured")
	}
	if script == "" {
		return nil, fmt.Errorf("no script available for AI video generation")
	}

	videoID, err := r.generator.CreateVideo(ctx, &heygen.VideoJob{
		Script:    script,
		Title:     fmt.Sprintf("%s (%s)", product.Title, product.ProductID),
		ProductID: product.ProductID,
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Waiting for AI video completion for %s...", product.ProductID)
	videoURL, err := r.generator.PollForVideoURL(ctx, videoID)
	if err != nil {
		return nil, err
	}

	source := "heygen-generated"
	if strategy == models.StrategyFallback {
		source = "heygen-hybrid"
	}

	return &models.VideoSelection{
		URL:      videoURL,
		Type:     models.VideoTypeAI,
		Source:   source,
		Strategy: strategy,
	}, nil
}

func isEducational(title string) bool {
	lower := strings.ToLower(title)
	for _, keyword := range educationalKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
