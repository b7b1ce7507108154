package platforms

import (
	"context"
	"log"
	"sync"

	"social-stack/internal/models"
	"social-stack/shared/config"
)

// PostRequest carries everything a platform adapter needs to publish one
// product video.
type PostRequest struct {
	VideoURL     string
	ThumbnailURL string
	Caption      string
	Title        string
	ProductID    string
}

// Poster is one platform adapter. Post resolves on success and returns a
// platform-specific error otherwise.
type Poster interface {
	Name() string
	Post(ctx context.Context, req *PostRequest) error
}

// Build returns the posters whose credentials are configured. A platform
// with missing credentials is skipped for the run, not treated as a failure.
func Build(cfg *config.Config) []Poster {
	var posters []Poster
	if cfg.Instagram.Configured() {
		posters = append(posters, NewInstagramPoster(&cfg.Instagram))
	}
	if cfg.Twitter.Configured() {
		posters = append(posters, NewTwitterPoster(&cfg.Twitter))
	}
	if cfg.Pinterest.Configured() {
		posters = append(posters, NewPinterestPoster(&cfg.Pinterest))
	}
	if cfg.YouTube.Configured() {
		posters = append(posters, NewYouTubePoster(&cfg.YouTube))
	}
	return posters
}

// PostAll fans the request out to every poster concurrently and waits for
// all attempts to settle. One platform failing never prevents the others,
// and the aggregate never fails: the outcomes carry per-platform results.
func PostAll(ctx context.Context, posters []Poster, req *PostRequest) []models.PostOutcome {
	if len(posters) == 0 {
		log.Println("No social media platforms configured")
		return nil
	}

	outcomes := make([]models.PostOutcome, len(posters))
	var wg sync.WaitGroup

	for i, poster := range posters {
		wg.Add(1)
		go func(i int, poster Poster) {
			defer wg.Done()

			outcome := models.PostOutcome{
				Platform:  poster.Name(),
				ProductID: req.ProductID,
			}
			if err := poster.Post(ctx, req); err != nil {
				log.Printf("%s posting failed for %s: %v", poster.Name(), req.ProductID, err)
				outcome.Err = err.Error()
			} else {
				log.Printf("Posted to %s: %s", poster.Name(), req.VideoURL)
				outcome.Success = true
			}
			outcomes[i] = outcome
		}(i, poster)
	}

	wg.Wait()
	return outcomes
}
