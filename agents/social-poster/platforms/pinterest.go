package platforms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"social-stack/shared/config"
)

const pinterestAPIURL = "https://api.pinterest.com/v5"

// PinterestPoster creates a pin on the configured board using the video's
// poster frame as the pin image and the video itself as the link target.
type PinterestPoster struct {
	config  *config.PinterestConfig
	client  *http.Client
	baseURL string
}

func NewPinterestPoster(cfg *config.PinterestConfig) *PinterestPoster {
	return &PinterestPoster{
		config:  cfg,
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: pinterestAPIURL,
	}
}

func (p *PinterestPoster) Name() string {
	return "pinterest"
}

func (p *PinterestPoster) Post(ctx context.Context, req *PostRequest) error {
	if req.ThumbnailURL == "" {
		// Direct video pins require a separate media upload registration
		// flow that this pipeline does not use.
		return fmt.Errorf("pinterest pin requires a thumbnail image")
	}

	payload := map[string]interface{}{
		"board_id":    p.config.BoardID,
		"title":       req.Title,
		"description": req.Caption,
		"link":        req.VideoURL,
		"media_source": map[string]string{
			"source_type": "image_url",
			"url":         req.ThumbnailURL,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/pins", bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.config.AccessToken)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("pinterest request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("pinterest posting failed: %d - %s", resp.StatusCode, detail)
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode pin response: %w", err)
	}
	if result.ID == "" {
		return fmt.Errorf("pin response missing id")
	}
	return nil
}
