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

const instagramGraphURL = "https://graph.facebook.com/v18.0"

// InstagramPoster publishes through the Instagram Graph API: create a media
// container, wait for it to finish processing, then publish it.
type InstagramPoster struct {
	config  *config.InstagramConfig
	client  *http.Client
	baseURL string
}

func NewInstagramPoster(cfg *config.InstagramConfig) *InstagramPoster {
	return &InstagramPoster{
		config:  cfg,
		client:  &http.Client{Timeout: 60 * time.Second},
		baseURL: instagramGraphURL,
	}
}

func (p *InstagramPoster) Name() string {
	return "instagram"
}

func (p *InstagramPoster) Post(ctx context.Context, req *PostRequest) error {
	container := map[string]string{
		"caption":      req.Caption,
		"access_token": p.config.AccessToken,
	}
	if req.ThumbnailURL != "" {
		// Image post with the video poster frame; video uploads through the
		// Graph API require a reel container that processes asynchronously.
		container["image_url"] = req.ThumbnailURL
	} else {
		container["media_type"] = "REELS"
		container["video_url"] = req.VideoURL
	}

	creationID, err := p.createContainer(ctx, container)
	if err != nil {
		return fmt.Errorf("instagram media creation failed: %w", err)
	}

	if container["media_type"] == "REELS" {
		if err := p.waitForContainer(ctx, creationID); err != nil {
			return fmt.Errorf("instagram media processing failed: %w", err)
		}
	}

	if err := p.publish(ctx, creationID); err != nil {
		return fmt.Errorf("instagram publish failed: %w", err)
	}
	return nil
}

func (p *InstagramPoster) createContainer(ctx context.Context, payload map[string]string) (string, error) {
	endpoint := fmt.Sprintf("%s/%s/media", p.baseURL, p.config.BusinessAccountID)

	var result struct {
		ID string `json:"id"`
	}
	if err := p.postJSON(ctx, endpoint, payload, &result); err != nil {
		return "", err
	}
	if result.ID == "" {
		return "", fmt.Errorf("media container response missing id")
	}
	return result.ID, nil
}

// waitForContainer polls the container status until FINISHED. Reels
// containers are not publishable until processing completes.
func (p *InstagramPoster) waitForContainer(ctx context.Context, creationID string) error {
	deadline := time.Now().Add(5 * time.Minute)
	for {
		statusURL := fmt.Sprintf("%s/%s?fields=status_code&access_token=%s", p.baseURL, creationID, p.config.AccessToken)

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
		if err != nil {
			return err
		}
		resp, err := p.client.Do(httpReq)
		if err != nil {
			return err
		}
		var status struct {
			StatusCode string `json:"status_code"`
		}
		err = json.NewDecoder(resp.Body).Decode(&status)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("failed to decode container status: %w", err)
		}

		switch status.StatusCode {
		case "FINISHED":
			return nil
		case "ERROR":
			return fmt.Errorf("container %s entered ERROR state", creationID)
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("container %s not ready after 5 minutes", creationID)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Second):
		}
	}
}

func (p *InstagramPoster) publish(ctx context.Context, creationID string) error {
	endpoint := fmt.Sprintf("%s/%s/media_publish", p.baseURL, p.config.BusinessAccountID)
	payload := map[string]string{
		"creation_id":  creationID,
		"access_token": p.config.AccessToken,
	}

	var result struct {
		ID string `json:"id"`
	}
	return p.postJSON(ctx, endpoint, payload, &result)
}

func (p *InstagramPoster) postJSON(ctx context.Context, endpoint string, payload map[string]string, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status %d: %s", resp.StatusCode, detail)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
