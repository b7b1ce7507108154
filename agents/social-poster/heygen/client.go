package heygen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"social-stack/shared/config"
)

// Client wraps HeyGen's avatar video generation API.
type Client struct {
	config *config.HeyGenConfig
	client *http.Client
}

func NewClient(cfg *config.HeyGenConfig) *Client {
	return &Client{
		config: cfg,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// VideoJob describes one generation request.
type VideoJob struct {
	Script          string
	Title           string
	ProductID       string
	ProductImageURL string
}

// Status is the generation state reported by the API.
type Status struct {
	Status   string `json:"status"` // "processing", "completed", "failed"
	Progress int    `json:"progress"`
	VideoURL string `json:"video_url"`
	Error    string `json:"error"`
}

type generateRequest struct {
	VideoInputs []videoInput `json:"video_inputs"`
	Dimension   dimension    `json:"dimension"`
	AspectRatio string       `json:"aspect_ratio"`
	Test        bool         `json:"test"`
	Caption     bool         `json:"caption"`
	CallbackID  string       `json:"callback_id,omitempty"`
}

type videoInput struct {
	Character  character  `json:"character"`
	Voice      voice      `json:"voice"`
	Background background `json:"background"`
}

type character struct {
	Type        string `json:"type"`
	AvatarID    string `json:"avatar_id"`
	AvatarStyle string `json:"avatar_style"`
}

type voice struct {
	Type      string  `json:"type"`
	InputText string  `json:"input_text"`
	VoiceID   string  `json:"voice_id"`
	Speed     float64 `json:"speed"`
}

type background struct {
	Type  string `json:"type"`
	Value string `json:"value,omitempty"`
	URL   string `json:"url,omitempty"`
	Fit   string `json:"fit,omitempty"`
}

// CreateVideo submits a generation job and returns the video ID to poll.
func (c *Client) CreateVideo(ctx context.Context, job *VideoJob) (string, error) {
	if job.Script == "" {
		return "", fmt.Errorf("script is required")
	}

	reqBody := generateRequest{
		VideoInputs: []videoInput{
			{
				Character: character{
					Type:        "avatar",
					AvatarID:    c.config.AvatarID,
					AvatarStyle: "normal",
				},
				Voice: voice{
					Type:      "text",
					InputText: job.Script,
					VoiceID:   c.config.VoiceID,
					Speed:     1.0,
				},
				Background: background{
					Type:  "color",
					Value: c.config.Background,
				},
			},
		},
		Dimension:   dimension{Width: 1280, Height: 720},
		AspectRatio: "16:9",
		CallbackID:  fmt.Sprintf("%s_%d", job.ProductID, time.Now().Unix()),
	}

	if job.ProductImageURL != "" {
		reqBody.VideoInputs[0].Background = background{
			Type: "image",
			URL:  job.ProductImageURL,
			Fit:  "cover",
		}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal generation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/video/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create generation request: %w", err)
	}
	req.Header.Set("X-API-KEY", c.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to submit generation job: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("generation API returned status %d: %s", resp.StatusCode, detail)
	}

	var result struct {
		Data struct {
			VideoID string `json:"video_id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode generation response: %w", err)
	}
	if result.Data.VideoID == "" {
		return "", fmt.Errorf("generation response missing video_id")
	}

	log.Printf("Video generation initiated for %s - video ID: %s", job.ProductID, result.Data.VideoID)
	return result.Data.VideoID, nil
}

// VideoStatus queries the generation state of one video.
func (c *Client) VideoStatus(ctx context.Context, videoID string) (*Status, error) {
	statusURL := fmt.Sprintf("%s/video_status.get?video_id=%s", c.config.BaseURL, url.QueryEscape(videoID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create status request: %w", err)
	}
	req.Header.Set("X-API-KEY", c.config.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("status check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status check returned %d", resp.StatusCode)
	}

	var result struct {
		Data Status `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode status response: %w", err)
	}

	return &result.Data, nil
}

// PollForVideoURL waits for a video to finish processing. It enforces the
// configured hard timeout so a stuck job fails instead of hanging forever.
func (c *Client) PollForVideoURL(ctx context.Context, videoID string) (string, error) {
	timeout := time.Duration(c.config.PollTimeoutMin) * time.Minute
	interval := time.Duration(c.config.PollIntervalSec) * time.Second

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		status, err := c.VideoStatus(ctx, videoID)
		if err != nil {
			return "", err
		}

		log.Printf("Video %s: %s (%d%%)", videoID, status.Status, status.Progress)

		switch status.Status {
		case "completed":
			if status.VideoURL == "" {
				return "", fmt.Errorf("video %s completed without a URL", videoID)
			}
			return status.VideoURL, nil
		case "failed":
			if status.Error != "" {
				return "", fmt.Errorf("video generation failed: %s", status.Error)
			}
			return "", fmt.Errorf("video generation failed")
		}

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("video generation timed out after %v: %w", timeout, ctx.Err())
		case <-ticker.C:
		}
	}
}

type dimension struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}
