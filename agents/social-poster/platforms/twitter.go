package platforms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"social-stack/shared/config"

	"github.com/dghubble/oauth1"
)

const twitterAPIURL = "https://api.twitter.com"

// TwitterPoster posts a link tweet through the v2 API. With the full
// OAuth1.0a 4-tuple the request is user-signed; with only a bearer token an
// app-auth request is made.
type TwitterPoster struct {
	config  *config.TwitterConfig
	client  *http.Client
	baseURL string
}

func NewTwitterPoster(cfg *config.TwitterConfig) *TwitterPoster {
	client := &http.Client{Timeout: 30 * time.Second}
	if cfg.HasUserAuth() {
		oauthConfig := oauth1.NewConfig(cfg.APIKey, cfg.APISecret)
		token := oauth1.NewToken(cfg.AccessToken, cfg.AccessSecret)
		client = oauthConfig.Client(oauth1.NoContext, token)
		client.Timeout = 30 * time.Second
	}

	return &TwitterPoster{
		config:  cfg,
		client:  client,
		baseURL: twitterAPIURL,
	}
}

func (p *TwitterPoster) Name() string {
	return "twitter"
}

func (p *TwitterPoster) Post(ctx context.Context, req *PostRequest) error {
	text := req.Caption
	if !strings.Contains(text, req.VideoURL) {
		text = text + "\n\n" + req.VideoURL
	}

	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/2/tweets", bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if !p.config.HasUserAuth() {
		httpReq.Header.Set("Authorization", "Bearer "+p.config.BearerToken)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("twitter request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("twitter posting failed: %d - %s", resp.StatusCode, detail)
	}

	var result struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode tweet response: %w", err)
	}
	if result.Data.ID == "" {
		return fmt.Errorf("tweet response missing id")
	}
	return nil
}
