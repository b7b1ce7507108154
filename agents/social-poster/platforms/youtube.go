package platforms

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"social-stack/shared/config"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// YouTubePoster uploads the video to YouTube using a stored refresh token.
// The video is streamed straight from its source URL into the upload.
type YouTubePoster struct {
	config *config.YouTubeConfig
	client *http.Client
}

func NewYouTubePoster(cfg *config.YouTubeConfig) *YouTubePoster {
	return &YouTubePoster{
		config: cfg,
		client: &http.Client{Timeout: 10 * time.Minute},
	}
}

func (p *YouTubePoster) Name() string {
	return "youtube"
}

func (p *YouTubePoster) Post(ctx context.Context, req *PostRequest) error {
	oauthConfig := &oauth2.Config{
		ClientID:     p.config.ClientID,
		ClientSecret: p.config.ClientSecret,
		Scopes:       []string{youtube.YoutubeUploadScope},
		Endpoint:     google.Endpoint,
	}
	tokenSource := oauthConfig.TokenSource(ctx, &oauth2.Token{
		RefreshToken: p.config.RefreshToken,
	})

	service, err := youtube.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return fmt.Errorf("failed to create YouTube service: %w", err)
	}

	videoReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.VideoURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create video download request: %w", err)
	}
	videoResp, err := p.client.Do(videoReq)
	if err != nil {
		return fmt.Errorf("failed to download video: %w", err)
	}
	defer videoResp.Body.Close()

	if videoResp.StatusCode != http.StatusOK {
		return fmt.Errorf("video download returned status %d", videoResp.StatusCode)
	}

	upload := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       req.Title,
			Description: req.Caption,
			CategoryId:  "26", // Howto & Style
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus: "public",
		},
	}

	call := service.Videos.Insert([]string{"snippet", "status"}, upload).
		Media(videoResp.Body)

	result, err := call.Do()
	if err != nil {
		return fmt.Errorf("youtube upload failed: %w", err)
	}
	if result.Id == "" {
		return fmt.Errorf("youtube upload returned no video id")
	}
	return nil
}
