package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Feed         FeedConfig        `yaml:"feed"`
	StaticVideos StaticVideoConfig `yaml:"static_videos"`
	HeyGen       HeyGenConfig      `yaml:"heygen"`
	AI           AIConfig          `yaml:"ai"`
	Instagram    InstagramConfig   `yaml:"instagram"`
	Twitter      TwitterConfig     `yaml:"twitter"`
	Pinterest    PinterestConfig   `yaml:"pinterest"`
	YouTube      YouTubeConfig     `yaml:"youtube"`
	Sheets       SheetsConfig      `yaml:"sheets"`
	Email        EmailConfig       `yaml:"email"`
	Site         SiteConfig        `yaml:"site"`
	Server       ServerConfig      `yaml:"server"`
	Schedule     string            `yaml:"schedule"`
	RunOnce      bool              `yaml:"run_once"`
}

type FeedConfig struct {
	CSVURL         string   `yaml:"csv_url" env:"CSV_URL"`
	VideoURLColumn string   `yaml:"video_url_column" env:"CSV_COL_VIDEO_URL"`
	PostedColumn   string   `yaml:"posted_column" env:"CSV_COL_POSTED"`
	IDColumns      []string `yaml:"id_columns"`
	TitleColumns   []string `yaml:"title_columns"`
	DetailColumns  []string `yaml:"detail_columns"`
}

type StaticVideoConfig struct {
	BaseURL        string   `yaml:"base_url" env:"STATIC_VIDEO_BASE_URL"`
	ProductIDs     []string `yaml:"product_ids"`
	HeadTimeoutSec int      `yaml:"head_timeout_seconds"`
}

type HeyGenConfig struct {
	APIKey          string `yaml:"api_key" env:"HEYGEN_API_KEY"`
	BaseURL         string `yaml:"base_url"`
	AvatarID        string `yaml:"avatar_id"`
	VoiceID         string `yaml:"voice_id"`
	Background      string `yaml:"background"`
	PollTimeoutMin  int    `yaml:"poll_timeout_minutes"`
	PollIntervalSec int    `yaml:"poll_interval_seconds"`
}

func (h *HeyGenConfig) Configured() bool {
	return h.APIKey != ""
}

type AIConfig struct {
	GeminiAPIKey string `yaml:"gemini_api_key" env:"GEMINI_API_KEY"`
	Model        string `yaml:"model"`
}

func (a *AIConfig) Configured() bool {
	return a.GeminiAPIKey != ""
}

type InstagramConfig struct {
	AccessToken       string `yaml:"access_token" env:"INSTAGRAM_ACCESS_TOKEN"`
	BusinessAccountID string `yaml:"business_account_id" env:"INSTAGRAM_IG_ID"`
}

func (i *InstagramConfig) Configured() bool {
	return i.AccessToken != "" && i.BusinessAccountID != ""
}

type TwitterConfig struct {
	APIKey       string `yaml:"api_key" env:"TWITTER_API_KEY"`
	APISecret    string `yaml:"api_secret" env:"TWITTER_API_SECRET"`
	AccessToken  string `yaml:"access_token" env:"TWITTER_ACCESS_TOKEN"`
	AccessSecret string `yaml:"access_secret" env:"TWITTER_ACCESS_SECRET"`
	BearerToken  string `yaml:"bearer_token" env:"TWITTER_BEARER_TOKEN"`
}

// HasUserAuth reports whether the full OAuth1.0a 4-tuple is present, which
// is what Twitter requires for media uploads.
func (t *TwitterConfig) HasUserAuth() bool {
	return t.APIKey != "" && t.APISecret != "" && t.AccessToken != "" && t.AccessSecret != ""
}

func (t *TwitterConfig) Configured() bool {
	return t.HasUserAuth() || t.BearerToken != ""
}

type PinterestConfig struct {
	AccessToken string `yaml:"access_token" env:"PINTEREST_ACCESS_TOKEN"`
	BoardID     string `yaml:"board_id" env:"PINTEREST_BOARD_ID"`
}

func (p *PinterestConfig) Configured() bool {
	return p.AccessToken != "" && p.BoardID != ""
}

type YouTubeConfig struct {
	ClientID     string `yaml:"client_id" env:"YT_CLIENT_ID"`
	ClientSecret string `yaml:"client_secret" env:"YT_CLIENT_SECRET"`
	RefreshToken string `yaml:"refresh_token" env:"YT_REFRESH_TOKEN"`
}

func (y *YouTubeConfig) Configured() bool {
	return y.ClientID != "" && y.ClientSecret != "" && y.RefreshToken != ""
}

type SheetsConfig struct {
	ServiceAccountEmail string `yaml:"service_account_email" env:"GS_SERVICE_ACCOUNT_EMAIL"`
	PrivateKey          string `yaml:"private_key" env:"GS_PRIVATE_KEY"`
}

func (s *SheetsConfig) Configured() bool {
	return s.ServiceAccountEmail != "" && s.PrivateKey != ""
}

type EmailConfig struct {
	SMTPServer string `yaml:"smtp_server"`
	SMTPPort   int    `yaml:"smtp_port"`
	Username   string `yaml:"username" env:"EMAIL_USERNAME"`
	Password   string `yaml:"password" env:"EMAIL_PASSWORD"`
	FromEmail  string `yaml:"from_email"`
	ToEmail    string `yaml:"to_email"`
}

func (e *EmailConfig) Configured() bool {
	return e.SMTPServer != "" && e.Username != "" && e.Password != "" && e.ToEmail != ""
}

type SiteConfig struct {
	BaseURL  string `yaml:"base_url" env:"SITE_BASE_URL"`
	Hashtags string `yaml:"hashtags"`
}

type ServerConfig struct {
	Port    int    `yaml:"port"`
	LogFile string `yaml:"log_file"`
	DataDir string `yaml:"data_dir"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config

	if configFile := os.Getenv("CONFIG_FILE"); configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configFile, err)
		}
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setIfEmpty(&cfg.Feed.CSVURL, "CSV_URL")
	setIfEmpty(&cfg.Feed.VideoURLColumn, "CSV_COL_VIDEO_URL")
	setIfEmpty(&cfg.Feed.PostedColumn, "CSV_COL_POSTED")
	setIfEmpty(&cfg.StaticVideos.BaseURL, "STATIC_VIDEO_BASE_URL")
	setIfEmpty(&cfg.HeyGen.APIKey, "HEYGEN_API_KEY")
	setIfEmpty(&cfg.AI.GeminiAPIKey, "GEMINI_API_KEY")
	setIfEmpty(&cfg.Instagram.AccessToken, "INSTAGRAM_ACCESS_TOKEN")
	setIfEmpty(&cfg.Instagram.BusinessAccountID, "INSTAGRAM_IG_ID")
	setIfEmpty(&cfg.Twitter.APIKey, "TWITTER_API_KEY")
	setIfEmpty(&cfg.Twitter.APISecret, "TWITTER_API_SECRET")
	setIfEmpty(&cfg.Twitter.AccessToken, "TWITTER_ACCESS_TOKEN")
	setIfEmpty(&cfg.Twitter.AccessSecret, "TWITTER_ACCESS_SECRET")
	setIfEmpty(&cfg.Twitter.BearerToken, "TWITTER_BEARER_TOKEN")
	setIfEmpty(&cfg.Pinterest.AccessToken, "PINTEREST_ACCESS_TOKEN")
	setIfEmpty(&cfg.Pinterest.BoardID, "PINTEREST_BOARD_ID")
	setIfEmpty(&cfg.YouTube.ClientID, "YT_CLIENT_ID")
	setIfEmpty(&cfg.YouTube.ClientSecret, "YT_CLIENT_SECRET")
	setIfEmpty(&cfg.YouTube.RefreshToken, "YT_REFRESH_TOKEN")
	setIfEmpty(&cfg.Sheets.ServiceAccountEmail, "GS_SERVICE_ACCOUNT_EMAIL")
	setIfEmpty(&cfg.Sheets.PrivateKey, "GS_PRIVATE_KEY")
	setIfEmpty(&cfg.Email.Username, "EMAIL_USERNAME")
	setIfEmpty(&cfg.Email.Password, "EMAIL_PASSWORD")
	setIfEmpty(&cfg.Site.BaseURL, "SITE_BASE_URL")
	setIfEmpty(&cfg.Schedule, "SCHEDULE")

	if v := os.Getenv("RUN_ONCE"); v != "" {
		if runOnce, err := strconv.ParseBool(v); err == nil {
			cfg.RunOnce = runOnce
		}
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
}

func setIfEmpty(dst *string, envKey string) {
	if *dst == "" {
		*dst = os.Getenv(envKey)
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Feed.VideoURLColumn == "" {
		cfg.Feed.VideoURLColumn = "Video URL"
	}
	if cfg.Feed.PostedColumn == "" {
		cfg.Feed.PostedColumn = "Posted"
	}
	if len(cfg.Feed.IDColumns) == 0 {
		cfg.Feed.IDColumns = []string{"Job ID", "ID", "SKU"}
	}
	if len(cfg.Feed.TitleColumns) == 0 {
		cfg.Feed.TitleColumns = []string{"Title", "Product", "Name"}
	}
	if len(cfg.Feed.DetailColumns) == 0 {
		cfg.Feed.DetailColumns = []string{"Details", "Description"}
	}
	if cfg.StaticVideos.HeadTimeoutSec == 0 {
		cfg.StaticVideos.HeadTimeoutSec = 5
	}
	if cfg.HeyGen.BaseURL == "" {
		cfg.HeyGen.BaseURL = "https://api.heygen.com/v1"
	}
	if cfg.HeyGen.AvatarID == "" {
		cfg.HeyGen.AvatarID = "Anna_public_3_20240108"
	}
	if cfg.HeyGen.VoiceID == "" {
		cfg.HeyGen.VoiceID = "b8266b04af0a4c7e8adc8ea21273eecd"
	}
	if cfg.HeyGen.Background == "" {
		cfg.HeyGen.Background = "#0d3b2a"
	}
	if cfg.HeyGen.PollTimeoutMin == 0 {
		cfg.HeyGen.PollTimeoutMin = 25
	}
	if cfg.HeyGen.PollIntervalSec == 0 {
		cfg.HeyGen.PollIntervalSec = 15
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = "gemini-2.5-flash"
	}
	if cfg.Email.SMTPPort == 0 {
		cfg.Email.SMTPPort = 587
	}
	if cfg.Site.Hashtags == "" {
		cfg.Site.Hashtags = "#OrganicGardening #PlantHealth #SustainableGardening"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.LogFile == "" {
		cfg.Server.LogFile = "logs/social-automation.log"
	}
	if cfg.Server.DataDir == "" {
		cfg.Server.DataDir = "data"
	}
	if cfg.Schedule == "" {
		cfg.Schedule = "0 0 9 * * *" // Daily at 9 AM
	}
}

func (c *Config) validate() error {
	if c.Feed.CSVURL == "" {
		return fmt.Errorf("feed CSV URL is required (set CSV_URL or feed.csv_url)")
	}
	return nil
}
