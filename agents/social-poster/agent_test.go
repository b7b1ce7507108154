package socialposter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"social-stack/agents/social-poster/feed"
	"social-stack/agents/social-poster/platforms"
	"social-stack/agents/social-poster/resolver"
	"social-stack/internal/models"
	"social-stack/shared/config"
	"social-stack/shared/monitoring"
)

type fakeFeed struct {
	feed *feed.Feed
	err  error
}

func (f *fakeFeed) Fetch(_ context.Context) (*feed.Feed, error) {
	return f.feed, f.err
}

type fakeResolver struct {
	selections map[string]*models.VideoSelection
	scripts    map[string]string // records the script passed per product
}

func (f *fakeResolver) Resolve(_ context.Context, product *models.ProductRow, script string) (*models.VideoSelection, error) {
	if f.scripts == nil {
		f.scripts = make(map[string]string)
	}
	f.scripts[product.ProductID] = script

	selection, ok := f.selections[product.ProductID]
	if !ok {
		return nil, fmt.Errorf("%w: nothing configured", resolver.ErrNoVideoAvailable)
	}
	return selection, nil
}

func (f *fakeResolver) GenerateAI(ctx context.Context, product *models.ProductRow, script string) (*models.VideoSelection, error) {
	return f.Resolve(ctx, product, script)
}

type fakeScripts struct {
	script string
	err    error
}

func (f *fakeScripts) Generate(_ context.Context, _ *models.ProductRow) (string, error) {
	return f.script, f.err
}

// countingPoster increments a shared settle counter when its post attempt
// finishes, so tests can assert ordering against the sheet write-back.
type countingPoster struct {
	name    string
	err     error
	settled *int32
	lastReq *platforms.PostRequest
}

func (p *countingPoster) Name() string { return p.name }

func (p *countingPoster) Post(_ context.Context, req *platforms.PostRequest) error {
	p.lastReq = req
	if p.settled != nil {
		atomic.AddInt32(p.settled, 1)
	}
	return p.err
}

type sheetCall struct {
	column    string
	rowNumber int
	value     string
	settledAt int32
}

type fakeSheets struct {
	settled *int32
	writes  []sheetCall
	posted  []int
	err     error
}

func (f *fakeSheets) WriteColumnValue(_ context.Context, _ string, _ int64, _ []string, column string, rowNumber int, value string) error {
	call := sheetCall{column: column, rowNumber: rowNumber, value: value}
	if f.settled != nil {
		call.settledAt = atomic.LoadInt32(f.settled)
	}
	f.writes = append(f.writes, call)
	return f.err
}

func (f *fakeSheets) MarkRowPosted(_ context.Context, _ string, _ int64, _ []string, _ string, rowNumber int) error {
	f.posted = append(f.posted, rowNumber)
	return f.err
}

func testAgentConfig() *config.Config {
	return &config.Config{
		Feed: config.FeedConfig{
			CSVURL:         "https://docs.google.com/spreadsheets/d/sheet1/export?format=csv&gid=0",
			VideoURLColumn: "Video URL",
			PostedColumn:   "Posted",
		},
		Site: config.SiteConfig{
			BaseURL:  "https://www.example.com",
			Hashtags: "#Organic",
		},
	}
}

func staticSelection(productID string) *models.VideoSelection {
	return &models.VideoSelection{
		URL:          "https://assets.example.com/" + productID + ".mp4",
		Type:         models.VideoTypeStatic,
		Source:       "existing-assets",
		Strategy:     models.StrategyStatic,
		ThumbnailURL: "https://assets.example.com/" + productID + ".jpg",
	}
}

func TestAgentName(t *testing.T) {
	agent := NewAgent(testAgentConfig(), monitoring.NewTracker(), nil)
	if name := agent.Name(); name != "Social Poster" {
		t.Errorf("Agent.Name() = %s, want Social Poster", name)
	}
}

func TestRunMetricsGetSummary(t *testing.T) {
	m := models.RunMetrics{RowsProcessed: 3, RowsSkipped: 1, SuccessfulPosts: 8, FailedPosts: 2}
	want := "processed 3 rows, skipped 1, posted 8, failed 2"
	if got := m.GetSummary(); got != want {
		t.Errorf("GetSummary() = %q, want %q", got, want)
	}
}

// Scenario: row 1 has a reachable static video and four platforms
// configured; row 2 resolves to nothing. The run must attempt exactly four
// posts, skip row 2, and still complete.
func TestRunOnceTwoRowScenario(t *testing.T) {
	tracker := monitoring.NewTracker()
	var settled int32

	posterNames := []string{"instagram", "twitter", "pinterest", "youtube"}
	var posters []platforms.Poster
	var fakes []*countingPoster
	for _, name := range posterNames {
		p := &countingPoster{name: name, settled: &settled}
		fakes = append(fakes, p)
		posters = append(posters, p)
	}

	sheets := &fakeSheets{settled: &settled}

	agent := NewAgent(testAgentConfig(), tracker, nil)
	agent.feed = &fakeFeed{feed: &feed.Feed{
		Headers:       []string{"ID", "Title", "Video URL", "Posted"},
		SpreadsheetID: "sheet1",
		Rows: []*models.ProductRow{
			{RowNumber: 1, ProductID: "NWS_001", Title: "Soil Booster"},
			{RowNumber: 2, ProductID: "NWS_099", Title: "Mystery Mix"},
		},
	}}
	agent.resolver = &fakeResolver{selections: map[string]*models.VideoSelection{
		"NWS_001": staticSelection("NWS_001"),
	}}
	agent.posters = posters
	agent.sheets = sheets

	metrics, err := agent.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	got := metrics.(models.RunMetrics)
	if got.RowsProcessed != 2 {
		t.Errorf("RowsProcessed = %d, want 2", got.RowsProcessed)
	}
	if got.RowsSkipped != 1 {
		t.Errorf("RowsSkipped = %d, want 1", got.RowsSkipped)
	}
	if got.SuccessfulPosts != 4 {
		t.Errorf("SuccessfulPosts = %d, want 4", got.SuccessfulPosts)
	}
	if got.FailedPosts != 0 {
		t.Errorf("FailedPosts = %d, want 0", got.FailedPosts)
	}

	// One post attempt per configured platform, only for the resolved row
	for _, p := range fakes {
		if p.lastReq == nil {
			t.Errorf("%s never attempted", p.name)
		} else if p.lastReq.ProductID != "NWS_001" {
			t.Errorf("%s posted %s, want NWS_001", p.name, p.lastReq.ProductID)
		}
	}

	// Write-back happens exactly once, after all posters settled
	if len(sheets.writes) != 1 {
		t.Fatalf("got %d sheet writes, want 1", len(sheets.writes))
	}
	if sheets.writes[0].settledAt != 4 {
		t.Errorf("sheet write happened after %d posters settled, want 4", sheets.writes[0].settledAt)
	}
	if sheets.writes[0].rowNumber != 1 {
		t.Errorf("sheet write row = %d, want 1", sheets.writes[0].rowNumber)
	}
	if len(sheets.posted) != 1 || sheets.posted[0] != 1 {
		t.Errorf("posted rows = %v, want [1]", sheets.posted)
	}

	snapshot := tracker.Snapshot()
	if snapshot.State != monitoring.StateCompleted {
		t.Errorf("state = %s, want %s", snapshot.State, monitoring.StateCompleted)
	}
	if len(snapshot.Errors) != 1 || !strings.Contains(snapshot.Errors[0], "NWS_099") {
		t.Errorf("errors = %v, want one entry for NWS_099", snapshot.Errors)
	}
}

func TestRunOncePlatformFailureIsolated(t *testing.T) {
	tracker := monitoring.NewTracker()
	failing := &countingPoster{name: "instagram", err: errors.New("token expired")}
	working := &countingPoster{name: "twitter"}

	agent := NewAgent(testAgentConfig(), tracker, nil)
	agent.feed = &fakeFeed{feed: &feed.Feed{
		Rows: []*models.ProductRow{{RowNumber: 1, ProductID: "NWS_001", Title: "Soil Booster"}},
	}}
	agent.resolver = &fakeResolver{selections: map[string]*models.VideoSelection{
		"NWS_001": staticSelection("NWS_001"),
	}}
	agent.posters = []platforms.Poster{failing, working}

	metrics, err := agent.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	got := metrics.(models.RunMetrics)
	if got.SuccessfulPosts != 1 || got.FailedPosts != 1 {
		t.Errorf("posts = %d success / %d failed, want 1/1", got.SuccessfulPosts, got.FailedPosts)
	}
	if working.lastReq == nil {
		t.Error("working poster was never attempted")
	}

	snapshot := tracker.Snapshot()
	if snapshot.Platforms["instagram"].Failed != 1 {
		t.Errorf("instagram failed counter = %d, want 1", snapshot.Platforms["instagram"].Failed)
	}
	if snapshot.Platforms["twitter"].Successful != 1 {
		t.Errorf("twitter success counter = %d, want 1", snapshot.Platforms["twitter"].Successful)
	}
}

func TestRunOnceProcessesExactlyOneRow(t *testing.T) {
	cfg := testAgentConfig()
	cfg.RunOnce = true

	poster := &countingPoster{name: "twitter"}
	agent := NewAgent(cfg, monitoring.NewTracker(), nil)
	agent.feed = &fakeFeed{feed: &feed.Feed{
		Rows: []*models.ProductRow{
			{RowNumber: 1, ProductID: "NWS_001", Title: "Soil Booster"},
			{RowNumber: 2, ProductID: "NWS_002", Title: "Compost Tea"},
			{RowNumber: 3, ProductID: "NWS_003", Title: "Worm Castings"},
		},
	}}
	agent.resolver = &fakeResolver{selections: map[string]*models.VideoSelection{
		"NWS_001": staticSelection("NWS_001"),
		"NWS_002": staticSelection("NWS_002"),
		"NWS_003": staticSelection("NWS_003"),
	}}
	agent.posters = []platforms.Poster{poster}

	metrics, err := agent.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	got := metrics.(models.RunMetrics)
	if got.RowsProcessed != 1 {
		t.Errorf("RowsProcessed = %d, want 1", got.RowsProcessed)
	}
	if poster.lastReq.ProductID != "NWS_001" {
		t.Errorf("posted %s, want NWS_001", poster.lastReq.ProductID)
	}
}

func TestRunOnceFeedFailureIsFatal(t *testing.T) {
	tracker := monitoring.NewTracker()
	agent := NewAgent(testAgentConfig(), tracker, nil)
	agent.feed = &fakeFeed{err: errors.New("feed CSV URL is not configured")}
	agent.resolver = &fakeResolver{}

	if _, err := agent.RunOnce(context.Background()); err == nil {
		t.Fatal("RunOnce() expected error")
	}
	if state := tracker.State(); state != monitoring.StateError {
		t.Errorf("state = %s, want %s", state, monitoring.StateError)
	}
}

func TestRunOnceStopsOnCancelledContext(t *testing.T) {
	tracker := monitoring.NewTracker()
	agent := NewAgent(testAgentConfig(), tracker, nil)
	agent.feed = &fakeFeed{feed: &feed.Feed{
		Rows: []*models.ProductRow{{RowNumber: 1, ProductID: "NWS_001", Title: "Soil Booster"}},
	}}
	agent.resolver = &fakeResolver{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := agent.RunOnce(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("RunOnce() error = %v, want context.Canceled", err)
	}
	if state := tracker.State(); state != monitoring.StateStopped {
		t.Errorf("state = %s, want %s", state, monitoring.StateStopped)
	}
}

func TestScriptFallbackToTitle(t *testing.T) {
	res := &fakeResolver{selections: map[string]*models.VideoSelection{
		"NWS_001": staticSelection("NWS_001"),
	}}

	tests := []struct {
		name    string
		scripts ScriptGenerator
		want    string
	}{
		{
			name:    "GeneratorFails",
			scripts: &fakeScripts{err: errors.New("rate limited")},
			want:    "Soil Booster",
		},
		{
			name:    "GeneratorEmpty",
			scripts: &fakeScripts{script: ""},
			want:    "Soil Booster",
		},
		{
			name:    "NoGenerator",
			scripts: nil,
			want:    "Soil Booster",
		},
		{
			name:    "GeneratorSucceeds",
			scripts: &fakeScripts{script: "A fresh take on compost."},
			want:    "A fresh take on compost.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agent := NewAgent(testAgentConfig(), monitoring.NewTracker(), nil)
			agent.feed = &fakeFeed{feed: &feed.Feed{
				Rows: []*models.ProductRow{{RowNumber: 1, ProductID: "NWS_001", Title: "Soil Booster"}},
			}}
			agent.resolver = res
			agent.scripts = tt.scripts

			if _, err := agent.RunOnce(context.Background()); err != nil {
				t.Fatalf("RunOnce() error = %v", err)
			}
			if got := res.scripts["NWS_001"]; got != tt.want {
				t.Errorf("resolver received script %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildCaption(t *testing.T) {
	agent := NewAgent(testAgentConfig(), monitoring.NewTracker(), nil)
	row := &models.ProductRow{ProductID: "NWS_001", Title: "Soil Booster"}

	caption := agent.buildCaption("Check out our soil booster.", row)
	if !strings.Contains(caption, "Check out our soil booster.") {
		t.Errorf("caption missing script: %q", caption)
	}
	if !strings.Contains(caption, "https://www.example.com") {
		t.Errorf("caption missing site link: %q", caption)
	}
	if !strings.Contains(caption, "#Organic") {
		t.Errorf("caption missing hashtags: %q", caption)
	}
}

func TestGenerateVideos(t *testing.T) {
	agent := NewAgent(testAgentConfig(), monitoring.NewTracker(), nil)
	agent.feed = &fakeFeed{feed: &feed.Feed{
		Rows: []*models.ProductRow{
			{RowNumber: 1, ProductID: "NWS_001", Title: "Soil Booster"},
			{RowNumber: 2, ProductID: "NWS_002", Title: "Compost Tea"},
		},
	}}
	agent.resolver = &fakeResolver{selections: map[string]*models.VideoSelection{
		"NWS_001": staticSelection("NWS_001"),
		"NWS_002": staticSelection("NWS_002"),
	}}

	t.Run("SingleProduct", func(t *testing.T) {
		selections, err := agent.GenerateVideos(context.Background(), "NWS_002", false)
		if err != nil {
			t.Fatalf("GenerateVideos() error = %v", err)
		}
		if len(selections) != 1 {
			t.Fatalf("got %d selections, want 1", len(selections))
		}
	})

	t.Run("AllProducts", func(t *testing.T) {
		selections, err := agent.GenerateVideos(context.Background(), "", false)
		if err != nil {
			t.Fatalf("GenerateVideos() error = %v", err)
		}
		if len(selections) != 2 {
			t.Fatalf("got %d selections, want 2", len(selections))
		}
	})

	t.Run("UnknownProduct", func(t *testing.T) {
		if _, err := agent.GenerateVideos(context.Background(), "NWS_404", false); err == nil {
			t.Error("GenerateVideos() expected error for unknown product")
		}
	})
}

func TestPostSingle(t *testing.T) {
	poster := &countingPoster{name: "twitter"}
	agent := NewAgent(testAgentConfig(), monitoring.NewTracker(), nil)
	agent.feed = &fakeFeed{feed: &feed.Feed{
		Rows: []*models.ProductRow{
			{RowNumber: 1, ProductID: "NWS_001", Title: "Soil Booster"},
			{RowNumber: 2, ProductID: "NWS_002", Title: "Compost Tea"},
		},
	}}
	agent.resolver = &fakeResolver{selections: map[string]*models.VideoSelection{
		"NWS_001": staticSelection("NWS_001"),
		"NWS_002": staticSelection("NWS_002"),
	}}
	agent.posters = []platforms.Poster{poster}

	metrics, err := agent.PostSingle(context.Background())
	if err != nil {
		t.Fatalf("PostSingle() error = %v", err)
	}
	if metrics.RowsProcessed != 1 {
		t.Errorf("RowsProcessed = %d, want 1", metrics.RowsProcessed)
	}
	if poster.lastReq.ProductID != "NWS_001" {
		t.Errorf("posted %s, want the first row", poster.lastReq.ProductID)
	}
}
