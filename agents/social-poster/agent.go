package socialposter

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"social-stack/agents/social-poster/feed"
	"social-stack/agents/social-poster/heygen"
	"social-stack/agents/social-poster/platforms"
	"social-stack/agents/social-poster/resolver"
	"social-stack/internal/models"
	"social-stack/shared/ai"
	"social-stack/shared/config"
	"social-stack/shared/email"
	"social-stack/shared/logging"
	"social-stack/shared/monitoring"
	"social-stack/shared/scheduler"
	"social-stack/shared/sheets"
	"social-stack/shared/storage"

	"github.com/google/uuid"
)

// FeedFetcher loads the pending product rows.
type FeedFetcher interface {
	Fetch(ctx context.Context) (*feed.Feed, error)
}

// VideoResolver produces a playable video for a product.
type VideoResolver interface {
	Resolve(ctx context.Context, product *models.ProductRow, script string) (*models.VideoSelection, error)
	GenerateAI(ctx context.Context, product *models.ProductRow, script string) (*models.VideoSelection, error)
}

// ScriptGenerator produces a caption/script for a product. Failures are
// always recoverable: the agent substitutes the product title.
type ScriptGenerator interface {
	Generate(ctx context.Context, product *models.ProductRow) (string, error)
}

// SheetWriter performs the best-effort bookkeeping write-back.
type SheetWriter interface {
	WriteColumnValue(ctx context.Context, spreadsheetID string, gid int64, headers []string, column string, rowNumber int, value string) error
	MarkRowPosted(ctx context.Context, spreadsheetID string, gid int64, headers []string, postedColumn string, rowNumber int) error
}

// Agent orchestrates the feed -> resolve -> post -> write-back pipeline.
// Rows are processed strictly sequentially; the only concurrency is the
// per-row fan-out across platform posters.
type Agent struct {
	config   *config.Config
	tracker  *monitoring.Tracker
	activity *logging.ActivityLog

	feed        FeedFetcher
	resolver    VideoResolver
	scripts     ScriptGenerator
	posters     []platforms.Poster
	sheets      SheetWriter
	postTracker *storage.PostTracker
	emailSender *email.Sender
}

func NewAgent(cfg *config.Config, tracker *monitoring.Tracker, activity *logging.ActivityLog) *Agent {
	return &Agent{
		config:   cfg,
		tracker:  tracker,
		activity: activity,
	}
}

func (a *Agent) Name() string {
	return "Social Poster"
}

func (a *Agent) Initialize() error {
	log.Printf("Initializing %s...", a.Name())

	if a.feed == nil {
		a.feed = feed.NewReader(&a.config.Feed)
		log.Println("Feed reader initialized")
	}

	if a.resolver == nil {
		var generator resolver.VideoGenerator
		if a.config.HeyGen.Configured() {
			generator = heygen.NewClient(&a.config.HeyGen)
			log.Println("AI video generation enabled")
		} else {
			log.Println("HEYGEN_API_KEY not set, AI video generation disabled")
		}
		a.resolver = resolver.New(&a.config.StaticVideos, generator)
	}

	if a.scripts == nil && a.config.AI.Configured() {
		writer, err := ai.NewScriptWriter(&a.config.AI)
		if err != nil {
			return fmt.Errorf("failed to create script writer: %w", err)
		}
		a.scripts = writer
		log.Println("Script writer initialized")
	}

	if a.posters == nil {
		a.posters = platforms.Build(a.config)
		names := make([]string, len(a.posters))
		for i, p := range a.posters {
			names[i] = p.Name()
		}
		log.Printf("Configured platforms: %v", names)
	}

	if a.sheets == nil && a.config.Sheets.Configured() {
		writer, err := sheets.NewWriter(context.Background(), &a.config.Sheets)
		if err != nil {
			return fmt.Errorf("failed to create sheet writer: %w", err)
		}
		a.sheets = writer
		log.Println("Sheet writer initialized")
	}

	if a.postTracker == nil {
		tracker, err := storage.NewPostTracker(a.config.Server.DataDir)
		if err != nil {
			return fmt.Errorf("failed to create post tracker: %w", err)
		}
		a.postTracker = tracker
		log.Printf("Post tracker initialized (%d posts recorded)", tracker.PostedCount())
	}

	if a.emailSender == nil && a.config.Email.Configured() {
		a.emailSender = email.NewSender(&a.config.Email)
		log.Println("Email sender initialized")
	}

	return nil
}

// RunOnce processes the feed in a single pass. It implements the
// scheduler.Agent interface.
func (a *Agent) RunOnce(ctx context.Context) (scheduler.Metrics, error) {
	runID := uuid.New().String()[:8]
	metrics := models.RunMetrics{}

	a.tracker.SetState(monitoring.StateFetchingRows, "fetching product feed")
	a.recordActivity("run-start", fmt.Sprintf("run %s starting", runID))

	fd, err := a.feed.Fetch(ctx)
	if err != nil {
		a.tracker.SetState(monitoring.StateError, err.Error())
		a.tracker.AddError(fmt.Sprintf("System: %v", err))
		a.recordActivity("run-error", err.Error())
		return metrics, fmt.Errorf("failed to fetch feed: %w", err)
	}

	if len(fd.Rows) == 0 {
		log.Println("No rows to process")
		a.tracker.SetState(monitoring.StateCompleted, "no rows to process")
		a.recordActivity("run-complete", "no rows to process")
		return metrics, nil
	}

	log.Printf("[run %s] Found %d products to process", runID, len(fd.Rows))
	a.tracker.SetState(monitoring.StateProcessingRows, "")

	for _, row := range fd.Rows {
		select {
		case <-ctx.Done():
			a.tracker.SetState(monitoring.StateStopped, "run interrupted")
			a.recordActivity("run-stopped", fmt.Sprintf("run %s interrupted at row %d", runID, row.RowNumber))
			return metrics, ctx.Err()
		default:
		}

		a.processRow(ctx, fd, row, &metrics)

		if a.config.RunOnce {
			log.Printf("[run %s] RUN_ONCE set, stopping after one row", runID)
			break
		}
	}

	a.tracker.SetState(monitoring.StateCompleted, metrics.GetSummary())
	a.recordActivity("run-complete", metrics.GetSummary())
	a.sendRunReport(metrics)

	return metrics, nil
}

// processRow runs the full pipeline for one row: script, video resolution,
// platform fan-out, sheet write-back. Every failure is row- or
// platform-scoped; nothing here aborts the run.
func (a *Agent) processRow(ctx context.Context, fd *feed.Feed, row *models.ProductRow, metrics *models.RunMetrics) {
	log.Printf("Processing row %d: %s", row.RowNumber, row.Title)

	script := a.scriptFor(ctx, row)

	selection, err := a.resolver.Resolve(ctx, row, script)
	if err != nil {
		log.Printf("Skipping row %d - %v", row.RowNumber, err)
		a.tracker.AddError(fmt.Sprintf("%s: %v", row.ProductID, err))
		a.tracker.IncrementRowsSkipped()
		a.tracker.IncrementRowsProcessed()
		metrics.RowsSkipped++
		metrics.RowsProcessed++
		a.recordActivity("row-skipped", fmt.Sprintf("%s: %v", row.ProductID, err))
		return
	}

	log.Printf("Video selected for %s: type=%s source=%s strategy=%s",
		row.ProductID, selection.Type, selection.Source, selection.Strategy)

	req := &platforms.PostRequest{
		VideoURL:     selection.URL,
		ThumbnailURL: selection.ThumbnailURL,
		Caption:      a.buildCaption(script, row),
		Title:        row.Title,
		ProductID:    row.ProductID,
	}

	outcomes := platforms.PostAll(ctx, a.postersFor(row.ProductID), req)
	for _, outcome := range outcomes {
		if outcome.Success {
			a.tracker.IncrementSuccessfulPost(outcome.Platform)
			metrics.SuccessfulPosts++
			if a.postTracker != nil {
				if err := a.postTracker.MarkPosted(outcome.Platform, row.ProductID); err != nil {
					log.Printf("Warning: failed to record post: %v", err)
				}
			}
		} else {
			a.tracker.IncrementFailedPost(outcome.Platform)
			a.tracker.AddError(fmt.Sprintf("%s: %s - %s", outcome.Platform, row.ProductID, outcome.Err))
			metrics.FailedPosts++
		}
	}

	a.writeBack(ctx, fd, row, selection)

	a.tracker.IncrementRowsProcessed()
	metrics.RowsProcessed++
	a.recordActivity("row-complete", fmt.Sprintf("%s posted (%s video)", row.ProductID, selection.Type))
}

// scriptFor generates a marketing script, falling back to the product title
// on any failure. The fallback is a hard requirement: downstream steps need
// a non-empty script.
func (a *Agent) scriptFor(ctx context.Context, row *models.ProductRow) string {
	if a.scripts == nil {
		log.Println("Script generation not configured, using product title as script")
		return fallbackScript(row)
	}

	script, err := a.scripts.Generate(ctx, row)
	if err != nil || script == "" {
		log.Printf("Script generation failed for %s, using product title: %v", row.ProductID, err)
		return fallbackScript(row)
	}
	return script
}

func fallbackScript(row *models.ProductRow) string {
	if row.Title != "" {
		return row.Title
	}
	return row.Description
}

// postersFor filters out platforms that already carry a post for this
// product, so re-runs of an unfinished sheet do not double-post.
func (a *Agent) postersFor(productID string) []platforms.Poster {
	if a.postTracker == nil {
		return a.posters
	}
	var pending []platforms.Poster
	for _, p := range a.posters {
		if a.postTracker.HasPosted(p.Name(), productID) {
			log.Printf("Already posted to %s: %s", p.Name(), productID)
			continue
		}
		pending = append(pending, p)
	}
	return pending
}

func (a *Agent) buildCaption(script string, row *models.ProductRow) string {
	caption := script
	if caption == "" {
		caption = row.Title
	}
	if a.config.Site.BaseURL != "" {
		caption += fmt.Sprintf("\n\n🌱 Learn more: %s", a.config.Site.BaseURL)
	}
	if a.config.Site.Hashtags != "" {
		caption += "\n" + a.config.Site.Hashtags
	}
	return caption
}

// writeBack records the video URL and posted flag in the sheet. Both writes
// are best-effort: the social posts already happened and must not be
// retried because bookkeeping failed.
func (a *Agent) writeBack(ctx context.Context, fd *feed.Feed, row *models.ProductRow, selection *models.VideoSelection) {
	if a.sheets == nil || fd.SpreadsheetID == "" {
		return
	}

	if err := a.sheets.WriteColumnValue(ctx, fd.SpreadsheetID, fd.SheetGID, fd.Headers,
		a.config.Feed.VideoURLColumn, row.RowNumber, selection.URL); err != nil {
		log.Printf("Warning: failed to write video URL for row %d: %v", row.RowNumber, err)
	}

	if err := a.sheets.MarkRowPosted(ctx, fd.SpreadsheetID, fd.SheetGID, fd.Headers,
		a.config.Feed.PostedColumn, row.RowNumber); err != nil {
		log.Printf("Warning: failed to mark row %d posted: %v", row.RowNumber, err)
	}
}

func (a *Agent) sendRunReport(metrics models.RunMetrics) {
	if a.emailSender == nil {
		return
	}
	report := &email.RunReport{
		Date:    time.Now(),
		Metrics: metrics,
		Errors:  a.tracker.Snapshot().Errors,
	}
	if err := a.emailSender.SendRunReport(report); err != nil {
		log.Printf("Warning: failed to send run report: %v", err)
	}
}

func (a *Agent) recordActivity(eventType, message string) {
	if a.activity == nil {
		return
	}
	if err := a.activity.Record(eventType, message); err != nil {
		log.Printf("Warning: failed to write activity log: %v", err)
	}
}

// GenerateVideos resolves (or regenerates) videos without posting, for the
// video generation endpoint. An empty productID targets every pending row.
func (a *Agent) GenerateVideos(ctx context.Context, productID string, force bool) ([]*models.VideoSelection, error) {
	fd, err := a.feed.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}

	var selections []*models.VideoSelection
	matched := false
	for _, row := range fd.Rows {
		if productID != "" && !strings.EqualFold(row.ProductID, productID) {
			continue
		}
		matched = true

		script := a.scriptFor(ctx, row)

		var selection *models.VideoSelection
		if force {
			selection, err = a.resolver.GenerateAI(ctx, row, script)
		} else {
			selection, err = a.resolver.Resolve(ctx, row, script)
		}
		if err != nil {
			log.Printf("Video generation failed for %s: %v", row.ProductID, err)
			a.tracker.AddError(fmt.Sprintf("%s: %v", row.ProductID, err))
			continue
		}
		selections = append(selections, selection)

		if productID != "" {
			break
		}
	}

	if productID != "" && !matched {
		return nil, fmt.Errorf("product %s not found in feed", productID)
	}
	return selections, nil
}

// PostSingle processes exactly the first pending row, used by the single
// post test endpoint.
func (a *Agent) PostSingle(ctx context.Context) (models.RunMetrics, error) {
	metrics := models.RunMetrics{}

	fd, err := a.feed.Fetch(ctx)
	if err != nil {
		return metrics, fmt.Errorf("failed to fetch feed: %w", err)
	}
	if len(fd.Rows) == 0 {
		return metrics, fmt.Errorf("no pending rows in feed")
	}

	a.processRow(ctx, fd, fd.Rows[0], &metrics)
	return metrics, nil
}
