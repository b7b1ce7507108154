package feed

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"social-stack/internal/models"
	"social-stack/shared/config"
)

var (
	spreadsheetIDRe = regexp.MustCompile(`spreadsheets/d/([a-zA-Z0-9-_]+)`)
	sheetGIDRe      = regexp.MustCompile(`gid=([0-9]+)`)
)

// Feed is one parsed snapshot of the product spreadsheet.
type Feed struct {
	Headers []string
	Rows    []*models.ProductRow

	// SpreadsheetID and SheetGID are extracted from the CSV export URL and
	// used for write-back addressing. Both are zero-valued when the URL is
	// not a Google Sheets export link.
	SpreadsheetID string
	SheetGID      int64
}

// Reader fetches and parses the CSV export of the product sheet.
type Reader struct {
	config *config.FeedConfig
	client *http.Client
}

func NewReader(cfg *config.FeedConfig) *Reader {
	return &Reader{
		config: cfg,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Fetch downloads the feed and returns the rows still awaiting a post. Rows
// whose posted flag is already set are filtered out; their row numbers stay
// positional so write-back still addresses the right sheet lines.
func (r *Reader) Fetch(ctx context.Context) (*Feed, error) {
	if r.config.CSVURL == "" {
		return nil, fmt.Errorf("feed CSV URL is not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.config.CSVURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create feed request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	reader := csv.NewReader(resp.Body)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("feed is empty")
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(h)
	}

	feed := &Feed{Headers: headers}
	feed.SpreadsheetID, feed.SheetGID = ExtractSpreadsheetRef(r.config.CSVURL)

	idIdx := firstHeaderIndex(headers, r.config.IDColumns)
	titleIdx := firstHeaderIndex(headers, r.config.TitleColumns)
	detailIdx := firstHeaderIndex(headers, r.config.DetailColumns)
	postedIdx := firstHeaderIndex(headers, []string{r.config.PostedColumn})

	skippedPosted := 0
	for i, record := range records[1:] {
		rowNumber := i + 1

		if postedIdx >= 0 && isTruthy(field(record, postedIdx)) {
			skippedPosted++
			continue
		}

		row := &models.ProductRow{
			RowNumber:   rowNumber,
			ProductID:   field(record, idIdx),
			Title:       field(record, titleIdx),
			Description: field(record, detailIdx),
		}
		if row.ProductID == "" {
			row.ProductID = fmt.Sprintf("PRODUCT_%d", rowNumber)
		}

		// Preserve every other column verbatim
		for c, h := range headers {
			if c == idIdx || c == titleIdx || c == detailIdx || h == "" {
				continue
			}
			if v := field(record, c); v != "" {
				if row.Extra == nil {
					row.Extra = make(map[string]string)
				}
				row.Extra[h] = v
			}
		}

		feed.Rows = append(feed.Rows, row)
	}

	if skippedPosted > 0 {
		log.Printf("Feed: %d rows already marked posted, %d pending", skippedPosted, len(feed.Rows))
	}

	return feed, nil
}

// ExtractSpreadsheetRef pulls the spreadsheet ID and sheet gid out of a
// Google Sheets CSV export URL.
func ExtractSpreadsheetRef(url string) (string, int64) {
	var spreadsheetID string
	var gid int64

	if m := spreadsheetIDRe.FindStringSubmatch(url); len(m) == 2 {
		spreadsheetID = m[1]
	}
	if m := sheetGIDRe.FindStringSubmatch(url); len(m) == 2 {
		if parsed, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			gid = parsed
		}
	}
	return spreadsheetID, gid
}

func firstHeaderIndex(headers []string, candidates []string) int {
	for _, candidate := range candidates {
		for i, h := range headers {
			if strings.EqualFold(h, strings.TrimSpace(candidate)) {
				return i
			}
		}
	}
	return -1
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func isTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "yes", "y", "x", "1", "posted":
		return true
	}
	return false
}
