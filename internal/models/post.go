package models

import "fmt"

// PostOutcome records one platform post attempt for one product.
type PostOutcome struct {
	Platform  string `json:"platform"`
	ProductID string `json:"product_id"`
	Success   bool   `json:"success"`
	Err       string `json:"error,omitempty"`
}

// RunMetrics aggregates the counters for a single orchestrator run.
type RunMetrics struct {
	RowsProcessed   int `json:"rows_processed"`
	RowsSkipped     int `json:"rows_skipped"`
	SuccessfulPosts int `json:"successful_posts"`
	FailedPosts     int `json:"failed_posts"`
}

// GetSummary implements the scheduler.Metrics interface
func (m RunMetrics) GetSummary() string {
	return fmt.Sprintf("processed %d rows, skipped %d, posted %d, failed %d",
		m.RowsProcessed, m.RowsSkipped, m.SuccessfulPosts, m.FailedPosts)
}
