// Package events stores aggregation lifecycle events in a durable
// outbox table for downstream consumers (alerting, cache busting).
package events

// Event types written by the aggregation pipeline.
const (
	EventAggregationCompleted = "aggregation.completed"
	EventAggregationFailed    = "aggregation.failed"
	EventRecomputeCompleted   = "recompute.completed"
)

// AggregationCompletedPayload captures the minimal data needed to
// react to a finished run.
type AggregationCompletedPayload struct {
	RunID          string `json:"run_id"`
	TargetDate     string `json:"target_date"`
	PeriodType     string `json:"period_type"`
	Status         string `json:"status"`
	MetricsVersion int    `json:"metrics_version"`
	RidesProcessed int    `json:"rides_processed"`
	ParksProcessed int    `json:"parks_processed"`
}

// ToMap converts a payload into an outbox-friendly map.
func (p AggregationCompletedPayload) ToMap() map[string]any {
	return map[string]any{
		"run_id":          p.RunID,
		"target_date":     p.TargetDate,
		"period_type":     p.PeriodType,
		"status":          p.Status,
		"metrics_version": p.MetricsVersion,
		"rides_processed": p.RidesProcessed,
		"parks_processed": p.ParksProcessed,
	}
}
