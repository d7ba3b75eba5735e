package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	aggregatedomain "github.com/czei/themeparkhallofshame-sub001/internal/aggregate/domain"
	"github.com/czei/themeparkhallofshame-sub001/internal/runcontext"
	statsdomain "github.com/czei/themeparkhallofshame-sub001/internal/stats/domain"
)

// TriggerAggregation runs the daily aggregation for one date on
// demand. A prior successful run makes this a cheap no-op.
func (s *Server) TriggerAggregation(c *gin.Context) {
	var req struct {
		TargetDate string `json:"target_date"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	targetDate, apiErr := parseBodyDate(req.TargetDate, "target_date")
	if apiErr != nil {
		AbortWithError(c, apiErr)
		return
	}
	if !targetDate.Before(s.clock.Now().Truncate(24 * time.Hour)) {
		AbortWithError(c, newValidationError("target_date", "date_not_closed", "target date must be a past day"))
		return
	}

	ctx := runcontext.WithTrigger(c.Request.Context(), runcontext.TriggerAPI)
	summary, err := s.aggregateSvc.RunDaily(ctx, targetDate)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"run": summary})
}

// TriggerRecompute backfills a date range, overwriting existing rows.
func (s *Server) TriggerRecompute(c *gin.Context) {
	var req struct {
		StartDate      string `json:"start_date"`
		EndDate        string `json:"end_date"`
		MetricsVersion int    `json:"metrics_version"`
		DryRun         bool   `json:"dry_run"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	startDate, apiErr := parseBodyDate(req.StartDate, "start_date")
	if apiErr != nil {
		AbortWithError(c, apiErr)
		return
	}
	endDate, apiErr := parseBodyDate(req.EndDate, "end_date")
	if apiErr != nil {
		AbortWithError(c, apiErr)
		return
	}

	summary, err := s.aggregateSvc.Recompute(c.Request.Context(), aggregatedomain.RecomputeRequest{
		StartDate:      startDate,
		EndDate:        endDate,
		MetricsVersion: req.MetricsVersion,
		DryRun:         req.DryRun,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"recompute": summary})
}

// ListAggregationRuns serves the ops view of the run audit log.
func (s *Server) ListAggregationRuns(c *gin.Context) {
	filter := statsdomain.RunFilter{
		Status:     strings.TrimSpace(c.Query("status")),
		PeriodType: strings.TrimSpace(c.Query("period_type")),
	}

	if start, ok, apiErr := parseDateQuery(c, "start"); apiErr != nil {
		AbortWithError(c, apiErr)
		return
	} else if ok {
		filter.StartDate = &start
	}
	if end, ok, apiErr := parseDateQuery(c, "end"); apiErr != nil {
		AbortWithError(c, apiErr)
		return
	} else if ok {
		filter.EndDate = &end
	}

	limit, apiErr := parseLimitQuery(c, 100, 500)
	if apiErr != nil {
		AbortWithError(c, apiErr)
		return
	}
	filter.Limit = limit

	runs, err := s.stats.ListRuns(c.Request.Context(), s.db, filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func parseBodyDate(raw, field string) (time.Time, *apiError) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, newValidationError(field, "required", field+" is required")
	}
	date, err := time.ParseInLocation(dateLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, newValidationError(field, "invalid_date", "expected YYYY-MM-DD")
	}
	return date, nil
}
