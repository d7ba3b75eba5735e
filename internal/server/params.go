package server

import (
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	snapshotdomain "github.com/czei/themeparkhallofshame-sub001/internal/snapshot/domain"
)

const dateLayout = "2006-01-02"

func parseIDParam(c *gin.Context, name string) (snowflake.ID, *apiError) {
	raw := strings.TrimSpace(c.Param(name))
	id, err := snowflake.ParseString(raw)
	if err != nil || id == 0 {
		return 0, newValidationError(name, "invalid_id", "invalid identifier")
	}
	return id, nil
}

func parseDateQuery(c *gin.Context, name string) (time.Time, bool, *apiError) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return time.Time{}, false, nil
	}
	date, err := time.ParseInLocation(dateLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, false, newValidationError(name, "invalid_date", "expected YYYY-MM-DD")
	}
	return date, true, nil
}

// parseTimeQuery accepts RFC3339 timestamps and plain dates; a plain
// date means midnight UTC.
func parseTimeQuery(c *gin.Context, name string) (time.Time, bool, *apiError) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return time.Time{}, false, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), true, nil
	}
	if t, err := time.ParseInLocation(dateLayout, raw, time.UTC); err == nil {
		return t, true, nil
	}
	return time.Time{}, false, newValidationError(name, "invalid_time", "expected RFC3339 or YYYY-MM-DD")
}

// parseWindowQuery reads start/end into a half-open window. Both must
// be present together.
func parseWindowQuery(c *gin.Context) (snapshotdomain.Window, bool, *apiError) {
	start, hasStart, apiErr := parseTimeQuery(c, "start")
	if apiErr != nil {
		return snapshotdomain.Window{}, false, apiErr
	}
	end, hasEnd, apiErr := parseTimeQuery(c, "end")
	if apiErr != nil {
		return snapshotdomain.Window{}, false, apiErr
	}
	if hasStart != hasEnd {
		return snapshotdomain.Window{}, false, newValidationError("start", "incomplete_window", "start and end must be provided together")
	}
	if !hasStart {
		return snapshotdomain.Window{}, false, nil
	}
	if !end.After(start) {
		return snapshotdomain.Window{}, false, newValidationError("end", "invalid_window", "end must be after start")
	}
	return snapshotdomain.Window{Start: start, End: end}, true, nil
}

func parseLimitQuery(c *gin.Context, fallback, max int) (int, *apiError) {
	raw := strings.TrimSpace(c.Query("limit"))
	if raw == "" {
		return fallback, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, newValidationError("limit", "invalid_limit", "limit must be a positive integer")
	}
	if limit > max {
		limit = max
	}
	return limit, nil
}
