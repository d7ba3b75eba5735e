package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

// WindowStats computes metrics for one entity over an arbitrary
// half-open window, straight from raw snapshots.
func (s *Server) WindowStats(c *gin.Context) {
	entity := strings.TrimSpace(c.Query("entity"))
	if entity != "ride" && entity != "park" {
		AbortWithError(c, newValidationError("entity", "invalid_entity", "entity must be ride or park"))
		return
	}

	rawID := strings.TrimSpace(c.Query("id"))
	id, err := snowflake.ParseString(rawID)
	if err != nil || id == 0 {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid identifier"))
		return
	}

	w, hasWindow, apiErr := parseWindowQuery(c)
	if apiErr != nil {
		AbortWithError(c, apiErr)
		return
	}
	if !hasWindow {
		AbortWithError(c, newValidationError("start", "missing_window", "start and end are required"))
		return
	}

	ctx := c.Request.Context()
	switch entity {
	case "ride":
		stats, err := s.aggregateSvc.AggregateRideWindow(ctx, id, w)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"entity": entity, "stats": stats})
	case "park":
		stats, err := s.aggregateSvc.AggregateParkWindow(ctx, id, w)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"entity": entity, "stats": stats})
	}
}
