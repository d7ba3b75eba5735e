package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	aggregatedomain "github.com/czei/themeparkhallofshame-sub001/internal/aggregate/domain"
)

// ParkStats returns one park's aggregate: a persisted daily row for a
// date, or a live window computation when start/end are given.
func (s *Server) ParkStats(c *gin.Context) {
	parkID, apiErr := parseIDParam(c, "id")
	if apiErr != nil {
		AbortWithError(c, apiErr)
		return
	}

	ctx := c.Request.Context()
	park, err := s.parks.FindPark(ctx, s.db, parkID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	w, hasWindow, apiErr := parseWindowQuery(c)
	if apiErr != nil {
		AbortWithError(c, apiErr)
		return
	}

	var stats *aggregatedomain.ParkWindowStats
	if hasWindow {
		stats, err = s.aggregateSvc.AggregateParkWindow(ctx, parkID, w)
		if err != nil {
			AbortWithError(c, err)
			return
		}
	} else {
		date, hasDate, apiErr := parseDateQuery(c, "date")
		if apiErr != nil {
			AbortWithError(c, apiErr)
			return
		}
		if !hasDate {
			date = s.clock.Now().AddDate(0, 0, -1)
		}
		row, err := s.stats.ParkDaily(ctx, s.db, parkID, date, s.cfg.MetricsVersion)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if row == nil {
			AbortWithError(c, ErrNotFound)
			return
		}
		converted := parkWindowFromDaily(*row)
		stats = &converted
	}

	c.JSON(http.StatusOK, gin.H{
		"park": parkRef{
			ID:   park.ID.String(),
			Slug: park.Slug,
			Name: park.Name,
		},
		"stats": stats,
	})
}

// RideStats mirrors ParkStats for a single ride.
func (s *Server) RideStats(c *gin.Context) {
	rideID, apiErr := parseIDParam(c, "id")
	if apiErr != nil {
		AbortWithError(c, apiErr)
		return
	}

	ctx := c.Request.Context()
	ride, err := s.parks.FindRide(ctx, s.db, rideID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	w, hasWindow, apiErr := parseWindowQuery(c)
	if apiErr != nil {
		AbortWithError(c, apiErr)
		return
	}

	var stats *aggregatedomain.RideWindowStats
	if hasWindow {
		stats, err = s.aggregateSvc.AggregateRideWindow(ctx, rideID, w)
		if err != nil {
			AbortWithError(c, err)
			return
		}
	} else {
		date, hasDate, apiErr := parseDateQuery(c, "date")
		if apiErr != nil {
			AbortWithError(c, apiErr)
			return
		}
		if !hasDate {
			date = s.clock.Now().AddDate(0, 0, -1)
		}
		row, err := s.stats.RideDaily(ctx, s.db, rideID, date, s.cfg.MetricsVersion)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if row == nil {
			AbortWithError(c, ErrNotFound)
			return
		}
		converted := rideWindowFromDaily(*row)
		stats = &converted
	}

	c.JSON(http.StatusOK, gin.H{
		"ride": gin.H{
			"id":      ride.ID.String(),
			"park_id": ride.ParkID.String(),
			"name":    ride.Name,
			"tier":    ride.Tier,
		},
		"stats": stats,
	})
}
