package server

import (
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	aggregatedomain "github.com/czei/themeparkhallofshame-sub001/internal/aggregate/domain"
	snapshotdomain "github.com/czei/themeparkhallofshame-sub001/internal/snapshot/domain"
)

type parkRef struct {
	ID   string `json:"id"`
	Slug string `json:"slug,omitempty"`
	Name string `json:"name,omitempty"`
}

type rankingEntry struct {
	Rank  int                             `json:"rank"`
	Park  parkRef                         `json:"park"`
	Stats aggregatedomain.ParkWindowStats `json:"stats"`
}

// ParkRankings returns parks ordered by shame score, either for one
// date (persisted daily rows) or for an explicit start/end window
// (computed live). Both forms produce identical entry shapes, ordered
// shame descending with park id breaking ties.
func (s *Server) ParkRankings(c *gin.Context) {
	w, hasWindow, apiErr := parseWindowQuery(c)
	if apiErr != nil {
		AbortWithError(c, apiErr)
		return
	}

	limit, apiErr := parseLimitQuery(c, 50, 200)
	if apiErr != nil {
		AbortWithError(c, apiErr)
		return
	}

	if hasWindow {
		s.windowRankings(c, w, limit)
		return
	}

	date, hasDate, apiErr := parseDateQuery(c, "date")
	if apiErr != nil {
		AbortWithError(c, apiErr)
		return
	}
	if !hasDate {
		date = s.clock.Now().AddDate(0, 0, -1)
	}

	ctx := c.Request.Context()
	rows, err := s.stats.ParkDailyByDate(ctx, s.db, date, s.cfg.MetricsVersion)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if len(rows) > limit {
		rows = rows[:limit]
	}

	rankings := make([]rankingEntry, 0, len(rows))
	for i, row := range rows {
		rankings = append(rankings, rankingEntry{
			Rank:  i + 1,
			Park:  s.parkRef(c, row.ParkID),
			Stats: parkWindowFromDaily(row),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"date":            date.UTC().Format(dateLayout),
		"metrics_version": s.cfg.MetricsVersion,
		"rankings":        rankings,
	})
}

// windowRankings aggregates every observed park over the window and
// ranks the results in memory.
func (s *Server) windowRankings(c *gin.Context, w snapshotdomain.Window, limit int) {
	ctx := c.Request.Context()

	parkIDs, err := s.windows.ParkIDsWithSnapshots(ctx, s.db, w)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	stats := make([]aggregatedomain.ParkWindowStats, 0, len(parkIDs))
	for _, parkID := range parkIDs {
		stat, err := s.aggregateSvc.AggregateParkWindow(ctx, parkID, w)
		if errors.Is(err, aggregatedomain.ErrNoSnapshots) {
			continue
		}
		if err != nil {
			AbortWithError(c, err)
			return
		}
		stats = append(stats, *stat)
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].ShameScore != stats[j].ShameScore {
			return stats[i].ShameScore > stats[j].ShameScore
		}
		return stats[i].ParkID < stats[j].ParkID
	})
	if len(stats) > limit {
		stats = stats[:limit]
	}

	rankings := make([]rankingEntry, 0, len(stats))
	for i, stat := range stats {
		rankings = append(rankings, rankingEntry{
			Rank:  i + 1,
			Park:  s.parkRef(c, stat.ParkID),
			Stats: stat,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"window_start":    w.Start.UTC().Format(time.RFC3339),
		"window_end":      w.End.UTC().Format(time.RFC3339),
		"metrics_version": s.cfg.MetricsVersion,
		"rankings":        rankings,
	})
}

// parkRef resolves display metadata; the repository caches lookups so
// this stays cheap inside ranking loops.
func (s *Server) parkRef(c *gin.Context, parkID snowflake.ID) parkRef {
	ref := parkRef{ID: parkID.String()}
	park, err := s.parks.FindPark(c.Request.Context(), s.db, parkID)
	if err == nil && park != nil {
		ref.Slug = park.Slug
		ref.Name = park.Name
	}
	return ref
}
