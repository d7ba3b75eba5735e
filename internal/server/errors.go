package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	aggregatedomain "github.com/czei/themeparkhallofshame-sub001/internal/aggregate/domain"
	parkdomain "github.com/czei/themeparkhallofshame-sub001/internal/parkmeta/domain"
	statsdomain "github.com/czei/themeparkhallofshame-sub001/internal/stats/domain"
)

// apiError is the wire shape of every handler failure.
type apiError struct {
	status  int
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e *apiError) Error() string { return e.Message }

var (
	ErrNotFound = &apiError{
		status:  http.StatusNotFound,
		Code:    "not_found",
		Message: "resource not found",
	}
	ErrServiceUnavailable = &apiError{
		status:  http.StatusServiceUnavailable,
		Code:    "service_unavailable",
		Message: "service unavailable",
	}
	ErrRateLimited = &apiError{
		status:  http.StatusTooManyRequests,
		Code:    "rate_limited",
		Message: "too many requests",
	}
)

func invalidRequestError() *apiError {
	return &apiError{
		status:  http.StatusBadRequest,
		Code:    "invalid_request",
		Message: "invalid request body",
	}
}

func newValidationError(field, code, message string) *apiError {
	return &apiError{
		status:  http.StatusBadRequest,
		Code:    code,
		Message: message,
		Field:   field,
	}
}

// AbortWithError translates domain errors into HTTP responses. Unknown
// errors become an opaque 500; the detail only goes to the log.
func AbortWithError(c *gin.Context, err error) {
	var api *apiError
	if errors.As(err, &api) {
		abort(c, api)
		return
	}

	switch {
	case errors.Is(err, parkdomain.ErrParkNotFound),
		errors.Is(err, parkdomain.ErrRideNotFound),
		errors.Is(err, statsdomain.ErrRunNotFound),
		errors.Is(err, aggregatedomain.ErrNoSnapshots):
		abort(c, &apiError{
			status:  http.StatusNotFound,
			Code:    "not_found",
			Message: err.Error(),
		})
	case errors.Is(err, aggregatedomain.ErrRunInProgress):
		abort(c, &apiError{
			status:  http.StatusConflict,
			Code:    "run_in_progress",
			Message: "an aggregation run is already in progress for this period",
		})
	case errors.Is(err, aggregatedomain.ErrInvalidDateRange):
		abort(c, &apiError{
			status:  http.StatusBadRequest,
			Code:    "invalid_date_range",
			Message: "end date must not precede start date",
		})
	default:
		abort(c, &apiError{
			status:  http.StatusInternalServerError,
			Code:    "internal_error",
			Message: "internal server error",
		})
	}

	_ = c.Error(err)
}

func abort(c *gin.Context, api *apiError) {
	c.AbortWithStatusJSON(api.status, gin.H{"error": api})
}
