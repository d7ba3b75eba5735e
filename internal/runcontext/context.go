// Package runcontext carries attribution for aggregation runs: who or
// what triggered a run, and the request id it arrived under.
package runcontext

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
)

type contextKey string

const (
	triggerKey   contextKey = "run_trigger"
	requestIDKey contextKey = "run_request_id"
)

// Trigger values recorded on aggregation_runs.triggered_by.
const (
	TriggerScheduler = "scheduler"
	TriggerAPI       = "api"
	TriggerRecompute = "recompute"
)

func WithTrigger(ctx context.Context, trigger string) context.Context {
	if trigger == "" {
		return ctx
	}
	return context.WithValue(ctx, triggerKey, trigger)
}

// TriggerFromContext returns the recorded trigger, defaulting to
// scheduler for untagged contexts.
func TriggerFromContext(ctx context.Context) string {
	if ctx == nil {
		return TriggerScheduler
	}
	value, _ := ctx.Value(triggerKey).(string)
	if value == "" {
		return TriggerScheduler
	}
	return value
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDKey).(string)
	return value
}

// FromGin tags the request context as API-triggered, carrying the
// middleware-assigned request id along.
func FromGin(c *gin.Context) context.Context {
	ctx := WithTrigger(c.Request.Context(), TriggerAPI)
	if requestID := strings.TrimSpace(c.GetString("request_id")); requestID != "" {
		ctx = WithRequestID(ctx, requestID)
	}
	return ctx
}
