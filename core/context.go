package core

import (
	"context"

	"github.com/huangsam/propensity/internal/telemetry"
)

// Context keys for pipeline options
type contextKey string

const (
	suppressHeaderKey contextKey = "suppressHeader"
	recorderKey       contextKey = "recorder"
)

// WithSuppressHeader marks the context so pipelines skip their log header.
func WithSuppressHeader(ctx context.Context) context.Context {
	return context.WithValue(ctx, suppressHeaderKey, true)
}

// shouldSuppressHeader returns whether headers should be suppressed from context
func shouldSuppressHeader(ctx context.Context) bool {
	val := ctx.Value(suppressHeaderKey)
	if val == nil {
		return false // default: show headers
	}
	suppress, ok := val.(bool)
	return ok && suppress
}

// WithRecorder attaches a metrics recorder to the context.
func WithRecorder(ctx context.Context, r *telemetry.Recorder) context.Context {
	return context.WithValue(ctx, recorderKey, r)
}

// recorderFromContext returns the attached recorder or nil.
func recorderFromContext(ctx context.Context) *telemetry.Recorder {
	r, _ := ctx.Value(recorderKey).(*telemetry.Recorder)
	return r
}
