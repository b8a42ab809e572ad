// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Components accept hooks as fields and
// fall back to the no-op implementations when none are supplied, so there is
// no global registry to configure or reset.
//
// # Usage
//
// Hand hooks to the components that emit events:
//
//	conv := pipeline.NewConverter(backend, logger)
//	conv.Hooks = observability.NewLogHooks(logger)
//
// Components call hooks around each unit of work:
//
//	hooks.OnConvertStart(ctx, input, output)
//	// ... convert ...
//	hooks.OnConvertComplete(ctx, input, output, status, duration, err)
package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// =============================================================================
// Conversion Hooks
// =============================================================================

// ConversionHooks receives events from single-image conversions.
type ConversionHooks interface {
	OnConvertStart(ctx context.Context, input, output string)
	OnConvertComplete(ctx context.Context, input, output, status string, duration time.Duration, err error)
}

// =============================================================================
// Backend Hooks
// =============================================================================

// BackendHooks receives events from raster backend invocations.
type BackendHooks interface {
	// OnBackendCall records one backend operation (identify, resize, shear).
	OnBackendCall(ctx context.Context, backend, op, path string, duration time.Duration, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopConversionHooks is a no-op implementation of ConversionHooks.
type NoopConversionHooks struct{}

func (NoopConversionHooks) OnConvertStart(context.Context, string, string) {}
func (NoopConversionHooks) OnConvertComplete(context.Context, string, string, string, time.Duration, error) {
}

// NoopBackendHooks is a no-op implementation of BackendHooks.
type NoopBackendHooks struct{}

func (NoopBackendHooks) OnBackendCall(context.Context, string, string, string, time.Duration, error) {}

// =============================================================================
// Logging Implementation
// =============================================================================

// LogHooks writes every event to a logger at debug level.
// It implements both ConversionHooks and BackendHooks.
type LogHooks struct {
	Logger *log.Logger
}

// NewLogHooks creates hooks that log to l.
func NewLogHooks(l *log.Logger) *LogHooks {
	return &LogHooks{Logger: l}
}

func (h *LogHooks) OnConvertStart(_ context.Context, input, output string) {
	h.Logger.Debug("convert start", "input", input, "output", output)
}

func (h *LogHooks) OnConvertComplete(_ context.Context, input, output, status string, duration time.Duration, err error) {
	if err != nil {
		h.Logger.Debug("convert complete", "input", input, "status", status,
			"duration", duration.Round(time.Millisecond), "err", err)
		return
	}
	h.Logger.Debug("convert complete", "input", input, "status", status,
		"duration", duration.Round(time.Millisecond))
}

func (h *LogHooks) OnBackendCall(_ context.Context, backend, op, path string, duration time.Duration, err error) {
	if err != nil {
		h.Logger.Debug("backend call failed", "backend", backend, "op", op, "path", path,
			"duration", duration.Round(time.Millisecond), "err", err)
		return
	}
	h.Logger.Debug("backend call", "backend", backend, "op", op, "path", path,
		"duration", duration.Round(time.Millisecond))
}

var (
	_ ConversionHooks = (*LogHooks)(nil)
	_ BackendHooks    = (*LogHooks)(nil)
)

// ConversionOrNoop returns h, or a no-op implementation when h is nil.
func ConversionOrNoop(h ConversionHooks) ConversionHooks {
	if h == nil {
		return NoopConversionHooks{}
	}
	return h
}

// BackendOrNoop returns h, or a no-op implementation when h is nil.
func BackendOrNoop(h BackendHooks) BackendHooks {
	if h == nil {
		return NoopBackendHooks{}
	}
	return h
}
