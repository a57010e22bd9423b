// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard
// dependencies on specific observability backends. Consumers register
// hooks at startup to receive events about deck conversion,
// rasterization, inspection, and cache operations.
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetPipelineHooks(&myPipelineHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Pipeline().OnConvertStart(ctx, input, "pdf")
//	// ... run the conversion ...
//	observability.Pipeline().OnConvertComplete(ctx, input, "pdf", duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// PipelineHooks receives events from the overflow-check pipeline.
type PipelineHooks interface {
	// Conversion events (PPTX to PDF, PPTX to ODP)
	OnConvertStart(ctx context.Context, input, format string)
	OnConvertComplete(ctx context.Context, input, format string, duration time.Duration, err error)

	// Rasterization events (PDF pages to PNG frames)
	OnRasterizeStart(ctx context.Context, pdf string, dpi, pages int)
	OnRasterizeComplete(ctx context.Context, pdf string, frames int, duration time.Duration, err error)

	// Inspection events (margin scan across rendered frames)
	OnInspectStart(ctx context.Context, frames, dpi int)
	OnInspectComplete(ctx context.Context, frames, failing int, duration time.Duration, err error)
}

// CacheHooks receives events from render cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnConvertStart(context.Context, string, string) {}
func (NoopPipelineHooks) OnConvertComplete(context.Context, string, string, time.Duration, error) {
}
func (NoopPipelineHooks) OnRasterizeStart(context.Context, string, int, int) {}
func (NoopPipelineHooks) OnRasterizeComplete(context.Context, string, int, time.Duration, error) {
}
func (NoopPipelineHooks) OnInspectStart(context.Context, int, int)                          {}
func (NoopPipelineHooks) OnInspectComplete(context.Context, int, int, time.Duration, error) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

var (
	pipelineHooks PipelineHooks = NoopPipelineHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
	hooksMu       sync.RWMutex
)

// SetPipelineHooks registers custom pipeline hooks.
// This should be called once at application startup before any pipeline operations.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	pipelineHooks = NoopPipelineHooks{}
	cacheHooks = NoopCacheHooks{}
}
