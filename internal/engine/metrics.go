package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// Metrics tracks operational counters across the engine.
var metrics struct {
	ExtractRequests atomic.Int64
	ExtractFailures atomic.Int64
	DirectTrackHits atomic.Int64
	PanelHits       atomic.Int64
	LegacyHits      atomic.Int64
	BridgeCalls     atomic.Int64
	BridgeTimeouts  atomic.Int64
	BridgeRejected  atomic.Int64
	PageLoads       atomic.Int64
	PageLoadErrors  atomic.Int64
	LLMCalls        atomic.Int64
	LLMErrors       atomic.Int64
	CacheHits       atomic.Int64
	CacheMisses     atomic.Int64
}

var metricKeys = []string{
	"extract_requests", "extract_failures",
	"direct_track_hits", "panel_hits", "legacy_hits",
	"bridge_calls", "bridge_timeouts", "bridge_rejected",
	"page_loads", "page_load_errors",
	"llm_calls", "llm_errors",
	"cache_hits", "cache_misses",
}

// GetMetrics returns a snapshot of all metrics including cache stats.
func GetMetrics() map[string]int64 {
	return map[string]int64{
		"extract_requests":  metrics.ExtractRequests.Load(),
		"extract_failures":  metrics.ExtractFailures.Load(),
		"direct_track_hits": metrics.DirectTrackHits.Load(),
		"panel_hits":        metrics.PanelHits.Load(),
		"legacy_hits":       metrics.LegacyHits.Load(),
		"bridge_calls":      metrics.BridgeCalls.Load(),
		"bridge_timeouts":   metrics.BridgeTimeouts.Load(),
		"bridge_rejected":   metrics.BridgeRejected.Load(),
		"page_loads":        metrics.PageLoads.Load(),
		"page_load_errors":  metrics.PageLoadErrors.Load(),
		"llm_calls":         metrics.LLMCalls.Load(),
		"llm_errors":        metrics.LLMErrors.Load(),
		"cache_hits":        metrics.CacheHits.Load(),
		"cache_misses":      metrics.CacheMisses.Load(),
	}
}

// FormatMetrics returns metrics as a simple text format for HTTP endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	for _, k := range metricKeys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

// Incrementors for captions/ sub-package.
func IncrExtractRequests() { metrics.ExtractRequests.Add(1) }
func IncrExtractFailures() { metrics.ExtractFailures.Add(1) }
func IncrDirectTrackHits() { metrics.DirectTrackHits.Add(1) }
func IncrPanelHits()       { metrics.PanelHits.Add(1) }
func IncrLegacyHits()      { metrics.LegacyHits.Add(1) }

// Incrementors for bridge/ and page/.
func IncrBridgeCalls()    { metrics.BridgeCalls.Add(1) }
func IncrBridgeTimeouts() { metrics.BridgeTimeouts.Add(1) }
func IncrBridgeRejected() { metrics.BridgeRejected.Add(1) }
func IncrPageLoads()      { metrics.PageLoads.Add(1) }
func IncrPageLoadErrors() { metrics.PageLoadErrors.Add(1) }

// TrackOperation logs a warning if an operation takes longer than threshold.
func TrackOperation(ctx context.Context, name string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if elapsed > 5*time.Second {
		slog.Warn("slow operation", slog.String("op", name), slog.Duration("elapsed", elapsed))
	}
	return err
}
