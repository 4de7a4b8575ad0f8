package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// Metrics tracks operational counters across a run.
var metrics struct {
	SearchPages      atomic.Int64
	VideoBatches     atomic.Int64
	CommentPages     atomic.Int64
	CommentsDisabled atomic.Int64
	Retries          atomic.Int64
	CacheHits        atomic.Int64
	CacheMisses      atomic.Int64
}

var metricKeys = []string{
	"search_pages", "video_batches", "comment_pages",
	"comments_disabled", "retries",
	"cache_hits", "cache_misses",
}

// GetMetrics returns a snapshot of all counters.
func GetMetrics() map[string]int64 {
	return map[string]int64{
		"search_pages":      metrics.SearchPages.Load(),
		"video_batches":     metrics.VideoBatches.Load(),
		"comment_pages":     metrics.CommentPages.Load(),
		"comments_disabled": metrics.CommentsDisabled.Load(),
		"retries":           metrics.Retries.Load(),
		"cache_hits":        metrics.CacheHits.Load(),
		"cache_misses":      metrics.CacheMisses.Load(),
	}
}

// FormatMetrics returns metrics as "name value" lines.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	for _, k := range metricKeys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

// ResetMetrics zeroes every counter. Used between runs in tests.
func ResetMetrics() {
	metrics.SearchPages.Store(0)
	metrics.VideoBatches.Store(0)
	metrics.CommentPages.Store(0)
	metrics.CommentsDisabled.Store(0)
	metrics.Retries.Store(0)
	metrics.CacheHits.Store(0)
	metrics.CacheMisses.Store(0)
}

func IncrSearchPages()      { metrics.SearchPages.Add(1) }
func IncrVideoBatches()     { metrics.VideoBatches.Add(1) }
func IncrCommentPages()     { metrics.CommentPages.Add(1) }
func IncrCommentsDisabled() { metrics.CommentsDisabled.Add(1) }
func IncrRetries()          { metrics.Retries.Add(1) }

// TrackOperation logs a warning if an operation takes longer than threshold.
func TrackOperation(ctx context.Context, name string, threshold time.Duration, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if elapsed > threshold {
		slog.Warn("slow operation", slog.String("op", name), slog.Duration("elapsed", elapsed))
	}
	return err
}
