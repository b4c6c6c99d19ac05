// Package stats derives bucketed success-rate statistics from probe
// history.
//
// Buckets are aligned to local wall-clock boundaries: hourly buckets for
// the 24h period, daily buckets for the 7d period. Aggregation scans a
// monitor's history newest-first and stops at the window edge, so cost is
// bounded by the window rather than total history size.
package stats

import (
	"fmt"
	"math"
	"time"

	"webwatch/internal/cache"
	"webwatch/internal/storage"
)

// Supported aggregation periods.
const (
	Period24h = "24h"
	Period7d  = "7d"
)

// Bucket is one aggregation slot of a stats series.
type Bucket struct {
	Label        string    `json:"label"`
	SuccessCount int       `json:"success_count"`
	FailureCount int       `json:"failure_count"`
	SuccessRate  float64   `json:"success_rate"`
	BucketStart  time.Time `json:"bucket_start"`
}

// MonitorStats is the bucketed series for one monitor and period.
type MonitorStats struct {
	MonitorID   string   `json:"monitor_id"`
	MonitorName string   `json:"monitor_name"`
	Period      string   `json:"period"`
	Buckets     []Bucket `json:"buckets"`
}

// Engine computes and caches monitor statistics.
type Engine struct {
	history *storage.HistoryRepo
	cache   *cache.Cache
}

// NewEngine creates a stats engine over the history repository.
func NewEngine(history *storage.HistoryRepo, c *cache.Cache) *Engine {
	return &Engine{history: history, cache: c}
}

// ValidPeriod reports whether period names a supported window.
func ValidPeriod(period string) bool {
	return period == Period24h || period == Period7d
}

// Compute returns the bucketed stats for a monitor over the given period,
// serving from cache when a fresh computation is at most the stats TTL old.
func (e *Engine) Compute(monitorID, monitorName, period string) (*MonitorStats, error) {
	cacheKey := fmt.Sprintf("%s_%s_%s", cache.KeyMonitorStats, monitorID, period)
	if cached, ok := e.cache.Get(cacheKey); ok {
		if stats, ok := cached.(*MonitorStats); ok {
			return stats, nil
		}
	}

	now := time.Now()
	buckets := makeBuckets(now, period)
	windowStart := buckets[0].BucketStart

	err := e.history.ScanReverse(monitorID, func(rec *storage.HistoryRecord) bool {
		if rec.Timestamp.Before(windowStart) {
			return false
		}
		if idx := bucketIndex(buckets, rec.Timestamp); idx >= 0 {
			if rec.Status == storage.StatusSuccess {
				buckets[idx].SuccessCount++
			} else {
				buckets[idx].FailureCount++
			}
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	for i := range buckets {
		buckets[i].SuccessRate = successRate(buckets[i].SuccessCount, buckets[i].FailureCount)
	}

	stats := &MonitorStats{
		MonitorID:   monitorID,
		MonitorName: monitorName,
		Period:      period,
		Buckets:     buckets,
	}
	e.cache.Set(cacheKey, stats, cache.TTLStats)
	return stats, nil
}

// makeBuckets builds the empty bucket series ending at now: 24 hourly
// buckets (current partial hour included, labeled "HH:00") or 7 daily
// buckets (labeled "M/D"), both in local time.
func makeBuckets(now time.Time, period string) []Bucket {
	local := now.Local()

	if period == Period7d {
		today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())
		buckets := make([]Bucket, 7)
		for i := range buckets {
			start := today.AddDate(0, 0, i-6)
			buckets[i] = Bucket{
				Label:       fmt.Sprintf("%d/%d", int(start.Month()), start.Day()),
				BucketStart: start,
			}
		}
		return buckets
	}

	hour := time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), 0, 0, 0, local.Location())
	buckets := make([]Bucket, 24)
	for i := range buckets {
		start := hour.Add(time.Duration(i-23) * time.Hour)
		buckets[i] = Bucket{
			Label:       fmt.Sprintf("%02d:00", start.Hour()),
			BucketStart: start,
		}
	}
	return buckets
}

// bucketIndex returns the index of the last bucket starting at or before
// ts, or -1 when ts precedes the window.
func bucketIndex(buckets []Bucket, ts time.Time) int {
	for i := len(buckets) - 1; i >= 0; i-- {
		if !ts.Before(buckets[i].BucketStart) {
			return i
		}
	}
	return -1
}

// successRate computes success/(success+failure)*100 rounded to two
// decimals, or 0 when the bucket has no samples.
func successRate(success, failure int) float64 {
	total := success + failure
	if total == 0 {
		return 0
	}
	return math.Round(float64(success)/float64(total)*10000) / 100
}
