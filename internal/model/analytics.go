package model

import (
	"errors"
	"fmt"
	"time"
)

type StatusBand string

const (
	BandSuccess     StatusBand = "Success"
	BandRedirect    StatusBand = "Redirect"
	BandClientError StatusBand = "ClientError"
	BandServerError StatusBand = "ServerError"
	BandError       StatusBand = "Error"
)

// OthersEndpoint is the synthetic entry that aggregates endpoints ranked below the top five.
const OthersEndpoint = "Others"

type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type EndpointCount struct {
	Endpoint string `json:"endpoint"`
	Count    int    `json:"count"`
}

type LatencySummary struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
	P50 int64 `json:"p50"`
	P90 int64 `json:"p90"`
	P95 int64 `json:"p95"`
	P99 int64 `json:"p99"`
}

// AnalyticsSummary is recomputed on every call and never persisted.
type AnalyticsSummary struct {
	TotalRequests     int                `json:"total_requests"`
	SuccessRate       float64            `json:"success_rate"`
	AvgResponseTimeMs float64            `json:"avg_response_time_ms"`
	DailyUsage        []DailyCount       `json:"daily_usage"`
	MethodCounts      map[string]int     `json:"method_counts"`
	StatusBands       map[StatusBand]int `json:"status_bands"`
	TopEndpoints      []EndpointCount    `json:"top_endpoints"`
	Latency           LatencySummary     `json:"latency"`
	WindowStart       time.Time          `json:"window_start"`
	WindowEnd         time.Time          `json:"window_end"`
}

type TimeRange string

const (
	TimeRangeLast24h TimeRange = "last24h"
	TimeRangeLast7d  TimeRange = "last7d"
	TimeRangeLast30d TimeRange = "last30d"
	TimeRangeAllTime TimeRange = "allTime"
)

var ErrUnknownTimeRange = errors.New("unknown time range")

func ParseTimeRange(s string) (TimeRange, error) {
	switch r := TimeRange(s); r {
	case TimeRangeLast24h, TimeRangeLast7d, TimeRangeLast30d, TimeRangeAllTime:
		return r, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTimeRange, s)
}

// Window resolves the preset to a concrete inclusive window ending at now.
// allTime starts at the zero time.
func (r TimeRange) Window(now time.Time) (time.Time, time.Time, error) {
	switch r {
	case TimeRangeLast24h:
		return now.Add(-24 * time.Hour), now, nil
	case TimeRangeLast7d:
		return now.AddDate(0, 0, -7), now, nil
	case TimeRangeLast30d:
		return now.AddDate(0, 0, -30), now, nil
	case TimeRangeAllTime:
		return time.Time{}, now, nil
	}
	return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrUnknownTimeRange, string(r))
}
