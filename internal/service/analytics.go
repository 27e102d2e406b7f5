package service

import (
	"sort"
	"strings"
	"time"

	"github.com/suar-net/suar-probe/internal/model"
	"github.com/suar-net/suar-probe/internal/stats"
)

const (
	topEndpointLimit = 5
	dateLayout       = "2006-01-02"
)

// Aggregator turns request log records into an AnalyticsSummary. Location
// pins the calendar used for daily buckets; nil means UTC.
type Aggregator struct {
	Location *time.Location
}

// ComputeAnalytics aggregates with UTC calendar dates.
func ComputeAnalytics(records []model.RequestLogRecord, windowStart, windowEnd time.Time) (model.AnalyticsSummary, error) {
	return Aggregator{}.Compute(records, windowStart, windowEnd)
}

// Compute covers the records whose timestamp lies in [windowStart, windowEnd].
// It never mutates records and is safe for concurrent use.
func (a Aggregator) Compute(records []model.RequestLogRecord, windowStart, windowEnd time.Time) (model.AnalyticsSummary, error) {
	if windowStart.After(windowEnd) {
		return model.AnalyticsSummary{}, newValidationError("window", "window start %s is after window end %s",
			windowStart.Format(time.RFC3339), windowEnd.Format(time.RFC3339))
	}
	loc := a.Location
	if loc == nil {
		loc = time.UTC
	}

	summary := model.AnalyticsSummary{
		DailyUsage:   []model.DailyCount{},
		MethodCounts: map[string]int{},
		StatusBands:  map[model.StatusBand]int{},
		TopEndpoints: []model.EndpointCount{},
		WindowStart:  windowStart,
		WindowEnd:    windowEnd,
	}

	daily := map[string]int{}
	endpointCounts := map[string]int{}
	var endpointOrder []string
	var latencies []int64

	for _, rec := range records {
		if rec.Timestamp.Before(windowStart) || rec.Timestamp.After(windowEnd) {
			continue
		}
		summary.TotalRequests++

		daily[rec.Timestamp.In(loc).Format(dateLayout)]++
		summary.MethodCounts[rec.Method]++
		summary.StatusBands[StatusBandOf(rec.Status())]++

		endpoint := NormalizeEndpoint(rec.EndpointPath)
		if _, seen := endpointCounts[endpoint]; !seen {
			endpointOrder = append(endpointOrder, endpoint)
		}
		endpointCounts[endpoint]++

		latencies = append(latencies, rec.Latency())
	}

	if summary.TotalRequests == 0 {
		return summary, nil
	}

	for date, count := range daily {
		summary.DailyUsage = append(summary.DailyUsage, model.DailyCount{Date: date, Count: count})
	}
	sort.Slice(summary.DailyUsage, func(i, j int) bool {
		return summary.DailyUsage[i].Date < summary.DailyUsage[j].Date
	})

	summary.SuccessRate = 100 * float64(summary.StatusBands[model.BandSuccess]) / float64(summary.TotalRequests)
	summary.AvgResponseTimeMs = stats.Mean(latencies)
	summary.Latency = stats.CalculateLatencySummary(latencies)
	summary.TopEndpoints = rankEndpoints(endpointOrder, endpointCounts)

	return summary, nil
}

// StatusBandOf classifies a status code. 0 and anything outside 200-599 is an Error.
func StatusBandOf(status int) model.StatusBand {
	switch {
	case status >= 200 && status < 300:
		return model.BandSuccess
	case status >= 300 && status < 400:
		return model.BandRedirect
	case status >= 400 && status < 500:
		return model.BandClientError
	case status >= 500 && status < 600:
		return model.BandServerError
	}
	return model.BandError
}

// NormalizeEndpoint strips the query string; an empty path maps to "/".
func NormalizeEndpoint(path string) string {
	path, _, _ = strings.Cut(path, "?")
	if path == "" {
		return "/"
	}
	return path
}

// rankEndpoints sorts by count descending, ties keeping first-seen order, and
// folds everything past the top five into one Others entry.
func rankEndpoints(order []string, counts map[string]int) []model.EndpointCount {
	ranked := make([]model.EndpointCount, 0, len(order))
	for _, endpoint := range order {
		ranked = append(ranked, model.EndpointCount{Endpoint: endpoint, Count: counts[endpoint]})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})

	if len(ranked) <= topEndpointLimit {
		return ranked
	}

	others := 0
	for _, e := range ranked[topEndpointLimit:] {
		others += e.Count
	}
	top := append([]model.EndpointCount{}, ranked[:topEndpointLimit]...)
	return append(top, model.EndpointCount{Endpoint: model.OthersEndpoint, Count: others})
}
