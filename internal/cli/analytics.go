package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/suar-net/suar-probe/internal/config"
	"github.com/suar-net/suar-probe/internal/database"
	"github.com/suar-net/suar-probe/internal/model"
	"github.com/suar-net/suar-probe/internal/service"
)

type analyticsOptions struct {
	subscriptionID string
	apiID          string
	timeRange      string
	recordsFile    string
}

func newAnalyticsCommand(root *rootOptions) *cobra.Command {
	opts := &analyticsOptions{}
	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Summarize request logs for a subscription, an API or a records file",
		Example: `  suar-probe analytics --subscription 3f6c... --range last24h
  suar-probe analytics --api weather --json
  suar-probe analytics --records export.json --range allTime`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalytics(cmd, root, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.subscriptionID, "subscription", "", "Summarize one subscription")
	f.StringVar(&opts.apiID, "api", "", "Summarize every subscription of an API")
	f.StringVar(&opts.timeRange, "range", string(model.TimeRangeLast7d), "Window: last24h, last7d, last30d or allTime")
	f.StringVar(&opts.recordsFile, "records", "", "Summarize a JSON array of request log records instead of the store")
	cmd.MarkFlagsMutuallyExclusive("subscription", "api", "records")
	cmd.MarkFlagsOneRequired("subscription", "api", "records")
	return cmd
}

func runAnalytics(cmd *cobra.Command, root *rootOptions, opts *analyticsOptions) error {
	tr, err := model.ParseTimeRange(opts.timeRange)
	if err != nil {
		return err
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	logger := root.logger(cfg)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var summary model.AnalyticsSummary
	if opts.recordsFile != "" {
		records, err := loadRecordsFile(opts.recordsFile)
		if err != nil {
			return err
		}
		start, end, err := tr.Window(time.Now())
		if err != nil {
			return err
		}
		summary, err = service.Aggregator{Location: cfg.Analytics.Location}.Compute(records, start, end)
		if err != nil {
			return err
		}
	} else {
		openCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		repo, err := database.Open(openCtx, cfg.DB, logger)
		cancel()
		if err != nil {
			return fmt.Errorf("open request log store: %w", err)
		}
		defer repo.Close()

		analytics := service.NewAnalyticsService(repo, service.AnalyticsConfig{Location: cfg.Analytics.Location})
		if opts.subscriptionID != "" {
			summary, err = analytics.ForSubscription(ctx, opts.subscriptionID, tr)
		} else {
			summary, err = analytics.ForAPI(ctx, opts.apiID, tr)
		}
		if err != nil {
			return err
		}
	}

	if root.jsonOutput {
		return printJSON(cmd.OutOrStdout(), summary)
	}
	writeSummary(cmd.OutOrStdout(), summary)
	return nil
}

func loadRecordsFile(path string) ([]model.RequestLogRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read records file: %w", err)
	}
	var records []model.RequestLogRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse records file %s: %w", path, err)
	}
	if records == nil {
		return nil, errors.New("records file must contain a JSON array")
	}
	return records, nil
}

func writeSummary(w io.Writer, s model.AnalyticsSummary) {
	fmt.Fprintf(w, "window:        %s .. %s\n", s.WindowStart.Format(time.RFC3339), s.WindowEnd.Format(time.RFC3339))
	fmt.Fprintf(w, "requests:      %d\n", s.TotalRequests)
	fmt.Fprintf(w, "success rate:  %.2f%%\n", s.SuccessRate)
	fmt.Fprintf(w, "avg latency:   %.1f ms\n", s.AvgResponseTimeMs)
	fmt.Fprintf(w, "latency (ms):  min %d  p50 %d  p90 %d  p95 %d  p99 %d  max %d\n",
		s.Latency.Min, s.Latency.P50, s.Latency.P90, s.Latency.P95, s.Latency.P99, s.Latency.Max)

	if len(s.StatusBands) > 0 {
		fmt.Fprintln(w, "status bands:")
		for _, band := range []model.StatusBand{model.BandSuccess, model.BandRedirect, model.BandClientError, model.BandServerError, model.BandError} {
			if n, ok := s.StatusBands[band]; ok {
				fmt.Fprintf(w, "  %-12s %d\n", band, n)
			}
		}
	}
	if len(s.MethodCounts) > 0 {
		fmt.Fprintln(w, "methods:")
		for _, m := range sortedKeys(s.MethodCounts) {
			fmt.Fprintf(w, "  %-12s %d\n", m, s.MethodCounts[m])
		}
	}
	if len(s.TopEndpoints) > 0 {
		fmt.Fprintln(w, "top endpoints:")
		for _, e := range s.TopEndpoints {
			fmt.Fprintf(w, "  %-32s %d\n", e.Endpoint, e.Count)
		}
	}
	if len(s.DailyUsage) > 0 {
		fmt.Fprintln(w, "daily usage:")
		for _, d := range s.DailyUsage {
			fmt.Fprintf(w, "  %s  %d\n", d.Date, d.Count)
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
