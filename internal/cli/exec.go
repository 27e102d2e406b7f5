package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/suar-net/suar-probe/internal/config"
	"github.com/suar-net/suar-probe/internal/database"
	"github.com/suar-net/suar-probe/internal/model"
	"github.com/suar-net/suar-probe/internal/service"
	"gopkg.in/yaml.v3"
)

type execOptions struct {
	file           string
	baseURL        string
	path           string
	method         string
	headers        []string
	query          []string
	data           string
	timeout        time.Duration
	authType       string
	authKeyName    string
	authLocation   string
	authSecret     string
	subscriptionID string
	fail           bool
}

func newExecCommand(root *rootOptions) *cobra.Command {
	opts := &execOptions{}
	cmd := &cobra.Command{
		Use:   "exec [base-url]",
		Short: "Execute one HTTP request and print the normalized outcome",
		Example: `  suar-probe exec https://api.example.com --path /users -q page=2
  suar-probe exec --file request.yaml --subscription 3f6c...
  suar-probe exec https://api.example.com -X POST --path /items -d '{"name":"x"}' --auth-type bearer --auth-secret $TOKEN`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dto, err := opts.request(cmd, args)
			if err != nil {
				return err
			}
			return runExec(cmd, root, opts, dto)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.file, "file", "f", "", "Read the request description from a YAML or JSON file")
	f.StringVar(&opts.baseURL, "url", "", "Base URL of the target API")
	f.StringVar(&opts.path, "path", "", "Endpoint path appended to the base URL")
	f.StringVarP(&opts.method, "method", "X", "GET", "HTTP method: GET, POST, PUT, PATCH or DELETE")
	f.StringArrayVarP(&opts.headers, "header", "H", nil, "Request header as 'Key: Value' (repeatable)")
	f.StringArrayVarP(&opts.query, "query", "q", nil, "Query parameter as 'key=value' (repeatable)")
	f.StringVarP(&opts.data, "data", "d", "", "Raw request body; sent as JSON when it parses as JSON")
	f.DurationVar(&opts.timeout, "timeout", 0, "Request timeout (default from PROBE_DEFAULT_TIMEOUT)")
	f.StringVar(&opts.authType, "auth-type", "", "Auth strategy: none, apiKey or bearer")
	f.StringVar(&opts.authKeyName, "auth-key-name", "", "API key header or query name (default X-API-Key)")
	f.StringVar(&opts.authLocation, "auth-location", "", "API key location: header or query")
	f.StringVar(&opts.authSecret, "auth-secret", "", "API key or bearer token")
	f.StringVar(&opts.subscriptionID, "subscription", "", "Record the attempt in the request log under this subscription")
	f.BoolVar(&opts.fail, "fail", false, "Exit non-zero when the outcome is not a 2xx response")
	return cmd
}

// request merges the file description with explicitly set flags.
func (o *execOptions) request(cmd *cobra.Command, args []string) (*model.DTOExecuteRequest, error) {
	dto := &model.DTOExecuteRequest{}
	if o.file != "" {
		loaded, err := loadRequestFile(o.file)
		if err != nil {
			return nil, err
		}
		dto = loaded
	}

	changed := cmd.Flags().Changed
	if len(args) == 1 {
		dto.BaseURL = args[0]
	}
	if changed("url") {
		dto.BaseURL = o.baseURL
	}
	if changed("path") {
		dto.Path = o.path
	}
	if changed("method") || dto.Method == "" {
		dto.Method = o.method
	}
	if changed("data") {
		dto.Body = o.data
	}
	if changed("timeout") {
		dto.Timeout = int(o.timeout.Milliseconds())
	}
	if changed("subscription") {
		dto.SubscriptionID = o.subscriptionID
	}
	if changed("auth-type") {
		dto.Auth.Type = o.authType
	}
	if changed("auth-key-name") {
		dto.Auth.KeyName = o.authKeyName
	}
	if changed("auth-location") {
		dto.Auth.Location = o.authLocation
	}
	if changed("auth-secret") {
		dto.Auth.Secret = o.authSecret
	}

	headers, err := parseHeaderFlags(o.headers)
	if err != nil {
		return nil, err
	}
	dto.Headers = append(dto.Headers, headers...)

	query, err := parseQueryFlags(o.query)
	if err != nil {
		return nil, err
	}
	dto.QueryParams = append(dto.QueryParams, query...)

	if dto.BaseURL == "" {
		return nil, errors.New("a base URL is required: pass it as an argument, with --url or in --file")
	}
	return dto, nil
}

func runExec(cmd *cobra.Command, root *rootOptions, opts *execOptions, dto *model.DTOExecuteRequest) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	logger := root.logger(cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	executor := service.NewExecutor(service.ExecutorConfig{
		DefaultTimeout:       cfg.Probe.DefaultTimeout,
		MaxTimeout:           cfg.Probe.MaxTimeout,
		MaxResponseBodySize:  cfg.Probe.MaxResponseBodySize,
		BlockPrivateNetworks: cfg.Probe.BlockPrivateNetworks,
		FollowRedirects:      cfg.Probe.FollowRedirects,
	})

	var emitter *service.LogEmitter
	if dto.SubscriptionID != "" {
		openCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		repo, err := database.Open(openCtx, cfg.DB, logger)
		cancel()
		if err != nil {
			return fmt.Errorf("open request log store: %w", err)
		}
		defer repo.Close()
		if cfg.DB.Type == config.DBTypeMemory && cfg.DB.DSN == "" {
			fmt.Fprintln(cmd.ErrOrStderr(), "warning: DATABASE_TYPE=memory without DATABASE_URL, the request log is not kept")
		}
		emitter = service.NewLogEmitter(repo.RequestLogs(), logger)
	}

	probe := service.NewProbeService(executor, emitter, logger)
	resp, err := probe.ProcessRequest(ctx, dto)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if root.jsonOutput {
		if err := printJSON(out, resp); err != nil {
			return err
		}
	} else {
		writeOutcome(out, resp)
	}

	if opts.fail && !resp.Outcome.IsSuccess() {
		return fmt.Errorf("request did not succeed: status %d", resp.Outcome.Status)
	}
	return nil
}

func writeOutcome(w io.Writer, resp *model.DTOExecuteResponse) {
	o := resp.Outcome
	if o.IsTransportFailure() {
		fmt.Fprintf(w, "error: %s (%d ms)\n", o.ErrorMessage, o.ElapsedMs)
	} else {
		fmt.Fprintf(w, "%d %s (%d ms, %d bytes)\n", o.Status, o.StatusText, o.ElapsedMs, o.SizeBytes)
		if o.ErrorMessage != "" {
			fmt.Fprintf(w, "note: %s\n", o.ErrorMessage)
		}
		for _, key := range sortedKeys(o.ResponseHeaders) {
			fmt.Fprintf(w, "%s: %s\n", key, o.ResponseHeaders[key])
		}
		if o.ResponseBody != nil {
			fmt.Fprintln(w)
			fmt.Fprintln(w, o.ResponseBody.String())
		}
	}
	if resp.LogRecordID != "" {
		fmt.Fprintf(w, "logged as %s\n", resp.LogRecordID)
	}
	if resp.Warning != "" {
		fmt.Fprintf(w, "warning: %s\n", resp.Warning)
	}
}

func loadRequestFile(path string) (*model.DTOExecuteRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read request file: %w", err)
	}
	// YAML is a superset of JSON, one decoder serves both.
	var dto model.DTOExecuteRequest
	if err := yaml.Unmarshal(data, &dto); err != nil {
		return nil, fmt.Errorf("failed to parse request file %s: %w", path, err)
	}
	return &dto, nil
}

func parseHeaderFlags(values []string) ([]model.KeyValue, error) {
	out := make([]model.KeyValue, 0, len(values))
	for _, v := range values {
		key, value, ok := strings.Cut(v, ":")
		if !ok {
			return nil, fmt.Errorf("invalid header %q: expected 'Key: Value'", v)
		}
		out = append(out, model.KeyValue{Key: strings.TrimSpace(key), Value: strings.TrimSpace(value)})
	}
	return out, nil
}

func parseQueryFlags(values []string) ([]model.KeyValue, error) {
	out := make([]model.KeyValue, 0, len(values))
	for _, v := range values {
		key, value, ok := strings.Cut(v, "=")
		if !ok {
			return nil, fmt.Errorf("invalid query parameter %q: expected 'key=value'", v)
		}
		out = append(out, model.KeyValue{Key: key, Value: value})
	}
	return out, nil
}
