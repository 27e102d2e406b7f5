package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/suar-net/suar-probe/internal/model"
)

const (
	maxResponseBodySize   = 10 * 1024 * 1024 // 10 MB
	defaultRequestTimeout = 30 * time.Second
	maxRequestTimeout     = 90 * time.Second
)

var ErrBlockedAddress = errors.New("requests to private IP addresses are not allowed")

type ExecutorConfig struct {
	DefaultTimeout       time.Duration
	MaxTimeout           time.Duration
	MaxResponseBodySize  int64
	BlockPrivateNetworks bool
	FollowRedirects      bool
}

// Executor performs the network call for a RequestSpec. It never returns an
// error: every failure is folded into the Outcome.
type Executor struct {
	httpClient *http.Client
	cfg        ExecutorConfig
}

func NewExecutor(cfg ExecutorConfig) *Executor {
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = defaultRequestTimeout
	}
	if cfg.MaxTimeout <= 0 {
		cfg.MaxTimeout = maxRequestTimeout
	}
	if cfg.MaxResponseBodySize <= 0 {
		cfg.MaxResponseBodySize = maxResponseBodySize
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	if cfg.BlockPrivateNetworks {
		dialer.Control = rejectPrivateAddress
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	client := &http.Client{Transport: transport}
	if !cfg.FollowRedirects {
		client.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	return &Executor{httpClient: client, cfg: cfg}
}

// isPrivateIP checks if a given IP address is private.
func isPrivateIP(ip net.IP) bool {
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsUnspecified() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsLinkLocalUnicast()
}

// rejectPrivateAddress runs after DNS resolution, so it also covers hostnames
// that resolve to private ranges.
func rejectPrivateAddress(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	if ip := net.ParseIP(host); ip != nil && isPrivateIP(ip) {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, host)
	}
	return nil
}

func (e *Executor) resolveTimeout(requested time.Duration) time.Duration {
	if requested <= 0 {
		return e.cfg.DefaultTimeout
	}
	if requested > e.cfg.MaxTimeout {
		return e.cfg.MaxTimeout
	}
	return requested
}

// Execute dispatches spec and returns exactly one terminal Outcome. HTTP error
// statuses are real responses; only a missing response yields Status 0.
func (e *Executor) Execute(ctx context.Context, spec model.RequestSpec) model.Outcome {
	startTime := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, e.resolveTimeout(spec.Timeout))
	defer cancel()

	var bodyReader io.Reader
	if spec.Body != nil {
		bodyReader = strings.NewReader(spec.Body.Data)
	}

	httpRequest, err := http.NewRequestWithContext(reqCtx, spec.Method, spec.URL, bodyReader)
	if err != nil {
		return transportFailure(startTime, fmt.Sprintf("failed to create http request: %v", err))
	}

	keys := make([]string, 0, len(spec.Headers))
	for k := range spec.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if strings.EqualFold(k, "Host") {
			httpRequest.Host = spec.Headers[k]
			continue
		}
		// Assigned directly so the name goes out exactly as supplied.
		httpRequest.Header[k] = []string{spec.Headers[k]}
	}

	httpResponse, err := e.httpClient.Do(httpRequest)
	if err != nil {
		return transportFailure(startTime, describeTransportError(err))
	}

	return e.normalizeResponse(httpResponse, startTime)
}

func transportFailure(startTime time.Time, message string) model.Outcome {
	return model.Outcome{
		Status:          0,
		ResponseHeaders: map[string]string{},
		ElapsedMs:       elapsedMs(startTime),
		ErrorMessage:    message,
		StartedAt:       startTime,
	}
}

func describeTransportError(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Sprintf("%v: %v", ErrRequestTimeout, err)
	case errors.Is(err, context.Canceled):
		return fmt.Sprintf("request canceled: %v", err)
	}
	return fmt.Sprintf("failed to execute request to target server: %v", err)
}

func (e *Executor) normalizeResponse(resp *http.Response, startTime time.Time) model.Outcome {
	defer resp.Body.Close()

	limit := e.cfg.MaxResponseBodySize
	limitedReader := &io.LimitedReader{R: resp.Body, N: limit + 1}
	bodyBytes, readErr := io.ReadAll(limitedReader)
	truncated := int64(len(bodyBytes)) > limit
	if truncated {
		bodyBytes = bodyBytes[:limit]
	}

	text := statusText(resp)
	outcome := model.Outcome{
		Status:          resp.StatusCode,
		StatusText:      text,
		ResponseHeaders: flattenHeaders(resp.Header),
		ResponseBody:    normalizeBody(resp.Header.Get("Content-Type"), bodyBytes, truncated),
		ElapsedMs:       elapsedMs(startTime),
		StartedAt:       startTime,
		SizeBytes:       int64(len(bodyBytes)),
	}

	var notes []string
	if !outcome.IsSuccess() {
		notes = append(notes, fmt.Sprintf("HTTP Error: %d %s", resp.StatusCode, text))
	}
	if readErr != nil {
		notes = append(notes, fmt.Sprintf("failed to read response body: %v", readErr))
	}
	if truncated {
		notes = append(notes, "response body truncated due to size limit")
	}
	outcome.ErrorMessage = strings.Join(notes, "; ")

	return outcome
}

func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}

func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for key, values := range h {
		out[key] = strings.Join(values, ", ")
	}
	return out
}

// normalizeBody keeps JSON only when the declared media type says so and the
// payload actually parses; anything else is captured as text.
func normalizeBody(contentType string, body []byte, truncated bool) *model.ResponseBody {
	if !truncated && isJSONContentType(contentType) && json.Valid(body) {
		return model.JSONResponseBody(append([]byte(nil), body...))
	}
	return model.TextResponseBody(string(body))
}

func isJSONContentType(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func elapsedMs(startTime time.Time) int64 {
	ms := time.Since(startTime).Milliseconds()
	if ms < 0 {
		return 0
	}
	return ms
}
