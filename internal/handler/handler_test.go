package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suar-net/suar-probe/internal/model"
	"github.com/suar-net/suar-probe/internal/repository"
	"github.com/suar-net/suar-probe/internal/repository/memory"
	"github.com/suar-net/suar-probe/internal/service"
)

type fakeProbe struct {
	called bool
	got    *model.DTOExecuteRequest
	resp   *model.DTOExecuteResponse
	err    error
}

func (f *fakeProbe) Execute(context.Context, string, model.RequestDescription, model.AuthConfig) (*service.ExecuteResult, error) {
	return nil, errors.New("not used")
}

func (f *fakeProbe) ProcessRequest(_ context.Context, dto *model.DTOExecuteRequest) (*model.DTOExecuteResponse, error) {
	f.called = true
	f.got = dto
	return f.resp, f.err
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter(t *testing.T, probe service.IProbeService, store repository.IRepository, now time.Time) http.Handler {
	t.Helper()
	return SetupRouter(RouterDeps{
		Probe:         probe,
		Analytics:     service.NewAnalyticsService(store, service.AnalyticsConfig{Now: func() time.Time { return now }}),
		Subscriptions: service.NewSubscriptionService(store.Subscriptions()),
		Store:         store,
		Logger:        testLogger(),
	})
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	h := NewHealthHandler(fakePinger{}, testLogger())
	rec := httptest.NewRecorder()
	h.Check(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	h = NewHealthHandler(fakePinger{err: errors.New("down")}, testLogger())
	rec = httptest.NewRecorder()
	h.Check(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestProbeHandler_Success(t *testing.T) {
	probe := &fakeProbe{resp: &model.DTOExecuteResponse{
		Outcome:     model.Outcome{Status: 404, StatusText: "Not Found", ErrorMessage: "HTTP Error: 404 Not Found", ResponseHeaders: map[string]string{}},
		LogRecordID: "rec-1",
	}}
	router := newTestRouter(t, probe, memory.New(), time.Now())

	rec := doJSON(t, router, http.MethodPost, "/api/v1/requests", map[string]any{
		"subscription_id": "sub-1",
		"base_url":        "https://api.example.com",
		"path":            "/users",
		"method":          "get",
		"auth":            map[string]string{"type": "bearer", "secret": "tok"},
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.True(t, probe.called)
	assert.Equal(t, "sub-1", probe.got.SubscriptionID)
	assert.Equal(t, "bearer", probe.got.Auth.Type)

	resp := decodeBody[model.DTOExecuteResponse](t, rec)
	assert.Equal(t, 404, resp.Outcome.Status)
	assert.Equal(t, "rec-1", resp.LogRecordID)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"), "request id is set by chi middleware")
}

func TestProbeHandler_RejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		body any
		want string
	}{
		{"malformed json", `{"base_url":`, "Invalid JSON format"},
		{"missing base url", map[string]any{"method": "GET"}, "Field 'base_url' is required"},
		{"bad method", map[string]any{"base_url": "https://x.com", "method": "TRACE"}, "Field 'method' must be one of GET, POST, PUT, PATCH, DELETE"},
		{"bad auth type", map[string]any{"base_url": "https://x.com", "method": "GET", "auth": map[string]string{"type": "basic"}}, "Field 'type' must be one of: none apiKey bearer"},
		{"negative timeout", map[string]any{"base_url": "https://x.com", "method": "GET", "timeout": -1}, "Field 'timeout' must be greater than or equal to 0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			probe := &fakeProbe{}
			router := newTestRouter(t, probe, memory.New(), time.Now())

			rec := doJSON(t, router, http.MethodPost, "/api/v1/requests", tc.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.False(t, probe.called)
			body := decodeBody[map[string]string](t, rec)
			assert.Contains(t, body["error"], tc.want)
		})
	}
}

func TestProbeHandler_LongTimeoutLeftToExecutor(t *testing.T) {
	probe := &fakeProbe{resp: &model.DTOExecuteResponse{Outcome: model.Outcome{Status: 200, StatusText: "OK"}}}
	router := newTestRouter(t, probe, memory.New(), time.Now())

	rec := doJSON(t, router, http.MethodPost, "/api/v1/requests", map[string]any{"base_url": "https://x.com", "method": "GET", "timeout": 300000})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.True(t, probe.called)
	assert.Equal(t, 300000, probe.got.Timeout)
}

func TestProbeHandler_ServiceErrors(t *testing.T) {
	probe := &fakeProbe{err: &service.ValidationError{Field: "auth.secret", Message: "secret is required for bearer auth"}}
	router := newTestRouter(t, probe, memory.New(), time.Now())

	rec := doJSON(t, router, http.MethodPost, "/api/v1/requests", map[string]any{"base_url": "https://x.com", "method": "GET"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "auth.secret")

	probe.err = errors.New("boom")
	rec = doJSON(t, router, http.MethodPost, "/api/v1/requests", map[string]any{"base_url": "https://x.com", "method": "GET"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestProbeHandler_MethodNotAllowed(t *testing.T) {
	h := NewProbeHandler(&fakeProbe{}, testLogger())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/requests", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSubscriptionsAndAnalyticsFlow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := memory.New()
	router := newTestRouter(t, &fakeProbe{}, store, now)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/subscriptions", map[string]string{"api_id": "weather", "user_id": "u1", "plan": "free"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sub := decodeBody[model.Subscription](t, rec)
	require.NotEmpty(t, sub.ID)

	ctx := context.Background()
	for i, status := range []int{200, 200, 503} {
		s := status
		latency := int64(10 * (i + 1))
		_, err := store.RequestLogs().Insert(ctx, model.RequestLogRecord{
			ID:             sub.ID + "-" + string(rune('a'+i)),
			SubscriptionID: sub.ID,
			EndpointPath:   "/forecast",
			Method:         "GET",
			Timestamp:      now.Add(-time.Duration(i+1) * time.Hour),
			StatusCode:     &s,
			ResponseTimeMs: &latency,
		})
		require.NoError(t, err)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/v1/apis/weather/subscriptions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	subs := decodeBody[[]model.Subscription](t, rec)
	require.Len(t, subs, 1)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/apis/weather/analytics?range=last24h", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	summary := decodeBody[model.AnalyticsSummary](t, rec)
	assert.Equal(t, 3, summary.TotalRequests)
	assert.InDelta(t, 66.67, summary.SuccessRate, 0.01)
	assert.Equal(t, 1, summary.StatusBands[model.BandServerError])

	rec = doJSON(t, router, http.MethodGet, "/api/v1/subscriptions/"+sub.ID+"/analytics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, decodeBody[model.AnalyticsSummary](t, rec).TotalRequests)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/subscriptions/"+sub.ID+"/logs?range=allTime", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	logs := decodeBody[struct {
		Count   int                      `json:"count"`
		Records []model.RequestLogRecord `json:"records"`
	}](t, rec)
	assert.Equal(t, 3, logs.Count)
	assert.True(t, logs.Records[0].Timestamp.Before(logs.Records[2].Timestamp))
}

func TestAnalytics_Errors(t *testing.T) {
	router := newTestRouter(t, &fakeProbe{}, memory.New(), time.Now())

	rec := doJSON(t, router, http.MethodGet, "/api/v1/apis/weather/analytics?range=lastYear", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/subscriptions/missing/analytics", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/apis/nothing/analytics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decodeBody[model.AnalyticsSummary](t, rec)
	assert.Equal(t, 0, summary.TotalRequests)
	assert.NotNil(t, summary.DailyUsage)
}

func TestCreateSubscription_Validation(t *testing.T) {
	router := newTestRouter(t, &fakeProbe{}, memory.New(), time.Now())

	rec := doJSON(t, router, http.MethodPost, "/api/v1/subscriptions", map[string]string{"api_id": "weather"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Field 'user_id' is required")

	rec = doJSON(t, router, http.MethodPost, "/api/v1/subscriptions", map[string]string{"api_id": " ", "user_id": "u"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	router := SetupRouter(RouterDeps{
		Probe:          &fakeProbe{},
		Analytics:      service.NewAnalyticsService(memory.New(), service.AnalyticsConfig{}),
		Subscriptions:  service.NewSubscriptionService(memory.New().Subscriptions()),
		Store:          fakePinger{},
		AllowedOrigins: []string{"https://app.example"},
		Logger:         testLogger(),
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/requests", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}
