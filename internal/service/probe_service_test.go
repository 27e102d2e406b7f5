package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suar-net/suar-probe/internal/model"
	"github.com/suar-net/suar-probe/internal/repository/memory"
)

type capturedRequest struct {
	path   string
	query  string
	apiKey string
}

func newCaptureServer(t *testing.T, status int) (*httptest.Server, *atomic.Pointer[capturedRequest]) {
	t.Helper()
	var last atomic.Pointer[capturedRequest]
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		last.Store(&capturedRequest{path: r.URL.Path, query: r.URL.RawQuery, apiKey: r.Header.Get("X-API-Key")})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &last
}

func TestProbeService_APIKeyHeaderEndToEnd(t *testing.T) {
	srv, last := newCaptureServer(t, http.StatusOK)
	store := memory.New()
	probe := NewProbeService(newTestExecutor(ExecutorConfig{}), NewLogEmitter(store.RequestLogs(), discardLogger()), discardLogger())

	result, err := probe.Execute(context.Background(), "sub-1",
		model.RequestDescription{BaseURL: srv.URL, Path: "/users", Method: "GET"},
		model.AuthConfig{Type: model.AuthTypeAPIKey, Location: model.AuthLocationHeader, KeyName: "X-API-Key", Secret: "abc123"},
	)
	require.NoError(t, err)

	got := last.Load()
	require.NotNil(t, got)
	assert.Equal(t, "/users", got.path)
	assert.Equal(t, "", got.query)
	assert.Equal(t, "abc123", got.apiKey)

	assert.Equal(t, http.StatusOK, result.Outcome.Status)
	assert.Nil(t, result.Warning)
	assert.NotEmpty(t, result.LogRecordID)

	records, err := store.RequestLogs().ListBySubscriptions(context.Background(), []string{"sub-1"}, time.Time{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, result.LogRecordID, records[0].ID)
	assert.Equal(t, "abc123", records[0].RequestHeaders["X-API-Key"])
}

func TestProbeService_APIKeyQueryWinsOverUserRow(t *testing.T) {
	var seen atomic.Pointer[[]string]
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		values := r.URL.Query()["api_key"]
		seen.Store(&values)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	store := memory.New()
	probe := NewProbeService(newTestExecutor(ExecutorConfig{}), NewLogEmitter(store.RequestLogs(), discardLogger()), discardLogger())

	result, err := probe.Execute(context.Background(), "sub-1",
		model.RequestDescription{
			BaseURL:     srv.URL,
			Path:        "/users",
			Method:      "GET",
			QueryParams: []model.KeyValue{{Key: "api_key", Value: "user-typed"}, {Key: "page", Value: "1"}},
		},
		model.AuthConfig{Type: model.AuthTypeAPIKey, Location: model.AuthLocationQuery, KeyName: "api_key", Secret: "s3cr3t"},
	)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, result.Outcome.Status)

	got := seen.Load()
	require.NotNil(t, got)
	assert.Equal(t, []string{"s3cr3t"}, *got)

	records, err := store.RequestLogs().ListBySubscriptions(context.Background(), []string{"sub-1"}, time.Time{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, map[string]string{"api_key": "s3cr3t", "page": "1"}, records[0].RequestQuery)
}

func TestProbeService_ValidationErrorMakesNoCall(t *testing.T) {
	srv, last := newCaptureServer(t, http.StatusOK)
	store := memory.New()
	probe := NewProbeService(newTestExecutor(ExecutorConfig{}), NewLogEmitter(store.RequestLogs(), discardLogger()), discardLogger())

	_, err := probe.Execute(context.Background(), "sub-1",
		model.RequestDescription{BaseURL: srv.URL, Method: "GET"},
		model.AuthConfig{Type: model.AuthTypeBearer},
	)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.Nil(t, last.Load())

	records, err := store.RequestLogs().ListBySubscriptions(context.Background(), []string{"sub-1"}, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestProbeService_PersistenceFailureKeepsOutcome(t *testing.T) {
	srv, _ := newCaptureServer(t, http.StatusInternalServerError)
	emitter := NewLogEmitter(failingLogRepo{err: errors.New("down")}, discardLogger())
	probe := NewProbeService(newTestExecutor(ExecutorConfig{}), emitter, discardLogger())

	resp, err := probe.ProcessRequest(context.Background(), &model.DTOExecuteRequest{
		SubscriptionID: "sub-1",
		BaseURL:        srv.URL,
		Method:         "GET",
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusInternalServerError, resp.Outcome.Status)
	assert.Equal(t, "HTTP Error: 500 Internal Server Error", resp.Outcome.ErrorMessage)
	assert.Empty(t, resp.LogRecordID)
	assert.Contains(t, resp.Warning, "request log not persisted")
}

func TestProbeService_NoSubscriptionSkipsLogging(t *testing.T) {
	srv, _ := newCaptureServer(t, http.StatusOK)
	emitter := NewLogEmitter(failingLogRepo{err: errors.New("must not be called")}, discardLogger())
	probe := NewProbeService(newTestExecutor(ExecutorConfig{}), emitter, discardLogger())

	result, err := probe.Execute(context.Background(), "", model.RequestDescription{BaseURL: srv.URL, Method: "GET"}, model.AuthConfig{})
	require.NoError(t, err)
	assert.Nil(t, result.Warning)
	assert.Empty(t, result.LogRecordID)
}

func TestProbeService_TransportFailureIsLogged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	target := srv.URL
	srv.Close()

	store := memory.New()
	probe := NewProbeService(newTestExecutor(ExecutorConfig{}), NewLogEmitter(store.RequestLogs(), discardLogger()), discardLogger())

	result, err := probe.Execute(context.Background(), "sub-1", model.RequestDescription{BaseURL: target, Path: "/x", Method: "GET"}, model.AuthConfig{})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Outcome.Status)

	records, err := store.RequestLogs().ListBySubscriptions(context.Background(), []string{"sub-1"}, time.Time{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 0, records[0].Status())
	require.NotNil(t, records[0].Error)
	assert.Equal(t, result.Outcome.ErrorMessage, *records[0].Error)
}

func TestRedactedTarget(t *testing.T) {
	assert.Equal(t, "https://api.x.com/users", redactedTarget("https://api.x.com/users?api_key=secret"))
}
