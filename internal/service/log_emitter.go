package service

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/suar-net/suar-probe/internal/model"
	"github.com/suar-net/suar-probe/internal/repository"
)

const defaultPersistTimeout = 5 * time.Second

// LogEmitter turns one executed attempt into one persisted RequestLogRecord.
type LogEmitter struct {
	repo    repository.IRequestLogRepository
	logger  *slog.Logger
	newID   func() string
	timeout time.Duration
}

func NewLogEmitter(repo repository.IRequestLogRepository, logger *slog.Logger) *LogEmitter {
	return &LogEmitter{
		repo:    repo,
		logger:  logger,
		newID:   uuid.NewString,
		timeout: defaultPersistTimeout,
	}
}

// Emit inserts the record for (spec, outcome). The insert is detached from
// ctx cancellation so an aborted probe is still logged. A store failure comes
// back as a warning; the caller keeps its Outcome either way.
func (e *LogEmitter) Emit(ctx context.Context, subscriptionID string, spec model.RequestSpec, outcome model.Outcome) (model.RequestLogRecord, *PersistenceWarning) {
	record := NewRequestLogRecord(e.newID(), subscriptionID, spec, outcome)

	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.timeout)
	defer cancel()

	if _, err := e.repo.Insert(persistCtx, record); err != nil {
		warning := &PersistenceWarning{Err: err}
		e.logger.WarnContext(ctx, "failed to persist request log",
			slog.String("record_id", record.ID),
			slog.String("subscription_id", subscriptionID),
			slog.String("error", err.Error()),
		)
		return record, warning
	}
	return record, nil
}

// NewRequestLogRecord builds the durable record of one attempt. Headers and
// query are recorded as sent, credentials included, for the requester's own view.
func NewRequestLogRecord(id, subscriptionID string, spec model.RequestSpec, outcome model.Outcome) model.RequestLogRecord {
	endpointPath := "/"
	query := map[string]string{}
	if parsed, err := url.Parse(spec.URL); err == nil {
		if parsed.Path != "" {
			endpointPath = parsed.Path
		}
		for key, values := range parsed.Query() {
			if len(values) > 0 {
				query[key] = values[len(values)-1]
			}
		}
	}

	headers := make(map[string]string, len(spec.Headers))
	for k, v := range spec.Headers {
		headers[k] = v
	}
	responseHeaders := make(map[string]string, len(outcome.ResponseHeaders))
	for k, v := range outcome.ResponseHeaders {
		responseHeaders[k] = v
	}

	timestamp := outcome.StartedAt
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	status := outcome.Status
	elapsed := outcome.ElapsedMs
	record := model.RequestLogRecord{
		ID:              id,
		SubscriptionID:  subscriptionID,
		EndpointPath:    endpointPath,
		Method:          spec.Method,
		RequestHeaders:  headers,
		RequestQuery:    query,
		Timestamp:       timestamp.UTC(),
		StatusCode:      &status,
		ResponseTimeMs:  &elapsed,
		ResponseHeaders: responseHeaders,
		ResponseBody:    outcome.ResponseBody,
	}
	if spec.Body != nil {
		body := spec.Body.Data
		record.RequestBody = &body
	}
	if outcome.ErrorMessage != "" {
		msg := outcome.ErrorMessage
		record.Error = &msg
	}
	return record
}
