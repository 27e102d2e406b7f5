package service

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/suar-net/suar-probe/internal/model"
)

// ExecuteResult pairs the Outcome with the side-channel result of logging it.
type ExecuteResult struct {
	Outcome     model.Outcome
	LogRecordID string
	Warning     *PersistenceWarning
}

type ProbeService struct {
	executor *Executor
	emitter  *LogEmitter
	logger   *slog.Logger
}

// NewProbeService wires builder, auth, executor and, when emitter is non-nil,
// request logging.
func NewProbeService(executor *Executor, emitter *LogEmitter, logger *slog.Logger) *ProbeService {
	return &ProbeService{executor: executor, emitter: emitter, logger: logger}
}

// Execute builds, authenticates, dispatches and logs one probe. Only a
// ValidationError is returned as an error, and always before any network call.
func (s *ProbeService) Execute(ctx context.Context, subscriptionID string, desc model.RequestDescription, auth model.AuthConfig) (*ExecuteResult, error) {
	spec, err := BuildRequestSpec(desc)
	if err != nil {
		return nil, err
	}
	spec, err = ApplyAuth(spec, auth)
	if err != nil {
		return nil, err
	}

	outcome := s.executor.Execute(ctx, spec)
	s.logger.InfoContext(ctx, "probe executed",
		slog.String("method", spec.Method),
		slog.String("target", redactedTarget(spec.URL)),
		slog.Int("status", outcome.Status),
		slog.Int64("elapsed_ms", outcome.ElapsedMs),
	)

	result := &ExecuteResult{Outcome: outcome}
	if subscriptionID == "" || s.emitter == nil {
		return result, nil
	}

	record, warning := s.emitter.Emit(ctx, subscriptionID, spec, outcome)
	if warning != nil {
		result.Warning = warning
		return result, nil
	}
	result.LogRecordID = record.ID
	return result, nil
}

func (s *ProbeService) ProcessRequest(ctx context.Context, dto *model.DTOExecuteRequest) (*model.DTOExecuteResponse, error) {
	result, err := s.Execute(ctx, dto.SubscriptionID, dto.Description(), dto.AuthConfig())
	if err != nil {
		return nil, err
	}
	resp := &model.DTOExecuteResponse{
		Outcome:     result.Outcome,
		LogRecordID: result.LogRecordID,
	}
	if result.Warning != nil {
		resp.Warning = result.Warning.Error()
	}
	return resp, nil
}

// redactedTarget drops the query string, which may carry an API key.
func redactedTarget(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return parsed.Scheme + "://" + parsed.Host + parsed.Path
}
