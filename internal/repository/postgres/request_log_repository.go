package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/suar-net/suar-probe/internal/model"
	"github.com/suar-net/suar-probe/internal/repository"
)

type requestLogRepository struct {
	pool *pgxpool.Pool
}

var _ repository.IRequestLogRepository = (*requestLogRepository)(nil)

func (r *requestLogRepository) Insert(ctx context.Context, record model.RequestLogRecord) (string, error) {
	if err := record.Validate(); err != nil {
		return "", err
	}

	requestHeaders, err := jsonbOrNull(record.RequestHeaders)
	if err != nil {
		return "", fmt.Errorf("marshal request headers: %w", err)
	}
	requestQuery, err := jsonbOrNull(record.RequestQuery)
	if err != nil {
		return "", fmt.Errorf("marshal request query: %w", err)
	}
	responseHeaders, err := jsonbOrNull(record.ResponseHeaders)
	if err != nil {
		return "", fmt.Errorf("marshal response headers: %w", err)
	}

	var bodyKind, body *string
	if record.ResponseBody != nil {
		kind := string(record.ResponseBody.Kind)
		text := record.ResponseBody.String()
		bodyKind, body = &kind, &text
	}

	_, err = r.pool.Exec(ctx, `INSERT INTO request_logs (
		id, subscription_id, endpoint_path, method, request_headers, request_query, request_body,
		requested_at, status_code, response_time_ms, response_headers, response_body_kind, response_body, error
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		record.ID,
		record.SubscriptionID,
		record.EndpointPath,
		record.Method,
		requestHeaders,
		requestQuery,
		record.RequestBody,
		record.Timestamp.UTC(),
		record.StatusCode,
		record.ResponseTimeMs,
		responseHeaders,
		bodyKind,
		body,
		record.Error,
	)
	if err != nil {
		return "", fmt.Errorf("insert request log: %w", err)
	}
	return record.ID, nil
}

func (r *requestLogRepository) ListBySubscriptions(ctx context.Context, subscriptionIDs []string, since time.Time) ([]model.RequestLogRecord, error) {
	if len(subscriptionIDs) == 0 {
		return []model.RequestLogRecord{}, nil
	}

	rows, err := r.pool.Query(ctx, `SELECT id, subscription_id, endpoint_path, method, request_headers, request_query, request_body,
			requested_at, status_code, response_time_ms, response_headers, response_body_kind, response_body, error
		FROM request_logs
		WHERE subscription_id = ANY($1) AND requested_at >= $2
		ORDER BY requested_at ASC, id ASC`, subscriptionIDs, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("list request logs: %w", err)
	}
	defer rows.Close()

	records := make([]model.RequestLogRecord, 0)
	for rows.Next() {
		var (
			rec             model.RequestLogRecord
			requestHeaders  []byte
			requestQuery    []byte
			responseHeaders []byte
			bodyKind        *string
			body            *string
			statusCode      *int32
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.SubscriptionID,
			&rec.EndpointPath,
			&rec.Method,
			&requestHeaders,
			&requestQuery,
			&rec.RequestBody,
			&rec.Timestamp,
			&statusCode,
			&rec.ResponseTimeMs,
			&responseHeaders,
			&bodyKind,
			&body,
			&rec.Error,
		); err != nil {
			return nil, fmt.Errorf("scan request log: %w", err)
		}

		if rec.RequestHeaders, err = decodeMap(requestHeaders); err != nil {
			return nil, err
		}
		if rec.RequestQuery, err = decodeMap(requestQuery); err != nil {
			return nil, err
		}
		if rec.ResponseHeaders, err = decodeMap(responseHeaders); err != nil {
			return nil, err
		}
		if statusCode != nil {
			v := int(*statusCode)
			rec.StatusCode = &v
		}
		if bodyKind != nil {
			var data string
			if body != nil {
				data = *body
			}
			if model.BodyKind(*bodyKind) == model.BodyKindJSON {
				rec.ResponseBody = model.JSONResponseBody([]byte(data))
			} else {
				rec.ResponseBody = model.TextResponseBody(data)
			}
		}
		rec.Timestamp = rec.Timestamp.UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate request logs: %w", err)
	}
	return records, nil
}
