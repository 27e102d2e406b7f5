package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/suar-net/suar-probe/internal/model"
	"github.com/suar-net/suar-probe/internal/repository"
)

type requestLogRepository struct {
	db *sql.DB
}

var _ repository.IRequestLogRepository = (*requestLogRepository)(nil)

// Insert appends a new request log record.
func (r *requestLogRepository) Insert(ctx context.Context, record model.RequestLogRecord) (string, error) {
	if err := record.Validate(); err != nil {
		return "", err
	}

	requestHeaders, err := marshalJSONNullable(record.RequestHeaders)
	if err != nil {
		return "", fmt.Errorf("marshal request headers: %w", err)
	}
	requestQuery, err := marshalJSONNullable(record.RequestQuery)
	if err != nil {
		return "", fmt.Errorf("marshal request query: %w", err)
	}
	responseHeaders, err := marshalJSONNullable(record.ResponseHeaders)
	if err != nil {
		return "", fmt.Errorf("marshal response headers: %w", err)
	}

	var bodyKind, body any
	if record.ResponseBody != nil {
		bodyKind = string(record.ResponseBody.Kind)
		body = record.ResponseBody.String()
	}

	var statusCode, responseTime any
	if record.StatusCode != nil {
		statusCode = *record.StatusCode
	}
	if record.ResponseTimeMs != nil {
		responseTime = *record.ResponseTimeMs
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO request_logs (
			id, subscription_id, endpoint_path, method, request_headers, request_query, request_body,
			requested_at, status_code, response_time_ms, response_headers, response_body_kind, response_body, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		record.ID,
		record.SubscriptionID,
		record.EndpointPath,
		record.Method,
		requestHeaders,
		requestQuery,
		nullableStringPtr(record.RequestBody),
		formatTime(record.Timestamp),
		statusCode,
		responseTime,
		responseHeaders,
		bodyKind,
		body,
		nullableStringPtr(record.Error),
	)
	if err != nil {
		return "", fmt.Errorf("insert request log: %w", err)
	}
	return record.ID, nil
}

// ListBySubscriptions retrieves the request history of a set of subscriptions.
func (r *requestLogRepository) ListBySubscriptions(ctx context.Context, subscriptionIDs []string, since time.Time) ([]model.RequestLogRecord, error) {
	if len(subscriptionIDs) == 0 {
		return []model.RequestLogRecord{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(subscriptionIDs)), ",")
	args := make([]any, 0, len(subscriptionIDs)+1)
	for _, id := range subscriptionIDs {
		args = append(args, id)
	}
	args = append(args, formatTime(since))

	query := `
		SELECT id, subscription_id, endpoint_path, method, request_headers, request_query, request_body,
			requested_at, status_code, response_time_ms, response_headers, response_body_kind, response_body, error
		FROM request_logs
		WHERE subscription_id IN (` + placeholders + `) AND requested_at >= ?
		ORDER BY requested_at ASC, id ASC;`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list request logs: %w", err)
	}
	defer rows.Close()

	records := []model.RequestLogRecord{}
	for rows.Next() {
		var (
			rec             model.RequestLogRecord
			requestHeaders  sql.NullString
			requestQuery    sql.NullString
			requestBody     sql.NullString
			requestedAt     string
			statusCode      sql.NullInt64
			responseTime    sql.NullInt64
			responseHeaders sql.NullString
			bodyKind        sql.NullString
			body            sql.NullString
			errMsg          sql.NullString
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.SubscriptionID,
			&rec.EndpointPath,
			&rec.Method,
			&requestHeaders,
			&requestQuery,
			&requestBody,
			&requestedAt,
			&statusCode,
			&responseTime,
			&responseHeaders,
			&bodyKind,
			&body,
			&errMsg,
		); err != nil {
			return nil, fmt.Errorf("scan request log: %w", err)
		}

		if rec.RequestHeaders, err = unmarshalJSONMap(requestHeaders); err != nil {
			return nil, err
		}
		if rec.RequestQuery, err = unmarshalJSONMap(requestQuery); err != nil {
			return nil, err
		}
		if rec.ResponseHeaders, err = unmarshalJSONMap(responseHeaders); err != nil {
			return nil, err
		}
		if rec.Timestamp, err = parseTime(requestedAt); err != nil {
			return nil, err
		}
		rec.RequestBody = parseNullableStringPtr(requestBody)
		rec.Error = parseNullableStringPtr(errMsg)
		if statusCode.Valid {
			v := int(statusCode.Int64)
			rec.StatusCode = &v
		}
		if responseTime.Valid {
			v := responseTime.Int64
			rec.ResponseTimeMs = &v
		}
		if bodyKind.Valid {
			rec.ResponseBody = decodeResponseBody(model.BodyKind(bodyKind.String), body.String)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate request logs: %w", err)
	}
	return records, nil
}

func decodeResponseBody(kind model.BodyKind, data string) *model.ResponseBody {
	if kind == model.BodyKindJSON {
		return model.JSONResponseBody([]byte(data))
	}
	return model.TextResponseBody(data)
}
