package model

import (
	"fmt"
	"strings"
	"time"
)

// Subscription links a user to a tested API; its ID scopes request logs.
type Subscription struct {
	ID        string    `json:"id"`
	APIID     string    `json:"api_id"`
	UserID    string    `json:"user_id"`
	Plan      string    `json:"plan"`
	CreatedAt time.Time `json:"created_at"`
}

func (s Subscription) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("id is required")
	}
	if strings.TrimSpace(s.APIID) == "" {
		return fmt.Errorf("api_id is required")
	}
	if strings.TrimSpace(s.UserID) == "" {
		return fmt.Errorf("user_id is required")
	}
	if s.CreatedAt.IsZero() {
		return fmt.Errorf("created_at is required")
	}
	return nil
}

// RequestLogRecord is the immutable record of one executed or attempted request.
// A nil or zero StatusCode means no response was received.
type RequestLogRecord struct {
	ID              string            `json:"id"`
	SubscriptionID  string            `json:"subscription_id"`
	EndpointPath    string            `json:"endpoint_path"`
	Method          string            `json:"method"`
	RequestHeaders  map[string]string `json:"request_headers"`
	RequestQuery    map[string]string `json:"request_query"`
	RequestBody     *string           `json:"request_body"`
	Timestamp       time.Time         `json:"timestamp"`
	StatusCode      *int              `json:"status_code"`
	ResponseTimeMs  *int64            `json:"response_time_ms"`
	ResponseHeaders map[string]string `json:"response_headers"`
	ResponseBody    *ResponseBody     `json:"response_body"`
	Error           *string           `json:"error"`
}

func (r RequestLogRecord) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("id is required")
	}
	if strings.TrimSpace(r.SubscriptionID) == "" {
		return fmt.Errorf("subscription_id is required")
	}
	if strings.TrimSpace(r.Method) == "" {
		return fmt.Errorf("method is required")
	}
	if r.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}
	if r.StatusCode != nil && *r.StatusCode < 0 {
		return fmt.Errorf("status_code must be zero or positive")
	}
	if r.ResponseTimeMs != nil && *r.ResponseTimeMs < 0 {
		return fmt.Errorf("response_time_ms must be zero or positive")
	}
	return nil
}

// Status returns the recorded status code, treating a missing value as 0.
func (r RequestLogRecord) Status() int {
	if r.StatusCode == nil {
		return 0
	}
	return *r.StatusCode
}

// Latency returns the recorded response time, treating a missing value as 0.
func (r RequestLogRecord) Latency() int64 {
	if r.ResponseTimeMs == nil {
		return 0
	}
	return *r.ResponseTimeMs
}
