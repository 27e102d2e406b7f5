package model

import "time"

// DTOAuth is the auth block of an incoming execute request.
type DTOAuth struct {
	Type     string `json:"type" yaml:"type" validate:"omitempty,oneof=none apiKey bearer"`
	KeyName  string `json:"key_name" yaml:"key_name"`
	Location string `json:"location" yaml:"location" validate:"omitempty,oneof=header query"`
	Secret   string `json:"secret" yaml:"secret"`
}

// DTOExecuteRequest is the JSON (or YAML, from the CLI) description of a probe.
type DTOExecuteRequest struct {
	SubscriptionID string     `json:"subscription_id" yaml:"subscription_id"`
	BaseURL        string     `json:"base_url" yaml:"base_url" validate:"required,url"`
	Path           string     `json:"path" yaml:"path"`
	Method         string     `json:"method" yaml:"method" validate:"required,httpmethod"`
	QueryParams    []KeyValue `json:"query_params" yaml:"query_params"`
	Headers        []KeyValue `json:"headers" yaml:"headers"`
	Body           string     `json:"body,omitempty" yaml:"body"`
	Auth           DTOAuth    `json:"auth" yaml:"auth"`
	Timeout        int        `json:"timeout" yaml:"timeout" validate:"gte=0"` // ms, 0 means default, clamped to PROBE_MAX_TIMEOUT
}

func (d DTOExecuteRequest) Description() RequestDescription {
	return RequestDescription{
		BaseURL:     d.BaseURL,
		Path:        d.Path,
		Method:      d.Method,
		QueryParams: d.QueryParams,
		Headers:     d.Headers,
		RawBody:     d.Body,
		Timeout:     time.Duration(d.Timeout) * time.Millisecond,
	}
}

func (d DTOExecuteRequest) AuthConfig() AuthConfig {
	return AuthConfig{
		Type:     AuthType(d.Auth.Type),
		KeyName:  d.Auth.KeyName,
		Location: AuthLocation(d.Auth.Location),
		Secret:   d.Auth.Secret,
	}
}

type DTOExecuteResponse struct {
	Outcome     Outcome `json:"outcome"`
	LogRecordID string  `json:"log_record_id,omitempty"`
	Warning     string  `json:"warning,omitempty"`
}

type DTOCreateSubscriptionRequest struct {
	APIID  string `json:"api_id" validate:"required"`
	UserID string `json:"user_id" validate:"required"`
	Plan   string `json:"plan"`
}
