package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// KeyValue is one user-entered row of a query-parameter or header table.
type KeyValue struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// RequestDescription is the logical request a caller wants to probe, before any
// normalization or auth injection.
type RequestDescription struct {
	BaseURL     string
	Path        string
	Method      string
	QueryParams []KeyValue
	Headers     []KeyValue
	RawBody     string
	Timeout     time.Duration
}

type BodyKind string

const (
	BodyKindJSON BodyKind = "json"
	BodyKindText BodyKind = "text"
)

// RequestBody is an outbound payload in its transport form. Data holds compact
// JSON text when Kind is BodyKindJSON and the verbatim input otherwise.
type RequestBody struct {
	Kind BodyKind `json:"kind"`
	Data string   `json:"data"`
}

// RequestSpec is a fully resolved, ready-to-send request.
type RequestSpec struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers"`
	Body    *RequestBody      `json:"body,omitempty"`
	Timeout time.Duration     `json:"-"`
}

// Clone returns a deep copy so transformations never alias the receiver's maps.
func (s RequestSpec) Clone() RequestSpec {
	out := s
	out.Headers = make(map[string]string, len(s.Headers))
	for k, v := range s.Headers {
		out.Headers[k] = v
	}
	if s.Body != nil {
		b := *s.Body
		out.Body = &b
	}
	return out
}

type AuthType string

const (
	AuthTypeNone   AuthType = "none"
	AuthTypeAPIKey AuthType = "apiKey"
	AuthTypeBearer AuthType = "bearer"
)

type AuthLocation string

const (
	AuthLocationHeader AuthLocation = "header"
	AuthLocationQuery  AuthLocation = "query"
)

const DefaultAPIKeyName = "X-API-Key"

// AuthConfig describes how a tested API is authenticated.
type AuthConfig struct {
	Type     AuthType     `json:"type" yaml:"type"`
	KeyName  string       `json:"key_name,omitempty" yaml:"key_name"`
	Location AuthLocation `json:"location,omitempty" yaml:"location"`
	Secret   string       `json:"secret,omitempty" yaml:"secret"`
}

func (a AuthConfig) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("type", string(a.Type)),
		slog.String("key_name", a.KeyName),
		slog.String("location", string(a.Location)),
		slog.String("secret", "***"),
	)
}

// ResponseBody is either parsed JSON or raw text, tagged by Kind.
type ResponseBody struct {
	Kind BodyKind
	JSON json.RawMessage
	Text string
}

func JSONResponseBody(raw []byte) *ResponseBody {
	return &ResponseBody{Kind: BodyKindJSON, JSON: json.RawMessage(raw)}
}

func TextResponseBody(text string) *ResponseBody {
	return &ResponseBody{Kind: BodyKindText, Text: text}
}

// String returns the body as it would appear on the wire.
func (b ResponseBody) String() string {
	if b.Kind == BodyKindJSON {
		return string(b.JSON)
	}
	return b.Text
}

type responseBodyWire struct {
	Kind  BodyKind        `json:"kind"`
	Value json.RawMessage `json:"value"`
}

func (b ResponseBody) MarshalJSON() ([]byte, error) {
	var value json.RawMessage
	switch b.Kind {
	case BodyKindJSON:
		value = b.JSON
		if len(bytes.TrimSpace(value)) == 0 {
			value = json.RawMessage("null")
		}
	case BodyKindText:
		encoded, err := json.Marshal(b.Text)
		if err != nil {
			return nil, err
		}
		value = encoded
	default:
		return nil, fmt.Errorf("unknown response body kind %q", b.Kind)
	}
	return json.Marshal(responseBodyWire{Kind: b.Kind, Value: value})
}

func (b *ResponseBody) UnmarshalJSON(data []byte) error {
	var wire responseBodyWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	switch wire.Kind {
	case BodyKindJSON:
		*b = ResponseBody{Kind: BodyKindJSON, JSON: append(json.RawMessage(nil), wire.Value...)}
	case BodyKindText:
		var text string
		if err := json.Unmarshal(wire.Value, &text); err != nil {
			return fmt.Errorf("decode text body: %w", err)
		}
		*b = ResponseBody{Kind: BodyKindText, Text: text}
	default:
		return fmt.Errorf("unknown response body kind %q", wire.Kind)
	}
	return nil
}

// Outcome is the uniform result of executing a RequestSpec. Status 0 marks a
// transport-level failure; ErrorMessage then carries the cause.
type Outcome struct {
	Status          int               `json:"status"`
	StatusText      string            `json:"status_text"`
	ResponseHeaders map[string]string `json:"response_headers"`
	ResponseBody    *ResponseBody     `json:"response_body,omitempty"`
	ElapsedMs       int64             `json:"elapsed_ms"`
	ErrorMessage    string            `json:"error_message,omitempty"`
	StartedAt       time.Time         `json:"started_at"`
	SizeBytes       int64             `json:"size_bytes"`
}

func (o Outcome) IsTransportFailure() bool {
	return o.Status == 0
}

func (o Outcome) IsSuccess() bool {
	return o.Status >= 200 && o.Status < 300
}
