package service

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/suar-net/suar-probe/internal/model"
)

var allowedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

var bodyMethods = map[string]bool{
	http.MethodPost:  true,
	http.MethodPut:   true,
	http.MethodPatch: true,
}

// IsAllowedMethod reports whether method belongs to the closed set GET, POST,
// PUT, PATCH and DELETE. Matching is case-insensitive.
func IsAllowedMethod(method string) bool {
	return allowedMethods[strings.ToUpper(method)]
}

// BuildRequestSpec resolves a logical request description into an executable
// RequestSpec. It performs no I/O. Query and header rows with an empty key or
// value are dropped rather than rejected.
func BuildRequestSpec(desc model.RequestDescription) (model.RequestSpec, error) {
	method := strings.ToUpper(strings.TrimSpace(desc.Method))
	if !allowedMethods[method] {
		return model.RequestSpec{}, newValidationError("method", "invalid or unsupported HTTP method: %s", desc.Method)
	}

	base, err := validateBaseURL(desc.BaseURL)
	if err != nil {
		return model.RequestSpec{}, err
	}

	fullURL := JoinURL(base, desc.Path)
	if query := EncodeQuery(desc.QueryParams); query != "" {
		fullURL = appendQuery(fullURL, query)
	}

	headers := make(map[string]string, len(desc.Headers))
	for _, h := range desc.Headers {
		if h.Key == "" || h.Value == "" {
			continue
		}
		headers[h.Key] = h.Value
	}

	spec := model.RequestSpec{
		Method:  method,
		URL:     fullURL,
		Headers: headers,
		Timeout: desc.Timeout,
	}

	if bodyMethods[method] && desc.RawBody != "" {
		spec.Body = buildBody(desc.RawBody)
		if spec.Body.Kind == model.BodyKindJSON && !hasHeader(headers, "Content-Type") {
			headers["Content-Type"] = "application/json"
		}
	}

	return spec, nil
}

func validateBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", newValidationError("base_url", "URL cannot be empty")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", newValidationError("base_url", "failed to parse URL: %v", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", newValidationError("base_url", "invalid URL scheme: %q. Only 'http' and 'https' are allowed", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", newValidationError("base_url", "URL must be absolute")
	}
	return raw, nil
}

// JoinURL joins base and path with exactly one slash between them. A query
// already on base is kept and follows the joined path.
func JoinURL(base, path string) string {
	u, err := url.Parse(base)
	if err != nil {
		return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
	}
	joined := strings.TrimRight(u.EscapedPath(), "/") + "/" + strings.TrimLeft(path, "/")
	query := u.RawQuery

	u.Path, u.RawPath = "", ""
	u.RawQuery, u.ForceQuery = "", false
	u.Fragment, u.RawFragment = "", ""

	out := u.String() + joined
	if query != "" {
		out = appendQuery(out, query)
	}
	return out
}

// EncodeQuery percent-encodes the rows whose key and value are both non-empty
// and joins them with '&' in input order.
func EncodeQuery(params []model.KeyValue) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		if p.Key == "" || p.Value == "" {
			continue
		}
		parts = append(parts, url.QueryEscape(p.Key)+"="+url.QueryEscape(p.Value))
	}
	return strings.Join(parts, "&")
}

func appendQuery(rawURL, query string) string {
	if strings.Contains(rawURL, "?") {
		return rawURL + "&" + query
	}
	return rawURL + "?" + query
}

func buildBody(raw string) *model.RequestBody {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(raw)); err != nil {
		return &model.RequestBody{Kind: model.BodyKindText, Data: raw}
	}
	return &model.RequestBody{Kind: model.BodyKindJSON, Data: buf.String()}
}

func hasHeader(headers map[string]string, name string) bool {
	for k := range headers {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}
