package service

import (
	"net/url"
	"strings"

	"github.com/suar-net/suar-probe/internal/model"
)

type authStrategy func(spec *model.RequestSpec, auth model.AuthConfig)

var authStrategies = map[model.AuthType]authStrategy{
	model.AuthTypeNone:   func(*model.RequestSpec, model.AuthConfig) {},
	model.AuthTypeAPIKey: applyAPIKey,
	model.AuthTypeBearer: applyBearer,
}

// ApplyAuth returns a copy of spec with the credential described by auth
// injected. It runs after the builder so the credential wins over user input
// with the same key. The input spec is never mutated.
func ApplyAuth(spec model.RequestSpec, auth model.AuthConfig) (model.RequestSpec, error) {
	authType := auth.Type
	if authType == "" {
		authType = model.AuthTypeNone
	}
	strategy, ok := authStrategies[authType]
	if !ok {
		return model.RequestSpec{}, newValidationError("auth.type", "unsupported auth type: %s", auth.Type)
	}
	if authType != model.AuthTypeNone && auth.Secret == "" {
		return model.RequestSpec{}, newValidationError("auth.secret", "secret is required for %s auth", authType)
	}
	if authType == model.AuthTypeAPIKey {
		switch auth.Location {
		case "", model.AuthLocationHeader, model.AuthLocationQuery:
		default:
			return model.RequestSpec{}, newValidationError("auth.location", "unsupported location: %s", auth.Location)
		}
	}

	out := spec.Clone()
	strategy(&out, auth)
	return out, nil
}

func applyAPIKey(spec *model.RequestSpec, auth model.AuthConfig) {
	name := auth.KeyName
	if name == "" {
		name = model.DefaultAPIKeyName
	}
	if auth.Location == model.AuthLocationQuery {
		spec.URL = appendQuery(withoutQueryKey(spec.URL, name), url.QueryEscape(name)+"="+url.QueryEscape(auth.Secret))
		return
	}
	setHeader(spec.Headers, name, auth.Secret)
}

func applyBearer(spec *model.RequestSpec, auth model.AuthConfig) {
	setHeader(spec.Headers, "Authorization", "Bearer "+auth.Secret)
}

// withoutQueryKey drops every query pair named name, keeping the order and
// encoding of the rest.
func withoutQueryKey(rawURL, name string) string {
	base, query, ok := strings.Cut(rawURL, "?")
	if !ok {
		return rawURL
	}
	var kept []string
	for _, pair := range strings.Split(query, "&") {
		key, _, _ := strings.Cut(pair, "=")
		if k, err := url.QueryUnescape(key); err == nil && k == name {
			continue
		}
		kept = append(kept, pair)
	}
	if len(kept) == 0 {
		return base
	}
	return base + "?" + strings.Join(kept, "&")
}

// setHeader overwrites every key that differs from name only in case, since
// they collapse into one header on the wire.
func setHeader(headers map[string]string, name, value string) {
	for k := range headers {
		if strings.EqualFold(k, name) {
			delete(headers, k)
		}
	}
	headers[name] = value
}
