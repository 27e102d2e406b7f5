package service

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suar-net/suar-probe/internal/model"
)

func TestBuildRequestSpec_GetWithQuery(t *testing.T) {
	spec, err := BuildRequestSpec(model.RequestDescription{
		BaseURL: "https://api.x.com/",
		Path:    "/users",
		Method:  "get",
		QueryParams: []model.KeyValue{
			{Key: "page", Value: "2"},
			{Key: "q", Value: "a b"},
			{Key: "", Value: "x"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "GET", spec.Method)
	assert.Equal(t, "https://api.x.com/users?page=2&q=a+b", spec.URL)
	assert.Empty(t, spec.Headers)
	assert.Nil(t, spec.Body)
}

func TestBuildRequestSpec_PostJSONAddsContentType(t *testing.T) {
	spec, err := BuildRequestSpec(model.RequestDescription{
		BaseURL: "https://api.x.com",
		Path:    "items",
		Method:  "POST",
		RawBody: `{"name": "x",  "n": 1}`,
	})
	require.NoError(t, err)

	assert.Equal(t, "https://api.x.com/items", spec.URL)
	require.NotNil(t, spec.Body)
	assert.Equal(t, model.BodyKindJSON, spec.Body.Kind)
	assert.JSONEq(t, `{"name":"x","n":1}`, spec.Body.Data)
	assert.Equal(t, "application/json", spec.Headers["Content-Type"])
}

func TestBuildRequestSpec_KeepsUserContentType(t *testing.T) {
	spec, err := BuildRequestSpec(model.RequestDescription{
		BaseURL: "https://api.x.com",
		Method:  "PUT",
		Headers: []model.KeyValue{{Key: "content-type", Value: "application/vnd.api+json"}},
		RawBody: `{"a":1}`,
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"content-type": "application/vnd.api+json"}, spec.Headers)
}

func TestBuildRequestSpec_TextBody(t *testing.T) {
	spec, err := BuildRequestSpec(model.RequestDescription{
		BaseURL: "https://api.x.com",
		Method:  "PATCH",
		RawBody: "not json {",
	})
	require.NoError(t, err)

	require.NotNil(t, spec.Body)
	assert.Equal(t, model.BodyKindText, spec.Body.Kind)
	assert.Equal(t, "not json {", spec.Body.Data)
	_, hasContentType := spec.Headers["Content-Type"]
	assert.False(t, hasContentType)
}

func TestBuildRequestSpec_BodyIgnoredForGetAndDelete(t *testing.T) {
	for _, method := range []string{"GET", "DELETE"} {
		spec, err := BuildRequestSpec(model.RequestDescription{
			BaseURL: "https://api.x.com",
			Method:  method,
			RawBody: `{"a":1}`,
		})
		require.NoError(t, err)
		assert.Nil(t, spec.Body, method)
		assert.Empty(t, spec.Headers, method)
	}
}

func TestBuildRequestSpec_HeadersLastWriteWins(t *testing.T) {
	spec, err := BuildRequestSpec(model.RequestDescription{
		BaseURL: "https://api.x.com",
		Method:  "GET",
		Headers: []model.KeyValue{
			{Key: "X-Trace", Value: "1"},
			{Key: "X-Empty", Value: ""},
			{Key: "X-Trace", Value: "2"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"X-Trace": "2"}, spec.Headers)
}

func TestBuildRequestSpec_EmptyPath(t *testing.T) {
	spec, err := BuildRequestSpec(model.RequestDescription{
		BaseURL:     "https://api.x.com/v1/",
		Method:      "GET",
		QueryParams: []model.KeyValue{{Key: "page", Value: "1"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://api.x.com/v1/?page=1", spec.URL)

	spec, err = BuildRequestSpec(model.RequestDescription{BaseURL: "https://api.x.com", Method: "GET"})
	require.NoError(t, err)
	assert.Equal(t, "https://api.x.com/", spec.URL)
}

func TestBuildRequestSpec_BaseURLWithQuery(t *testing.T) {
	spec, err := BuildRequestSpec(model.RequestDescription{
		BaseURL: "https://api.x.com/v1?tenant=a",
		Path:    "/users",
		Method:  "GET",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://api.x.com/v1/users?tenant=a", spec.URL)

	spec, err = BuildRequestSpec(model.RequestDescription{
		BaseURL:     "https://api.x.com/v1/?tenant=a",
		Path:        "users",
		Method:      "GET",
		QueryParams: []model.KeyValue{{Key: "page", Value: "2"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://api.x.com/v1/users?tenant=a&page=2", spec.URL)

	parsed, err := url.Parse(spec.URL)
	require.NoError(t, err)
	assert.Equal(t, "/v1/users", parsed.Path)
	assert.Equal(t, "a", parsed.Query().Get("tenant"))
}

func TestBuildRequestSpec_RejectsInvalidInput(t *testing.T) {
	cases := []struct {
		name  string
		desc  model.RequestDescription
		field string
	}{
		{"unsupported method", model.RequestDescription{BaseURL: "https://x.com", Method: "HEAD"}, "method"},
		{"empty method", model.RequestDescription{BaseURL: "https://x.com"}, "method"},
		{"empty url", model.RequestDescription{Method: "GET"}, "base_url"},
		{"bad scheme", model.RequestDescription{BaseURL: "ftp://x.com", Method: "GET"}, "base_url"},
		{"relative url", model.RequestDescription{BaseURL: "/only/path", Method: "GET"}, "base_url"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := BuildRequestSpec(tc.desc)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput))

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tc.field, vErr.Field)
		})
	}
}

func TestBuildRequestSpec_Idempotent(t *testing.T) {
	desc := model.RequestDescription{
		BaseURL:     "https://api.x.com",
		Path:        "/search",
		Method:      "post",
		QueryParams: []model.KeyValue{{Key: "q", Value: "ü&="}},
		Headers:     []model.KeyValue{{Key: "X-A", Value: "1"}},
		RawBody:     `[1, 2, 3]`,
	}
	first, err := BuildRequestSpec(desc)
	require.NoError(t, err)
	second, err := BuildRequestSpec(desc)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestJoinURL(t *testing.T) {
	cases := []struct{ base, path, want string }{
		{"https://a.com", "users", "https://a.com/users"},
		{"https://a.com/", "/users", "https://a.com/users"},
		{"https://a.com//", "//users", "https://a.com/users"},
		{"https://a.com", "", "https://a.com/"},
		{"https://a.com/v1?t=a", "/users", "https://a.com/v1/users?t=a"},
		{"https://a.com/v1/?", "users", "https://a.com/v1/users"},
		{"https://a.com/v1#top", "users", "https://a.com/v1/users"},
		{"https://u:p@a.com/a%2Fb", "c", "https://u:p@a.com/a%2Fb/c"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, JoinURL(tc.base, tc.path), "%s + %s", tc.base, tc.path)
	}
}

func TestEncodeQuery(t *testing.T) {
	got := EncodeQuery([]model.KeyValue{
		{Key: "b", Value: "2"},
		{Key: "a", Value: "x/y"},
		{Key: "skip", Value: ""},
	})
	assert.Equal(t, "b=2&a=x%2Fy", got)
	assert.Equal(t, "", EncodeQuery(nil))
}

func TestIsAllowedMethod(t *testing.T) {
	for _, m := range []string{"GET", "post", "Put", "PATCH", "delete"} {
		assert.True(t, IsAllowedMethod(m), m)
	}
	for _, m := range []string{"HEAD", "OPTIONS", "TRACE", ""} {
		assert.False(t, IsAllowedMethod(m), m)
	}
}
