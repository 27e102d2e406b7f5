package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type contextKey string

const RequestIDKey contextKey = "request_id"

// RedactingHandler masks credential-bearing attributes before they reach the
// wrapped handler and adds the request id carried by the context.
type RedactingHandler struct {
	slog.Handler
}

func New(w io.Writer, level slog.Level, format string) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(&RedactingHandler{Handler: handler})
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

func (h *RedactingHandler) Handle(ctx context.Context, r slog.Record) error {
	newRecord := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	if reqID, ok := ctx.Value(RequestIDKey).(string); ok {
		newRecord.AddAttrs(slog.String("request_id", reqID))
	}
	r.Attrs(func(a slog.Attr) bool {
		newRecord.AddAttrs(redactAttr(a))
		return true
	})
	return h.Handler.Handle(ctx, newRecord)
}

func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = redactAttr(a)
	}
	return &RedactingHandler{Handler: h.Handler.WithAttrs(redacted)}
}

func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{Handler: h.Handler.WithGroup(name)}
}

var secretKeys = map[string]bool{
	"authorization":       true,
	"proxy-authorization": true,
	"x-api-key":           true,
	"api_key":             true,
	"apikey":              true,
	"secret":              true,
	"token":               true,
	"password":            true,
	"cookie":              true,
	"set-cookie":          true,
}

func redactAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()
	key := strings.ToLower(a.Key)

	if key == "authorization" {
		val := a.Value.String()
		if scheme, _, ok := strings.Cut(val, " "); ok {
			return slog.String(a.Key, scheme+" ***")
		}
		return slog.String(a.Key, "***")
	}
	if secretKeys[key] {
		return slog.String(a.Key, "***")
	}

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		args := make([]any, len(attrs))
		for i, attr := range attrs {
			args[i] = redactAttr(attr)
		}
		return slog.Group(a.Key, args...)
	}

	return a
}
