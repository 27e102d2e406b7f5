// Package memory is the mock record store. It keeps everything in process and,
// when given a file path, mirrors its contents to a JSON file after every write
// so a local session survives restarts.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/suar-net/suar-probe/internal/model"
	"github.com/suar-net/suar-probe/internal/repository"
)

type snapshot struct {
	Subscriptions []model.Subscription     `json:"subscriptions"`
	RequestLogs   []model.RequestLogRecord `json:"request_logs"`
}

type Store struct {
	mu   sync.RWMutex
	path string
	data snapshot
}

var _ repository.IRepository = (*Store)(nil)

// New returns an empty, volatile store.
func New() *Store {
	return &Store{}
}

// Open loads path if it exists and persists every later write to it.
func Open(path string) (*Store, error) {
	s := &Store{path: strings.TrimSpace(path)}
	if s.path == "" {
		return s, nil
	}

	content, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("read store file %s: %w", s.path, err)
	}
	if len(strings.TrimSpace(string(content))) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(content, &s.data); err != nil {
		return nil, fmt.Errorf("decode store file %s: %w", s.path, err)
	}
	return s, nil
}

func (s *Store) RequestLogs() repository.IRequestLogRepository {
	return requestLogRepository{s}
}

func (s *Store) Subscriptions() repository.ISubscriptionRepository {
	return subscriptionRepository{s}
}

func (s *Store) Ping(context.Context) error {
	return nil
}

func (s *Store) Close() error {
	return nil
}

// persistLocked must be called with s.mu held for writing.
func (s *Store) persistLocked() error {
	if s.path == "" {
		return nil
	}
	b, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store file: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create store dir: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write store file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace store file: %w", err)
	}
	return nil
}

type requestLogRepository struct{ s *Store }

func (r requestLogRepository) Insert(_ context.Context, record model.RequestLogRecord) (string, error) {
	if err := record.Validate(); err != nil {
		return "", err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.data.RequestLogs {
		if existing.ID == record.ID {
			return "", fmt.Errorf("insert request log: duplicate id %q", record.ID)
		}
	}
	record.Timestamp = record.Timestamp.UTC()
	r.s.data.RequestLogs = append(r.s.data.RequestLogs, cloneRecord(record))
	if err := r.s.persistLocked(); err != nil {
		r.s.data.RequestLogs = r.s.data.RequestLogs[:len(r.s.data.RequestLogs)-1]
		return "", err
	}
	return record.ID, nil
}

func (r requestLogRepository) ListBySubscriptions(_ context.Context, subscriptionIDs []string, since time.Time) ([]model.RequestLogRecord, error) {
	wanted := make(map[string]bool, len(subscriptionIDs))
	for _, id := range subscriptionIDs {
		wanted[id] = true
	}

	r.s.mu.RLock()
	out := make([]model.RequestLogRecord, 0)
	for _, rec := range r.s.data.RequestLogs {
		if wanted[rec.SubscriptionID] && !rec.Timestamp.Before(since) {
			out = append(out, cloneRecord(rec))
		}
	}
	r.s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

type subscriptionRepository struct{ s *Store }

func (r subscriptionRepository) Create(_ context.Context, sub model.Subscription) error {
	if err := sub.Validate(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.data.Subscriptions {
		if existing.ID == sub.ID {
			return fmt.Errorf("insert subscription: duplicate id %q", sub.ID)
		}
	}
	sub.CreatedAt = sub.CreatedAt.UTC()
	r.s.data.Subscriptions = append(r.s.data.Subscriptions, sub)
	if err := r.s.persistLocked(); err != nil {
		r.s.data.Subscriptions = r.s.data.Subscriptions[:len(r.s.data.Subscriptions)-1]
		return err
	}
	return nil
}

func (r subscriptionRepository) GetByID(_ context.Context, id string) (model.Subscription, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, sub := range r.s.data.Subscriptions {
		if sub.ID == id {
			return sub, nil
		}
	}
	return model.Subscription{}, repository.ErrNotFound
}

func (r subscriptionRepository) ListByAPI(_ context.Context, apiID string) ([]model.Subscription, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]model.Subscription, 0)
	for _, sub := range r.s.data.Subscriptions {
		if sub.APIID == apiID {
			out = append(out, sub)
		}
	}
	return out, nil
}

func cloneRecord(rec model.RequestLogRecord) model.RequestLogRecord {
	out := rec
	out.RequestHeaders = cloneMap(rec.RequestHeaders)
	out.RequestQuery = cloneMap(rec.RequestQuery)
	out.ResponseHeaders = cloneMap(rec.ResponseHeaders)
	out.RequestBody = clonePtr(rec.RequestBody)
	out.StatusCode = clonePtr(rec.StatusCode)
	out.ResponseTimeMs = clonePtr(rec.ResponseTimeMs)
	out.Error = clonePtr(rec.Error)
	if rec.ResponseBody != nil {
		body := *rec.ResponseBody
		body.JSON = append([]byte(nil), rec.ResponseBody.JSON...)
		out.ResponseBody = &body
	}
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
