package logging

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSink struct {
	mu   sync.Mutex
	logs []models.SystemLog
}

func (s *memSink) WriteSystemLogs(_ context.Context, logs []models.SystemLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, logs...)
	return nil
}

func (s *memSink) snapshot() []models.SystemLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.SystemLog(nil), s.logs...)
}

func TestPGHandlerPersistsErrorsOnly(t *testing.T) {
	sink := &memSink{}
	h := newPGHandler(sink, time.Hour)
	logger := slog.New(h).With("request_id", "req-1")

	logger.Info("ignored")
	logger.Error("provider failed", "action", "chat.answer", "user_id", "u1", "error", "boom", "question_len", 12)
	h.Stop()

	logs := sink.snapshot()
	require.Len(t, logs, 1)
	entry := logs[0]
	assert.Equal(t, "ERROR", entry.Level)
	assert.Equal(t, "provider failed", entry.Message)
	assert.Equal(t, "req-1", entry.RequestID)
	assert.Equal(t, "chat.answer", entry.Action)
	require.NotNil(t, entry.UserID)
	assert.Equal(t, "u1", *entry.UserID)
	assert.Equal(t, "boom", entry.Error)

	var extra map[string]any
	require.NoError(t, json.Unmarshal(entry.Extra, &extra))
	assert.EqualValues(t, 12, extra["question_len"])
}

func TestPGHandlerStopIsIdempotent(t *testing.T) {
	h := newPGHandler(&memSink{}, time.Hour)
	h.Stop()
	assert.NotPanics(t, h.Stop)
}

func TestMultiHandlerFansOut(t *testing.T) {
	sink := &memSink{}
	pg := newPGHandler(sink, time.Hour)
	var buf safeBuffer
	logger := slog.New(NewMultiHandler(NewJSONHandler(&buf, false), pg))

	logger.Warn("only stdout")
	logger.Error("both")
	pg.Stop()

	assert.Contains(t, buf.String(), "only stdout")
	assert.Contains(t, buf.String(), "both")
	require.Len(t, sink.snapshot(), 1)
}

type failingHandler struct{ slog.Handler }

func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("sink down") }

func TestMultiHandlerKeepsGoingAfterFailure(t *testing.T) {
	var buf safeBuffer
	h := NewMultiHandler(failingHandler{NewJSONHandler(io.Discard, false)}, NewJSONHandler(&buf, false))

	record := slog.NewRecord(time.Now(), slog.LevelError, "boom", 0)
	record.AddAttrs(slog.String("request_id", "r1"))
	err := h.Handle(context.Background(), record)
	assert.EqualError(t, err, "sink down")
	assert.Contains(t, buf.String(), `"request_id":"r1"`)
	assert.Contains(t, buf.String(), "boom")
}

type purgerFunc func(context.Context, time.Time) (int64, error)

func (f purgerFunc) PurgeSystemLogs(ctx context.Context, before time.Time) (int64, error) {
	return f(ctx, before)
}

func TestPurgeOnceUsesRetention(t *testing.T) {
	now := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	var got time.Time
	purgeOnce(purgerFunc(func(_ context.Context, before time.Time) (int64, error) {
		got = before
		return 3, nil
	}), now)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), got)
}

type safeBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
