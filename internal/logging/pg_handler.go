package logging

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const batchSize = 50

type pgSink struct {
	db     *gorm.DB
	mu     sync.Mutex
	buffer []models.SystemLog
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

// PGHandler is an slog.Handler that batches ERROR+ logs to PostgreSQL.
// Handlers derived through WithAttrs share one buffer.
type PGHandler struct {
	sink  *pgSink
	attrs []slog.Attr
}

func NewPGHandler(db *gorm.DB) *PGHandler {
	s := &pgSink{
		db:     db,
		buffer: make([]models.SystemLog, 0, batchSize),
		ticker: time.NewTicker(5 * time.Second),
		done:   make(chan struct{}),
	}
	go s.flushLoop()
	return &PGHandler{sink: s}
}

func (s *pgSink) flushLoop() {
	for {
		select {
		case <-s.ticker.C:
			s.flush()
		case <-s.done:
			s.flush()
			return
		}
	}
}

func (s *pgSink) flush() {
	s.mu.Lock()
	if len(s.buffer) == 0 {
		s.mu.Unlock()
		return
	}
	batch := s.buffer
	s.buffer = make([]models.SystemLog, 0, batchSize)
	s.mu.Unlock()

	// Logged to stdout only; going through slog.Default would loop back here.
	if err := s.db.CreateInBatches(batch, batchSize).Error; err != nil {
		slog.New(StdoutHandler("error")).Error("failed to flush system logs to DB", "error", err, "count", len(batch))
	}
}

func (s *pgSink) add(entry models.SystemLog) {
	s.mu.Lock()
	s.buffer = append(s.buffer, entry)
	needFlush := len(s.buffer) >= batchSize
	s.mu.Unlock()

	if needFlush {
		go s.flush()
	}
}

// Stop flushes what is buffered and ends the background loop.
func (h *PGHandler) Stop() {
	h.sink.once.Do(func() {
		h.sink.ticker.Stop()
		close(h.sink.done)
	})
}

// Enabled only handles ERROR and above.
func (h *PGHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelError
}

func (h *PGHandler) Handle(_ context.Context, record slog.Record) error {
	h.sink.add(toSystemLog(record, h.attrs))
	return nil
}

func (h *PGHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	return &PGHandler{sink: h.sink, attrs: append(slices.Clip(h.attrs), attrs...)}
}

func (h *PGHandler) WithGroup(name string) slog.Handler {
	return h
}

// toSystemLog maps well-known attribute keys onto columns; the rest go to Extra.
// Record attributes win over handler attributes with the same key.
func toSystemLog(record slog.Record, preset []slog.Attr) models.SystemLog {
	entry := models.SystemLog{
		ID:        uuid.New(),
		Timestamp: record.Time,
		Level:     record.Level.String(),
		Message:   record.Message,
	}

	extra := make(map[string]any)
	apply := func(a slog.Attr) bool {
		switch a.Key {
		case "component":
			entry.Component = a.Value.String()
		case "request_id":
			entry.RequestID = a.Value.String()
		case "profile_id":
			s := a.Value.String()
			entry.ProfileID = &s
		case "lead_id":
			s := a.Value.String()
			entry.LeadID = &s
		case "action", "operation":
			entry.Action = a.Value.String()
		case "error":
			entry.Error = a.Value.String()
		default:
			extra[a.Key] = a.Value.Any()
		}
		return true
	}

	for _, a := range preset {
		apply(a)
	}
	record.Attrs(apply)

	if len(extra) > 0 {
		if b, err := json.Marshal(extra); err == nil {
			entry.Extra = datatypes.JSON(b)
		}
	}
	return entry
}
