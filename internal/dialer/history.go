package dialer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/lynixity/lynix-go/internal/domain"
	"github.com/lynixity/lynix-go/internal/port"
)

// HistoryKey is the durable storage key of the call log.
const HistoryKey = "lynix-call-history"

// History is the append-only call log.
type History struct {
	store  port.LocalStore
	logger *zap.Logger
	mu     sync.Mutex
}

func NewHistory(store port.LocalStore, logger *zap.Logger) *History {
	return &History{store: store, logger: logger}
}

// List returns the records oldest first. A damaged log is discarded.
func (h *History) List(ctx context.Context) ([]domain.CallRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.load(ctx)
}

// Append adds rec to the end of the log.
func (h *History) Append(ctx context.Context, rec domain.CallRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	records, err := h.load(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(append(records, rec))
	if err != nil {
		return fmt.Errorf("encode call history: %w", err)
	}
	return h.store.Set(ctx, HistoryKey, string(raw))
}

func (h *History) load(ctx context.Context) ([]domain.CallRecord, error) {
	raw, ok, err := h.store.Get(ctx, HistoryKey)
	if err != nil {
		return nil, fmt.Errorf("load call history: %w", err)
	}
	if !ok {
		return []domain.CallRecord{}, nil
	}
	var records []domain.CallRecord
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		h.logger.Warn("dialer: discarding damaged call history", zap.Error(err))
		if err := h.store.Delete(ctx, HistoryKey); err != nil {
			return nil, err
		}
		return []domain.CallRecord{}, nil
	}
	return records, nil
}
