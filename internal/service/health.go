package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lynixity/lynix-go/internal/domain"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// HealthService probes dependencies for /healthz and /readyz.
type HealthService struct {
	store   pinger
	textGen *TextGenService
}

func NewHealthService(store pinger, textGen *TextGenService) *HealthService {
	return &HealthService{store: store, textGen: textGen}
}

// Check probes every dependency concurrently. The overall status is
// unhealthy when the store is down and degraded when only text generation
// is unavailable.
func (s *HealthService) Check(ctx context.Context) *domain.HealthStatus {
	results := make([]domain.ServiceHealth, 2)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		h := domain.ServiceHealth{Name: "store", Status: "healthy"}
		if err := s.store.Ping(gCtx); err != nil {
			h.Status = "unhealthy"
			h.Detail = err.Error()
		}
		h.LatencyMs = time.Since(start).Milliseconds()
		h.LastChecked = time.Now().UTC().Format(time.RFC3339)
		results[0] = h
		return nil
	})
	g.Go(func() error {
		h := domain.ServiceHealth{Name: "text-generation", Status: "healthy"}
		if !s.textGen.Configured() {
			h.Status = "degraded"
			h.Detail = ErrTextGenNotConfigured.Error()
		}
		h.LastChecked = time.Now().UTC().Format(time.RFC3339)
		results[1] = h
		return nil
	})
	_ = g.Wait()

	status := "healthy"
	switch {
	case results[0].Status != "healthy":
		status = "unhealthy"
	case results[1].Status != "healthy":
		status = "degraded"
	}
	return &domain.HealthStatus{Status: status, Services: results}
}
