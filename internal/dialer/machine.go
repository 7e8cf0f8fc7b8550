// Package dialer simulates outgoing calls: a session goes Idle, Calling,
// then Connected or Failed, and ending it writes a CallRecord to history.
package dialer

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lynixity/lynix-go/internal/domain"
	"github.com/lynixity/lynix-go/internal/infra/observability"
)

const (
	// DefaultDelay is how long a call rings before it resolves.
	DefaultDelay = 2 * time.Second
	// FailingNumber always fails to connect.
	FailingNumber = "555"
)

// Session is a snapshot of the call in progress.
type Session struct {
	Number    string
	Status    domain.CallStatus
	StartedAt time.Time
}

// Option configures a Machine.
type Option func(*Machine)

// WithDelay overrides the ring time.
func WithDelay(d time.Duration) Option {
	return func(m *Machine) { m.delay = d }
}

// WithOnChange registers fn to receive every state change.
func WithOnChange(fn func(Session)) Option {
	return func(m *Machine) { m.onChange = fn }
}

// Machine is a single-line call session.
type Machine struct {
	clock    Clock
	delay    time.Duration
	history  *History
	metrics  *observability.Metrics
	logger   *zap.Logger
	onChange func(Session)

	mu      sync.Mutex
	session Session
	timer   Timer
	attempt uint64
}

func New(clock Clock, history *History, metrics *observability.Metrics, logger *zap.Logger, opts ...Option) *Machine {
	m := &Machine{
		clock:   clock,
		delay:   DefaultDelay,
		history: history,
		metrics: metrics,
		logger:  logger,
		session: Session{Status: domain.CallIdle},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Session returns the current state.
func (m *Machine) Session() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// Dial starts a call. A blank number is rejected; dialing while a call is
// in progress does nothing.
func (m *Machine) Dial(number string) error {
	number = strings.TrimSpace(number)
	if number == "" {
		return &domain.ErrValidation{Field: "number", Message: "number is required"}
	}

	m.mu.Lock()
	if m.session.Status != domain.CallIdle {
		m.mu.Unlock()
		return nil
	}
	m.attempt++
	attempt := m.attempt
	m.session = Session{Number: number, Status: domain.CallCalling, StartedAt: m.clock.Now()}
	m.timer = m.clock.AfterFunc(m.delay, func() { m.resolve(attempt) })
	s := m.session
	m.mu.Unlock()

	m.logger.Debug("dialer: calling", zap.String("number", number))
	m.notify(s)
	return nil
}

// resolve settles the ring. It ignores timers from an earlier attempt.
func (m *Machine) resolve(attempt uint64) {
	m.mu.Lock()
	if attempt != m.attempt || m.session.Status != domain.CallCalling {
		m.mu.Unlock()
		return
	}
	if m.session.Number == FailingNumber {
		m.session.Status = domain.CallFailed
	} else {
		m.session.Status = domain.CallConnected
	}
	m.timer = nil
	s := m.session
	m.mu.Unlock()

	m.logger.Debug("dialer: resolved", zap.String("number", s.Number), zap.String("status", string(s.Status)))
	m.notify(s)
}

// End hangs up and returns the record written to history. Ending an idle
// machine returns nil. A call hung up while still ringing is logged as
// Failed.
func (m *Machine) End(ctx context.Context) *domain.CallRecord {
	m.mu.Lock()
	s := m.session
	if s.Status == domain.CallIdle {
		m.mu.Unlock()
		return nil
	}
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.attempt++
	m.session = Session{Status: domain.CallIdle}
	now := m.clock.Now()
	m.mu.Unlock()

	rec := domain.CallRecord{
		ID:           s.StartedAt.UnixMilli(),
		DialedNumber: s.Number,
		Status:       domain.CallFailed,
		StartedAt:    s.StartedAt,
	}
	if s.Status == domain.CallConnected {
		rec.Status = domain.CallConnected
		rec.DurationSeconds = int64(now.Sub(s.StartedAt) / time.Second)
	}

	m.metrics.IncrCallEnded(rec.Status)
	if m.history != nil {
		if err := m.history.Append(ctx, rec); err != nil {
			m.logger.Warn("dialer: could not save call record", zap.Error(err))
		}
	}
	m.notify(Session{Status: domain.CallIdle})
	return &rec
}

func (m *Machine) notify(s Session) {
	if m.onChange != nil {
		m.onChange(s)
	}
}
