// Package assistant drives the AI chat page: it sends prompts to the
// text-generation endpoint, keeps the transcript and rations guests.
package assistant

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lynixity/lynix-go/internal/domain"
	"github.com/lynixity/lynix-go/internal/infra/observability"
	"github.com/lynixity/lynix-go/internal/port"
)

const (
	// DefaultGuestQuota is how many answers a guest session gets per window.
	DefaultGuestQuota = 50
	// QuotaWindow is the length of a guest quota window.
	QuotaWindow = time.Hour

	MsgLimitReached = "You have reached your hourly response limit as a guest."
	MsgNetworkError = "Sorry, I encountered a network error while processing your request."
	MsgServerError  = "An error occurred fetching the AI response."
)

// Sender tells who wrote a transcript entry.
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// Entry is one line of the transcript.
type Entry struct {
	Sender Sender
	Text   string
}

// Identity is what the conversation needs from the session.
type Identity interface {
	Identity() *domain.User
	SessionID() string
}

// Usage counts the answers of one guest session inside a window.
type Usage struct {
	Used  int
	Since time.Time
}

// serverMessager is implemented by remote errors that carry the server's
// own explanation.
type serverMessager interface {
	ServerMessage() string
}

// Option configures a Conversation.
type Option func(*Conversation)

// WithQuota overrides the guest quota.
func WithQuota(n int) Option {
	return func(c *Conversation) { c.quota = n }
}

// WithClock overrides the time source of quota windows.
func WithClock(now func() time.Time) Option {
	return func(c *Conversation) { c.now = now }
}

// Conversation is the transcript of the AI page.
type Conversation struct {
	prompter port.Prompter
	identity Identity
	usage    port.Cache[Usage]
	quota    int
	now      func() time.Time
	metrics  *observability.Metrics
	logger   *zap.Logger

	mu         sync.Mutex
	transcript []Entry
}

// New builds a conversation. usage keeps guest counters across
// conversations of the same session.
func New(prompter port.Prompter, identity Identity, usage port.Cache[Usage], metrics *observability.Metrics, logger *zap.Logger, opts ...Option) *Conversation {
	c := &Conversation{
		prompter: prompter,
		identity: identity,
		usage:    usage,
		quota:    DefaultGuestQuota,
		now:      time.Now,
		metrics:  metrics,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ask sends prompt and returns the answer shown to the user. Remote failures
// become an apology; a blank prompt is the only error.
func (c *Conversation) Ask(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", &domain.ErrValidation{Field: "prompt", Message: "prompt is required"}
	}

	if c.rationed() && !c.take() {
		c.metrics.IncrQuotaRejection()
		c.logger.Info("assistant: guest quota reached", zap.String("session", c.identity.SessionID()))
		c.append(Entry{SenderUser, prompt}, Entry{SenderAI, MsgLimitReached})
		return MsgLimitReached, nil
	}

	c.append(Entry{SenderUser, prompt})
	answer, err := c.prompter.GenerateText(ctx, prompt)
	if err != nil {
		c.logger.Warn("assistant: generation failed", zap.Error(err))
		answer = apology(err)
	}
	c.append(Entry{SenderAI, answer})
	return answer, nil
}

// Remaining returns the guest answers left in the current window, or -1
// when the caller is not rationed.
func (c *Conversation) Remaining() int {
	if !c.rationed() {
		return -1
	}
	u := c.current()
	if left := c.quota - u.Used; left > 0 {
		return left
	}
	return 0
}

// Transcript returns every entry so far.
func (c *Conversation) Transcript() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.transcript)
}

// Reset clears the transcript. The quota is kept.
func (c *Conversation) Reset() {
	c.mu.Lock()
	c.transcript = nil
	c.mu.Unlock()
}

// rationed reports whether the caller is a guest or anonymous.
func (c *Conversation) rationed() bool {
	u := c.identity.Identity()
	return u == nil || u.IsGuest()
}

func (c *Conversation) key() string {
	if id := c.identity.SessionID(); id != "" {
		return "guest:" + id
	}
	return "guest:anonymous"
}

func (c *Conversation) current() Usage {
	u, ok := c.usage.Get(c.key())
	if !ok || c.now().Sub(u.Since) >= QuotaWindow {
		return Usage{Since: c.now()}
	}
	return u
}

// take consumes one answer from the window.
func (c *Conversation) take() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	u := c.current()
	if u.Used >= c.quota {
		return false
	}
	u.Used++
	c.usage.Set(c.key(), u)
	return true
}

func (c *Conversation) append(entries ...Entry) {
	c.mu.Lock()
	c.transcript = append(c.transcript, entries...)
	c.mu.Unlock()
}

func apology(err error) string {
	var sm serverMessager
	if errors.As(err, &sm) {
		if msg := sm.ServerMessage(); msg != "" {
			return msg
		}
		return MsgServerError
	}
	return MsgNetworkError
}
