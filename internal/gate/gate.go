// Package gate decides which pages the current identity may see and sends
// the application elsewhere when it may not.
package gate

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/lynixity/lynix-go/internal/domain"
	"github.com/lynixity/lynix-go/internal/infra/observability"
	"github.com/lynixity/lynix-go/internal/port"
)

// LoadingText is shown in place of a page whose redirect is pending.
const LoadingText = "Loading..."

// Decision is the access verdict for one page. Redirect is empty when the
// page is accessible.
type Decision struct {
	Accessible bool
	Redirect   domain.Page
}

// Loading reports whether the page content must be withheld.
func (d Decision) Loading() bool { return !d.Accessible }

// Rule is one row of the access table.
type Rule struct {
	Page    domain.Page
	Feature domain.Feature // set for feature-gated pages
	Admin   bool           // admin-only
	Profile bool           // any identity
	SignIn  bool           // only without identity
}

// Rules is the access table. Pages not listed are always accessible.
var Rules = []Rule{
	{Page: domain.PageLocalMail, Feature: domain.FeatureMail},
	{Page: domain.PageChat, Feature: domain.FeatureChat},
	{Page: domain.PageDialer, Feature: domain.FeatureDialer},
	{Page: domain.PageProfile, Profile: true},
	{Page: domain.PageAdminPortal, Admin: true},
	{Page: domain.PageSignIn, SignIn: true},
}

func ruleFor(page domain.Page) (Rule, bool) {
	for _, r := range Rules {
		if r.Page == page {
			return r, true
		}
	}
	return Rule{}, false
}

// Decide maps (page, identity) to a decision. A nil identity means nobody
// is signed in; an identity still being loaded counts as nil.
func Decide(page domain.Page, u *domain.User) Decision {
	r, ok := ruleFor(page)
	if !ok {
		return Decision{Accessible: true}
	}

	switch {
	case r.Feature != "":
		if u == nil {
			return Decision{Redirect: domain.PageSignIn}
		}
		if !u.Features.Enabled(r.Feature) {
			return Decision{Redirect: domain.PageHome}
		}
	case r.Profile:
		if u == nil {
			return Decision{Redirect: domain.PageSignIn}
		}
	case r.Admin:
		if u == nil {
			return Decision{Redirect: domain.PageSignIn}
		}
		if u.Role != domain.RoleAdmin {
			return Decision{Redirect: domain.PageHome}
		}
	case r.SignIn:
		if u != nil {
			return Decision{Redirect: domain.PageHome}
		}
	}
	return Decision{Accessible: true}
}

// Gate evaluates decisions and issues the redirect for an inaccessible page
// once per (page, identity) change.
type Gate struct {
	nav     port.Navigator
	metrics *observability.Metrics
	logger  *zap.Logger

	mu   sync.Mutex
	last string
}

func New(nav port.Navigator, metrics *observability.Metrics, logger *zap.Logger) *Gate {
	return &Gate{nav: nav, metrics: metrics, logger: logger}
}

// Evaluate decides and, when the page is inaccessible and this (page,
// identity) pair has not been redirected yet, navigates to the target.
func (g *Gate) Evaluate(page domain.Page, u *domain.User) Decision {
	d := Decide(page, u)
	key := string(page) + "|" + identityKey(u)

	g.mu.Lock()
	if d.Accessible {
		g.last = ""
		g.mu.Unlock()
		return d
	}
	if g.last == key {
		g.mu.Unlock()
		return d
	}
	g.last = key
	g.mu.Unlock()

	g.logger.Debug("gate: redirect",
		zap.String("from", string(page)),
		zap.String("to", string(d.Redirect)),
	)
	g.metrics.IncrGateRedirect(page, d.Redirect)
	if g.nav != nil {
		g.nav.Navigate(d.Redirect)
	}
	return d
}

// identityKey captures every field a decision depends on.
func identityKey(u *domain.User) string {
	if u == nil {
		return "anonymous"
	}
	f := u.Features
	return fmt.Sprintf("%d/%s/%t%t%t%t", u.ID, u.Role, f.Mail, f.Chat, f.Dialer, f.AI)
}
