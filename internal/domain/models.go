// Package domain defines the core entities for Lynix.
// These models are independent of storage and transport and represent the
// canonical data structures shared by the server and the client core.
package domain

import (
	"fmt"
	"strings"
)

// ============================================================
// Identity
// ============================================================

// Role is the access role of a user.
type Role string

const (
	RoleAdmin    Role = "Admin"
	RoleStandard Role = "Standard"
	RoleTrial    Role = "Trial"
	RoleGuest    Role = "Guest"
	RoleCustom   Role = "Custom"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStandard, RoleTrial, RoleGuest, RoleCustom:
		return true
	}
	return false
}

// BillingStatus is the billing standing of a user.
type BillingStatus string

const (
	BillingOnTime    BillingStatus = "On Time"
	BillingOverdue   BillingStatus = "Overdue"
	BillingSuspended BillingStatus = "Suspended"
)

// Valid reports whether b is one of the known billing statuses.
func (b BillingStatus) Valid() bool {
	switch b {
	case BillingOnTime, BillingOverdue, BillingSuspended:
		return true
	}
	return false
}

// Feature names a feature flag on a user.
type Feature string

const (
	FeatureMail   Feature = "mail"
	FeatureChat   Feature = "chat"
	FeatureDialer Feature = "dialer"
	FeatureAI     Feature = "ai"
)

// UserFeatures holds the per-user feature switches.
type UserFeatures struct {
	Dialer bool `json:"dialer"`
	AI     bool `json:"ai"`
	Mail   bool `json:"mail"`
	Chat   bool `json:"chat"`
}

// Enabled reports whether the named feature is switched on.
func (f UserFeatures) Enabled(feature Feature) bool {
	switch feature {
	case FeatureMail:
		return f.Mail
	case FeatureChat:
		return f.Chat
	case FeatureDialer:
		return f.Dialer
	case FeatureAI:
		return f.AI
	}
	return false
}

// User is the identity driving access decisions. Password is only ever
// populated on inbound create/update payloads and is never serialized back.
type User struct {
	ID            int64         `json:"id"`
	Username      string        `json:"username"`
	Email         *string       `json:"email"`
	SipTalkID     *string       `json:"sipTalkId"`
	Password      string        `json:"password,omitempty"`
	Role          Role          `json:"role"`
	BillingStatus BillingStatus `json:"billingStatus"`
	Features      UserFeatures  `json:"features"`
}

// Validate checks the fields every stored identity must carry.
func (u *User) Validate() error {
	if strings.TrimSpace(u.Username) == "" {
		return &ErrValidation{Field: "username", Message: "username is required"}
	}
	if !u.Role.Valid() {
		return &ErrValidation{Field: "role", Message: fmt.Sprintf("unknown role %q", u.Role)}
	}
	if !u.BillingStatus.Valid() {
		return &ErrValidation{Field: "billingStatus", Message: fmt.Sprintf("unknown billing status %q", u.BillingStatus)}
	}
	return nil
}

// IsGuest reports whether the user is the guest principal.
func (u *User) IsGuest() bool {
	return u != nil && u.Role == RoleGuest
}

// Public returns a copy of the user without the password.
func (u User) Public() User {
	u.Password = ""
	return u
}

// GuestUser returns the fixed, privilege-minimal guest identity.
func GuestUser() *User {
	email := "guest@lynix"
	sip := "N/A"
	return &User{
		ID:            0,
		Username:      "guest",
		Email:         &email,
		SipTalkID:     &sip,
		Role:          RoleGuest,
		BillingStatus: BillingOnTime,
		Features:      UserFeatures{Dialer: false, AI: true, Mail: false, Chat: false},
	}
}

// StringPtr returns a pointer to s, or nil when s is blank.
func StringPtr(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
