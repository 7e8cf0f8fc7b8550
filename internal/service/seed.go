package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lynixity/lynix-go/internal/domain"
	"github.com/lynixity/lynix-go/internal/port"
)

func demoUser(name, email, sip string, role domain.Role, billing domain.BillingStatus, f domain.UserFeatures) domain.User {
	return domain.User{
		Username:      name,
		Email:         domain.StringPtr(email),
		SipTalkID:     domain.StringPtr(sip),
		Role:          role,
		BillingStatus: billing,
		Features:      f,
	}
}

var (
	allFeatures = domain.UserFeatures{Dialer: true, AI: true, Mail: true, Chat: true}

	demoUsers = []domain.User{
		demoUser("admin", "admin@lynixity.x10.bz", "0470000001", domain.RoleAdmin, domain.BillingOnTime, allFeatures),
		demoUser("standard_user", "standard@example.com", "0470000002", domain.RoleStandard, domain.BillingOnTime, allFeatures),
		demoUser("trial_user", "trial@example.com", "0470000003", domain.RoleTrial, domain.BillingOnTime,
			domain.UserFeatures{Dialer: true, Mail: true}),
		demoUser("overdue_user", "overdue@example.com", "0470000004", domain.RoleStandard, domain.BillingOverdue, allFeatures),
		demoUser("suspended_user", "suspended@example.com", "0470000005", domain.RoleStandard, domain.BillingSuspended,
			domain.UserFeatures{}),
		demoUser("custom_user", "custom@example.com", "0470000006", domain.RoleCustom, domain.BillingOnTime,
			domain.UserFeatures{Dialer: true, AI: true, Chat: true}),
	}
)

// SeedDemoData fills an empty store with the demo workspace. Every demo
// user's password is "password". A store that already has users is left
// untouched.
func SeedDemoData(ctx context.Context, store port.Store, hasher passwordHasher, logger *zap.Logger) error {
	existing, err := store.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("seed: list users: %w", err)
	}
	if len(existing) > 0 {
		logger.Info("seed: store already populated, skipping", zap.Int("users", len(existing)))
		return nil
	}

	hash, err := hasher.HashPassword(defaultPassword)
	if err != nil {
		return err
	}

	ids := make(map[string]int64, len(demoUsers))
	for i := range demoUsers {
		u := demoUsers[i]
		created, err := store.CreateUser(ctx, &u, hash)
		if err != nil {
			return fmt.Errorf("seed: create user %s: %w", u.Username, err)
		}
		ids[u.Username] = created.ID
	}
	admin, standard, trial := ids["admin"], ids["standard_user"], ids["trial_user"]

	now := time.Now()
	ago := func(d time.Duration) int64 { return now.Add(-d).UnixMilli() }

	notes := []domain.Note{
		{UserID: admin, Title: "Welcome Note", Content: "This is your first note stored on the server!", LastModified: now.UnixMilli()},
		{UserID: standard, Title: "Shopping List", Content: "- Milk\n- Bread\n- Eggs", LastModified: ago(100 * time.Second)},
	}
	for i := range notes {
		if _, err := store.CreateNote(ctx, &notes[i]); err != nil {
			return fmt.Errorf("seed: create note: %w", err)
		}
	}

	mails := []domain.Mail{
		{
			From:    domain.MailAddress{Name: "Lynix Support", Email: "support@lynixity.x10.bz"},
			To:      "admin@lynixity.x10.bz",
			Subject: "Welcome to LocalMail!",
			Body: "Hello and welcome to the new LocalMail feature!\n\nThis is a demonstration of the mail client interface. " +
				"You can browse, read, and compose messages.\n\nEnjoy exploring!\n\nThe Lynix Team",
			Timestamp: ago(5 * time.Minute),
		},
		{
			From:    domain.MailAddress{Name: "Project Updates", Email: "updates@lynix.dev"},
			To:      "admin@lynixity.x10.bz",
			Subject: "Q3 Project Roadmap",
			Body: "Hi team,\n\nPlease find the attached roadmap for our projects in the third quarter. " +
				"We have some exciting updates coming up for the Notepad and Dialer apps.\n\nBest,\nManagement",
			Timestamp: ago(2 * time.Hour),
			Read:      true,
		},
		{
			From:    domain.MailAddress{Name: "standard_user", Email: "standard@example.com"},
			To:      "admin@lynixity.x10.bz",
			Subject: "Quick question",
			Body: "Hey, I was wondering if we could sync our contacts from the Contacts app with the Dialer app. " +
				"Let me know what you think. Thanks!",
			Timestamp: ago(24 * time.Hour),
			Read:      true,
		},
	}
	for i := range mails {
		if _, err := store.CreateMail(ctx, &mails[i]); err != nil {
			return fmt.Errorf("seed: create mail: %w", err)
		}
	}

	messages := []domain.ChatMessage{
		{SenderID: standard, ReceiverID: admin, Text: "Hey! How is the new chat feature coming along?", Timestamp: ago(10 * time.Minute)},
		{SenderID: admin, ReceiverID: standard, Text: "It's looking great! We just pushed a new update. You should be able to test it now.", Timestamp: ago(8 * time.Minute)},
		{SenderID: standard, ReceiverID: admin, Text: "Awesome, I'll check it out. Thanks!", Timestamp: ago(7 * time.Minute)},
		{SenderID: trial, ReceiverID: admin, Text: "I'm having trouble with the trial version of the dialer, can you help?", Timestamp: ago(5 * time.Hour)},
	}
	for i := range messages {
		if _, err := store.CreateMessage(ctx, &messages[i]); err != nil {
			return fmt.Errorf("seed: create message: %w", err)
		}
	}

	logger.Info("seed: demo data loaded",
		zap.Int("users", len(demoUsers)),
		zap.Int("notes", len(notes)),
		zap.Int("mails", len(mails)),
		zap.Int("messages", len(messages)),
	)
	return nil
}
