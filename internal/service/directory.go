package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/lynixity/lynix-go/internal/domain"
	"github.com/lynixity/lynix-go/internal/infra/observability"
	"github.com/lynixity/lynix-go/internal/port"
)

const (
	usersCacheKey   = "users"
	defaultPassword = "password"
)

type passwordHasher interface {
	HashPassword(password string) (string, error)
}

// DirectoryService is the admin console's view of the user directory.
// Reads are cached; every mutation invalidates the cache.
type DirectoryService struct {
	store   port.UserStore
	hasher  passwordHasher
	cache   port.Cache[[]domain.User]
	metrics *observability.Metrics
	logger  *zap.Logger
}

func NewDirectoryService(
	store port.UserStore,
	hasher passwordHasher,
	cache port.Cache[[]domain.User],
	metrics *observability.Metrics,
	logger *zap.Logger,
) *DirectoryService {
	return &DirectoryService{store: store, hasher: hasher, cache: cache, metrics: metrics, logger: logger}
}

// List returns every user without passwords, ordered by id.
func (s *DirectoryService) List(ctx context.Context) ([]domain.User, error) {
	ctx, span := tracer.Start(ctx, "DirectoryService.List")
	defer span.End()

	if cached, ok := s.cache.Get(usersCacheKey); ok {
		s.metrics.IncrCacheHit(usersCacheKey)
		return cached, nil
	}
	s.metrics.IncrCacheMiss(usersCacheKey)

	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	s.cache.Set(usersCacheKey, users)
	return users, nil
}

// Create adds a user. A blank password defaults to "password".
func (s *DirectoryService) Create(ctx context.Context, actorID int64, u *domain.User) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "DirectoryService.Create")
	defer span.End()

	if err := s.requireAdmin(ctx, actorID, "create user"); err != nil {
		return nil, err
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	if u.Role == domain.RoleGuest {
		return nil, &domain.ErrValidation{Field: "role", Message: "the Guest role cannot be assigned"}
	}

	password := u.Password
	if password == "" {
		password = defaultPassword
	}
	hash, err := s.hasher.HashPassword(password)
	if err != nil {
		return nil, err
	}

	created, err := s.store.CreateUser(ctx, normalizeUser(u), hash)
	if err != nil {
		return nil, err
	}
	s.cache.Delete(usersCacheKey)
	s.logger.Info("user created", zap.Int64("user_id", created.ID), zap.Int64("actor_id", actorID))
	return created, nil
}

// Update overwrites a user. A blank password keeps the stored hash.
func (s *DirectoryService) Update(ctx context.Context, actorID int64, u *domain.User) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "DirectoryService.Update")
	defer span.End()

	if err := s.requireAdmin(ctx, actorID, "update user"); err != nil {
		return nil, err
	}
	if u.ID <= 0 {
		return nil, &domain.ErrValidation{Field: "id", Message: "id is required"}
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}

	hash := ""
	if u.Password != "" {
		h, err := s.hasher.HashPassword(u.Password)
		if err != nil {
			return nil, err
		}
		hash = h
	}

	updated, err := s.store.UpdateUser(ctx, normalizeUser(u), hash)
	if err != nil {
		return nil, err
	}
	s.cache.Delete(usersCacheKey)
	s.logger.Info("user updated", zap.Int64("user_id", updated.ID), zap.Int64("actor_id", actorID))
	return updated, nil
}

// Delete removes a user.
func (s *DirectoryService) Delete(ctx context.Context, actorID, id int64) error {
	ctx, span := tracer.Start(ctx, "DirectoryService.Delete")
	defer span.End()

	if err := s.requireAdmin(ctx, actorID, "delete user"); err != nil {
		return err
	}
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.cache.Delete(usersCacheKey)
	s.logger.Info("user deleted", zap.Int64("user_id", id), zap.Int64("actor_id", actorID))
	return nil
}

// requireAdmin loads the actor from the store so a demoted admin loses
// access immediately, whatever their token says.
func (s *DirectoryService) requireAdmin(ctx context.Context, actorID int64, action string) error {
	rec, err := s.store.GetUser(ctx, actorID)
	if err != nil {
		var nf *domain.ErrNotFound
		if errors.As(err, &nf) {
			return &domain.ErrForbidden{Action: action}
		}
		return fmt.Errorf("load actor %d: %w", actorID, err)
	}
	if rec.User.Role != domain.RoleAdmin {
		s.logger.Warn("directory: non-admin mutation rejected",
			zap.Int64("actor_id", actorID),
			zap.String("action", action),
		)
		return &domain.ErrForbidden{Action: action}
	}
	return nil
}

// normalizeUser drops the plain password and turns blank optional fields
// into NULLs.
func normalizeUser(u *domain.User) *domain.User {
	out := u.Public()
	if out.Email != nil {
		out.Email = domain.StringPtr(*out.Email)
	}
	if out.SipTalkID != nil {
		out.SipTalkID = domain.StringPtr(*out.SipTalkID)
	}
	return &out
}
