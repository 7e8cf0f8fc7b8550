package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/lynixity/lynix-go/internal/domain"
	"github.com/lynixity/lynix-go/internal/port"
)

var userColumns = []string{
	"id", "username", "email", "sip_talk_id", "password_hash", "role", "billing_status", "features",
}

type userRow struct {
	ID            int64   `db:"id"`
	Username      string  `db:"username"`
	Email         *string `db:"email"`
	SipTalkID     *string `db:"sip_talk_id"`
	PasswordHash  string  `db:"password_hash"`
	Role          string  `db:"role"`
	BillingStatus string  `db:"billing_status"`
	Features      []byte  `db:"features"`
}

func (r userRow) record() (port.UserRecord, error) {
	var features domain.UserFeatures
	if len(r.Features) > 0 {
		if err := json.Unmarshal(r.Features, &features); err != nil {
			return port.UserRecord{}, fmt.Errorf("decode features of user %d: %w", r.ID, err)
		}
	}
	return port.UserRecord{
		User: domain.User{
			ID:            r.ID,
			Username:      r.Username,
			Email:         r.Email,
			SipTalkID:     r.SipTalkID,
			Role:          domain.Role(r.Role),
			BillingStatus: domain.BillingStatus(r.BillingStatus),
			Features:      features,
		},
		PasswordHash: r.PasswordHash,
	}, nil
}

func userNotFound(id int64) error {
	return &domain.ErrNotFound{Resource: "user", ID: strconv.FormatInt(id, 10)}
}

// FindByIdentifier matches username, email or SIP talk id.
func (s *Store) FindByIdentifier(ctx context.Context, identifier string) ([]port.UserRecord, error) {
	ctx, span := tracer.Start(ctx, "Postgres.FindByIdentifier")
	defer span.End()

	query, args, err := psql.Select(userColumns...).
		From("users").
		Where(squirrel.Or{
			squirrel.Eq{"username": identifier},
			squirrel.Eq{"email": identifier},
			squirrel.Eq{"sip_talk_id": identifier},
		}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select query: %w", err)
	}
	var rows []userRow
	if err := pgxscan.Select(ctx, s.db, &rows, query, args...); err != nil {
		return nil, mapError(err, "find user by identifier")
	}
	out := make([]port.UserRecord, 0, len(rows))
	for _, r := range rows {
		rec, err := r.record()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (*port.UserRecord, error) {
	ctx, span := tracer.Start(ctx, "Postgres.GetUser")
	defer span.End()

	query, args, err := psql.Select(userColumns...).
		From("users").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select query: %w", err)
	}
	var row userRow
	if err := pgxscan.Get(ctx, s.db, &row, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, userNotFound(id)
		}
		return nil, mapError(err, "get user")
	}
	rec, err := row.record()
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	ctx, span := tracer.Start(ctx, "Postgres.ListUsers")
	defer span.End()

	query, args, err := psql.Select(userColumns...).
		From("users").
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select query: %w", err)
	}
	var rows []userRow
	if err := pgxscan.Select(ctx, s.db, &rows, query, args...); err != nil {
		return nil, mapError(err, "list users")
	}
	users := make([]domain.User, 0, len(rows))
	for _, r := range rows {
		rec, err := r.record()
		if err != nil {
			return nil, err
		}
		users = append(users, rec.User)
	}
	return users, nil
}

func (s *Store) CreateUser(ctx context.Context, u *domain.User, passwordHash string) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "Postgres.CreateUser")
	defer span.End()

	features, err := json.Marshal(u.Features)
	if err != nil {
		return nil, fmt.Errorf("encode features: %w", err)
	}
	query, args, err := psql.Insert("users").
		Columns("username", "email", "sip_talk_id", "password_hash", "role", "billing_status", "features").
		Values(u.Username, u.Email, u.SipTalkID, passwordHash, string(u.Role), string(u.BillingStatus), features).
		Suffix("RETURNING " + strings.Join(userColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building insert query: %w", err)
	}
	var row userRow
	if err := pgxscan.Get(ctx, s.db, &row, query, args...); err != nil {
		return nil, mapError(err, "insert user")
	}
	rec, err := row.record()
	if err != nil {
		return nil, err
	}
	return &rec.User, nil
}

func (s *Store) UpdateUser(ctx context.Context, u *domain.User, passwordHash string) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "Postgres.UpdateUser")
	defer span.End()

	features, err := json.Marshal(u.Features)
	if err != nil {
		return nil, fmt.Errorf("encode features: %w", err)
	}
	qb := psql.Update("users").
		Set("username", u.Username).
		Set("email", u.Email).
		Set("sip_talk_id", u.SipTalkID).
		Set("role", string(u.Role)).
		Set("billing_status", string(u.BillingStatus)).
		Set("features", features)
	if passwordHash != "" {
		qb = qb.Set("password_hash", passwordHash)
	}
	query, args, err := qb.
		Where(squirrel.Eq{"id": u.ID}).
		Suffix("RETURNING " + strings.Join(userColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building update query: %w", err)
	}
	var row userRow
	if err := pgxscan.Get(ctx, s.db, &row, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, userNotFound(u.ID)
		}
		return nil, mapError(err, "update user")
	}
	rec, err := row.record()
	if err != nil {
		return nil, err
	}
	return &rec.User, nil
}

func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "Postgres.DeleteUser")
	defer span.End()

	query, args, err := psql.Delete("users").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building delete query: %w", err)
	}
	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return mapError(err, "delete user")
	}
	if tag.RowsAffected() == 0 {
		return userNotFound(id)
	}
	return nil
}
