// Package membership stores a user's role-bearing participation in a group.
package membership

import (
	"context"
	"errors"
	"strings"
	"time"

	"packs/cmd/internal/schema"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrInvalidInput = errors.New("membership: invalid input")
	ErrNotFound     = errors.New("membership: not found")
)

// Membership is keyed by (GroupID, UserUUID). A nil Expiration means permanent.
type Membership struct {
	GroupID    int32
	UserUUID   uuid.UUID
	RoleID     int32
	Expiration *time.Time
	AddedBy    uuid.UUID
}

// Execer is satisfied by *pgxpool.Pool and pgx.Tx.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore reads and writes memberships in PostgreSQL.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// Option configures PostgresStore behavior.
type Option func(*PostgresStore) error

// WithSchema sets the DB schema used by the membership store (default: "packs").
func WithSchema(name string) Option {
	return func(s *PostgresStore) error {
		name = strings.TrimSpace(name)
		if name == "" {
			return errors.New("membership: empty schema")
		}
		if !schema.ValidName(name) {
			return errors.New("membership: invalid schema identifier")
		}
		s.schema = name
		return nil
	}
}

// NewPostgresStore constructs a membership store backed by PostgreSQL.
// The pool may be nil when the store is only used for Upsert inside a caller's transaction.
func NewPostgresStore(pool *pgxpool.Pool, opts ...Option) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:   pool,
		schema: schema.Default,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	return st, nil
}

// Upsert inserts m or, if a row for the same (group, user) exists, overwrites
// its role, expiration and added_by. The row lock taken by ON CONFLICT serializes
// concurrent writers for the same pair.
func (s *PostgresStore) Upsert(ctx context.Context, db Execer, m Membership) error {
	if s == nil || db == nil {
		return ErrInvalidInput
	}
	if m.GroupID <= 0 || m.RoleID <= 0 || m.UserUUID == uuid.Nil || m.AddedBy == uuid.Nil {
		return ErrInvalidInput
	}

	memberships := schema.Ident(s.schema, "memberships")
	_, err := db.Exec(ctx,
		`INSERT INTO `+memberships+` (group_id, user_uuid, role_id, expiration, added_by)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (group_id, user_uuid) DO UPDATE
		    SET role_id = EXCLUDED.role_id,
		        expiration = EXCLUDED.expiration,
		        added_by = EXCLUDED.added_by`,
		m.GroupID, m.UserUUID, m.RoleID, m.Expiration, m.AddedBy,
	)
	return err
}

// Get returns the membership of user in the named group.
func (s *PostgresStore) Get(ctx context.Context, groupName string, user uuid.UUID) (Membership, error) {
	if s == nil || s.pool == nil {
		return Membership{}, ErrInvalidInput
	}
	groupName = strings.TrimSpace(groupName)
	if groupName == "" || user == uuid.Nil {
		return Membership{}, ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return Membership{}, err
	}

	memberships := schema.Ident(s.schema, "memberships")
	groups := schema.Ident(s.schema, "groups")

	var m Membership
	err := s.pool.QueryRow(ctx,
		`SELECT m.group_id, m.user_uuid, m.role_id, m.expiration, m.added_by
		   FROM `+memberships+` m
		   JOIN `+groups+` g ON g.group_id = m.group_id
		  WHERE g.name = $1 AND m.user_uuid = $2`,
		groupName, user,
	).Scan(&m.GroupID, &m.UserUUID, &m.RoleID, &m.Expiration, &m.AddedBy)
	if errors.Is(err, pgx.ErrNoRows) {
		return Membership{}, ErrNotFound
	}
	if err != nil {
		return Membership{}, err
	}
	return m, nil
}
