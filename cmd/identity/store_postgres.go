package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"packs/cmd/internal/schema"
	"packs/cmd/internal/trust"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore reads users from PostgreSQL.
// The pgx pool is owned by the caller; this store must NOT close it.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

// WithSchema sets the Postgres schema used by the identity store (default "packs").
func WithSchema(name string) PostgresOption {
	return func(s *PostgresStore) error {
		name = strings.TrimSpace(name)
		if name == "" {
			return fmt.Errorf("identity: empty schema")
		}
		if !schema.ValidName(name) {
			return fmt.Errorf("identity: invalid schema identifier")
		}
		s.schema = name
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
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
	if st.pool == nil {
		return nil, fmt.Errorf("identity: nil pool")
	}
	return st, nil
}

const userColumns = `user_uuid, user_id, username, first_name, last_name, email, picture, trust`

// UserByUUID fetches a user by uuid.
func (s *PostgresStore) UserByUUID(ctx context.Context, id uuid.UUID) (User, error) {
	const op = "identity.UserByUUID"

	if s == nil || s.pool == nil {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	if id == uuid.Nil {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "user uuid is required"}
	}

	users := schema.Ident(s.schema, "users")
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM `+users+` WHERE user_uuid = $1`, id)
	return scanUser(op, row)
}

func scanUser(op string, row pgx.Row) (User, error) {
	var (
		u        User
		trustRaw string
	)
	err := row.Scan(&u.UUID, &u.UserID, &u.Username, &u.FirstName, &u.LastName, &u.Email, &u.Picture, &trustRaw)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	if err != nil {
		return User{}, OpError{Op: op, Kind: ErrStorage, Err: err}
	}
	tier, err := trust.Parse(trustRaw)
	if err != nil {
		return User{}, OpError{Op: op, Kind: ErrStorage, Msg: "unknown trust " + trustRaw}
	}
	u.Trust = tier
	return u, nil
}
