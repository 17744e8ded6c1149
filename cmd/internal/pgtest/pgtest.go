// Package pgtest holds Postgres integration test helpers shared by the store packages.
//
// Integration tests are enabled when PACKS_DATABASE_URL is set.
// In non-CI runs, unreachable Postgres skips these tests to keep local runs fast.
package pgtest

import (
	"context"
	"crypto/rand"
	"errors"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"packs/cmd/internal/schema"
	"packs/cmd/internal/trust"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
)

// EnvDatabaseURL gates integration tests.
const EnvDatabaseURL = "PACKS_DATABASE_URL"

// OpenPool connects to the integration database or skips the test.
func OpenPool(t testing.TB) *pgxpool.Pool {
	t.Helper()

	raw := strings.TrimSpace(os.Getenv(EnvDatabaseURL))
	if raw == "" {
		t.Skip("integration test skipped: " + EnvDatabaseURL + " is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg, err := pgxpool.ParseConfig(raw)
	if err != nil {
		t.Fatalf("parse %s: %v", EnvDatabaseURL, err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("connect postgres: %v", err)
	}

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer pingCancel()

	c, err := pool.Acquire(pingCtx)
	if err != nil {
		pool.Close()
		if shouldSkipIntegration(err) {
			t.Skipf("integration test skipped: Postgres unreachable (%s set): %v", EnvDatabaseURL, err)
		}
		t.Fatalf("acquire: %v", err)
	}
	c.Release()

	t.Cleanup(pool.Close)
	return pool
}

func shouldSkipIntegration(err error) bool {
	if err == nil {
		return false
	}
	if os.Getenv("CI") != "" {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "context deadline exceeded") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "dial tcp") ||
		strings.Contains(msg, "no such host") {
		return true
	}
	return false
}

// NewSchema creates an isolated schema with the full layout applied and drops it on cleanup.
func NewSchema(t testing.TB, pool *pgxpool.Pool, prefix string) string {
	t.Helper()

	name := prefix + "_" + strings.ToLower(ulid.MustNew(ulid.Timestamp(time.Now().UTC()), ulid.Monotonic(rand.Reader, 0)).String())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := schema.Apply(ctx, pool, name); err != nil {
		t.Fatalf("apply schema: %v", err)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_, _ = pool.Exec(ctx, `DROP SCHEMA IF EXISTS `+pgx.Identifier{name}.Sanitize()+` CASCADE`)
	})
	return name
}

// InsertUser adds a user row and returns its uuid.
func InsertUser(t testing.TB, pool *pgxpool.Pool, schemaName, username string, tier trust.Tier) uuid.UUID {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	id := uuid.New()
	first := username + "-first"
	last := username + "-last"
	email := username + "@example.com"
	picture := "https://example.com/" + username + ".png"

	users := schema.Ident(schemaName, "users")
	if _, err := pool.Exec(ctx,
		`INSERT INTO `+users+` (user_uuid, user_id, username, first_name, last_name, email, picture, trust)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, "ad|"+username, username, first, last, email, picture, tier.String(),
	); err != nil {
		t.Fatalf("insert user: %v", err)
	}
	return id
}

// GroupFixture describes a group to insert.
type GroupFixture struct {
	Name            string
	Active          bool
	GroupExpiration *int32
	Terms           *string
}

// InsertGroup adds a group with a member role set as its default and returns the group id and role id.
func InsertGroup(t testing.TB, pool *pgxpool.Pool, schemaName string, g GroupFixture) (groupID int32, roleID int32) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	groups := schema.Ident(schemaName, "groups")
	roles := schema.Ident(schemaName, "roles")
	terms := schema.Ident(schemaName, "terms")

	if err := pool.QueryRow(ctx,
		`INSERT INTO `+groups+` (name, active, group_expiration) VALUES ($1, $2, $3) RETURNING group_id`,
		g.Name, g.Active, g.GroupExpiration,
	).Scan(&groupID); err != nil {
		t.Fatalf("insert group: %v", err)
	}
	if err := pool.QueryRow(ctx,
		`INSERT INTO `+roles+` (group_id, typ, name) VALUES ($1, 'member', 'member') RETURNING role_id`,
		groupID,
	).Scan(&roleID); err != nil {
		t.Fatalf("insert role: %v", err)
	}
	if _, err := pool.Exec(ctx, `UPDATE `+groups+` SET default_role_id = $1 WHERE group_id = $2`, roleID, groupID); err != nil {
		t.Fatalf("set default role: %v", err)
	}
	if g.Terms != nil {
		if _, err := pool.Exec(ctx, `INSERT INTO `+terms+` (group_id, text) VALUES ($1, $2)`, groupID, *g.Terms); err != nil {
			t.Fatalf("insert terms: %v", err)
		}
	}
	return groupID, roleID
}

// Int32 returns a pointer to v.
func Int32(v int32) *int32 { return &v }
