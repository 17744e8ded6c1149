package membership

import (
	"context"
	"errors"
	"testing"
	"time"

	"packs/cmd/internal/pgtest"
	"packs/cmd/internal/trust"

	"github.com/google/uuid"
)

func TestUpsert_InsertThenOverwrite(t *testing.T) {
	t.Parallel()

	pool := pgtest.OpenPool(t)
	schemaName := pgtest.NewSchema(t, pool, "packs_membership_it")

	store, err := NewPostgresStore(pool, WithSchema(schemaName))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	ctx := context.Background()
	host := pgtest.InsertUser(t, pool, schemaName, "host", trust.Staff)
	other := pgtest.InsertUser(t, pool, schemaName, "other", trust.Staff)
	member := pgtest.InsertUser(t, pool, schemaName, "member", trust.Vouched)
	groupID, roleID := pgtest.InsertGroup(t, pool, schemaName, pgtest.GroupFixture{Name: "ateam", Active: true})

	exp := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Microsecond)
	if err := store.Upsert(ctx, pool, Membership{
		GroupID: groupID, UserUUID: member, RoleID: roleID, Expiration: &exp, AddedBy: host,
	}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	got, err := store.Get(ctx, "ateam", member)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.AddedBy != host || got.Expiration == nil || !got.Expiration.Equal(exp) {
		t.Fatalf("unexpected membership after insert: %+v", got)
	}

	if err := store.Upsert(ctx, pool, Membership{
		GroupID: groupID, UserUUID: member, RoleID: roleID, Expiration: nil, AddedBy: other,
	}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err = store.Get(ctx, "ateam", member)
	if err != nil {
		t.Fatalf("get after overwrite: %v", err)
	}
	if got.AddedBy != other || got.Expiration != nil {
		t.Fatalf("expected overwrite to win, got %+v", got)
	}

	var n int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM "`+schemaName+`".memberships`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected exactly one membership row, got %d", n)
	}
}

func TestGet_NotFound(t *testing.T) {
	t.Parallel()

	pool := pgtest.OpenPool(t)
	schemaName := pgtest.NewSchema(t, pool, "packs_membership_it")

	store, err := NewPostgresStore(pool, WithSchema(schemaName))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	_, err = store.Get(context.Background(), "nope", uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
