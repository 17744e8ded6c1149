package invitation

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"packs/cmd/internal/auditlog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   error
		want error
	}{
		{name: "no rows", in: pgx.ErrNoRows, want: ErrNotFound},
		{name: "unique violation", in: &pgconn.PgError{Code: "23505", ConstraintName: "pk_invitations"}, want: ErrConflict},
		{name: "foreign key violation", in: &pgconn.PgError{Code: "23503"}, want: ErrNotFound},
		{name: "other pg error", in: &pgconn.PgError{Code: "40001"}, want: ErrStorage},
		{name: "audit input", in: auditlog.ErrInvalidInput, want: ErrInvalidInput},
		{name: "own sentinel", in: ErrInvalidInput, want: ErrInvalidInput},
		{name: "deadline", in: context.DeadlineExceeded, want: context.DeadlineExceeded},
		{name: "wrapped cancel", in: fmt.Errorf("read: %w", context.Canceled), want: context.Canceled},
	}

	for _, tc := range cases {
		got := classify("invitation.Test", tc.in)
		if !errors.Is(got, tc.want) {
			t.Fatalf("%s: classify()=%v want kind %v", tc.name, got, tc.want)
		}
		var pgErr *pgconn.PgError
		if errors.As(got, &pgErr) {
			t.Fatalf("%s: driver error leaked through classify", tc.name)
		}
	}
}

func TestClassify_KeepsClassifiedErrors(t *testing.T) {
	t.Parallel()

	in := notFound("invitation.Accept", "group")
	got := classify("invitation.Accept", in)
	var oe OpError
	if !errors.As(got, &oe) || oe.Msg != "group" {
		t.Fatalf("expected original OpError, got %v", got)
	}
	if classify("x", nil) != nil {
		t.Fatalf("nil must stay nil")
	}
}

func TestClassify_StorageKeepsCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("conn reset")
	got := classify("invitation.Invite", cause)
	var oe OpError
	if !errors.As(got, &oe) {
		t.Fatalf("expected OpError")
	}
	if oe.Kind != ErrStorage || !errors.Is(oe.Err, cause) {
		t.Fatalf("cause must be kept for logging, got %+v", oe)
	}
}

func TestClassify_CancellationStaysDistinct(t *testing.T) {
	t.Parallel()

	got := classify("invitation.Accept", fmt.Errorf("query: %w", context.Canceled))
	if !errors.Is(got, context.Canceled) {
		t.Fatalf("expected context.Canceled kind, got %v", got)
	}
	if errors.Is(got, ErrStorage) {
		t.Fatalf("cancellation must not be reported as storage failure")
	}
	var oe OpError
	if !errors.As(got, &oe) || oe.Op != "invitation.Accept" || oe.Err == nil {
		t.Fatalf("expected OpError carrying the cause, got %#v", got)
	}
}
