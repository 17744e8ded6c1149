package invitation

import (
	"context"
	"errors"
	"fmt"

	"packs/cmd/internal/auditlog"
	"packs/cmd/internal/membership"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrInvalidInput = errors.New("invitation: invalid input")
	ErrNotFound     = errors.New("invitation: not found")
	ErrConflict     = errors.New("invitation: conflict")
	ErrStorage      = errors.New("invitation: storage failure")
)

// OpError carries the operation, one of the sentinel kinds and, for storage
// failures, the underlying cause. Unwrap yields the kind only, so driver error
// types never cross the package boundary. Cancellation keeps context.Canceled
// or context.DeadlineExceeded as its kind.
type OpError struct {
	Op   string
	Kind error
	Msg  string
	Err  error
}

func (e OpError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Op, e.Kind)
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e OpError) Unwrap() error { return e.Kind }

// IsNotFound reports whether err is a not-found failure.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsConflict reports whether err is a conflict failure.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// IsInvalidInput reports whether err is an input validation failure.
func IsInvalidInput(err error) bool { return errors.Is(err, ErrInvalidInput) }

func notFound(op, what string) error {
	return OpError{Op: op, Kind: ErrNotFound, Msg: what}
}

func invalid(op, msg string) error {
	return OpError{Op: op, Kind: ErrInvalidInput, Msg: msg}
}

func canceled(op string, err error) error {
	kind := context.Canceled
	if errors.Is(err, context.DeadlineExceeded) {
		kind = context.DeadlineExceeded
	}
	return OpError{Op: op, Kind: kind, Err: err}
}

// classify maps any error raised below the store onto one of the sentinel kinds.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var oe OpError
	if errors.As(err, &oe) {
		return err
	}
	for _, kind := range []error{ErrInvalidInput, ErrNotFound, ErrConflict, ErrStorage} {
		if errors.Is(err, kind) {
			return OpError{Op: op, Kind: kind}
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return canceled(op, err)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return OpError{Op: op, Kind: ErrNotFound}
	}
	if errors.Is(err, auditlog.ErrInvalidInput) || errors.Is(err, membership.ErrInvalidInput) {
		return OpError{Op: op, Kind: ErrInvalidInput, Err: err}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return OpError{Op: op, Kind: ErrConflict, Msg: pgErr.ConstraintName}
		case "23503": // foreign_key_violation
			return OpError{Op: op, Kind: ErrNotFound, Msg: "referenced row: " + pgErr.ConstraintName}
		}
	}
	return OpError{Op: op, Kind: ErrStorage, Err: err}
}
