package identity

import (
	"errors"
	"strings"
	"testing"
)

func TestOpError_UnwrapsToKindOnly(t *testing.T) {
	t.Parallel()

	cause := errors.New("driver: connection reset")
	err := error(OpError{Op: "identity.UserByUUID", Kind: ErrStorage, Err: cause})

	if !errors.Is(err, ErrStorage) {
		t.Fatalf("expected ErrStorage kind")
	}
	if errors.Is(err, cause) {
		t.Fatalf("storage cause must not be reachable through Unwrap")
	}
	if !strings.Contains(err.Error(), "connection reset") {
		t.Fatalf("cause should be kept in message for logs: %q", err.Error())
	}
}

func TestNotFoundError(t *testing.T) {
	t.Parallel()

	err := error(NotFoundError{Op: "identity.UserByUUID", Resource: "user"})
	if !IsNotFound(err) {
		t.Fatalf("expected not found")
	}
	if got := err.Error(); got != "identity.UserByUUID: not_found: user" {
		t.Fatalf("Error()=%q", got)
	}
}
