package identity

import (
	"context"

	"packs/cmd/internal/trust"

	"github.com/google/uuid"
)

// User is the read-only projection of a profile.
// Username is always present; the other display fields may be absent.
type User struct {
	UUID      uuid.UUID
	UserID    string
	Username  string
	FirstName *string
	LastName  *string
	Email     *string
	Picture   *string
	Trust     trust.Tier
}

// Staff reports whether the user is at the staff tier.
func (u User) Staff() bool { return u.Trust == trust.Staff }

// Store is the user lookup boundary.
type Store interface {
	UserByUUID(ctx context.Context, id uuid.UUID) (User, error)
}
