package invitation

import (
	"context"
	"time"

	"packs/cmd/internal/membership"
	"packs/cmd/internal/trust"

	"github.com/google/uuid"
)

// InviteRecord is a normalized invitation insert payload.
type InviteRecord struct {
	GroupName            string
	Host                 uuid.UUID
	Member               uuid.UUID
	InvitationExpiration *time.Time
	GroupExpiration      *int32
}

// UpdateRecord changes only the fields that are not Keep.
type UpdateRecord struct {
	GroupName            string
	Host                 uuid.UUID
	Member               uuid.UUID
	InvitationExpiration Field[time.Time]
	GroupExpiration      Field[int32]
}

// DeleteRecord identifies the invitation to remove.
type DeleteRecord struct {
	GroupName string
	Host      uuid.UUID
	Member    uuid.UUID
}

// AcceptRecord identifies the invitation to accept and the acceptance time.
type AcceptRecord struct {
	GroupName string
	Member    uuid.UUID
	Now       time.Time
}

// Store is the persistence boundary for invitations. Every mutation writes its
// audit entry in the same transaction.
type Store interface {
	Invite(ctx context.Context, in InviteRecord) error
	Update(ctx context.Context, in UpdateRecord) error
	Delete(ctx context.Context, in DeleteRecord) error
	PendingCount(ctx context.Context, groupName string) (int64, error)
	Accept(ctx context.Context, in AcceptRecord) (membership.Membership, error)
	ListForGroup(ctx context.Context, views trust.Views, groupName string) ([]DisplayInvitation, error)
	ListForUser(ctx context.Context, views trust.Views, user uuid.UUID) ([]DisplayInvitation, error)
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}
