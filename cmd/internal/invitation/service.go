package invitation

import (
	"context"
	"strings"
	"time"

	"packs/cmd/identity"
	"packs/cmd/internal/membership"
	"packs/cmd/internal/trust"

	"github.com/google/uuid"
)

// Observer is notified once per service operation. Implementations must be
// safe for concurrent use.
type Observer interface {
	ObserveInvitationOp(op string, err error, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveInvitationOp(string, error, time.Duration) {}

// InviteInput describes invitation creation.
type InviteInput struct {
	GroupName            string
	Host                 identity.User
	Member               identity.User
	InvitationExpiration *time.Time
	GroupExpiration      *int32
}

// UpdateInput describes a partial invitation update.
type UpdateInput struct {
	GroupName            string
	Host                 identity.User
	Member               identity.User
	InvitationExpiration Field[time.Time]
	GroupExpiration      Field[int32]
}

// DeleteInput describes invitation removal.
type DeleteInput struct {
	GroupName string
	Host      identity.User
	Member    identity.User
}

// Service validates invitation requests, routes listings to the caller's tier
// views, and delegates persistence to a Store. It holds no mutable state.
type Service struct {
	store Store
	now   func() time.Time
	obs   Observer
}

// Option configures the Service.
type Option func(*Service) error

// WithClock overrides the time source used for acceptance and purging.
func WithClock(now func() time.Time) Option {
	return func(s *Service) error {
		if now == nil {
			return ErrInvalidInput
		}
		s.now = now
		return nil
	}
}

// WithObserver reports every operation outcome to obs.
func WithObserver(obs Observer) Option {
	return func(s *Service) error {
		if obs == nil {
			return ErrInvalidInput
		}
		s.obs = obs
		return nil
	}
}

// NewService constructs a Service.
func NewService(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, ErrInvalidInput
	}
	s := &Service{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		obs:   nopObserver{},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Service) observe(op string, start time.Time, err error) {
	s.obs.ObserveInvitationOp(op, err, time.Since(start))
}

// Invite creates an invitation for member in the named group on behalf of host.
// A second invitation for the same (group, member) fails with ErrConflict.
func (s *Service) Invite(ctx context.Context, in InviteInput) (err error) {
	const op = "invitation.Invite"
	start := time.Now()
	defer func() { s.observe("invite", start, err) }()

	name, err := validGroupName(op, in.GroupName)
	if err != nil {
		return err
	}
	if err := validUsers(op, in.Host, in.Member); err != nil {
		return err
	}
	if err := validDays(op, in.GroupExpiration); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return canceled(op, err)
	}

	return s.store.Invite(ctx, InviteRecord{
		GroupName:            name,
		Host:                 in.Host.UUID,
		Member:               in.Member.UUID,
		InvitationExpiration: in.InvitationExpiration,
		GroupExpiration:      in.GroupExpiration,
	})
}

// Update changes the supplied fields of an existing invitation.
func (s *Service) Update(ctx context.Context, in UpdateInput) (err error) {
	const op = "invitation.Update"
	start := time.Now()
	defer func() { s.observe("update", start, err) }()

	name, err := validGroupName(op, in.GroupName)
	if err != nil {
		return err
	}
	if err := validUsers(op, in.Host, in.Member); err != nil {
		return err
	}
	if err := validDays(op, in.GroupExpiration.Value()); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return canceled(op, err)
	}

	return s.store.Update(ctx, UpdateRecord{
		GroupName:            name,
		Host:                 in.Host.UUID,
		Member:               in.Member.UUID,
		InvitationExpiration: in.InvitationExpiration,
		GroupExpiration:      in.GroupExpiration,
	})
}

// Delete removes an invitation. Deleting a missing invitation succeeds.
func (s *Service) Delete(ctx context.Context, in DeleteInput) (err error) {
	const op = "invitation.Delete"
	start := time.Now()
	defer func() { s.observe("delete", start, err) }()

	name, err := validGroupName(op, in.GroupName)
	if err != nil {
		return err
	}
	if err := validUsers(op, in.Host, in.Member); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return canceled(op, err)
	}

	return s.store.Delete(ctx, DeleteRecord{GroupName: name, Host: in.Host.UUID, Member: in.Member.UUID})
}

// PendingCount returns the number of invitations of the named group.
func (s *Service) PendingCount(ctx context.Context, groupName string) (n int64, err error) {
	const op = "invitation.PendingCount"
	start := time.Now()
	defer func() { s.observe("pending_count", start, err) }()

	name, err := validGroupName(op, groupName)
	if err != nil {
		return 0, err
	}
	return s.store.PendingCount(ctx, name)
}

// Accept turns member's invitation to the named group into a membership.
// Missing or lapsed invitations, and inactive groups, yield ErrNotFound.
func (s *Service) Accept(ctx context.Context, groupName string, member identity.User) (m membership.Membership, err error) {
	const op = "invitation.Accept"
	start := time.Now()
	defer func() { s.observe("accept", start, err) }()

	name, err := validGroupName(op, groupName)
	if err != nil {
		return membership.Membership{}, err
	}
	if member.UUID == uuid.Nil {
		return membership.Membership{}, invalid(op, "member is required")
	}
	if err := ctx.Err(); err != nil {
		return membership.Membership{}, canceled(op, err)
	}

	return s.store.Accept(ctx, AcceptRecord{GroupName: name, Member: member.UUID, Now: s.now()})
}

// PurgeExpired removes every invitation that lapsed before now.
func (s *Service) PurgeExpired(ctx context.Context) (n int, err error) {
	const op = "invitation.PurgeExpired"
	start := time.Now()
	defer func() { s.observe("purge_expired", start, err) }()

	if err := ctx.Err(); err != nil {
		return 0, canceled(op, err)
	}
	return s.store.PurgeExpired(ctx, s.now())
}

// InvitationsForGroup lists the named group's invitations through tier's views.
func (s *Service) InvitationsForGroup(ctx context.Context, tier trust.Tier, groupName string) (out []DisplayInvitation, err error) {
	const op = "invitation.InvitationsForGroup"
	start := time.Now()
	defer func() { s.observe("list_for_group", start, err) }()

	if !tier.Valid() {
		return nil, invalid(op, "unknown tier")
	}
	name, err := validGroupName(op, groupName)
	if err != nil {
		return nil, err
	}
	return s.store.ListForGroup(ctx, tier.Views(), name)
}

// InvitationsForUser lists the invitations user holds through tier's views.
func (s *Service) InvitationsForUser(ctx context.Context, tier trust.Tier, user identity.User) (out []DisplayInvitation, err error) {
	const op = "invitation.InvitationsForUser"
	start := time.Now()
	defer func() { s.observe("list_for_user", start, err) }()

	if !tier.Valid() {
		return nil, invalid(op, "unknown tier")
	}
	if user.UUID == uuid.Nil {
		return nil, invalid(op, "user is required")
	}
	return s.store.ListForUser(ctx, tier.Views(), user.UUID)
}

// Scoped is a listing entry point bound to one tier.
type Scoped struct {
	svc  *Service
	tier trust.Tier
}

// Scope binds listings to tier.
func (s *Service) Scope(tier trust.Tier) Scoped { return Scoped{svc: s, tier: tier} }

// Staff lists through the staff views.
func (s *Service) Staff() Scoped { return s.Scope(trust.Staff) }

// NDAed lists through the NDAed views.
func (s *Service) NDAed() Scoped { return s.Scope(trust.NDAed) }

// Vouched lists through the vouched views.
func (s *Service) Vouched() Scoped { return s.Scope(trust.Vouched) }

// Authenticated lists through the authenticated views.
func (s *Service) Authenticated() Scoped { return s.Scope(trust.Authenticated) }

// Public lists through the public views.
func (s *Service) Public() Scoped { return s.Scope(trust.Public) }

// Tier returns the tier the scope reads through.
func (s Scoped) Tier() trust.Tier { return s.tier }

// InvitationsForGroup lists the named group's invitations.
func (s Scoped) InvitationsForGroup(ctx context.Context, groupName string) ([]DisplayInvitation, error) {
	return s.svc.InvitationsForGroup(ctx, s.tier, groupName)
}

// InvitationsForUser lists the invitations user holds.
func (s Scoped) InvitationsForUser(ctx context.Context, user identity.User) ([]DisplayInvitation, error) {
	return s.svc.InvitationsForUser(ctx, s.tier, user)
}

func validGroupName(op, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", invalid(op, "group name is required")
	}
	return name, nil
}

func validUsers(op string, host, member identity.User) error {
	if host.UUID == uuid.Nil {
		return invalid(op, "host is required")
	}
	if member.UUID == uuid.Nil {
		return invalid(op, "member is required")
	}
	return nil
}

func validDays(op string, days *int32) error {
	if days != nil && *days <= 0 {
		return invalid(op, "group expiration must be positive")
	}
	return nil
}
