// Package invitation manages group invitations: creating, updating, deleting,
// listing them through trust views, and turning them into memberships.
package invitation

import (
	"time"

	"github.com/google/uuid"
)

// AcceptedAnnotation is recorded on the membership audit entry written by Accept.
const AcceptedAnnotation = "accepted invitation"

// ExpiredAnnotation is recorded on the deletion entries written by PurgeExpired.
const ExpiredAnnotation = "invitation expired"

// Group is the subset of a group row the invitation flow needs.
type Group struct {
	ID              int32
	Name            string
	Active          bool
	GroupExpiration *int32
	DefaultRoleID   *int32
}

// Invitation is a pending offer for a user to join a group, keyed by (GroupID, UserUUID).
type Invitation struct {
	GroupID              int32
	UserUUID             uuid.UUID
	InvitationExpiration *time.Time
	GroupExpiration      *int32
	AddedBy              uuid.UUID
}

// Lapsed reports whether the invitation itself has expired at now.
func (i Invitation) Lapsed(now time.Time) bool {
	return i.InvitationExpiration != nil && !i.InvitationExpiration.After(now)
}

// Host is the inviter as seen through a host view.
type Host struct {
	UserUUID  uuid.UUID `json:"user_uuid"`
	FirstName *string   `json:"first_name"`
	LastName  *string   `json:"last_name"`
	Username  string    `json:"username"`
	Email     *string   `json:"email"`
}

// DisplayInvitation is the read model returned by listings. It is never persisted.
type DisplayInvitation struct {
	UserUUID             uuid.UUID  `json:"user_uuid"`
	Picture              *string    `json:"picture"`
	FirstName            *string    `json:"first_name"`
	LastName             *string    `json:"last_name"`
	Username             string     `json:"username"`
	Email                *string    `json:"email"`
	Staff                bool       `json:"is_staff"`
	InvitationExpiration *time.Time `json:"invitation_expiration"`
	GroupExpiration      *int32     `json:"group_expiration"`
	GroupName            string     `json:"group_name"`
	HasTerms             bool       `json:"terms"`
	AddedBy              Host       `json:"added_by"`
}

// MembershipExpiration resolves when a membership created from an invitation ends.
// The invitation's day count wins over the group default; with neither the
// membership is permanent and nil is returned.
func MembershipExpiration(invitationDays, groupDays *int32, now time.Time) *time.Time {
	days := invitationDays
	if days == nil {
		days = groupDays
	}
	if days == nil {
		return nil
	}
	ts := now.Add(time.Duration(*days) * 24 * time.Hour)
	return &ts
}
