// Package trust enumerates the fixed trust tiers and the projection views
// each tier reads user data through.
package trust

import (
	"errors"
	"strings"
)

// Tier is a trust level. Lower values are more privileged.
type Tier int

const (
	Staff Tier = iota
	NDAed
	Vouched
	Authenticated
	Public
)

// ErrUnknownTier is returned when parsing a name that is not a tier.
var ErrUnknownTier = errors.New("trust: unknown tier")

// Views names the subject (invitee) and host (inviter) projections for a tier.
type Views struct {
	Users string
	Hosts string
}

var catalog = [...]struct {
	name  string
	views Views
}{
	Staff:         {name: "staff", views: Views{Users: "users_staff", Hosts: "hosts_staff"}},
	NDAed:         {name: "ndaed", views: Views{Users: "users_ndaed", Hosts: "hosts_ndaed"}},
	Vouched:       {name: "vouched", views: Views{Users: "users_vouched", Hosts: "hosts_vouched"}},
	Authenticated: {name: "authenticated", views: Views{Users: "users_authenticated", Hosts: "hosts_authenticated"}},
	Public:        {name: "public", views: Views{Users: "users_public", Hosts: "hosts_public"}},
}

// All returns every tier from most to least privileged.
func All() []Tier {
	return []Tier{Staff, NDAed, Vouched, Authenticated, Public}
}

// Valid reports whether t is one of the known tiers.
func (t Tier) Valid() bool {
	return t >= Staff && t <= Public
}

// Views returns the projection pair for t, or the zero Views if t is unknown.
func (t Tier) Views() Views {
	if !t.Valid() {
		return Views{}
	}
	return catalog[t].views
}

func (t Tier) String() string {
	if !t.Valid() {
		return "unknown"
	}
	return catalog[t].name
}

// Parse maps a stored tier name to a Tier.
func Parse(s string) (Tier, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, e := range catalog {
		if e.name == s {
			return Tier(i), nil
		}
	}
	return Public, ErrUnknownTier
}
