package invitation

import (
	"testing"
	"time"
)

func TestMembershipExpiration(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d30, d90 := int32(30), int32(90)

	cases := []struct {
		name       string
		invitation *int32
		group      *int32
		want       *time.Time
	}{
		{name: "invitation override wins", invitation: &d30, group: &d90, want: ptrTime(now.Add(30 * 24 * time.Hour))},
		{name: "group default", invitation: nil, group: &d90, want: ptrTime(now.Add(90 * 24 * time.Hour))},
		{name: "invitation only", invitation: &d30, group: nil, want: ptrTime(now.Add(30 * 24 * time.Hour))},
		{name: "permanent", invitation: nil, group: nil, want: nil},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := MembershipExpiration(tc.invitation, tc.group, now)
			switch {
			case tc.want == nil && got != nil:
				t.Fatalf("expected permanent membership, got %v", *got)
			case tc.want != nil && (got == nil || !got.Equal(*tc.want)):
				t.Fatalf("MembershipExpiration()=%v want=%v", got, *tc.want)
			}
		})
	}
}

func TestInvitationLapsed(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	if (Invitation{}).Lapsed(now) {
		t.Fatalf("invitation without expiration never lapses")
	}
	if !(Invitation{InvitationExpiration: ptrTime(now)}).Lapsed(now) {
		t.Fatalf("invitation expiring now has lapsed")
	}
	if (Invitation{InvitationExpiration: ptrTime(now.Add(time.Minute))}).Lapsed(now) {
		t.Fatalf("future expiration has not lapsed")
	}
}

func TestField(t *testing.T) {
	t.Parallel()

	keep := Keep[int32]()
	if keep.Changed() || keep.Value() != nil {
		t.Fatalf("keep must not change the column")
	}
	var zero Field[int32]
	if zero.Changed() {
		t.Fatalf("zero value must keep")
	}

	set := Set[int32](7)
	if !set.Changed() || set.Value() == nil || *set.Value() != 7 {
		t.Fatalf("set must write the value")
	}

	cleared := Clear[int32]()
	if !cleared.Changed() || cleared.Value() != nil {
		t.Fatalf("clear must write NULL")
	}

	if SetIfPresent[int32](nil).Changed() {
		t.Fatalf("absent value must keep")
	}
	v := int32(3)
	if got := SetIfPresent(&v).Value(); got == nil || *got != 3 {
		t.Fatalf("present value must set")
	}
}

func ptrTime(t time.Time) *time.Time { return &t }
