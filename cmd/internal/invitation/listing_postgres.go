package invitation

import (
	"context"

	"packs/cmd/internal/trust"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// listFilter restricts a listing to one group or one invitee. column is a fixed
// expression chosen by the caller, never user input.
type listFilter struct {
	column string
	arg    any
}

// ListForGroup lists invitations of an active group projected through views.
// An inactive or unknown group yields an empty result.
func (s *PostgresStore) ListForGroup(ctx context.Context, views trust.Views, groupName string) ([]DisplayInvitation, error) {
	const op = "invitation.ListForGroup"
	out, err := s.listInvitations(ctx, views, listFilter{column: "g.name", arg: groupName})
	return out, classify(op, err)
}

// ListForUser lists invitations held by user in active groups, projected through views.
func (s *PostgresStore) ListForUser(ctx context.Context, views trust.Views, user uuid.UUID) ([]DisplayInvitation, error) {
	const op = "invitation.ListForUser"
	out, err := s.listInvitations(ctx, views, listFilter{column: "i.user_uuid", arg: user})
	return out, classify(op, err)
}

// listInvitations is the single join shared by every tier: the tier only
// decides which subject and host views the rows are read through.
func (s *PostgresStore) listInvitations(ctx context.Context, views trust.Views, f listFilter) ([]DisplayInvitation, error) {
	if views.Users == "" || views.Hosts == "" {
		return nil, ErrInvalidInput
	}

	rows, err := s.pool.Query(ctx,
		`SELECT u.user_uuid, u.picture, u.first_name, u.last_name, u.username, u.email, u.trust,
		        i.invitation_expiration, i.group_expiration,
		        g.name, t.text IS NOT NULL,
		        h.user_uuid, h.first_name, h.last_name, h.username, h.email
		   FROM `+s.table("invitations")+` i
		   JOIN `+s.table("groups")+` g ON g.group_id = i.group_id
		   LEFT JOIN `+s.table("terms")+` t ON t.group_id = i.group_id
		   JOIN `+s.table(views.Users)+` u ON u.user_uuid = i.user_uuid
		   JOIN `+s.table(views.Hosts)+` h ON h.user_uuid = i.added_by
		  WHERE g.active AND `+f.column+` = $1
		  ORDER BY g.name, u.user_uuid`,
		f.arg,
	)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (DisplayInvitation, error) {
		var (
			d        DisplayInvitation
			trustRaw string
		)
		err := row.Scan(
			&d.UserUUID, &d.Picture, &d.FirstName, &d.LastName, &d.Username, &d.Email, &trustRaw,
			&d.InvitationExpiration, &d.GroupExpiration,
			&d.GroupName, &d.HasTerms,
			&d.AddedBy.UserUUID, &d.AddedBy.FirstName, &d.AddedBy.LastName, &d.AddedBy.Username, &d.AddedBy.Email,
		)
		if err != nil {
			return DisplayInvitation{}, err
		}
		tier, _ := trust.Parse(trustRaw)
		d.Staff = tier == trust.Staff
		return d, nil
	})
}
