package invitation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"packs/cmd/internal/auditlog"
	"packs/cmd/internal/membership"
	"packs/cmd/internal/schema"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists invitations in PostgreSQL.
//
// Every mutation runs in one read-committed transaction together with its
// audit entry. Uniqueness of (group_id, user_uuid) is enforced by the primary
// key, not by a check-then-insert.
type PostgresStore struct {
	pool        *pgxpool.Pool
	schema      string
	audit       *auditlog.Sink
	memberships *membership.PostgresStore
}

// StoreOption configures PostgresStore.
type StoreOption func(*PostgresStore) error

// WithSchema sets the DB schema used by the store (default: "packs").
func WithSchema(name string) StoreOption {
	return func(s *PostgresStore) error {
		name = strings.TrimSpace(name)
		if name == "" || !schema.ValidName(name) {
			return ErrInvalidInput
		}
		s.schema = name
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...StoreOption) (*PostgresStore, error) {
	st := &PostgresStore{pool: pool, schema: schema.Default}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, ErrInvalidInput
	}

	audit, err := auditlog.NewSink(st.schema)
	if err != nil {
		return nil, err
	}
	members, err := membership.NewPostgresStore(pool, membership.WithSchema(st.schema))
	if err != nil {
		return nil, err
	}
	st.audit = audit
	st.memberships = members
	return st, nil
}

func (s *PostgresStore) table(name string) string {
	return schema.Ident(s.schema, name)
}

func (s *PostgresStore) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// activeGroupTx resolves an active group by name. Inactive groups are reported as missing.
// DefaultRoleID is set only when the default role is a member role of the same group.
func (s *PostgresStore) activeGroupTx(ctx context.Context, tx pgx.Tx, op, name string) (Group, error) {
	var g Group
	err := tx.QueryRow(ctx,
		`SELECT g.group_id, g.name, g.active, g.group_expiration, r.role_id
		   FROM `+s.table("groups")+` g
		   LEFT JOIN `+s.table("roles")+` r
		     ON r.role_id = g.default_role_id AND r.group_id = g.group_id AND r.typ = 'member'
		  WHERE g.name = $1 AND g.active`,
		name,
	).Scan(&g.ID, &g.Name, &g.Active, &g.GroupExpiration, &g.DefaultRoleID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Group{}, notFound(op, "group")
	}
	if err != nil {
		return Group{}, err
	}
	return g, nil
}

// Invite inserts a new invitation and its Created/Invitation audit entry.
func (s *PostgresStore) Invite(ctx context.Context, in InviteRecord) error {
	const op = "invitation.Invite"

	err := s.inTx(ctx, func(tx pgx.Tx) error {
		g, err := s.activeGroupTx(ctx, tx, op, in.GroupName)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO `+s.table("invitations")+` (
			     group_id, user_uuid, invitation_expiration, group_expiration, added_by
			   ) VALUES ($1, $2, $3, $4, $5)`,
			g.ID, in.Member, in.InvitationExpiration, in.GroupExpiration, in.Host,
		); err != nil {
			return err
		}
		lc := auditlog.With(g.ID, in.Host).WithUser(in.Member)
		return s.audit.Record(ctx, tx, lc, auditlog.TargetInvitation, auditlog.OpCreated, "")
	})
	return classify(op, err)
}

// Update sets the changed fields of an existing invitation and logs Updated/Invitation.
func (s *PostgresStore) Update(ctx context.Context, in UpdateRecord) error {
	const op = "invitation.Update"

	err := s.inTx(ctx, func(tx pgx.Tx) error {
		g, err := s.activeGroupTx(ctx, tx, op, in.GroupName)
		if err != nil {
			return err
		}

		invitations := s.table("invitations")
		args := []any{g.ID, in.Member}
		var sets []string
		if in.InvitationExpiration.Changed() {
			args = append(args, in.InvitationExpiration.Value())
			sets = append(sets, fmt.Sprintf("invitation_expiration = $%d", len(args)))
		}
		if in.GroupExpiration.Changed() {
			args = append(args, in.GroupExpiration.Value())
			sets = append(sets, fmt.Sprintf("group_expiration = $%d", len(args)))
		}

		if len(sets) == 0 {
			var one int
			err := tx.QueryRow(ctx,
				`SELECT 1 FROM `+invitations+` WHERE group_id = $1 AND user_uuid = $2 FOR UPDATE`,
				args...,
			).Scan(&one)
			if errors.Is(err, pgx.ErrNoRows) {
				return notFound(op, "invitation")
			}
			if err != nil {
				return err
			}
		} else {
			tag, err := tx.Exec(ctx,
				`UPDATE `+invitations+` SET `+strings.Join(sets, ", ")+` WHERE group_id = $1 AND user_uuid = $2`,
				args...,
			)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return notFound(op, "invitation")
			}
		}

		lc := auditlog.With(g.ID, in.Host).WithUser(in.Member)
		return s.audit.Record(ctx, tx, lc, auditlog.TargetInvitation, auditlog.OpUpdated, "")
	})
	return classify(op, err)
}

// Delete removes the invitation if present. A missing row is not an error and
// the Deleted/Invitation entry is written either way, recording the attempt.
func (s *PostgresStore) Delete(ctx context.Context, in DeleteRecord) error {
	const op = "invitation.Delete"

	err := s.inTx(ctx, func(tx pgx.Tx) error {
		g, err := s.activeGroupTx(ctx, tx, op, in.GroupName)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`DELETE FROM `+s.table("invitations")+` WHERE group_id = $1 AND user_uuid = $2`,
			g.ID, in.Member,
		); err != nil {
			return err
		}
		lc := auditlog.With(g.ID, in.Host).WithUser(in.Member)
		return s.audit.Record(ctx, tx, lc, auditlog.TargetInvitation, auditlog.OpDeleted, "")
	})
	return classify(op, err)
}

// PendingCount counts invitations of the named group regardless of its active flag.
// An unknown group has zero pending invitations.
func (s *PostgresStore) PendingCount(ctx context.Context, groupName string) (int64, error) {
	const op = "invitation.PendingCount"

	var n int64
	err := s.pool.QueryRow(ctx,
		`SELECT count(i.user_uuid)
		   FROM `+s.table("invitations")+` i
		   JOIN `+s.table("groups")+` g ON g.group_id = i.group_id
		  WHERE g.name = $1`,
		groupName,
	).Scan(&n)
	if err != nil {
		return 0, classify(op, err)
	}
	return n, nil
}

// Accept converts the invitation into a membership in one transaction:
// lock the invitation, resolve expiration and role, upsert the membership,
// delete the invitation and write the Created/Membership entry.
//
// An invitation whose own expiration has passed is reported as ErrNotFound and
// left in place for PurgeExpired. A group without a member role of its own
// also yields ErrNotFound. Any failure rolls back every write.
func (s *PostgresStore) Accept(ctx context.Context, in AcceptRecord) (membership.Membership, error) {
	const op = "invitation.Accept"

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var out membership.Membership
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		g, err := s.activeGroupTx(ctx, tx, op, in.GroupName)
		if err != nil {
			return err
		}

		invitations := s.table("invitations")
		var inv Invitation
		err = tx.QueryRow(ctx,
			`SELECT group_id, user_uuid, invitation_expiration, group_expiration, added_by
			   FROM `+invitations+`
			  WHERE group_id = $1 AND user_uuid = $2
			  FOR UPDATE`,
			g.ID, in.Member,
		).Scan(&inv.GroupID, &inv.UserUUID, &inv.InvitationExpiration, &inv.GroupExpiration, &inv.AddedBy)
		if errors.Is(err, pgx.ErrNoRows) {
			return notFound(op, "invitation")
		}
		if err != nil {
			return err
		}
		if inv.Lapsed(now) {
			return notFound(op, "invitation expired")
		}
		if g.DefaultRoleID == nil {
			return notFound(op, "member role")
		}

		m := membership.Membership{
			GroupID:    inv.GroupID,
			UserUUID:   inv.UserUUID,
			RoleID:     *g.DefaultRoleID,
			Expiration: MembershipExpiration(inv.GroupExpiration, g.GroupExpiration, now),
			AddedBy:    inv.AddedBy,
		}
		if err := s.memberships.Upsert(ctx, tx, m); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx,
			`DELETE FROM `+invitations+` WHERE group_id = $1 AND user_uuid = $2`,
			inv.GroupID, inv.UserUUID,
		); err != nil {
			return err
		}

		lc := auditlog.With(g.ID, inv.AddedBy).WithUser(inv.UserUUID)
		if err := s.audit.Record(ctx, tx, lc, auditlog.TargetMembership, auditlog.OpCreated, AcceptedAnnotation); err != nil {
			return err
		}
		out = m
		return nil
	})
	if err != nil {
		return membership.Membership{}, classify(op, err)
	}
	return out, nil
}

// PurgeExpired deletes every lapsed invitation and logs one Deleted/Invitation
// entry per row, attributed to the original inviter.
func (s *PostgresStore) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	const op = "invitation.PurgeExpired"

	var purged int
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`DELETE FROM `+s.table("invitations")+`
			  WHERE invitation_expiration IS NOT NULL
			    AND invitation_expiration <= $1
			RETURNING group_id, user_uuid, invitation_expiration, group_expiration, added_by`,
			now,
		)
		if err != nil {
			return err
		}
		lapsed, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Invitation, error) {
			var inv Invitation
			err := row.Scan(&inv.GroupID, &inv.UserUUID, &inv.InvitationExpiration, &inv.GroupExpiration, &inv.AddedBy)
			return inv, err
		})
		if err != nil {
			return err
		}

		for _, inv := range lapsed {
			lc := auditlog.With(inv.GroupID, inv.AddedBy).WithUser(inv.UserUUID)
			if err := s.audit.Record(ctx, tx, lc, auditlog.TargetInvitation, auditlog.OpDeleted, ExpiredAnnotation); err != nil {
				return err
			}
		}
		purged = len(lapsed)
		return nil
	})
	if err != nil {
		return 0, classify(op, err)
	}
	return purged, nil
}
