// Package auditlog is the append-only audit trail for group mutations.
//
// Entries are written with the caller's executor so that a mutation and its
// audit record commit or roll back together.
package auditlog

import (
	"context"
	"errors"
	"strings"
	"time"

	"packs/cmd/internal/schema"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
)

// TargetType names the kind of row an entry is about.
type TargetType string

const (
	TargetInvitation TargetType = "invitation"
	TargetMembership TargetType = "membership"
)

// OperationType names what happened to the target.
type OperationType string

const (
	OpCreated OperationType = "created"
	OpUpdated OperationType = "updated"
	OpDeleted OperationType = "deleted"
)

// ErrInvalidInput is returned for entries missing a group, actor or type.
var ErrInvalidInput = errors.New("auditlog: invalid input")

// LogContext ties an entry to a group, the acting user and an optional target user.
// Values are immutable; WithUser returns a copy.
type LogContext struct {
	GroupID int32
	Actor   uuid.UUID
	Target  *uuid.UUID
}

// With starts a LogContext for a group and actor.
func With(groupID int32, actor uuid.UUID) LogContext {
	return LogContext{GroupID: groupID, Actor: actor}
}

// WithUser returns a copy of c targeting user.
func (c LogContext) WithUser(user uuid.UUID) LogContext {
	c.Target = &user
	return c
}

// Entry is a persisted audit record.
type Entry struct {
	ID         string
	CreatedAt  time.Time
	GroupID    int32
	Actor      uuid.UUID
	Target     *uuid.UUID
	TargetType TargetType
	Operation  OperationType
	Annotation *string
}

// Execer writes entries. Both *pgxpool.Pool and pgx.Tx satisfy it.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Querier reads entries.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Sink records entries into the logs table of a schema.
type Sink struct {
	schema string
}

// NewSink returns a Sink for the given schema (default schema.Default).
func NewSink(schemaName string) (*Sink, error) {
	schemaName = strings.TrimSpace(schemaName)
	if schemaName == "" {
		schemaName = schema.Default
	}
	if !schema.ValidName(schemaName) {
		return nil, schema.ErrInvalidName
	}
	return &Sink{schema: schemaName}, nil
}

// Record appends one entry. An empty annotation is stored as NULL.
func (s *Sink) Record(ctx context.Context, db Execer, lc LogContext, target TargetType, op OperationType, annotation string) error {
	if s == nil || db == nil {
		return ErrInvalidInput
	}
	if lc.GroupID <= 0 || lc.Actor == uuid.Nil || target == "" || op == "" {
		return ErrInvalidInput
	}

	var note *string
	if a := strings.TrimSpace(annotation); a != "" {
		note = &a
	}

	logs := schema.Ident(s.schema, "logs")
	_, err := db.Exec(ctx,
		`INSERT INTO `+logs+` (
		     log_id, created_at, group_id, actor_user_uuid, target_user_uuid, target_type, operation_type, annotation
		   ) VALUES ($1, now(), $2, $3, $4, $5, $6, $7)`,
		ulid.Make().String(),
		lc.GroupID,
		lc.Actor,
		lc.Target,
		string(target),
		string(op),
		note,
	)
	return err
}

// ListByGroup returns all entries for a group in insertion order.
func (s *Sink) ListByGroup(ctx context.Context, db Querier, groupID int32) ([]Entry, error) {
	if s == nil || db == nil {
		return nil, ErrInvalidInput
	}
	logs := schema.Ident(s.schema, "logs")
	rows, err := db.Query(ctx,
		`SELECT log_id, created_at, group_id, actor_user_uuid, target_user_uuid, target_type, operation_type, annotation
		   FROM `+logs+`
		  WHERE group_id = $1
		  ORDER BY log_id`,
		groupID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e          Entry
			targetType string
			op         string
		)
		if err := rows.Scan(&e.ID, &e.CreatedAt, &e.GroupID, &e.Actor, &e.Target, &targetType, &op, &e.Annotation); err != nil {
			return nil, err
		}
		e.TargetType = TargetType(targetType)
		e.Operation = OperationType(op)
		out = append(out, e)
	}
	return out, rows.Err()
}
