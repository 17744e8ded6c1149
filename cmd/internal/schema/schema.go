// Package schema owns the Postgres layout used by the packs stores.
//
// The SQL is embedded and rendered per schema name so tests can apply it to an
// isolated schema and the server can apply it on boot when configured to.
package schema

import (
	"context"
	_ "embed"
	"errors"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Default is the schema used when none is configured.
const Default = "packs"

// ErrInvalidName is returned for schema names that are not plain identifiers.
var ErrInvalidName = errors.New("schema: invalid identifier")

//go:embed schema.sql
var schemaSQL string

var identRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Execer is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// ValidName reports whether name is a safe unquoted Postgres identifier.
func ValidName(name string) bool {
	return identRe.MatchString(name)
}

// Ident safely quotes a schema-qualified identifier: "schema"."name".
func Ident(schema, name string) string {
	return pgx.Identifier{schema, name}.Sanitize()
}

// Render returns the DDL for the given schema name.
func Render(name string) (string, error) {
	name = strings.TrimSpace(name)
	if !ValidName(name) {
		return "", ErrInvalidName
	}
	return strings.ReplaceAll(schemaSQL, "{{schema}}", pgx.Identifier{name}.Sanitize()), nil
}

// Apply creates the schema, tables, constraints and trust views if missing.
// It is idempotent.
func Apply(ctx context.Context, db Execer, name string) error {
	ddl, err := Render(name)
	if err != nil {
		return err
	}
	_, err = db.Exec(ctx, ddl)
	return err
}
