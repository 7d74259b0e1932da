// Package ddl defines a small, backend-agnostic model for SQL DDL and renders
// CREATE TABLE statements from it.
//
// Dialect differences (identifier quoting, IF NOT EXISTS support) are
// described by a Dialect value owned by each storage backend. Column types
// are supplied by the backend through ColumnTypes; this package never guesses
// them.
package ddl

import (
	"fmt"
	"strings"
)

// Dialect describes how a backend renders identifiers and guards creation.
type Dialect struct {
	// Name is used in error messages, e.g. "postgres".
	Name string
	// Quote quotes one identifier segment. Nil emits identifiers as-is.
	Quote func(string) string
	// IfNotExists adds "IF NOT EXISTS" after CREATE TABLE.
	IfNotExists bool
	// Guard, when set, wraps the rendered statement. It receives the quoted
	// FQN and the unguarded statement. Used by backends without IF NOT EXISTS.
	Guard func(fqn, stmt string) string
}

// DoubleQuote quotes id with ANSI double quotes.
func DoubleQuote(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

func (d Dialect) quote(id string) string {
	if d.Quote == nil {
		return id
	}
	return d.Quote(id)
}

// QuoteFQN quotes each dotted segment of fqn; empty segments are dropped.
func (d Dialect) QuoteFQN(fqn string) string {
	parts := strings.Split(fqn, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, d.quote(p))
	}
	return strings.Join(out, ".")
}

// BuildCreateTableSQL renders a CREATE TABLE statement for t in dialect d.
//
// A column renders as
//
//	<Name> <SQLType> [NOT NULL] [DEFAULT <Default>]
//
// and primary-key columns are collected into a trailing PRIMARY KEY clause.
func BuildCreateTableSQL(t TableDef, d Dialect) (string, error) {
	prefix := "ddl"
	if d.Name != "" {
		prefix = d.Name + " ddl"
	}
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("%s: table FQN must not be empty", prefix)
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("%s: at least one column is required", prefix)
	}

	cols := make([]string, 0, len(t.Columns)+1)
	pks := make([]string, 0, 1)

	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("%s: column with empty name in table %s", prefix, fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("%s: column %s missing SQLType", prefix, name)
		}

		var sb strings.Builder
		sb.WriteString(d.quote(name))
		sb.WriteByte(' ')
		sb.WriteString(typ)
		if !c.Nullable {
			sb.WriteString(" NOT NULL")
		}
		if def := strings.TrimSpace(c.Default); def != "" {
			sb.WriteString(" DEFAULT ")
			sb.WriteString(def)
		}
		cols = append(cols, sb.String())

		if c.PrimaryKey {
			pks = append(pks, d.quote(name))
		}
	}
	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	create := "CREATE TABLE "
	if d.IfNotExists {
		create += "IF NOT EXISTS "
	}
	quoted := d.QuoteFQN(fqn)
	stmt := fmt.Sprintf("%s%s (\n  %s\n)", create, quoted, strings.Join(cols, ",\n  "))
	if d.Guard != nil {
		stmt = d.Guard(quoted, stmt)
	}
	return stmt, nil
}
