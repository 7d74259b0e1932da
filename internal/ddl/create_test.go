package ddl

import (
	"strings"
	"testing"
)

var testTypes = ColumnTypes{ID: "TEXT", Text: "TEXT", Int: "INTEGER", Time: "TIMESTAMP", Short: "TEXT"}

// TestBuildCreateTableSQL checks rendering and validation across dialects.
func TestBuildCreateTableSQL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		def         TableDef
		dialect     Dialect
		wantSQL     string
		errContains string
	}{
		{
			name:        "empty FQN returns error",
			def:         TableDef{Columns: []ColumnDef{{Name: "id", SQLType: "INT"}}},
			errContains: "table FQN must not be empty",
		},
		{
			name:        "no columns returns error",
			def:         TableDef{FQN: "t"},
			errContains: "at least one column is required",
		},
		{
			name:        "missing type names the column",
			def:         TableDef{FQN: "t", Columns: []ColumnDef{{Name: "id"}}},
			dialect:     Dialect{Name: "sqlite"},
			errContains: "sqlite ddl: column id missing SQLType",
		},
		{
			name: "plain dialect",
			def: TableDef{FQN: "public.t", Columns: []ColumnDef{
				{Name: "id", SQLType: "BIGINT", PrimaryKey: true},
				{Name: "note", SQLType: "TEXT", Nullable: true, Default: "'x'"},
			}},
			wantSQL: "CREATE TABLE public.t (\n  id BIGINT NOT NULL,\n  note TEXT DEFAULT 'x',\n  PRIMARY KEY (id)\n)",
		},
		{
			name: "quoted with IF NOT EXISTS",
			def:  TableDef{FQN: "ops.runs", Columns: []ColumnDef{{Name: "id", SQLType: "TEXT"}}},
			dialect: Dialect{
				Quote:       DoubleQuote,
				IfNotExists: true,
			},
			wantSQL: "CREATE TABLE IF NOT EXISTS \"ops\".\"runs\" (\n  \"id\" TEXT NOT NULL\n)",
		},
		{
			name: "guard wraps statement",
			def:  TableDef{FQN: "runs", Columns: []ColumnDef{{Name: "id", SQLType: "INT"}}},
			dialect: Dialect{
				Guard: func(fqn, stmt string) string { return "IF missing(" + fqn + ") " + stmt },
			},
			wantSQL: "IF missing(runs) CREATE TABLE runs (\n  id INT NOT NULL\n)",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := BuildCreateTableSQL(tc.def, tc.dialect)
			if tc.errContains != "" {
				if err == nil || !strings.Contains(err.Error(), tc.errContains) {
					t.Fatalf("err = %v, want containing %q", err, tc.errContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.wantSQL {
				t.Fatalf("SQL mismatch\n got: %q\nwant: %q", got, tc.wantSQL)
			}
		})
	}
}

// TestJobRuns verifies the ledger table shape: run_id is the key and the
// completion columns are nullable.
func TestJobRuns(t *testing.T) {
	t.Parallel()

	def := JobRuns("job_runs", testTypes)
	if def.FQN != "job_runs" || len(def.Columns) != 10 {
		t.Fatalf("unexpected def: %+v", def)
	}
	nullable := map[string]bool{}
	for _, c := range def.Columns {
		nullable[c.Name] = c.Nullable
		if c.PrimaryKey && c.Name != "run_id" {
			t.Fatalf("unexpected primary key column %s", c.Name)
		}
	}
	for _, n := range []string{"finished_at", "source_path", "error"} {
		if !nullable[n] {
			t.Fatalf("%s should be nullable", n)
		}
	}
	if nullable["started_at"] || nullable["status"] {
		t.Fatalf("started_at and status must be NOT NULL")
	}
}
