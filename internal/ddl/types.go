package ddl

// ColumnDef describes a single column of a table definition.
//
// Name is unquoted; quoting happens at render time through the Dialect.
// Default is emitted as a raw SQL expression.
type ColumnDef struct {
	Name       string
	SQLType    string
	Nullable   bool
	PrimaryKey bool
	Default    string
}

// TableDef holds the table name (optionally dotted, e.g. "ops.job_runs") and
// an ordered list of columns.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}

// ColumnTypes maps the logical column kinds used by the run ledger onto one
// backend's SQL types.
type ColumnTypes struct {
	ID    string // short identifier (run ids, status)
	Text  string // unbounded text (paths, errors)
	Int   string // 64-bit integer
	Time  string // timestamp with sub-second precision
	Short string // bounded text for names
}

// JobRuns returns the definition of the run ledger table under fqn.
func JobRuns(fqn string, ct ColumnTypes) TableDef {
	return TableDef{
		FQN: fqn,
		Columns: []ColumnDef{
			{Name: "run_id", SQLType: ct.ID, PrimaryKey: true},
			{Name: "job_name", SQLType: ct.Short},
			{Name: "status", SQLType: ct.ID},
			{Name: "started_at", SQLType: ct.Time},
			{Name: "finished_at", SQLType: ct.Time, Nullable: true},
			{Name: "source_path", SQLType: ct.Text, Nullable: true},
			{Name: "rows_read", SQLType: ct.Int, Default: "0"},
			{Name: "rows_written", SQLType: ct.Int, Default: "0"},
			{Name: "partitions", SQLType: ct.Int, Default: "0"},
			{Name: "error", SQLType: ct.Text, Nullable: true},
		},
	}
}
