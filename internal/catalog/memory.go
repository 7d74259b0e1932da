package catalog

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
)

// Memory is an in-process Catalog. Partitions only understands expressions
// produced by InPredicate.Expression.
type Memory struct {
	mu         sync.Mutex
	databases  map[string]bool
	tables     map[string]*Table
	partitions map[string][]Partition

	// EnsureCalls counts EnsureDatabase invocations.
	EnsureCalls int
	// FailEnsure, when set, is returned by EnsureDatabase.
	FailEnsure error
}

// NewMemory returns an empty Memory catalog.
func NewMemory() *Memory {
	return &Memory{
		databases:  map[string]bool{},
		tables:     map[string]*Table{},
		partitions: map[string][]Partition{},
	}
}

func tableKey(db, table string) string { return db + "." + table }

// PutTable registers t along with its partitions, creating the database.
func (m *Memory) PutTable(t Table, parts ...Partition) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.databases[t.Database] = true
	cp := t
	m.tables[tableKey(t.Database, t.Name)] = &cp
	m.partitions[tableKey(t.Database, t.Name)] = append([]Partition(nil), parts...)
}

// HasDatabase reports whether db was created.
func (m *Memory) HasDatabase(db string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.databases[db]
}

func (m *Memory) TableExists(ctx context.Context, db, table string) (bool, error) {
	_, err := m.GetTable(ctx, db, table)
	if errors.Is(err, ErrTableNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (m *Memory) GetTable(ctx context.Context, db, table string) (*Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[tableKey(db, table)]
	if !ok {
		return nil, errors.Wrapf(ErrTableNotFound, "%s.%s", db, table)
	}
	cp := *t
	cp.Columns = append([]Column(nil), t.Columns...)
	cp.PartitionKeys = append([]Column(nil), t.PartitionKeys...)
	return &cp, nil
}

func (m *Memory) Partitions(ctx context.Context, db, table, expression string) ([]Partition, error) {
	t, err := m.GetTable(ctx, db, table)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	all := append([]Partition(nil), m.partitions[tableKey(db, table)]...)
	m.mu.Unlock()
	if expression == "" {
		return all, nil
	}
	pred, err := ParseInPredicate(expression)
	if err != nil {
		return nil, err
	}
	i := t.PartitionKeyIndex(pred.Column)
	if i < 0 {
		return nil, errors.Newf("catalog: %q is not a partition key of %s.%s", pred.Column, db, table)
	}
	var out []Partition
	for _, p := range all {
		if i < len(p.Values) && pred.Match(p.Values[i]) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *Memory) EnsureDatabase(ctx context.Context, db string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EnsureCalls++
	if m.FailEnsure != nil {
		return false, m.FailEnsure
	}
	if m.databases[db] {
		return false, nil
	}
	m.databases[db] = true
	return true, nil
}

func (m *Memory) UpsertTable(ctx context.Context, t Table, mode UpsertMode) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.databases[t.Database] {
		return nil, errors.Newf("catalog: database %s does not exist", t.Database)
	}
	k := tableKey(t.Database, t.Name)
	prev, ok := m.tables[k]
	if !ok || mode == Replace {
		cp := t
		m.tables[k] = &cp
		return nil, nil
	}
	merged, added, err := MergeColumns(prev.Columns, t.Columns)
	if err != nil {
		return nil, errors.Wrapf(err, "%s.%s", t.Database, t.Name)
	}
	prev.Columns = merged
	return added, nil
}
