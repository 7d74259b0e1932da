package catalog

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInPredicate_Expression(t *testing.T) {
	p := InPredicate{Column: "region", Values: []string{"ca", "gb", "us"}}
	assert.Equal(t, "region in ('ca','gb','us')", p.Expression())

	q := InPredicate{Column: "region", Values: []string{"o'neil"}}
	assert.Equal(t, "region in ('o''neil')", q.Expression())
}

func TestInPredicate_RoundTripAndMatch(t *testing.T) {
	orig := InPredicate{Column: "region", Values: []string{"ca", "a,b", "o'x"}}
	got, err := ParseInPredicate(orig.Expression())
	require.NoError(t, err)
	assert.Equal(t, orig, got)

	assert.True(t, got.Match("ca"))
	assert.False(t, got.Match("CA"))
	assert.False(t, got.Match(nil))
	assert.False(t, got.Match(1))
}

func TestParseInPredicate_Rejects(t *testing.T) {
	for _, expr := range []string{"", "region = 'ca'", "region in (ca)"} {
		_, err := ParseInPredicate(expr)
		assert.Error(t, err, expr)
	}
}

func TestMergeColumns(t *testing.T) {
	existing := []Column{{Name: "title", Type: "string"}, {Name: "id", Type: "bigint"}}

	merged, added, err := MergeColumns(existing, []Column{
		{Name: "ID", Type: "BIGINT"},
		{Name: "etag", Type: "string"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"etag"}, added)
	assert.Len(t, merged, 3)
	assert.Equal(t, "etag", merged[2].Name)

	_, _, err = MergeColumns(existing, []Column{{Name: "id", Type: "string"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"id"`)
}

func TestDisabled(t *testing.T) {
	var c Catalog = Disabled{}
	ok, err := c.TableExists(context.Background(), "db", "t")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = c.GetTable(context.Background(), "db", "t")
	assert.True(t, errors.Is(err, ErrTableNotFound))

	_, err = c.EnsureDatabase(context.Background(), "db")
	assert.Error(t, err)
}

func TestMemory_PartitionsAndUpsert(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.PutTable(Table{
		Database:      "raw",
		Name:          "stats",
		PartitionKeys: []Column{{Name: "region", Type: "string"}},
	},
		Partition{Values: []string{"ca"}, Location: "s3://b/raw/region=ca/"},
		Partition{Values: []string{"de"}, Location: "s3://b/raw/region=de/"},
	)

	parts, err := m.Partitions(ctx, "raw", "stats", InPredicate{Column: "region", Values: []string{"ca", "us"}}.Expression())
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.Equal(t, "s3://b/raw/region=ca/", parts[0].Location)

	_, err = m.UpsertTable(ctx, Table{Database: "clean", Name: "t"}, Evolve)
	require.Error(t, err)

	created, err := m.EnsureDatabase(ctx, "clean")
	require.NoError(t, err)
	assert.True(t, created)
	created, err = m.EnsureDatabase(ctx, "clean")
	require.NoError(t, err)
	assert.False(t, created)

	_, err = m.UpsertTable(ctx, Table{Database: "clean", Name: "t", Columns: []Column{{Name: "a", Type: "string"}}}, Evolve)
	require.NoError(t, err)
	added, err := m.UpsertTable(ctx, Table{Database: "clean", Name: "t", Columns: []Column{{Name: "b", Type: "bigint"}}}, Evolve)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, added)

	_, err = m.UpsertTable(ctx, Table{Database: "clean", Name: "t", Columns: []Column{{Name: "b", Type: "string"}}}, Evolve)
	require.Error(t, err)

	_, err = m.UpsertTable(ctx, Table{Database: "clean", Name: "t", Columns: []Column{{Name: "b", Type: "string"}}}, Replace)
	require.NoError(t, err)
	got, err := m.GetTable(ctx, "clean", "t")
	require.NoError(t, err)
	assert.Equal(t, []Column{{Name: "b", Type: "string"}}, got.Columns)
}
