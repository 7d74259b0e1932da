package source

import (
	"context"
	"sort"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ytetl/internal/catalog"
	"ytetl/internal/objstore"
	"ytetl/internal/records"
)

var regions = []string{"ca", "gb", "us"}

func newSelector(cat catalog.Catalog, store objstore.Store, rawPath string) *Selector {
	return &Selector{
		Catalog: cat,
		Store:   store,
		Opts: Options{
			Database:        "de_youtube_raw",
			Table:           "raw_statistics",
			RawPath:         objstore.MustParseURI(rawPath),
			Regions:         regions,
			ReadConcurrency: 2,
		},
	}
}

func ids(recs []records.Record) []string {
	var out []string
	for _, r := range recs {
		out = append(out, r["video_id"].(string))
	}
	sort.Strings(out)
	return out
}

// errCatalog fails every existence check.
type errCatalog struct{ catalog.Disabled }

func (errCatalog) TableExists(context.Context, string, string) (bool, error) {
	return false, errors.New("AccessDeniedException")
}

/*
TestSelect_CatalogPartitioned pushes the region predicate down: only the
allowed partitions are read, the raw path is never listed, and each record
gets the partition's region value.
*/
func TestSelect_CatalogPartitioned(t *testing.T) {
	store := objstore.NewMemory()
	store.Seed(objstore.MustParseURI("s3://raw/stats/region=ca/a.json"), []byte(`{"video_id":"ca1"}`+"\n"+`{"video_id":"ca2"}`))
	store.Seed(objstore.MustParseURI("s3://raw/stats/region=ca/_SUCCESS"), nil)
	store.Seed(objstore.MustParseURI("s3://raw/stats/region=us/b.json"), []byte(`[{"video_id":"us1"}]`))
	store.Seed(objstore.MustParseURI("s3://raw/stats/region=in/c.json"), []byte(`{"video_id":"in1"}`))
	store.Seed(objstore.MustParseURI("s3://landing/other.json"), []byte(`{"video_id":"raw1","region":"ca"}`))

	cat := catalog.NewMemory()
	cat.PutTable(catalog.Table{
		Database:       "de_youtube_raw",
		Name:           "raw_statistics",
		Location:       "s3://raw/stats/",
		Classification: "json",
		PartitionKeys:  []catalog.Column{{Name: "region", Type: "string"}},
	},
		catalog.Partition{Values: []string{"ca"}, Location: "s3://raw/stats/region=ca/"},
		catalog.Partition{Values: []string{"us"}, Location: "s3://raw/stats/region=us/"},
		catalog.Partition{Values: []string{"in"}, Location: "s3://raw/stats/region=in/"},
	)

	res, err := newSelector(cat, store, "s3://landing/").Select(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PathCatalog, res.Path)
	assert.True(t, res.Filtered)
	assert.Equal(t, []string{"ca1", "ca2", "us1"}, ids(res.Records))
	assert.Equal(t, 2, store.Lists, "one listing per pushed-down partition")
	assert.Equal(t, 2, res.Objects)
	for _, r := range res.Records {
		assert.Contains(t, regions, r["region"])
	}
}

// TestSelect_CatalogUnpartitioned evaluates the predicate per row and reads
// CSV when the table is classified as csv.
func TestSelect_CatalogUnpartitioned(t *testing.T) {
	store := objstore.NewMemory()
	store.Seed(objstore.MustParseURI("s3://raw/flat/part-0.csv"), []byte("video_id,region\nv1,ca\nv2,in\nv3,gb\n"))

	cat := catalog.NewMemory()
	cat.PutTable(catalog.Table{
		Database:       "de_youtube_raw",
		Name:           "raw_statistics",
		Location:       "s3://raw/flat",
		Classification: "csv",
	})

	res, err := newSelector(cat, store, "s3://landing/").Select(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PathCatalog, res.Path)
	assert.Equal(t, []string{"v1", "v3"}, ids(res.Records))
}

/*
TestSelect_RawPathFiltered covers the fallback: every object under the raw
path is decoded recursively and only allow-listed regions survive.
*/
func TestSelect_RawPathFiltered(t *testing.T) {
	store := objstore.NewMemory()
	store.Seed(objstore.MustParseURI("s3://landing/raw/2024/01/a.json"), []byte(`{"video_id":"a","region":"ca"}`+"\n"+`{"video_id":"b","region":"in"}`))
	store.Seed(objstore.MustParseURI("s3://landing/raw/2024/02/b.json"), []byte(`[{"video_id":"c","region":"us"},{"video_id":"d"}]`))
	store.Seed(objstore.MustParseURI("s3://landing/raw/2024/"), nil)

	res, err := newSelector(catalog.Disabled{}, store, "s3://landing/raw/").Select(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PathRawPath, res.Path)
	assert.True(t, res.Filtered)
	assert.Equal(t, 2, res.Objects)
	assert.Equal(t, []string{"a", "c"}, ids(res.Records))
}

// TestSelect_RawPathFilterFailureKeepsAll: a region that is not a string
// cannot be compared, so the unfiltered set is returned.
func TestSelect_RawPathFilterFailureKeepsAll(t *testing.T) {
	store := objstore.NewMemory()
	store.Seed(objstore.MustParseURI("file:///data/raw/a.json"),
		[]byte(`{"video_id":"a","region":"ca"}`+"\n"+`{"video_id":"b","region":{"code":"in"}}`+"\n"+`{"video_id":"c","region":"in"}`))

	res, err := newSelector(catalog.Disabled{}, store, "file:///data/raw/").Select(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Filtered)
	assert.Equal(t, []string{"a", "b", "c"}, ids(res.Records))
}

func TestSelect_ExistenceErrorPropagates(t *testing.T) {
	store := objstore.NewMemory()
	_, err := newSelector(errCatalog{}, store, "s3://landing/").Select(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AccessDeniedException")
	assert.Zero(t, store.Lists, "raw path must not be scanned")
}

func TestSelect_GetErrorPropagates(t *testing.T) {
	store := objstore.NewMemory()
	store.Seed(objstore.MustParseURI("s3://landing/a.json"), []byte(`{}`))
	boom := errors.New("throttled")
	store.FailGet = func(objstore.URI) error { return boom }

	_, err := newSelector(catalog.Disabled{}, store, "s3://landing/").Select(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
}

func TestFilterRegions(t *testing.T) {
	pred := catalog.InPredicate{Column: "region", Values: regions}
	recs := []records.Record{
		{"region": "ca"}, {"region": nil}, {}, {"region": "fr"},
	}
	kept, err := FilterRegions(recs, pred)
	require.NoError(t, err)
	require.Len(t, kept, 1)

	_, err = FilterRegions([]records.Record{{"region": "ca"}, {"region": 7}}, pred)
	var fe *FilterError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, 1, fe.Index)
}

func TestFormatOf(t *testing.T) {
	f, err := formatOf("")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)
	f, err = formatOf("CSV")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)
	_, err = formatOf("parquet")
	assert.Error(t, err)
}
