package sink

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ytetl/internal/catalog"
	"ytetl/internal/config"
	"ytetl/internal/objstore"
	"ytetl/internal/records"
	"ytetl/internal/schema"
)

// Batch is a set of rows sharing one column list.
type Batch struct {
	Fields []schema.Field
	Rows   []records.Record
}

// IncrementalWriter appends to, or replaces, a catalog-registered dataset.
type IncrementalWriter struct {
	Store    objstore.Store
	Catalog  catalog.Catalog
	Dest     objstore.URI
	Database string
	Table    string
	Mode     config.WriteMode
	Log      zerolog.Logger

	// NewID names files; uuid.NewString when nil.
	NewID func() string
}

// EnsureDatabase creates the target database if needed. An existing
// database is success.
func (w *IncrementalWriter) EnsureDatabase(ctx context.Context) error {
	created, err := w.Catalog.EnsureDatabase(ctx, w.Database)
	if err != nil {
		return errors.Wrapf(err, "sink: ensure database %s", w.Database)
	}
	w.Log.Info().Str("database", w.Database).Bool("created", created).Msg("ensure_db: database ready")
	return nil
}

// CatalogColumns converts fields to catalog columns.
func CatalogColumns(fields []schema.Field) []catalog.Column {
	out := make([]catalog.Column, len(fields))
	for i, f := range fields {
		out[i] = catalog.Column{Name: f.Target, Type: f.Type.HiveType()}
	}
	return out
}

// Write stores b as one new file and updates the catalog table. An empty
// batch is a no-op. In overwrite modes every object under Dest is deleted
// first; there are no partition columns, so overwrite_partitions replaces the
// whole dataset.
func (w *IncrementalWriter) Write(ctx context.Context, b Batch) (WriteResult, error) {
	var res WriteResult
	if len(b.Rows) == 0 {
		return res, nil
	}
	if len(b.Fields) == 0 {
		return res, errors.New("sink: batch has rows but no columns")
	}
	start := time.Now()

	body, err := EncodeDynamic(b.Fields, b.Rows)
	if err != nil {
		return res, err
	}

	upsert := catalog.Evolve
	switch w.Mode {
	case config.WriteAppend, "":
		if err := w.checkSchema(ctx, b.Fields); err != nil {
			return res, err
		}
	case config.WriteOverwrite, config.WriteOverwritePartitions:
		upsert = catalog.Replace
		n, err := w.Store.Delete(ctx, w.Dest.Dir())
		if err != nil {
			return res, errors.Wrapf(err, "sink: clear %s", w.Dest)
		}
		res.Deleted = n
	default:
		return res, errors.Newf("sink: unknown write mode %q", w.Mode)
	}

	newID := w.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	u := w.Dest.Dir().Join(newID() + ".snappy.parquet")
	if err := w.Store.Put(ctx, u, body, objectMeta(body)); err != nil {
		return res, err
	}
	res.Files = append(res.Files, File{URI: u, Rows: len(b.Rows), Bytes: len(body)})
	res.Rows = len(b.Rows)

	added, err := w.Catalog.UpsertTable(ctx, catalog.Table{
		Database:       w.Database,
		Name:           w.Table,
		Location:       w.Dest.Dir().String(),
		Classification: "parquet",
		Columns:        CatalogColumns(b.Fields),
	}, upsert)
	if err != nil {
		return res, errors.Wrapf(err, "sink: register %s.%s", w.Database, w.Table)
	}
	if len(added) > 0 {
		w.Log.Info().Strs("columns", added).Msg("write: schema evolved")
	}
	w.Log.Info().
		Str("uri", u.String()).
		Str("mode", string(w.Mode)).
		Int("rows", res.Rows).
		Int("deleted", res.Deleted).
		Dur("took", time.Since(start)).
		Msg("write: file written")
	return res, nil
}

// checkSchema rejects a batch whose columns conflict with the registered
// table before anything is written.
func (w *IncrementalWriter) checkSchema(ctx context.Context, fields []schema.Field) error {
	existing, err := w.Catalog.GetTable(ctx, w.Database, w.Table)
	if errors.Is(err, catalog.ErrTableNotFound) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "sink: look up %s.%s", w.Database, w.Table)
	}
	if _, _, err := catalog.MergeColumns(existing.Columns, CatalogColumns(fields)); err != nil {
		return errors.Wrapf(err, "sink: %s.%s", w.Database, w.Table)
	}
	return nil
}
