package sink

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"ytetl/internal/objstore"
	"ytetl/internal/records"
	"ytetl/internal/schema"
)

// DefaultPartition receives rows with no usable partition value.
const DefaultPartition = "__HIVE_DEFAULT_PARTITION__"

// PartitionedWriter writes one Parquet file per partition value.
type PartitionedWriter struct {
	Store objstore.Store
	// Dest is the dataset prefix.
	Dest objstore.URI
	// RunID makes file names unique per run.
	RunID string
	Log   zerolog.Logger
}

// PartitionKey returns the object key for a partition's single file. The
// value is escaped so that it always forms exactly one path segment.
func (w *PartitionedWriter) PartitionKey(partition string) objstore.URI {
	return w.Dest.Dir().Join(
		schema.PartitionColumn+"="+EscapePartitionValue(partition),
		"part-00000-"+w.RunID+".c000.snappy.parquet",
	)
}

// Write groups rows by region and writes each group. Files are written in
// partition order; the first failure aborts and is returned unchanged along
// with what was written so far.
func (w *PartitionedWriter) Write(ctx context.Context, rows []records.Record) (WriteResult, error) {
	var res WriteResult
	if w.RunID == "" {
		return res, errors.New("sink: partitioned writer has no run id")
	}

	groups := map[string][]records.Record{}
	for _, r := range rows {
		p, ok := r[schema.PartitionColumn].(string)
		if !ok || p == "" {
			p = DefaultPartition
		}
		groups[p] = append(groups[p], r)
	}
	parts := make([]string, 0, len(groups))
	for p := range groups {
		parts = append(parts, p)
	}
	sort.Strings(parts)

	for _, p := range parts {
		start := time.Now()
		body, err := EncodeStatistics(groups[p])
		if err != nil {
			return res, errors.Wrapf(err, "partition %s", p)
		}
		u := w.PartitionKey(p)
		if err := w.Store.Put(ctx, u, body, objectMeta(body)); err != nil {
			return res, err
		}
		f := File{URI: u, Partition: p, Rows: len(groups[p]), Bytes: len(body)}
		res.Files = append(res.Files, f)
		res.Rows += f.Rows
		w.Log.Info().
			Str("uri", u.String()).
			Int("rows", f.Rows).
			Int("bytes", f.Bytes).
			Dur("took", time.Since(start)).
			Msg("write: partition written")
	}
	return res, nil
}

// EscapePartitionValue percent-encodes the characters Hive escapes in
// partition directory names.
func EscapePartitionValue(v string) string {
	var b strings.Builder
	for i := 0; i < len(v); i++ {
		c := v[i]
		if needsEscape(c) {
			fmt.Fprintf(&b, "%%%02X", c)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func needsEscape(c byte) bool {
	if c < 0x20 || c == 0x7F {
		return true
	}
	switch c {
	case '"', '#', '%', '\'', '*', '/', ':', '=', '?', '\\', '{', '[', ']', '^':
		return true
	}
	return false
}
