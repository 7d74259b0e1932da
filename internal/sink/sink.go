// Package sink writes normalized rows to the cleansed layer as Parquet.
//
// PartitionedWriter serves the batch normalizer: rows are grouped by region
// and each group becomes exactly one file under a Hive-style
// region=<code>/ prefix. IncrementalWriter serves the event normalizer: each
// call writes one file into a catalog-registered dataset and evolves the
// table's columns.
//
// Both write through objstore.Store and stamp every object with an xxh3
// checksum of its body under the "xxh3" metadata key.
package sink

import (
	"strconv"

	"github.com/zeebo/xxh3"

	"ytetl/internal/objstore"
)

// ChecksumKey is the object metadata key holding the body checksum.
const ChecksumKey = "xxh3"

// Checksum returns the hex xxh3-64 of body.
func Checksum(body []byte) string {
	return strconv.FormatUint(xxh3.Hash(body), 16)
}

func objectMeta(body []byte) map[string]string {
	return map[string]string{ChecksumKey: Checksum(body)}
}

// File describes one written object.
type File struct {
	URI       objstore.URI
	Partition string
	Rows      int
	Bytes     int
}

// WriteResult summarizes a write call.
type WriteResult struct {
	Files []File
	Rows  int
	// Deleted counts objects removed before writing (overwrite modes).
	Deleted int
}
