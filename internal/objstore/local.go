package objstore

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
)

// Local is a filesystem-backed Store for file:// URIs. Metadata passed to Put
// is discarded.
type Local struct{}

// NewLocal returns a Local store.
func NewLocal() *Local { return &Local{} }

// Get reads the file at u.Key.
//
// If ctx is already done, Get returns the context error without touching the
// filesystem.
func (l *Local) Get(ctx context.Context, u URI) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(u.Key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Mark(errors.Wrapf(err, "open %s", u.Key), ErrNotFound)
		}
		return nil, errors.Wrapf(err, "open %s", u.Key)
	}
	return b, nil
}

// List walks the directory named by prefix. A prefix that is not a directory
// is treated as a path prefix within its parent directory, matching S3
// semantics.
func (l *Local) List(ctx context.Context, prefix URI) ([]Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	root := prefix.Key
	if !strings.HasSuffix(root, "/") {
		root = filepath.Dir(root)
	}

	var out []Object
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() || !strings.HasPrefix(p, prefix.Key) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		out = append(out, Object{URI: URI{Scheme: SchemeFile, Key: p}, Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "list %s", prefix.Key)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URI.Key < out[j].URI.Key })
	return out, nil
}

// Put writes body to u.Key, creating parent directories.
func (l *Local) Put(ctx context.Context, u URI, body []byte, _ map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(u.Key), 0o755); err != nil {
		return errors.Wrapf(err, "mkdir %s", filepath.Dir(u.Key))
	}
	if err := os.WriteFile(u.Key, body, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", u.Key)
	}
	return nil
}

// Delete removes every file under prefix.
func (l *Local) Delete(ctx context.Context, prefix URI) (int, error) {
	objs, err := l.List(ctx, prefix)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, o := range objs {
		if err := os.Remove(o.URI.Key); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return n, errors.Wrapf(err, "remove %s", o.URI.Key)
		}
		n++
	}
	return n, nil
}
