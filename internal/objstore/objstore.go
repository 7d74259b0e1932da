// Package objstore is the object-storage boundary shared by both normalizers.
//
// Objects are addressed by URI ("s3://bucket/key" or "file:///abs/path").
// Store implementations exist for S3 (aws-sdk-go-v2), the local filesystem,
// and memory; Mux routes a call to the implementation registered for the
// URI's scheme so that a job can read from S3 and write locally, or the other
// way around.
package objstore

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
)

// Supported URI schemes.
const (
	SchemeS3   = "s3"
	SchemeFile = "file"
)

// ErrNotFound is returned by Get when the object does not exist.
var ErrNotFound = errors.New("objstore: object not found")

// URI addresses an object or a prefix. For s3 URIs Bucket is the bucket name
// and Key the object key (no leading slash). For file URIs Bucket is empty and
// Key is an absolute filesystem path.
type URI struct {
	Scheme string
	Bucket string
	Key    string
}

// ParseURI parses "s3://bucket/key" or "file:///path".
func ParseURI(s string) (URI, error) {
	scheme, rest, ok := strings.Cut(s, "://")
	if !ok {
		return URI{}, errors.Newf("objstore: %q is not a URI", s)
	}
	switch scheme {
	case SchemeS3:
		bucket, key, _ := strings.Cut(rest, "/")
		if bucket == "" {
			return URI{}, errors.Newf("objstore: %q has no bucket", s)
		}
		return URI{Scheme: SchemeS3, Bucket: bucket, Key: key}, nil
	case SchemeFile:
		if !strings.HasPrefix(rest, "/") {
			return URI{}, errors.Newf("objstore: %q must be an absolute path", s)
		}
		return URI{Scheme: SchemeFile, Key: rest}, nil
	default:
		return URI{}, errors.Newf("objstore: unsupported scheme %q in %q", scheme, s)
	}
}

// MustParseURI is ParseURI for constants and tests.
func MustParseURI(s string) URI {
	u, err := ParseURI(s)
	if err != nil {
		panic(err)
	}
	return u
}

// String formats u back into URI form.
func (u URI) String() string {
	if u.Scheme == SchemeFile {
		return "file://" + u.Key
	}
	return u.Scheme + "://" + u.Bucket + "/" + u.Key
}

// Join appends path elements to u's key, inserting "/" where needed.
func (u URI) Join(elem ...string) URI {
	key := u.Key
	for _, e := range elem {
		e = strings.TrimPrefix(e, "/")
		if e == "" {
			continue
		}
		if key != "" && !strings.HasSuffix(key, "/") {
			key += "/"
		}
		key += e
	}
	u.Key = key
	return u
}

// Dir returns u with a trailing "/" on the key, for use as a listing prefix.
func (u URI) Dir() URI {
	if u.Key != "" && !strings.HasSuffix(u.Key, "/") {
		u.Key += "/"
	}
	return u
}

// Object is one listed object.
type Object struct {
	URI  URI
	Size int64
}

// Store is the minimal object-storage contract used by the pipelines.
type Store interface {
	// List returns every object under prefix, recursively.
	List(ctx context.Context, prefix URI) ([]Object, error)
	// Get reads a whole object. Missing objects yield ErrNotFound.
	Get(ctx context.Context, u URI) ([]byte, error)
	// Put writes body to u, replacing any existing object. meta is attached as
	// user metadata where the backend supports it.
	Put(ctx context.Context, u URI, body []byte, meta map[string]string) error
	// Delete removes every object under prefix and returns how many went.
	Delete(ctx context.Context, prefix URI) (int, error)
}

// Mux dispatches to a Store per scheme.
type Mux map[string]Store

func (m Mux) pick(u URI) (Store, error) {
	s, ok := m[u.Scheme]
	if !ok || s == nil {
		return nil, errors.Newf("objstore: no store registered for scheme %q", u.Scheme)
	}
	return s, nil
}

// List implements Store.
func (m Mux) List(ctx context.Context, prefix URI) ([]Object, error) {
	s, err := m.pick(prefix)
	if err != nil {
		return nil, err
	}
	return s.List(ctx, prefix)
}

// Get implements Store.
func (m Mux) Get(ctx context.Context, u URI) ([]byte, error) {
	s, err := m.pick(u)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, u)
}

// Put implements Store.
func (m Mux) Put(ctx context.Context, u URI, body []byte, meta map[string]string) error {
	s, err := m.pick(u)
	if err != nil {
		return err
	}
	return s.Put(ctx, u, body, meta)
}

// Delete implements Store.
func (m Mux) Delete(ctx context.Context, prefix URI) (int, error) {
	s, err := m.pick(prefix)
	if err != nil {
		return 0, err
	}
	return s.Delete(ctx, prefix)
}
