// Package event turns S3 object-put notifications into rows of the category
// dataset.
package event

import (
	"net/url"

	"github.com/aws/aws-lambda-go/events"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"ytetl/internal/objstore"
)

// ObjectRef identifies one notified object.
type ObjectRef struct {
	Bucket string
	Key    string
}

// URI returns the s3 URI of the object.
func (r ObjectRef) URI() objstore.URI {
	return objstore.URI{Scheme: objstore.SchemeS3, Bucket: r.Bucket, Key: r.Key}
}

// DecodeNotification returns one ObjectRef per record, in order. Keys arrive
// form-encoded ("+" for space) and are unescaped; a key with a malformed
// escape is used as delivered.
func DecodeNotification(ev events.S3Event, log zerolog.Logger) ([]ObjectRef, error) {
	refs := make([]ObjectRef, 0, len(ev.Records))
	for i, rec := range ev.Records {
		bucket := rec.S3.Bucket.Name
		if bucket == "" {
			return nil, errors.Newf("event: record %d has no bucket name", i)
		}
		raw := rec.S3.Object.Key
		key, err := url.QueryUnescape(raw)
		if err != nil {
			log.Warn().Err(err).Int("record", i).Str("key", raw).Msg("decode: malformed key escape; using key as delivered")
			key = raw
		}
		if key == "" {
			return nil, errors.Newf("event: record %d has no object key", i)
		}
		refs = append(refs, ObjectRef{Bucket: bucket, Key: key})
	}
	return refs, nil
}
