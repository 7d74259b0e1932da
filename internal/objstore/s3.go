package objstore

import (
	"bytes"
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/cockroachdb/errors"
)

// S3API is the subset of *s3.Client used by S3. It is satisfied by
// *s3.Client and by fakes in tests.
type S3API interface {
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// deleteBatch is the DeleteObjects per-request key limit.
const deleteBatch = 1000

// S3 is a Store backed by Amazon S3.
type S3 struct {
	client S3API
}

// NewS3 wraps an S3 client.
func NewS3(client S3API) *S3 { return &S3{client: client} }

// List pages through ListObjectsV2 under prefix.
func (s *S3) List(ctx context.Context, prefix URI) ([]Object, error) {
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(prefix.Bucket),
		Prefix: aws.String(prefix.Key),
	})

	var out []Object
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "s3: list %s", prefix)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if key == "" || key[len(key)-1] == '/' {
				// folder placeholder objects
				continue
			}
			out = append(out, Object{
				URI:  URI{Scheme: SchemeS3, Bucket: prefix.Bucket, Key: key},
				Size: aws.ToInt64(obj.Size),
			})
		}
	}
	return out, nil
}

// Get downloads the whole object.
func (s *S3) Get(ctx context.Context, u URI) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(u.Bucket),
		Key:    aws.String(u.Key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, errors.Mark(errors.Wrapf(err, "s3: get %s", u), ErrNotFound)
		}
		return nil, errors.Wrapf(err, "s3: get %s", u)
	}
	defer out.Body.Close()

	b, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "s3: read %s", u)
	}
	return b, nil
}

// Put uploads body with a single PutObject call.
func (s *S3) Put(ctx context.Context, u URI, body []byte, meta map[string]string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.Bucket),
		Key:           aws.String(u.Key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String("application/octet-stream"),
		Metadata:      meta,
	})
	if err != nil {
		return errors.Wrapf(err, "s3: put %s", u)
	}
	return nil
}

// Delete lists prefix and removes the objects in batches of 1000.
func (s *S3) Delete(ctx context.Context, prefix URI) (int, error) {
	objs, err := s.List(ctx, prefix)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for start := 0; start < len(objs); start += deleteBatch {
		end := start + deleteBatch
		if end > len(objs) {
			end = len(objs)
		}
		ids := make([]types.ObjectIdentifier, 0, end-start)
		for _, o := range objs[start:end] {
			ids = append(ids, types.ObjectIdentifier{Key: aws.String(o.URI.Key)})
		}
		out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(prefix.Bucket),
			Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return deleted, errors.Wrapf(err, "s3: delete under %s", prefix)
		}
		if len(out.Errors) > 0 {
			e := out.Errors[0]
			return deleted + len(ids) - len(out.Errors), errors.Newf(
				"s3: delete %s: %s (%d failures)", aws.ToString(e.Key), aws.ToString(e.Message), len(out.Errors))
		}
		deleted += len(ids)
	}
	return deleted, nil
}
