package upgrade

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// errBucketRequired indicates an S3 source was requested without a bucket.
var errBucketRequired = errors.New("s3 bucket is required")

// s3API is the subset of the S3 client used by S3Source.
type s3API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads upgrades stored under an S3 bucket prefix. Version
// directories map to common prefixes one level below the root prefix.
type S3Source struct {
	client s3API
	bucket string
	prefix string
}

// NewS3Source loads the default AWS config and returns a Source rooted at
// s3://bucket/prefix.
func NewS3Source(ctx context.Context, bucket, prefix string) (*S3Source, error) {
	if bucket == "" {
		return nil, errBucketRequired
	}

	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return newS3Source(s3.NewFromConfig(awsCfg), bucket, prefix), nil
}

func newS3Source(client s3API, bucket, prefix string) *S3Source {
	return &S3Source{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

// ParseS3URL splits an s3://bucket/prefix URL into bucket and prefix.
// The second return is false when the string is not an s3 URL.
func ParseS3URL(raw string) (bucket, prefix string, ok bool) {
	rest, found := strings.CutPrefix(raw, "s3://")
	if !found {
		return "", "", false
	}

	bucket, prefix, _ = strings.Cut(rest, "/")

	return bucket, strings.Trim(prefix, "/"), bucket != ""
}

// List returns the immediate children of dir. Common prefixes under the
// "/" delimiter come back as directories, objects as plain files.
func (s *S3Source) List(ctx context.Context, dir string) ([]Entry, error) {
	keyPrefix := s.key(dir)
	if keyPrefix != "" {
		keyPrefix += "/"
	}

	var (
		entries      []Entry
		continuation *string
	)

	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            &s.bucket,
			Prefix:            ptr(keyPrefix),
			Delimiter:         ptr("/"),
			ContinuationToken: continuation,
		})
		if err != nil {
			return nil, fmt.Errorf("listing s3://%s/%s: %w", s.bucket, keyPrefix, err)
		}

		for _, cp := range out.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(*cp.Prefix, keyPrefix), "/")
			entries = append(entries, Entry{Name: name, IsDir: true})
		}

		for _, obj := range out.Contents {
			name := strings.TrimPrefix(*obj.Key, keyPrefix)
			if name == "" {
				continue // directory marker object
			}

			entries = append(entries, Entry{Name: name})
		}

		if out.IsTruncated == nil || !*out.IsTruncated {
			break
		}

		continuation = out.NextContinuationToken
	}

	return entries, nil
}

// Read returns the object body at path. A missing key is reported as
// fs.ErrNotExist so manifest fallback works the same as on disk.
func (s *S3Source) Read(ctx context.Context, path string) ([]byte, error) {
	key := s.key(path)

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("s3://%s/%s: %w", s.bucket, key, fs.ErrNotExist)
		}

		return nil, fmt.Errorf("reading s3://%s/%s: %w", s.bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("reading s3://%s/%s: %w", s.bucket, key, err)
	}

	return data, nil
}

func (s *S3Source) key(path string) string {
	path = strings.Trim(path, "/")

	switch {
	case s.prefix == "":
		return path
	case path == "":
		return s.prefix
	default:
		return s.prefix + "/" + path
	}
}

func ptr[T any](v T) *T {
	return &v
}
