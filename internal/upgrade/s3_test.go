package upgrade

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	listFn func(in *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error)
	getFn  func(in *s3.GetObjectInput) (*s3.GetObjectOutput, error)
}

func (f *fakeS3) ListObjectsV2(
	_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options),
) (*s3.ListObjectsV2Output, error) {
	return f.listFn(in)
}

func (f *fakeS3) GetObject(
	_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options),
) (*s3.GetObjectOutput, error) {
	return f.getFn(in)
}

func TestS3Source_List_commonPrefixesAreDirectories(t *testing.T) {
	t.Parallel()

	var gotInput *s3.ListObjectsV2Input

	fake := &fakeS3{
		listFn: func(in *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error) {
			gotInput = in

			return &s3.ListObjectsV2Output{
				CommonPrefixes: []types.CommonPrefix{
					{Prefix: ptr("upgrades/1/")},
					{Prefix: ptr("upgrades/2/")},
				},
				Contents: []types.Object{
					{Key: ptr("upgrades/readme.txt")},
				},
			}, nil
		},
	}

	src := newS3Source(fake, "bucket", "upgrades")

	entries, err := src.List(context.Background(), "")
	require.NoError(t, err)

	require.NotNil(t, gotInput)
	assert.Equal(t, "upgrades/", *gotInput.Prefix)
	assert.Equal(t, "/", *gotInput.Delimiter)

	require.Len(t, entries, 3)
	assert.Equal(t, Entry{Name: "1", IsDir: true}, entries[0])
	assert.Equal(t, Entry{Name: "2", IsDir: true}, entries[1])
	assert.Equal(t, Entry{Name: "readme.txt", IsDir: false}, entries[2])
}

func TestS3Source_List_paginates(t *testing.T) {
	t.Parallel()

	calls := 0

	fake := &fakeS3{
		listFn: func(in *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error) {
			calls++

			if calls == 1 {
				assert.Nil(t, in.ContinuationToken)

				return &s3.ListObjectsV2Output{
					CommonPrefixes:        []types.CommonPrefix{{Prefix: ptr("1/")}},
					IsTruncated:           ptr(true),
					NextContinuationToken: ptr("tok"),
				}, nil
			}

			require.NotNil(t, in.ContinuationToken)
			assert.Equal(t, "tok", *in.ContinuationToken)

			return &s3.ListObjectsV2Output{
				CommonPrefixes: []types.CommonPrefix{{Prefix: ptr("2/")}},
			}, nil
		},
	}

	src := newS3Source(fake, "bucket", "")

	entries, err := src.List(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.Len(t, entries, 2)
	assert.Equal(t, "1", entries[0].Name)
	assert.Equal(t, "2", entries[1].Name)
}

func TestS3Source_Read_returnsBody(t *testing.T) {
	t.Parallel()

	var gotKey string

	fake := &fakeS3{
		getFn: func(in *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
			gotKey = *in.Key

			return &s3.GetObjectOutput{
				Body: io.NopCloser(strings.NewReader("CREATE TABLE foo (id INT);")),
			}, nil
		},
	}

	src := newS3Source(fake, "bucket", "upgrades")

	data, err := src.Read(context.Background(), "1/1-init.sql")
	require.NoError(t, err)
	assert.Equal(t, "upgrades/1/1-init.sql", gotKey)
	assert.Equal(t, "CREATE TABLE foo (id INT);", string(data))
}

func TestS3Source_Read_missingKeyMapsToNotExist(t *testing.T) {
	t.Parallel()

	fake := &fakeS3{
		getFn: func(_ *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
			return nil, fmt.Errorf("operation error S3: GetObject, %w", &types.NoSuchKey{})
		},
	}

	src := newS3Source(fake, "bucket", "")

	_, err := src.Read(context.Background(), "1/_manifest")
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestS3Source_Read_otherErrorIsNotNotExist(t *testing.T) {
	t.Parallel()

	fake := &fakeS3{
		getFn: func(_ *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
			return nil, errors.New("access denied")
		},
	}

	src := newS3Source(fake, "bucket", "")

	_, err := src.Read(context.Background(), "1/_manifest")
	require.Error(t, err)
	assert.False(t, errors.Is(err, fs.ErrNotExist))
}

func TestParseS3URL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw        string
		wantBucket string
		wantPrefix string
		wantOK     bool
	}{
		{raw: "s3://bucket/path/to/upgrades", wantBucket: "bucket", wantPrefix: "path/to/upgrades", wantOK: true},
		{raw: "s3://bucket", wantBucket: "bucket", wantPrefix: "", wantOK: true},
		{raw: "s3://bucket/", wantBucket: "bucket", wantPrefix: "", wantOK: true},
		{raw: "/local/dir", wantOK: false},
		{raw: "s3://", wantOK: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()

			bucket, prefix, ok := ParseS3URL(tt.raw)
			assert.Equal(t, tt.wantOK, ok)

			if tt.wantOK {
				assert.Equal(t, tt.wantBucket, bucket)
				assert.Equal(t, tt.wantPrefix, prefix)
			}
		})
	}
}
