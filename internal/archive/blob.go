package archive

import (
	"context"
	"errors"
	"net/url"
	"strings"

	json "github.com/goccy/go-json"
	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	"github.com/kode4food/waypoint/pkg/api"

	_ "gocloud.dev/blob/azureblob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
)

// Archive writes terminal runs as JSON documents to a blob bucket, supporting
// S3, GCS, Azure Blob Storage, local directories and memory
type Archive struct {
	bucket *blob.Bucket
	prefix string
}

const (
	DefaultPrefix = "runs/"
	contentType   = "application/json"
)

var (
	ErrNotArchived = errors.New("run not archived")
	ErrNotTerminal = errors.New("run is not terminal")
)

// Open opens the bucket at bucketURL (for example "mem://",
// "file:///var/lib/waypoint" or "s3://bucket")
func Open(ctx context.Context, bucketURL, prefix string) (*Archive, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, err
	}
	return New(bucket, prefix), nil
}

// New wraps an open bucket. An empty prefix selects DefaultPrefix
func New(bucket *blob.Bucket, prefix string) *Archive {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Archive{bucket: bucket, prefix: prefix}
}

// Put stores a terminal run
func (a *Archive) Put(ctx context.Context, r *api.Run) error {
	if !r.IsTerminal() {
		return ErrNotTerminal
	}
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return a.bucket.WriteAll(ctx, a.keyFor(r.ID), data, &blob.WriterOptions{
		ContentType: contentType,
	})
}

// Get reads an archived run
func (a *Archive) Get(ctx context.Context, id api.RunID) (*api.Run, error) {
	data, err := a.bucket.ReadAll(ctx, a.keyFor(id))
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, ErrNotArchived
		}
		return nil, err
	}

	var r api.Run
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Delete removes an archived run. Missing runs are not an error
func (a *Archive) Delete(ctx context.Context, id api.RunID) error {
	err := a.bucket.Delete(ctx, a.keyFor(id))
	if err != nil && gcerrors.Code(err) == gcerrors.NotFound {
		return nil
	}
	return err
}

func (a *Archive) Close() error {
	return a.bucket.Close()
}

func (a *Archive) keyFor(id api.RunID) string {
	return a.prefix + url.PathEscape(string(id)) + ".json"
}
