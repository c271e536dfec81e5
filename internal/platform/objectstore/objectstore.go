// Package objectstore abstracts the S3-compatible buckets holding source files,
// portrait images and the published snapshot.
package objectstore

import (
	"context"
	"io"
	"path"
	"strings"
)

// Store is the object storage contract the pipeline depends on.
// Missing objects are reported as sentinel.ErrNotFound.
type Store interface {
	// List returns the top-level keys in bucket whose extension equals ext, in lexical order.
	List(ctx context.Context, bucket, ext string) ([]string, error)
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	Exists(ctx context.Context, bucket, key string) (bool, error)
	Put(ctx context.Context, bucket, key string, body io.ReadSeeker, size int64, contentType string) error
	// Copy replaces dstKey with the contents of srcKey in a single server-side write.
	Copy(ctx context.Context, bucket, srcKey, dstKey string) error
	// Delete removes key. An absent key yields sentinel.ErrNotFound so callers can ignore it explicitly.
	Delete(ctx context.Context, bucket, key string) error
	EnsureBucket(ctx context.Context, bucket string) (BucketStatus, error)
	Ping(ctx context.Context, bucket string) error
}

// BucketStatus is the outcome of EnsureBucket.
type BucketStatus int

const (
	BucketCreated BucketStatus = iota
	BucketAlreadyExists
)

func (s BucketStatus) String() string {
	if s == BucketAlreadyExists {
		return "already_exists"
	}
	return "created"
}

// HasExtension reports whether key names a top-level object with a non-empty
// stem and the given extension. ".csv" alone has no stem and does not match.
func HasExtension(key, ext string) bool {
	if strings.Contains(key, "/") {
		return false
	}
	e := path.Ext(key)
	return e == ext && len(key) > len(e)
}

// Stem returns key without its extension.
func Stem(key string) string {
	base := path.Base(key)
	return strings.TrimSuffix(base, path.Ext(base))
}
