// Package storage implements a thin shim that normalizes reading and writing
// parquet tables between the local filesystem and S3-compatible object
// storage. Logical URIs carry an s3:// prefix for object-storage locations;
// anything else is a plain local path. A local emulation mode redirects
// object-storage calls into a directory tree for development without cloud
// credentials.
//
// The shim adds no retries, caching, or concurrency control: every call is
// synchronous and failures from the underlying SDKs propagate unchanged.
package storage

import (
	"context"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"

	"lakeview/internal/config"
	"lakeview/internal/domain"
)

// Scheme is the only recognised remote URI prefix.
const Scheme = "s3://"

// Store is the capability surface of the shim. Two variants implement it:
// S3Store against a live endpoint and LocalStore in emulation mode.
type Store interface {
	// IsObjectURI reports whether uri names an object-storage location.
	IsObjectURI(uri string) bool

	// ObjectKey strips the scheme prefix and leading separators to produce
	// a backend-relative key. In emulation mode the result is an absolute
	// path under the emulation root. Fails with a validation error when uri
	// lacks the scheme prefix.
	ObjectKey(uri string) (string, error)

	// ReadTable materializes the table at uri. Object-storage URIs that
	// name a directory are read as a hive-partitioned dataset.
	ReadTable(ctx context.Context, uri string) (arrow.Table, error)

	// WriteTable writes tbl to uri. Partition columns apply only to
	// object-storage URIs: rows are split into col=value directories and
	// only the touched partitions are overwritten. Plain local paths are
	// written as a single file.
	WriteTable(ctx context.Context, tbl arrow.Table, uri string, partitionColumns ...string) error
}

var (
	_ Store = (*S3Store)(nil)
	_ Store = (*LocalStore)(nil)
)

// New constructs the store variant selected by cfg: a LocalStore rooted at
// the emulation directory when cfg.LocalS3 is set, otherwise an S3Store
// bound to a live session.
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	if cfg.LocalS3 {
		return NewLocalStore(cfg)
	}
	return NewS3Store(ctx, cfg)
}

// NewFromEnv is a convenience factory that loads the configuration from
// environment variables and constructs the matching store.
func NewFromEnv(ctx context.Context) (Store, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, err
	}
	return New(ctx, cfg)
}

// IsObjectURI reports whether uri starts with the s3:// scheme prefix.
func IsObjectURI(uri string) bool {
	return strings.HasPrefix(uri, Scheme)
}

// objectKey strips exactly one scheme prefix and all leading separators.
// Storage-directed calls must never pass backend-specific absolute paths,
// so anything without the prefix is rejected.
func objectKey(uri string) (string, error) {
	if !IsObjectURI(uri) {
		return "", domain.ErrValidation(
			"invalid URI %q: storage interface strictly requires the s3:// prefix to ensure environment-agnostic path management", uri)
	}
	return strings.TrimLeft(strings.TrimPrefix(uri, Scheme), "/"), nil
}

// objectFS is the minimal object I/O surface the dataset layer needs. Keys
// always use forward slashes; the local implementation converts internally.
type objectFS interface {
	get(ctx context.Context, key string) ([]byte, error)
	put(ctx context.Context, key string, data []byte) error
	isObject(ctx context.Context, key string) (bool, error)
	listParquet(ctx context.Context, prefix string) ([]string, error)
}
