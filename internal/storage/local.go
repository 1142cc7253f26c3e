package storage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"lakeview/internal/config"
)

// LocalStore redirects object-storage calls into a local directory tree.
// It holds no cloud session and never touches the network.
type LocalStore struct {
	root string
	mem  memory.Allocator
}

// NewLocalStore creates an emulation-mode store rooted at the configured
// directory (default: user home), resolved to an absolute path.
func NewLocalStore(cfg *config.Config) (*LocalStore, error) {
	root, err := cfg.EmulationRoot()
	if err != nil {
		return nil, err
	}
	return &LocalStore{root: root, mem: memory.DefaultAllocator}, nil
}

// Root returns the absolute emulation root directory.
func (s *LocalStore) Root() string { return s.root }

// IsObjectURI reports whether uri names an object-storage location.
func (s *LocalStore) IsObjectURI(uri string) bool { return IsObjectURI(uri) }

// ObjectKey resolves an s3:// URI to an absolute path under the emulation
// root. Non-prefixed input is rejected regardless of mode.
func (s *LocalStore) ObjectKey(uri string) (string, error) {
	key, err := objectKey(uri)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}

// ReadTable reads a parquet table. Plain local paths are read directly;
// s3:// URIs resolve into the emulation tree, where a directory is read as
// a hive-partitioned dataset.
func (s *LocalStore) ReadTable(ctx context.Context, uri string) (arrow.Table, error) {
	if !IsObjectURI(uri) {
		return readParquetFile(ctx, s.mem, uri)
	}
	p, err := s.ObjectKey(uri)
	if err != nil {
		return nil, err
	}
	return readObject(ctx, s.mem, localFS{}, filepath.ToSlash(p))
}

// WriteTable writes a parquet table. Emulated object writes create parent
// directories as needed, since the directory tree stands in for a flat
// object namespace.
func (s *LocalStore) WriteTable(ctx context.Context, tbl arrow.Table, uri string, partitionColumns ...string) error {
	if !IsObjectURI(uri) {
		return writeParquetFile(tbl, uri)
	}
	p, err := s.ObjectKey(uri)
	if err != nil {
		return err
	}
	key := filepath.ToSlash(p)
	if len(partitionColumns) == 0 {
		data, err := marshalTable(tbl)
		if err != nil {
			return err
		}
		return localFS{}.put(ctx, key, data)
	}
	return writePartitioned(ctx, s.mem, localFS{}, key, tbl, partitionColumns)
}

// localFS adapts the local filesystem to the objectFS surface. Keys are
// slash-separated absolute paths.
type localFS struct{}

func (localFS) get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(filepath.FromSlash(key)) //nolint:gosec // key derives from caller input
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

func (localFS) put(_ context.Context, key string, data []byte) error {
	p := filepath.FromSlash(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", key, err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil { //nolint:gosec
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (localFS) isObject(_ context.Context, key string) (bool, error) {
	info, err := os.Stat(filepath.FromSlash(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", key, err)
	}
	return !info.IsDir(), nil
}

func (localFS) listParquet(_ context.Context, prefix string) ([]string, error) {
	root := filepath.FromSlash(prefix)
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat %s: %w", prefix, err)
	}
	if !info.IsDir() {
		return nil, nil
	}

	var keys []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(p, ".parquet") {
			keys = append(keys, filepath.ToSlash(p))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", prefix, err)
	}
	return keys, nil
}
