package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lakeview/internal/config"
	"lakeview/internal/domain"
)

func TestIsObjectURI(t *testing.T) {
	cases := []struct {
		uri  string
		want bool
	}{
		{"s3://bucket/key.parquet", true},
		{"s3://bucket", true},
		{"s3://", true},
		{"/tmp/data.parquet", false},
		{"relative/path.parquet", false},
		{"S3://bucket/key", false}, // scheme is case-sensitive
		{"file:///tmp/x", false},
		{"", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, IsObjectURI(tc.uri), "uri %q", tc.uri)
	}
}

func TestObjectKey_StripsPrefixAndSeparators(t *testing.T) {
	cases := []struct {
		uri  string
		want string
	}{
		{"s3://bucket/key.parquet", "bucket/key.parquet"},
		{"s3:///bucket/key.parquet", "bucket/key.parquet"},
		{"s3://///deep/key", "deep/key"},
		// Exactly one prefix is stripped.
		{"s3://s3://bucket/key", "s3:/" + "/bucket/key"},
		{"s3://", ""},
	}
	for _, tc := range cases {
		got, err := objectKey(tc.uri)
		require.NoError(t, err, "uri %q", tc.uri)
		assert.Equal(t, tc.want, got, "uri %q", tc.uri)
	}
}

func TestObjectKey_RejectsNonObjectURIs(t *testing.T) {
	for _, uri := range []string{"/tmp/data.parquet", "bucket/key", "http://bucket/key", ""} {
		_, err := objectKey(uri)
		require.Error(t, err, "uri %q", uri)

		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr, "uri %q", uri)
		assert.Contains(t, verr.Error(), uri)
	}
}

func TestLocalStore_ObjectKeyIsAbsoluteUnderRoot(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalStore(&config.Config{LocalS3: true, LocalS3Dir: root})
	require.NoError(t, err)

	key, err := store.ObjectKey("s3://bucket/nested/data.parquet")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(key))
	assert.Equal(t, filepath.Join(root, "bucket", "nested", "data.parquet"), key)

	// The prefix invariant holds in emulation mode too.
	_, err = store.ObjectKey("/tmp/data.parquet")
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
}
