package storage

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"lakeview/internal/config"
)

// S3Store talks to a live S3-compatible endpoint. Credentials resolve in
// precedence order: explicit static keys, then a named profile, then the
// SDK's default environment chain. Key-pair completeness is left to the
// SDK's own validation.
type S3Store struct {
	client   *s3.Client
	uploader *manager.Uploader
	mem      memory.Allocator
}

// NewS3Store builds a live store from connection parameters.
func NewS3Store(ctx context.Context, cfg *config.Config) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	switch {
	case cfg.HasStaticCredentials():
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	case cfg.Profile != "":
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}
	if !cfg.VerifySSL || cfg.CABundle != "" {
		httpClient, err := buildHTTPClient(cfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, awsconfig.WithHTTPClient(httpClient))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			// Custom S3-compatible endpoints generally require path-style URLs.
			o.UsePathStyle = true
		}
	})

	return &S3Store{
		client:   client,
		uploader: manager.NewUploader(client),
		mem:      memory.DefaultAllocator,
	}, nil
}

// buildHTTPClient constructs the SDK HTTP client with either certificate
// verification disabled or a custom CA bundle trusted.
func buildHTTPClient(cfg *config.Config) (*awshttp.BuildableClient, error) {
	tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if !cfg.VerifySSL {
		tlsCfg.InsecureSkipVerify = true //nolint:gosec // VERIFY_SSL=false is an explicit operator opt-out
	}
	if cfg.CABundle != "" {
		pem, err := os.ReadFile(cfg.CABundle) //nolint:gosec // path is operator-controlled
		if err != nil {
			return nil, fmt.Errorf("read CA bundle %s: %w", cfg.CABundle, err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("CA bundle %s contains no certificates", cfg.CABundle)
		}
		tlsCfg.RootCAs = pool
	}
	return awshttp.NewBuildableClient().WithTransportOptions(func(tr *http.Transport) {
		tr.TLSClientConfig = tlsCfg
	}), nil
}

// IsObjectURI reports whether uri names an object-storage location.
func (s *S3Store) IsObjectURI(uri string) bool { return IsObjectURI(uri) }

// ObjectKey strips the scheme prefix and leading separators, yielding a
// bucket-qualified key ("bucket/path/to/object").
func (s *S3Store) ObjectKey(uri string) (string, error) {
	return objectKey(uri)
}

// ReadTable reads a parquet table. Plain local paths are read directly from
// disk; s3:// URIs naming a prefix rather than an object are read as a
// hive-partitioned dataset.
func (s *S3Store) ReadTable(ctx context.Context, uri string) (arrow.Table, error) {
	if !IsObjectURI(uri) {
		return readParquetFile(ctx, s.mem, uri)
	}
	key, err := s.ObjectKey(uri)
	if err != nil {
		return nil, err
	}
	return readObject(ctx, s.mem, s3fs{client: s.client, uploader: s.uploader}, key)
}

// WriteTable writes a parquet table. Live object storage has no directory
// concept, so no directories are created; partitioned writes place each
// touched partition under its col=value prefix.
func (s *S3Store) WriteTable(ctx context.Context, tbl arrow.Table, uri string, partitionColumns ...string) error {
	if !IsObjectURI(uri) {
		return writeParquetFile(tbl, uri)
	}
	key, err := s.ObjectKey(uri)
	if err != nil {
		return err
	}
	fs := s3fs{client: s.client, uploader: s.uploader}
	if len(partitionColumns) == 0 {
		data, err := marshalTable(tbl)
		if err != nil {
			return err
		}
		return fs.put(ctx, key, data)
	}
	return writePartitioned(ctx, s.mem, fs, key, tbl, partitionColumns)
}

// s3fs adapts the S3 client to the objectFS surface. Keys are
// bucket-qualified: the first path segment is the bucket.
type s3fs struct {
	client   *s3.Client
	uploader *manager.Uploader
}

func splitBucketKey(key string) (bucket, rest string) {
	bucket, rest, _ = strings.Cut(key, "/")
	return bucket, rest
}

func (f s3fs) get(ctx context.Context, key string) ([]byte, error) {
	bucket, rest := splitBucketKey(key)
	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(rest),
	})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", bucket, rest, err)
	}
	defer out.Body.Close() //nolint:errcheck
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read s3://%s/%s: %w", bucket, rest, err)
	}
	return data, nil
}

func (f s3fs) put(ctx context.Context, key string, data []byte) error {
	bucket, rest := splitBucketKey(key)
	_, err := f.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(rest),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", bucket, rest, err)
	}
	return nil
}

func (f s3fs) isObject(ctx context.Context, key string) (bool, error) {
	bucket, rest := splitBucketKey(key)
	_, err := f.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(rest),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("head s3://%s/%s: %w", bucket, rest, err)
	}
	return true, nil
}

func (f s3fs) listParquet(ctx context.Context, prefix string) ([]string, error) {
	bucket, rest := splitBucketKey(prefix)
	if rest != "" && !strings.HasSuffix(rest, "/") {
		rest += "/"
	}

	var keys []string
	paginator := s3.NewListObjectsV2Paginator(f.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(rest),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list s3://%s/%s: %w", bucket, rest, err)
		}
		for _, obj := range page.Contents {
			if obj.Key != nil && strings.HasSuffix(*obj.Key, ".parquet") {
				keys = append(keys, bucket+"/"+*obj.Key)
			}
		}
	}
	return keys, nil
}
