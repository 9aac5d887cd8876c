package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"research-backend/internal/shared/storage/object"
	"research-backend/internal/shared/telemetry"
)

// Options configures a MinIO-backed store.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

type bucketAPI interface {
	put(ctx context.Context, key, contentType string, r io.Reader) (int64, error)
	get(ctx context.Context, key string) (io.ReadCloser, error)
	remove(ctx context.Context, key string) error
}

// Store implements ObjectStore on an S3-compatible MinIO server.
type Store struct {
	api bucketAPI
}

// New connects to MinIO and makes sure the bucket exists.
func New(ctx context.Context, opts Options) (*Store, error) {
	if strings.TrimSpace(opts.Endpoint) == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if strings.TrimSpace(opts.Bucket) == "" {
		return nil, fmt.Errorf("minio bucket is required")
	}
	cli, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := cli.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("minio bucket exists: %w", err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{Region: opts.Region}); err != nil {
			return nil, fmt.Errorf("minio make bucket: %w", err)
		}
		telemetry.Info("object.minio_bucket_created", map[string]any{"bucket": opts.Bucket})
	}
	return &Store{api: &clientAPI{client: cli, bucket: opts.Bucket}}, nil
}

// Save uploads the reader under the user's namespace.
func (s *Store) Save(ctx context.Context, userID string, fileName string, r io.Reader) (string, int64, string, error) {
	storageKey, err := object.UserObjectKey(userID, fileName)
	if err != nil {
		return "", 0, "", err
	}
	if err := ctx.Err(); err != nil {
		return "", 0, "", err
	}

	var sniff [object.SniffLen]byte
	n, readErr := io.ReadFull(r, sniff[:])
	if readErr != nil && readErr != io.EOF && readErr != io.ErrUnexpectedEOF {
		return "", 0, "", fmt.Errorf("read sniff: %w", readErr)
	}
	mimeType := object.DetectContentType(fileName, sniff[:n])

	size, err := s.api.put(ctx, storageKey, mimeType, io.MultiReader(bytes.NewReader(sniff[:n]), r))
	if err != nil {
		return "", 0, "", err
	}
	return storageKey, size, mimeType, nil
}

// SaveWithKey uploads data to a specific storage key.
func (s *Store) SaveWithKey(ctx context.Context, storageKey string, contentType string, r io.Reader) (int64, error) {
	if strings.TrimSpace(storageKey) == "" {
		return 0, object.ErrInvalidKey
	}
	return s.api.put(ctx, storageKey, contentType, r)
}

// Open streams an object.
func (s *Store) Open(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	if strings.TrimSpace(storageKey) == "" {
		return nil, object.ErrInvalidKey
	}
	return s.api.get(ctx, storageKey)
}

// Delete removes an object.
func (s *Store) Delete(ctx context.Context, storageKey string) error {
	if strings.TrimSpace(storageKey) == "" {
		return object.ErrInvalidKey
	}
	return s.api.remove(ctx, storageKey)
}

type clientAPI struct {
	client *minio.Client
	bucket string
}

func (c *clientAPI) put(ctx context.Context, key, contentType string, r io.Reader) (int64, error) {
	info, err := c.client.PutObject(ctx, c.bucket, key, r, -1, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return 0, fmt.Errorf("minio put object bucket=%s key=%s: %w", c.bucket, key, err)
	}
	return info.Size, nil
}

func (c *clientAPI) get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := c.client.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("minio get object bucket=%s key=%s: %w", c.bucket, key, err)
	}
	return obj, nil
}

func (c *clientAPI) remove(ctx context.Context, key string) error {
	err := c.client.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{})
	if err != nil && minio.ToErrorResponse(err).Code != "NoSuchKey" {
		return fmt.Errorf("minio remove object bucket=%s key=%s: %w", c.bucket, key, err)
	}
	return nil
}

var _ object.ObjectStore = (*Store)(nil)
