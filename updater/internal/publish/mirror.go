package publish

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/trendrank/trendrank/updater/internal/config"
)

// Mirror receives a copy of every successfully written artifact.
type Mirror interface {
	Put(ctx context.Context, data []byte) error
}

// S3Mirror uploads the artifact to an S3-compatible bucket.
type S3Mirror struct {
	client *minio.Client
	bucket string
	key    string
	region string

	mu       sync.Mutex
	bucketOK bool
}

// NewS3Mirror builds a mirror from cfg. The bucket is created on first Put if
// it does not already exist.
func NewS3Mirror(cfg config.MirrorConfig) (*S3Mirror, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, errors.New("publish: mirror endpoint and bucket are required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey(), cfg.SecretKey(), ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("publish: mirror client: %w", err)
	}
	key := cfg.Key
	if key == "" {
		key = config.DefaultMirrorKey
	}
	return &S3Mirror{client: client, bucket: cfg.Bucket, key: key, region: cfg.Region}, nil
}

// Put uploads data as the mirror object.
func (m *S3Mirror) Put(ctx context.Context, data []byte) error {
	if err := m.ensureBucket(ctx); err != nil {
		return err
	}
	_, err := m.client.PutObject(ctx, m.bucket, m.key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{
			ContentType:  "application/json; charset=utf-8",
			CacheControl: "no-cache",
		})
	if err != nil {
		return fmt.Errorf("publish: put %s/%s: %w", m.bucket, m.key, err)
	}
	return nil
}

func (m *S3Mirror) ensureBucket(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bucketOK {
		return nil
	}
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("publish: bucket exists %s: %w", m.bucket, err)
	}
	if !exists {
		if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{Region: m.region}); err != nil {
			return fmt.Errorf("publish: make bucket %s: %w", m.bucket, err)
		}
	}
	m.bucketOK = true
	return nil
}
