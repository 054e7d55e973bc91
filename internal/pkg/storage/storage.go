package storage

import (
	"context"
	"io"
)

// Config holds S3-compatible storage configuration
type Config struct {
	Endpoint        string // empty for AWS S3, set for R2/MinIO
	Region          string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	PublicURL       string
}

// FileInfo describes a stored object
type FileInfo struct {
	Key         string
	Size        int64
	ContentType string
	URL         string
}

// ObjectStorage is the interface consumed by the attachment service
type ObjectStorage interface {
	Put(ctx context.Context, key string, reader io.Reader, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	GetInfo(ctx context.Context, key string) (*FileInfo, error)
	GetURL(key string) string
}
