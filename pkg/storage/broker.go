// Package storage is a stateless adapter over an S3-compatible blob store.
// Its job is to issue time-bounded capability URLs scoped to exactly one
// object key and one operation, and to give pipeline workers direct object
// access. It never issues a credential broader or longer-lived than asked.
package storage

import (
	"context"
	"io"
	"time"
)

// Default signed URL lifetimes.
const (
	DefaultUploadURLTTL   = 15 * time.Minute
	DefaultDownloadURLTTL = 15 * time.Minute
)

// SignedURL is a single-object, single-operation capability URL together
// with its absolute expiry instant.
type SignedURL struct {
	URL       string
	Method    string
	ExpiresAt time.Time
}

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key         string
	ContentType string
	Size        int64
}

// Broker issues pre-signed URLs and performs direct object operations for
// pipeline workers. It holds no state of its own.
type Broker interface {
	// PresignUpload returns a PUT capability URL for one object key.
	PresignUpload(ctx context.Context, key string, opts ...UploadURLOption) (*SignedURL, error)

	// PresignDownload returns a GET capability URL for one object key.
	PresignDownload(ctx context.Context, key string, opts ...DownloadURLOption) (*SignedURL, error)

	// Head returns object metadata without downloading the body.
	// Returns ErrObjectNotFound if the object does not exist.
	Head(ctx context.Context, key string) (*ObjectInfo, error)

	// Get opens the object body. The caller closes the reader.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Put writes an object directly. Used for pipeline artifacts such as
	// thumbnails, not for caller uploads.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// Delete removes an object.
	Delete(ctx context.Context, key string) error

	// Bucket returns the bucket this broker is scoped to.
	Bucket() string
}

// Config holds S3-compatible blob store configuration.
type Config struct {
	// Bucket is the bucket name (required).
	Bucket string `yaml:"bucket"`

	// AccessKey and SecretKey are the static credentials (required).
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`

	// Endpoint is a custom S3 endpoint (optional, for MinIO and friends).
	Endpoint string `yaml:"endpoint"`

	// Region defaults to us-east-1.
	Region string `yaml:"region"`

	// PathStyle enables path-style addressing (required for MinIO).
	PathStyle bool `yaml:"path_style"`

	// UploadURLTTL and DownloadURLTTL bound issued capability URLs.
	UploadURLTTL   time.Duration `yaml:"upload_url_ttl"`
	DownloadURLTTL time.Duration `yaml:"download_url_ttl"`
}

const defaultRegion = "us-east-1"

func (c *Config) applyDefaults() {
	if c.Region == "" {
		c.Region = defaultRegion
	}
	if c.UploadURLTTL == 0 {
		c.UploadURLTTL = DefaultUploadURLTTL
	}
	if c.DownloadURLTTL == 0 {
		c.DownloadURLTTL = DefaultDownloadURLTTL
	}
}

func (c *Config) validate() error {
	if c.Bucket == "" || c.AccessKey == "" || c.SecretKey == "" {
		return ErrInvalidConfig
	}
	return nil
}
