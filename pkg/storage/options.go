package storage

import "time"

// uploadURLOptions holds configuration for PresignUpload.
type uploadURLOptions struct {
	contentType   string
	contentLength int64
	ttl           time.Duration
}

// UploadURLOption configures upload URL generation.
type UploadURLOption func(*uploadURLOptions)

// WithContentType pins the upload to a declared content type; the signed URL
// is only valid for a PUT carrying this Content-Type header.
func WithContentType(ct string) UploadURLOption {
	return func(o *uploadURLOptions) {
		o.contentType = ct
	}
}

// WithContentLength pins the upload to a declared size in bytes.
func WithContentLength(n int64) UploadURLOption {
	return func(o *uploadURLOptions) {
		if n > 0 {
			o.contentLength = n
		}
	}
}

// WithUploadTTL overrides the configured upload URL lifetime.
// The broker never extends beyond what the caller requests.
func WithUploadTTL(d time.Duration) UploadURLOption {
	return func(o *uploadURLOptions) {
		if d > 0 {
			o.ttl = d
		}
	}
}

// downloadURLOptions holds configuration for PresignDownload.
type downloadURLOptions struct {
	downloadName string
	ttl          time.Duration
}

// DownloadURLOption configures download URL generation.
type DownloadURLOption func(*downloadURLOptions)

// WithDownloadName sets the filename for the Content-Disposition attachment
// header, so browsers save the file under its original name rather than the
// opaque storage key.
func WithDownloadName(filename string) DownloadURLOption {
	return func(o *downloadURLOptions) {
		o.downloadName = filename
	}
}

// WithDownloadTTL overrides the configured download URL lifetime.
func WithDownloadTTL(d time.Duration) DownloadURLOption {
	return func(o *downloadURLOptions) {
		if d > 0 {
			o.ttl = d
		}
	}
}
