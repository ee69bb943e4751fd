package storage

import "fmt"

// UploadValidationError reports an upload request that violates policy.
// Unlike broker errors these are caller mistakes, never retried.
type UploadValidationError struct {
	Code    string
	Message string
}

func (e *UploadValidationError) Error() string {
	return e.Message
}

// Error codes for UploadValidationError.
const (
	ErrCodeFileTooLarge = "file_too_large"
	ErrCodeEmptyFile    = "empty_file"
	ErrCodeInvalidMIME  = "invalid_mime"
	ErrCodeEmptyName    = "empty_filename"
)

// UploadPolicy constrains what callers may declare when requesting an
// upload URL. Declared values are verified against the stored object by the
// validate pipeline task after upload.
type UploadPolicy struct {
	// MaxFileSize in bytes. Zero means unlimited.
	MaxFileSize int64 `yaml:"max_file_size"`

	// AllowedTypes are MIME patterns ("application/pdf", "image/*").
	// Empty means any type.
	AllowedTypes []string `yaml:"allowed_types"`
}

// ValidateUpload checks a declared filename, content type, and size against
// the policy. Returns *UploadValidationError on the first violation.
func (p UploadPolicy) ValidateUpload(filename, contentType string, size int64) error {
	if filename == "" {
		return &UploadValidationError{
			Code:    ErrCodeEmptyName,
			Message: "filename is required",
		}
	}
	if size <= 0 {
		return &UploadValidationError{
			Code:    ErrCodeEmptyFile,
			Message: "declared size must be positive",
		}
	}
	if p.MaxFileSize > 0 && size > p.MaxFileSize {
		return &UploadValidationError{
			Code:    ErrCodeFileTooLarge,
			Message: fmt.Sprintf("declared size %d exceeds limit of %d bytes", size, p.MaxFileSize),
		}
	}
	if len(p.AllowedTypes) > 0 && !MatchesMIME(contentType, p.AllowedTypes) {
		return &UploadValidationError{
			Code:    ErrCodeInvalidMIME,
			Message: fmt.Sprintf("content type %q is not allowed", contentType),
		}
	}
	return nil
}
