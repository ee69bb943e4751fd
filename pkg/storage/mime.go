package storage

import "strings"

// MIMEOctetStream is the fallback content type for unknown data.
const MIMEOctetStream = "application/octet-stream"

// imageTypes contains the image MIME types eligible for thumbnailing.
var imageTypes = map[string]struct{}{
	"image/jpeg":    {},
	"image/png":     {},
	"image/gif":     {},
	"image/webp":    {},
	"image/svg+xml": {},
	"image/bmp":     {},
	"image/tiff":    {},
}

// mimeExtensions maps MIME types to preferred file extensions.
var mimeExtensions = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"image/svg+xml":   ".svg",
	"image/bmp":       ".bmp",
	"image/tiff":      ".tiff",
	"application/pdf": ".pdf",
	"application/msword": ".doc",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": ".docx",
	"application/vnd.ms-excel": ".xls",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": ".xlsx",
	"text/plain":       ".txt",
	"text/csv":         ".csv",
	"application/json": ".json",
	"application/xml":  ".xml",
	"application/zip":  ".zip",
	"application/gzip": ".gz",
	"video/mp4":        ".mp4",
	"video/webm":       ".webm",
	"audio/mpeg":       ".mp3",
	"audio/wav":        ".wav",
}

// normalizeMIME strips parameters ("; charset=utf-8") and lowercases the type.
func normalizeMIME(mimeType string) string {
	if idx := strings.Index(mimeType, ";"); idx != -1 {
		mimeType = mimeType[:idx]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

// IsImage reports whether the content type is an image eligible for
// thumbnail generation.
func IsImage(mimeType string) bool {
	_, ok := imageTypes[normalizeMIME(mimeType)]
	return ok
}

// ExtFromMIME returns the preferred file extension for a MIME type,
// or empty string if unknown.
func ExtFromMIME(mimeType string) string {
	return mimeExtensions[normalizeMIME(mimeType)]
}

// MatchesMIME reports whether the content type matches any of the patterns.
// Patterns support a trailing wildcard, e.g. "image/*".
func MatchesMIME(mimeType string, patterns []string) bool {
	mt := normalizeMIME(mimeType)
	for _, pattern := range patterns {
		p := normalizeMIME(pattern)
		if p == "*/*" || p == mt {
			return true
		}
		if prefix, ok := strings.CutSuffix(p, "/*"); ok &&
			strings.HasPrefix(mt, prefix+"/") {
			return true
		}
	}
	return false
}
