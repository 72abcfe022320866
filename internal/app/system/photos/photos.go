// Package photos validates and stores the image evidence attached to
// issues: citizen photos at report time and staff proof at completion.
//
// Photos arrive either as base64 data URLs (compressed by the client) or,
// when blob storage is configured, as URLs under the storage public base
// returned by a presigned upload. Anything else is rejected.
package photos

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Kind says which evidence slot a set of photos belongs to.
type Kind string

const (
	KindReport     Kind = "report"
	KindCompletion Kind = "completion"
)

// Limits.
const (
	MaxReportPhotos     = 3
	MaxCompletionPhotos = 5

	// MaxEncodedBytes bounds one encoded photo so an issue document stays
	// well under the document size ceiling.
	MaxEncodedBytes = 1_000_000
)

// allowedTypes maps accepted image content types to file extensions.
var allowedTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/heic": "heic",
}

// ValidationError describes why a photo set was rejected.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func invalid(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// Limit returns the maximum photo count for kind.
func Limit(kind Kind) int {
	if kind == KindCompletion {
		return MaxCompletionPhotos
	}
	return MaxReportPhotos
}

// Validate checks count, size and type of each photo. remoteBase is the
// public URL prefix of the blob store; empty means only data URLs are
// accepted.
func Validate(kind Kind, photos []string, remoteBase string) error {
	if max := Limit(kind); len(photos) > max {
		return invalid("at most %d photos are allowed", max)
	}
	for i, p := range photos {
		if len(p) > MaxEncodedBytes {
			return invalid("photo %d is too large (%d bytes, limit %d)", i+1, len(p), MaxEncodedBytes)
		}
		if strings.HasPrefix(p, "data:") {
			if _, _, err := ParseDataURL(p); err != nil {
				return invalid("photo %d: %v", i+1, err)
			}
			continue
		}
		if remoteBase != "" && strings.HasPrefix(p, strings.TrimRight(remoteBase, "/")+"/") {
			continue
		}
		return invalid("photo %d is not an accepted image", i+1)
	}
	return nil
}

// ParseDataURL decodes a base64 image data URL and returns its content
// type and bytes.
func ParseDataURL(s string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return "", nil, fmt.Errorf("not a data URL")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("malformed data URL")
	}
	ct, enc, _ := strings.Cut(meta, ";")
	ct = strings.ToLower(ct)
	if _, ok := allowedTypes[ct]; !ok {
		return "", nil, fmt.Errorf("unsupported image type %q", ct)
	}
	if enc != "base64" {
		return "", nil, fmt.Errorf("image must be base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("invalid base64 payload")
	}
	if len(data) == 0 {
		return "", nil, fmt.Errorf("empty image")
	}
	return ct, data, nil
}

// Extension returns the file extension for an accepted content type.
func Extension(contentType string) (string, bool) {
	ext, ok := allowedTypes[strings.ToLower(contentType)]
	return ext, ok
}
