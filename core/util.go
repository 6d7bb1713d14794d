package core

import (
	"context"
	"io"
	"strings"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

type (
	Logger interface {
		Debug(msg string, args ...interface{})
		Info(msg string, args ...interface{})
		Warn(msg string, args ...interface{})
		Error(msg string, args ...interface{})
		Fatal(msg string, args ...interface{})
	}

	// ObjectStore keeps uploaded files, keyed by their storage filename.
	ObjectStore interface {
		UploadFile(ctx context.Context, key string, r io.Reader, contentType string) error
		// SignedURL returns a read-only URL to the object that expires after a fixed delay.
		SignedURL(ctx context.Context, key string) (string, error)
	}
)
