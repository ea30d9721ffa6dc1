// Package storage provides the output sink for chunked audio and captions.
// It defines the Storage interface (port) and implementations for local disk
// and local disk mirrored to S3.
package storage

import (
	"context"
	"io"
)

// Storage defines where chunk outputs are written.
// Keys are slash-separated paths relative to the output root.
type Storage interface {
	// Path resolves key to a local file path, for writers such as ffmpeg
	// that need a real file.
	Path(key string) string

	// Exists reports whether key holds a non-empty file.
	Exists(ctx context.Context, key string) (bool, error)

	// Write stores data under key. The file appears only once complete.
	Write(ctx context.Context, key string, data io.Reader) error

	// Publish mirrors the local file at key to remote storage and returns its URL.
	// Returns ErrS3NotConfigured if no remote is configured.
	Publish(ctx context.Context, key string) (url string, err error)
}
