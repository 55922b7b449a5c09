// Package storage persists uploaded images on local disk or in S3.
package storage

import (
	"context"
	"fmt"
	"io"

	"agora/internal/config"
)

// Store saves an object under name and returns the path or URL clients use
// to fetch it.
type Store interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
}

// New builds the Store selected by cfg.UploadDriver.
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.UploadDriver {
	case "", "local":
		return NewLocalStore(cfg.UploadDir, LocalURLPrefix)
	case "s3":
		return NewS3Store(ctx, S3Options{
			Bucket:        cfg.S3Bucket,
			Region:        cfg.S3Region,
			Endpoint:      cfg.S3Endpoint,
			PublicBaseURL: cfg.S3PublicURL,
		})
	}
	return nil, fmt.Errorf("storage: unknown upload driver %q", cfg.UploadDriver)
}
