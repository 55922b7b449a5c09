package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"agora/internal/models"
	"agora/internal/observability"
	"agora/internal/storage"

	"github.com/google/uuid"
)

// ImageSeparator joins stored image paths in Post.Images.
const ImageSeparator = "&"

// UploadService validates and stores post images.
type UploadService struct {
	store    storage.Store
	maxBytes int64
}

// NewUploadService returns an UploadService writing to store.
func NewUploadService(store storage.Store, maxBytes int64) *UploadService {
	return &UploadService{store: store, maxBytes: maxBytes}
}

// SaveImages stores every file and returns their locations joined by
// ImageSeparator. Nothing is stored unless all files pass inspection.
func (s *UploadService) SaveImages(ctx context.Context, files []*multipart.FileHeader) (string, error) {
	if len(files) == 0 {
		return "", models.NewValidationError("no images uploaded")
	}

	type accepted struct {
		data []byte
		ext  string
	}
	checked := make([]accepted, 0, len(files))
	for _, fh := range files {
		if s.maxBytes > 0 && fh.Size > s.maxBytes {
			return "", models.NewValidationError(fmt.Sprintf("%s: file too large (max %d bytes)", fh.Filename, s.maxBytes))
		}
		data, err := readFile(fh, s.maxBytes)
		if err != nil {
			return "", models.NewInternalError(err)
		}
		info, err := storage.Inspect(data, s.maxBytes)
		if err != nil {
			var rejected *storage.ErrRejected
			if errors.As(err, &rejected) {
				return "", models.NewValidationError(fmt.Sprintf("%s: %s", fh.Filename, rejected.Reason))
			}
			return "", models.NewInternalError(err)
		}
		checked = append(checked, accepted{data: data, ext: info.Extension})
	}

	locations := make([]string, 0, len(checked))
	for _, a := range checked {
		loc, err := s.store.Save(ctx, uuid.NewString()+a.ext, bytes.NewReader(a.data))
		if err != nil {
			return "", models.NewInternalError(err)
		}
		observability.UploadedBytes.Observe(float64(len(a.data)))
		locations = append(locations, loc)
	}
	return strings.Join(locations, ImageSeparator), nil
}

func readFile(fh *multipart.FileHeader, maxBytes int64) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if maxBytes > 0 {
		// one extra byte lets Inspect see oversize bodies
		r = io.LimitReader(f, maxBytes+1)
	}
	return io.ReadAll(r)
}
