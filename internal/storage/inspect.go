package storage

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"strings"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/webp" // register WebP decoder
)

// ImageInfo describes an accepted upload.
type ImageInfo struct {
	MIME      string
	Extension string
	Width     int
	Height    int
}

// ErrRejected wraps every reason an upload is refused.
type ErrRejected struct {
	Reason string
}

func (e *ErrRejected) Error() string {
	return "upload rejected: " + e.Reason
}

// Inspect checks that data is a decodable image no larger than maxBytes.
func Inspect(data []byte, maxBytes int64) (*ImageInfo, error) {
	if len(data) == 0 {
		return nil, &ErrRejected{Reason: "empty file"}
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, &ErrRejected{Reason: fmt.Sprintf("file too large (max %d bytes)", maxBytes)}
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, &ErrRejected{Reason: fmt.Sprintf("unsupported content type %s", mt.String())}
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &ErrRejected{Reason: "invalid image file"}
	}

	return &ImageInfo{
		MIME:      mt.String(),
		Extension: mt.Extension(),
		Width:     cfg.Width,
		Height:    cfg.Height,
	}, nil
}
