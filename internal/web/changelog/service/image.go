package service

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/Laisky/errors/v2"
	_ "golang.org/x/image/webp"

	"github.com/Laisky/laisky-changelog/internal/web/changelog/dto"
)

var imageContentTypes = map[string]string{
	"png":  "image/png",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"webp": "image/webp",
}

// loadedImage is an upload read into memory and sniffed
type loadedImage struct {
	content     []byte
	contentType string
}

// loadImage reads up and checks it decodes as a supported image within limit
func loadImage(up dto.ImageUpload, limit int64) (*loadedImage, error) {
	if up.Size > limit {
		return nil, errors.Wrapf(ErrImageTooLarge, "%q is %d bytes, limit %d", up.Filename, up.Size, limit)
	}
	if up.Open == nil {
		return nil, errors.Wrapf(ErrInvalidImage, "%q has no content", up.Filename)
	}

	rc, err := up.Open()
	if err != nil {
		return nil, errors.Wrapf(err, "open upload %q", up.Filename)
	}
	defer rc.Close() // nolint: errcheck

	content, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, errors.Wrapf(err, "read upload %q", up.Filename)
	}
	if int64(len(content)) > limit {
		return nil, errors.Wrapf(ErrImageTooLarge, "%q exceeds %d bytes", up.Filename, limit)
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(content))
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidImage, "%q: %s", up.Filename, err)
	}

	return &loadedImage{content: content, contentType: imageContentTypes[format]}, nil
}
