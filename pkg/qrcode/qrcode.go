package qrcode

import (
	"encoding/base64"
	"errors"

	goqr "github.com/skip2/go-qrcode"
)

const (
	// DefaultSize is used when size is zero.
	DefaultSize = 256
	// MinSize is the smallest accepted image edge in pixels.
	MinSize = 64
	// MaxSize caps the image edge in pixels.
	MaxSize = 2048

	dataURIPrefix = "data:image/png;base64,"
)

// Generate returns a PNG image of content, size pixels square.
func Generate(content string, size int) ([]byte, error) {
	if content == "" {
		return nil, ErrEmptyContent
	}
	if size == 0 {
		size = DefaultSize
	}
	if size < MinSize || size > MaxSize {
		return nil, ErrInvalidSize
	}

	png, err := goqr.Encode(content, goqr.Medium, size)
	if err != nil {
		return nil, errors.Join(ErrGenerationFailed, err)
	}
	return png, nil
}

// GenerateBase64Image returns a data:image/png;base64 URI for content.
func GenerateBase64Image(content string, size int) (string, error) {
	png, err := Generate(content, size)
	if err != nil {
		return "", err
	}
	return dataURIPrefix + base64.StdEncoding.EncodeToString(png), nil
}

// Renderer produces data URIs at a fixed size.
type Renderer struct {
	size int
}

// NewRenderer returns a Renderer. A zero size selects DefaultSize.
func NewRenderer(size int) *Renderer {
	return &Renderer{size: size}
}

// Render implements the provisioning image interface of the MFA service.
func (r *Renderer) Render(uri string) (string, error) {
	return GenerateBase64Image(uri, r.size)
}
