package qrcode

import "errors"

var (
	ErrEmptyContent     = errors.New("qrcode: empty content")
	ErrInvalidSize      = errors.New("qrcode: invalid size")
	ErrGenerationFailed = errors.New("qrcode: generation failed")
)
