package codec

import "errors"

var (
	errEmptyImage   = errors.New("webp: empty image")
	errEmptyData    = errors.New("webp: empty data")
	errEncodeFailed = errors.New("webp: encode failed")
	errDecodeFailed = errors.New("webp: decode failed")
)
