package icon

import "errors"

// Typed encode failures. Results wrap one of these with detail.
var (
	ErrSourceMissing         = errors.New("source image not found")
	ErrDecode                = errors.New("cannot decode image")
	ErrRasterizerUnavailable = errors.New("svg rasterizer unavailable")
	ErrNoSizes               = errors.New("no valid icon sizes")
	ErrWrite                 = errors.New("cannot write icon")
)
