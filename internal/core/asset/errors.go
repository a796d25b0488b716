package asset

import "errors"

var (
	ErrNotFound       = errors.New("asset not found")
	ErrUnknownSource  = errors.New("unknown asset source")
	ErrInvalidName    = errors.New("invalid asset name")
	ErrUnknownHandle  = errors.New("unknown asset handle")
	ErrStillLoading   = errors.New("asset is still loading")
	ErrLoaderClosed   = errors.New("asset loader is closed")
	ErrMissingStorage = errors.New("asset storage resource missing")
	ErrLoadPanicked   = errors.New("asset load panicked")
)
