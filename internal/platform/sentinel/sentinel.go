package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and stage implementations
// return these (optionally wrapped) so callers can branch without string
// matching:
// - ErrNotFound: record does not exist in a store
// - ErrUnavailable: optional capability (OCR engine, classifier model) absent
// - ErrUnreadable: image bytes do not decode to a raster
var (
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("unavailable")
	ErrUnreadable  = errors.New("unreadable image")
)
