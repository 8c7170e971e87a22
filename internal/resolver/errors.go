package resolver

import "errors"

// ErrNotFound indicates the search produced no candidate video.
var ErrNotFound = errors.New("no result found")

// ErrExtraction indicates the search or metadata extraction failed for any
// other reason: network trouble, malformed metadata, no usable stream URL.
var ErrExtraction = errors.New("extraction failed")
