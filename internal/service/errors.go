package service

import "fmt"

var (
	// ErrNoFormats means the canonical list for the requested format is
	// empty: nothing downloadable exists at all.
	ErrNoFormats = fmt.Errorf("no download url found for the requested format")

	// ErrQualityNotFound means the client asked for a label that is not
	// in the canonical list. Another quality is never substituted.
	ErrQualityNotFound = fmt.Errorf("requested quality not available")

	// ErrResolutionFailed means a selected renderable variant could not
	// be resolved to a usable url and no progressive stream of the same
	// label exists.
	ErrResolutionFailed = fmt.Errorf("failed to resolve download url")
)
