package analysis

import "errors"

var (
	// ErrExtractionFailed means media could not be converted to analyzable
	// text. Fatal for the request; there is no partial fallback.
	ErrExtractionFailed = errors.New("analysis: media extraction failed")

	// ErrNormalizationFailed marks a single source's raw result as unusable.
	// Swallowed at the fan-out join; the remaining evidence still counts.
	ErrNormalizationFailed = errors.New("analysis: raw result normalization failed")

	// ErrEmptyInput rejects requests with nothing to analyze.
	ErrEmptyInput = errors.New("analysis: input is empty")
)
