package media

import "errors"

// Error taxonomy shared by resolution and delivery. Wrap with fmt.Errorf("%w: ...")
// and test with errors.Is.
var (
	// ErrExtractionFailed means the extraction engine could not resolve the URL at all.
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrNoMediaFound means resolution succeeded but no usable image or video URL exists.
	ErrNoMediaFound = errors.New("no media found")

	// ErrMergeUnavailable means the remux engine is not installed on this deployment.
	ErrMergeUnavailable = errors.New("merge unavailable")

	// ErrUpstreamFetch means a proxied GET failed or returned a non-success status.
	ErrUpstreamFetch = errors.New("upstream fetch failed")

	// ErrRemuxFailed means the remux engine ran but did not produce the expected file.
	ErrRemuxFailed = errors.New("remux failed")
)
