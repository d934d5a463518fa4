package api

import (
	"errors"
	"net/http"

	"flashdl/internal/media"
	"flashdl/internal/proxy"
)

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, proxy.ErrInvalidTarget):
		return http.StatusBadRequest
	case errors.Is(err, media.ErrNoMediaFound):
		return http.StatusNotFound
	case errors.Is(err, media.ErrMergeUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, media.ErrUpstreamFetch):
		return http.StatusBadGateway
	default:
		// ErrRemuxFailed, ErrExtractionFailed and anything unclassified.
		return http.StatusInternalServerError
	}
}

// deliveryMessage is the plain-text body for a failed delivery.
func deliveryMessage(err error) string {
	switch {
	case errors.Is(err, media.ErrMergeUnavailable):
		return "High quality merging is not available on this server. Choose a Fast option instead."
	case errors.Is(err, media.ErrRemuxFailed):
		return "Merge Error: " + err.Error()
	default:
		return err.Error()
	}
}
