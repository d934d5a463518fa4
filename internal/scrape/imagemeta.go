package scrape

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"

	"flashdl/internal/httputil"
	"flashdl/internal/log"
	"flashdl/internal/media"
)

// ImageMeta recovers a photo URL from an image-sharing page's markup.
type ImageMeta struct {
	client *http.Client
}

// NewImageMeta creates an image metadata scraper whose request is bounded by timeout.
func NewImageMeta(timeout time.Duration) *ImageMeta {
	return &ImageMeta{client: newClient(timeout)}
}

// Attempt fetches the page as a mobile browser and returns an image description, or nil.
func (s *ImageMeta) Attempt(ctx context.Context, rawURL string) *media.Description {
	logger := log.WithComponentFromContext(ctx, "scrape.imagemeta")

	body, err := httputil.GetBody(ctx, s.client, rawURL, httputil.MobileUserAgent, map[string]string{
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.9",
	})
	if err != nil {
		logger.Debug().Err(err).Str("url", rawURL).Msg("page fetch failed")
		return nil
	}

	imageURL := findImageURL(body)
	if imageURL == "" {
		logger.Debug().Str("url", rawURL).Msg("no image reference in page")
		return nil
	}

	return &media.Description{
		Kind:      media.Image,
		URL:       imageURL,
		Thumbnail: imageURL,
	}
}

// findImageURL looks for an Open Graph image first, then the inline JSON display_url.
func findImageURL(body []byte) string {
	if doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body)); err == nil {
		if u := parseOGImage(doc); u != "" {
			return u
		}
	}
	return parseDisplayURL(body)
}
