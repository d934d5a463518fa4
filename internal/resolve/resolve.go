// Package resolve turns a user-supplied URL into a Resolution: either a single
// image, a single direct video, or a ranked menu of video options.
//
// The Resolver picks a strategy with the site classifier, runs the extraction
// engine or a bypass scraper, and applies the image/video decision rules.
// Fallback failures are logged and never surfaced; when every path fails the
// caller sees the primary path's error.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"flashdl/internal/extract"
	"flashdl/internal/log"
	"flashdl/internal/media"
	"flashdl/internal/metrics"
	"flashdl/internal/rank"
	"flashdl/internal/scrape"
	"flashdl/internal/site"
)

const (
	// RecoveredImageTitle names images found by the last-resort page scrape.
	RecoveredImageTitle = "Instagram Photo"
	// RecoveredImageFilename is the download name for such images.
	RecoveredImageFilename = "instagram_photo"
	// DirectVideoLabel labels the single option of a bypass video.
	DirectVideoLabel = "Video (Direct)"
)

// Resolver orchestrates the extraction engine and the bypass scrapers.
type Resolver struct {
	engine     extract.Engine
	discussion scrape.Scraper
	imageMeta  scrape.Scraper
	classifier site.Classifier
}

// New creates a Resolver. All collaborators are required.
func New(engine extract.Engine, discussion, imageMeta scrape.Scraper, classifier site.Classifier) *Resolver {
	return &Resolver{
		engine:     engine,
		discussion: discussion,
		imageMeta:  imageMeta,
		classifier: classifier,
	}
}

// Resolve produces the Resolution for rawURL. Errors wrap one of
// media.ErrExtractionFailed or media.ErrNoMediaFound.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (*media.Resolution, error) {
	rawURL = strings.TrimSpace(rawURL)
	strategy := r.classifier.Classify(rawURL)
	logger := log.WithComponentFromContext(ctx, "resolve").With().
		Str("url", rawURL).
		Str("strategy", strategy.String()).
		Logger()

	start := time.Now()
	res, err := r.resolve(ctx, rawURL, strategy, logger)

	outcome := "error"
	switch {
	case err == nil:
		outcome = string(res.Type)
		logger.Info().Str("type", outcome).Int("options", len(res.Options)).Msg("resolved")
	case errors.Is(err, media.ErrNoMediaFound):
		outcome = "no_media"
		logger.Warn().Err(err).Msg("no media found")
	default:
		logger.Warn().Err(err).Msg("resolution failed")
	}
	metrics.RecordResolution(strategy.String(), outcome, time.Since(start))

	return res, err
}

func (r *Resolver) resolve(ctx context.Context, rawURL string, strategy site.Strategy, logger zerolog.Logger) (*media.Resolution, error) {
	// Discussion-site videos never go through the engine; the bypass is authoritative.
	if strategy == site.DiscussionBypass {
		desc := r.attempt(ctx, r.discussion, "discussion", rawURL)
		if desc == nil || len(desc.Variants) == 0 {
			return nil, fmt.Errorf("%w: discussion post has no hosted video", media.ErrNoMediaFound)
		}
		return singleVideo(rawURL, desc), nil
	}

	imageSite := strategy == site.ImageMetadataBypass

	desc, err := r.engine.Extract(ctx, rawURL)
	if err != nil {
		if imageSite {
			if img := r.attempt(ctx, r.imageMeta, "imagemeta", rawURL); img != nil {
				logger.Info().Err(err).Msg("engine failed, recovered image from page markup")
				return recoveredImage(rawURL, img.URL), nil
			}
		}
		return nil, fmt.Errorf("%w: %v", media.ErrExtractionFailed, err)
	}

	// Collections resolve to their first entry only.
	if len(desc.Entries) > 0 {
		first := desc.Entries[0]
		desc = &first
	}

	title := media.CleanTitle(desc.Title)

	if !desc.HasVideo() || isImageExtractor(desc.Extractor) || imageSite {
		imageURL := firstNonEmpty(desc.URL, desc.DisplayURL, desc.Thumbnail)
		if imageURL == "" && len(desc.Variants) > 0 {
			imageURL = desc.Variants[len(desc.Variants)-1].URL
		}
		if imageURL == "" && imageSite {
			if img := r.attempt(ctx, r.imageMeta, "imagemeta", rawURL); img != nil {
				imageURL = img.URL
			}
		}
		if imageURL == "" {
			return nil, fmt.Errorf("%w: no image link", media.ErrNoMediaFound)
		}
		return &media.Resolution{
			Type:      media.TypeImage,
			Title:     title,
			Thumbnail: desc.Thumbnail,
			SourceURL: rawURL,
			ImageURL:  imageURL,
			Filename:  title,
		}, nil
	}

	options, err := rank.Rank(desc.Variants)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", media.ErrNoMediaFound, err)
	}
	if len(options) == 0 {
		return nil, fmt.Errorf("%w: no downloadable formats", media.ErrNoMediaFound)
	}
	for i := range options {
		if options[i].RequiresMerge {
			options[i].SourceURL = rawURL
		}
	}

	return &media.Resolution{
		Type:      media.TypeVideoMulti,
		Title:     title,
		Thumbnail: desc.Thumbnail,
		SourceURL: rawURL,
		Filename:  title,
		Options:   options,
	}, nil
}

// attempt runs a scraper and records whether it found anything.
func (r *Resolver) attempt(ctx context.Context, s scrape.Scraper, name, rawURL string) *media.Description {
	desc := s.Attempt(ctx, rawURL)
	metrics.IncFallbackAttempt(name, desc != nil)
	return desc
}

func singleVideo(rawURL string, desc *media.Description) *media.Resolution {
	title := media.CleanTitle(desc.Title)
	return &media.Resolution{
		Type:      media.TypeVideoSingle,
		Title:     title,
		Thumbnail: desc.Thumbnail,
		SourceURL: rawURL,
		Filename:  title,
		Options: []media.Option{{
			Label:  DirectVideoLabel,
			Ext:    "mp4",
			Target: media.Target{URL: desc.Variants[0].URL},
		}},
	}
}

func recoveredImage(rawURL, imageURL string) *media.Resolution {
	return &media.Resolution{
		Type:      media.TypeImage,
		Title:     RecoveredImageTitle,
		Thumbnail: imageURL,
		SourceURL: rawURL,
		ImageURL:  imageURL,
		Filename:  RecoveredImageFilename,
	}
}

// isImageExtractor matches engine extractor names dedicated to still images.
func isImageExtractor(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ":image")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
