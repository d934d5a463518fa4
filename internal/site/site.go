// Package site decides which resolution strategy an input URL is eligible for.
package site

import (
	"strings"

	"flashdl/internal/httputil"
)

// Strategy is the resolution path a URL qualifies for.
type Strategy int

const (
	// Generic sends the URL straight to the extraction engine.
	Generic Strategy = iota
	// DiscussionBypass tries the discussion-site JSON endpoint first.
	DiscussionBypass
	// ImageMetadataBypass marks image-sharing URLs whose pages can be scraped for a photo.
	ImageMetadataBypass
)

func (s Strategy) String() string {
	switch s {
	case Generic:
		return "generic"
	case DiscussionBypass:
		return "discussion_bypass"
	case ImageMetadataBypass:
		return "image_metadata_bypass"
	default:
		return "unknown"
	}
}

// Classifier matches URLs against known discussion and image-sharing domains.
type Classifier struct {
	DiscussionHosts []string
	ImageHosts      []string
}

// NewClassifier creates a classifier for the given domain lists.
func NewClassifier(discussionHosts, imageHosts []string) Classifier {
	return Classifier{DiscussionHosts: discussionHosts, ImageHosts: imageHosts}
}

// Classify returns the strategy rawURL is eligible for. It never fails:
// anything unrecognised is Generic.
func (c Classifier) Classify(rawURL string) Strategy {
	switch {
	case matchesAny(rawURL, c.DiscussionHosts):
		return DiscussionBypass
	case matchesAny(rawURL, c.ImageHosts):
		return ImageMetadataBypass
	default:
		return Generic
	}
}

// matchesAny checks the parsed host first. Input that does not parse to a
// host (missing scheme, stray spaces) falls back to a substring check.
func matchesAny(rawURL string, domains []string) bool {
	host := httputil.Host(strings.TrimSpace(rawURL))
	for _, d := range domains {
		if host != "" {
			if httputil.HostMatches(host, d) {
				return true
			}
			continue
		}
		if d != "" && strings.Contains(strings.ToLower(rawURL), strings.ToLower(d)) {
			return true
		}
	}
	return false
}
