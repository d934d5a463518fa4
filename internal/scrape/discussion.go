package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"flashdl/internal/httputil"
	"flashdl/internal/log"
	"flashdl/internal/media"
)

// DefaultDiscussionTitle is used when a post has no title.
const DefaultDiscussionTitle = "Reddit Video"

// Discussion resolves discussion-site posts through their public JSON listing.
type Discussion struct {
	client *http.Client
}

// NewDiscussion creates a discussion-site scraper whose request is bounded by timeout.
func NewDiscussion(timeout time.Duration) *Discussion {
	return &Discussion{client: newClient(timeout)}
}

// listing mirrors the parts of a post's JSON listing that carry the video.
type listing []struct {
	Data struct {
		Children []struct {
			Data post `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type post struct {
	Title       string `json:"title"`
	Thumbnail   string `json:"thumbnail"`
	SecureMedia *struct {
		RedditVideo *struct {
			FallbackURL string `json:"fallback_url"`
		} `json:"reddit_video"`
	} `json:"secure_media"`
}

// Attempt fetches the post listing and returns a single direct video, or nil.
func (d *Discussion) Attempt(ctx context.Context, rawURL string) *media.Description {
	logger := log.WithComponentFromContext(ctx, "scrape.discussion")

	jsonURL := ListingURL(rawURL)
	body, err := httputil.GetBody(ctx, d.client, jsonURL, httputil.DesktopUserAgent, map[string]string{
		"Accept": "application/json",
	})
	if err != nil {
		logger.Debug().Err(err).Str("url", jsonURL).Msg("listing fetch failed")
		return nil
	}

	desc, err := parseListing(body)
	if err != nil {
		logger.Debug().Err(err).Str("url", jsonURL).Msg("listing unusable")
		return nil
	}
	return desc
}

// ListingURL strips the query string and trailing slash and appends the JSON suffix.
func ListingURL(rawURL string) string {
	clean := rawURL
	if idx := strings.Index(clean, "?"); idx != -1 {
		clean = clean[:idx]
	}
	return strings.TrimRight(clean, "/") + ".json"
}

func parseListing(body []byte) (*media.Description, error) {
	var l listing
	if err := json.Unmarshal(body, &l); err != nil {
		return nil, fmt.Errorf("parsing listing: %w", err)
	}
	if len(l) == 0 || len(l[0].Data.Children) == 0 {
		return nil, fmt.Errorf("listing has no post")
	}

	p := l[0].Data.Children[0].Data
	if p.SecureMedia == nil || p.SecureMedia.RedditVideo == nil || p.SecureMedia.RedditVideo.FallbackURL == "" {
		return nil, fmt.Errorf("post has no hosted video")
	}

	title := p.Title
	if title == "" {
		title = DefaultDiscussionTitle
	}

	return &media.Description{
		Title:     title,
		Thumbnail: p.Thumbnail,
		Kind:      media.Video,
		Variants: []media.Variant{{
			URL:      p.SecureMedia.RedditVideo.FallbackURL,
			Ext:      "mp4",
			HasVideo: true,
		}},
	}, nil
}
