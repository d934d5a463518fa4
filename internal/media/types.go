// Package media defines shared types for the flashdl resolution and delivery pipeline.
package media

import (
	"strings"
	"unicode"
)

// Kind represents whether resolved content is a video or a still image.
type Kind int

const (
	Video Kind = iota
	Image
)

func (k Kind) String() string {
	switch k {
	case Video:
		return "video"
	case Image:
		return "image"
	default:
		return "unknown"
	}
}

// ResultType is the shape of a resolution as reported to clients.
type ResultType string

const (
	TypeImage       ResultType = "image"
	TypeVideoMulti  ResultType = "video_multi"
	TypeVideoSingle ResultType = "video_single"
)

// BestAudio is the remux selector for the best audio-only stream of the source.
const BestAudio = "bestaudio"

// Description is what the extraction engine (or a bypass scraper) knows about a URL.
type Description struct {
	Title      string
	Thumbnail  string
	Duration   *float64 // seconds, nil when unknown
	Kind       Kind
	Extractor  string // engine extractor key, e.g. "youtube" or "instagram:image"
	URL        string // direct media URL when the engine reports a single file
	DisplayURL string
	Variants   []Variant
	Entries    []Description // non-empty for collections
}

// HasVideo reports whether any variant carries a video stream.
func (d *Description) HasVideo() bool {
	for _, v := range d.Variants {
		if v.HasVideo {
			return true
		}
	}
	return false
}

// Variant is a single format offered by the source.
type Variant struct {
	FormatID string  // opaque engine identifier, usable only with the engine
	URL      string  // direct fetch URL
	Ext      string  // container extension reported by the engine
	Height   int     // 0 when unknown
	Bitrate  float64 // kbit/s, 0 when unknown
	HasVideo bool
	HasAudio bool
}

// Valid reports whether the variant carries at least one stream.
func (v Variant) Valid() bool {
	return v.HasVideo || v.HasAudio
}

// Target says where the bytes of an option come from.
// Either URL is set (direct), or VideoFormat/AudioFormat/SourceURL are (merge).
type Target struct {
	URL         string `json:"url,omitempty"`
	VideoFormat string `json:"format_id,omitempty"`
	AudioFormat string `json:"audio_format,omitempty"`
	SourceURL   string `json:"source_url,omitempty"`
}

// Option is one entry of the menu offered to the user.
type Option struct {
	Label         string `json:"label"`
	Ext           string `json:"ext"`
	Height        int    `json:"height,omitempty"`
	RequiresMerge bool   `json:"merge"`
	Target
}

// Resolution is the outcome of resolving one input URL.
type Resolution struct {
	Type      ResultType
	Title     string
	Thumbnail string
	SourceURL string
	ImageURL  string // set for TypeImage
	Filename  string // suggested base filename (no extension)
	Options   []Option
}

// FetchSpec is everything the delivery proxy needs to produce bytes for one option.
type FetchSpec struct {
	Kind     Kind
	Target   Target
	Ext      string
	Filename string // base name without extension
}

// FetchSpecFor builds the delivery input for an option previously returned by resolution.
func FetchSpecFor(opt Option, title string) FetchSpec {
	return FetchSpec{
		Kind:     Video,
		Target:   opt.Target,
		Ext:      opt.Ext,
		Filename: CleanTitle(title),
	}
}

// RequiresMerge reports whether the spec needs the remux engine.
func (s FetchSpec) RequiresMerge() bool {
	return s.Target.URL == "" && s.Target.VideoFormat != ""
}

// DefaultTitle is used when a title sanitizes to nothing.
const DefaultTitle = "media"

// CleanTitle keeps only letters, digits and spaces, then trims surrounding whitespace.
func CleanTitle(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	for _, r := range title {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
			b.WriteRune(r)
		}
	}
	cleaned := strings.TrimSpace(b.String())
	if cleaned == "" {
		return DefaultTitle
	}
	return cleaned
}
