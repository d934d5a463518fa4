package extract

import (
	"encoding/json"
	"fmt"

	"flashdl/internal/media"
)

// info mirrors the subset of the yt-dlp JSON dump we use.
type info struct {
	Title      string   `json:"title"`
	Thumbnail  string   `json:"thumbnail"`
	Duration   *float64 `json:"duration"`
	Extractor  string   `json:"extractor"`
	URL        string   `json:"url"`
	DisplayURL string   `json:"display_url"`
	Formats    []format `json:"formats"`
	Entries    []*info  `json:"entries"`
}

type format struct {
	FormatID string  `json:"format_id"`
	URL      string  `json:"url"`
	Ext      string  `json:"ext"`
	Height   int     `json:"height"`
	VCodec   *string `json:"vcodec"`
	ACodec   *string `json:"acodec"`
	ABR      float64 `json:"abr"`
}

// parseInfo decodes a yt-dlp JSON dump into a Description.
func parseInfo(data []byte) (*media.Description, error) {
	var raw info
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding yt-dlp output: %w", err)
	}
	return raw.description(), nil
}

func (in *info) description() *media.Description {
	desc := &media.Description{
		Title:      in.Title,
		Thumbnail:  in.Thumbnail,
		Duration:   in.Duration,
		Extractor:  in.Extractor,
		URL:        in.URL,
		DisplayURL: in.DisplayURL,
	}

	for _, f := range in.Formats {
		v := f.variant()
		if !v.Valid() {
			continue
		}
		desc.Variants = append(desc.Variants, v)
	}

	for _, e := range in.Entries {
		// Unavailable playlist items come back as null.
		if e == nil {
			continue
		}
		desc.Entries = append(desc.Entries, *e.description())
	}

	desc.Kind = media.Image
	if desc.HasVideo() {
		desc.Kind = media.Video
	}
	return desc
}

// variant maps a format. A codec the engine did not report counts as present;
// only an explicit "none" marks the stream as absent.
func (f format) variant() media.Variant {
	return media.Variant{
		FormatID: f.FormatID,
		URL:      f.URL,
		Ext:      f.Ext,
		Height:   f.Height,
		Bitrate:  f.ABR,
		HasVideo: codecPresent(f.VCodec),
		HasAudio: codecPresent(f.ACodec),
	}
}

func codecPresent(codec *string) bool {
	return codec == nil || *codec != "none"
}
