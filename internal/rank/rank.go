// Package rank turns the raw format list of a video into the short, ordered
// menu of delivery options offered to the user.
package rank

import (
	"errors"
	"fmt"
	"sort"

	"flashdl/internal/media"
)

// MinMergeHeight is the lowest video-only resolution worth a server-side merge.
const MinMergeHeight = 1080

// AudioOnlyLabel names the single audio option.
const AudioOnlyLabel = "Audio Only (MP3)"

// ErrNoVideo is returned when no variant carries video; the caller should
// treat the media as an image. The audio-only option, if any, is still
// returned alongside it.
var ErrNoVideo = errors.New("no video options")

// Rank builds the option menu. Options are unique by height and ordered by
// height descending, merge-required DASH options win over progressive ones at
// the same height, and the audio-only option (if any) comes last. Progressive
// options below MinMergeHeight are kept alongside DASH options at other heights.
func Rank(variants []media.Variant) ([]media.Option, error) {
	dash, progressive, audio := partition(variants)

	var audioOpt []media.Option
	if best, ok := bestAudio(audio); ok {
		audioOpt = append(audioOpt, media.Option{
			Label:  AudioOnlyLabel,
			Ext:    "mp3",
			Target: media.Target{URL: best.URL},
		})
	}

	if len(dash) == 0 && len(progressive) == 0 {
		return audioOpt, ErrNoVideo
	}

	sortByHeightDesc(dash)
	sortByHeightDesc(progressive)

	var options []media.Option
	seen := make(map[int]bool)

	for _, v := range dash {
		if v.Height < MinMergeHeight || seen[v.Height] || v.FormatID == "" {
			continue
		}
		options = append(options, media.Option{
			Label:         fmt.Sprintf("HD %dp (Best Quality + Audio)", v.Height),
			Ext:           "mp4",
			Height:        v.Height,
			RequiresMerge: true,
			Target: media.Target{
				VideoFormat: v.FormatID,
				AudioFormat: media.BestAudio,
			},
		})
		seen[v.Height] = true
	}

	for _, v := range progressive {
		if v.Height <= 0 || seen[v.Height] || v.URL == "" {
			continue
		}
		options = append(options, media.Option{
			Label:  fmt.Sprintf("Video %dp (Fast)", v.Height),
			Ext:    "mp4",
			Height: v.Height,
			Target: media.Target{URL: v.URL},
		})
		seen[v.Height] = true
	}

	return append(options, audioOpt...), nil
}

// partition splits valid variants into video-only, progressive and audio-only groups.
func partition(variants []media.Variant) (dash, progressive, audio []media.Variant) {
	for _, v := range variants {
		switch {
		case !v.Valid():
			continue
		case v.HasVideo && !v.HasAudio:
			dash = append(dash, v)
		case v.HasVideo && v.HasAudio:
			progressive = append(progressive, v)
		default:
			audio = append(audio, v)
		}
	}
	return dash, progressive, audio
}

// sortByHeightDesc keeps engine order among equal heights.
func sortByHeightDesc(vs []media.Variant) {
	sort.SliceStable(vs, func(i, j int) bool {
		return vs[i].Height > vs[j].Height
	})
}

// bestAudio picks the highest-bitrate audio variant with a fetchable URL.
// On ties the later variant wins, as engines list formats worst to best.
func bestAudio(audio []media.Variant) (media.Variant, bool) {
	var best media.Variant
	found := false
	for _, v := range audio {
		if v.URL == "" {
			continue
		}
		if !found || v.Bitrate >= best.Bitrate {
			best = v
			found = true
		}
	}
	return best, found
}
