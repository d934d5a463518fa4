package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanTitle(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "My Video", "My Video"},
		{"punctuation stripped", "Hello, World! (Official)", "Hello World Official"},
		{"path characters", "../../etc/passwd", "etcpasswd"},
		{"surrounding space trimmed", "  spaced out  ", "spaced out"},
		{"unicode letters kept", "Café número 5", "Café número 5"},
		{"emoji removed", "party 🎉 time", "party  time"},
		{"only symbols", "!!!???", DefaultTitle},
		{"empty", "", DefaultTitle},
		{"tabs and newlines removed", "a\tb\nc", "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanTitle(tt.input))
		})
	}
}

func TestCleanTitleIdempotent(t *testing.T) {
	inputs := []string{
		"Hello, World!",
		"  x  ",
		"",
		"日本語のタイトル【公式】",
		"a - b - c",
		"Ünïcödé & <tags>",
	}
	for _, in := range inputs {
		once := CleanTitle(in)
		assert.Equal(t, once, CleanTitle(once), "CleanTitle not idempotent for %q", in)
	}
}

func TestVariantValid(t *testing.T) {
	assert.True(t, Variant{HasVideo: true}.Valid())
	assert.True(t, Variant{HasAudio: true}.Valid())
	assert.False(t, Variant{URL: "https://cdn.example/x"}.Valid())
}

func TestDescriptionHasVideo(t *testing.T) {
	d := &Description{Variants: []Variant{{HasAudio: true}}}
	assert.False(t, d.HasVideo())

	d.Variants = append(d.Variants, Variant{HasVideo: true, Height: 720})
	assert.True(t, d.HasVideo())
}

func TestFetchSpecForRoundTrip(t *testing.T) {
	merge := Option{
		Label:         "HD 1080p (Best Quality + Audio)",
		Ext:           "mp4",
		Height:        1080,
		RequiresMerge: true,
		Target:        Target{VideoFormat: "303", AudioFormat: BestAudio, SourceURL: "https://video.example/watch?v=1"},
	}
	spec := FetchSpecFor(merge, "Some: Title")
	assert.True(t, spec.RequiresMerge())
	assert.Equal(t, "303", spec.Target.VideoFormat)
	assert.Equal(t, "https://video.example/watch?v=1", spec.Target.SourceURL)
	assert.Equal(t, "Some Title", spec.Filename)

	direct := Option{Label: "Video 720p (Fast)", Ext: "mp4", Height: 720, Target: Target{URL: "https://cdn.example/720.mp4"}}
	spec = FetchSpecFor(direct, "t")
	assert.False(t, spec.RequiresMerge())
	assert.Equal(t, "https://cdn.example/720.mp4", spec.Target.URL)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "video", Video.String())
	assert.Equal(t, "image", Image.String())
	assert.Equal(t, "unknown", Kind(9).String())
}
