// Package download produces merged media files on local disk.
// It drives yt-dlp (which in turn drives ffmpeg) with explicit argument
// slices and never trusts the output path it was handed.
package download

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"flashdl/internal/config"
	"flashdl/internal/extract"
	"flashdl/internal/log"
	"flashdl/internal/media"
)

// MergeRequest names the streams to combine and where to put the result.
type MergeRequest struct {
	SourceURL   string // page URL the format identifiers belong to
	VideoFormat string
	AudioFormat string // defaults to media.BestAudio
	OutputPath  string // absolute path of the .mp4 to create
}

// Merger combines a video-only and an audio-only stream into one file.
type Merger interface {
	Merge(ctx context.Context, req MergeRequest) error
}

type runFunc func(ctx context.Context, name string, args ...string) error

// Remuxer is the Merger backed by yt-dlp and ffmpeg.
type Remuxer struct {
	binary     string
	ffmpeg     string
	cookieFile string
	timeout    time.Duration
	run        runFunc
}

// NewRemuxer builds a Remuxer from the service configuration.
func NewRemuxer(cfg *config.Config, caps config.Capabilities) *Remuxer {
	return &Remuxer{
		binary:     cfg.YtDlpPath,
		ffmpeg:     cfg.FFmpegPath,
		cookieFile: caps.CookieFile,
		timeout:    cfg.MergeTimeout.Duration,
		run:        runCommand,
	}
}

// Merge downloads both formats and remuxes them into req.OutputPath.
// Any partial output is removed on failure.
func (r *Remuxer) Merge(ctx context.Context, req MergeRequest) error {
	if req.SourceURL == "" || req.VideoFormat == "" {
		return fmt.Errorf("%w: source URL and video format are required", media.ErrRemuxFailed)
	}
	if !filepath.IsAbs(req.OutputPath) {
		return fmt.Errorf("%w: output path %q is not absolute", media.ErrRemuxFailed, req.OutputPath)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	logger := log.WithComponentFromContext(ctx, "remux")
	start := time.Now()

	if err := r.run(ctx, r.binary, r.args(req)...); err != nil {
		removePartial(req.OutputPath)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: timed out after %s", media.ErrRemuxFailed, r.timeout)
		}
		return fmt.Errorf("%w: %v", media.ErrRemuxFailed, err)
	}

	info, err := os.Stat(req.OutputPath)
	if err != nil || info.IsDir() || info.Size() == 0 {
		removePartial(req.OutputPath)
		return fmt.Errorf("%w: no output produced at %s", media.ErrRemuxFailed, req.OutputPath)
	}

	logger.Info().
		Str("format", req.VideoFormat).
		Int64("bytes", info.Size()).
		Dur("duration", time.Since(start)).
		Msg("remux complete")
	return nil
}

// FormatSelector is the yt-dlp -f expression: the chosen pair, or the best
// single file when the pair is unavailable.
func FormatSelector(videoFormat, audioFormat string) string {
	if audioFormat == "" {
		audioFormat = media.BestAudio
	}
	return fmt.Sprintf("%s+%s/best", videoFormat, audioFormat)
}

func (r *Remuxer) args(req MergeRequest) []string {
	args := []string{
		"-f", FormatSelector(req.VideoFormat, req.AudioFormat),
		"--merge-output-format", "mp4",
		"--no-playlist",
		"-q", "--no-warnings", "--no-progress",
		"-o", req.OutputPath,
	}
	if r.ffmpeg != "" {
		args = append(args, "--ffmpeg-location", r.ffmpeg)
	}
	if r.cookieFile != "" {
		args = append(args, "--cookies", r.cookieFile)
	}
	return append(args, "--", req.SourceURL)
}

// removePartial deletes the output and the fragments yt-dlp leaves beside it.
func removePartial(outputPath string) {
	os.Remove(outputPath)
	matches, _ := filepath.Glob(outputPath + ".*")
	for _, m := range matches {
		os.Remove(m)
	}
	base := strings.TrimSuffix(outputPath, filepath.Ext(outputPath))
	matches, _ = filepath.Glob(base + ".f*")
	for _, m := range matches {
		os.Remove(m)
	}
}

func runCommand(ctx context.Context, name string, args ...string) error {
	var stderr strings.Builder
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := extract.LastLine(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w", msg, err)
		}
		return fmt.Errorf("running %s: %w", name, err)
	}
	return nil
}
