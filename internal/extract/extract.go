// Package extract describes arbitrary media URLs by asking the external
// extraction engine (yt-dlp) for its JSON metadata dump.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"flashdl/internal/config"
	"flashdl/internal/httputil"
	"flashdl/internal/log"
	"flashdl/internal/media"
)

// Engine describes a URL without downloading it.
type Engine interface {
	Extract(ctx context.Context, rawURL string) (*media.Description, error)
}

// runFunc executes a command and returns its stdout. Tests replace it.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// YtDlp is the Engine backed by the yt-dlp binary.
type YtDlp struct {
	binary     string
	cookieFile string
	userAgent  string
	timeout    time.Duration
	run        runFunc
}

// NewYtDlp builds the engine from the service configuration and the
// capabilities detected at startup.
func NewYtDlp(cfg *config.Config, caps config.Capabilities) *YtDlp {
	return &YtDlp{
		binary:     cfg.YtDlpPath,
		cookieFile: caps.CookieFile,
		userAgent:  httputil.DesktopUserAgent,
		timeout:    cfg.ExtractTimeout.Duration,
		run:        runCommand,
	}
}

// Extract runs yt-dlp -J against rawURL and maps its output.
func (y *YtDlp) Extract(ctx context.Context, rawURL string) (*media.Description, error) {
	if y.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, y.timeout)
		defer cancel()
	}

	logger := log.WithComponentFromContext(ctx, "extract")
	start := time.Now()

	out, err := y.run(ctx, y.binary, y.args(rawURL)...)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("yt-dlp timed out after %s", y.timeout)
		}
		return nil, err
	}

	desc, err := parseInfo(out)
	if err != nil {
		return nil, err
	}

	logger.Debug().
		Str("url", rawURL).
		Str("extractor", desc.Extractor).
		Int("variants", len(desc.Variants)).
		Int("entries", len(desc.Entries)).
		Dur("duration", time.Since(start)).
		Msg("extraction finished")

	return desc, nil
}

func (y *YtDlp) args(rawURL string) []string {
	args := []string{
		"-J",
		"--no-warnings",
		"--playlist-items", "1",
		"--user-agent", y.userAgent,
	}
	if y.cookieFile != "" {
		args = append(args, "--cookies", y.cookieFile)
	}
	// "--" keeps a URL starting with "-" from being read as a flag.
	return append(args, "--", rawURL)
}

// runCommand runs name with args, returning stdout. On failure the error
// carries the last line yt-dlp wrote to stderr, which is its error message.
func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := LastLine(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %w", msg, err)
		}
		return nil, fmt.Errorf("running %s: %w", name, err)
	}
	return stdout.Bytes(), nil
}

// LastLine returns the last non-empty line of s, trimmed.
func LastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}
