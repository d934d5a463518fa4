// Package config handles TOML-based configuration loading and validation.
// Values merge as defaults < config file < CLI flags; the file is parsed as data only.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration wraps time.Duration so TOML files can say "30s" or "2m".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config holds all application configuration.
type Config struct {
	Listen         string   `toml:"listen"`
	LogLevel       string   `toml:"log_level"`
	LogFormat      string   `toml:"log_format"`
	TempDir        string   `toml:"temp_dir"`
	CookieFile     string   `toml:"cookie_file"`
	YtDlpPath      string   `toml:"ytdlp_path"`
	FFmpegPath     string   `toml:"ffmpeg_path"`
	ExtractTimeout Duration `toml:"extract_timeout"`
	MergeTimeout   Duration `toml:"merge_timeout"`
	ScrapeTimeout  Duration `toml:"scrape_timeout"`
	AllowedOrigins []string `toml:"allowed_origins"`
	RateLimit      int      `toml:"rate_limit"` // /extract requests per minute per IP, 0 disables

	DiscussionHosts []string          `toml:"discussion_hosts"`
	ImageHosts      []string          `toml:"image_hosts"`
	Referers        map[string]string `toml:"referers"` // origin host suffix -> Referer header
	Picker          string            `toml:"picker"`   // "tui" or "fzf", used by the get command
	Debug           bool              `toml:"debug"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Listen:         ":5000",
		LogLevel:       "info",
		LogFormat:      "auto",
		TempDir:        filepath.Join(os.TempDir(), "flashdl_processing"),
		CookieFile:     "cookies.txt",
		YtDlpPath:      "yt-dlp",
		FFmpegPath:     "ffmpeg",
		ExtractTimeout: Duration{90 * time.Second},
		MergeTimeout:   Duration{15 * time.Minute},
		ScrapeTimeout:  Duration{10 * time.Second},
		AllowedOrigins: []string{"*"},
		RateLimit:      30,
		Picker:         "tui",
		DiscussionHosts: []string{
			"reddit.com",
			"redd.it",
		},
		ImageHosts: []string{
			"instagram.com",
		},
		Referers: map[string]string{
			"googlevideo.com":  "https://www.youtube.com/",
			"cdninstagram.com": "https://www.instagram.com/",
			"fbcdn.net":        "https://www.instagram.com/",
		},
	}
}

// configDir returns the XDG-compliant config directory.
func configDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "flashdl"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".config", "flashdl"), nil
}

// ConfigPath returns the path to the default config file.
func ConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the default config file and merges it over defaults.
// If the config file doesn't exist, defaults are returned.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Default(), nil
	}
	return LoadFile(path, false)
}

// LoadFile reads a specific config file. When required is false a missing
// file yields the defaults.
func LoadFile(path string, required bool) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks config values are within acceptable bounds.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address cannot be empty")
	}

	validFormats := map[string]bool{"auto": true, "json": true, "console": true}
	if !validFormats[strings.ToLower(c.LogFormat)] {
		return fmt.Errorf("unsupported log format %q (valid: auto, json, console)", c.LogFormat)
	}

	validLevels := map[string]bool{
		"trace": true, "debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("unsupported log level %q (valid: trace, debug, info, warn, error)", c.LogLevel)
	}

	if c.TempDir == "" {
		return fmt.Errorf("temp dir cannot be empty")
	}
	if c.YtDlpPath == "" {
		return fmt.Errorf("yt-dlp path cannot be empty")
	}

	if c.ExtractTimeout.Duration <= 0 {
		return fmt.Errorf("extract timeout must be positive, got %s", c.ExtractTimeout.Duration)
	}
	if c.MergeTimeout.Duration <= 0 {
		return fmt.Errorf("merge timeout must be positive, got %s", c.MergeTimeout.Duration)
	}
	if c.ScrapeTimeout.Duration <= 0 || c.ScrapeTimeout.Duration > 15*time.Second {
		return fmt.Errorf("scrape timeout must be in (0s, 15s], got %s", c.ScrapeTimeout.Duration)
	}

	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit cannot be negative")
	}

	switch strings.ToLower(c.Picker) {
	case "tui", "fzf":
	default:
		return fmt.Errorf("unsupported picker %q (valid: tui, fzf)", c.Picker)
	}

	for _, h := range append(append([]string{}, c.DiscussionHosts...), c.ImageHosts...) {
		if strings.TrimSpace(h) == "" || strings.ContainsAny(h, "/: ") {
			return fmt.Errorf("invalid host %q: expected a bare domain", h)
		}
	}

	return nil
}
