package config

import (
	"os"
	"os/exec"
)

// SecretsCookiePath is where hosted deployments mount the cookie file.
const SecretsCookiePath = "/etc/secrets/cookies.txt"

// Capabilities describes what this deployment can do. It is detected once at
// startup and never mutated afterwards.
type Capabilities struct {
	// MergeAvailable is true when both yt-dlp and ffmpeg were found.
	MergeAvailable bool

	// CookieFile is the cookie jar handed to yt-dlp, empty when none exists.
	CookieFile string
}

// lookPath is swapped in tests.
var lookPath = exec.LookPath

// DetectCapabilities probes the environment described by cfg.
func DetectCapabilities(cfg *Config) Capabilities {
	return Capabilities{
		MergeAvailable: binaryExists(cfg.YtDlpPath) && binaryExists(cfg.FFmpegPath),
		CookieFile:     firstExisting(SecretsCookiePath, cfg.CookieFile),
	}
}

func binaryExists(name string) bool {
	if name == "" {
		return false
	}
	_, err := lookPath(name)
	return err == nil
}

func firstExisting(paths ...string) string {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}
