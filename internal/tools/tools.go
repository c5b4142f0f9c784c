// Package tools resolves the external binaries the downloader shells out to.
package tools

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/TaehongKim/PersonalAudio-sub000/internal/config"
)

// ErrToolsMissing is returned when a required external binary cannot be
// found. Jobs fail fast on this error; there is no simulated fallback.
var ErrToolsMissing = errors.New("required external tools are missing")

// Paths holds the resolved locations of the media extractor and transcoder.
type Paths struct {
	YtDlp  string
	Ffmpeg string
}

// Provisioner resolves and caches the binary paths. Resolution prefers
// explicit config overrides, then falls back to PATH lookup.
type Provisioner struct {
	cfg      *config.Config
	mu       sync.Mutex
	resolved *Paths
}

func NewProvisioner(cfg *config.Config) *Provisioner {
	return &Provisioner{cfg: cfg}
}

// Resolve returns the binary paths, resolving them on first use.
func (p *Provisioner) Resolve() (Paths, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.resolved != nil {
		return *p.resolved, nil
	}

	var missing []string

	ytdlp, err := resolveBinary(p.cfg.YtDlpPath, "yt-dlp")
	if err != nil {
		missing = append(missing, "yt-dlp")
	}

	ffmpeg, err := resolveBinary(p.cfg.FfmpegPath, "ffmpeg")
	if err != nil {
		missing = append(missing, "ffmpeg")
	}

	if len(missing) > 0 {
		return Paths{}, fmt.Errorf("%w: %s", ErrToolsMissing, strings.Join(missing, ", "))
	}

	p.resolved = &Paths{YtDlp: ytdlp, Ffmpeg: ffmpeg}
	return *p.resolved, nil
}

// EnsureInstalled verifies both binaries are present and executable.
// Idempotent; safe to call from health checks.
func (p *Provisioner) EnsureInstalled() error {
	_, err := p.Resolve()
	return err
}

// Invalidate drops the cached paths so the next Resolve looks them up again.
func (p *Provisioner) Invalidate() {
	p.mu.Lock()
	p.resolved = nil
	p.mu.Unlock()
}

func resolveBinary(override, name string) (string, error) {
	if override != "" {
		info, err := os.Stat(override)
		if err != nil {
			return "", err
		}
		if info.IsDir() || info.Mode()&0111 == 0 {
			return "", fmt.Errorf("%s is not an executable file", override)
		}
		return override, nil
	}
	return exec.LookPath(name)
}
