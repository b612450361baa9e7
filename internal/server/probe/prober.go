// Package probe determines the playback duration of remote audio files. The
// audio is fetched into a scratch temp file and inspected with ffprobe, so
// any container format ffprobe understands is supported.
package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// FFProbe probes audio duration via the ffprobe binary. The whole operation
// (download plus probe) is bounded by Timeout.
type FFProbe struct {
	client  *http.Client
	timeout time.Duration
}

// NewFFProbe constructs a prober. httpClient may be nil, in which case a
// default client is used; the overall deadline comes from timeout either way.
func NewFFProbe(httpClient *http.Client, timeout time.Duration) *FFProbe {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &FFProbe{client: httpClient, timeout: timeout}
}

// runFFprobe is a seam for testing the exec call.
var runFFprobe = func(ctx context.Context, path string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe: %w", err)
	}
	return out, nil
}

// Duration returns the playback duration of the audio at url, in seconds.
// Any error means the duration is unknown; callers are expected to fail
// closed. The scratch file is removed on every exit path.
func (p *FFProbe) Duration(ctx context.Context, url string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	scratch, err := os.CreateTemp("", "audioprobe-*")
	if err != nil {
		return 0, fmt.Errorf("create scratch file: %w", err)
	}
	defer func() {
		_ = scratch.Close()
		_ = os.Remove(scratch.Name())
	}()

	if err := p.fetch(ctx, url, scratch); err != nil {
		return 0, err
	}

	out, err := runFFprobe(ctx, scratch.Name())
	if err != nil {
		return 0, err
	}

	return parseDuration(out)
}

func (p *FFProbe) fetch(ctx context.Context, url string, dst *os.File) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("fetch audio: http %d", resp.StatusCode)
	}

	if _, err := io.Copy(dst, resp.Body); err != nil {
		return fmt.Errorf("write scratch file: %w", err)
	}
	return nil
}

func parseDuration(out []byte) (float64, error) {
	s := strings.TrimSpace(string(out))
	if s == "" || s == "N/A" {
		return 0, errors.New("no duration in metadata")
	}
	d, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	if math.IsNaN(d) || math.IsInf(d, 0) || d < 0 {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}
