package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// AssemblyAI speech-to-text via the v2 transcript API:
// POST /v2/transcript submits a job referencing the audio URL, then
// GET /v2/transcript/{id} is polled until the job reaches a terminal status.
type AssemblyAI struct {
	apiKey       string
	baseURL      string
	client       *http.Client
	pollInterval time.Duration
	pollTimeout  time.Duration
}

// NewAssemblyAI constructs a client. baseURL is the API root without a
// trailing slash (e.g. "https://api.assemblyai.com"); tests point it at a
// local server.
func NewAssemblyAI(apiKey, baseURL string, pollInterval, pollTimeout time.Duration) *AssemblyAI {
	return &AssemblyAI{
		apiKey:       apiKey,
		baseURL:      baseURL,
		client:       &http.Client{Timeout: 30 * time.Second},
		pollInterval: pollInterval,
		pollTimeout:  pollTimeout,
	}
}

type transcriptResource struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Text   string `json:"text"`
	Error  string `json:"error"`
}

// Transcribe submits a job for the audio at url and polls it at the
// configured cadence. The poll loop sleeps between requests, so concurrent
// transcriptions proceed independently.
func (c *AssemblyAI) Transcribe(ctx context.Context, url string) (string, error) {
	job, err := c.submit(ctx, url)
	if err != nil {
		return "", err
	}

	deadline := time.NewTimer(c.pollTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-deadline.C:
			return "", fmt.Errorf("%w after %s (job %s)", ErrPollTimeout, c.pollTimeout, job.ID)
		case <-ticker.C:
			r, err := c.poll(ctx, job.ID)
			if err != nil {
				return "", err
			}
			switch r.Status {
			case "completed":
				return r.Text, nil
			case "error":
				return "", fmt.Errorf("%w: %s", ErrJobFailed, r.Error)
			}
			// queued / processing: keep polling
		}
	}
}

func (c *AssemblyAI) submit(ctx context.Context, url string) (*transcriptResource, error) {
	payload, err := json.Marshal(map[string]string{"audio_url": url})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/transcript", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	return c.do(req)
}

func (c *AssemblyAI) poll(ctx context.Context, id string) (*transcriptResource, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v2/transcript/"+id, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", c.apiKey)

	return c.do(req)
}

func (c *AssemblyAI) do(req *http.Request) (*transcriptResource, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("assemblyai http %d: %s", resp.StatusCode, string(b))
	}

	var r transcriptResource
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, err
	}
	return &r, nil
}
