package companieshouse

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/fairyhunter13/company-investigation/internal/config"
	"github.com/fairyhunter13/company-investigation/internal/domain"
)

// StreamClient opens long-lived connections to the Companies House streaming
// API. The streaming service uses its own API key, separate from the REST
// one, and the same raw Authorization header.
type StreamClient struct {
	hc      *http.Client
	baseURL string
	apiKey  string
}

// NewStreamClient constructs a StreamClient from configuration. The HTTP
// client carries no timeout: the connection is expected to stay open
// indefinitely, with heartbeats keeping it alive.
func NewStreamClient(cfg config.Config) *StreamClient {
	return &StreamClient{
		hc:      &http.Client{},
		baseURL: cfg.CompanyHouseStreamBaseURL,
		apiKey:  cfg.CompanyHouseStreamingAPIKey,
	}
}

// NewStreamClientWithBase constructs a StreamClient against an explicit base
// URL; tests point it at a local server.
func NewStreamClientWithBase(baseURL, apiKey string) *StreamClient {
	return &StreamClient{hc: &http.Client{}, baseURL: baseURL, apiKey: apiKey}
}

func streamPath(kind domain.StreamKind) (string, error) {
	switch kind {
	case domain.StreamCompany:
		return "/companies", nil
	case domain.StreamOfficer:
		return "/officers", nil
	case domain.StreamShareholder:
		return "/persons-with-significant-control", nil
	}
	return "", fmt.Errorf("op=registry.stream: unknown stream kind %q: %w", kind, domain.ErrInvalidArgument)
}

// OpenStream connects to the event stream for kind. When timepoint is non-nil
// the stream replays from the record after that cursor, so a restarted worker
// resumes where the previous run stopped. The caller owns the returned body.
func (c *StreamClient) OpenStream(ctx domain.Context, kind domain.StreamKind, timepoint *int64) (io.ReadCloser, error) {
	path, err := streamPath(kind)
	if err != nil {
		return nil, err
	}

	u := c.baseURL + path
	if timepoint != nil {
		q := url.Values{"timepoint": []string{strconv.FormatInt(*timepoint, 10)}}
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("op=registry.stream: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("op=registry.stream: %w: %w", domain.ErrUpstream, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("op=registry.stream: status %d: %w", resp.StatusCode, domain.ErrUpstream)
	}
	return resp.Body, nil
}
