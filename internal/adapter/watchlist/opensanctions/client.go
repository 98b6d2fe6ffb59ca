// Package opensanctions adapts the OpenSanctions search API to the
// domain.WatchlistClient port.
package opensanctions

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"

	adapterobs "github.com/fairyhunter13/company-investigation/internal/adapter/observability"
	"github.com/fairyhunter13/company-investigation/internal/config"
	"github.com/fairyhunter13/company-investigation/internal/domain"
)

// flagSearchResponse is the subset of the search response the extraction
// needs. Properties is an open map of string lists keyed by property name.
type flagSearchResponse struct {
	Results []searchResult `json:"results"`
}

type searchResult struct {
	ID         string              `json:"id"`
	Caption    string              `json:"caption"`
	Properties map[string][]string `json:"properties"`
	Datasets   []string            `json:"datasets"`
}

// Client implements domain.WatchlistClient against the OpenSanctions search
// API. The key travels as a query parameter, matching the upstream API.
type Client struct {
	hc      *http.Client
	baseURL string
	apiKey  string
}

// New constructs a Client from configuration.
func New(cfg config.Config) *Client {
	return &Client{
		hc: &http.Client{
			Timeout:   cfg.HTTPClientTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL: cfg.OpenSanctionsBaseURL,
		apiKey:  cfg.OpenSanctionsAPIKey,
	}
}

// NewWithBase constructs a Client against an explicit base URL; tests point
// it at a local server.
func NewWithBase(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{hc: &http.Client{Timeout: timeout}, baseURL: baseURL, apiKey: apiKey}
}

// Flags searches the watchlist for a name and extracts the top-ranked match:
// the "topics" property, the "position" property and the dataset list. A
// search with no results returns nil, which callers treat as a clean entity.
func (c *Client) Flags(ctx domain.Context, name string) (*domain.WatchlistMatch, error) {
	ctx, span := otel.Tracer("watchlist.opensanctions").Start(ctx, "watchlist.flags")
	defer span.End()

	start := time.Now()
	defer func() {
		adapterobs.WatchlistRequestDuration.WithLabelValues("flags").Observe(time.Since(start).Seconds())
	}()

	q := url.Values{
		"api_key": []string{c.apiKey},
		"q":       []string{name},
	}
	u := c.baseURL + "/search/default?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("op=watchlist.flags: %w", err)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("op=watchlist.flags: %w: %w", domain.ErrUpstream, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("op=watchlist.flags: status %d: %w", resp.StatusCode, domain.ErrUpstream)
	}

	var search flagSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&search); err != nil {
		return nil, fmt.Errorf("op=watchlist.flags: %w: %w", domain.ErrUpstream, err)
	}
	if len(search.Results) == 0 {
		return nil, nil
	}

	top := search.Results[0]
	return &domain.WatchlistMatch{
		Topics:    top.Properties["topics"],
		Positions: top.Properties["position"],
		Datasets:  top.Datasets,
	}, nil
}
