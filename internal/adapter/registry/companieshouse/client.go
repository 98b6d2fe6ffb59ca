// Package companieshouse adapts the Companies House registry APIs to the
// domain ports: the REST API behind domain.RegistryClient and the long-lived
// event stream behind StreamClient.
package companieshouse

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"

	adapterobs "github.com/fairyhunter13/company-investigation/internal/adapter/observability"
	"github.com/fairyhunter13/company-investigation/internal/config"
	"github.com/fairyhunter13/company-investigation/internal/domain"
	"github.com/fairyhunter13/company-investigation/internal/observability"
)

// Client implements domain.RegistryClient against the Companies House REST
// API. The API key is sent raw in the Authorization header, not base64-encoded
// basic auth.
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
		baseURL: cfg.CompanyHouseBaseURL,
		apiKey:  cfg.CompanyHouseAPIKey,
	}
}

// NewWithBase constructs a Client against an explicit base URL; tests point it
// at a local server.
func NewWithBase(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		hc:      &http.Client{Timeout: timeout},
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

// getJSON performs one authenticated GET and decodes the body into out.
func (c *Client) getJSON(ctx domain.Context, operation, path string, query url.Values, out any) error {
	start := time.Now()
	defer func() {
		adapterobs.RegistryRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}()

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("op=registry.%s: %w", operation, err)
	}
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("op=registry.%s: %w: %w", operation, domain.ErrUpstream, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("op=registry.%s: status %d: %w", operation, resp.StatusCode, domain.ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("op=registry.%s: status %d: %w", operation, resp.StatusCode, domain.ErrUpstream)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("op=registry.%s: %w: %w", operation, domain.ErrUpstream, err)
	}
	return nil
}

// SearchCompanies queries the company search endpoint and returns the hits
// that carry a company number.
func (c *Client) SearchCompanies(ctx domain.Context, name string) ([]domain.CompanyMatch, error) {
	ctx, span := otel.Tracer("registry.companieshouse").Start(ctx, "registry.search_companies")
	defer span.End()

	var resp companySearchResponse
	q := url.Values{"q": []string{name}}
	if err := c.getJSON(ctx, "search_companies", "/search/companies", q, &resp); err != nil {
		return nil, err
	}

	matches := make([]domain.CompanyMatch, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.CompanyNumber == nil {
			continue
		}
		m := domain.CompanyMatch{RegistryNumber: padRegistryNumber(*item.CompanyNumber)}
		if item.Title != nil {
			m.Name = *item.Title
		}
		if item.CompanyStatus != nil {
			m.Status = *item.CompanyStatus
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// Shareholders fetches the persons-with-significant-control of a company and
// projects them to entities. Records without a registration number are
// skipped with a warning; the registry holds many PSC records it cannot
// identify.
func (c *Client) Shareholders(ctx domain.Context, companyNumber string) ([]domain.EntityRelation, error) {
	ctx, span := otel.Tracer("registry.companieshouse").Start(ctx, "registry.shareholders")
	defer span.End()
	lg := observability.LoggerFromContext(ctx)

	var resp shareholderList
	path := "/company/" + url.PathEscape(companyNumber) + "/persons-with-significant-control"
	if err := c.getJSON(ctx, "shareholders", path, nil, &resp); err != nil {
		return nil, err
	}

	relations := make([]domain.EntityRelation, 0, len(resp.Items))
	for _, item := range resp.Items {
		rel, ok := shareholderEntityRelation(item)
		if !ok {
			lg.Warn("skipping shareholder without registration number",
				slog.String("company_number", companyNumber))
			continue
		}
		relations = append(relations, rel)
	}
	return relations, nil
}

// Officers fetches the officers of a company and projects them to entities.
// The officer id needed for a later appointments lookup is extracted from the
// appointments link.
func (c *Client) Officers(ctx domain.Context, companyNumber string) ([]domain.EntityRelation, error) {
	ctx, span := otel.Tracer("registry.companieshouse").Start(ctx, "registry.officers")
	defer span.End()
	lg := observability.LoggerFromContext(ctx)

	var resp officerListResponse
	path := "/company/" + url.PathEscape(companyNumber) + "/officers"
	if err := c.getJSON(ctx, "officers", path, nil, &resp); err != nil {
		return nil, err
	}

	relations := make([]domain.EntityRelation, 0, len(resp.Items))
	for _, item := range resp.Items {
		rel, ok := officerEntityRelation(item)
		if !ok {
			lg.Warn("skipping officer without registration number",
				slog.String("company_number", companyNumber))
			continue
		}
		relations = append(relations, rel)
	}
	return relations, nil
}

// Appointments fetches the companies an officer is appointed to. Each
// appointment projects to a company entity whose tenure is the appointment
// interval. Fails with ErrMissingIdentifier when officerID is empty, since
// the endpoint cannot be addressed without one.
func (c *Client) Appointments(ctx domain.Context, officerID string) ([]domain.EntityRelation, error) {
	ctx, span := otel.Tracer("registry.companieshouse").Start(ctx, "registry.appointments")
	defer span.End()
	lg := observability.LoggerFromContext(ctx)

	if officerID == "" {
		return nil, fmt.Errorf("op=registry.appointments: officer id is empty: %w", domain.ErrMissingIdentifier)
	}

	var resp appointmentsResponse
	path := "/officers/" + url.PathEscape(officerID) + "/appointments"
	if err := c.getJSON(ctx, "appointments", path, nil, &resp); err != nil {
		return nil, err
	}

	relations := make([]domain.EntityRelation, 0, len(resp.Items))
	for _, item := range resp.Items {
		rel, ok := appointmentEntityRelation(item)
		if !ok {
			lg.Warn("skipping appointment without company number",
				slog.String("officer_id", officerID))
			continue
		}
		relations = append(relations, rel)
	}
	return relations, nil
}

// FilingHistory fetches a company's filing history, most recent first as the
// registry orders it. Items without a parseable date are skipped.
func (c *Client) FilingHistory(ctx domain.Context, companyNumber string) ([]domain.Filing, error) {
	ctx, span := otel.Tracer("registry.companieshouse").Start(ctx, "registry.filing_history")
	defer span.End()

	var resp filingHistoryResponse
	path := "/company/" + url.PathEscape(companyNumber) + "/filing-history"
	if err := c.getJSON(ctx, "filing_history", path, nil, &resp); err != nil {
		return nil, err
	}

	filings := make([]domain.Filing, 0, len(resp.Items))
	for _, item := range resp.Items {
		date := parseDate(item.Date)
		if date == nil {
			continue
		}
		f := domain.Filing{Date: *date}
		if item.Category != nil {
			f.Category = *item.Category
		}
		if item.Description != nil {
			f.Description = *item.Description
		}
		filings = append(filings, f)
	}
	return filings, nil
}
