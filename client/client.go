// Package client is a typed Go client for the partner dashboard API,
// plus the view-state machinery the dashboard frontend drives it with:
// immutable filter sets, sort/pagination rules, per-panel fetch
// reconciliation and list/detail view assembly.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/manaskarra/pdash/api/dataset"
	"github.com/manaskarra/pdash/api/handlers"
	"github.com/manaskarra/pdash/api/insights"
	"github.com/manaskarra/pdash/api/store"
)

// Client is an HTTP client for the dashboard API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

// New creates an API client for the given base URL.
func New(baseURL string, log *slog.Logger) *Client {
	// Custom transport with dial timeout for fast failure on connection issues
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   5,
	}

	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   60 * time.Second,
		},
		log: log,
	}
}

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: %s (status %d)", e.Message, e.StatusCode)
}

// NotFound reports whether the error is a 404, so callers can render an
// empty state instead of a failure.
func (e *APIError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// DecodeError is a 2xx response whose body did not match the expected
// shape.
type DecodeError struct {
	Endpoint string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s response: %v", e.Endpoint, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// envelope is the {success, data} wrapper the analytics endpoints use.
type envelope[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, path, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, path, out)
}

func (c *Client) do(req *http.Request, path string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return readAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &DecodeError{Endpoint: path, Err: err}
	}
	return nil
}

// readAPIError extracts the {"error": msg} body the API uses; anything
// else falls back to the raw body.
func readAPIError(resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	msg := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.Error != "" && payload.Message != "":
			// Rate limit responses carry both a code and a message.
			msg = fmt.Sprintf("%s: %s", payload.Error, payload.Message)
		case payload.Error != "":
			msg = payload.Error
		}
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}

// Place scopes a request to a country or a region. At most one side is
// set.
type Place struct {
	Country string
	Region  string
}

func (p Place) query() url.Values {
	q := url.Values{}
	if p.Country != "" {
		q.Set("country", p.Country)
	}
	if p.Region != "" {
		q.Set("region", p.Region)
	}
	return q
}

// Health fetches the composite service health.
func (c *Client) Health(ctx context.Context) (*handlers.HealthResponse, error) {
	var out handlers.HealthResponse
	if err := c.getJSON(ctx, "/api/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Overview fetches the KPI block for the overview panel.
func (c *Client) Overview(ctx context.Context) (*dataset.Overview, error) {
	var out dataset.Overview
	if err := c.getJSON(ctx, "/api/partner-overview", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Partners fetches one page of the partner list. query carries the
// filter, sort and pagination parameters; ListView builds it.
func (c *Client) Partners(ctx context.Context, query url.Values) (*dataset.PartnerList, error) {
	var out dataset.PartnerList
	if err := c.getJSON(ctx, "/api/partners", query, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FilterOptions fetches the distinct filterable values.
func (c *Client) FilterOptions(ctx context.Context) (*dataset.FilterOptions, error) {
	var out dataset.FilterOptions
	if err := c.getJSON(ctx, "/api/filters", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TierAnalytics fetches the global tier analytics view.
func (c *Client) TierAnalytics(ctx context.Context) (*dataset.TierAnalytics, error) {
	var out dataset.TierAnalytics
	if err := c.getJSON(ctx, "/api/tier-analytics", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CountryTierAnalytics fetches the drill-down for one country or region.
func (c *Client) CountryTierAnalytics(ctx context.Context, place Place, includeRankings bool) (*dataset.CountryTierAnalytics, error) {
	q := place.query()
	if includeRankings {
		q.Set("include_rankings", "true")
	}
	var out envelope[dataset.CountryTierAnalytics]
	if err := c.getJSON(ctx, "/api/country-tier-analytics", q, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// TierDetail fetches the per-partner monthly rows behind the tier modal.
func (c *Client) TierDetail(ctx context.Context, place Place, tier, month string) ([]dataset.TierDetailRow, error) {
	q := place.query()
	if tier != "" {
		q.Set("tier", tier)
	}
	if month != "" {
		q.Set("month", month)
	}
	var out envelope[[]dataset.TierDetailRow]
	if err := c.getJSON(ctx, "/api/tier-detail", q, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// TierPerformance fetches monthly metrics for one tier's partners.
func (c *Client) TierPerformance(ctx context.Context, place Place, tier string) ([]dataset.TierPerformanceRow, error) {
	q := place.query()
	q.Set("tier", tier)
	var out envelope[[]dataset.TierPerformanceRow]
	if err := c.getJSON(ctx, "/api/tier-performance", q, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// ProgressionParams scope a tier progression request.
type ProgressionParams struct {
	Place
	FromTier string
	ToTier   string
	Global   bool
}

func (p ProgressionParams) query() url.Values {
	q := p.Place.query()
	if p.FromTier != "" {
		q.Set("from_tier", p.FromTier)
	}
	if p.ToTier != "" {
		q.Set("to_tier", p.ToTier)
	}
	if p.Global {
		q.Set("is_global", "true")
	}
	return q
}

// TierProgression fetches month-over-month tier movement scores.
func (c *Client) TierProgression(ctx context.Context, params ProgressionParams) (*dataset.TierProgression, error) {
	var out envelope[dataset.TierProgression]
	if err := c.getJSON(ctx, "/api/partner-tier-progression", params.query(), &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// MovementDetails fetches the partner transitions behind one month's
// movement score. month uses the display label, e.g. "Jul 2025";
// movementType is "positive" or "negative".
func (c *Client) MovementDetails(ctx context.Context, params ProgressionParams, month, movementType string) (*dataset.MovementDetails, error) {
	q := params.query()
	q.Set("month", month)
	q.Set("movement_type", movementType)
	var out envelope[dataset.MovementDetails]
	if err := c.getJSON(ctx, "/api/partner-tier-movement-details", q, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// GlobalProgressionCountries fetches the country ranking of movement
// scores for one month and direction.
func (c *Client) GlobalProgressionCountries(ctx context.Context, month, movementType, fromTier, toTier string) (*dataset.GlobalMovementCountries, error) {
	q := url.Values{}
	q.Set("month", month)
	q.Set("movement_type", movementType)
	if fromTier != "" {
		q.Set("from_tier", fromTier)
	}
	if toTier != "" {
		q.Set("to_tier", toTier)
	}
	var out envelope[dataset.GlobalMovementCountries]
	if err := c.getJSON(ctx, "/api/global-tier-progression-countries", q, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// PartnerDetail fetches one partner's full record. A missing partner
// comes back as an *APIError with NotFound() true.
func (c *Client) PartnerDetail(ctx context.Context, partnerID string) (*handlers.PartnerDetailResponse, error) {
	var out handlers.PartnerDetailResponse
	if err := c.getJSON(ctx, "/api/partners/"+url.PathEscape(partnerID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PartnerFunnel fetches one partner's monthly client funnel.
func (c *Client) PartnerFunnel(ctx context.Context, partnerID string) (*handlers.PartnerFunnelResponse, error) {
	var out handlers.PartnerFunnelResponse
	if err := c.getJSON(ctx, "/api/partners/"+url.PathEscape(partnerID)+"/funnel", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ApplicationCountries fetches the countries available for application
// funnel filtering.
func (c *Client) ApplicationCountries(ctx context.Context) (*handlers.ApplicationCountriesResponse, error) {
	var out handlers.ApplicationCountriesResponse
	if err := c.getJSON(ctx, "/api/partner-application-countries", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ApplicationFunnel fetches application funnel analytics. month may be
// "all" or a display label; countries narrows the distributions.
func (c *Client) ApplicationFunnel(ctx context.Context, month string, countries []string) (*handlers.ApplicationFunnelResponse, error) {
	q := url.Values{}
	if month != "" {
		q.Set("month", month)
	}
	if len(countries) > 0 {
		q.Set("countries", strings.Join(countries, ","))
	}
	var out handlers.ApplicationFunnelResponse
	if err := c.getJSON(ctx, "/api/partner-application-funnel", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MonthlyCountryFunnel fetches the monthly application funnel for one
// country or region.
func (c *Client) MonthlyCountryFunnel(ctx context.Context, place Place) (*store.MonthlyCountryFunnel, error) {
	var out envelope[store.MonthlyCountryFunnel]
	if err := c.getJSON(ctx, "/api/monthly-country-funnel", place.query(), &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// Analytics asks the quick-analytics endpoint a keyword question.
func (c *Client) Analytics(ctx context.Context, query string) (*handlers.AnalyticsResponse, error) {
	var out handlers.AnalyticsResponse
	req := map[string]string{"query": query}
	if err := c.postJSON(ctx, "/api/analytics", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateInsights asks the AI endpoint for a narrative over a panel's
// data.
func (c *Client) GenerateInsights(ctx context.Context, panelContext string, data any) (*insights.Insights, error) {
	var out insights.Insights
	req := map[string]any{"context": panelContext, "data": data}
	if err := c.postJSON(ctx, "/api/ai-insights", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
