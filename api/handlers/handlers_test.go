package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manaskarra/pdash/api/dataset"
	"github.com/manaskarra/pdash/api/insights"
	"github.com/manaskarra/pdash/api/store"
	"github.com/manaskarra/pdash/internal/derive"
	laketesting "github.com/manaskarra/pdash/utils/pkg/testing"
)

type stubLoader struct {
	rows []dataset.MonthlyMetric
	err  error
}

func (l *stubLoader) LoadMonthlyMetrics(ctx context.Context) ([]dataset.MonthlyMetric, error) {
	return l.rows, l.err
}

// stubStore lets each test control exactly what the database returns.
type stubStore struct {
	health      store.HealthStatus
	partnerInfo *store.PartnerInfoDetails
	infoErr     error
	funnel      []store.FunnelMonth
	funnelErr   error
	acquisition store.AcquisitionSummary
	acqErr      error
	countries   []string
	appFunnel   *store.ApplicationFunnel
	appErr      error
	monthly     *store.MonthlyCountryFunnel

	gotMonth     time.Time
	gotCountries []string
}

func (s *stubStore) HealthCheck(ctx context.Context) store.HealthStatus { return s.health }

func (s *stubStore) PartnerInfo(ctx context.Context, partnerID string) (*store.PartnerInfoDetails, error) {
	return s.partnerInfo, s.infoErr
}

func (s *stubStore) PartnerFunnel(ctx context.Context, partnerID string) ([]store.FunnelMonth, error) {
	return s.funnel, s.funnelErr
}

func (s *stubStore) PartnerAcquisition(ctx context.Context, partnerID string) (store.AcquisitionSummary, error) {
	return s.acquisition, s.acqErr
}

func (s *stubStore) ApplicationCountryList(ctx context.Context) ([]string, error) {
	return s.countries, s.appErr
}

func (s *stubStore) ApplicationFunnelData(ctx context.Context, month time.Time, countries []string) (*store.ApplicationFunnel, error) {
	s.gotMonth, s.gotCountries = month, countries
	if s.appFunnel == nil {
		return &store.ApplicationFunnel{}, s.appErr
	}
	return s.appFunnel, s.appErr
}

func (s *stubStore) CountryMonthlyFunnel(ctx context.Context, country, region string) (*store.MonthlyCountryFunnel, error) {
	return s.monthly, s.appErr
}

type stubInsights struct {
	result *insights.Insights
	err    error
}

func (s *stubInsights) Generate(ctx context.Context, panelContext string, data json.RawMessage) (*insights.Insights, error) {
	return s.result, s.err
}

func month(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func metricRow(id, country string, mo time.Time, tier derive.Tier, earnings, revenue float64) dataset.MonthlyMetric {
	return dataset.MonthlyMetric{
		PartnerID:        id,
		Month:            mo,
		FirstName:        "Partner",
		LastName:         id,
		Username:         "p" + id,
		Country:          country,
		Region:           "South East Asia",
		Tier:             tier,
		JoinedDate:       time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC),
		TotalEarnings:    earnings,
		CompanyRevenue:   revenue,
		TotalDeposits:    earnings * 10,
		VolumeUSD:        earnings * 100,
		ActiveClients:    5,
		NewActiveClients: 2,
	}
}

func testRows() []dataset.MonthlyMetric {
	jun, jul := month(2025, time.June), month(2025, time.July)
	return []dataset.MonthlyMetric{
		metricRow("1", "Malaysia", jun, derive.TierGold, 1000, 4000),
		metricRow("1", "Malaysia", jul, derive.TierPlatinum, 2000, 8000),
		metricRow("2", "Vietnam", jun, derive.TierSilver, 500, 1000),
		metricRow("2", "Vietnam", jul, derive.TierGold, 1200, 3000),
	}
}

// newTestHandler builds a handler over an in-memory snapshot. rows may be
// nil to exercise the empty-dataset paths.
func newTestHandler(t *testing.T, rows []dataset.MonthlyMetric, db *stubStore, ins InsightsGenerator) *Handler {
	t.Helper()
	log := laketesting.NewLogger()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 8, 15, 12, 0, 0, 0, time.UTC))

	mgr := dataset.NewManager(&stubLoader{rows: rows}, time.Minute, clock, log)
	if rows != nil {
		require.NoError(t, mgr.Refresh(context.Background()))
	}
	return New(mgr, db, ins, clock, log)
}

// testRouter mounts handlers the way the server does, so chi URL params
// resolve in tests.
func testRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/api/health", h.Health)
	r.Get("/api/db-health", h.DBHealth)
	r.Get("/api/partner-overview", h.Overview)
	r.Get("/api/partners", h.Partners)
	r.Get("/api/partners/{partnerID}", h.PartnerDetail)
	r.Get("/api/partners/{partnerID}/funnel", h.PartnerFunnel)
	r.Get("/api/filters", h.Filters)
	r.Post("/api/analytics", h.Analytics)
	r.Get("/api/country-tier-analytics", h.CountryTierAnalytics)
	r.Get("/api/tier-performance", h.TierPerformance)
	r.Get("/api/partner-tier-progression", h.TierProgression)
	r.Get("/api/partner-tier-movement-details", h.MovementDetails)
	r.Get("/api/global-tier-progression-countries", h.GlobalProgressionCountries)
	r.Get("/api/partner-application-countries", h.ApplicationCountries)
	r.Get("/api/partner-application-funnel", h.ApplicationFunnel)
	r.Get("/api/monthly-country-funnel", h.MonthlyCountryFunnel)
	r.Post("/api/ai-insights", h.AIInsights)
	return r
}

func doJSON(t *testing.T, router http.Handler, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reqBody *strings.Reader
	if body == "" {
		reqBody = strings.NewReader("")
	} else {
		reqBody = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reqBody)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload), "body: %s", rec.Body.String())
	return rec, payload
}

func TestHealthDegradedWhenDatabaseDown(t *testing.T) {
	db := &stubStore{health: store.HealthStatus{Status: "unhealthy", Error: "connection refused"}}
	h := newTestHandler(t, testRows(), db, nil)
	router := testRouter(h)

	rec, payload := doJSON(t, router, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code, "degraded is still a 200")
	assert.Equal(t, "degraded", payload["status"])
	assert.Equal(t, true, payload["data_loaded"])
	assert.Equal(t, float64(4), payload["partner_count"], "counts rows, not distinct partners")

	db.health = store.HealthStatus{Status: "healthy"}
	_, payload = doJSON(t, router, http.MethodGet, "/api/health", "")
	assert.Equal(t, "healthy", payload["status"])
}

func TestDBHealthStatusCode(t *testing.T) {
	db := &stubStore{health: store.HealthStatus{Status: "unhealthy", Error: "timeout"}}
	h := newTestHandler(t, testRows(), db, nil)
	router := testRouter(h)

	rec, _ := doJSON(t, router, http.MethodGet, "/api/db-health", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	db.health = store.HealthStatus{Status: "healthy"}
	rec, _ = doJSON(t, router, http.MethodGet, "/api/db-health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSnapshotEndpointsRejectEmptyDataset(t *testing.T) {
	h := newTestHandler(t, nil, &stubStore{}, nil)
	router := testRouter(h)

	for _, target := range []string{
		"/api/partner-overview",
		"/api/partners",
		"/api/filters",
		"/api/country-tier-analytics?country=Malaysia",
	} {
		rec, payload := doJSON(t, router, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Equal(t, "No data available", payload["error"], target)
	}
}

func TestOverview(t *testing.T) {
	h := newTestHandler(t, testRows(), &stubStore{}, nil)
	router := testRouter(h)

	rec, payload := doJSON(t, router, http.MethodGet, "/api/partner-overview", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), payload["total_partners"])
	assert.Equal(t, float64(2), payload["active_partners"])
	assert.Contains(t, payload, "tier_distribution")
	assert.Contains(t, payload, "top_countries")
}

func TestPartnersListDefaults(t *testing.T) {
	h := newTestHandler(t, testRows(), &stubStore{}, nil)
	router := testRouter(h)

	rec, payload := doJSON(t, router, http.MethodGet, "/api/partners", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), payload["total_count"])
	assert.Equal(t, false, payload["has_more"])
	partners := payload["partners"].([]any)
	require.Len(t, partners, 2)
}

func TestPartnersMalformedNumericFilterIgnored(t *testing.T) {
	h := newTestHandler(t, testRows(), &stubStore{}, nil)
	router := testRouter(h)

	// A garbage numeric filter behaves as if it were absent.
	rec, payload := doJSON(t, router, http.MethodGet, "/api/partners?active_clients_min=abc", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), payload["total_count"])
}

func TestPartnerDetailNotFound(t *testing.T) {
	h := newTestHandler(t, testRows(), &stubStore{}, nil)
	router := testRouter(h)

	rec, payload := doJSON(t, router, http.MethodGet, "/api/partners/999", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Partner not found", payload["error"])
}

func TestPartnerDetailMergesStaticRecord(t *testing.T) {
	joined := "2024-08-15" // exactly one year before the fake clock
	status := "active"
	db := &stubStore{partnerInfo: &store.PartnerInfoDetails{
		PartnerID:     "1",
		DateJoined:    &joined,
		PartnerStatus: &status,
		IsMasterPlan:  true,
	}}
	h := newTestHandler(t, testRows(), db, nil)
	router := testRouter(h)

	rec, payload := doJSON(t, router, http.MethodGet, "/api/partners/1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	info := payload["partner_info"].(map[string]any)
	assert.Equal(t, joined, info["date_joined"])
	assert.Equal(t, status, info["partner_status"])
	assert.Equal(t, true, info["is_master_plan"])
	assert.Equal(t, "age-1yr", info["partner_age_badge"])
	assert.Equal(t, "1+ Year", info["partner_age_milestone"])
	assert.Equal(t, float64(365), info["partner_age_days"])
}

func TestPartnerDetailSurvivesDatabaseFailure(t *testing.T) {
	db := &stubStore{infoErr: errors.New("connection refused")}
	h := newTestHandler(t, testRows(), db, nil)
	router := testRouter(h)

	rec, payload := doJSON(t, router, http.MethodGet, "/api/partners/1", "")
	require.Equal(t, http.StatusOK, rec.Code, "snapshot view renders without the static record")

	info := payload["partner_info"].(map[string]any)
	assert.NotContains(t, info, "date_joined")
	assert.NotContains(t, info, "partner_age_badge")
	assert.Equal(t, float64(2), payload["total_records"])
}

func TestPartnerFunnelEmpty(t *testing.T) {
	h := newTestHandler(t, testRows(), &stubStore{}, nil)
	router := testRouter(h)

	rec, payload := doJSON(t, router, http.MethodGet, "/api/partners/1/funnel", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, payload["funnel_data"])

	summary := payload["summary"].(map[string]any)
	assert.Equal(t, float64(0), summary["total_months"])
	assert.NotContains(t, summary, "recent_month")
	assert.NotContains(t, payload, "acquisition_data")
}

func TestPartnerFunnelSummaryRates(t *testing.T) {
	db := &stubStore{
		funnel: []store.FunnelMonth{
			{JoinedMonth: "2025-07", DemoCount: 30, RealCount: 30, DepositCount: 10, TradedCount: 5},
			{JoinedMonth: "2025-06", DemoCount: 30, RealCount: 30, DepositCount: 10, TradedCount: 4},
		},
		acquisition: store.AcquisitionSummary{TotalChannels: 1, AcquisitionChannels: []store.AcquisitionChannel{{ClientCount: 12}}},
	}
	h := newTestHandler(t, testRows(), db, nil)
	router := testRouter(h)

	rec, payload := doJSON(t, router, http.MethodGet, "/api/partners/1/funnel", "")
	require.Equal(t, http.StatusOK, rec.Code)

	summary := payload["summary"].(map[string]any)
	assert.Equal(t, float64(2), summary["total_months"])
	assert.Equal(t, float64(60), summary["total_demo"])
	assert.Equal(t, float64(20), summary["total_deposits"])
	assert.InDelta(t, 33.33, summary["avg_deposit_rate"], 0.001)
	assert.InDelta(t, 15.0, summary["avg_trade_rate"], 0.001)

	recent := summary["recent_month"].(map[string]any)
	assert.Equal(t, "2025-07", recent["joined_month"])

	acq := payload["acquisition_data"].(map[string]any)
	assert.Equal(t, float64(1), acq["total_channels"])
}

func TestPartnerFunnelAcquisitionFailureTolerated(t *testing.T) {
	db := &stubStore{
		funnel: []store.FunnelMonth{{JoinedMonth: "2025-07", DemoCount: 10}},
		acqErr: errors.New("query canceled"),
	}
	h := newTestHandler(t, testRows(), db, nil)
	router := testRouter(h)

	rec, payload := doJSON(t, router, http.MethodGet, "/api/partners/1/funnel", "")
	require.Equal(t, http.StatusOK, rec.Code)
	acq := payload["acquisition_data"].(map[string]any)
	assert.Equal(t, []any{}, acq["acquisition_channels"])
}

func TestAnalyticsKeywordRouting(t *testing.T) {
	h := newTestHandler(t, testRows(), &stubStore{}, nil)
	router := testRouter(h)

	tests := []struct {
		query    string
		wantType string
	}{
		{"show me the top partners", "top_partners"},
		{"Revenue by Country please", "country_revenue"},
		{"what is the tier distribution", "tier_distribution"},
		{"how is the weather", "general"},
	}
	for _, tt := range tests {
		_, payload := doJSON(t, router, http.MethodPost, "/api/analytics", `{"query":"`+tt.query+`"}`)
		assert.Equal(t, tt.wantType, payload["type"], "query %q", tt.query)
	}

	rec, payload := doJSON(t, router, http.MethodPost, "/api/analytics", `{bad json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid JSON body", payload["error"])
}

func TestCountryTierAnalyticsValidation(t *testing.T) {
	h := newTestHandler(t, testRows(), &stubStore{}, nil)
	router := testRouter(h)

	rec, payload := doJSON(t, router, http.MethodGet, "/api/country-tier-analytics", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Either country or region parameter is required", payload["error"])

	rec, payload = doJSON(t, router, http.MethodGet, "/api/country-tier-analytics?country=Malaysia", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, payload["success"])
	assert.Equal(t, "Malaysia", payload["country"])
	assert.NotContains(t, payload, "region")
}

func TestCountryTierAnalyticsRegionScope(t *testing.T) {
	h := newTestHandler(t, testRows(), &stubStore{}, nil)
	router := testRouter(h)

	rec, payload := doJSON(t, router, http.MethodGet, "/api/country-tier-analytics?region=South%2BEast%2BAsia", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "South East Asia", payload["region"], "plus signs decode to spaces")

	data := payload["data"].(map[string]any)
	summary := data["summary"].(map[string]any)
	assert.Equal(t, "South East Asia", summary["partner_region"])
	assert.NotContains(t, summary, "partner_country")
}

func TestTierPerformanceValidation(t *testing.T) {
	h := newTestHandler(t, testRows(), &stubStore{}, nil)
	router := testRouter(h)

	rec, payload := doJSON(t, router, http.MethodGet, "/api/tier-performance?tier=Gold", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Either country or region parameter is required", payload["error"])

	rec, payload = doJSON(t, router, http.MethodGet, "/api/tier-performance?country=Malaysia", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Tier parameter is required", payload["error"])

	rec, _ = doJSON(t, router, http.MethodGet, "/api/tier-performance?country=Malaysia&tier=Gold", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTierProgressionRequiresScope(t *testing.T) {
	h := newTestHandler(t, testRows(), &stubStore{}, nil)
	router := testRouter(h)

	rec, payload := doJSON(t, router, http.MethodGet, "/api/partner-tier-progression", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Either country, region parameter, or is_global=true is required", payload["error"])

	rec, _ = doJSON(t, router, http.MethodGet, "/api/partner-tier-progression?is_global=true", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMovementDetailsValidation(t *testing.T) {
	h := newTestHandler(t, testRows(), &stubStore{}, nil)
	router := testRouter(h)

	tests := []struct {
		target  string
		wantErr string
	}{
		{"/api/partner-tier-movement-details", "Either country or region parameter is required"},
		{"/api/partner-tier-movement-details?country=Malaysia", "Month parameter is required"},
		{"/api/partner-tier-movement-details?country=Malaysia&month=Jul%202025", "Valid movement_type parameter is required (positive or negative)"},
		{"/api/partner-tier-movement-details?country=Malaysia&month=Jul%202025&movement_type=sideways", "Valid movement_type parameter is required (positive or negative)"},
		{"/api/partner-tier-movement-details?country=Malaysia&month=2025-07&movement_type=positive", `Invalid month format: 2025-07. Expected format: "Jul 2025"`},
	}
	for _, tt := range tests {
		rec, payload := doJSON(t, router, http.MethodGet, tt.target, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, tt.target)
		assert.Equal(t, tt.wantErr, payload["error"], tt.target)
	}

	rec, payload := doJSON(t, router, http.MethodGet, "/api/partner-tier-movement-details?country=Malaysia&month=Jul%202025&movement_type=positive", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, payload["success"])
	assert.Equal(t, "Jul 2025", payload["month"])
	assert.Equal(t, "positive", payload["movement_type"])
}

func TestGlobalProgressionCountries(t *testing.T) {
	h := newTestHandler(t, testRows(), &stubStore{}, nil)
	router := testRouter(h)

	rec, payload := doJSON(t, router, http.MethodGet, "/api/global-tier-progression-countries?movement_type=positive", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Month parameter is required", payload["error"])

	// June is the first month in the dataset, so there is no previous
	// month to score against.
	rec, _ = doJSON(t, router, http.MethodGet, "/api/global-tier-progression-countries?month=Jun%202025&movement_type=positive", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, payload = doJSON(t, router, http.MethodGet, "/api/global-tier-progression-countries?month=Jul%202025&movement_type=positive", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, payload["success"])
	data := payload["data"].(map[string]any)
	assert.Contains(t, data, "countries")
	assert.Contains(t, data, "total_countries")
}

func TestApplicationFunnelParamParsing(t *testing.T) {
	db := &stubStore{appFunnel: &store.ApplicationFunnel{
		MonthlyData: []store.ApplicationMonth{{ApplicationMonth: "2025-07"}},
	}}
	h := newTestHandler(t, testRows(), db, nil)
	router := testRouter(h)

	rec, payload := doJSON(t, router, http.MethodGet, "/api/partner-application-funnel?month=Jul%202025&countries=Malaysia,%20Vietnam%20,", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, month(2025, time.July), db.gotMonth)
	assert.Equal(t, []string{"Malaysia", "Vietnam"}, db.gotCountries)
	assert.Equal(t, float64(1), payload["total_months"])

	// month=all means no month filter.
	_, _ = doJSON(t, router, http.MethodGet, "/api/partner-application-funnel?month=all", "")
	assert.True(t, db.gotMonth.IsZero())
}

func TestMonthlyCountryFunnelRequiresScope(t *testing.T) {
	db := &stubStore{monthly: &store.MonthlyCountryFunnel{}}
	h := newTestHandler(t, testRows(), db, nil)
	router := testRouter(h)

	rec, payload := doJSON(t, router, http.MethodGet, "/api/monthly-country-funnel", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Either country or region parameter is required", payload["error"])

	rec, payload = doJSON(t, router, http.MethodGet, "/api/monthly-country-funnel?country=Malaysia", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Malaysia", payload["country"])
}

func TestAIInsights(t *testing.T) {
	h := newTestHandler(t, testRows(), &stubStore{}, nil)
	router := testRouter(h)

	// Not configured.
	rec, payload := doJSON(t, router, http.MethodPost, "/api/ai-insights", `{"context":"overview","data":{}}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "AI insights are not configured", payload["error"])

	ins := &stubInsights{result: &insights.Insights{Summary: "steady growth"}}
	h = newTestHandler(t, testRows(), &stubStore{}, ins)
	router = testRouter(h)

	rec, payload = doJSON(t, router, http.MethodPost, "/api/ai-insights", `{"data":{}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "context is required", payload["error"])

	rec, payload = doJSON(t, router, http.MethodPost, "/api/ai-insights", `{"context":"overview"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "data is required", payload["error"])

	rec, payload = doJSON(t, router, http.MethodPost, "/api/ai-insights", `{"context":"overview","data":{"rows":[1,2,3]}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "steady growth", payload["summary"])

	ins.err = errors.New("model overloaded")
	rec, payload = doJSON(t, router, http.MethodPost, "/api/ai-insights", `{"context":"overview","data":{}}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "model overloaded", payload["error"])
}

func TestAIInsightsPayloadTooLarge(t *testing.T) {
	h := newTestHandler(t, testRows(), &stubStore{}, &stubInsights{result: &insights.Insights{}})
	router := testRouter(h)

	big := `{"context":"overview","data":{"blob":"` + strings.Repeat("x", maxInsightsDataBytes+1) + `"}}`
	rec, payload := doJSON(t, router, http.MethodPost, "/api/ai-insights", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "data payload too large", payload["error"])
}
