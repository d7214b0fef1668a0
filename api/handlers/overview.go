package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/manaskarra/pdash/api/store"
)

// HealthResponse is the composite service health payload.
type HealthResponse struct {
	Status       string             `json:"status"`
	DataLoaded   bool               `json:"data_loaded"`
	PartnerCount int                `json:"partner_count"`
	Database     store.HealthStatus `json:"database"`
	Timestamp    string             `json:"timestamp"`
}

// Health reports overall service health: degraded when the dataset is
// serving but the database is not reachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	snap := h.data.Snapshot()
	dbHealth := h.db.HealthCheck(r.Context())

	status := "healthy"
	if dbHealth.Status != "healthy" {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:       status,
		DataLoaded:   !snap.Empty(),
		PartnerCount: snap.Rows(),
		Database:     dbHealth,
		Timestamp:    h.clock.Now().Format(time.RFC3339),
	})
}

// DBHealth reports database health alone, with a 500 when unhealthy so
// load balancer checks can key off the status code.
func (h *Handler) DBHealth(w http.ResponseWriter, r *http.Request) {
	dbHealth := h.db.HealthCheck(r.Context())
	status := http.StatusOK
	if dbHealth.Status != "healthy" {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, dbHealth)
}

// Overview serves the KPI block for the overview panel.
func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	snap := h.snapshot(w)
	if snap == nil {
		return
	}
	ov := h.overviewCache.get(snap, snap.Overview)
	writeJSON(w, http.StatusOK, ov)
}

// Filters serves the distinct filterable values.
func (h *Handler) Filters(w http.ResponseWriter, r *http.Request) {
	snap := h.snapshot(w)
	if snap == nil {
		return
	}
	writeJSON(w, http.StatusOK, snap.FilterOptions())
}

// AnalyticsResponse is the quick-analytics answer envelope.
type AnalyticsResponse struct {
	Type    string `json:"type"`
	Data    any    `json:"data"`
	Message string `json:"message"`
}

type analyticsRequest struct {
	Query string `json:"query"`
}

// Analytics answers canned keyword queries over the snapshot.
func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	snap := h.snapshot(w)
	if snap == nil {
		return
	}

	var req analyticsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	query := strings.ToLower(req.Query)

	var resp AnalyticsResponse
	switch {
	case strings.Contains(query, "top partners"):
		resp = AnalyticsResponse{
			Type:    "top_partners",
			Data:    snap.TopEarningRows(10),
			Message: "Here are the top 10 partners by total earnings:",
		}
	case strings.Contains(query, "revenue by country"):
		resp = AnalyticsResponse{
			Type:    "country_revenue",
			Data:    snap.EarningsByCountry(),
			Message: "Revenue breakdown by country:",
		}
	case strings.Contains(query, "tier distribution"):
		resp = AnalyticsResponse{
			Type:    "tier_distribution",
			Data:    snap.TierCounts(),
			Message: "Partner tier distribution:",
		}
	default:
		resp = AnalyticsResponse{
			Type:    "general",
			Message: `I can help you analyze partner data. Try asking about "top partners", "revenue by country", or "tier distribution".`,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
