package handlers

import (
	"net/http"

	"github.com/manaskarra/pdash/api/dataset"
	"github.com/manaskarra/pdash/internal/derive"
)

// TierAnalytics serves the global tier analytics view.
func (h *Handler) TierAnalytics(w http.ResponseWriter, r *http.Request) {
	snap := h.snapshot(w)
	if snap == nil {
		return
	}
	ta := h.tierAnalyticsCache.get(snap, snap.TierAnalytics)
	writeJSON(w, http.StatusOK, ta)
}

// placeResponse is the success envelope shared by the place-scoped
// endpoints.
type placeResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data"`
	Country string `json:"country,omitempty"`
	Region  string `json:"region,omitempty"`
}

// CountryTierAnalytics serves the drill-down for one country or region.
// include_rankings=false skips the cross-place comparisons for a fast
// first paint.
func (h *Handler) CountryTierAnalytics(w http.ResponseWriter, r *http.Request) {
	snap := h.snapshot(w)
	if snap == nil {
		return
	}

	country := placeParam(r, "country")
	region := placeParam(r, "region")
	includeRankings := r.URL.Query().Get("include_rankings") == "true"

	if country == "" && region == "" {
		writeError(w, http.StatusBadRequest, "Either country or region parameter is required")
		return
	}

	var analytics dataset.CountryTierAnalytics
	if country != "" {
		analytics = snap.CountryTierAnalytics(country, includeRankings)
	} else {
		analytics = snap.RegionTierAnalytics(region, includeRankings)
	}

	writeJSON(w, http.StatusOK, placeResponse{
		Success: true,
		Data:    analytics,
		Country: country,
		Region:  region,
	})
}

type tierDetailFilters struct {
	Country string `json:"country,omitempty"`
	Region  string `json:"region,omitempty"`
	Tier    string `json:"tier,omitempty"`
	Month   string `json:"month,omitempty"`
}

type tierDetailResponse struct {
	Success bool                    `json:"success"`
	Data    []dataset.TierDetailRow `json:"data"`
	Filters tierDetailFilters       `json:"filters"`
}

// TierDetail serves the per-partner monthly rows behind the tier modal.
func (h *Handler) TierDetail(w http.ResponseWriter, r *http.Request) {
	snap := h.snapshot(w)
	if snap == nil {
		return
	}

	country := placeParam(r, "country")
	region := placeParam(r, "region")
	tier := r.URL.Query().Get("tier")
	month := r.URL.Query().Get("month")

	rows := snap.TierDetail(country, region, derive.Tier(tier), month)
	writeJSON(w, http.StatusOK, tierDetailResponse{
		Success: true,
		Data:    rows,
		Filters: tierDetailFilters{Country: country, Region: region, Tier: tier, Month: month},
	})
}

type tierPerformanceResponse struct {
	Success bool                        `json:"success"`
	Data    []dataset.TierPerformanceRow `json:"data"`
	Tier    string                      `json:"tier"`
	Country string                      `json:"country,omitempty"`
	Region  string                      `json:"region,omitempty"`
}

// TierPerformance serves monthly metrics for one tier's partners within a
// country or region.
func (h *Handler) TierPerformance(w http.ResponseWriter, r *http.Request) {
	snap := h.snapshot(w)
	if snap == nil {
		return
	}

	country := placeParam(r, "country")
	region := placeParam(r, "region")
	tier := r.URL.Query().Get("tier")

	if country == "" && region == "" {
		writeError(w, http.StatusBadRequest, "Either country or region parameter is required")
		return
	}
	if tier == "" {
		writeError(w, http.StatusBadRequest, "Tier parameter is required")
		return
	}

	rows := snap.TierPerformance(country, region, derive.Tier(tier))
	writeJSON(w, http.StatusOK, tierPerformanceResponse{
		Success: true,
		Data:    rows,
		Tier:    tier,
		Country: country,
		Region:  region,
	})
}
