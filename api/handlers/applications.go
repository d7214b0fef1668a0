package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/manaskarra/pdash/api/store"
)

type ApplicationCountriesResponse struct {
	Countries      []string `json:"countries"`
	TotalCountries int      `json:"total_countries"`
}

// ApplicationCountries lists the countries available for application
// funnel filtering.
func (h *Handler) ApplicationCountries(w http.ResponseWriter, r *http.Request) {
	countries, err := h.db.ApplicationCountryList(r.Context())
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ApplicationCountriesResponse{
		Countries:      countries,
		TotalCountries: len(countries),
	})
}

type ApplicationFunnelResponse struct {
	MonthlyData         []store.ApplicationMonth `json:"monthly_data"`
	CountryDistribution []store.ApplicationPlace `json:"country_distribution"`
	RegionDistribution  []store.ApplicationPlace `json:"region_distribution"`
	Summary             store.ApplicationSummary `json:"summary"`
	TotalMonths         int                      `json:"total_months"`
	TotalCountries      int                      `json:"total_countries"`
	TotalRegions        int                      `json:"total_regions"`
}

// ApplicationFunnel serves partner application funnel analytics. month
// ("Jul 2025") and countries (comma separated) narrow the distribution
// and summary blocks; the monthly trend always shows the full window.
func (h *Handler) ApplicationFunnel(w http.ResponseWriter, r *http.Request) {
	var month time.Time
	if v := r.URL.Query().Get("month"); v != "" && v != "all" {
		if parsed, err := time.Parse("Jan 2006", v); err == nil {
			month = parsed
		}
	}

	var countries []string
	if v := r.URL.Query().Get("countries"); strings.TrimSpace(v) != "" {
		for _, c := range strings.Split(v, ",") {
			if c = strings.TrimSpace(c); c != "" {
				countries = append(countries, c)
			}
		}
	}

	funnel, err := h.db.ApplicationFunnelData(r.Context(), month, countries)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ApplicationFunnelResponse{
		MonthlyData:         funnel.MonthlyData,
		CountryDistribution: funnel.CountryDistribution,
		RegionDistribution:  funnel.RegionDistribution,
		Summary:             funnel.Summary,
		TotalMonths:         len(funnel.MonthlyData),
		TotalCountries:      len(funnel.CountryDistribution),
		TotalRegions:        len(funnel.RegionDistribution),
	})
}

// MonthlyCountryFunnel serves the monthly application funnel for one
// country or region with ranks against its peers.
func (h *Handler) MonthlyCountryFunnel(w http.ResponseWriter, r *http.Request) {
	country := placeParam(r, "country")
	region := placeParam(r, "region")

	if country == "" && region == "" {
		writeError(w, http.StatusBadRequest, "Either country or region parameter is required")
		return
	}

	funnel, err := h.db.CountryMonthlyFunnel(r.Context(), country, region)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, placeResponse{
		Success: true,
		Data:    funnel,
		Country: country,
		Region:  region,
	})
}
