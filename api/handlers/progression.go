package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/manaskarra/pdash/api/dataset"
)

// progressionMonthLabel is the display month format the frontend sends
// back on drill-down, e.g. "Jul 2025".
const progressionMonthLabel = "Jan 2006"

// TierProgression serves month-over-month tier movement scores, scoped
// to a country, a region, or globally with per-country breakdowns.
func (h *Handler) TierProgression(w http.ResponseWriter, r *http.Request) {
	snap := h.snapshot(w)
	if snap == nil {
		return
	}

	q := dataset.ProgressionQuery{
		Country:  placeParam(r, "country"),
		Region:   placeParam(r, "region"),
		FromTier: r.URL.Query().Get("from_tier"),
		ToTier:   r.URL.Query().Get("to_tier"),
		Global:   r.URL.Query().Get("is_global") == "true",
	}

	if !q.Global && q.Country == "" && q.Region == "" {
		writeError(w, http.StatusBadRequest, "Either country, region parameter, or is_global=true is required")
		return
	}

	writeJSON(w, http.StatusOK, placeResponse{
		Success: true,
		Data:    snap.TierProgression(q),
		Country: q.Country,
		Region:  q.Region,
	})
}

type movementDetailsResponse struct {
	Success      bool                    `json:"success"`
	Data         dataset.MovementDetails `json:"data"`
	Country      string                  `json:"country,omitempty"`
	Region       string                  `json:"region,omitempty"`
	Month        string                  `json:"month"`
	MovementType string                  `json:"movement_type"`
}

// MovementDetails serves the individual partner transitions behind one
// month's positive or negative movement score.
func (h *Handler) MovementDetails(w http.ResponseWriter, r *http.Request) {
	snap := h.snapshot(w)
	if snap == nil {
		return
	}

	q := dataset.ProgressionQuery{
		Country:  placeParam(r, "country"),
		Region:   placeParam(r, "region"),
		FromTier: r.URL.Query().Get("from_tier"),
		ToTier:   r.URL.Query().Get("to_tier"),
	}
	monthParam := r.URL.Query().Get("month")
	movementType := r.URL.Query().Get("movement_type")

	if q.Country == "" && q.Region == "" {
		writeError(w, http.StatusBadRequest, "Either country or region parameter is required")
		return
	}
	if monthParam == "" {
		writeError(w, http.StatusBadRequest, "Month parameter is required")
		return
	}
	if movementType != "positive" && movementType != "negative" {
		writeError(w, http.StatusBadRequest, "Valid movement_type parameter is required (positive or negative)")
		return
	}
	month, err := time.Parse(progressionMonthLabel, monthParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid month format: %s. Expected format: \"Jul 2025\"", monthParam))
		return
	}

	writeJSON(w, http.StatusOK, movementDetailsResponse{
		Success:      true,
		Data:         snap.MovementDetails(q, month, movementType),
		Country:      q.Country,
		Region:       q.Region,
		Month:        monthParam,
		MovementType: movementType,
	})
}

type globalCountriesResponse struct {
	Success bool                            `json:"success"`
	Data    dataset.GlobalMovementCountries `json:"data"`
}

// GlobalProgressionCountries ranks countries by one month's movement
// score in one direction.
func (h *Handler) GlobalProgressionCountries(w http.ResponseWriter, r *http.Request) {
	snap := h.snapshot(w)
	if snap == nil {
		return
	}

	monthParam := r.URL.Query().Get("month")
	movementType := r.URL.Query().Get("movement_type")
	fromTier := r.URL.Query().Get("from_tier")
	toTier := r.URL.Query().Get("to_tier")

	if monthParam == "" {
		writeError(w, http.StatusBadRequest, "Month parameter is required")
		return
	}
	if movementType != "positive" && movementType != "negative" {
		writeError(w, http.StatusBadRequest, "Valid movement_type parameter is required (positive or negative)")
		return
	}
	month, err := time.Parse(progressionMonthLabel, monthParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid month format: %s. Expected format: \"Jul 2025\"", monthParam))
		return
	}

	data, err := snap.GlobalProgressionCountries(month, movementType, fromTier, toTier)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, globalCountriesResponse{Success: true, Data: data})
}
