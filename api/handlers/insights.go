package handlers

import (
	"encoding/json"
	"net/http"
)

// InsightsRequest is the POST /api/ai-insights body: a short description
// of the panel and the JSON payload it is showing.
type InsightsRequest struct {
	Context string          `json:"context"`
	Data    json.RawMessage `json:"data"`
}

// maxInsightsDataBytes caps how much panel data is forwarded to the model.
const maxInsightsDataBytes = 64 << 10

// AIInsights generates a structured narrative for a panel's data.
func (h *Handler) AIInsights(w http.ResponseWriter, r *http.Request) {
	if h.insights == nil {
		writeError(w, http.StatusServiceUnavailable, "AI insights are not configured")
		return
	}

	var req InsightsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Context == "" {
		writeError(w, http.StatusBadRequest, "context is required")
		return
	}
	if len(req.Data) == 0 {
		writeError(w, http.StatusBadRequest, "data is required")
		return
	}
	if len(req.Data) > maxInsightsDataBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "data payload too large")
		return
	}

	result, err := h.insights.Generate(r.Context(), req.Context, req.Data)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}
