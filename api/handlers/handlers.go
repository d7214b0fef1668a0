// Package handlers implements the dashboard HTTP API. In-memory analytics
// are served from the dataset snapshot; funnel and application endpoints
// query Postgres through the store.
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/manaskarra/pdash/api/dataset"
	"github.com/manaskarra/pdash/api/insights"
	"github.com/manaskarra/pdash/api/store"
	"github.com/manaskarra/pdash/internal/dberror"
)

// responseCacheTTL bounds how stale the cached overview and tier analytics
// payloads can get within one snapshot's lifetime.
const responseCacheTTL = 30 * time.Second

// InsightsGenerator produces AI insights for a panel. Nil means the
// feature is not configured.
type InsightsGenerator interface {
	Generate(ctx context.Context, panelContext string, data json.RawMessage) (*insights.Insights, error)
}

// Store is the database surface the handlers depend on. *store.Store
// implements it.
type Store interface {
	HealthCheck(ctx context.Context) store.HealthStatus
	PartnerInfo(ctx context.Context, partnerID string) (*store.PartnerInfoDetails, error)
	PartnerFunnel(ctx context.Context, partnerID string) ([]store.FunnelMonth, error)
	PartnerAcquisition(ctx context.Context, partnerID string) (store.AcquisitionSummary, error)
	ApplicationCountryList(ctx context.Context) ([]string, error)
	ApplicationFunnelData(ctx context.Context, month time.Time, countries []string) (*store.ApplicationFunnel, error)
	CountryMonthlyFunnel(ctx context.Context, country, region string) (*store.MonthlyCountryFunnel, error)
}

// Handler carries the shared dependencies of every endpoint.
type Handler struct {
	data     *dataset.Manager
	db       Store
	insights InsightsGenerator
	clock    clockwork.Clock
	log      *slog.Logger

	overviewCache      memoCache[dataset.Overview]
	tierAnalyticsCache memoCache[dataset.TierAnalytics]
}

// New wires a handler set. insights may be nil when no API key is
// configured; the AI endpoint then reports itself unavailable.
func New(data *dataset.Manager, db Store, ins InsightsGenerator, clock clockwork.Clock, log *slog.Logger) *Handler {
	h := &Handler{
		data:     data,
		db:       db,
		insights: ins,
		clock:    clock,
		log:      log,
	}
	h.overviewCache.init(clock, responseCacheTTL)
	h.tierAnalyticsCache.init(clock, responseCacheTTL)
	return h
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError emits the {"error": msg} body every endpoint uses.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError maps a database failure to a response: transient
// problems get a 503 with a human message, everything else a 500.
func (h *Handler) writeStoreError(w http.ResponseWriter, err error) {
	if dberror.IsTransient(err) {
		writeError(w, http.StatusServiceUnavailable, dberror.UserMessage(err))
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

// snapshot returns the current dataset, or nil after writing the
// no-data error the endpoints share.
func (h *Handler) snapshot(w http.ResponseWriter) *dataset.Snapshot {
	snap := h.data.Snapshot()
	if snap.Empty() {
		writeError(w, http.StatusBadRequest, "No data available")
		return nil
	}
	return snap
}

// placeParam reads a query parameter, undoing the frontend's habit of
// sending spaces as literal plus signs.
func placeParam(r *http.Request, name string) string {
	return strings.ReplaceAll(r.URL.Query().Get(name), "+", " ")
}

// intParam parses an optional integer parameter; malformed values are
// treated as absent.
func intParam(r *http.Request, name string) *int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil
	}
	return &n
}

// floatParam parses an optional float parameter; malformed values are
// treated as absent.
func floatParam(r *http.Request, name string) *float64 {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil
	}
	return &f
}

func intValue(r *http.Request, name string, def int) int {
	if p := intParam(r, name); p != nil {
		return *p
	}
	return def
}

// GetIPFromRequest extracts the client IP, preferring proxy headers.
func GetIPFromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.Index(xff, ","); i >= 0 {
			xff = xff[:i]
		}
		if ip := strings.TrimSpace(xff); ip != "" {
			return ip
		}
	}
	if ip := r.Header.Get("X-Real-Ip"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
