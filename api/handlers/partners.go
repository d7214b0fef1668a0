package handlers

import (
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/manaskarra/pdash/api/dataset"
	"github.com/manaskarra/pdash/api/store"
	"github.com/manaskarra/pdash/internal/derive"
)

// Partners serves the filtered, sorted, paginated partner list.
func (h *Handler) Partners(w http.ResponseWriter, r *http.Request) {
	snap := h.snapshot(w)
	if snap == nil {
		return
	}

	q := dataset.PartnersQuery{
		Country:   r.URL.Query().Get("country"),
		Region:    r.URL.Query().Get("region"),
		Tier:      r.URL.Query().Get("tier"),
		EtRFilter: r.URL.Query().Get("etr_filter"),
		EtRMin:    floatParam(r, "etr_min"),
		EtRMax:    floatParam(r, "etr_max"),

		ActiveClientsMin: intParam(r, "active_clients_min"),
		ActiveClientsMax: intParam(r, "active_clients_max"),
		NewClientsMin:    intParam(r, "new_clients_min"),
		NewClientsMax:    intParam(r, "new_clients_max"),

		SortBy:    r.URL.Query().Get("sort_by"),
		SortOrder: r.URL.Query().Get("sort_order"),
		Limit:     intValue(r, "limit", 50),
		Offset:    intValue(r, "offset", 0),
	}
	if ids := r.URL.Query().Get("partner_id"); ids != "" {
		q.PartnerIDs = strings.Split(ids, ",")
	}
	if v := r.URL.Query().Get("is_app_dev"); v != "" {
		b := strings.EqualFold(v, "true")
		q.IsAppDev = &b
	}

	writeJSON(w, http.StatusOK, snap.Partners(q))
}

// PartnerInfoPayload is the detail header: snapshot-derived info with the
// database-only fields layered on when the static record exists. The nil
// embeds and pointer fields drop cleanly from the JSON when absent,
// matching how the dashboard has always treated partial records.
type PartnerInfoPayload struct {
	dataset.PartnerInfo
	*derive.AgeBadge

	DateJoined              *string `json:"date_joined,omitempty"`
	PartnerStatus           *string `json:"partner_status,omitempty"`
	PartnerLevel            *int    `json:"partner_level,omitempty"`
	AffType                 *string `json:"aff_type,omitempty"`
	ActivationPhase         *string `json:"activation_phase,omitempty"`
	IsMasterPlan            *bool   `json:"is_master_plan,omitempty"`
	IsRevsharePlan          *bool   `json:"is_revshare_plan,omitempty"`
	IsTurnoverPlan          *bool   `json:"is_turnover_plan,omitempty"`
	IsCPAPlan               *bool   `json:"is_cpa_plan,omitempty"`
	IsIBPlan                *bool   `json:"is_ib_plan,omitempty"`
	ParentPartnerID         *string `json:"parent_partner_id,omitempty"`
	SubaffCount             *int    `json:"subaff_count,omitempty"`
	FirstClientJoinedDate   *string `json:"first_client_joined_date,omitempty"`
	FirstClientDepositDate  *string `json:"first_client_deposit_date,omitempty"`
	FirstClientTradeDate    *string `json:"first_client_trade_date,omitempty"`
	FirstEarningDate        *string `json:"first_earning_date,omitempty"`
	LastClientJoinedDate    *string `json:"last_client_joined_date,omitempty"`
	LastEarningDate         *string `json:"last_earning_date,omitempty"`
	WebinarCount            *int    `json:"webinar_count,omitempty"`
	SeminarCount            *int    `json:"seminar_count,omitempty"`
	SponsorshipEventCount   *int    `json:"sponsorship_event_count,omitempty"`
	ConferenceCount         *int    `json:"conference_count,omitempty"`
	AttendedOnboardingEvent *bool   `json:"attended_onboarding_event,omitempty"`
}

type PartnerDetailResponse struct {
	PartnerInfo        PartnerInfoPayload        `json:"partner_info"`
	CurrentMonth       dataset.CurrentMonth      `json:"current_month"`
	MonthlyPerformance []dataset.PartnerMonthRow `json:"monthly_performance"`
	TotalRecords       int                       `json:"total_records"`
}

// PartnerDetail serves one partner's full history, enriched with the
// static database record and tenure badge when available. A database
// failure here is logged but does not fail the request; the snapshot view
// still renders.
func (h *Handler) PartnerDetail(w http.ResponseWriter, r *http.Request) {
	snap := h.snapshot(w)
	if snap == nil {
		return
	}

	id := chi.URLParam(r, "partnerID")
	detail, ok := snap.PartnerDetail(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Partner not found")
		return
	}

	resp := PartnerDetailResponse{
		PartnerInfo:        PartnerInfoPayload{PartnerInfo: detail.PartnerInfo},
		CurrentMonth:       detail.CurrentMonth,
		MonthlyPerformance: detail.MonthlyPerformance,
		TotalRecords:       detail.TotalRecords,
	}

	info, err := h.db.PartnerInfo(r.Context(), id)
	if err != nil {
		h.log.Warn("could not fetch partner info record", "partnerID", id, "error", err)
	} else if info != nil {
		h.mergePartnerInfo(&resp.PartnerInfo, info)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) mergePartnerInfo(p *PartnerInfoPayload, info *store.PartnerInfoDetails) {
	if info.DateJoined != nil {
		p.DateJoined = info.DateJoined
		if joined, err := time.Parse("2006-01-02", *info.DateJoined); err == nil {
			days := int(h.clock.Now().Sub(joined).Hours() / 24)
			badge := derive.AgeBadgeForDays(days)
			p.AgeBadge = &badge
		}
	}
	p.PartnerStatus = info.PartnerStatus
	p.PartnerLevel = info.PartnerLevel
	p.AffType = info.AffType
	p.ActivationPhase = info.ActivationPhase
	p.IsMasterPlan = &info.IsMasterPlan
	p.IsRevsharePlan = &info.IsRevsharePlan
	p.IsTurnoverPlan = &info.IsTurnoverPlan
	p.IsCPAPlan = &info.IsCPAPlan
	p.IsIBPlan = &info.IsIBPlan
	p.ParentPartnerID = info.ParentPartnerID
	p.SubaffCount = info.SubaffCount
	p.FirstClientJoinedDate = info.FirstClientJoinedDate
	p.FirstClientDepositDate = info.FirstClientDepositDate
	p.FirstClientTradeDate = info.FirstClientTradeDate
	p.FirstEarningDate = info.FirstEarningDate
	p.LastClientJoinedDate = info.LastClientJoinedDate
	p.LastEarningDate = info.LastEarningDate
	p.WebinarCount = info.WebinarCount
	p.SeminarCount = info.SeminarCount
	p.SponsorshipEventCount = info.SponsorshipEventCount
	p.ConferenceCount = info.ConferenceCount
	p.AttendedOnboardingEvent = &info.AttendedOnboardingEvent
}

type FunnelSummary struct {
	TotalMonths    int                `json:"total_months"`
	TotalDemo      int                `json:"total_demo"`
	TotalReal      int                `json:"total_real"`
	TotalDeposits  int                `json:"total_deposits"`
	TotalTrades    int                `json:"total_trades"`
	AvgDepositRate float64            `json:"avg_deposit_rate"`
	AvgTradeRate   float64            `json:"avg_trade_rate"`
	RecentMonth    *store.FunnelMonth `json:"recent_month,omitempty"`
}

type PartnerFunnelResponse struct {
	FunnelData      []store.FunnelMonth       `json:"funnel_data"`
	Summary         FunnelSummary             `json:"summary"`
	AcquisitionData *store.AcquisitionSummary `json:"acquisition_data,omitempty"`
}

// PartnerFunnel serves a partner's monthly client funnel with lifetime
// conversion rates and acquisition channel breakdown.
func (h *Handler) PartnerFunnel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "partnerID")

	funnel, err := h.db.PartnerFunnel(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	if len(funnel) == 0 {
		writeJSON(w, http.StatusOK, PartnerFunnelResponse{
			FunnelData: []store.FunnelMonth{},
			Summary:    FunnelSummary{},
		})
		return
	}

	summary := FunnelSummary{
		TotalMonths: len(funnel),
		RecentMonth: &funnel[0],
	}
	for i := range funnel {
		summary.TotalDemo += funnel[i].DemoCount
		summary.TotalReal += funnel[i].RealCount
		summary.TotalDeposits += funnel[i].DepositCount
		summary.TotalTrades += funnel[i].TradedCount
	}
	if summary.TotalDemo > 0 {
		summary.AvgDepositRate = round2(float64(summary.TotalDeposits) / float64(summary.TotalDemo) * 100)
		summary.AvgTradeRate = round2(float64(summary.TotalTrades) / float64(summary.TotalDemo) * 100)
	}

	resp := PartnerFunnelResponse{FunnelData: funnel, Summary: summary}

	acquisition, err := h.db.PartnerAcquisition(r.Context(), id)
	if err != nil {
		h.log.Warn("could not fetch acquisition data", "partnerID", id, "error", err)
		acquisition = store.AcquisitionSummary{AcquisitionChannels: []store.AcquisitionChannel{}}
	}
	resp.AcquisitionData = &acquisition

	writeJSON(w, http.StatusOK, resp)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
