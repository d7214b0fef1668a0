package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// FunnelMonth is one month of the Demo -> Real -> Deposit -> Traded client
// funnel for a single partner. Every referred client starts with a demo
// account, so the demo and real counts are the same number and the
// demo-to-real rate is pinned at 100.
type FunnelMonth struct {
	JoinedMonth           string  `json:"joined_month"`
	DemoCount             int     `json:"demo_count"`
	RealCount             int     `json:"real_count"`
	DepositCount          int     `json:"deposit_count"`
	TradedCount           int     `json:"traded_count"`
	DemoToRealRate        float64 `json:"demo_to_real_rate"`
	DemoToDepositRate     float64 `json:"demo_to_deposit_rate"`
	DemoToTradeRate       float64 `json:"demo_to_trade_rate"`
	AvgFirstDepositAmount float64 `json:"avg_first_deposit_amount"`
}

// PartnerFunnel returns up to the last 12 months of client funnel data for
// a partner, newest month first.
func (s *Store) PartnerFunnel(ctx context.Context, partnerID string) ([]FunnelMonth, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT
			DATE_TRUNC('month', real_joined_date)::date AS joined_month,
			COUNT(DISTINCT binary_user_id) AS demo_count,
			COUNT(DISTINCT binary_user_id) AS real_count,
			COUNT(DISTINCT CASE WHEN first_deposit_date IS NOT NULL THEN binary_user_id END) AS deposit_count,
			COUNT(DISTINCT CASE WHEN first_trade_date IS NOT NULL THEN binary_user_id END) AS traded_count,
			ROUND(
				(COUNT(DISTINCT CASE WHEN first_deposit_date IS NOT NULL THEN binary_user_id END)::numeric /
				 NULLIF(COUNT(DISTINCT binary_user_id), 0)) * 100, 2
			) AS demo_to_deposit_rate,
			ROUND(
				(COUNT(DISTINCT CASE WHEN first_trade_date IS NOT NULL THEN binary_user_id END)::numeric /
				 NULLIF(COUNT(DISTINCT binary_user_id), 0)) * 100, 2
			) AS demo_to_trade_rate,
			ROUND(
				AVG(CASE WHEN first_deposit_amount_usd IS NOT NULL THEN first_deposit_amount_usd::numeric ELSE 0 END), 2
			) AS avg_first_deposit_amount
		FROM client.user_profile
		WHERE affiliated_partner_id = $1
			AND real_joined_date IS NOT NULL
			AND is_internal = FALSE
		GROUP BY DATE_TRUNC('month', real_joined_date)::date
		ORDER BY joined_month DESC
		LIMIT 12
	`, partnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query partner funnel: %w", err)
	}
	defer rows.Close()

	funnel := []FunnelMonth{}
	for rows.Next() {
		var (
			m          FunnelMonth
			month      time.Time
			depositPct *float64
			tradePct   *float64
			avgDeposit *float64
		)
		err := rows.Scan(
			&month,
			&m.DemoCount,
			&m.RealCount,
			&m.DepositCount,
			&m.TradedCount,
			&depositPct,
			&tradePct,
			&avgDeposit,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan funnel row: %w", err)
		}
		m.JoinedMonth = month.Format("Jan 2006")
		m.DemoToRealRate = 100.0
		if depositPct != nil {
			m.DemoToDepositRate = *depositPct
		}
		if tradePct != nil {
			m.DemoToTradeRate = *tradePct
		}
		if avgDeposit != nil {
			m.AvgFirstDepositAmount = *avgDeposit
		}
		funnel = append(funnel, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read funnel rows: %w", err)
	}

	s.log.Debug("retrieved partner funnel", "partner_id", partnerID, "months", len(funnel))
	return funnel, nil
}

// AcquisitionChannel is one acquisition source bucket for a partner's
// referred clients.
type AcquisitionChannel struct {
	AcquisitionChannel *string `json:"acquisition_channel"`
	UTMSource          *string `json:"utm_source"`
	UTMMedium          *string `json:"utm_medium"`
	ClientCount        int     `json:"client_count"`
	DepositingClients  int     `json:"depositing_clients"`
	AvgDepositAmount   float64 `json:"avg_deposit_amount"`
}

// AcquisitionSummary groups a partner's clients by acquisition channel,
// largest channels first.
type AcquisitionSummary struct {
	AcquisitionChannels []AcquisitionChannel `json:"acquisition_channels"`
	TotalChannels       int                  `json:"total_channels"`
}

// PartnerAcquisition returns the top acquisition channels for a partner.
func (s *Store) PartnerAcquisition(ctx context.Context, partnerID string) (AcquisitionSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT
			acquisition_channel,
			utm_source,
			utm_medium,
			COUNT(DISTINCT binary_user_id) AS client_count,
			COUNT(DISTINCT CASE WHEN first_deposit_date IS NOT NULL THEN binary_user_id END) AS depositing_clients,
			ROUND(AVG(CASE WHEN first_deposit_amount_usd IS NOT NULL THEN first_deposit_amount_usd::numeric ELSE 0 END), 2) AS avg_deposit_amount
		FROM client.user_profile
		WHERE affiliated_partner_id = $1
			AND real_joined_date IS NOT NULL
			AND is_internal = FALSE
		GROUP BY acquisition_channel, utm_source, utm_medium
		ORDER BY client_count DESC
		LIMIT 10
	`, partnerID)
	if err != nil {
		return AcquisitionSummary{}, fmt.Errorf("failed to query acquisition summary: %w", err)
	}
	defer rows.Close()

	summary := AcquisitionSummary{AcquisitionChannels: []AcquisitionChannel{}}
	for rows.Next() {
		var (
			c   AcquisitionChannel
			avg *float64
		)
		err := rows.Scan(&c.AcquisitionChannel, &c.UTMSource, &c.UTMMedium, &c.ClientCount, &c.DepositingClients, &avg)
		if err != nil {
			return AcquisitionSummary{}, fmt.Errorf("failed to scan acquisition row: %w", err)
		}
		if avg != nil {
			c.AvgDepositAmount = *avg
		}
		summary.AcquisitionChannels = append(summary.AcquisitionChannels, c)
	}
	if err := rows.Err(); err != nil {
		return AcquisitionSummary{}, fmt.Errorf("failed to read acquisition rows: %w", err)
	}

	summary.TotalChannels = len(summary.AcquisitionChannels)
	return summary, nil
}

// PartnerInfoDetails is the static partner record used to enrich the
// detail page with join date, plan flags and engagement counts.
type PartnerInfoDetails struct {
	PartnerID               string  `json:"partner_id"`
	DateJoined              *string `json:"date_joined"`
	PartnerStatus           *string `json:"partner_status"`
	PartnerLevel            *int    `json:"partner_level"`
	PartnerRegion           *string `json:"partner_region"`
	PartnerCountry          *string `json:"partner_country"`
	AffType                 *string `json:"aff_type"`
	ActivationPhase         *string `json:"activation_phase"`
	IsAppDev                bool    `json:"is_app_dev"`
	IsPA                    bool    `json:"is_pa"`
	IsMasterPlan            bool    `json:"is_master_plan"`
	IsRevsharePlan          bool    `json:"is_revshare_plan"`
	IsTurnoverPlan          bool    `json:"is_turnover_plan"`
	IsCPAPlan               bool    `json:"is_cpa_plan"`
	IsIBPlan                bool    `json:"is_ib_plan"`
	ParentPartnerID         *string `json:"parent_partner_id"`
	SubaffCount             *int    `json:"subaff_count"`
	FirstClientJoinedDate   *string `json:"first_client_joined_date"`
	FirstClientDepositDate  *string `json:"first_client_deposit_date"`
	FirstClientTradeDate    *string `json:"first_client_trade_date"`
	FirstEarningDate        *string `json:"first_earning_date"`
	LastClientJoinedDate    *string `json:"last_client_joined_date"`
	LastEarningDate         *string `json:"last_earning_date"`
	WebinarCount            *int    `json:"webinar_count"`
	SeminarCount            *int    `json:"seminar_count"`
	SponsorshipEventCount   *int    `json:"sponsorship_event_count"`
	ConferenceCount         *int    `json:"conference_count"`
	AttendedOnboardingEvent bool    `json:"attended_onboarding_event"`
}

// PartnerInfo fetches the static record for one partner. Returns nil when
// the partner has no row; the dashboard still renders from the snapshot in
// that case.
func (s *Store) PartnerInfo(ctx context.Context, partnerID string) (*PartnerInfoDetails, error) {
	var (
		info PartnerInfoDetails
		dates [7]*time.Time
	)
	err := s.pool.QueryRow(ctx, `
		SELECT
			partner_id,
			date_joined,
			partner_status,
			partner_level,
			partner_region,
			partner_country,
			aff_type,
			activation_phase,
			is_app_dev,
			is_pa,
			is_master_plan,
			is_revshare_plan,
			is_turnover_plan,
			is_cpa_plan,
			is_ib_plan,
			parent_partner_id,
			subaff_count,
			first_client_joined_date,
			first_client_deposit_date,
			first_client_trade_date,
			first_earning_date,
			last_client_joined_date,
			last_earning_date,
			webinar_count,
			seminar_count,
			sponsorship_event_count,
			conference_count,
			attended_onboarding_event
		FROM partner.partner_info
		WHERE partner_id = $1
	`, partnerID).Scan(
		&info.PartnerID,
		&dates[0],
		&info.PartnerStatus,
		&info.PartnerLevel,
		&info.PartnerRegion,
		&info.PartnerCountry,
		&info.AffType,
		&info.ActivationPhase,
		&info.IsAppDev,
		&info.IsPA,
		&info.IsMasterPlan,
		&info.IsRevsharePlan,
		&info.IsTurnoverPlan,
		&info.IsCPAPlan,
		&info.IsIBPlan,
		&info.ParentPartnerID,
		&info.SubaffCount,
		&dates[1],
		&dates[2],
		&dates[3],
		&dates[4],
		&dates[5],
		&dates[6],
		&info.WebinarCount,
		&info.SeminarCount,
		&info.SponsorshipEventCount,
		&info.ConferenceCount,
		&info.AttendedOnboardingEvent,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query partner info: %w", err)
	}

	fields := []**string{
		&info.DateJoined,
		&info.FirstClientJoinedDate,
		&info.FirstClientDepositDate,
		&info.FirstClientTradeDate,
		&info.FirstEarningDate,
		&info.LastClientJoinedDate,
		&info.LastEarningDate,
	}
	for i, d := range dates {
		if d != nil {
			formatted := d.Format("2006-01-02")
			*fields[i] = &formatted
		}
	}
	return &info, nil
}
