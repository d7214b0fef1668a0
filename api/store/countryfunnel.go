package store

import (
	"context"
	"fmt"
	"time"
)

// CountryFunnelMonth is one month of application funnel activity for a
// country or region, with its applications rank against all peers that
// month. Rank 0 means the place had no ranked applications that month.
type CountryFunnelMonth struct {
	Month                 string  `json:"month"`
	Applications          int     `json:"applications"`
	PartnersActivated     int     `json:"partners_activated"`
	PartnersEarning       int     `json:"partners_earning"`
	SubPartners           int     `json:"sub_partners"`
	DaysToClient          float64 `json:"days_to_client"`
	DaysToEarning         float64 `json:"days_to_earning"`
	CountryRank           int     `json:"country_rank"`
	ClientActivationRate  float64 `json:"client_activation_rate"`
	EarningActivationRate float64 `json:"earning_activation_rate"`
}

// MonthlyCountryFunnel is the per-month application series for one place.
type MonthlyCountryFunnel struct {
	MonthlyData []CountryFunnelMonth `json:"monthly_data"`
	TotalMonths int                  `json:"total_months"`
}

// countryFunnelQuery ranks one country against every other country per
// application month.
const countryFunnelQuery = `
	WITH monthly_data AS (
		SELECT
			DATE_TRUNC('month', pi.date_joined)::date AS application_month,
			COUNT(DISTINCT pi.partner_id) AS total_applications,
			COUNT(DISTINCT CASE WHEN pi.first_client_joined_date IS NOT NULL THEN pi.partner_id END) AS client_activated,
			COUNT(DISTINCT CASE WHEN pi.first_earning_date IS NOT NULL THEN pi.partner_id END) AS earning_activated,
			COUNT(DISTINCT CASE WHEN pi.parent_partner_id IS NOT NULL THEN pi.partner_id END) AS sub_partners,
			ROUND(PERCENTILE_CONT(0.5) WITHIN GROUP (ORDER BY (
				CASE WHEN pi.first_client_joined_date IS NOT NULL
				THEN (pi.first_client_joined_date - pi.date_joined)
				END
			))::NUMERIC, 1) AS avg_days_to_first_client,
			ROUND(PERCENTILE_CONT(0.5) WITHIN GROUP (ORDER BY (
				CASE WHEN pi.first_earning_date IS NOT NULL
				THEN (pi.first_earning_date - pi.date_joined)
				END
			))::NUMERIC, 1) AS avg_days_to_first_earning
		FROM partner.partner_info pi
		WHERE pi.is_internal = FALSE
			AND pi.date_joined >= CURRENT_DATE - INTERVAL '` + applicationMonthWindow + `'
			AND pi.partner_country = $1
		GROUP BY DATE_TRUNC('month', pi.date_joined)::date
	),
	all_countries_monthly AS (
		SELECT
			pi.partner_country,
			DATE_TRUNC('month', pi.date_joined)::date AS application_month,
			COUNT(DISTINCT pi.partner_id) AS applications
		FROM partner.partner_info pi
		WHERE pi.is_internal = FALSE
			AND pi.date_joined >= CURRENT_DATE - INTERVAL '` + applicationMonthWindow + `'
			AND pi.partner_country IS NOT NULL
		GROUP BY pi.partner_country, DATE_TRUNC('month', pi.date_joined)::date
	),
	ranked_countries AS (
		SELECT *,
			ROW_NUMBER() OVER (PARTITION BY application_month ORDER BY applications DESC) AS rank
		FROM all_countries_monthly
	)
	SELECT
		md.application_month,
		md.total_applications,
		md.client_activated,
		md.earning_activated,
		md.sub_partners,
		md.avg_days_to_first_client,
		md.avg_days_to_first_earning,
		COALESCE(rc.rank, 0) AS country_rank
	FROM monthly_data md
	LEFT JOIN ranked_countries rc ON md.application_month = rc.application_month
		AND rc.partner_country = $2
	ORDER BY md.application_month DESC`

// regionFunnelQuery aggregates the countries inside a region and ranks the
// region against every other region per application month.
const regionFunnelQuery = `
	WITH region_countries AS (
		SELECT DISTINCT partner_country
		FROM partner.partner_info
		WHERE partner_region = $1
			AND partner_country IS NOT NULL
			AND partner_country != ''
	),
	monthly_data AS (
		SELECT
			DATE_TRUNC('month', pi.date_joined)::date AS application_month,
			COUNT(DISTINCT pi.partner_id) AS total_applications,
			COUNT(DISTINCT CASE WHEN pi.first_client_joined_date IS NOT NULL THEN pi.partner_id END) AS client_activated,
			COUNT(DISTINCT CASE WHEN pi.first_earning_date IS NOT NULL THEN pi.partner_id END) AS earning_activated,
			COUNT(DISTINCT CASE WHEN pi.parent_partner_id IS NOT NULL THEN pi.partner_id END) AS sub_partners,
			ROUND(PERCENTILE_CONT(0.5) WITHIN GROUP (ORDER BY (
				CASE WHEN pi.first_client_joined_date IS NOT NULL
				THEN (pi.first_client_joined_date - pi.date_joined)
				END
			))::NUMERIC, 1) AS avg_days_to_first_client,
			ROUND(PERCENTILE_CONT(0.5) WITHIN GROUP (ORDER BY (
				CASE WHEN pi.first_earning_date IS NOT NULL
				THEN (pi.first_earning_date - pi.date_joined)
				END
			))::NUMERIC, 1) AS avg_days_to_first_earning
		FROM partner.partner_info pi
		INNER JOIN region_countries rc ON pi.partner_country = rc.partner_country
		WHERE pi.is_internal = FALSE
			AND pi.date_joined >= CURRENT_DATE - INTERVAL '` + applicationMonthWindow + `'
		GROUP BY DATE_TRUNC('month', pi.date_joined)::date
	),
	all_regions_monthly AS (
		SELECT
			pi.partner_region,
			DATE_TRUNC('month', pi.date_joined)::date AS application_month,
			COUNT(DISTINCT pi.partner_id) AS applications
		FROM partner.partner_info pi
		WHERE pi.is_internal = FALSE
			AND pi.date_joined >= CURRENT_DATE - INTERVAL '` + applicationMonthWindow + `'
			AND pi.partner_region IS NOT NULL
		GROUP BY pi.partner_region, DATE_TRUNC('month', pi.date_joined)::date
	),
	ranked_regions AS (
		SELECT *,
			ROW_NUMBER() OVER (PARTITION BY application_month ORDER BY applications DESC) AS rank
		FROM all_regions_monthly
	)
	SELECT
		md.application_month,
		md.total_applications,
		md.client_activated,
		md.earning_activated,
		md.sub_partners,
		md.avg_days_to_first_client,
		md.avg_days_to_first_earning,
		COALESCE(rr.rank, 0) AS country_rank
	FROM monthly_data md
	LEFT JOIN ranked_regions rr ON md.application_month = rr.application_month
		AND rr.partner_region = $2
	ORDER BY md.application_month DESC`

// CountryMonthlyFunnel returns the monthly application series for one
// country, or one region when country is empty. A region aggregates its
// countries and ranks against other regions.
func (s *Store) CountryMonthlyFunnel(ctx context.Context, country, region string) (*MonthlyCountryFunnel, error) {
	query := countryFunnelQuery
	place := country
	if country == "" {
		query = regionFunnelQuery
		place = region
	}

	rows, err := s.pool.Query(ctx, query, place, place)
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly country funnel: %w", err)
	}
	defer rows.Close()

	result := &MonthlyCountryFunnel{MonthlyData: []CountryFunnelMonth{}}
	for rows.Next() {
		var (
			m          CountryFunnelMonth
			month      time.Time
			daysClient *float64
			daysEarn   *float64
		)
		err := rows.Scan(
			&month,
			&m.Applications,
			&m.PartnersActivated,
			&m.PartnersEarning,
			&m.SubPartners,
			&daysClient,
			&daysEarn,
			&m.CountryRank,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan monthly funnel row: %w", err)
		}
		m.Month = month.Format("Jan 2006")
		if daysClient != nil {
			m.DaysToClient = *daysClient
		}
		if daysEarn != nil {
			m.DaysToEarning = *daysEarn
		}
		if m.Applications > 0 {
			m.ClientActivationRate = roundRate(m.PartnersActivated, m.Applications)
			m.EarningActivationRate = roundRate(m.PartnersEarning, m.Applications)
		}
		result.MonthlyData = append(result.MonthlyData, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read monthly funnel rows: %w", err)
	}

	result.TotalMonths = len(result.MonthlyData)
	return result, nil
}
