package store

import (
	"context"
	"fmt"
	"time"
)

// applicationMonthWindow is how far back the application funnel looks.
const applicationMonthWindow = "12 months"

// ApplicationMonth is one month of the partner application funnel.
type ApplicationMonth struct {
	ApplicationMonth      string  `json:"application_month"`
	TotalApplications     int     `json:"total_applications"`
	ClientActivated       int     `json:"client_activated"`
	EarningActivated      int     `json:"earning_activated"`
	SubPartners           int     `json:"sub_partners"`
	DirectPartners        int     `json:"direct_partners"`
	AvgDaysToFirstClient  float64 `json:"avg_days_to_first_client"`
	AvgDaysToFirstEarning float64 `json:"avg_days_to_first_earning"`
	ClientActivationRate  float64 `json:"client_activation_rate"`
	EarningActivationRate float64 `json:"earning_activation_rate"`
}

// ApplicationPlace is the funnel broken down by one country or region.
type ApplicationPlace struct {
	PartnerCountry        string  `json:"partner_country,omitempty"`
	PartnerRegion         string  `json:"partner_region,omitempty"`
	TotalApplications     int     `json:"total_applications"`
	ClientActivated       int     `json:"client_activated"`
	EarningActivated      int     `json:"earning_activated"`
	SubPartners           int     `json:"sub_partners"`
	ClientActivationRate  float64 `json:"client_activation_rate"`
	EarningActivationRate float64 `json:"earning_activation_rate"`
	AvgDaysToFirstClient  float64 `json:"avg_days_to_first_client"`
	AvgDaysToFirstEarning float64 `json:"avg_days_to_first_earning"`
}

// ApplicationSummary is the funnel totals over the filtered window.
type ApplicationSummary struct {
	TotalApplications     int     `json:"total_applications"`
	ClientActivated       int     `json:"client_activated"`
	EarningActivated      int     `json:"earning_activated"`
	SubPartners           int     `json:"sub_partners"`
	DirectPartners        int     `json:"direct_partners"`
	APIDevelopers         int     `json:"api_developers"`
	ClientActivationRate  float64 `json:"client_activation_rate"`
	EarningActivationRate float64 `json:"earning_activation_rate"`
	AvgDaysToFirstClient  float64 `json:"avg_days_to_first_client"`
	AvgDaysToFirstEarning float64 `json:"avg_days_to_first_earning"`
}

// ApplicationFunnel is the full application analytics payload. The monthly
// trend always covers all months in the window; the country, region and
// summary sections honor the month and country filters.
type ApplicationFunnel struct {
	MonthlyData         []ApplicationMonth `json:"monthly_data"`
	CountryDistribution []ApplicationPlace `json:"country_distribution"`
	RegionDistribution  []ApplicationPlace `json:"region_distribution"`
	Summary             ApplicationSummary `json:"summary"`
}

// activationCounts is the shared SELECT body for the funnel queries. The
// date subtraction yields whole days; PERCENTILE_CONT gives the median,
// which resists the long tail of partners who take months to activate.
const activationCounts = `
	COUNT(DISTINCT partner_id) AS total_applications,
	COUNT(DISTINCT CASE WHEN first_client_joined_date IS NOT NULL THEN partner_id END) AS client_activated,
	COUNT(DISTINCT CASE WHEN first_earning_date IS NOT NULL THEN partner_id END) AS earning_activated,
	COUNT(DISTINCT CASE WHEN parent_partner_id IS NOT NULL THEN partner_id END) AS sub_partners,
	ROUND(PERCENTILE_CONT(0.5) WITHIN GROUP (ORDER BY (
		CASE WHEN first_client_joined_date IS NOT NULL
		THEN (first_client_joined_date - date_joined)
		END
	))::NUMERIC, 1) AS avg_days_to_first_client,
	ROUND(PERCENTILE_CONT(0.5) WITHIN GROUP (ORDER BY (
		CASE WHEN first_earning_date IS NOT NULL
		THEN (first_earning_date - date_joined)
		END
	))::NUMERIC, 1) AS avg_days_to_first_earning`

// ApplicationFunnelData assembles the application funnel. month filters the
// country, region and summary sections to a single application month
// (zero time means all months); countries narrows the country and summary
// sections to the given set.
func (s *Store) ApplicationFunnelData(ctx context.Context, month time.Time, countries []string) (*ApplicationFunnel, error) {
	funnel := &ApplicationFunnel{
		MonthlyData:         []ApplicationMonth{},
		CountryDistribution: []ApplicationPlace{},
		RegionDistribution:  []ApplicationPlace{},
	}

	if err := s.applicationMonthly(ctx, funnel); err != nil {
		return nil, err
	}
	if err := s.applicationCountries(ctx, funnel, month, countries); err != nil {
		return nil, err
	}
	if err := s.applicationRegions(ctx, funnel, month); err != nil {
		return nil, err
	}
	if err := s.applicationSummary(ctx, funnel, month, countries); err != nil {
		return nil, err
	}

	s.log.Debug("retrieved application funnel",
		"months", len(funnel.MonthlyData),
		"countries", len(funnel.CountryDistribution),
		"regions", len(funnel.RegionDistribution))
	return funnel, nil
}

func (s *Store) applicationMonthly(ctx context.Context, funnel *ApplicationFunnel) error {
	rows, err := s.pool.Query(ctx, `
		SELECT
			DATE_TRUNC('month', date_joined)::date AS application_month,
			COUNT(DISTINCT CASE WHEN parent_partner_id IS NULL THEN partner_id END) AS direct_partners,`+
		activationCounts+`
		FROM partner.partner_info
		WHERE date_joined IS NOT NULL
			AND is_internal = FALSE
			AND date_joined >= CURRENT_DATE - INTERVAL '`+applicationMonthWindow+`'
		GROUP BY DATE_TRUNC('month', date_joined)::date
		ORDER BY application_month DESC
		LIMIT 12
	`)
	if err != nil {
		return fmt.Errorf("failed to query monthly applications: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			m          ApplicationMonth
			month      time.Time
			daysClient *float64
			daysEarn   *float64
		)
		err := rows.Scan(
			&month,
			&m.DirectPartners,
			&m.TotalApplications,
			&m.ClientActivated,
			&m.EarningActivated,
			&m.SubPartners,
			&daysClient,
			&daysEarn,
		)
		if err != nil {
			return fmt.Errorf("failed to scan monthly application row: %w", err)
		}
		m.ApplicationMonth = month.Format("Jan 2006")
		if daysClient != nil {
			m.AvgDaysToFirstClient = *daysClient
		}
		if daysEarn != nil {
			m.AvgDaysToFirstEarning = *daysEarn
		}
		if m.TotalApplications > 0 {
			m.ClientActivationRate = roundRate(m.ClientActivated, m.TotalApplications)
			m.EarningActivationRate = roundRate(m.EarningActivated, m.TotalApplications)
		}
		funnel.MonthlyData = append(funnel.MonthlyData, m)
	}
	return rows.Err()
}

func (s *Store) applicationCountries(ctx context.Context, funnel *ApplicationFunnel, month time.Time, countries []string) error {
	query := `
		SELECT
			partner_country,
			ROUND(
				(COUNT(DISTINCT CASE WHEN first_client_joined_date IS NOT NULL THEN partner_id END)::numeric /
				 NULLIF(COUNT(DISTINCT partner_id), 0)) * 100, 1
			) AS client_activation_rate,
			ROUND(
				(COUNT(DISTINCT CASE WHEN first_earning_date IS NOT NULL THEN partner_id END)::numeric /
				 NULLIF(COUNT(DISTINCT partner_id), 0)) * 100, 1
			) AS earning_activation_rate,` +
		activationCounts + `
		FROM partner.partner_info
		WHERE date_joined IS NOT NULL
			AND is_internal = FALSE
			AND date_joined >= CURRENT_DATE - INTERVAL '` + applicationMonthWindow + `'
			AND partner_country IS NOT NULL`
	query, args := appendFunnelFilters(query, nil, month, countries)
	query += `
		GROUP BY partner_country
		ORDER BY total_applications DESC
		LIMIT 15`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to query country applications: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanApplicationPlace(rows.Scan, true)
		if err != nil {
			return err
		}
		funnel.CountryDistribution = append(funnel.CountryDistribution, p)
	}
	return rows.Err()
}

func (s *Store) applicationRegions(ctx context.Context, funnel *ApplicationFunnel, month time.Time) error {
	query := `
		SELECT
			partner_region,
			ROUND(
				(COUNT(DISTINCT CASE WHEN first_client_joined_date IS NOT NULL THEN partner_id END)::numeric /
				 NULLIF(COUNT(DISTINCT partner_id), 0)) * 100, 1
			) AS client_activation_rate,
			ROUND(
				(COUNT(DISTINCT CASE WHEN first_earning_date IS NOT NULL THEN partner_id END)::numeric /
				 NULLIF(COUNT(DISTINCT partner_id), 0)) * 100, 1
			) AS earning_activation_rate,` +
		activationCounts + `
		FROM partner.partner_info
		WHERE date_joined IS NOT NULL
			AND is_internal = FALSE
			AND date_joined >= CURRENT_DATE - INTERVAL '` + applicationMonthWindow + `'
			AND partner_region IS NOT NULL`
	query, args := appendFunnelFilters(query, nil, month, nil)
	query += `
		GROUP BY partner_region
		ORDER BY total_applications DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to query region applications: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanApplicationPlace(rows.Scan, false)
		if err != nil {
			return err
		}
		funnel.RegionDistribution = append(funnel.RegionDistribution, p)
	}
	return rows.Err()
}

func (s *Store) applicationSummary(ctx context.Context, funnel *ApplicationFunnel, month time.Time, countries []string) error {
	query := `
		SELECT
			COUNT(DISTINCT CASE WHEN parent_partner_id IS NULL THEN partner_id END) AS direct_partners,
			COUNT(CASE WHEN is_app_dev = TRUE THEN 1 END) AS api_developers,
			ROUND(
				(COUNT(DISTINCT CASE WHEN first_client_joined_date IS NOT NULL THEN partner_id END)::numeric /
				 NULLIF(COUNT(DISTINCT partner_id), 0)) * 100, 1
			) AS client_activation_rate,
			ROUND(
				(COUNT(DISTINCT CASE WHEN first_earning_date IS NOT NULL THEN partner_id END)::numeric /
				 NULLIF(COUNT(DISTINCT partner_id), 0)) * 100, 1
			) AS earning_activation_rate,` +
		activationCounts + `
		FROM partner.partner_info
		WHERE date_joined IS NOT NULL
			AND is_internal = FALSE
			AND date_joined >= CURRENT_DATE - INTERVAL '` + applicationMonthWindow + `'`
	query, args := appendFunnelFilters(query, nil, month, countries)

	var (
		sum        ApplicationSummary
		clientRate *float64
		earnRate   *float64
		daysClient *float64
		daysEarn   *float64
	)
	err := s.pool.QueryRow(ctx, query, args...).Scan(
		&sum.DirectPartners,
		&sum.APIDevelopers,
		&clientRate,
		&earnRate,
		&sum.TotalApplications,
		&sum.ClientActivated,
		&sum.EarningActivated,
		&sum.SubPartners,
		&daysClient,
		&daysEarn,
	)
	if err != nil {
		return fmt.Errorf("failed to query application summary: %w", err)
	}
	if clientRate != nil {
		sum.ClientActivationRate = *clientRate
	}
	if earnRate != nil {
		sum.EarningActivationRate = *earnRate
	}
	if daysClient != nil {
		sum.AvgDaysToFirstClient = *daysClient
	}
	if daysEarn != nil {
		sum.AvgDaysToFirstEarning = *daysEarn
	}
	funnel.Summary = sum
	return nil
}

// appendFunnelFilters appends the optional month and country predicates as
// positional parameters.
func appendFunnelFilters(query string, args []any, month time.Time, countries []string) (string, []any) {
	if !month.IsZero() {
		args = append(args, month)
		query += fmt.Sprintf(`
			AND DATE_TRUNC('month', date_joined) = DATE_TRUNC('month', $%d::date)`, len(args))
	}
	if len(countries) > 0 {
		args = append(args, countries)
		query += fmt.Sprintf(`
			AND partner_country = ANY($%d)`, len(args))
	}
	return query, args
}

func scanApplicationPlace(scan func(...any) error, isCountry bool) (ApplicationPlace, error) {
	var (
		p          ApplicationPlace
		place      string
		clientRate *float64
		earnRate   *float64
		daysClient *float64
		daysEarn   *float64
	)
	err := scan(
		&place,
		&clientRate,
		&earnRate,
		&p.TotalApplications,
		&p.ClientActivated,
		&p.EarningActivated,
		&p.SubPartners,
		&daysClient,
		&daysEarn,
	)
	if err != nil {
		return p, fmt.Errorf("failed to scan application distribution row: %w", err)
	}
	if isCountry {
		p.PartnerCountry = place
	} else {
		p.PartnerRegion = place
	}
	if clientRate != nil {
		p.ClientActivationRate = *clientRate
	}
	if earnRate != nil {
		p.EarningActivationRate = *earnRate
	}
	if daysClient != nil {
		p.AvgDaysToFirstClient = *daysClient
	}
	if daysEarn != nil {
		p.AvgDaysToFirstEarning = *daysEarn
	}
	return p, nil
}

// ApplicationCountryList returns every country with at least one partner
// application in the window, sorted alphabetically.
func (s *Store) ApplicationCountryList(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT partner_country
		FROM partner.partner_info
		WHERE date_joined IS NOT NULL
			AND date_joined >= CURRENT_DATE - INTERVAL '`+applicationMonthWindow+`'
			AND partner_country IS NOT NULL
		GROUP BY partner_country
		ORDER BY partner_country ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query application countries: %w", err)
	}
	defer rows.Close()

	countries := []string{}
	for rows.Next() {
		var country string
		if err := rows.Scan(&country); err != nil {
			return nil, fmt.Errorf("failed to scan country: %w", err)
		}
		if country != "" {
			countries = append(countries, country)
		}
	}
	return countries, rows.Err()
}

func roundRate(part, total int) float64 {
	if total == 0 {
		return 0
	}
	rate := float64(part) / float64(total) * 100
	return float64(int(rate*10+0.5)) / 10
}
