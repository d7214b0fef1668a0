package dataset

import (
	"sort"
	"time"

	"github.com/manaskarra/pdash/internal/derive"
)

// TierDetailRow is one partner's performance in one month, ranked against
// the other partners holding the same tier that month. The tier is derived
// from the month's earnings rather than the recorded tier column, so a
// partner that had a Platinum month shows up under Platinum even if their
// current tier has since dropped.
type TierDetailRow struct {
	Month          string  `json:"month"`
	Tier           string  `json:"tier"`
	TotalEarnings  float64 `json:"total_earnings"`
	EarningsRank   int     `json:"earnings_rank"`
	CompanyRevenue float64 `json:"company_revenue"`
	RevenueRank    int     `json:"revenue_rank"`
	EtRRatio       float64 `json:"etr_ratio"`
	TotalDeposits  float64 `json:"total_deposits"`
	DepositsRank   int     `json:"deposits_rank"`
	EtDRatio       float64 `json:"etd_ratio"`
	ActiveClients  int     `json:"active_clients"`
	ClientsRank    int     `json:"clients_rank"`
	NewClients     int     `json:"new_clients"`
	NewClientsRank int     `json:"new_clients_rank"`
	Volume         float64 `json:"volume"`
	VolumeRank     int     `json:"volume_rank"`
}

// rankDetailRows assigns sequential ranks by the metric, highest first.
// Ties get distinct ranks, mirroring a ROW_NUMBER window.
func rankDetailRows(rows []*TierDetailRow, metric func(*TierDetailRow) float64, assign func(*TierDetailRow, int)) {
	order := make([]*TierDetailRow, len(rows))
	copy(order, rows)
	sort.SliceStable(order, func(i, j int) bool { return metric(order[i]) > metric(order[j]) })
	for i, r := range order {
		assign(r, i+1)
	}
}

// TierDetail returns per-partner monthly rows for the tier detail modal,
// scoped to a country (which wins) or region. tier narrows to one tier
// after ranking; month ("2006-01") narrows to one month and is ignored
// when malformed. Rows come back newest month first, then by earnings
// rank.
func (s *Snapshot) TierDetail(country, region string, tier derive.Tier, month string) []TierDetailRow {
	var monthFilter time.Time
	if month != "" {
		if parsed, err := time.Parse("2006-01", month); err == nil {
			monthFilter = parsed
		}
	}

	// Bucket rows by month so ranks are assigned within each month+tier.
	byMonth := make(map[time.Time][]*TierDetailRow)
	for i := range s.rows {
		r := &s.rows[i]
		if country != "" {
			if r.Country != country {
				continue
			}
		} else if region != "" && r.Region != region {
			continue
		}
		if !monthFilter.IsZero() && !r.Month.Equal(monthFilter) {
			continue
		}

		row := &TierDetailRow{
			Month:          r.Month.Format(monthLabel),
			Tier:           string(derive.TierForEarnings(r.TotalEarnings)),
			TotalEarnings:  r.TotalEarnings,
			CompanyRevenue: r.CompanyRevenue,
			TotalDeposits:  r.TotalDeposits,
			ActiveClients:  r.ActiveClients,
			NewClients:     r.NewActiveClients,
			Volume:         r.VolumeUSD,
		}
		if r.CompanyRevenue > 0 {
			row.EtRRatio = round2(r.TotalEarnings / r.CompanyRevenue * 100)
		}
		if r.TotalDeposits > 0 {
			row.EtDRatio = round2(r.TotalEarnings / r.TotalDeposits * 100)
		}
		byMonth[r.Month] = append(byMonth[r.Month], row)
	}

	months := make([]time.Time, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].After(months[j]) })

	out := []TierDetailRow{}
	for _, m := range months {
		// Split the month's rows by derived tier and rank inside each.
		byTier := make(map[string][]*TierDetailRow)
		for _, row := range byMonth[m] {
			byTier[row.Tier] = append(byTier[row.Tier], row)
		}
		for _, rows := range byTier {
			rankDetailRows(rows, func(r *TierDetailRow) float64 { return r.TotalEarnings }, func(r *TierDetailRow, n int) { r.EarningsRank = n })
			rankDetailRows(rows, func(r *TierDetailRow) float64 { return r.CompanyRevenue }, func(r *TierDetailRow, n int) { r.RevenueRank = n })
			rankDetailRows(rows, func(r *TierDetailRow) float64 { return r.TotalDeposits }, func(r *TierDetailRow, n int) { r.DepositsRank = n })
			rankDetailRows(rows, func(r *TierDetailRow) float64 { return float64(r.ActiveClients) }, func(r *TierDetailRow, n int) { r.ClientsRank = n })
			rankDetailRows(rows, func(r *TierDetailRow) float64 { return float64(r.NewClients) }, func(r *TierDetailRow, n int) { r.NewClientsRank = n })
			rankDetailRows(rows, func(r *TierDetailRow) float64 { return r.Volume }, func(r *TierDetailRow, n int) { r.VolumeRank = n })
		}

		monthRows := make([]TierDetailRow, 0, len(byMonth[m]))
		for _, row := range byMonth[m] {
			if tier != "" && row.Tier != string(tier) {
				continue
			}
			monthRows = append(monthRows, *row)
		}
		sort.SliceStable(monthRows, func(i, j int) bool { return monthRows[i].EarningsRank < monthRows[j].EarningsRank })
		out = append(out, monthRows...)
	}

	return out
}
