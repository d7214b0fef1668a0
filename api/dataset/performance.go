package dataset

import (
	"time"

	"github.com/manaskarra/pdash/internal/derive"
)

// TierPerformanceRow is one month of a tier's performance inside a country
// or region, ranked against every country with partners in that tier.
type TierPerformanceRow struct {
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

// TierPerformance returns the monthly series, latest first, for partners
// whose current tier matches inside the given country or region. Exactly
// one of country or region should be set; country wins when both are.
func (s *Snapshot) TierPerformance(country, region string, tier derive.Tier) []TierPerformanceRow {
	currentTier := s.latestTiers()

	inScope := func(r *MonthlyMetric) bool {
		if country != "" {
			return r.Country == country
		}
		return r.Region == region
	}

	// Scoped monthly sums for the requested tier.
	local := make(map[time.Time]*countryCell)
	any := false
	for i := range s.rows {
		r := &s.rows[i]
		if !inScope(r) || currentTier[r.PartnerID] != tier {
			continue
		}
		any = true
		c := local[r.Month]
		if c == nil {
			c = newCountryCell()
			local[r.Month] = c
		}
		c.add(r)
	}
	if !any {
		return []TierPerformanceRow{}
	}

	// All-countries monthly sums for the same tier. Countries with no
	// partners in the tier are absent, not zero-filled.
	byMonth := make(map[time.Time]map[string]*countryCell)
	for i := range s.rows {
		r := &s.rows[i]
		if currentTier[r.PartnerID] != tier {
			continue
		}
		byCountry := byMonth[r.Month]
		if byCountry == nil {
			byCountry = make(map[string]*countryCell)
			byMonth[r.Month] = byCountry
		}
		c := byCountry[r.Country]
		if c == nil {
			c = newCountryCell()
			byCountry[r.Country] = c
		}
		c.add(r)
	}

	rankTarget := country
	if rankTarget == "" {
		rankTarget = region
	}

	rows := make([]TierPerformanceRow, 0, len(local))
	for i := len(s.months) - 1; i >= 0; i-- {
		m := s.months[i]
		c := local[m]
		if c == nil {
			continue
		}
		row := TierPerformanceRow{
			Month:          m.Format(monthLabel),
			Tier:           string(tier),
			TotalEarnings:  c.earnings,
			CompanyRevenue: c.revenue,
			EtRRatio:       round2(c.etr()),
			TotalDeposits:  c.deposits,
			EtDRatio:       round2(c.etd()),
			ActiveClients:  c.active,
			NewClients:     c.newClients,
			Volume:         c.volume,
			EarningsRank:   1,
			RevenueRank:    1,
			DepositsRank:   1,
			ClientsRank:    1,
			NewClientsRank: 1,
			VolumeRank:     1,
		}
		if cells := byMonth[m]; cells != nil && cells[rankTarget] != nil {
			row.EarningsRank = rankCells(cells, rankTarget, func(c *countryCell) float64 { return c.earnings })
			row.RevenueRank = rankCells(cells, rankTarget, func(c *countryCell) float64 { return c.revenue })
			row.DepositsRank = rankCells(cells, rankTarget, func(c *countryCell) float64 { return c.deposits })
			row.ClientsRank = rankCells(cells, rankTarget, func(c *countryCell) float64 { return float64(c.active) })
			row.NewClientsRank = rankCells(cells, rankTarget, func(c *countryCell) float64 { return float64(c.newClients) })
			row.VolumeRank = rankCells(cells, rankTarget, func(c *countryCell) float64 { return c.volume })
		}
		rows = append(rows, row)
	}
	return rows
}
