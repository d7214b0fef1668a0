package dataset

import (
	"math"
	"sort"
	"time"

	"github.com/manaskarra/pdash/internal/derive"
)

// TierSummaryEntry is one tier's lifetime aggregate with its share of the
// active-tier totals. Inactive is reported but pinned to 0% so it never
// distorts the distribution charts.
type TierSummaryEntry struct {
	Tier               string  `json:"tier"`
	PartnerCount       int     `json:"partner_count"`
	TotalEarnings      float64 `json:"total_earnings"`
	TotalRevenue       float64 `json:"total_revenue"`
	TotalDeposits      float64 `json:"total_deposits"`
	ActiveClients      int     `json:"active_clients"`
	NewClients         int     `json:"new_clients"`
	EarningsPercentage float64 `json:"earnings_percentage"`
	RevenuePercentage  float64 `json:"revenue_percentage"`
	DepositsPercentage float64 `json:"deposits_percentage"`
	ClientsPercentage  float64 `json:"clients_percentage"`
	PartnerPercentage  float64 `json:"partner_percentage"`
}

// TierMonthPoint is one month of a per-metric chart series, with one value
// per tier bucket.
type TierMonthPoint struct {
	Month    string  `json:"month"`
	Platinum float64 `json:"platinum"`
	Gold     float64 `json:"gold"`
	Silver   float64 `json:"silver"`
	Bronze   float64 `json:"bronze"`
	Inactive float64 `json:"inactive"`
}

// TierAnalytics is the /api/tier-analytics payload.
type TierAnalytics struct {
	TierSummary   []TierSummaryEntry          `json:"tier_summary"`
	MonthlyCharts map[string][]TierMonthPoint `json:"monthly_charts"`
	Totals        TierAnalyticsTotals         `json:"totals"`
}

// TierAnalyticsTotals are the headline numbers above the tier charts.
// Financial totals cover active partners only; the partner count is global.
type TierAnalyticsTotals struct {
	TotalPartners      int     `json:"total_partners"`
	TotalEarnings      float64 `json:"total_earnings"`
	TotalRevenue       float64 `json:"total_revenue"`
	TotalDeposits      float64 `json:"total_deposits"`
	TotalActiveClients int     `json:"total_active_clients"`
}

// chartMetrics are the per-tier monthly chart series, keyed the way the
// frontend charts expect.
var chartMetrics = []string{
	"total_earnings", "company_revenue", "total_deposits",
	"partner_id", "active_clients", "new_active_clients",
}

// TierAnalytics aggregates the snapshot by each partner's current tier.
// Monthly series only count partner-months that actually earned commission.
func (s *Snapshot) TierAnalytics() TierAnalytics {
	currentTier := s.latestTiers()

	// Lifetime totals per current tier.
	type tierTotal struct {
		partners      int
		earnings      float64
		revenue       float64
		deposits      float64
		activeClients int
		newClients    int
	}
	totals := make(map[derive.Tier]*tierTotal)
	for i := range s.aggregates {
		p := &s.aggregates[i]
		tt := totals[p.Tier]
		if tt == nil {
			tt = &tierTotal{}
			totals[p.Tier] = tt
		}
		tt.partners++
		tt.earnings += p.TotalEarnings
		tt.revenue += p.CompanyRevenue
		tt.deposits += p.TotalDeposits
		tt.activeClients += p.ActiveClients
		tt.newClients += p.NewClientsSum
	}

	earningsShares := make(map[derive.Tier]float64)
	revenueShares := make(map[derive.Tier]float64)
	depositShares := make(map[derive.Tier]float64)
	clientShares := make(map[derive.Tier]float64)
	partnerShares := make(map[derive.Tier]float64)
	for tier, tt := range totals {
		if tier == derive.TierInactive {
			continue
		}
		earningsShares[tier] = tt.earnings
		revenueShares[tier] = tt.revenue
		depositShares[tier] = tt.deposits
		clientShares[tier] = float64(tt.activeClients)
		partnerShares[tier] = float64(tt.partners)
	}
	earningsShares = derive.SharePercentages(earningsShares)
	revenueShares = derive.SharePercentages(revenueShares)
	depositShares = derive.SharePercentages(depositShares)
	clientShares = derive.SharePercentages(clientShares)
	partnerShares = derive.SharePercentages(partnerShares)

	out := TierAnalytics{MonthlyCharts: make(map[string][]TierMonthPoint)}
	for _, tier := range derive.TierOrder {
		tt := totals[tier]
		if tt == nil {
			continue
		}
		out.TierSummary = append(out.TierSummary, TierSummaryEntry{
			Tier:               string(tier),
			PartnerCount:       tt.partners,
			TotalEarnings:      tt.earnings,
			TotalRevenue:       tt.revenue,
			TotalDeposits:      tt.deposits,
			ActiveClients:      tt.activeClients,
			NewClients:         tt.newClients,
			EarningsPercentage: earningsShares[tier],
			RevenuePercentage:  revenueShares[tier],
			DepositsPercentage: depositShares[tier],
			ClientsPercentage:  clientShares[tier],
			PartnerPercentage:  partnerShares[tier],
		})
		out.Totals.TotalPartners += tt.partners
		if tier != derive.TierInactive {
			out.Totals.TotalEarnings += tt.earnings
			out.Totals.TotalRevenue += tt.revenue
			out.Totals.TotalDeposits += tt.deposits
			out.Totals.TotalActiveClients += tt.activeClients
		}
	}

	// Monthly chart series by current tier, earning months only.
	type monthTierCell struct {
		partners   map[string]struct{}
		earnings   float64
		revenue    float64
		deposits   float64
		active     int
		newClients int
	}
	cells := make(map[time.Time]map[derive.Tier]*monthTierCell)
	for i := range s.rows {
		r := &s.rows[i]
		if r.TotalEarnings <= 0 {
			continue
		}
		tier := currentTier[r.PartnerID]
		byTier := cells[r.Month]
		if byTier == nil {
			byTier = make(map[derive.Tier]*monthTierCell)
			cells[r.Month] = byTier
		}
		c := byTier[tier]
		if c == nil {
			c = &monthTierCell{partners: make(map[string]struct{})}
			byTier[tier] = c
		}
		c.partners[r.PartnerID] = struct{}{}
		c.earnings += r.TotalEarnings
		c.revenue += r.CompanyRevenue
		c.deposits += r.TotalDeposits
		c.active += r.ActiveClients
		c.newClients += r.NewActiveClients
	}

	metricValue := func(c *monthTierCell, metric string) float64 {
		if c == nil {
			return 0
		}
		switch metric {
		case "total_earnings":
			return c.earnings
		case "company_revenue":
			return c.revenue
		case "total_deposits":
			return c.deposits
		case "partner_id":
			return float64(len(c.partners))
		case "active_clients":
			return float64(c.active)
		default:
			return float64(c.newClients)
		}
	}

	for _, metric := range chartMetrics {
		series := make([]TierMonthPoint, 0, len(s.months))
		for _, m := range s.months {
			byTier := cells[m]
			point := TierMonthPoint{Month: m.Format("2006-01")}
			point.Platinum = metricValue(byTier[derive.TierPlatinum], metric)
			point.Gold = metricValue(byTier[derive.TierGold], metric)
			point.Silver = metricValue(byTier[derive.TierSilver], metric)
			point.Bronze = metricValue(byTier[derive.TierBronze], metric)
			point.Inactive = metricValue(byTier[derive.TierInactive], metric)
			series = append(series, point)
		}
		out.MonthlyCharts[metric] = series
	}

	return out
}

// latestTiers maps each partner to its most recent tier.
func (s *Snapshot) latestTiers() map[string]derive.Tier {
	out := make(map[string]derive.Tier, len(s.byPartner))
	for id, months := range s.byPartner {
		out[id] = months[len(months)-1].Tier
	}
	return out
}

// denseRank returns the 1-based dense rank of the value keyed by target,
// descending: the highest value ranks 1 and ties share a rank.
func denseRank(values map[string]float64, target string) int {
	tv, ok := values[target]
	if !ok {
		return 1
	}
	distinct := make(map[float64]struct{})
	for _, v := range values {
		distinct[v] = struct{}{}
	}
	sorted := make([]float64, 0, len(distinct))
	for v := range distinct {
		sorted = append(sorted, v)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))
	for i, v := range sorted {
		if v == tv {
			return i + 1
		}
	}
	return 1
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
