package dataset

import (
	"time"

	"github.com/manaskarra/pdash/internal/derive"
)

// CountrySummary is the headline block of the country tier analytics view.
// Ranks are dense ranks against every other country; in fast mode they are
// all pinned to 1 and the frontend hides them.
type CountrySummary struct {
	PartnerCountry       string  `json:"partner_country,omitempty"`
	PartnerRegion        string  `json:"partner_region,omitempty"`
	TotalPartners        int     `json:"total_partners"`
	TotalActivePartners  int     `json:"total_active_partners"`
	TotalCompanyRevenue  float64 `json:"total_company_revenue"`
	TotalPartnerEarnings float64 `json:"total_partner_earnings"`
	TotalDeposits        float64 `json:"total_deposits"`
	TotalNewClients      int     `json:"total_new_clients"`

	PartnersRank             int `json:"partners_rank"`
	ActivePartnersRank       int `json:"active_partners_rank"`
	RevenueRank              int `json:"revenue_rank"`
	EarningsRank             int `json:"earnings_rank"`
	DepositsRank             int `json:"deposits_rank"`
	ClientsRank              int `json:"clients_rank"`
	EtRRank                  int `json:"etr_rank"`
	EtDRank                  int `json:"etd_rank"`
	AvgMonthlyRevenueRank    int `json:"avg_monthly_revenue_rank"`
	AvgMonthlyEarningsRank   int `json:"avg_monthly_earnings_rank"`
	AvgMonthlyDepositsRank   int `json:"avg_monthly_deposits_rank"`
	AvgMonthlyNewClientsRank int `json:"avg_monthly_new_clients_rank"`
}

// MonthTierCell is one (month, tier) aggregate for a country. The rank
// fields are only populated when rankings were requested.
type MonthTierCell struct {
	Count         int     `json:"count"`
	Earnings      float64 `json:"earnings"`
	Revenue       float64 `json:"revenue"`
	Deposits      float64 `json:"deposits"`
	ActiveClients int     `json:"active_clients"`
	NewClients    int     `json:"new_clients"`
	Volume        float64 `json:"volume"`

	ActiveClientsRank int `json:"active_clients_rank,omitempty"`
	EarningsRank      int `json:"earnings_rank,omitempty"`
	RevenueRank       int `json:"revenue_rank,omitempty"`
	DepositsRank      int `json:"deposits_rank,omitempty"`
	PartnersRank      int `json:"partners_rank,omitempty"`
	NewClientsRank    int `json:"new_clients_rank,omitempty"`
	VolumeRank        int `json:"volume_rank,omitempty"`

	TierActiveClientsRank int `json:"tier_active_clients_rank,omitempty"`
	TierEarningsRank      int `json:"tier_earnings_rank,omitempty"`
	TierRevenueRank       int `json:"tier_revenue_rank,omitempty"`
	TierDepositsRank      int `json:"tier_deposits_rank,omitempty"`
	TierPartnersRank      int `json:"tier_partners_rank,omitempty"`
	TierNewClientsRank    int `json:"tier_new_clients_rank,omitempty"`
	TierVolumeRank        int `json:"tier_volume_rank,omitempty"`
}

// MonthRankSet holds a country's dense ranks for one month across all tiers.
type MonthRankSet struct {
	PartnersRank      int `json:"partners_rank"`
	EarningsRank      int `json:"earnings_rank"`
	RevenueRank       int `json:"revenue_rank"`
	DepositsRank      int `json:"deposits_rank"`
	ActiveClientsRank int `json:"active_clients_rank"`
	NewClientsRank    int `json:"new_clients_rank"`
	VolumeRank        int `json:"volume_rank"`
}

// TierRankSet extends MonthRankSet with the two ratio ranks used on the
// tier drill-down tables.
type TierRankSet struct {
	PartnersRank      int `json:"partners_rank"`
	EarningsRank      int `json:"earnings_rank"`
	RevenueRank       int `json:"revenue_rank"`
	DepositsRank      int `json:"deposits_rank"`
	ActiveClientsRank int `json:"active_clients_rank"`
	NewClientsRank    int `json:"new_clients_rank"`
	VolumeRank        int `json:"volume_rank"`
	EtRRank           int `json:"etr_rank"`
	EtDRank           int `json:"etd_rank"`
}

// GlobalTierTotal mirrors the overview methodology: revenue intentionally
// reports the earnings sum so the country view's percentage bars agree with
// the overview page.
type GlobalTierTotal struct {
	TotalActivePartners  int     `json:"total_active_partners"`
	TotalCompanyRevenue  float64 `json:"total_company_revenue"`
	TotalPartnerEarnings float64 `json:"total_partner_earnings"`
	TotalDeposits        float64 `json:"total_deposits"`
	TotalNewClients      int     `json:"total_new_clients"`
}

// GlobalTotals is the all-countries baseline used for share-of-global bars.
type GlobalTotals struct {
	TotalActivePartners  int                        `json:"total_active_partners"`
	TotalCompanyRevenue  float64                    `json:"total_company_revenue"`
	TotalPartnerEarnings float64                    `json:"total_partner_earnings"`
	TotalDeposits        float64                    `json:"total_deposits"`
	TotalNewClients      int                        `json:"total_new_clients"`
	TierTotals           map[string]GlobalTierTotal `json:"tier_totals"`
}

// CountryTierAnalytics is the /api/country-tier-analytics payload.
// MonthlyTierData is keyed by "Jan 2006" labels; AvailableMonths carries
// their latest-first order since JSON objects do not.
type CountryTierAnalytics struct {
	Summary             CountrySummary                  `json:"summary"`
	MonthlyTierData     map[string]map[string]*MonthTierCell `json:"monthly_tier_data"`
	TierCountryRankings map[string]TierRankSet          `json:"tier_country_rankings"`
	MonthlyRankings     map[string]MonthRankSet         `json:"monthly_rankings"`
	TierMonthlyRankings map[string]map[string]TierRankSet `json:"tier_monthly_rankings"`
	AvailableMonths     []string                        `json:"available_months"`
	GlobalTotals        GlobalTotals                    `json:"global_totals"`
	Empty               bool                            `json:"-"`
}

// countryCell accumulates row-level sums for one country within some slice
// of the data (a tier, a month, or both).
type countryCell struct {
	partners   map[string]struct{}
	earnings   float64
	revenue    float64
	deposits   float64
	volume     float64
	active     int
	newClients int
}

func newCountryCell() *countryCell {
	return &countryCell{partners: make(map[string]struct{})}
}

func (c *countryCell) add(r *MonthlyMetric) {
	c.partners[r.PartnerID] = struct{}{}
	c.earnings += r.TotalEarnings
	c.revenue += r.CompanyRevenue
	c.deposits += r.TotalDeposits
	c.volume += r.VolumeUSD
	c.active += r.ActiveClients
	c.newClients += r.NewActiveClients
}

func (c *countryCell) etr() float64 {
	if c.revenue <= 0 {
		return 0
	}
	return c.earnings / c.revenue * 100
}

func (c *countryCell) etd() float64 {
	if c.deposits <= 0 {
		return 0
	}
	return c.earnings / c.deposits * 100
}

// rankCells dense-ranks the target country inside a set of per-country cells.
func rankCells(cells map[string]*countryCell, target string, metric func(*countryCell) float64) int {
	values := make(map[string]float64, len(cells))
	for country, c := range cells {
		values[country] = metric(c)
	}
	return denseRank(values, target)
}

func tierRanksFor(cells map[string]*countryCell, target string) TierRankSet {
	return TierRankSet{
		PartnersRank:      rankCells(cells, target, func(c *countryCell) float64 { return float64(len(c.partners)) }),
		EarningsRank:      rankCells(cells, target, func(c *countryCell) float64 { return c.earnings }),
		RevenueRank:       rankCells(cells, target, func(c *countryCell) float64 { return c.revenue }),
		DepositsRank:      rankCells(cells, target, func(c *countryCell) float64 { return c.deposits }),
		ActiveClientsRank: rankCells(cells, target, func(c *countryCell) float64 { return float64(c.active) }),
		NewClientsRank:    rankCells(cells, target, func(c *countryCell) float64 { return float64(c.newClients) }),
		VolumeRank:        rankCells(cells, target, func(c *countryCell) float64 { return c.volume }),
		EtRRank:           rankCells(cells, target, func(c *countryCell) float64 { return c.etr() }),
		EtDRank:           rankCells(cells, target, func(c *countryCell) float64 { return c.etd() }),
	}
}

// CountryTierAnalytics builds the country drill-down view. When
// includeRankings is false the expensive all-countries comparisons are
// skipped and every rank comes back as 1.
func (s *Snapshot) CountryTierAnalytics(country string, includeRankings bool) CountryTierAnalytics {
	out := s.tierAnalytics(country, func(country, _ string) string { return country }, includeRankings)
	out.Summary.PartnerCountry = country
	return out
}

// RegionTierAnalytics is the same view scoped to a region, with ranks
// computed against the other regions instead of other countries.
func (s *Snapshot) RegionTierAnalytics(region string, includeRankings bool) CountryTierAnalytics {
	out := s.tierAnalytics(region, func(_, region string) string { return region }, includeRankings)
	out.Summary.PartnerRegion = region
	return out
}

// tierAnalytics groups the snapshot by whatever place keyOf extracts
// (country or region) and builds the drill-down for the target place.
func (s *Snapshot) tierAnalytics(place string, keyOf func(country, region string) string, includeRankings bool) CountryTierAnalytics {
	out := CountryTierAnalytics{
		MonthlyTierData:     make(map[string]map[string]*MonthTierCell),
		TierCountryRankings: make(map[string]TierRankSet),
		MonthlyRankings:     make(map[string]MonthRankSet),
		TierMonthlyRankings: make(map[string]map[string]TierRankSet),
		AvailableMonths:     []string{},
	}

	currentTier := s.latestTiers()

	// Lifetime aggregates for every place; the target place's rankings
	// are computed against this set.
	allPlaces := make(map[string]struct{})
	perPlace := make(map[string]*countryCell)
	activePartners := make(map[string]int)
	for i := range s.aggregates {
		p := &s.aggregates[i]
		key := keyOf(p.Country, p.Region)
		allPlaces[key] = struct{}{}
		c := perPlace[key]
		if c == nil {
			c = newCountryCell()
			perPlace[key] = c
		}
		c.partners[p.PartnerID] = struct{}{}
		c.earnings += p.TotalEarnings
		c.revenue += p.CompanyRevenue
		c.deposits += p.TotalDeposits
		c.active += p.ActiveClients
		c.newClients += p.NewClientsSum
		if p.Active() {
			activePartners[key]++
		}
	}

	target := perPlace[place]
	if target == nil {
		out.Empty = true
		return out
	}

	// Months present in this place's data, latest first.
	placeMonths := make(map[time.Time]struct{})
	for i := range s.rows {
		if keyOf(s.rows[i].Country, s.rows[i].Region) == place {
			placeMonths[s.rows[i].Month] = struct{}{}
		}
	}
	for i := len(s.months) - 1; i >= 0; i-- {
		if _, ok := placeMonths[s.months[i]]; ok {
			out.AvailableMonths = append(out.AvailableMonths, s.months[i].Format(monthLabel))
		}
	}

	// Monthly tier table for the target place, grouped by current tier.
	for i := range s.rows {
		r := &s.rows[i]
		if keyOf(r.Country, r.Region) != place {
			continue
		}
		label := r.Month.Format(monthLabel)
		byTier := out.MonthlyTierData[label]
		if byTier == nil {
			byTier = make(map[string]*MonthTierCell)
			out.MonthlyTierData[label] = byTier
		}
		tier := string(currentTier[r.PartnerID])
		cell := byTier[tier]
		if cell == nil {
			cell = &MonthTierCell{}
			byTier[tier] = cell
		}
		cell.Count++
		cell.Earnings += r.TotalEarnings
		cell.Revenue += r.CompanyRevenue
		cell.Deposits += r.TotalDeposits
		cell.ActiveClients += r.ActiveClients
		cell.NewClients += r.NewActiveClients
		cell.Volume += r.VolumeUSD
	}

	out.Summary = CountrySummary{
		TotalPartners:        len(target.partners),
		TotalActivePartners:  activePartners[place],
		TotalCompanyRevenue:  target.revenue,
		TotalPartnerEarnings: target.earnings,
		TotalDeposits:        target.deposits,
		TotalNewClients:      target.active,
	}

	if !includeRankings {
		out.Summary.PartnersRank = 1
		out.Summary.ActivePartnersRank = 1
		out.Summary.RevenueRank = 1
		out.Summary.EarningsRank = 1
		out.Summary.DepositsRank = 1
		out.Summary.ClientsRank = 1
		out.Summary.EtRRank = 1
		out.Summary.EtDRank = 1
		out.Summary.AvgMonthlyRevenueRank = 1
		out.Summary.AvgMonthlyEarningsRank = 1
		out.Summary.AvgMonthlyDepositsRank = 1
		out.Summary.AvgMonthlyNewClientsRank = 1
		return out
	}

	// Headline ranks vs every place. Monthly averages share a divisor so
	// their ranks match the lifetime ones, but the frontend labels differ.
	out.Summary.PartnersRank = rankCells(perPlace, place, func(c *countryCell) float64 { return float64(len(c.partners)) })
	out.Summary.ActivePartnersRank = denseRank(intRanks(activePartners, allPlaces), place)
	out.Summary.RevenueRank = rankCells(perPlace, place, func(c *countryCell) float64 { return c.revenue })
	out.Summary.EarningsRank = rankCells(perPlace, place, func(c *countryCell) float64 { return c.earnings })
	out.Summary.DepositsRank = rankCells(perPlace, place, func(c *countryCell) float64 { return c.deposits })
	out.Summary.ClientsRank = rankCells(perPlace, place, func(c *countryCell) float64 { return float64(c.active) })
	out.Summary.EtRRank = rankCells(perPlace, place, func(c *countryCell) float64 { return c.etr() })
	out.Summary.EtDRank = rankCells(perPlace, place, func(c *countryCell) float64 { return c.etd() })
	out.Summary.AvgMonthlyRevenueRank = out.Summary.RevenueRank
	out.Summary.AvgMonthlyEarningsRank = out.Summary.EarningsRank
	out.Summary.AvgMonthlyDepositsRank = out.Summary.DepositsRank
	out.Summary.AvgMonthlyNewClientsRank = rankCells(perPlace, place, func(c *countryCell) float64 { return float64(c.newClients) })

	// Lifetime tier-vs-tier ranks. Places with no partners in a tier
	// still compete with all-zero cells so ranks stay comparable.
	tierCells := make(map[derive.Tier]map[string]*countryCell)
	for _, tier := range derive.TierOrder {
		cells := make(map[string]*countryCell, len(allPlaces))
		for c := range allPlaces {
			cells[c] = newCountryCell()
		}
		tierCells[tier] = cells
	}
	for i := range s.rows {
		r := &s.rows[i]
		tierCells[currentTier[r.PartnerID]][keyOf(r.Country, r.Region)].add(r)
	}
	for _, tier := range derive.TierOrder {
		out.TierCountryRankings[string(tier)] = tierRanksFor(tierCells[tier], place)
	}

	// Per-month ranks, overall and per raw monthly tier.
	monthCells := make(map[time.Time]map[string]*countryCell)
	monthTierCells := make(map[time.Time]map[derive.Tier]map[string]*countryCell)
	for i := range s.rows {
		r := &s.rows[i]
		key := keyOf(r.Country, r.Region)
		byPlace := monthCells[r.Month]
		if byPlace == nil {
			byPlace = make(map[string]*countryCell)
			monthCells[r.Month] = byPlace
		}
		c := byPlace[key]
		if c == nil {
			c = newCountryCell()
			byPlace[key] = c
		}
		c.add(r)

		byTier := monthTierCells[r.Month]
		if byTier == nil {
			byTier = make(map[derive.Tier]map[string]*countryCell)
			monthTierCells[r.Month] = byTier
		}
		cells := byTier[r.Tier]
		if cells == nil {
			cells = make(map[string]*countryCell)
			byTier[r.Tier] = cells
		}
		tc := cells[key]
		if tc == nil {
			tc = newCountryCell()
			cells[key] = tc
		}
		tc.add(r)
	}

	for _, tier := range derive.TierOrder {
		out.TierMonthlyRankings[string(tier)] = make(map[string]TierRankSet)
	}
	for _, m := range s.months {
		label := m.Format(monthLabel)
		byPlace := monthCells[m]
		if byPlace == nil {
			continue
		}
		out.MonthlyRankings[label] = MonthRankSet{
			PartnersRank:      rankCells(byPlace, place, func(c *countryCell) float64 { return float64(len(c.partners)) }),
			EarningsRank:      rankCells(byPlace, place, func(c *countryCell) float64 { return c.earnings }),
			RevenueRank:       rankCells(byPlace, place, func(c *countryCell) float64 { return c.revenue }),
			DepositsRank:      rankCells(byPlace, place, func(c *countryCell) float64 { return c.deposits }),
			ActiveClientsRank: rankCells(byPlace, place, func(c *countryCell) float64 { return float64(c.active) }),
			NewClientsRank:    rankCells(byPlace, place, func(c *countryCell) float64 { return float64(c.newClients) }),
			VolumeRank:        rankCells(byPlace, place, func(c *countryCell) float64 { return c.volume }),
		}
		for _, tier := range derive.TierOrder {
			cells := monthTierCells[m][tier]
			if cells == nil {
				cells = make(map[string]*countryCell)
			}
			// Zero-fill so every place competes in every tier.
			for c := range byPlace {
				if cells[c] == nil {
					cells[c] = newCountryCell()
				}
			}
			out.TierMonthlyRankings[string(tier)][label] = tierRanksFor(cells, place)
		}
	}

	// Fold the per-month ranks back into the monthly tier table.
	for label, byTier := range out.MonthlyTierData {
		mr, ok := out.MonthlyRankings[label]
		for tier, cell := range byTier {
			if ok {
				cell.PartnersRank = mr.PartnersRank
				cell.EarningsRank = mr.EarningsRank
				cell.RevenueRank = mr.RevenueRank
				cell.DepositsRank = mr.DepositsRank
				cell.ActiveClientsRank = mr.ActiveClientsRank
				cell.NewClientsRank = mr.NewClientsRank
				cell.VolumeRank = mr.VolumeRank
			}
			if tr, ok := out.TierMonthlyRankings[tier][label]; ok {
				cell.TierPartnersRank = tr.PartnersRank
				cell.TierEarningsRank = tr.EarningsRank
				cell.TierRevenueRank = tr.RevenueRank
				cell.TierDepositsRank = tr.DepositsRank
				cell.TierActiveClientsRank = tr.ActiveClientsRank
				cell.TierNewClientsRank = tr.NewClientsRank
				cell.TierVolumeRank = tr.VolumeRank
			}
		}
	}

	out.GlobalTotals = s.globalTotals()
	return out
}

// globalTotals is the overview-aligned baseline: active partners only for
// the headline block, every tier broken out underneath.
func (s *Snapshot) globalTotals() GlobalTotals {
	gt := GlobalTotals{TierTotals: make(map[string]GlobalTierTotal)}
	tiers := make(map[derive.Tier]*GlobalTierTotal)
	for i := range s.aggregates {
		p := &s.aggregates[i]
		tt := tiers[p.Tier]
		if tt == nil {
			tt = &GlobalTierTotal{}
			tiers[p.Tier] = tt
		}
		tt.TotalActivePartners++
		tt.TotalCompanyRevenue += p.TotalEarnings
		tt.TotalPartnerEarnings += p.TotalEarnings
		tt.TotalDeposits += p.TotalDeposits
		tt.TotalNewClients += p.NewClientsSum
		if p.Active() {
			gt.TotalActivePartners++
			gt.TotalCompanyRevenue += p.TotalEarnings
			gt.TotalPartnerEarnings += p.TotalEarnings
			gt.TotalDeposits += p.TotalDeposits
			gt.TotalNewClients += p.NewClientsSum
		}
	}
	for _, tier := range derive.TierOrder {
		if tt := tiers[tier]; tt != nil {
			gt.TierTotals[string(tier)] = *tt
		} else {
			gt.TierTotals[string(tier)] = GlobalTierTotal{}
		}
	}
	return gt
}

// intRanks widens an int metric to the float map denseRank expects,
// zero-filling countries absent from the metric.
func intRanks(values map[string]int, universe map[string]struct{}) map[string]float64 {
	out := make(map[string]float64, len(universe))
	for c := range universe {
		out[c] = float64(values[c])
	}
	return out
}
