package dataset

import (
	"sort"

	"github.com/manaskarra/pdash/internal/derive"
)

// Overview is the aggregate KPI block for the overview panel. Totals cover
// active partners only; the tier distribution keeps Inactive visible.
type Overview struct {
	ActivePartners       int             `json:"active_partners"`
	TotalPartners        int             `json:"total_partners"`
	TotalRevenue         float64         `json:"total_revenue"`
	TotalDeposits        float64         `json:"total_deposits"`
	TotalActiveClients   int             `json:"total_active_clients"`
	TotalNewClients      int             `json:"total_new_clients"`
	AvgEarningsPerPartner float64        `json:"avg_earnings_per_partner"`
	TopCountries         map[string]int  `json:"top_countries"`
	TierDistribution     map[string]int  `json:"tier_distribution"`
	APIDevelopers        int             `json:"api_developers"`
}

// Overview computes the overview KPI block.
func (s *Snapshot) Overview() Overview {
	ov := Overview{
		TopCountries:     make(map[string]int),
		TierDistribution: make(map[string]int),
	}

	countryCounts := make(map[string]int)
	for i := range s.aggregates {
		p := &s.aggregates[i]
		ov.TotalPartners++
		ov.TierDistribution[string(p.Tier)]++

		if !p.Active() {
			continue
		}
		ov.ActivePartners++
		ov.TotalRevenue += p.TotalEarnings
		ov.TotalDeposits += p.TotalDeposits
		ov.TotalActiveClients += p.ActiveClients
		ov.TotalNewClients += p.NewClientsSum
		if p.IsAppDev {
			ov.APIDevelopers++
		}
		if p.Country != "" {
			countryCounts[p.Country]++
		}
	}

	if ov.ActivePartners > 0 {
		ov.AvgEarningsPerPartner = ov.TotalRevenue / float64(ov.ActivePartners)
	}
	ov.TopCountries = topN(countryCounts, 5)
	return ov
}

// topN keeps the n highest-count entries of counts.
func topN(counts map[string]int, n int) map[string]int {
	type entry struct {
		key   string
		count int
	}
	entries := make([]entry, 0, len(counts))
	for k, v := range counts {
		entries = append(entries, entry{k, v})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].key < entries[j].key
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	out := make(map[string]int, len(entries))
	for _, e := range entries {
		out[e.key] = e.count
	}
	return out
}

// FilterOptions is the /api/filters payload: the distinct values a user
// can filter the partner list by. Tiers come back in hierarchy order.
type FilterOptions struct {
	Countries []string `json:"countries"`
	Regions   []string `json:"regions"`
	Tiers     []string `json:"tiers"`
	Months    []string `json:"months"`
}

// FilterOptions lists the filterable values present in the data.
func (s *Snapshot) FilterOptions() FilterOptions {
	countries := make(map[string]struct{})
	regions := make(map[string]struct{})
	tiers := make(map[derive.Tier]struct{})

	for i := range s.rows {
		r := &s.rows[i]
		if r.Country != "" {
			countries[r.Country] = struct{}{}
		}
		if r.Region != "" {
			regions[r.Region] = struct{}{}
		}
		tiers[r.Tier] = struct{}{}
	}

	opts := FilterOptions{
		Countries: sortedKeys(countries),
		Regions:   sortedKeys(regions),
	}
	for _, t := range derive.TierOrder {
		if _, ok := tiers[t]; ok {
			opts.Tiers = append(opts.Tiers, string(t))
		}
	}
	for _, m := range s.months {
		opts.Months = append(opts.Months, m.Format("2006-01"))
	}
	return opts
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
