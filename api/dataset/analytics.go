package dataset

import "sort"

// AnalyticsRow is one row of the "top partners" quick-analytics answer.
type AnalyticsRow struct {
	PartnerID     string  `json:"partner_id"`
	FirstName     string  `json:"first_name"`
	LastName      string  `json:"last_name"`
	Country       string  `json:"country"`
	TotalEarnings float64 `json:"total_earnings"`
	PartnerTier   string  `json:"partner_tier"`
}

// TopEarningRows returns the n highest-earning partner-month rows. The
// quick-analytics query works on raw rows, not lifetime aggregates, so a
// partner with two strong months can appear twice.
func (s *Snapshot) TopEarningRows(n int) []AnalyticsRow {
	idx := make([]int, len(s.rows))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return s.rows[idx[a]].TotalEarnings > s.rows[idx[b]].TotalEarnings
	})
	if len(idx) > n {
		idx = idx[:n]
	}

	out := make([]AnalyticsRow, 0, len(idx))
	for _, i := range idx {
		r := &s.rows[i]
		out = append(out, AnalyticsRow{
			PartnerID:     r.PartnerID,
			FirstName:     r.FirstName,
			LastName:      r.LastName,
			Country:       r.Country,
			TotalEarnings: r.TotalEarnings,
			PartnerTier:   string(r.Tier),
		})
	}
	return out
}

// EarningsByCountry sums row-level earnings per country.
func (s *Snapshot) EarningsByCountry() map[string]float64 {
	out := make(map[string]float64)
	for i := range s.rows {
		out[s.rows[i].Country] += s.rows[i].TotalEarnings
	}
	return out
}

// TierCounts counts partner-month rows per tier.
func (s *Snapshot) TierCounts() map[string]int {
	out := make(map[string]int)
	for i := range s.rows {
		out[string(s.rows[i].Tier)]++
	}
	return out
}
