// Package dataset holds an immutable in-memory snapshot of the monthly
// partner metrics and the aggregations the API serves from it. The
// snapshot is loaded from Postgres and refreshed in the background; every
// request computes against a consistent copy, so a mid-refresh request
// never sees half-updated numbers.
package dataset

import (
	"sort"
	"time"

	"github.com/manaskarra/pdash/internal/derive"
)

// monthLabel is the display format used for month keys across the API,
// e.g. "Jul 2025".
const monthLabel = "Jan 2006"

// MonthlyMetric is one partner-month row, the grain of the source data.
type MonthlyMetric struct {
	PartnerID        string
	Month            time.Time
	FirstName        string
	LastName         string
	Username         string
	Country          string
	Region           string
	Tier             derive.Tier
	IsAppDev         bool
	JoinedDate       time.Time
	TotalEarnings    float64
	CompanyRevenue   float64
	TotalDeposits    float64
	VolumeUSD        float64
	ActiveClients    int
	NewActiveClients int
}

// PartnerAggregate is one partner collapsed across months. Financials are
// lifetime sums; client counts and volume keep both the latest-month value
// (what the list shows) and the lifetime sum (what the overview needs).
type PartnerAggregate struct {
	PartnerID          string
	FirstName          string
	LastName           string
	Username           string
	Country            string
	Region             string
	Tier               derive.Tier
	IsAppDev           bool
	JoinedDate         time.Time
	TotalEarnings      float64
	CompanyRevenue     float64
	TotalDeposits      float64
	VolumeLatest       float64
	ActiveClients      int
	NewClientsLatest   int
	NewClientsSum      int
	MonthsCount        int
	AvgMonthlyEarnings float64
}

// Active reports whether the partner counts toward overview totals.
func (p *PartnerAggregate) Active() bool {
	return p.Tier != derive.TierInactive
}

// Snapshot is an immutable view over the loaded monthly metrics.
type Snapshot struct {
	rows       []MonthlyMetric
	byPartner  map[string][]MonthlyMetric // month ascending per partner
	aggregates []PartnerAggregate
	months     []time.Time // distinct, ascending
}

// NewSnapshot indexes the given rows. Partners whose lifetime earnings sum
// to zero are reclassified as Inactive across all their months, matching
// how the overview and list endpoints count "active" partners.
func NewSnapshot(rows []MonthlyMetric) *Snapshot {
	s := &Snapshot{
		rows:      make([]MonthlyMetric, len(rows)),
		byPartner: make(map[string][]MonthlyMetric),
	}
	copy(s.rows, rows)

	sort.SliceStable(s.rows, func(i, j int) bool {
		if s.rows[i].PartnerID != s.rows[j].PartnerID {
			return s.rows[i].PartnerID < s.rows[j].PartnerID
		}
		return s.rows[i].Month.Before(s.rows[j].Month)
	})

	lifetime := make(map[string]float64)
	for _, r := range s.rows {
		lifetime[r.PartnerID] += r.TotalEarnings
	}
	for i := range s.rows {
		if lifetime[s.rows[i].PartnerID] == 0 {
			s.rows[i].Tier = derive.TierInactive
		}
	}

	monthSet := make(map[time.Time]struct{})
	for i := range s.rows {
		r := &s.rows[i]
		s.byPartner[r.PartnerID] = append(s.byPartner[r.PartnerID], *r)
		monthSet[r.Month] = struct{}{}
	}
	for m := range monthSet {
		s.months = append(s.months, m)
	}
	sort.Slice(s.months, func(i, j int) bool { return s.months[i].Before(s.months[j]) })

	s.aggregates = s.buildAggregates()
	return s
}

// Empty reports whether the snapshot holds no data at all.
func (s *Snapshot) Empty() bool {
	return len(s.rows) == 0
}

// Rows returns the number of partner-month rows loaded.
func (s *Snapshot) Rows() int {
	return len(s.rows)
}

// Months returns the distinct months present, ascending.
func (s *Snapshot) Months() []time.Time {
	return s.months
}

// Aggregates returns one entry per partner. The returned slice is shared;
// callers must not mutate it.
func (s *Snapshot) Aggregates() []PartnerAggregate {
	return s.aggregates
}

func (s *Snapshot) buildAggregates() []PartnerAggregate {
	ids := make([]string, 0, len(s.byPartner))
	for id := range s.byPartner {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]PartnerAggregate, 0, len(ids))
	for _, id := range ids {
		months := s.byPartner[id]
		latest := months[len(months)-1]

		agg := PartnerAggregate{
			PartnerID:        id,
			FirstName:        latest.FirstName,
			LastName:         latest.LastName,
			Username:         latest.Username,
			Country:          latest.Country,
			Region:           latest.Region,
			Tier:             latest.Tier,
			IsAppDev:         latest.IsAppDev,
			JoinedDate:       latest.JoinedDate,
			VolumeLatest:     latest.VolumeUSD,
			ActiveClients:    latest.ActiveClients,
			NewClientsLatest: latest.NewActiveClients,
			MonthsCount:      len(months),
		}
		for _, m := range months {
			agg.TotalEarnings += m.TotalEarnings
			agg.CompanyRevenue += m.CompanyRevenue
			agg.TotalDeposits += m.TotalDeposits
			agg.NewClientsSum += m.NewActiveClients
		}
		agg.AvgMonthlyEarnings = agg.TotalEarnings / float64(len(months))
		out = append(out, agg)
	}
	return out
}

// partnerMonths returns the rows for one partner, month ascending, or nil.
func (s *Snapshot) partnerMonths(id string) []MonthlyMetric {
	return s.byPartner[id]
}
