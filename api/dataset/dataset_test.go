package dataset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manaskarra/pdash/internal/derive"
)

func month(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func row(id, country string, mo time.Time, tier derive.Tier, earnings, revenue float64) MonthlyMetric {
	return MonthlyMetric{
		PartnerID:        id,
		Month:            mo,
		FirstName:        "Partner",
		LastName:         id,
		Username:         "p" + id,
		Country:          country,
		Region:           "Test Region",
		Tier:             tier,
		JoinedDate:       time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC),
		TotalEarnings:    earnings,
		CompanyRevenue:   revenue,
		TotalDeposits:    earnings * 10,
		VolumeUSD:        earnings * 100,
		ActiveClients:    5,
		NewActiveClients: 2,
	}
}

func testSnapshot(t *testing.T) *Snapshot {
	t.Helper()
	jun, jul := month(2025, time.June), month(2025, time.July)
	return NewSnapshot([]MonthlyMetric{
		row("1", "Malaysia", jun, derive.TierGold, 1000, 4000),
		row("1", "Malaysia", jul, derive.TierPlatinum, 2000, 8000),
		row("2", "Malaysia", jun, derive.TierBronze, 100, 500),
		row("2", "Malaysia", jul, derive.TierSilver, 200, 700),
		row("3", "Vietnam", jun, derive.TierSilver, 500, 1000),
		row("3", "Vietnam", jul, derive.TierSilver, 300, 900),
		row("4", "Vietnam", jun, derive.TierBronze, 0, 0),
		row("4", "Vietnam", jul, derive.TierBronze, 0, 0),
	})
}

func TestNewSnapshotReclassifiesZeroEarners(t *testing.T) {
	s := testSnapshot(t)

	var p4 *PartnerAggregate
	for i := range s.aggregates {
		if s.aggregates[i].PartnerID == "4" {
			p4 = &s.aggregates[i]
		}
	}
	require.NotNil(t, p4)
	assert.Equal(t, derive.TierInactive, p4.Tier, "zero lifetime earnings should force Inactive")
	assert.False(t, p4.Active())

	// Reclassification rewrites history, not just the aggregate.
	for _, r := range s.byPartner["4"] {
		assert.Equal(t, derive.TierInactive, r.Tier)
	}
}

func TestAggregatesUseLatestStaticsAndSums(t *testing.T) {
	s := testSnapshot(t)

	var p1 *PartnerAggregate
	for i := range s.aggregates {
		if s.aggregates[i].PartnerID == "1" {
			p1 = &s.aggregates[i]
		}
	}
	require.NotNil(t, p1)
	assert.Equal(t, derive.TierPlatinum, p1.Tier, "tier is the latest month's")
	assert.Equal(t, 3000.0, p1.TotalEarnings)
	assert.Equal(t, 12000.0, p1.CompanyRevenue)
	assert.Equal(t, 2, p1.MonthsCount)
	assert.Equal(t, 1500.0, p1.AvgMonthlyEarnings)
	assert.Equal(t, 200000.0, p1.VolumeLatest, "volume is latest month, not lifetime")
	assert.Equal(t, 4, p1.NewClientsSum)
	assert.Equal(t, 2, p1.NewClientsLatest)
}

func TestOverviewExcludesInactiveFromTotals(t *testing.T) {
	s := testSnapshot(t)
	ov := s.Overview()

	assert.Equal(t, 3, ov.ActivePartners)
	assert.Equal(t, 4, ov.TotalPartners)
	// 3000 + 300 + 800 lifetime earnings across active partners.
	assert.Equal(t, 4100.0, ov.TotalRevenue)
	assert.Equal(t, 15, ov.TotalActiveClients, "latest active clients of 3 active partners")
	assert.Equal(t, 12, ov.TotalNewClients, "summed new clients of active partners")
	assert.InDelta(t, 4100.0/3, ov.AvgEarningsPerPartner, 1e-9)

	assert.Equal(t, map[string]int{"Malaysia": 2, "Vietnam": 1}, ov.TopCountries)
	assert.Equal(t, 1, ov.TierDistribution["Inactive"], "inactive stays visible in the distribution")
}

func TestFilterOptionsOrdering(t *testing.T) {
	s := testSnapshot(t)
	opts := s.FilterOptions()

	assert.Equal(t, []string{"Malaysia", "Vietnam"}, opts.Countries)
	assert.Equal(t, []string{"Platinum", "Gold", "Silver", "Bronze", "Inactive"}, opts.Tiers,
		"historical tiers count: options scan every month, not just the latest")
	assert.Equal(t, []string{"2025-06", "2025-07"}, opts.Months)
}

func TestPartnersTierFilterUsesCurrentTier(t *testing.T) {
	s := testSnapshot(t)

	// Partner 2 was Bronze in June but Silver now; the Bronze filter must
	// not resurrect the historical tier.
	res := s.Partners(PartnersQuery{Tier: "Bronze"})
	assert.Equal(t, 0, res.TotalCount)

	res = s.Partners(PartnersQuery{Tier: "Silver"})
	require.Equal(t, 2, res.TotalCount)
	for _, p := range res.Partners {
		assert.Equal(t, "Silver", p.PartnerTier)
	}
}

func TestPartnersSortAndPagination(t *testing.T) {
	s := testSnapshot(t)

	res := s.Partners(PartnersQuery{SortBy: "total_earnings", SortOrder: "desc", Limit: 2})
	require.Len(t, res.Partners, 2)
	assert.Equal(t, "1", res.Partners[0].PartnerID)
	assert.Equal(t, "3", res.Partners[1].PartnerID)
	assert.Equal(t, 4, res.TotalCount)
	assert.True(t, res.HasMore)

	res = s.Partners(PartnersQuery{SortBy: "total_earnings", SortOrder: "desc", Limit: 2, Offset: 2})
	require.Len(t, res.Partners, 2)
	assert.Equal(t, "2", res.Partners[0].PartnerID)
	assert.False(t, res.HasMore)

	// Offset past the end yields an empty page, not an error.
	res = s.Partners(PartnersQuery{Limit: 2, Offset: 10})
	assert.Empty(t, res.Partners)
	assert.Equal(t, 4, res.TotalCount)
}

func TestPartnersEtRBuckets(t *testing.T) {
	jul := month(2025, time.July)
	s := NewSnapshot([]MonthlyMetric{
		row("hi", "X", jul, derive.TierGold, 500, 1000),       // 50% -> high
		row("fair", "X", jul, derive.TierGold, 350, 1000),     // 35% -> fair
		row("crit", "X", jul, derive.TierGold, 50, 1000),      // 5% -> critically-low
		row("dl", "X", jul, derive.TierGold, 100, -200),       // company lost money
		row("unprof", "X", jul, derive.TierGold, 1500, 1000),  // earnings exceed revenue
	})

	cases := []struct {
		filter string
		want   []string
	}{
		{derive.ClassHigh, []string{"hi"}},
		{derive.ClassFair, []string{"fair"}},
		{derive.ClassCriticallyLow, []string{"crit"}},
		{derive.ClassDoubleLoss, []string{"dl"}},
		{derive.ClassUnprofitable, []string{"unprof"}},
	}
	for _, tc := range cases {
		t.Run(tc.filter, func(t *testing.T) {
			res := s.Partners(PartnersQuery{EtRFilter: tc.filter})
			got := make([]string, 0, len(res.Partners))
			for _, p := range res.Partners {
				got = append(got, p.PartnerID)
			}
			assert.ElementsMatch(t, tc.want, got)
		})
	}

	// Custom range uses the sort key, so loss partners sit below zero.
	lo, hi := -1000.0, 0.0
	res := s.Partners(PartnersQuery{EtRFilter: "custom", EtRMin: &lo, EtRMax: &hi})
	got := make([]string, 0, len(res.Partners))
	for _, p := range res.Partners {
		got = append(got, p.PartnerID)
	}
	assert.ElementsMatch(t, []string{"dl", "unprof"}, got)
}

func TestPartnersEtRSortPushesLossesDown(t *testing.T) {
	jul := month(2025, time.July)
	s := NewSnapshot([]MonthlyMetric{
		row("a", "X", jul, derive.TierGold, 500, 1000),
		row("b", "X", jul, derive.TierGold, 1500, 1000),
		row("c", "X", jul, derive.TierGold, 50, 1000),
	})

	res := s.Partners(PartnersQuery{SortBy: "etr_ratio", SortOrder: "desc"})
	require.Len(t, res.Partners, 3)
	assert.Equal(t, "a", res.Partners[0].PartnerID)
	assert.Equal(t, "c", res.Partners[1].PartnerID)
	assert.Equal(t, "b", res.Partners[2].PartnerID, "unprofitable partner ranks last despite 150% ratio")
}

func TestPartnerDetail(t *testing.T) {
	s := testSnapshot(t)

	d, ok := s.PartnerDetail("1")
	require.True(t, ok)

	assert.Equal(t, "Platinum", d.PartnerInfo.PartnerTier)
	assert.Equal(t, 3000.0, d.PartnerInfo.TotalEarnings)
	assert.Equal(t, 5, d.PartnerInfo.TotalActiveClients, "latest month, not a sum")
	assert.Equal(t, 4, d.PartnerInfo.TotalNewClients)
	assert.Equal(t, 2, d.PartnerInfo.MonthsCount)
	assert.Equal(t, 1500.0, d.PartnerInfo.AvgMonthlyEarnings)

	assert.Equal(t, "2025-07-01", d.CurrentMonth.Month)
	assert.Equal(t, 2000.0, d.CurrentMonth.TotalEarnings)

	require.Len(t, d.MonthlyPerformance, 2)
	assert.Equal(t, "2025-07-01", d.MonthlyPerformance[0].Month, "latest first")
	assert.Equal(t, "Gold", d.MonthlyPerformance[1].PartnerTier, "history keeps the tier held that month")

	_, ok = s.PartnerDetail("missing")
	assert.False(t, ok)
}

func TestTierAnalyticsSharesPinInactiveToZero(t *testing.T) {
	s := testSnapshot(t)
	ta := s.TierAnalytics()

	byTier := make(map[string]TierSummaryEntry)
	for _, e := range ta.TierSummary {
		byTier[e.Tier] = e
	}

	inactive, ok := byTier["Inactive"]
	require.True(t, ok)
	assert.Zero(t, inactive.EarningsPercentage)
	assert.Zero(t, inactive.PartnerPercentage)
	assert.Equal(t, 1, inactive.PartnerCount)

	var activeShare float64
	for tier, e := range byTier {
		if tier != "Inactive" {
			activeShare += e.EarningsPercentage
		}
	}
	assert.InDelta(t, 100.0, activeShare, 1e-9)

	assert.Equal(t, 4, ta.Totals.TotalPartners)
	assert.Equal(t, 4100.0, ta.Totals.TotalEarnings)
}

func TestTierAnalyticsMonthlyChartsSkipNonEarners(t *testing.T) {
	s := testSnapshot(t)
	ta := s.TierAnalytics()

	series := ta.MonthlyCharts["total_earnings"]
	require.Len(t, series, 2)
	assert.Equal(t, "2025-06", series[0].Month)
	// Partner 4 earned nothing, so the inactive bucket stays empty.
	assert.Zero(t, series[0].Inactive)
	// Partner 1 is Platinum now; its June earnings attribute to Platinum.
	assert.Equal(t, 1000.0, series[0].Platinum)
	assert.Equal(t, 2000.0, series[1].Platinum)
}

func TestDenseRank(t *testing.T) {
	values := map[string]float64{"a": 100, "b": 100, "c": 50, "d": 10}
	assert.Equal(t, 1, denseRank(values, "a"))
	assert.Equal(t, 1, denseRank(values, "b"), "ties share a rank")
	assert.Equal(t, 2, denseRank(values, "c"), "dense: no gap after ties")
	assert.Equal(t, 3, denseRank(values, "d"))
	assert.Equal(t, 1, denseRank(values, "missing"))
}

func TestCountryTierAnalyticsFastMode(t *testing.T) {
	s := testSnapshot(t)
	cta := s.CountryTierAnalytics("Malaysia", false)

	assert.False(t, cta.Empty)
	assert.Equal(t, "Malaysia", cta.Summary.PartnerCountry)
	assert.Equal(t, 2, cta.Summary.TotalPartners)
	assert.Equal(t, 1, cta.Summary.EarningsRank, "fast mode pins every rank to 1")
	assert.Empty(t, cta.TierCountryRankings)
	assert.Equal(t, []string{"Jul 2025", "Jun 2025"}, cta.AvailableMonths)

	jul := cta.MonthlyTierData["Jul 2025"]
	require.NotNil(t, jul)
	require.Contains(t, jul, "Platinum")
	assert.Equal(t, 2000.0, jul["Platinum"].Earnings)
	assert.Zero(t, jul["Platinum"].EarningsRank, "no ranks in fast mode")
}

func TestCountryTierAnalyticsRankings(t *testing.T) {
	s := testSnapshot(t)
	cta := s.CountryTierAnalytics("Malaysia", true)

	// Malaysia: 3200 lifetime earnings vs Vietnam: 800.
	assert.Equal(t, 1, cta.Summary.EarningsRank)
	assert.Equal(t, 1, cta.Summary.PartnersRank, "both countries have two partners, tied at rank 1")

	vn := s.CountryTierAnalytics("Vietnam", true)
	assert.Equal(t, 2, vn.Summary.EarningsRank)

	jul, ok := cta.MonthlyRankings["Jul 2025"]
	require.True(t, ok)
	assert.Equal(t, 1, jul.EarningsRank)

	// Global totals follow the overview methodology: active partners only.
	assert.Equal(t, 3, cta.GlobalTotals.TotalActivePartners)
	assert.Equal(t, 4100.0, cta.GlobalTotals.TotalPartnerEarnings)
	assert.Equal(t, cta.GlobalTotals.TotalPartnerEarnings, cta.GlobalTotals.TotalCompanyRevenue)
}

func TestCountryTierAnalyticsUnknownCountry(t *testing.T) {
	s := testSnapshot(t)
	cta := s.CountryTierAnalytics("Atlantis", true)
	assert.True(t, cta.Empty)
	assert.Empty(t, cta.MonthlyTierData)
}

func TestTierPerformance(t *testing.T) {
	s := testSnapshot(t)

	rows := s.TierPerformance("Vietnam", "", derive.TierSilver)
	require.Len(t, rows, 2)
	assert.Equal(t, "Jul 2025", rows[0].Month, "latest first")
	assert.Equal(t, 300.0, rows[0].TotalEarnings)
	assert.InDelta(t, 33.33, rows[0].EtRRatio, 0.01)

	// Vietnam's Silver partner out-earned Malaysia's in July (300 vs 200),
	// so Vietnam ranks first on earnings.
	assert.Equal(t, 1, rows[0].EarningsRank)

	none := s.TierPerformance("Vietnam", "", derive.TierPlatinum)
	assert.Empty(t, none)
}

func TestTierProgressionScoresMovements(t *testing.T) {
	s := testSnapshot(t)
	tp := s.TierProgression(ProgressionQuery{Country: "Malaysia"})

	// Partner 1: Gold -> Platinum (+5); partner 2: Bronze -> Silver (+1).
	require.Len(t, tp.MonthlyProgression, 1)
	mp := tp.MonthlyProgression[0]
	assert.Equal(t, "Jul 2025", mp.Month)
	assert.Equal(t, 2, mp.PositiveMovements)
	assert.Equal(t, 6, mp.PositiveScore)
	assert.Zero(t, mp.NegativeMovements)
	assert.Equal(t, 6, mp.WeightedNetMovement)
	assert.Nil(t, mp.CountryBreakdowns, "breakdowns are global-only")

	assert.Equal(t, 6, tp.Summary.TotalPositiveScore)
	assert.Equal(t, 1, tp.Summary.TotalMonths)
	assert.InDelta(t, 6.0, tp.Summary.AvgMonthlyNetMovement, 1e-9)
}

func TestTierProgressionGlobalBreakdowns(t *testing.T) {
	s := testSnapshot(t)
	tp := s.TierProgression(ProgressionQuery{Global: true})

	require.Len(t, tp.MonthlyProgression, 1)
	mp := tp.MonthlyProgression[0]
	require.NotNil(t, mp.CountryBreakdowns)

	// Vietnam's only transitions are Silver->Silver and the reclassified
	// Inactive->Inactive, both score zero.
	require.Len(t, mp.CountryBreakdowns.Positive, 1)
	pos := mp.CountryBreakdowns.Positive[0]
	assert.Equal(t, 1, pos.Rank)
	assert.Equal(t, "Malaysia", pos.Country)
	assert.Equal(t, 6, pos.Score)
	assert.Equal(t, 2, pos.PartnersWithMovement)
	assert.Empty(t, mp.CountryBreakdowns.Negative)

	require.Contains(t, mp.TierTransitions, "Gold -> Platinum")
	assert.Equal(t, 5, mp.TierTransitions["Gold -> Platinum"].TotalScore)
}

func TestTierProgressionTierFilters(t *testing.T) {
	s := testSnapshot(t)

	tp := s.TierProgression(ProgressionQuery{Country: "Malaysia", FromTier: "Gold"})
	require.Len(t, tp.MonthlyProgression, 1)
	assert.Equal(t, 5, tp.MonthlyProgression[0].PositiveScore)

	tp = s.TierProgression(ProgressionQuery{Country: "Malaysia", FromTier: "All Tiers"})
	assert.Equal(t, 6, tp.MonthlyProgression[0].PositiveScore, "All Tiers means no filter")
}

func TestMovementDetails(t *testing.T) {
	s := testSnapshot(t)
	jul := month(2025, time.July)

	md := s.MovementDetails(ProgressionQuery{Country: "Malaysia"}, jul, "positive")
	require.Len(t, md.Movements, 2)
	assert.Equal(t, "1", md.Movements[0].PartnerID, "biggest jump first")
	assert.Equal(t, 5, md.Movements[0].MovementScore)
	assert.Equal(t, 6, md.Summary.TotalScore)
	assert.Equal(t, "Jul 2025", md.Summary.Month)

	md = s.MovementDetails(ProgressionQuery{Country: "Malaysia"}, jul, "negative")
	assert.Empty(t, md.Movements)
}

func TestGlobalProgressionCountries(t *testing.T) {
	s := testSnapshot(t)

	got, err := s.GlobalProgressionCountries(month(2025, time.July), "positive", "", "")
	require.NoError(t, err)
	require.Equal(t, 1, got.TotalCountries)
	assert.Equal(t, "Malaysia", got.Countries[0].Country)
	assert.Equal(t, 6, got.Countries[0].Score)

	_, err = s.GlobalProgressionCountries(month(2025, time.June), "positive", "", "")
	assert.Error(t, err, "first month has nothing to diff against")

	_, err = s.GlobalProgressionCountries(month(2024, time.January), "positive", "", "")
	assert.Error(t, err)
}

func TestTierDetail(t *testing.T) {
	s := testSnapshot(t)

	rows := s.TierDetail("", "", "", "")
	require.NotEmpty(t, rows)
	// Newest month first.
	assert.Equal(t, "Jul 2025", rows[0].Month)

	// Tier comes from the month's earnings, not the recorded column:
	// partner 1's 2000 July month is a Gold month.
	julSilver := s.TierDetail("", "", derive.TierSilver, "2025-07")
	require.Len(t, julSilver, 2)
	assert.Equal(t, 300.0, julSilver[0].TotalEarnings)
	assert.Equal(t, 1, julSilver[0].EarningsRank)
	assert.Equal(t, 200.0, julSilver[1].TotalEarnings)
	assert.Equal(t, 2, julSilver[1].EarningsRank)
	assert.InDelta(t, 33.33, julSilver[0].EtRRatio, 0.01)
	// Deposits are 10x earnings in the fixture, so EtD is a flat 10%.
	assert.InDelta(t, 10.0, julSilver[0].EtDRatio, 0.01)
}

func TestTierDetailScopeAndMonthFilter(t *testing.T) {
	s := testSnapshot(t)

	// Country scope excludes Vietnam's partners entirely.
	malaysia := s.TierDetail("Malaysia", "", "", "")
	for _, r := range malaysia {
		assert.NotEqual(t, 500.0, r.TotalEarnings)
		assert.NotEqual(t, 300.0, r.TotalEarnings)
	}

	// A malformed month filter is ignored rather than failing.
	all := s.TierDetail("", "", "", "not-a-month")
	assert.Len(t, all, len(s.TierDetail("", "", "", "")))

	// Unknown scope yields an empty, non-nil slice.
	assert.Empty(t, s.TierDetail("Atlantis", "", "", ""))
	assert.NotNil(t, s.TierDetail("Atlantis", "", "", ""))
}
