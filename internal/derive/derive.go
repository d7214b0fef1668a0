// Package derive is the single home for the dashboard's derived metrics:
// earnings-to-revenue and earnings-to-deposit ratios, tier share
// percentages, tier movement scores and partner tenure badges. Every view
// that needs one of these goes through this package so the formulas cannot
// drift apart between panels.
package derive

import (
	"fmt"
	"math"
)

// Tier is a partner performance tier. Unknown values fall back to Inactive.
type Tier string

const (
	TierPlatinum Tier = "Platinum"
	TierGold     Tier = "Gold"
	TierSilver   Tier = "Silver"
	TierBronze   Tier = "Bronze"
	TierInactive Tier = "Inactive"
)

// TierOrder is the display hierarchy, best first.
var TierOrder = []Tier{TierPlatinum, TierGold, TierSilver, TierBronze, TierInactive}

// ParseTier maps a raw string to a Tier, treating anything unknown as
// Inactive so consumers always have a valid bucket.
func ParseTier(s string) Tier {
	switch Tier(s) {
	case TierPlatinum, TierGold, TierSilver, TierBronze, TierInactive:
		return Tier(s)
	default:
		return TierInactive
	}
}

// TierForEarnings assigns a tier from a single month's earnings.
func TierForEarnings(earnings float64) Tier {
	switch {
	case earnings >= 5000:
		return TierPlatinum
	case earnings >= 1000:
		return TierGold
	case earnings >= 100:
		return TierSilver
	case earnings > 0:
		return TierBronze
	default:
		return TierInactive
	}
}

// Ratio severity classes. The two loss classes override the numeric
// bucketing: DoubleLoss means the company itself lost money (negative
// revenue), Unprofitable means the partner earned more than a positive
// revenue.
const (
	ClassDoubleLoss    = "double-loss"
	ClassUnprofitable  = "unprofitable"
	ClassCriticallyLow = "critically-low"
	ClassVeryLow       = "very-low"
	ClassLow           = "low"
	ClassFair          = "fair"
	ClassHigh          = "high"
)

// RatioPercentage renders earnings/revenue as a display percentage.
//
// Zero or absent revenue yields "0.0%". The prefix encodes a three-way
// business rule: negative revenue gets "--" (the company lost money),
// earnings above a non-negative revenue gets "-" (unprofitable partner),
// and the profitable case has no prefix. The magnitude is always the
// absolute ratio, abbreviated with K/M/B past 1,000.
func RatioPercentage(earnings, revenue float64) string {
	if revenue == 0 {
		return "0.0%"
	}

	v := math.Abs(earnings / revenue * 100)
	prefix := ""
	switch {
	case revenue < 0:
		prefix = "--"
	case earnings > revenue:
		prefix = "-"
	}

	switch {
	case v >= 1_000_000_000:
		return fmt.Sprintf("%s%.1fB%%", prefix, v/1_000_000_000)
	case v >= 1_000_000:
		return fmt.Sprintf("%s%.1fM%%", prefix, v/1_000_000)
	case v >= 1_000:
		return fmt.Sprintf("%s%.1fK%%", prefix, v/1_000)
	default:
		return fmt.Sprintf("%s%.1f%%", prefix, v)
	}
}

// RatioColorClass buckets the unsigned earnings/revenue ratio into a named
// severity class. The loss cases win over the numeric buckets.
func RatioColorClass(earnings, revenue float64) string {
	if revenue < 0 {
		return ClassDoubleLoss
	}
	if revenue >= 0 && earnings > revenue {
		return ClassUnprofitable
	}

	var v float64
	if revenue != 0 {
		v = math.Abs(earnings / revenue * 100)
	}
	switch {
	case v < 10:
		return ClassCriticallyLow
	case v < 20:
		return ClassVeryLow
	case v < 30:
		return ClassLow
	case v <= 40:
		return ClassFair
	default:
		return ClassHigh
	}
}

// RatioSortKey is the value the partner list sorts by when ordering on the
// lifetime EtR ratio. Loss scenarios are forced negative so unprofitable
// partners sink below every profitable one regardless of magnitude.
func RatioSortKey(earnings, revenue float64) float64 {
	if revenue == 0 {
		return 0
	}
	ratio := earnings / revenue * 100
	if revenue < 0 || earnings > revenue {
		return -math.Abs(ratio)
	}
	return ratio
}

// SharePercentages converts per-tier totals into each tier's percentage of
// the cross-tier sum. An all-zero input yields all-zero percentages rather
// than NaN.
func SharePercentages(totals map[Tier]float64) map[Tier]float64 {
	var sum float64
	for _, v := range totals {
		sum += v
	}

	out := make(map[Tier]float64, len(totals))
	for tier, v := range totals {
		if sum == 0 {
			out[tier] = 0
			continue
		}
		out[tier] = v / sum * 100
	}
	return out
}

// movementScores assigns a weight to every month-over-month tier
// transition. Multi-step jumps are the sum of the single steps they skip;
// transitions in and out of Inactive carry an extra point since they
// represent (re)activation, not just a tier change.
var movementScores = map[[2]Tier]int{
	{TierBronze, TierSilver}:   1,
	{TierSilver, TierGold}:     2,
	{TierGold, TierPlatinum}:   5,
	{TierPlatinum, TierGold}:   -5,
	{TierGold, TierSilver}:     -2,
	{TierSilver, TierBronze}:   -1,
	{TierBronze, TierGold}:     3,
	{TierSilver, TierPlatinum}: 7,
	{TierBronze, TierPlatinum}: 8,
	{TierPlatinum, TierSilver}: -7,
	{TierGold, TierBronze}:     -3,
	{TierPlatinum, TierBronze}: -8,
	{TierInactive, TierBronze}:   1,
	{TierInactive, TierSilver}:   3,
	{TierInactive, TierGold}:     6,
	{TierInactive, TierPlatinum}: 11,
	{TierBronze, TierInactive}:   -1,
	{TierSilver, TierInactive}:   -3,
	{TierGold, TierInactive}:     -6,
	{TierPlatinum, TierInactive}: -11,
}

// MovementScore returns the weighted score for a tier transition. Same-tier
// and unknown transitions score zero.
func MovementScore(from, to Tier) int {
	return movementScores[[2]Tier{from, to}]
}

// AgeBadge describes a partner's tenure bucket for the detail view.
type AgeBadge struct {
	Badge     string `json:"partner_age_badge"`
	Milestone string `json:"partner_age_milestone"`
	Display   string `json:"partner_age_display"`
	Days      int    `json:"partner_age_days"`
}

// AgeBadgeForDays buckets a tenure in days into the badge milestones shown
// next to the partner name.
func AgeBadgeForDays(days int) AgeBadge {
	b := AgeBadge{Days: days}

	switch {
	case days >= 1825:
		b.Badge, b.Milestone = "age-5yr-plus", "5+ Years"
	case days >= 1460:
		b.Badge, b.Milestone = "age-4yr", "4+ Years"
	case days >= 1095:
		b.Badge, b.Milestone = "age-3yr", "3+ Years"
	case days >= 730:
		b.Badge, b.Milestone = "age-2yr", "2+ Years"
	case days >= 548:
		b.Badge, b.Milestone = "age-18mo", "18+ Months"
	case days >= 365:
		b.Badge, b.Milestone = "age-1yr", "1+ Year"
	case days >= 180:
		b.Badge, b.Milestone = "age-6mo", "6+ Months"
	case days >= 90:
		b.Badge, b.Milestone = "age-3mo", "3+ Months"
	case days >= 30:
		b.Badge, b.Milestone = "age-1mo", "1+ Month"
	default:
		b.Badge, b.Milestone = "new", "New Partner"
	}

	b.Display = ageDisplay(days)
	return b
}

func ageDisplay(days int) string {
	years := days / 365
	remaining := days % 365
	months := remaining / 30
	rem := remaining % 30

	plural := func(n int, unit string) string {
		if n == 1 {
			return fmt.Sprintf("%d %s", n, unit)
		}
		return fmt.Sprintf("%d %ss", n, unit)
	}

	switch {
	case years > 0 && months > 0:
		return plural(years, "year") + ", " + plural(months, "month")
	case years > 0:
		return plural(years, "year")
	case months > 0 && rem > 0:
		return plural(months, "month") + ", " + plural(rem, "day")
	case months > 0:
		return plural(months, "month")
	default:
		return plural(days, "day")
	}
}
