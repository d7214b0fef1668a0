package dataset

import (
	"fmt"
	"sort"
	"time"

	"github.com/manaskarra/pdash/internal/derive"
)

// PartnerMovement is one partner's tier change between two consecutive
// data months.
type PartnerMovement struct {
	PartnerID     string `json:"partner_id"`
	FromTier      string `json:"from_tier"`
	ToTier        string `json:"to_tier"`
	MovementScore int    `json:"movement_score"`
}

// TransitionSummary rolls up every occurrence of one from->to transition
// within a month, for client-side filtering on the global view.
type TransitionSummary struct {
	Count      int    `json:"count"`
	TotalScore int    `json:"total_score"`
	FromTier   string `json:"from_tier"`
	ToTier     string `json:"to_tier"`
}

// CountryMovementRank is a country's position in a month's movement
// leaderboard. Score covers only the requested direction; NetMovement and
// PartnersWithMovement count both directions.
type CountryMovementRank struct {
	Rank                 int    `json:"rank"`
	Country              string `json:"country"`
	PartnersWithMovement int    `json:"partners_with_movement"`
	NetMovement          int    `json:"net_movement"`
	Score                int    `json:"score"`
}

// CountryBreakdowns splits a month's leaderboard into promotions and
// demotions.
type CountryBreakdowns struct {
	Positive []CountryMovementRank `json:"positive"`
	Negative []CountryMovementRank `json:"negative"`
}

// MonthProgression is one month of tier movement activity.
type MonthProgression struct {
	Month                     string                        `json:"month"`
	PositiveMovements         int                           `json:"positive_movements"`
	NegativeMovements         int                           `json:"negative_movements"`
	PositiveScore             int                           `json:"positive_score"`
	NegativeScore             int                           `json:"negative_score"`
	WeightedNetMovement       int                           `json:"weighted_net_movement"`
	TotalPartnersWithMovement int                           `json:"total_partners_with_movement"`
	TierTransitions           map[string]*TransitionSummary `json:"tier_transitions,omitempty"`
	CountryBreakdowns         *CountryBreakdowns            `json:"country_breakdowns,omitempty"`
}

// ProgressionSummary totals the whole window.
type ProgressionSummary struct {
	TotalPositiveScore    int     `json:"total_positive_score"`
	TotalNegativeScore    int     `json:"total_negative_score"`
	WeightedNetMovement   int     `json:"weighted_net_movement"`
	TotalMonths           int     `json:"total_months"`
	AvgMonthlyNetMovement float64 `json:"avg_monthly_net_movement"`
}

// TierProgression is the /api/partner-tier-progression payload.
type TierProgression struct {
	MonthlyProgression []MonthProgression `json:"monthly_progression"`
	Summary            ProgressionSummary `json:"summary"`
}

// ProgressionQuery scopes a progression request. Global ignores Country and
// Region and adds per-country breakdowns to every month.
type ProgressionQuery struct {
	Country  string
	Region   string
	FromTier string
	ToTier   string
	Global   bool
}

// tierFilterMatch treats empty and "All Tiers" as no filter.
func tierFilterMatch(filter string, tier derive.Tier) bool {
	return filter == "" || filter == "All Tiers" || string(tier) == filter
}

// movement is a scored transition between two consecutive rows of one
// partner, attributed to the later month.
type movement struct {
	month     time.Time
	partnerID string
	country   string
	from      derive.Tier
	to        derive.Tier
	score     int
}

// movements walks each partner's month sequence in scope and emits every
// consecutive transition, scored or not. Gaps in a partner's history still
// pair the surrounding rows, matching how the dashboard has always counted.
func (s *Snapshot) movements(inScope func(*MonthlyMetric) bool) []movement {
	var out []movement
	for _, id := range s.partnerIDs() {
		months := s.byPartner[id]
		for i := 1; i < len(months); i++ {
			cur, prev := &months[i], &months[i-1]
			if !inScope(cur) {
				continue
			}
			out = append(out, movement{
				month:     cur.Month,
				partnerID: id,
				country:   cur.Country,
				from:      prev.Tier,
				to:        cur.Tier,
				score:     derive.MovementScore(prev.Tier, cur.Tier),
			})
		}
	}
	return out
}

func (s *Snapshot) partnerIDs() []string {
	ids := make([]string, 0, len(s.byPartner))
	for id := range s.byPartner {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (q ProgressionQuery) scope() func(*MonthlyMetric) bool {
	switch {
	case q.Global:
		return func(*MonthlyMetric) bool { return true }
	case q.Country != "":
		return func(r *MonthlyMetric) bool { return r.Country == q.Country }
	default:
		return func(r *MonthlyMetric) bool { return r.Region == q.Region }
	}
}

// TierProgression tracks month-over-month tier movements across the scoped
// partner base, weighted by how far each transition jumps.
func (s *Snapshot) TierProgression(q ProgressionQuery) TierProgression {
	type monthAcc struct {
		posMoves, negMoves   int
		posScore, negScore   int
		partnersWithMovement int
		transitions          map[string]*TransitionSummary
		posCountries         map[string]*CountryMovementRank
		negCountries         map[string]*CountryMovementRank
		netByCountry         map[string]int
		movesByCountry       map[string]int
	}
	byMonth := make(map[time.Time]*monthAcc)

	for _, mv := range s.movements(q.scope()) {
		if !tierFilterMatch(q.FromTier, mv.from) || !tierFilterMatch(q.ToTier, mv.to) {
			continue
		}
		acc := byMonth[mv.month]
		if acc == nil {
			acc = &monthAcc{}
			if q.Global {
				acc.transitions = make(map[string]*TransitionSummary)
				acc.posCountries = make(map[string]*CountryMovementRank)
				acc.negCountries = make(map[string]*CountryMovementRank)
				acc.netByCountry = make(map[string]int)
				acc.movesByCountry = make(map[string]int)
			}
			byMonth[mv.month] = acc
		}
		if mv.score == 0 {
			continue
		}
		acc.partnersWithMovement++
		if q.Global {
			key := fmt.Sprintf("%s -> %s", mv.from, mv.to)
			ts := acc.transitions[key]
			if ts == nil {
				ts = &TransitionSummary{FromTier: string(mv.from), ToTier: string(mv.to)}
				acc.transitions[key] = ts
			}
			ts.Count++
			ts.TotalScore += mv.score
			acc.netByCountry[mv.country] += mv.score
			acc.movesByCountry[mv.country]++
		}
		if mv.score > 0 {
			acc.posMoves++
			acc.posScore += mv.score
			if q.Global {
				cr := acc.posCountries[mv.country]
				if cr == nil {
					cr = &CountryMovementRank{Country: mv.country}
					acc.posCountries[mv.country] = cr
				}
				cr.Score += mv.score
			}
		} else {
			acc.negMoves++
			acc.negScore += mv.score
			if q.Global {
				cr := acc.negCountries[mv.country]
				if cr == nil {
					cr = &CountryMovementRank{Country: mv.country}
					acc.negCountries[mv.country] = cr
				}
				cr.Score += mv.score
			}
		}
	}

	out := TierProgression{MonthlyProgression: []MonthProgression{}}
	for i := len(s.months) - 1; i >= 0; i-- {
		m := s.months[i]
		acc := byMonth[m]
		if acc == nil {
			continue
		}
		mp := MonthProgression{
			Month:                     m.Format(monthLabel),
			PositiveMovements:         acc.posMoves,
			NegativeMovements:         acc.negMoves,
			PositiveScore:             acc.posScore,
			NegativeScore:             acc.negScore,
			WeightedNetMovement:       acc.posScore + acc.negScore,
			TotalPartnersWithMovement: acc.partnersWithMovement,
		}
		if q.Global {
			mp.TierTransitions = acc.transitions
			mp.CountryBreakdowns = &CountryBreakdowns{
				Positive: rankMovementCountries(acc.posCountries, acc.netByCountry, acc.movesByCountry, false),
				Negative: rankMovementCountries(acc.negCountries, acc.netByCountry, acc.movesByCountry, true),
			}
		}
		out.MonthlyProgression = append(out.MonthlyProgression, mp)
		out.Summary.TotalPositiveScore += acc.posScore
		out.Summary.TotalNegativeScore += acc.negScore
	}
	out.Summary.WeightedNetMovement = out.Summary.TotalPositiveScore + out.Summary.TotalNegativeScore
	out.Summary.TotalMonths = len(out.MonthlyProgression)
	if n := len(out.MonthlyProgression); n > 0 {
		out.Summary.AvgMonthlyNetMovement = float64(out.Summary.WeightedNetMovement) / float64(n)
	}
	return out
}

// rankMovementCountries orders one direction's leaderboard: promotions by
// score descending, demotions most negative first, country name breaking
// ties.
func rankMovementCountries(byCountry map[string]*CountryMovementRank, net, moves map[string]int, ascending bool) []CountryMovementRank {
	out := make([]CountryMovementRank, 0, len(byCountry))
	for country, cr := range byCountry {
		out = append(out, CountryMovementRank{
			Country:              country,
			PartnersWithMovement: moves[country],
			NetMovement:          net[country],
			Score:                cr.Score,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			if ascending {
				return out[i].Score < out[j].Score
			}
			return out[i].Score > out[j].Score
		}
		return out[i].Country < out[j].Country
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// MovementDetails is the drill-down for one month and direction.
type MovementDetails struct {
	Movements []PartnerMovement      `json:"movements"`
	Summary   MovementDetailsSummary `json:"summary"`
}

type MovementDetailsSummary struct {
	TotalMovements int    `json:"total_movements"`
	TotalScore     int    `json:"total_score"`
	MovementType   string `json:"movement_type"`
	Month          string `json:"month"`
}

// MovementDetails lists the individual partner transitions behind one
// month's positive or negative score.
func (s *Snapshot) MovementDetails(q ProgressionQuery, month time.Time, movementType string) MovementDetails {
	out := MovementDetails{
		Movements: []PartnerMovement{},
		Summary: MovementDetailsSummary{
			MovementType: movementType,
			Month:        month.Format(monthLabel),
		},
	}
	for _, mv := range s.movements(q.scope()) {
		if !mv.month.Equal(month) {
			continue
		}
		if !tierFilterMatch(q.FromTier, mv.from) || !tierFilterMatch(q.ToTier, mv.to) {
			continue
		}
		if movementType == "positive" && mv.score <= 0 {
			continue
		}
		if movementType == "negative" && mv.score >= 0 {
			continue
		}
		out.Movements = append(out.Movements, PartnerMovement{
			PartnerID:     mv.partnerID,
			FromTier:      string(mv.from),
			ToTier:        string(mv.to),
			MovementScore: mv.score,
		})
	}
	sort.SliceStable(out.Movements, func(i, j int) bool {
		if movementType == "negative" {
			return out.Movements[i].MovementScore < out.Movements[j].MovementScore
		}
		return out.Movements[i].MovementScore > out.Movements[j].MovementScore
	})
	for _, mv := range out.Movements {
		out.Summary.TotalScore += mv.MovementScore
	}
	out.Summary.TotalMovements = len(out.Movements)
	return out
}

// GlobalMovementCountries is the /api/global-tier-progression-countries
// payload.
type GlobalMovementCountries struct {
	Countries      []CountryMovementRank `json:"countries"`
	TotalCountries int                   `json:"total_countries"`
}

// GlobalProgressionCountries ranks countries by one direction's movement
// score for a single month. The month must exist in the data and have a
// predecessor to diff against.
func (s *Snapshot) GlobalProgressionCountries(month time.Time, movementType, fromTier, toTier string) (GlobalMovementCountries, error) {
	idx := -1
	for i, m := range s.months {
		if m.Equal(month) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return GlobalMovementCountries{}, fmt.Errorf("month %s not found in data", month.Format(monthLabel))
	}
	if idx == 0 {
		return GlobalMovementCountries{}, fmt.Errorf("no previous month data available for %s", month.Format(monthLabel))
	}

	scores := make(map[string]*CountryMovementRank)
	net := make(map[string]int)
	moves := make(map[string]int)
	for _, mv := range s.movements(func(*MonthlyMetric) bool { return true }) {
		if !mv.month.Equal(month) || mv.score == 0 {
			continue
		}
		if !tierFilterMatch(fromTier, mv.from) || !tierFilterMatch(toTier, mv.to) {
			continue
		}
		moves[mv.country]++
		net[mv.country] += mv.score
		if movementType == "positive" && mv.score <= 0 {
			continue
		}
		if movementType == "negative" && mv.score >= 0 {
			continue
		}
		cr := scores[mv.country]
		if cr == nil {
			cr = &CountryMovementRank{Country: mv.country}
			scores[mv.country] = cr
		}
		cr.Score += mv.score
	}

	ranked := rankMovementCountries(scores, net, moves, movementType == "negative")
	return GlobalMovementCountries{Countries: ranked, TotalCountries: len(ranked)}, nil
}
