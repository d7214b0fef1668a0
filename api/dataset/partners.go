package dataset

import (
	"sort"
	"strings"

	"github.com/manaskarra/pdash/internal/derive"
)

// PartnersQuery is a parsed /api/partners request. Pointer fields are nil
// when the filter was not supplied; zero is a meaningful bound.
type PartnersQuery struct {
	PartnerIDs []string
	Country    string
	Region     string
	Tier       string
	IsAppDev   *bool

	ActiveClientsMin *int
	ActiveClientsMax *int
	NewClientsMin    *int
	NewClientsMax    *int

	EtRFilter string
	EtRMin    *float64
	EtRMax    *float64

	SortBy    string
	SortOrder string
	Limit     int
	Offset    int
}

// PartnerListRow is one partner in the list payload. Financials are
// lifetime sums; volume and new clients show the latest month so the row
// agrees with what the detail page opens to.
type PartnerListRow struct {
	PartnerID              string  `json:"partner_id"`
	FirstName              string  `json:"first_name"`
	LastName               string  `json:"last_name"`
	Username               string  `json:"username"`
	Country                string  `json:"country"`
	Region                 string  `json:"region"`
	PartnerTier            string  `json:"partner_tier"`
	IsAppDev               bool    `json:"is_app_dev"`
	JoinedDate             string  `json:"joined_date"`
	TotalEarnings          float64 `json:"total_earnings"`
	CompanyRevenue         float64 `json:"company_revenue"`
	TotalDeposits          float64 `json:"total_deposits"`
	VolumeUSD              float64 `json:"volume_usd"`
	ActiveClients          int     `json:"active_clients"`
	NewActiveClients       int     `json:"new_active_clients"`
	MonthsCount            int     `json:"months_count"`
	AvgMonthlyEarnings     float64 `json:"avg_monthly_earnings"`
	AvgPast3MonthsEarnings float64 `json:"avg_past_3_months_earnings"`
}

// PartnerList is a page of partners plus the total the filters matched.
type PartnerList struct {
	Partners   []PartnerListRow `json:"partners"`
	TotalCount int              `json:"total_count"`
	HasMore    bool             `json:"has_more"`
}

// Partners filters, sorts, and paginates the per-partner aggregates.
// Row-level filters (country, region, app-dev, explicit IDs) narrow which
// partners exist at all; the tier and numeric filters apply to the
// aggregated values, so a partner is matched on what the list would show.
func (s *Snapshot) Partners(q PartnersQuery) PartnerList {
	matched := make([]*PartnerAggregate, 0, len(s.aggregates))
	idSet := make(map[string]struct{}, len(q.PartnerIDs))
	for _, id := range q.PartnerIDs {
		if id = strings.TrimSpace(id); id != "" {
			idSet[id] = struct{}{}
		}
	}

	for i := range s.aggregates {
		p := &s.aggregates[i]
		if len(idSet) > 0 {
			if _, ok := idSet[p.PartnerID]; !ok {
				continue
			}
		}
		if q.Country != "" && p.Country != q.Country {
			continue
		}
		if q.Region != "" && p.Region != q.Region {
			continue
		}
		if q.IsAppDev != nil && p.IsAppDev != *q.IsAppDev {
			continue
		}
		if q.Tier != "" && string(p.Tier) != q.Tier {
			continue
		}
		if q.ActiveClientsMin != nil && p.ActiveClients < *q.ActiveClientsMin {
			continue
		}
		if q.ActiveClientsMax != nil && p.ActiveClients > *q.ActiveClientsMax {
			continue
		}
		if q.NewClientsMin != nil && p.NewClientsLatest < *q.NewClientsMin {
			continue
		}
		if q.NewClientsMax != nil && p.NewClientsLatest > *q.NewClientsMax {
			continue
		}
		if !matchesEtRFilter(p, q) {
			continue
		}
		matched = append(matched, p)
	}

	sortPartners(matched, q.SortBy, q.SortOrder)

	total := len(matched)
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := q.Offset
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	page := make([]PartnerListRow, 0, end-offset)
	for _, p := range matched[offset:end] {
		joined := ""
		if !p.JoinedDate.IsZero() {
			joined = p.JoinedDate.Format("2006-01-02")
		}
		page = append(page, PartnerListRow{
			PartnerID:              p.PartnerID,
			FirstName:              p.FirstName,
			LastName:               p.LastName,
			Username:               p.Username,
			Country:                p.Country,
			Region:                 p.Region,
			PartnerTier:            string(p.Tier),
			IsAppDev:               p.IsAppDev,
			JoinedDate:             joined,
			TotalEarnings:          p.TotalEarnings,
			CompanyRevenue:         p.CompanyRevenue,
			TotalDeposits:          p.TotalDeposits,
			VolumeUSD:              p.VolumeLatest,
			ActiveClients:          p.ActiveClients,
			NewActiveClients:       p.NewClientsLatest,
			MonthsCount:            p.MonthsCount,
			AvgMonthlyEarnings:     p.AvgMonthlyEarnings,
			AvgPast3MonthsEarnings: p.AvgMonthlyEarnings,
		})
	}

	return PartnerList{
		Partners:   page,
		TotalCount: total,
		HasMore:    offset+limit < total,
	}
}

// matchesEtRFilter applies the lifetime earnings-to-revenue bucket filter.
// Loss buckets test the raw lifetime numbers; the numeric buckets test the
// sort key, which flips loss ratios negative so they fall out of range.
func matchesEtRFilter(p *PartnerAggregate, q PartnersQuery) bool {
	if q.EtRFilter == "" {
		return true
	}
	key := derive.RatioSortKey(p.TotalEarnings, p.CompanyRevenue)
	switch q.EtRFilter {
	case derive.ClassDoubleLoss:
		return p.CompanyRevenue < 0
	case derive.ClassUnprofitable:
		return p.CompanyRevenue > 0 && p.TotalEarnings > p.CompanyRevenue
	case derive.ClassCriticallyLow:
		return key >= 0.1 && key < 10
	case derive.ClassVeryLow:
		return key >= 10 && key < 20
	case derive.ClassLow:
		return key >= 20 && key < 30
	case derive.ClassFair:
		return key >= 30 && key <= 40
	case derive.ClassHigh:
		return key > 40
	case "custom":
		if q.EtRMin != nil && key < *q.EtRMin {
			return false
		}
		if q.EtRMax != nil && key > *q.EtRMax {
			return false
		}
		return true
	default:
		return true
	}
}

// partnerSortKeys maps sort_by values onto the aggregate. Unknown fields
// leave the slice in its natural partner-id order.
var partnerSortKeys = map[string]func(*PartnerAggregate) float64{
	"total_earnings":             func(p *PartnerAggregate) float64 { return p.TotalEarnings },
	"company_revenue":            func(p *PartnerAggregate) float64 { return p.CompanyRevenue },
	"total_deposits":             func(p *PartnerAggregate) float64 { return p.TotalDeposits },
	"volume_usd":                 func(p *PartnerAggregate) float64 { return p.VolumeLatest },
	"active_clients":             func(p *PartnerAggregate) float64 { return float64(p.ActiveClients) },
	"new_active_clients":         func(p *PartnerAggregate) float64 { return float64(p.NewClientsLatest) },
	"months_count":               func(p *PartnerAggregate) float64 { return float64(p.MonthsCount) },
	"avg_monthly_earnings":       func(p *PartnerAggregate) float64 { return p.AvgMonthlyEarnings },
	"avg_past_3_months_earnings": func(p *PartnerAggregate) float64 { return p.AvgMonthlyEarnings },
	"etr_ratio": func(p *PartnerAggregate) float64 {
		return derive.RatioSortKey(p.TotalEarnings, p.CompanyRevenue)
	},
	"joined_date": func(p *PartnerAggregate) float64 { return float64(p.JoinedDate.Unix()) },
}

var partnerSortStrings = map[string]func(*PartnerAggregate) string{
	"partner_id":   func(p *PartnerAggregate) string { return p.PartnerID },
	"first_name":   func(p *PartnerAggregate) string { return p.FirstName },
	"last_name":    func(p *PartnerAggregate) string { return p.LastName },
	"username":     func(p *PartnerAggregate) string { return p.Username },
	"country":      func(p *PartnerAggregate) string { return p.Country },
	"region":       func(p *PartnerAggregate) string { return p.Region },
	"partner_tier": func(p *PartnerAggregate) string { return string(p.Tier) },
}

func sortPartners(partners []*PartnerAggregate, sortBy, sortOrder string) {
	if sortBy == "" {
		sortBy = "total_earnings"
	}
	asc := strings.EqualFold(sortOrder, "asc")

	if key, ok := partnerSortKeys[sortBy]; ok {
		sort.SliceStable(partners, func(i, j int) bool {
			a, b := key(partners[i]), key(partners[j])
			if asc {
				return a < b
			}
			return a > b
		})
		return
	}
	if key, ok := partnerSortStrings[sortBy]; ok {
		sort.SliceStable(partners, func(i, j int) bool {
			a, b := key(partners[i]), key(partners[j])
			if asc {
				return a < b
			}
			return a > b
		})
	}
}

// SortablePartnerField reports whether the list endpoint accepts sort_by.
func SortablePartnerField(field string) bool {
	if _, ok := partnerSortKeys[field]; ok {
		return true
	}
	_, ok := partnerSortStrings[field]
	return ok
}
