package dataset

// PartnerInfo is the detail header: latest static fields with lifetime
// totals folded over them, so total_earnings here means all-time.
type PartnerInfo struct {
	PartnerID   string `json:"partner_id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Username    string `json:"username"`
	Country     string `json:"country"`
	Region      string `json:"region"`
	PartnerTier string `json:"partner_tier"`
	IsAppDev    bool   `json:"is_app_dev"`
	JoinedDate  string `json:"joined_date"`

	TotalEarnings          float64 `json:"total_earnings"`
	CompanyRevenue         float64 `json:"company_revenue"`
	TotalDeposits          float64 `json:"total_deposits"`
	VolumeUSD              float64 `json:"volume_usd"`
	TotalActiveClients     int     `json:"total_active_clients"`
	TotalNewClients        int     `json:"total_new_clients"`
	AvgMonthlyEarnings     float64 `json:"avg_monthly_earnings"`
	AvgMonthlyRevenue      float64 `json:"avg_monthly_revenue"`
	AvgMonthlyDeposits     float64 `json:"avg_monthly_deposits"`
	AvgMonthlyVolume       float64 `json:"avg_monthly_volume"`
	AvgMonthlyActiveClients float64 `json:"avg_monthly_active_clients"`
	AvgMonthlyNewClients   float64 `json:"avg_monthly_new_clients"`
	MonthsCount            int     `json:"months_count"`
}

// CurrentMonth is the latest month's raw numbers.
type CurrentMonth struct {
	Month            string  `json:"month"`
	TotalEarnings    float64 `json:"total_earnings"`
	CompanyRevenue   float64 `json:"company_revenue"`
	TotalDeposits    float64 `json:"total_deposits"`
	VolumeUSD        float64 `json:"volume_usd"`
	ActiveClients    int     `json:"active_clients"`
	NewActiveClients int     `json:"new_active_clients"`
}

// PartnerMonthRow is one month in the detail history, including the tier
// the partner actually held that month.
type PartnerMonthRow struct {
	Month            string  `json:"month"`
	PartnerTier      string  `json:"partner_tier"`
	TotalEarnings    float64 `json:"total_earnings"`
	ActiveClients    int     `json:"active_clients"`
	NewActiveClients int     `json:"new_active_clients"`
	CompanyRevenue   float64 `json:"company_revenue"`
	TotalDeposits    float64 `json:"total_deposits"`
	VolumeUSD        float64 `json:"volume_usd"`
}

// PartnerDetail is the /api/partners/{id} payload before the handler
// layers on database-only fields like partner age.
type PartnerDetail struct {
	PartnerInfo        PartnerInfo       `json:"partner_info"`
	CurrentMonth       CurrentMonth      `json:"current_month"`
	MonthlyPerformance []PartnerMonthRow `json:"monthly_performance"`
	TotalRecords       int               `json:"total_records"`
}

// PartnerDetail assembles the detail view for one partner. The second
// return is false when the partner has no rows at all.
func (s *Snapshot) PartnerDetail(id string) (PartnerDetail, bool) {
	months := s.byPartner[id]
	if len(months) == 0 {
		return PartnerDetail{}, false
	}
	latest := &months[len(months)-1]

	info := PartnerInfo{
		PartnerID:          latest.PartnerID,
		FirstName:          latest.FirstName,
		LastName:           latest.LastName,
		Username:           latest.Username,
		Country:            latest.Country,
		Region:             latest.Region,
		PartnerTier:        string(latest.Tier),
		IsAppDev:           latest.IsAppDev,
		TotalActiveClients: latest.ActiveClients,
		MonthsCount:        len(months),
	}
	if !latest.JoinedDate.IsZero() {
		info.JoinedDate = latest.JoinedDate.Format("2006-01-02")
	}

	n := float64(len(months))
	var activeSum, newSum int
	for i := range months {
		m := &months[i]
		info.TotalEarnings += m.TotalEarnings
		info.CompanyRevenue += m.CompanyRevenue
		info.TotalDeposits += m.TotalDeposits
		info.VolumeUSD += m.VolumeUSD
		info.TotalNewClients += m.NewActiveClients
		activeSum += m.ActiveClients
		newSum += m.NewActiveClients
	}
	info.AvgMonthlyEarnings = info.TotalEarnings / n
	info.AvgMonthlyRevenue = info.CompanyRevenue / n
	info.AvgMonthlyDeposits = info.TotalDeposits / n
	info.AvgMonthlyVolume = info.VolumeUSD / n
	info.AvgMonthlyActiveClients = float64(activeSum) / n
	info.AvgMonthlyNewClients = float64(newSum) / n

	current := CurrentMonth{
		Month:            latest.Month.Format("2006-01-02"),
		TotalEarnings:    latest.TotalEarnings,
		CompanyRevenue:   latest.CompanyRevenue,
		TotalDeposits:    latest.TotalDeposits,
		VolumeUSD:        latest.VolumeUSD,
		ActiveClients:    latest.ActiveClients,
		NewActiveClients: latest.NewActiveClients,
	}

	perf := make([]PartnerMonthRow, 0, len(months))
	for i := len(months) - 1; i >= 0; i-- {
		m := &months[i]
		perf = append(perf, PartnerMonthRow{
			Month:            m.Month.Format("2006-01-02"),
			PartnerTier:      string(m.Tier),
			TotalEarnings:    m.TotalEarnings,
			ActiveClients:    m.ActiveClients,
			NewActiveClients: m.NewActiveClients,
			CompanyRevenue:   m.CompanyRevenue,
			TotalDeposits:    m.TotalDeposits,
			VolumeUSD:        m.VolumeUSD,
		})
	}

	return PartnerDetail{
		PartnerInfo:        info,
		CurrentMonth:       current,
		MonthlyPerformance: perf,
		TotalRecords:       len(months),
	}, true
}
