package admin

type Overview struct {
	ActiveUsers           int     `json:"activeUsers"`
	TotalUsers            int     `json:"totalUsers"`
	ActivitiesSent        int     `json:"activitiesSent"`
	MonthlyRevenue        float64 `json:"monthlyRevenue"`
	SupportMessages       int     `json:"supportMessages"`
	UnreadSupportMessages int     `json:"unreadSupportMessages"`
}
