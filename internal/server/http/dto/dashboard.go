package dto

// DashboardResponse carries the derived order statistics pushed to and
// polled by dashboard sessions.
type DashboardResponse struct {
	TotalOrders int   `json:"total_orders"`
	DueToday    int64 `json:"due_today"`
	New         int64 `json:"new"`
	Ready       int64 `json:"ready"`
	Delivered   int64 `json:"delivered"`
	Cancelled   int64 `json:"cancelled"`
}
