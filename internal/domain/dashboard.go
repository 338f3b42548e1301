package domain

// ExpiringMedicine is a dashboard entry for stock close to expiry.
type ExpiringMedicine struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	BatchID string `json:"batchId,omitempty"`
}

// DashboardSummary aggregates the catalog and order history.
type DashboardSummary struct {
	TotalDiscounts    int                `json:"totalDiscounts"`
	TotalExpired      int                `json:"totalExpired"`
	TotalRefunded     int                `json:"totalRefunded"`
	ExpiringMedicines []ExpiringMedicine `json:"expiringMedicines"`
}

// Summarize computes the dashboard from the full catalog. Unit counts are
// sums of quantities on hand, not item counts.
func Summarize(medicines []Medicine, refunded int, today string, window int) DashboardSummary {
	s := DashboardSummary{
		TotalRefunded:     refunded,
		ExpiringMedicines: []ExpiringMedicine{},
	}
	for i := range medicines {
		m := &medicines[i]
		if m.Discount > 0 {
			s.TotalDiscounts += m.Quantity
		}
		if m.IsExpired(today) {
			s.TotalExpired += m.Quantity
		}
		if m.ExpiresWithin(today, window) {
			s.ExpiringMedicines = append(s.ExpiringMedicines, ExpiringMedicine{ID: m.ID, Name: m.Name, BatchID: m.BatchID})
		}
	}
	return s
}
