package domain

import "time"

// Restock request statuses.
const (
	RestockPending   = "pending"
	RestockReceived  = "received"
	RestockCancelled = "cancelled"
)

// Restock request sources.
const (
	RestockSourceManual = "manual"
	RestockSourceAuto   = "auto"
)

// RestockRequest is a pre-order of stock from a supplier.
type RestockRequest struct {
	ID           string    `json:"id"`
	MedicineID   string    `json:"medicineId"`
	MedicineName string    `json:"medicineName"`
	Supplier     string    `json:"supplier,omitempty"`
	BatchID      string    `json:"batchId,omitempty"`
	Quantity     int       `json:"quantity"`
	Status       string    `json:"status"`
	Source       string    `json:"source"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// IsPending reports whether the request can still be received or cancelled.
func (r *RestockRequest) IsPending() bool {
	return r.Status == RestockPending
}

// IsValidRestockStatus reports whether s is a known status.
func IsValidRestockStatus(s string) bool {
	switch s {
	case RestockPending, RestockReceived, RestockCancelled:
		return true
	}
	return false
}
