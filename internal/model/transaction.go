package model

import "time"

// Transaction statuses. A transaction only ever moves open -> closed.
const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// Transaction is one checkout episode: a set of equipment taken out for a
// project, later returned item by item and closed.
type Transaction struct {
	ID           string     `json:"id"`
	ProjectName  string     `json:"project_name"`
	ProjectOwner string     `json:"project_owner,omitempty"`
	UserID       int64      `json:"user_id"`
	Status       string     `json:"status"`
	CheckoutTime time.Time  `json:"checkout_time"`
	ShootTime    *time.Time `json:"shoot_time,omitempty"`
	ReturnTime   *time.Time `json:"return_time,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`

	// Joined fields (not always populated).
	Username     string            `json:"username,omitempty"`
	AssistantIDs []int64           `json:"assistant_ids,omitempty"`
	Items        []TransactionItem `json:"items,omitempty"`
}

// TransactionItem is one equipment line within a transaction.
// ReturnedQty and SettledAt are nil until the item goes through return
// settlement; settlement happens at most once per item.
type TransactionItem struct {
	ID            int64      `json:"id"`
	TransactionID string     `json:"transaction_id"`
	EquipmentID   int64      `json:"equipment_id"`
	Qty           int        `json:"qty"`
	ReturnedQty   *int       `json:"returned_qty,omitempty"`
	Damaged       bool       `json:"damaged"`
	DamageNotes   string     `json:"damage_notes,omitempty"`
	Lost          bool       `json:"lost"`
	LostNotes     string     `json:"lost_notes,omitempty"`
	AdminVerified bool       `json:"admin_verified"`
	SettledAt     *time.Time `json:"settled_at,omitempty"`

	// Joined fields (not always populated).
	EquipmentName string `json:"equipment_name,omitempty"`
}

// Settled reports whether the item has been through return settlement.
func (i *TransactionItem) Settled() bool {
	return i.SettledAt != nil
}

// UnreturnedQty is the quantity still out: qty minus what was settled as
// returned, never negative. Unsettled items count in full.
func (i *TransactionItem) UnreturnedQty() int {
	if i.ReturnedQty == nil {
		return i.Qty
	}
	out := i.Qty - *i.ReturnedQty
	if out < 0 {
		return 0
	}
	return out
}
