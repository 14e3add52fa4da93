package model

import "time"

// Equipment is a countable inventory item (camera body, lens, tripod, ...).
// AvailableQty is the loanable count and must stay within [0, TotalQty];
// the store layer enforces that on every mutation.
type Equipment struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Category     string     `json:"category,omitempty"`
	TotalQty     int        `json:"total_qty"`
	AvailableQty int        `json:"available_qty"`
	ImageMime    string     `json:"image_mime,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}
