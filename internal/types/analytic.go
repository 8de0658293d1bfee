package types

import "time"

// Device classes a click event can carry. Anything else folds into
// DeviceOther during aggregation.
const (
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceDesktop = "desktop"
	DeviceOther   = "other"
)

// ClickEvent is one recorded resolution of a link. ClickedAt is assigned
// by the sink on insert.
type ClickEvent struct {
	LinkID    string    `json:"link_id" db:"link_id"`
	Device    string    `json:"device" db:"device"`
	Country   string    `json:"country" db:"country"`
	City      string    `json:"city" db:"city"`
	ClickedAt time.Time `json:"clicked_at" db:"clicked_at"`
}

// Bucket is one row of a breakdown: a label, its click count and its
// share of the total event count.
type Bucket struct {
	Label string  `json:"label"`
	Count int     `json:"count"`
	Share float64 `json:"share"`
}
