package models

import "time"

// SlotStatus is the booking state of a single calendar day.
type SlotStatus string

const (
	SlotAvailable SlotStatus = "available"
	SlotBooked    SlotStatus = "booked"
	SlotBlocked   SlotStatus = "blocked"
)

// DateSlot is one calendar day in the availability ledger.
// ReservationID is set iff Status is SlotBooked.
type DateSlot struct {
	Date          time.Time  `json:"date"`
	Status        SlotStatus `json:"status"`
	ReservationID string     `json:"reservation_id,omitempty"`
	BlockReason   string     `json:"block_reason,omitempty"`
}

// IsAvailable reports whether the slot can be held.
func (s DateSlot) IsAvailable() bool {
	return s.Status == SlotAvailable
}
