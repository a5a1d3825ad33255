package models

import "time"

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

const (
	StatusPending   ReservationStatus = "pending"
	StatusConfirmed ReservationStatus = "confirmed"
	StatusCancelled ReservationStatus = "cancelled"
	StatusCompleted ReservationStatus = "completed"
)

// IsTerminal reports whether no further transitions are possible.
func (s ReservationStatus) IsTerminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// PaymentStatus tracks the payment collaborator's reported outcome.
type PaymentStatus string

const (
	PaymentPending       PaymentStatus = "pending"
	PaymentPaid          PaymentStatus = "paid"
	PaymentRefunded      PaymentStatus = "refunded"
	PaymentPartialRefund PaymentStatus = "partial_refund"
)

// Reservation is a booking record. The pricing fields are an immutable
// snapshot fixed at creation; they are never recomputed from live season
// rates. Amounts are cents.
type Reservation struct {
	ID              string            `json:"reservation_id"`
	GuestID         string            `json:"guest_id"`
	CheckIn         time.Time         `json:"check_in"`
	CheckOut        time.Time         `json:"check_out"` // exclusive
	Adults          int               `json:"adults"`
	Children        int               `json:"children"`
	Status          ReservationStatus `json:"status"`
	PaymentStatus   PaymentStatus     `json:"payment_status"`
	Nights          int               `json:"nights"`
	BasePrice       int64             `json:"base_price"`
	CleaningFee     int64             `json:"cleaning_fee"`
	Total           int64             `json:"total"`
	SpecialRequests string            `json:"special_requests,omitempty"`
	ProviderTxnID   string            `json:"provider_txn_id,omitempty"`

	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`
	RefundAmount       *int64     `json:"refund_amount,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int64     `json:"version"`
}

// Range returns the stay interval [CheckIn, CheckOut).
func (r *Reservation) Range() DateRange {
	return DateRange{CheckIn: r.CheckIn, CheckOut: r.CheckOut}
}
