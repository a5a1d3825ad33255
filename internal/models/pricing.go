package models

import "time"

// PriceSegment is the portion of a stay priced by a single season.
type PriceSegment struct {
	SeasonID    string `json:"season_id"`
	SeasonName  string `json:"season_name"`
	Nights      int    `json:"nights"`
	NightlyRate int64  `json:"nightly_rate"`
	Subtotal    int64  `json:"subtotal"`
}

// PriceBreakdown is the quote for a stay. BasePrice is the per-night sum
// across all covering seasons; CleaningFee is charged once from the
// check-in season. Total = BasePrice + CleaningFee. All amounts cents.
type PriceBreakdown struct {
	CheckIn       time.Time      `json:"check_in"`
	CheckOut      time.Time      `json:"check_out"`
	Nights        int            `json:"nights"`
	Segments      []PriceSegment `json:"segments"`
	BasePrice     int64          `json:"base_price"`
	CleaningFee   int64          `json:"cleaning_fee"`
	Total         int64          `json:"total"`
	MinimumNights int            `json:"minimum_nights"`
	SeasonName    string         `json:"season_name"` // check-in season
}

// RefundTier identifies the cancellation policy tier that applied.
type RefundTier string

const (
	RefundFull RefundTier = "full"
	RefundHalf RefundTier = "half"
	RefundNone RefundTier = "none"
)

// RefundQuote is the outcome of applying the cancellation policy.
// It is ephemeral; only the amount is persisted, on the reservation.
type RefundQuote struct {
	ReservationID     string     `json:"reservation_id"`
	DaysBeforeCheckIn int        `json:"days_before_checkin"`
	Tier              RefundTier `json:"tier"`
	RefundAmount      int64      `json:"refund_amount"`
	TotalAmount       int64      `json:"total_amount"`
}
