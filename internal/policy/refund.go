// Package policy implements the tiered cancellation refund policy.
package policy

import (
	"time"

	"villabook/internal/models"
)

// Refund tier boundaries, lower bound inclusive.
const (
	FullRefundDays = 14
	HalfRefundDays = 7
)

// ComputeRefund maps days-before-check-in to a refund amount:
// >= 14 days 100%, 7-13 days 50%, under 7 days nothing. The amount is
// derived from the reservation's immutable total snapshot, never from
// live pricing. Pure function, safe for concurrent use.
func ComputeRefund(reservationID string, checkIn time.Time, total int64, now time.Time) models.RefundQuote {
	days := int(models.Day(checkIn).Sub(models.Day(now)).Hours() / 24)

	quote := models.RefundQuote{
		ReservationID:     reservationID,
		DaysBeforeCheckIn: days,
		TotalAmount:       total,
	}

	switch {
	case days >= FullRefundDays:
		quote.Tier = models.RefundFull
		quote.RefundAmount = total
	case days >= HalfRefundDays:
		quote.Tier = models.RefundHalf
		quote.RefundAmount = total / 2
	default:
		quote.Tier = models.RefundNone
		quote.RefundAmount = 0
	}
	return quote
}
