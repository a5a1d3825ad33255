package models

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the canonical calendar-day format used in storage keys.
const DateLayout = "2006-01-02"

var ErrInvalidRange = errors.New("invalid date range")

// Day normalizes a timestamp to midnight UTC so that every calendar day
// has exactly one representation.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a normalized day.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s", ErrInvalidRange, s)
	}
	return Day(t), nil
}

// DateRange is a half-open stay interval [CheckIn, CheckOut).
// Check-out day is never occupied.
type DateRange struct {
	CheckIn  time.Time
	CheckOut time.Time
}

// NewDateRange builds a normalized range and validates it.
func NewDateRange(checkIn, checkOut time.Time) (DateRange, error) {
	r := DateRange{CheckIn: Day(checkIn), CheckOut: Day(checkOut)}
	if err := r.Validate(); err != nil {
		return DateRange{}, err
	}
	return r, nil
}

// ParseDateRange builds a range from two YYYY-MM-DD strings.
func ParseDateRange(checkIn, checkOut string) (DateRange, error) {
	in, err := ParseDate(checkIn)
	if err != nil {
		return DateRange{}, err
	}
	out, err := ParseDate(checkOut)
	if err != nil {
		return DateRange{}, err
	}
	return NewDateRange(in, out)
}

// Validate rejects empty or inverted ranges.
func (r DateRange) Validate() error {
	if r.CheckIn.IsZero() || r.CheckOut.IsZero() || !r.CheckIn.Before(r.CheckOut) {
		return fmt.Errorf("%w: %s..%s", ErrInvalidRange,
			r.CheckIn.Format(DateLayout), r.CheckOut.Format(DateLayout))
	}
	return nil
}

// Nights returns the number of occupied nights.
func (r DateRange) Nights() int {
	return int(r.CheckOut.Sub(r.CheckIn).Hours() / 24)
}

// Dates lists every occupied night, check-in inclusive, check-out exclusive.
func (r DateRange) Dates() []time.Time {
	n := r.Nights()
	if n <= 0 {
		return nil
	}
	dates := make([]time.Time, 0, n)
	for d := r.CheckIn; d.Before(r.CheckOut); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}

// Shift moves the whole range by the given number of days.
func (r DateRange) Shift(days int) DateRange {
	return DateRange{
		CheckIn:  r.CheckIn.AddDate(0, 0, days),
		CheckOut: r.CheckOut.AddDate(0, 0, days),
	}
}

func (r DateRange) String() string {
	return r.CheckIn.Format(DateLayout) + ".." + r.CheckOut.Format(DateLayout)
}
