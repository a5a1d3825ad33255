package models

import "time"

// SeasonRate is one seasonal rate period. Start and end are inclusive
// calendar days; amounts are integer minor currency units (cents).
// Seasons are created by an administrative process and are read-only
// to the booking core.
type SeasonRate struct {
	SeasonID      string    `json:"season_id"`
	Name          string    `json:"name"`
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
	NightlyRate   int64     `json:"nightly_rate"`
	MinimumNights int       `json:"minimum_nights"`
	CleaningFee   int64     `json:"cleaning_fee"`
	Active        bool      `json:"active"`
}

// Covers reports whether the season covers the given calendar day.
func (s SeasonRate) Covers(date time.Time) bool {
	d := Day(date)
	return !d.Before(Day(s.StartDate)) && !d.After(Day(s.EndDate))
}

// Overlaps reports whether two inclusive season periods share any day.
func (s SeasonRate) Overlaps(other SeasonRate) bool {
	return !Day(s.StartDate).After(Day(other.EndDate)) &&
		!Day(other.StartDate).After(Day(s.EndDate))
}
