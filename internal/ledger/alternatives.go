package ledger

import (
	"context"
	"time"

	"villabook/internal/models"
)

// MinStayFunc resolves the minimum-stay rule for a candidate check-in
// day. An error (for example a season coverage gap) disqualifies the
// candidate without failing the whole scan.
type MinStayFunc func(ctx context.Context, checkIn time.Time) (int, error)

// SuggestOptions tunes the alternative-date scan.
type SuggestOptions struct {
	// WindowDays bounds how far from the requested range to look.
	WindowDays int
	// MaxSuggestions caps the number of candidates returned.
	MaxSuggestions int
	// Today excludes candidates starting in the past.
	Today time.Time
	// MinStay is consulted per candidate check-in day. Optional.
	MinStay MinStayFunc
}

// Suggestion is an alternative stay of the same length as the request.
type Suggestion struct {
	Range      models.DateRange `json:"range"`
	OffsetDays int              `json:"offset_days"`
	Nights     int              `json:"nights"`
}

// SuggestAlternatives scans outward from the requested range, one day at
// a time in both directions, for fully available runs of the same length.
// Candidates keep the requested duration, must start today or later, must
// satisfy the covering season's minimum stay, and come back ordered by
// distance from the original request (earlier dates first on ties).
func (l *Ledger) SuggestAlternatives(ctx context.Context, rng models.DateRange, opts SuggestOptions) ([]Suggestion, error) {
	if err := rng.Validate(); err != nil {
		return nil, err
	}
	if opts.WindowDays <= 0 {
		opts.WindowDays = 14
	}
	if opts.MaxSuggestions <= 0 {
		opts.MaxSuggestions = 3
	}
	today := models.Day(opts.Today)
	if opts.Today.IsZero() {
		today = models.Day(time.Now())
	}

	nights := rng.Nights()
	var suggestions []Suggestion

	for offset := 1; offset <= opts.WindowDays; offset++ {
		for _, signed := range []int{-offset, offset} {
			if len(suggestions) >= opts.MaxSuggestions {
				return suggestions, nil
			}

			candidate := rng.Shift(signed)
			if candidate.CheckIn.Before(today) {
				continue
			}

			ok, err := l.rangeAvailable(ctx, candidate)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}

			if opts.MinStay != nil {
				minNights, err := opts.MinStay(ctx, candidate.CheckIn)
				if err != nil || nights < minNights {
					continue
				}
			}

			suggestions = append(suggestions, Suggestion{
				Range:      candidate,
				OffsetDays: signed,
				Nights:     nights,
			})
		}
	}
	return suggestions, nil
}

// rangeAvailable is a read-only availability probe for the scan. The
// winner is still decided by TryReserve.
func (l *Ledger) rangeAvailable(ctx context.Context, rng models.DateRange) (bool, error) {
	slots, err := l.Query(ctx, rng)
	if err != nil {
		return false, err
	}
	for _, slot := range slots {
		if !slot.IsAvailable() {
			return false, nil
		}
	}
	return true, nil
}
