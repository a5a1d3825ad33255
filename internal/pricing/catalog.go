// Package pricing resolves nightly rates, minimum stays and cleaning fees
// from non-overlapping seasonal rate periods. All money is integer cents;
// nothing in this path touches floating point.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"villabook/internal/models"

	"github.com/rs/zerolog"
)

var (
	// ErrNoCoverage means a night has no active season. This is a data
	// integrity defect for the administrator, not a guest-facing error.
	ErrNoCoverage = errors.New("no season coverage")

	// ErrMinimumStay means the stay is shorter than the check-in
	// season's minimum.
	ErrMinimumStay = errors.New("minimum stay not met")
)

// SeasonSource supplies the active seasonal rate periods.
type SeasonSource interface {
	ActiveSeasons(ctx context.Context) ([]models.SeasonRate, error)
}

// Catalog computes quotes from the season store. Reads are pure and safe
// to run concurrently.
type Catalog struct {
	seasons SeasonSource
	logger  *zerolog.Logger
}

// NewCatalog creates a pricing catalog.
func NewCatalog(seasons SeasonSource, logger *zerolog.Logger) *Catalog {
	return &Catalog{seasons: seasons, logger: logger}
}

// Quote prices a stay. The range is partitioned into maximal sub-ranges
// each covered by one season; the nightly rate is summed per night across
// seasons, never averaged. The cleaning fee and the minimum-stay rule come
// from the check-in night's season alone.
func (c *Catalog) Quote(ctx context.Context, rng models.DateRange) (*models.PriceBreakdown, error) {
	if err := rng.Validate(); err != nil {
		return nil, err
	}

	seasons, err := c.activeSorted(ctx)
	if err != nil {
		return nil, err
	}

	checkInSeason := covering(seasons, rng.CheckIn)
	if checkInSeason == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoCoverage, rng.CheckIn.Format(models.DateLayout))
	}

	nights := rng.Nights()
	if nights < checkInSeason.MinimumNights {
		return nil, fmt.Errorf("%w: season %q requires %d nights, requested %d",
			ErrMinimumStay, checkInSeason.Name, checkInSeason.MinimumNights, nights)
	}

	breakdown := &models.PriceBreakdown{
		CheckIn:       rng.CheckIn,
		CheckOut:      rng.CheckOut,
		Nights:        nights,
		CleaningFee:   checkInSeason.CleaningFee,
		MinimumNights: checkInSeason.MinimumNights,
		SeasonName:    checkInSeason.Name,
	}

	var segment *models.PriceSegment
	for _, night := range rng.Dates() {
		season := covering(seasons, night)
		if season == nil {
			return nil, fmt.Errorf("%w: %s", ErrNoCoverage, night.Format(models.DateLayout))
		}

		breakdown.BasePrice += season.NightlyRate
		if segment == nil || segment.SeasonID != season.SeasonID {
			breakdown.Segments = append(breakdown.Segments, models.PriceSegment{
				SeasonID:    season.SeasonID,
				SeasonName:  season.Name,
				NightlyRate: season.NightlyRate,
			})
			segment = &breakdown.Segments[len(breakdown.Segments)-1]
		}
		segment.Nights++
		segment.Subtotal += season.NightlyRate
	}

	breakdown.Total = breakdown.BasePrice + breakdown.CleaningFee
	return breakdown, nil
}

// MinimumStay returns the minimum nights for a stay starting on date.
func (c *Catalog) MinimumStay(ctx context.Context, date time.Time) (int, error) {
	seasons, err := c.activeSorted(ctx)
	if err != nil {
		return 0, err
	}
	season := covering(seasons, date)
	if season == nil {
		return 0, fmt.Errorf("%w: %s", ErrNoCoverage, models.Day(date).Format(models.DateLayout))
	}
	return season.MinimumNights, nil
}

func (c *Catalog) activeSorted(ctx context.Context) ([]models.SeasonRate, error) {
	seasons, err := c.seasons.ActiveSeasons(ctx)
	if err != nil {
		return nil, fmt.Errorf("load seasons: %w", err)
	}
	sort.Slice(seasons, func(i, j int) bool {
		return seasons[i].StartDate.Before(seasons[j].StartDate)
	})
	return seasons, nil
}

// covering finds the season for a day. Seasons are sorted by start date
// and guaranteed non-overlapping by the store's write-time guard.
func covering(seasons []models.SeasonRate, date time.Time) *models.SeasonRate {
	for i := range seasons {
		if seasons[i].Covers(date) {
			return &seasons[i]
		}
	}
	return nil
}
