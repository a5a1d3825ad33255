package pricing

import (
	"context"
	"io"
	"testing"
	"time"

	"villabook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type stubSeasons struct {
	seasons []models.SeasonRate
}

func (s *stubSeasons) ActiveSeasons(_ context.Context) ([]models.SeasonRate, error) {
	return s.seasons, nil
}

func day(s string) time.Time {
	d, err := models.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testSeasons() []models.SeasonRate {
	return []models.SeasonRate{
		{
			SeasonID:      "high-summer",
			Name:          "High Season",
			StartDate:     day("2025-06-15"),
			EndDate:       day("2025-08-31"),
			NightlyRate:   18000,
			MinimumNights: 7,
			CleaningFee:   7500,
			Active:        true,
		},
		{
			SeasonID:      "shoulder-autumn",
			Name:          "Shoulder Season",
			StartDate:     day("2025-09-01"),
			EndDate:       day("2025-10-31"),
			NightlyRate:   12000,
			MinimumNights: 3,
			CleaningFee:   7500,
			Active:        true,
		},
		{
			SeasonID:      "low-spring",
			Name:          "Low Season",
			StartDate:     day("2025-04-01"),
			EndDate:       day("2025-06-10"),
			NightlyRate:   10000,
			MinimumNights: 2,
			CleaningFee:   6000,
			Active:        true,
		},
	}
}

func newTestCatalog(seasons []models.SeasonRate) *Catalog {
	logger := zerolog.New(io.Discard)
	return NewCatalog(&stubSeasons{seasons: seasons}, &logger)
}

func TestQuoteSingleSeason(t *testing.T) {
	catalog := newTestCatalog(testSeasons())

	rng, err := models.ParseDateRange("2025-07-01", "2025-07-08")
	assert.NoError(t, err)

	price, err := catalog.Quote(context.Background(), rng)
	assert.NoError(t, err)
	assert.Equal(t, 7, price.Nights)
	assert.Equal(t, int64(7*18000), price.BasePrice)
	assert.Equal(t, int64(7500), price.CleaningFee)
	assert.Equal(t, int64(7*18000+7500), price.Total)
	assert.Equal(t, "High Season", price.SeasonName)
	assert.Len(t, price.Segments, 1)
}

func TestQuoteSpansTwoSeasons(t *testing.T) {
	catalog := newTestCatalog(testSeasons())

	// 4 high-season nights (Aug 28-31) then 6 shoulder nights (Sep 1-6).
	rng, err := models.ParseDateRange("2025-08-28", "2025-09-07")
	assert.NoError(t, err)

	price, err := catalog.Quote(context.Background(), rng)
	assert.NoError(t, err)
	assert.Equal(t, 10, price.Nights)
	assert.Equal(t, int64(4*18000+6*12000), price.BasePrice)

	// Cleaning fee and minimum stay come from the check-in season.
	assert.Equal(t, int64(7500), price.CleaningFee)
	assert.Equal(t, 7, price.MinimumNights)
	assert.Equal(t, int64(4*18000+6*12000+7500), price.Total)

	assert.Len(t, price.Segments, 2)
	assert.Equal(t, "high-summer", price.Segments[0].SeasonID)
	assert.Equal(t, 4, price.Segments[0].Nights)
	assert.Equal(t, int64(4*18000), price.Segments[0].Subtotal)
	assert.Equal(t, "shoulder-autumn", price.Segments[1].SeasonID)
	assert.Equal(t, 6, price.Segments[1].Nights)
}

func TestQuoteMinimumStay(t *testing.T) {
	catalog := newTestCatalog(testSeasons())

	t.Run("too short for the check-in season", func(t *testing.T) {
		rng, err := models.ParseDateRange("2025-07-10", "2025-07-13")
		assert.NoError(t, err)

		_, err = catalog.Quote(context.Background(), rng)
		assert.ErrorIs(t, err, ErrMinimumStay)
	})

	t.Run("exactly the minimum passes", func(t *testing.T) {
		rng, err := models.ParseDateRange("2025-07-10", "2025-07-17")
		assert.NoError(t, err)

		_, err = catalog.Quote(context.Background(), rng)
		assert.NoError(t, err)
	})

	t.Run("only the check-in season's minimum applies", func(t *testing.T) {
		// 3 nights from shoulder (min 3) crossing nothing: fine even
		// though high season would demand 7.
		rng, err := models.ParseDateRange("2025-09-05", "2025-09-08")
		assert.NoError(t, err)

		_, err = catalog.Quote(context.Background(), rng)
		assert.NoError(t, err)
	})
}

func TestQuoteCoverageGap(t *testing.T) {
	catalog := newTestCatalog(testSeasons())

	t.Run("check-in outside any season", func(t *testing.T) {
		rng, err := models.ParseDateRange("2025-11-10", "2025-11-15")
		assert.NoError(t, err)

		_, err = catalog.Quote(context.Background(), rng)
		assert.ErrorIs(t, err, ErrNoCoverage)
	})

	t.Run("gap in the middle of the stay", func(t *testing.T) {
		// Low season ends Jun 10, high starts Jun 15: Jun 11-14 uncovered.
		rng, err := models.ParseDateRange("2025-06-08", "2025-06-18")
		assert.NoError(t, err)

		_, err = catalog.Quote(context.Background(), rng)
		assert.ErrorIs(t, err, ErrNoCoverage)
	})
}

func TestMinimumStay(t *testing.T) {
	catalog := newTestCatalog(testSeasons())

	min, err := catalog.MinimumStay(context.Background(), day("2025-07-01"))
	assert.NoError(t, err)
	assert.Equal(t, 7, min)

	min, err = catalog.MinimumStay(context.Background(), day("2025-09-15"))
	assert.NoError(t, err)
	assert.Equal(t, 3, min)

	_, err = catalog.MinimumStay(context.Background(), day("2025-12-25"))
	assert.ErrorIs(t, err, ErrNoCoverage)
}
