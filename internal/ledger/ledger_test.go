package ledger

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"

	"villabook/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func newTestLedger(t *testing.T) (*Ledger, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	logger := zerolog.New(io.Discard)
	return New(rdb, &logger), mr
}

func mustRange(t *testing.T, checkIn, checkOut string) models.DateRange {
	t.Helper()
	rng, err := models.ParseDateRange(checkIn, checkOut)
	assert.NoError(t, err)
	return rng
}

func provision(t *testing.T, l *Ledger, from string, days int) {
	t.Helper()
	start, err := models.ParseDate(from)
	assert.NoError(t, err)
	_, err = l.Provision(context.Background(), start, days)
	assert.NoError(t, err)
}

func TestProvision(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	start, _ := models.ParseDate("2025-07-01")
	created, err := l.Provision(ctx, start, 10)
	assert.NoError(t, err)
	assert.Equal(t, 10, created)

	// Re-provisioning never overwrites existing slots.
	rng := mustRange(t, "2025-07-01", "2025-07-03")
	assert.NoError(t, l.TryReserve(ctx, rng, "RES-2025-AAAAAA"))

	created, err = l.Provision(ctx, start, 12)
	assert.NoError(t, err)
	assert.Equal(t, 2, created)

	slots, err := l.Query(ctx, rng)
	assert.NoError(t, err)
	assert.Equal(t, models.SlotBooked, slots[0].Status)
	assert.Equal(t, "RES-2025-AAAAAA", slots[0].ReservationID)
}

func TestTryReserveConflictLeavesSlotsUntouched(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	provision(t, l, "2025-07-01", 30)

	assert.NoError(t, l.TryReserve(ctx, mustRange(t, "2025-07-05", "2025-07-08"), "RES-2025-AAAAAA"))

	// Overlapping on the 7th only; the 8th and 9th must stay available.
	err := l.TryReserve(ctx, mustRange(t, "2025-07-07", "2025-07-10"), "RES-2025-BBBBBB")
	assert.ErrorIs(t, err, ErrConflict)

	slots, err := l.Query(ctx, mustRange(t, "2025-07-08", "2025-07-10"))
	assert.NoError(t, err)
	for _, slot := range slots {
		assert.Equal(t, models.SlotAvailable, slot.Status, slot.Date.Format(models.DateLayout))
	}
}

func TestTryReserveBackToBackStays(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	provision(t, l, "2025-07-01", 30)

	// Check-out day is free for the next guest's check-in.
	assert.NoError(t, l.TryReserve(ctx, mustRange(t, "2025-07-05", "2025-07-10"), "RES-2025-AAAAAA"))
	assert.NoError(t, l.TryReserve(ctx, mustRange(t, "2025-07-10", "2025-07-14"), "RES-2025-BBBBBB"))
}

func TestTryReserveOutsideHorizon(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	provision(t, l, "2025-07-01", 5)

	err := l.TryReserve(ctx, mustRange(t, "2025-07-04", "2025-07-08"), "RES-2025-AAAAAA")
	assert.ErrorIs(t, err, models.ErrInvalidRange)

	// Nothing inside the horizon got booked by the failed attempt.
	slots, err := l.Query(ctx, mustRange(t, "2025-07-04", "2025-07-06"))
	assert.NoError(t, err)
	assert.Equal(t, models.SlotAvailable, slots[0].Status)
	assert.Equal(t, models.SlotAvailable, slots[1].Status)
}

func TestReleaseIsOwnerScopedAndIdempotent(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	provision(t, l, "2025-07-01", 30)

	rng := mustRange(t, "2025-07-05", "2025-07-08")
	assert.NoError(t, l.TryReserve(ctx, rng, "RES-2025-AAAAAA"))

	// A stranger's release is a no-op.
	assert.NoError(t, l.Release(ctx, rng, "RES-2025-BBBBBB"))
	slots, _ := l.Query(ctx, rng)
	assert.Equal(t, models.SlotBooked, slots[0].Status)

	// The owner's release frees the range; doing it twice is harmless.
	assert.NoError(t, l.Release(ctx, rng, "RES-2025-AAAAAA"))
	assert.NoError(t, l.Release(ctx, rng, "RES-2025-AAAAAA"))

	slots, _ = l.Query(ctx, rng)
	for _, slot := range slots {
		assert.Equal(t, models.SlotAvailable, slot.Status)
	}
}

func TestReleaseThenRebook(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	provision(t, l, "2025-07-01", 30)

	rng := mustRange(t, "2025-07-05", "2025-07-08")
	assert.NoError(t, l.TryReserve(ctx, rng, "RES-2025-AAAAAA"))
	assert.NoError(t, l.Release(ctx, rng, "RES-2025-AAAAAA"))
	assert.NoError(t, l.TryReserve(ctx, rng, "RES-2025-BBBBBB"))

	slots, err := l.Query(ctx, rng)
	assert.NoError(t, err)
	assert.Equal(t, "RES-2025-BBBBBB", slots[0].ReservationID)
}

func TestConcurrentIdenticalRangeSingleWinner(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	provision(t, l, "2025-07-01", 30)

	rng := mustRange(t, "2025-07-10", "2025-07-17")

	const workers = 16
	var wg sync.WaitGroup
	results := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = l.TryReserve(ctx, rng, fmt.Sprintf("RES-2025-%06X", i))
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range results {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, ErrConflict)
		}
	}
	assert.Equal(t, 1, winners)
}

func TestConcurrentDisjointRangesAllSucceed(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	provision(t, l, "2025-07-01", 60)

	base := mustRange(t, "2025-07-01", "2025-07-04")
	const stays = 10

	var wg sync.WaitGroup
	results := make([]error, stays)
	for i := 0; i < stays; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = l.TryReserve(ctx, base.Shift(i*3), string(rune('A'+i))+"-RES")
		}(i)
	}
	wg.Wait()

	for i, err := range results {
		assert.NoError(t, err, "stay %d", i)
	}
}

func TestBlockAndUnblock(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	provision(t, l, "2025-07-01", 30)

	booked := mustRange(t, "2025-07-05", "2025-07-07")
	assert.NoError(t, l.TryReserve(ctx, booked, "RES-2025-AAAAAA"))

	// Block a range straddling the booking: booked days are skipped.
	blockRng := mustRange(t, "2025-07-04", "2025-07-09")
	skipped, err := l.Block(ctx, blockRng, "deep clean")
	assert.NoError(t, err)
	assert.Equal(t, 2, skipped)

	slots, _ := l.Query(ctx, blockRng)
	assert.Equal(t, models.SlotBlocked, slots[0].Status)
	assert.Equal(t, "deep clean", slots[0].BlockReason)
	assert.Equal(t, models.SlotBooked, slots[1].Status)

	// Blocked days reject reservations.
	err = l.TryReserve(ctx, mustRange(t, "2025-07-08", "2025-07-09"), "RES-2025-BBBBBB")
	assert.ErrorIs(t, err, ErrConflict)

	// Unblock restores only the blocked days.
	assert.NoError(t, l.Unblock(ctx, blockRng))
	slots, _ = l.Query(ctx, blockRng)
	assert.Equal(t, models.SlotAvailable, slots[0].Status)
	assert.Equal(t, models.SlotBooked, slots[1].Status)
}

func TestQueryOutsideHorizonReportsBlocked(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	provision(t, l, "2025-07-01", 3)

	slots, err := l.Query(ctx, mustRange(t, "2025-07-02", "2025-07-06"))
	assert.NoError(t, err)
	assert.Equal(t, models.SlotAvailable, slots[0].Status)
	assert.Equal(t, models.SlotAvailable, slots[1].Status)
	assert.Equal(t, models.SlotBlocked, slots[2].Status)
	assert.Equal(t, "outside horizon", slots[2].BlockReason)
}
