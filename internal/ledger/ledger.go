// Package ledger is the per-date availability ledger. Every calendar day
// inside the provisioned horizon is one Redis key; reserving a range is a
// single server-side script that asserts every day is available before
// marking any of them booked. The script is the sole correctness
// guarantee: workers on separate machines race through Redis, so no
// in-process lock can substitute for it.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"villabook/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var (
	// ErrConflict means at least one requested day is not available.
	// Retryable with different dates.
	ErrConflict = errors.New("dates not available")
)

const keyPrefix = "slot:"

// Slot value encoding: "available", "booked|<reservation_id>",
// "blocked|<reason>". Flat strings keep the scripts trivial.
const (
	valAvailable = "available"
	valBooked    = "booked|"
	valBlocked   = "blocked|"
)

// reserveScript asserts every key holds "available", then books all of
// them. Returns 0 on success, i (1-based) for a conflicting key, -i for a
// missing key (outside the provisioned horizon).
var reserveScript = redis.NewScript(`
for i, key in ipairs(KEYS) do
	local v = redis.call('GET', key)
	if not v then
		return -i
	end
	if v ~= 'available' then
		return i
	end
end
for _, key in ipairs(KEYS) do
	redis.call('SET', key, 'booked|' .. ARGV[1])
end
return 0
`)

// releaseScript resets only keys owned by the reservation. Re-releasing
// an already-released range touches nothing, making release idempotent.
var releaseScript = redis.NewScript(`
local owner = 'booked|' .. ARGV[1]
local released = 0
for _, key in ipairs(KEYS) do
	if redis.call('GET', key) == owner then
		redis.call('SET', key, 'available')
		released = released + 1
	end
end
return released
`)

// blockScript marks available days blocked; booked days are left alone
// and reported back so the operator knows the block was partial.
var blockScript = redis.NewScript(`
local skipped = 0
for _, key in ipairs(KEYS) do
	if redis.call('GET', key) == 'available' then
		redis.call('SET', key, 'blocked|' .. ARGV[1])
	else
		skipped = skipped + 1
	end
end
return skipped
`)

// Ledger owns all DateSlot state.
type Ledger struct {
	rdb    *redis.Client
	logger *zerolog.Logger
}

// New creates a ledger over the given Redis client.
func New(rdb *redis.Client, logger *zerolog.Logger) *Ledger {
	return &Ledger{rdb: rdb, logger: logger}
}

// TryReserve atomically books every day in [CheckIn, CheckOut). If any
// day is booked or blocked the whole call fails with ErrConflict and no
// slot changes; a day outside the horizon fails with ErrInvalidRange.
func (l *Ledger) TryReserve(ctx context.Context, rng models.DateRange, reservationID string) error {
	if err := rng.Validate(); err != nil {
		return err
	}
	if reservationID == "" {
		return fmt.Errorf("%w: empty reservation id", models.ErrInvalidRange)
	}

	keys := slotKeys(rng)
	res, err := reserveScript.Run(ctx, l.rdb, keys, reservationID).Int64()
	if err != nil {
		return fmt.Errorf("reserve script: %w", err)
	}

	switch {
	case res == 0:
		l.logger.Debug().Str("reservation_id", reservationID).
			Stringer("range", rng).Msg("range reserved")
		return nil
	case res < 0:
		date := rng.CheckIn.AddDate(0, 0, int(-res)-1)
		return fmt.Errorf("%w: %s outside provisioned horizon",
			models.ErrInvalidRange, date.Format(models.DateLayout))
	default:
		date := rng.CheckIn.AddDate(0, 0, int(res)-1)
		return fmt.Errorf("%w: %s", ErrConflict, date.Format(models.DateLayout))
	}
}

// Release returns to available only the days currently owned by the
// reservation. Releasing an already-released range is a no-op.
func (l *Ledger) Release(ctx context.Context, rng models.DateRange, reservationID string) error {
	if err := rng.Validate(); err != nil {
		return err
	}

	released, err := releaseScript.Run(ctx, l.rdb, slotKeys(rng), reservationID).Int64()
	if err != nil {
		return fmt.Errorf("release script: %w", err)
	}
	l.logger.Debug().Str("reservation_id", reservationID).
		Stringer("range", rng).Int64("released", released).Msg("range released")
	return nil
}

// Query reads the slots in a range. Advisory only: a check-then-act on
// this result races with concurrent writers, so TryReserve never relies
// on it.
func (l *Ledger) Query(ctx context.Context, rng models.DateRange) ([]models.DateSlot, error) {
	if err := rng.Validate(); err != nil {
		return nil, err
	}

	dates := rng.Dates()
	values, err := l.rdb.MGet(ctx, slotKeys(rng)...).Result()
	if err != nil {
		return nil, fmt.Errorf("query slots: %w", err)
	}

	slots := make([]models.DateSlot, len(dates))
	for i, date := range dates {
		slots[i] = decodeSlot(date, values[i])
	}
	return slots, nil
}

// Provision seeds the horizon starting at from. Existing slots are never
// overwritten, so re-provisioning over live bookings is safe. Returns the
// number of newly created slots.
func (l *Ledger) Provision(ctx context.Context, from time.Time, days int) (int, error) {
	if days <= 0 {
		return 0, fmt.Errorf("%w: horizon of %d days", models.ErrInvalidRange, days)
	}

	created := 0
	day := models.Day(from)
	for i := 0; i < days; i++ {
		ok, err := l.rdb.SetNX(ctx, keyPrefix+day.Format(models.DateLayout), valAvailable, 0).Result()
		if err != nil {
			return created, fmt.Errorf("provision %s: %w", day.Format(models.DateLayout), err)
		}
		if ok {
			created++
		}
		day = day.AddDate(0, 0, 1)
	}

	l.logger.Info().Int("days", days).Int("created", created).
		Str("from", models.Day(from).Format(models.DateLayout)).Msg("horizon provisioned")
	return created, nil
}

// Block marks every available day in the range blocked for maintenance.
// Booked days are skipped; the count of skipped days is returned.
func (l *Ledger) Block(ctx context.Context, rng models.DateRange, reason string) (int, error) {
	if err := rng.Validate(); err != nil {
		return 0, err
	}
	if reason == "" {
		reason = "maintenance"
	}
	skipped, err := blockScript.Run(ctx, l.rdb, slotKeys(rng), reason).Int64()
	if err != nil {
		return 0, fmt.Errorf("block script: %w", err)
	}
	return int(skipped), nil
}

// Unblock returns blocked days in the range to available.
func (l *Ledger) Unblock(ctx context.Context, rng models.DateRange) error {
	if err := rng.Validate(); err != nil {
		return err
	}
	slots, err := l.Query(ctx, rng)
	if err != nil {
		return err
	}
	for _, slot := range slots {
		if slot.Status != models.SlotBlocked {
			continue
		}
		key := keyPrefix + slot.Date.Format(models.DateLayout)
		if err := l.rdb.Set(ctx, key, valAvailable, 0).Err(); err != nil {
			return fmt.Errorf("unblock %s: %w", key, err)
		}
	}
	return nil
}

func slotKeys(rng models.DateRange) []string {
	dates := rng.Dates()
	keys := make([]string, len(dates))
	for i, d := range dates {
		keys[i] = keyPrefix + d.Format(models.DateLayout)
	}
	return keys
}

func decodeSlot(date time.Time, raw interface{}) models.DateSlot {
	slot := models.DateSlot{Date: date}

	value, ok := raw.(string)
	if !ok {
		// Missing key: outside the horizon. Reported as blocked so
		// display callers never offer it.
		slot.Status = models.SlotBlocked
		slot.BlockReason = "outside horizon"
		return slot
	}

	switch {
	case value == valAvailable:
		slot.Status = models.SlotAvailable
	case strings.HasPrefix(value, valBooked):
		slot.Status = models.SlotBooked
		slot.ReservationID = strings.TrimPrefix(value, valBooked)
	case strings.HasPrefix(value, valBlocked):
		slot.Status = models.SlotBlocked
		slot.BlockReason = strings.TrimPrefix(value, valBlocked)
	default:
		slot.Status = models.SlotBlocked
		slot.BlockReason = "unrecognized slot value"
	}
	return slot
}
