// Package booking orchestrates the pricing catalog, availability ledger
// and reservation registry into create/modify/cancel operations. No
// single transaction spans the ledger (Redis) and the registry (SQLite),
// so partial failure is handled by explicit compensation: a held range is
// released when a later step fails.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"villabook/internal/database"
	"villabook/internal/events"
	"villabook/internal/ledger"
	"villabook/internal/metrics"
	"villabook/internal/models"
	"villabook/internal/policy"
	"villabook/internal/registry"

	"github.com/rs/zerolog"
)

// Ledger is the availability ledger surface the coordinator drives.
type Ledger interface {
	TryReserve(ctx context.Context, rng models.DateRange, reservationID string) error
	Release(ctx context.Context, rng models.DateRange, reservationID string) error
	Query(ctx context.Context, rng models.DateRange) ([]models.DateSlot, error)
	SuggestAlternatives(ctx context.Context, rng models.DateRange, opts ledger.SuggestOptions) ([]ledger.Suggestion, error)
}

// Catalog resolves pricing for a stay.
type Catalog interface {
	Quote(ctx context.Context, rng models.DateRange) (*models.PriceBreakdown, error)
	MinimumStay(ctx context.Context, date time.Time) (int, error)
}

// Registry manages reservation records and their state machine.
type Registry interface {
	Create(ctx context.Context, draft registry.Draft) (*models.Reservation, error)
	Get(ctx context.Context, id string) (*models.Reservation, error)
	FindByGuest(ctx context.Context, guestID string) ([]models.Reservation, error)
	ConfirmPayment(ctx context.Context, id, providerTxnID string) (*models.Reservation, error)
	Cancel(ctx context.Context, id string, ev registry.Event, refund models.RefundQuote, reason string) (*models.Reservation, error)
	Complete(ctx context.Context, id string) (*models.Reservation, error)
	UpdateStay(ctx context.Context, id string, rng models.DateRange, price models.PriceBreakdown) (*models.Reservation, error)
}

// MaintenanceStore lists reservations for the background sweeps.
type MaintenanceStore interface {
	ListStalePending(ctx context.Context, cutoff time.Time) ([]models.Reservation, error)
	ListElapsedConfirmed(ctx context.Context, today time.Time) ([]models.Reservation, error)
}

// EventPublisher publishes domain events after state transitions.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// ConflictError carries alternative-date suggestions alongside the
// conflict so the caller can offer them to the guest.
type ConflictError struct {
	Alternatives []ledger.Suggestion
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("dates not available (%d alternatives)", len(e.Alternatives))
}

func (e *ConflictError) Unwrap() error { return ledger.ErrConflict }

// CreateRequest is the guest-facing input for a new reservation.
type CreateRequest struct {
	Range           models.DateRange
	Adults          int
	Children        int
	SpecialRequests string
}

// ReservationEvent is the payload published on the event bus.
type ReservationEvent struct {
	ReservationID string `json:"reservation_id"`
	GuestID       string `json:"guest_id"`
	CheckIn       string `json:"check_in"`
	CheckOut      string `json:"check_out"`
	Status        string `json:"status"`
	Total         int64  `json:"total"`
	RefundAmount  *int64 `json:"refund_amount,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

// Options tunes coordinator behavior.
type Options struct {
	// HoldWindow bounds how long an unpaid pending hold may live.
	HoldWindow time.Duration
	// SuggestionWindowDays bounds the alternative-date scan.
	SuggestionWindowDays int
	// MaxSuggestions caps returned alternatives.
	MaxSuggestions int
}

// Service is the booking coordinator.
type Service struct {
	ledger   Ledger
	catalog  Catalog
	registry Registry
	store    MaintenanceStore
	bus      EventPublisher
	opts     Options
	logger   *zerolog.Logger
	now      func() time.Time
}

// NewService wires the coordinator.
func NewService(l Ledger, c Catalog, r Registry, store MaintenanceStore, bus EventPublisher, opts Options, logger *zerolog.Logger) *Service {
	if opts.HoldWindow <= 0 {
		opts.HoldWindow = 30 * time.Minute
	}
	return &Service{
		ledger:   l,
		catalog:  c,
		registry: r,
		store:    store,
		bus:      bus,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateReservation runs the booking saga: quote, atomic hold, record.
// Pricing and minimum-stay violations reject before any side effect; the
// ledger hold is the first durable step, and a registry failure after it
// compensates by releasing the held range.
func (s *Service) CreateReservation(ctx context.Context, guestID string, req CreateRequest) (*models.Reservation, error) {
	price, err := s.catalog.Quote(ctx, req.Range)
	if err != nil {
		metrics.IncReservationCreated("rejected")
		return nil, err
	}

	reservationID := registry.NewReservationID(s.now())
	if err := s.ledger.TryReserve(ctx, req.Range, reservationID); err != nil {
		if errors.Is(err, ledger.ErrConflict) {
			metrics.IncReservationCreated("conflict")
			return nil, s.conflictWithAlternatives(ctx, req.Range)
		}
		metrics.IncReservationCreated("error")
		return nil, err
	}

	reservation, err := s.registry.Create(ctx, registry.Draft{
		ID:              reservationID,
		GuestID:         guestID,
		Range:           req.Range,
		Adults:          req.Adults,
		Children:        req.Children,
		SpecialRequests: req.SpecialRequests,
		Price:           *price,
	})
	if err != nil {
		// Saga compensation: the hold must not outlive the failed record.
		if relErr := s.ledger.Release(ctx, req.Range, reservationID); relErr != nil {
			s.logger.Error().Err(relErr).Str("reservation_id", reservationID).
				Msg("compensating release failed; slots may leak until swept")
		}
		metrics.IncReservationCreated("error")
		return nil, fmt.Errorf("create reservation: %w", err)
	}

	metrics.IncReservationCreated("ok")
	s.publish(events.TypeReservationCreated, reservation, nil, "")
	return reservation, nil
}

// ModifyReservation moves an existing reservation to a new range. The old
// hold is re-acquired when the new range is contested, so a failed modify
// leaves the reservation exactly where it was.
func (s *Service) ModifyReservation(ctx context.Context, guestID, id string, newRange models.DateRange) (*models.Reservation, error) {
	reservation, err := s.owned(ctx, guestID, id)
	if err != nil {
		return nil, err
	}
	if reservation.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: cannot modify %s reservation",
			registry.ErrInvalidTransition, reservation.Status)
	}

	price, err := s.catalog.Quote(ctx, newRange)
	if err != nil {
		return nil, err
	}

	oldRange := reservation.Range()
	if err := s.ledger.Release(ctx, oldRange, id); err != nil {
		return nil, fmt.Errorf("release current range: %w", err)
	}

	if err := s.ledger.TryReserve(ctx, newRange, id); err != nil {
		// Compensating rollback: take the old dates back.
		if reErr := s.ledger.TryReserve(ctx, oldRange, id); reErr != nil {
			s.logger.Error().Err(reErr).Str("reservation_id", id).
				Msg("failed to re-reserve original range after modify conflict")
		}
		if errors.Is(err, ledger.ErrConflict) {
			return nil, s.conflictWithAlternatives(ctx, newRange)
		}
		return nil, err
	}

	updated, err := s.registry.UpdateStay(ctx, id, newRange, *price)
	if err != nil {
		// Put the ledger back; the record still holds the old dates.
		if relErr := s.ledger.Release(ctx, newRange, id); relErr == nil {
			if reErr := s.ledger.TryReserve(ctx, oldRange, id); reErr != nil {
				s.logger.Error().Err(reErr).Str("reservation_id", id).
					Msg("failed to re-reserve original range after update failure")
			}
		}
		return nil, err
	}
	return updated, nil
}

// CancelReservation releases the held dates, applies the refund policy
// and records the cancellation.
func (s *Service) CancelReservation(ctx context.Context, guestID, id, reason string) (*models.RefundQuote, error) {
	reservation, err := s.owned(ctx, guestID, id)
	if err != nil {
		return nil, err
	}

	quote := policy.ComputeRefund(id, reservation.CheckIn, reservation.Total, s.now())
	cancelled, err := s.cancel(ctx, reservation, registry.EventExplicitCancel, quote, reason)
	if err != nil {
		return nil, err
	}

	metrics.IncReservationCancelled()
	s.publish(events.TypeReservationCancelled, cancelled, &quote.RefundAmount, reason)
	return &quote, nil
}

// MarkPaid is the payment gateway's success callback: pending becomes
// confirmed. The ledger is untouched; the hold already exists.
func (s *Service) MarkPaid(ctx context.Context, id, providerTxnID string) error {
	reservation, err := s.registry.ConfirmPayment(ctx, id, providerTxnID)
	if err != nil {
		metrics.IncPaymentOutcome("error")
		return err
	}
	metrics.IncPaymentOutcome("paid")
	s.publish(events.TypeReservationConfirmed, reservation, nil, "")
	return nil
}

// MarkPaymentFailed is the payment gateway's failure callback: the
// pending hold is cancelled and its dates released.
func (s *Service) MarkPaymentFailed(ctx context.Context, id, reason string) error {
	reservation, err := s.registry.Get(ctx, id)
	if err != nil {
		return err
	}

	quote := zeroRefund(reservation)
	cancelled, err := s.cancel(ctx, reservation, registry.EventPaymentFailed, quote, reason)
	if err != nil {
		metrics.IncPaymentOutcome("error")
		return err
	}

	metrics.IncPaymentOutcome("failed")
	s.publish(events.TypeReservationCancelled, cancelled, &quote.RefundAmount, reason)
	return nil
}

// ExpireStaleHolds cancels pending reservations older than the hold
// window through the ordinary compensating release path, so the ledger
// never accumulates orphaned holds. Returns the number expired.
func (s *Service) ExpireStaleHolds(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.opts.HoldWindow)
	stale, err := s.store.ListStalePending(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range stale {
		reservation := &stale[i]
		quote := zeroRefund(reservation)
		cancelled, err := s.cancel(ctx, reservation, registry.EventExpiry, quote, "hold expired")
		if err != nil {
			s.logger.Warn().Err(err).Str("reservation_id", reservation.ID).
				Msg("failed to expire stale hold")
			continue
		}
		expired++
		metrics.IncHoldsExpired()
		s.publish(events.TypeReservationCancelled, cancelled, &quote.RefundAmount, "hold expired")
	}
	return expired, nil
}

// CompleteElapsedStays marks confirmed reservations completed once their
// checkout day has passed. Returns the number completed.
func (s *Service) CompleteElapsedStays(ctx context.Context) (int, error) {
	elapsed, err := s.store.ListElapsedConfirmed(ctx, s.now())
	if err != nil {
		return 0, err
	}

	completed := 0
	for i := range elapsed {
		if _, err := s.registry.Complete(ctx, elapsed[i].ID); err != nil {
			s.logger.Warn().Err(err).Str("reservation_id", elapsed[i].ID).
				Msg("failed to complete elapsed stay")
			continue
		}
		completed++
	}
	return completed, nil
}

// GetReservation fetches a reservation scoped to its owner.
func (s *Service) GetReservation(ctx context.Context, guestID, id string) (*models.Reservation, error) {
	return s.owned(ctx, guestID, id)
}

// ListReservations lists the guest's own reservations.
func (s *Service) ListReservations(ctx context.Context, guestID string) ([]models.Reservation, error) {
	return s.registry.FindByGuest(ctx, guestID)
}

// Availability is the advisory calendar read for display.
func (s *Service) Availability(ctx context.Context, rng models.DateRange) ([]models.DateSlot, error) {
	return s.ledger.Query(ctx, rng)
}

// cancel is the shared compensating path: release first so the dates are
// sellable again even if the record update loses a race, then apply the
// cancelling transition. Release only touches slots owned by this
// reservation, so repeating it is harmless.
func (s *Service) cancel(ctx context.Context, reservation *models.Reservation, ev registry.Event, quote models.RefundQuote, reason string) (*models.Reservation, error) {
	if err := s.ledger.Release(ctx, reservation.Range(), reservation.ID); err != nil {
		return nil, fmt.Errorf("release dates: %w", err)
	}
	return s.registry.Cancel(ctx, reservation.ID, ev, quote, reason)
}

// owned returns the reservation only to its owner. A foreign id gets the
// same generic not-found as an absent record, so error responses never
// leak which reservations exist.
func (s *Service) owned(ctx context.Context, guestID, id string) (*models.Reservation, error) {
	reservation, err := s.registry.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if reservation.GuestID != guestID {
		return nil, fmt.Errorf("%w: reservation %s", database.ErrNotFound, id)
	}
	return reservation, nil
}

func (s *Service) conflictWithAlternatives(ctx context.Context, rng models.DateRange) error {
	suggestions, err := s.ledger.SuggestAlternatives(ctx, rng, ledger.SuggestOptions{
		WindowDays:     s.opts.SuggestionWindowDays,
		MaxSuggestions: s.opts.MaxSuggestions,
		Today:          s.now(),
		MinStay:        s.catalog.MinimumStay,
	})
	if err != nil {
		s.logger.Warn().Err(err).Stringer("range", rng).
			Msg("alternative-date scan failed")
	}
	return &ConflictError{Alternatives: suggestions}
}

func (s *Service) publish(eventType string, r *models.Reservation, refund *int64, reason string) {
	payload := ReservationEvent{
		ReservationID: r.ID,
		GuestID:       r.GuestID,
		CheckIn:       r.CheckIn.Format(models.DateLayout),
		CheckOut:      r.CheckOut.Format(models.DateLayout),
		Status:        string(r.Status),
		Total:         r.Total,
		RefundAmount:  refund,
		Reason:        reason,
	}
	if err := s.bus.PublishJSON(eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("publish failed")
	}
}

func zeroRefund(r *models.Reservation) models.RefundQuote {
	return models.RefundQuote{
		ReservationID: r.ID,
		Tier:          models.RefundNone,
		RefundAmount:  0,
		TotalAmount:   r.Total,
	}
}
