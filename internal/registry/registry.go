// Package registry owns reservation records and the closed state machine
// over their lifecycle. Every transition re-validates the stored state
// under an optimistic version check so racing modify/cancel calls cannot
// silently overwrite each other.
package registry

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"villabook/internal/database"
	"villabook/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var ErrInvalidTransition = errors.New("invalid transition")

// Event drives the reservation state machine.
type Event string

const (
	EventPaymentSucceeded Event = "payment_succeeded"
	EventPaymentFailed    Event = "payment_failed"
	EventExplicitCancel   Event = "explicit_cancel"
	EventExpiry           Event = "expiry"
	EventCheckoutElapsed  Event = "checkout_elapsed"
)

// transitions is the complete state machine. pending is the only initial
// state; cancelled and completed are terminal.
var transitions = map[models.ReservationStatus]map[Event]models.ReservationStatus{
	models.StatusPending: {
		EventPaymentSucceeded: models.StatusConfirmed,
		EventPaymentFailed:    models.StatusCancelled,
		EventExplicitCancel:   models.StatusCancelled,
		EventExpiry:           models.StatusCancelled,
	},
	models.StatusConfirmed: {
		EventExplicitCancel:  models.StatusCancelled,
		EventCheckoutElapsed: models.StatusCompleted,
	},
}

// Next resolves the target state for an event, if the transition exists.
func Next(from models.ReservationStatus, ev Event) (models.ReservationStatus, bool) {
	to, ok := transitions[from][ev]
	return to, ok
}

// Store is the persistence surface the registry needs.
type Store interface {
	InsertReservation(ctx context.Context, r *models.Reservation) error
	GetReservation(ctx context.Context, id string) (*models.Reservation, error)
	ListReservationsByGuest(ctx context.Context, guestID string) ([]models.Reservation, error)
	UpdateReservationStatus(ctx context.Context, id string, version int64, upd database.StatusUpdate) error
	UpdateReservationStay(ctx context.Context, id string, version int64, rng models.DateRange, price models.PriceBreakdown) error
}

// Draft is the input for a new reservation. The price snapshot comes from
// the pricing catalog and is stored immutably. ID may be pre-generated by
// the coordinator, which writes it onto the ledger before the record
// exists; left empty, the registry generates one.
type Draft struct {
	ID              string
	GuestID         string `validate:"required"`
	Range           models.DateRange
	Adults          int `validate:"gte=1"`
	Children        int `validate:"gte=0"`
	SpecialRequests string
	Price           models.PriceBreakdown
}

// Registry manages reservation records.
type Registry struct {
	store    Store
	validate *validator.Validate
	logger   *zerolog.Logger
	now      func() time.Time
}

// New creates a registry over the given store.
func New(store Store, logger *zerolog.Logger) *Registry {
	return &Registry{
		store:    store,
		validate: validator.New(),
		logger:   logger,
		now:      time.Now,
	}
}

// NewReservationID generates an opaque id like RES-2025-3FA8C1.
func NewReservationID(t time.Time) string {
	raw := uuid.New()
	return fmt.Sprintf("RES-%d-%s", t.Year(),
		strings.ToUpper(hex.EncodeToString(raw[:])[:6]))
}

// Create stores a new reservation in the pending state.
func (r *Registry) Create(ctx context.Context, draft Draft) (*models.Reservation, error) {
	if err := r.validate.Struct(draft); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidRange, err)
	}
	if err := draft.Range.Validate(); err != nil {
		return nil, err
	}

	now := r.now().UTC()
	id := draft.ID
	if id == "" {
		id = NewReservationID(now)
	}
	reservation := &models.Reservation{
		ID:              id,
		GuestID:         draft.GuestID,
		CheckIn:         draft.Range.CheckIn,
		CheckOut:        draft.Range.CheckOut,
		Adults:          draft.Adults,
		Children:        draft.Children,
		Status:          models.StatusPending,
		PaymentStatus:   models.PaymentPending,
		Nights:          draft.Price.Nights,
		BasePrice:       draft.Price.BasePrice,
		CleaningFee:     draft.Price.CleaningFee,
		Total:           draft.Price.Total,
		SpecialRequests: draft.SpecialRequests,
		CreatedAt:       now,
		UpdatedAt:       now,
		Version:         1,
	}

	if err := r.store.InsertReservation(ctx, reservation); err != nil {
		return nil, err
	}

	r.logger.Info().Str("reservation_id", reservation.ID).
		Str("guest_id", reservation.GuestID).
		Stringer("range", reservation.Range()).
		Int64("total", reservation.Total).Msg("reservation created")
	return reservation, nil
}

// Get fetches one reservation. Guest scoping is the guardrail's job.
func (r *Registry) Get(ctx context.Context, id string) (*models.Reservation, error) {
	return r.store.GetReservation(ctx, id)
}

// FindByGuest lists a guest's reservations ordered by check-in.
func (r *Registry) FindByGuest(ctx context.Context, guestID string) ([]models.Reservation, error) {
	return r.store.ListReservationsByGuest(ctx, guestID)
}

// Transition applies a bare state machine event.
func (r *Registry) Transition(ctx context.Context, id string, ev Event) (*models.Reservation, error) {
	return r.apply(ctx, id, ev, func(res *models.Reservation, to models.ReservationStatus) database.StatusUpdate {
		upd := database.StatusUpdate{Status: to}
		if ev == EventPaymentSucceeded {
			upd.PaymentStatus = models.PaymentPaid
		}
		return upd
	})
}

// ConfirmPayment moves pending to confirmed and records the provider
// transaction id reported by the payment gateway.
func (r *Registry) ConfirmPayment(ctx context.Context, id, providerTxnID string) (*models.Reservation, error) {
	return r.apply(ctx, id, EventPaymentSucceeded, func(res *models.Reservation, to models.ReservationStatus) database.StatusUpdate {
		return database.StatusUpdate{
			Status:        to,
			PaymentStatus: models.PaymentPaid,
			ProviderTxnID: providerTxnID,
		}
	})
}

// Cancel applies a cancelling event and records the refund outcome in the
// same conditional update. A refund equal to the total marks the payment
// refunded, a partial amount marks it partially refunded, and a zero
// refund leaves the stored payment status alone.
func (r *Registry) Cancel(ctx context.Context, id string, ev Event, refund models.RefundQuote, reason string) (*models.Reservation, error) {
	switch ev {
	case EventPaymentFailed, EventExplicitCancel, EventExpiry:
	default:
		return nil, fmt.Errorf("%w: %s is not a cancelling event", ErrInvalidTransition, ev)
	}

	return r.apply(ctx, id, ev, func(res *models.Reservation, to models.ReservationStatus) database.StatusUpdate {
		now := r.now().UTC()
		amount := refund.RefundAmount
		upd := database.StatusUpdate{
			Status:             to,
			CancelledAt:        &now,
			CancellationReason: reason,
			RefundAmount:       &amount,
		}
		switch {
		case amount > 0 && amount == res.Total:
			upd.PaymentStatus = models.PaymentRefunded
		case amount > 0:
			upd.PaymentStatus = models.PaymentPartialRefund
		}
		return upd
	})
}

// Complete marks a confirmed reservation completed after checkout.
func (r *Registry) Complete(ctx context.Context, id string) (*models.Reservation, error) {
	return r.Transition(ctx, id, EventCheckoutElapsed)
}

// UpdateStay rewrites dates and pricing snapshot for the modify path.
// Payment status carries forward untouched; terminal states reject.
func (r *Registry) UpdateStay(ctx context.Context, id string, rng models.DateRange, price models.PriceBreakdown) (*models.Reservation, error) {
	current, err := r.store.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: cannot modify %s reservation %s",
			ErrInvalidTransition, current.Status, id)
	}

	if err := r.store.UpdateReservationStay(ctx, id, current.Version, rng, price); err != nil {
		return nil, err
	}
	return r.store.GetReservation(ctx, id)
}

func (r *Registry) apply(ctx context.Context, id string, ev Event,
	mod func(*models.Reservation, models.ReservationStatus) database.StatusUpdate) (*models.Reservation, error) {

	current, err := r.store.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}

	to, ok := Next(current.Status, ev)
	if !ok {
		return nil, fmt.Errorf("%w: %s + %s", ErrInvalidTransition, current.Status, ev)
	}

	if err := r.store.UpdateReservationStatus(ctx, id, current.Version, mod(current, to)); err != nil {
		return nil, err
	}

	r.logger.Info().Str("reservation_id", id).
		Str("from", string(current.Status)).Str("to", string(to)).
		Str("event", string(ev)).Msg("reservation transitioned")
	return r.store.GetReservation(ctx, id)
}
