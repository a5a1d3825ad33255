// Package guard is the authorization boundary around the booking core.
// Every call carries a verified identity issued by the external auth
// collaborator; caller-supplied guest identifiers are never trusted. A
// reservation belonging to someone else is answered with the same generic
// not-found as an absent record, so errors cannot be used to probe which
// reservations exist.
package guard

import (
	"context"
	"errors"
	"fmt"

	"villabook/internal/booking"
	"villabook/internal/database"
	"villabook/internal/models"

	"github.com/casbin/casbin"
	"github.com/rs/zerolog"
)

// ErrDenied means the identity's role lacks the permission outright.
var ErrDenied = errors.New("permission denied")

// Roles known to the guardrail.
const (
	RoleGuest = "guest"
	RoleAdmin = "admin"
)

// Identity is a verified principal from the auth collaborator.
type Identity struct {
	GuestID string
	Role    string
}

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
`

// Service is the coordinator surface the guardrail wraps.
type Service interface {
	CreateReservation(ctx context.Context, guestID string, req booking.CreateRequest) (*models.Reservation, error)
	ModifyReservation(ctx context.Context, guestID, id string, newRange models.DateRange) (*models.Reservation, error)
	CancelReservation(ctx context.Context, guestID, id, reason string) (*models.RefundQuote, error)
	GetReservation(ctx context.Context, guestID, id string) (*models.Reservation, error)
	ListReservations(ctx context.Context, guestID string) ([]models.Reservation, error)
	Availability(ctx context.Context, rng models.DateRange) ([]models.DateSlot, error)
}

// Guard scopes every mutation and read to the verified identity.
type Guard struct {
	svc      Service
	enforcer *casbin.Enforcer
	logger   *zerolog.Logger
}

// New builds the guardrail with its in-code RBAC policy.
func New(svc Service, logger *zerolog.Logger) *Guard {
	enforcer := casbin.NewEnforcer(casbin.NewModel(rbacModel))

	enforcer.AddPolicy(RoleGuest, "reservation", "create")
	enforcer.AddPolicy(RoleGuest, "reservation", "modify")
	enforcer.AddPolicy(RoleGuest, "reservation", "cancel")
	enforcer.AddPolicy(RoleGuest, "reservation", "read")
	enforcer.AddPolicy(RoleGuest, "availability", "read")
	enforcer.AddPolicy(RoleAdmin, "report", "export")
	enforcer.AddGroupingPolicy(RoleAdmin, RoleGuest)

	return &Guard{svc: svc, enforcer: enforcer, logger: logger}
}

// CreateReservation books for the verified identity only.
func (g *Guard) CreateReservation(ctx context.Context, id Identity, req booking.CreateRequest) (*models.Reservation, error) {
	if err := g.allow(id, "reservation", "create"); err != nil {
		return nil, err
	}
	return g.svc.CreateReservation(ctx, id.GuestID, req)
}

// ModifyReservation moves the identity's own reservation.
func (g *Guard) ModifyReservation(ctx context.Context, id Identity, reservationID string, newRange models.DateRange) (*models.Reservation, error) {
	if err := g.allow(id, "reservation", "modify"); err != nil {
		return nil, err
	}
	return g.svc.ModifyReservation(ctx, id.GuestID, reservationID, newRange)
}

// CancelReservation cancels the identity's own reservation.
func (g *Guard) CancelReservation(ctx context.Context, id Identity, reservationID, reason string) (*models.RefundQuote, error) {
	if err := g.allow(id, "reservation", "cancel"); err != nil {
		return nil, err
	}
	return g.svc.CancelReservation(ctx, id.GuestID, reservationID, reason)
}

// GetReservation fetches one of the identity's reservations. Foreign or
// absent ids are indistinguishable in the response.
func (g *Guard) GetReservation(ctx context.Context, id Identity, reservationID string) (*models.Reservation, error) {
	if err := g.allow(id, "reservation", "read"); err != nil {
		return nil, err
	}
	reservation, err := g.svc.GetReservation(ctx, id.GuestID, reservationID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("%w: reservation %s", database.ErrNotFound, reservationID)
		}
		return nil, err
	}
	return reservation, nil
}

// ListReservations is always scoped to the identity's own guest id,
// whatever the caller asked for.
func (g *Guard) ListReservations(ctx context.Context, id Identity) ([]models.Reservation, error) {
	if err := g.allow(id, "reservation", "read"); err != nil {
		return nil, err
	}
	return g.svc.ListReservations(ctx, id.GuestID)
}

// Availability is a read-only calendar view, open to any valid identity.
func (g *Guard) Availability(ctx context.Context, id Identity, rng models.DateRange) ([]models.DateSlot, error) {
	if err := g.allow(id, "availability", "read"); err != nil {
		return nil, err
	}
	return g.svc.Availability(ctx, rng)
}

// CanExportReports gates the admin report surface.
func (g *Guard) CanExportReports(id Identity) bool {
	return g.enforcer.Enforce(id.Role, "report", "export")
}

func (g *Guard) allow(id Identity, object, action string) error {
	if id.GuestID == "" || id.Role == "" {
		return fmt.Errorf("%w: unauthenticated", ErrDenied)
	}
	if !g.enforcer.Enforce(id.Role, object, action) {
		g.logger.Warn().Str("role", id.Role).Str("object", object).
			Str("action", action).Msg("permission denied")
		return fmt.Errorf("%w: %s %s", ErrDenied, action, object)
	}
	return nil
}
