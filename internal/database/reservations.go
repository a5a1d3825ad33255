package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"villabook/internal/models"
)

const reservationColumns = `id, guest_id, check_in, check_out, adults, children,
	status, payment_status, nights, base_price, cleaning_fee, total,
	special_requests, provider_txn_id, cancelled_at, cancellation_reason,
	refund_amount, created_at, updated_at, version`

// StatusUpdate describes the fields applied together with a status change.
// Zero values leave the stored column untouched.
type StatusUpdate struct {
	Status             models.ReservationStatus
	PaymentStatus      models.PaymentStatus
	ProviderTxnID      string
	CancelledAt        *time.Time
	CancellationReason string
	RefundAmount       *int64
}

// InsertReservation stores a new reservation record.
func (db *DB) InsertReservation(ctx context.Context, r *models.Reservation) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO reservations (`+reservationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.GuestID,
		r.CheckIn.Format(models.DateLayout), r.CheckOut.Format(models.DateLayout),
		r.Adults, r.Children, r.Status, r.PaymentStatus,
		r.Nights, r.BasePrice, r.CleaningFee, r.Total,
		nullString(r.SpecialRequests), nullString(r.ProviderTxnID),
		nullTime(r.CancelledAt), nullString(r.CancellationReason),
		nullInt(r.RefundAmount), r.CreatedAt, r.UpdatedAt, r.Version,
	)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			return fmt.Errorf("%w: %s", ErrDuplicateID, r.ID)
		}
		return fmt.Errorf("insert reservation: %w", err)
	}
	return nil
}

// GetReservation fetches one reservation by id.
func (db *DB) GetReservation(ctx context.Context, id string) (*models.Reservation, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
	r, err := scanReservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: reservation %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	return r, nil
}

// ListReservationsByGuest returns a guest's reservations ordered by check-in.
func (db *DB) ListReservationsByGuest(ctx context.Context, guestID string) ([]models.Reservation, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations
		 WHERE guest_id = ? ORDER BY check_in`, guestID)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()
	return collectReservations(rows)
}

// UpdateReservationStatus applies a status change only when the stored
// version still matches the caller's copy. A losing writer gets
// ErrConcurrentModification and must re-read and retry.
func (db *DB) UpdateReservationStatus(ctx context.Context, id string, version int64, upd StatusUpdate) error {
	set := []string{"status = ?", "updated_at = ?", "version = version + 1"}
	args := []interface{}{upd.Status, time.Now().UTC()}

	if upd.PaymentStatus != "" {
		set = append(set, "payment_status = ?")
		args = append(args, upd.PaymentStatus)
	}
	if upd.ProviderTxnID != "" {
		set = append(set, "provider_txn_id = ?")
		args = append(args, upd.ProviderTxnID)
	}
	if upd.CancelledAt != nil {
		set = append(set, "cancelled_at = ?")
		args = append(args, *upd.CancelledAt)
	}
	if upd.CancellationReason != "" {
		set = append(set, "cancellation_reason = ?")
		args = append(args, upd.CancellationReason)
	}
	if upd.RefundAmount != nil {
		set = append(set, "refund_amount = ?")
		args = append(args, *upd.RefundAmount)
	}

	args = append(args, id, version)
	res, err := db.ExecContext(ctx,
		`UPDATE reservations SET `+strings.Join(set, ", ")+` WHERE id = ? AND version = ?`,
		args...)
	if err != nil {
		return fmt.Errorf("update reservation status: %w", err)
	}
	return db.checkAffected(ctx, res, id)
}

// UpdateReservationStay rewrites the stay dates and pricing snapshot under
// the same optimistic version check. Payment status is untouched.
func (db *DB) UpdateReservationStay(ctx context.Context, id string, version int64, rng models.DateRange, price models.PriceBreakdown) error {
	res, err := db.ExecContext(ctx, `
		UPDATE reservations
		SET check_in = ?, check_out = ?, nights = ?, base_price = ?,
		    cleaning_fee = ?, total = ?, updated_at = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		rng.CheckIn.Format(models.DateLayout), rng.CheckOut.Format(models.DateLayout),
		price.Nights, price.BasePrice, price.CleaningFee, price.Total,
		time.Now().UTC(), id, version,
	)
	if err != nil {
		return fmt.Errorf("update reservation stay: %w", err)
	}
	return db.checkAffected(ctx, res, id)
}

// ListStalePending returns pending reservations created before the cutoff.
func (db *DB) ListStalePending(ctx context.Context, cutoff time.Time) ([]models.Reservation, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations
		 WHERE status = ? AND created_at < ? ORDER BY created_at`,
		models.StatusPending, cutoff.UTC())
	if err != nil {
		return nil, fmt.Errorf("list stale pending: %w", err)
	}
	defer rows.Close()
	return collectReservations(rows)
}

// ListElapsedConfirmed returns confirmed reservations whose checkout has
// passed.
func (db *DB) ListElapsedConfirmed(ctx context.Context, today time.Time) ([]models.Reservation, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations
		 WHERE status = ? AND check_out <= ? ORDER BY check_out`,
		models.StatusConfirmed, models.Day(today).Format(models.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("list elapsed confirmed: %w", err)
	}
	defer rows.Close()
	return collectReservations(rows)
}

// ListAllReservations returns every reservation ordered by check-in.
func (db *DB) ListAllReservations(ctx context.Context) ([]models.Reservation, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations ORDER BY check_in`)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()
	return collectReservations(rows)
}

func (db *DB) checkAffected(ctx context.Context, res sql.Result, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var exists int
	err = db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM reservations WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check existence: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("%w: reservation %s", ErrNotFound, id)
	}
	return fmt.Errorf("%w: reservation %s", ErrConcurrentModification, id)
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanReservation(s scanner) (*models.Reservation, error) {
	var (
		r                  models.Reservation
		checkIn, checkOut  string
		special, txn       sql.NullString
		cancelledAt        sql.NullTime
		cancellationReason sql.NullString
		refund             sql.NullInt64
	)
	err := s.Scan(
		&r.ID, &r.GuestID, &checkIn, &checkOut, &r.Adults, &r.Children,
		&r.Status, &r.PaymentStatus, &r.Nights, &r.BasePrice, &r.CleaningFee,
		&r.Total, &special, &txn, &cancelledAt, &cancellationReason,
		&refund, &r.CreatedAt, &r.UpdatedAt, &r.Version,
	)
	if err != nil {
		return nil, err
	}

	if r.CheckIn, err = models.ParseDate(checkIn); err != nil {
		return nil, err
	}
	if r.CheckOut, err = models.ParseDate(checkOut); err != nil {
		return nil, err
	}
	r.SpecialRequests = special.String
	r.ProviderTxnID = txn.String
	r.CancellationReason = cancellationReason.String
	if cancelledAt.Valid {
		t := cancelledAt.Time
		r.CancelledAt = &t
	}
	if refund.Valid {
		v := refund.Int64
		r.RefundAmount = &v
	}
	return &r, nil
}

func collectReservations(rows *sql.Rows) ([]models.Reservation, error) {
	var out []models.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
