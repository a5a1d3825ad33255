// Package report builds the admin xlsx export of reservations and
// seasonal rates.
package report

import (
	"context"
	"fmt"
	"io"

	"villabook/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// Store supplies the data for the export.
type Store interface {
	ListAllReservations(ctx context.Context) ([]models.Reservation, error)
	ActiveSeasons(ctx context.Context) ([]models.SeasonRate, error)
}

// Exporter writes xlsx reports.
type Exporter struct {
	store  Store
	logger *zerolog.Logger
}

// NewExporter creates an exporter over the store.
func NewExporter(store Store, logger *zerolog.Logger) *Exporter {
	return &Exporter{store: store, logger: logger}
}

// WriteXLSX writes a workbook with a Reservations and a Seasons sheet.
func (e *Exporter) WriteXLSX(ctx context.Context, w io.Writer) error {
	reservations, err := e.store.ListAllReservations(ctx)
	if err != nil {
		return fmt.Errorf("load reservations: %w", err)
	}
	seasons, err := e.store.ActiveSeasons(ctx)
	if err != nil {
		return fmt.Errorf("load seasons: %w", err)
	}

	file := excelize.NewFile()
	defer file.Close()

	file.SetSheetName("Sheet1", "Reservations")
	if err := e.writeReservations(file, reservations); err != nil {
		return err
	}

	if _, err := file.NewSheet("Seasons"); err != nil {
		return fmt.Errorf("create seasons sheet: %w", err)
	}
	if err := e.writeSeasons(file, seasons); err != nil {
		return err
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	e.logger.Info().Int("reservations", len(reservations)).
		Int("seasons", len(seasons)).Msg("report exported")
	return nil
}

func (e *Exporter) writeReservations(file *excelize.File, reservations []models.Reservation) error {
	header := []interface{}{
		"Reservation", "Guest", "Check-in", "Check-out", "Nights",
		"Status", "Payment", "Total (cents)", "Refund (cents)", "Created",
	}
	if err := writeRow(file, "Reservations", 1, header); err != nil {
		return err
	}

	for i, r := range reservations {
		refund := ""
		if r.RefundAmount != nil {
			refund = fmt.Sprintf("%d", *r.RefundAmount)
		}
		row := []interface{}{
			r.ID, r.GuestID,
			r.CheckIn.Format(models.DateLayout), r.CheckOut.Format(models.DateLayout),
			r.Nights, string(r.Status), string(r.PaymentStatus),
			r.Total, refund, r.CreatedAt.Format("2006-01-02 15:04"),
		}
		if err := writeRow(file, "Reservations", i+2, row); err != nil {
			return err
		}
	}
	return boldHeader(file, "Reservations", len(header))
}

func (e *Exporter) writeSeasons(file *excelize.File, seasons []models.SeasonRate) error {
	header := []interface{}{
		"Season", "Name", "Start", "End", "Nightly (cents)",
		"Min nights", "Cleaning fee (cents)",
	}
	if err := writeRow(file, "Seasons", 1, header); err != nil {
		return err
	}

	for i, s := range seasons {
		row := []interface{}{
			s.SeasonID, s.Name,
			s.StartDate.Format(models.DateLayout), s.EndDate.Format(models.DateLayout),
			s.NightlyRate, s.MinimumNights, s.CleaningFee,
		}
		if err := writeRow(file, "Seasons", i+2, row); err != nil {
			return err
		}
	}
	return boldHeader(file, "Seasons", len(header))
}

func writeRow(file *excelize.File, sheet string, row int, values []interface{}) error {
	for i, value := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := file.SetCellValue(sheet, cell, value); err != nil {
			return fmt.Errorf("set cell %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}

func boldHeader(file *excelize.File, sheet string, columns int) error {
	style, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil
	}
	start, _ := excelize.CoordinatesToCellName(1, 1)
	end, _ := excelize.CoordinatesToCellName(columns, 1)
	_ = file.SetCellStyle(sheet, start, end, style)
	return nil
}
