package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"villabook/internal/models"
)

// InsertSeason appends a seasonal rate period. An active season that
// overlaps an existing active season is rejected with ErrSeasonOverlap:
// the pricing invariant requires at most one covering season per day.
func (db *DB) InsertSeason(ctx context.Context, s models.SeasonRate) error {
	if models.Day(s.StartDate).After(models.Day(s.EndDate)) {
		return fmt.Errorf("%w: season %s", models.ErrInvalidRange, s.SeasonID)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if s.Active {
		var overlapping int
		err = tx.QueryRowContext(ctx, `
			SELECT COUNT(1) FROM seasons
			WHERE active = 1 AND season_id != ?
			  AND start_date <= ? AND end_date >= ?`,
			s.SeasonID,
			s.EndDate.Format(models.DateLayout),
			s.StartDate.Format(models.DateLayout),
		).Scan(&overlapping)
		if err != nil {
			return fmt.Errorf("check overlap: %w", err)
		}
		if overlapping > 0 {
			return fmt.Errorf("%w: %s", ErrSeasonOverlap, s.SeasonID)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO seasons (season_id, name, start_date, end_date,
			nightly_rate, minimum_nights, cleaning_fee, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.SeasonID, s.Name,
		s.StartDate.Format(models.DateLayout), s.EndDate.Format(models.DateLayout),
		s.NightlyRate, s.MinimumNights, s.CleaningFee, s.Active,
	)
	if err != nil {
		return fmt.Errorf("insert season: %w", err)
	}
	return tx.Commit()
}

// ActiveSeasons returns all active seasons ordered by start date.
func (db *DB) ActiveSeasons(ctx context.Context) ([]models.SeasonRate, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT season_id, name, start_date, end_date, nightly_rate,
		       minimum_nights, cleaning_fee, active
		FROM seasons WHERE active = 1 ORDER BY start_date`)
	if err != nil {
		return nil, fmt.Errorf("list seasons: %w", err)
	}
	defer rows.Close()

	var out []models.SeasonRate
	for rows.Next() {
		s, err := scanSeason(rows)
		if err != nil {
			return nil, fmt.Errorf("scan season: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// SeasonCoveringDate returns the active season covering the given day, or
// ErrNotFound when the day falls in a coverage gap.
func (db *DB) SeasonCoveringDate(ctx context.Context, date string) (*models.SeasonRate, error) {
	row := db.QueryRowContext(ctx, `
		SELECT season_id, name, start_date, end_date, nightly_rate,
		       minimum_nights, cleaning_fee, active
		FROM seasons
		WHERE active = 1 AND start_date <= ? AND end_date >= ?
		LIMIT 1`, date, date)
	s, err := scanSeason(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no season covering %s", ErrNotFound, date)
	}
	if err != nil {
		return nil, fmt.Errorf("season covering: %w", err)
	}
	return s, nil
}

func scanSeason(s scanner) (*models.SeasonRate, error) {
	var (
		season     models.SeasonRate
		start, end string
	)
	err := s.Scan(&season.SeasonID, &season.Name, &start, &end,
		&season.NightlyRate, &season.MinimumNights, &season.CleaningFee,
		&season.Active)
	if err != nil {
		return nil, err
	}
	if season.StartDate, err = models.ParseDate(start); err != nil {
		return nil, err
	}
	if season.EndDate, err = models.ParseDate(end); err != nil {
		return nil, err
	}
	return &season, nil
}
