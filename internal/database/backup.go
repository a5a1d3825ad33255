package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// BackupOptions tunes the periodic database backup.
type BackupOptions struct {
	Dir           string
	Interval      time.Duration
	RetentionDays int
}

// Backup writes a consistent snapshot of the live database into dir via
// VACUUM INTO, which is safe while other connections write under WAL.
// Returns the snapshot path.
func (db *DB) Backup(ctx context.Context, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("villabook_%s.db", time.Now().UTC().Format("20060102_150405")))
	if _, err := db.ExecContext(ctx, `VACUUM INTO ?`, path); err != nil {
		return "", fmt.Errorf("vacuum into %s: %w", path, err)
	}

	db.logger.Info().Str("path", path).Msg("database backed up")
	return path, nil
}

// RunBackups takes a snapshot immediately and then on every interval tick
// until the context is cancelled. Old snapshots past the retention window
// are pruned after each run.
func (db *DB) RunBackups(ctx context.Context, opts BackupOptions) {
	if opts.Interval <= 0 {
		opts.Interval = 24 * time.Hour
	}

	run := func() {
		if _, err := db.Backup(ctx, opts.Dir); err != nil {
			db.logger.Error().Err(err).Msg("backup failed")
			return
		}
		db.pruneBackups(opts)
	}

	run()
	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}

func (db *DB) pruneBackups(opts BackupOptions) {
	if opts.RetentionDays <= 0 {
		return
	}

	entries, err := os.ReadDir(opts.Dir)
	if err != nil {
		db.logger.Error().Err(err).Msg("read backup directory")
		return
	}

	cutoff := time.Now().AddDate(0, 0, -opts.RetentionDays)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		db.logger.Info().Str("file", entry.Name()).Msg("pruning old backup")
		_ = os.Remove(filepath.Join(opts.Dir, entry.Name()))
	}
}
