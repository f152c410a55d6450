package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"roomreserve/internal/config"

	"github.com/rs/zerolog"
)

const snapshotPrefix = "reservations_"

// Snapshotter periodically copies the SQLite store into a directory of
// point-in-time files and prunes the ones older than the retention window.
type Snapshotter struct {
	db     *DB
	cfg    config.SnapshotConfig
	now    func() time.Time
	logger *zerolog.Logger
}

func NewSnapshotter(db *DB, cfg config.SnapshotConfig, logger *zerolog.Logger) *Snapshotter {
	return &Snapshotter{db: db, cfg: cfg, now: time.Now, logger: logger}
}

func (s *Snapshotter) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		return
	}
	interval := s.cfg.Interval
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	s.logger.Info().Dur("interval", interval).Str("dir", s.cfg.Dir).Msg("snapshots enabled")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if path, err := s.Snapshot(ctx); err != nil {
			s.logger.Error().Err(err).Msg("snapshot failed")
		} else {
			s.logger.Info().Str("path", path).Msg("snapshot written")
		}
		if err := s.Prune(); err != nil {
			s.logger.Warn().Err(err).Msg("snapshot cleanup failed")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Snapshot writes a consistent copy of the database with VACUUM INTO and
// returns the file path.
func (s *Snapshotter) Snapshot(ctx context.Context) (string, error) {
	if err := os.MkdirAll(s.cfg.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create snapshot directory: %w", err)
	}

	name := snapshotPrefix + s.now().UTC().Format("20060102_150405") + ".db"
	path := filepath.Join(s.cfg.Dir, name)
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("snapshot %s already exists", name)
	}

	quoted := strings.ReplaceAll(path, "'", "''")
	if _, err := s.db.ExecContext(ctx, "VACUUM INTO '"+quoted+"'"); err != nil {
		return "", fmt.Errorf("vacuum into %s: %w", path, err)
	}
	return path, nil
}

// Prune removes snapshot files older than RetentionDays. Zero keeps everything.
func (s *Snapshotter) Prune() error {
	if s.cfg.RetentionDays <= 0 {
		return nil
	}

	entries, err := os.ReadDir(s.cfg.Dir)
	if err != nil {
		return fmt.Errorf("read snapshot directory: %w", err)
	}

	cutoff := s.now().AddDate(0, 0, -s.cfg.RetentionDays)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), snapshotPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.cfg.Dir, entry.Name())); err != nil {
			return fmt.Errorf("remove %s: %w", entry.Name(), err)
		}
		s.logger.Debug().Str("file", entry.Name()).Msg("old snapshot removed")
	}
	return nil
}
