package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/arbiterhq/arbiter/internal/core"
)

var _ core.StateStore = (*SQLiteStore)(nil)

// GetFlag returns the flag row for key, or ok=false when absent.
func (s *SQLiteStore) GetFlag(ctx context.Context, key string) (core.SystemFlag, bool, error) {
	var (
		flag          core.SystemFlag
		updatedAtUnix int64
	)
	err := s.db.QueryRowContext(ctx, `
SELECT key, value, updated_at_unix FROM system_state WHERE key = ?
`, key).Scan(&flag.Key, &flag.Value, &updatedAtUnix)
	if errors.Is(err, sql.ErrNoRows) {
		return core.SystemFlag{}, false, nil
	}
	if err != nil {
		return core.SystemFlag{}, false, fmt.Errorf("reading system flag %q: %w", key, err)
	}
	flag.UpdatedAt = time.Unix(updatedAtUnix, 0).UTC()
	return flag, true, nil
}

// SetFlag upserts the flag, refreshing the timestamp on update.
func (s *SQLiteStore) SetFlag(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO system_state (key, value, updated_at_unix) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at_unix = excluded.updated_at_unix
`, key, value, time.Now().UTC().Unix())
	if err != nil {
		return fmt.Errorf("upserting system flag %q: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) seedKillSwitch(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
INSERT OR IGNORE INTO system_state (key, value, updated_at_unix) VALUES (?, ?, ?)
`, core.KillSwitchKey, core.FlagDisabled, time.Now().UTC().Unix())
	if err != nil {
		return fmt.Errorf("seeding kill switch flag: %w", err)
	}
	return nil
}
