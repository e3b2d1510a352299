package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/rs/zerolog/log"
)

// activeWindow is how long a session without an end stamp counts as
// possibly still running.
const activeWindow = 24 * time.Hour

// RetentionPolicy controls session cleanup.
type RetentionPolicy struct {
	KeepLast int
	KeepDays int
}

// PruneResult summarizes a prune operation.
type PruneResult struct {
	Considered  int `json:"considered"`
	Kept        int `json:"kept"`
	Deleted     int `json:"deleted"`
	Skipped     int `json:"skipped"`
	Screenshots int `json:"screenshots"`
}

type sessionRow struct {
	id        string
	startedAt time.Time
	ended     bool
	parseErr  error
}

// Prune deletes sessions outside policy together with their events and
// the screenshot files they recorded. The newest KeepLast sessions and
// sessions started within KeepDays are kept, as are recent sessions that
// never ended. A session whose screenshots cannot be removed is skipped.
func (s *Store) Prune(ctx context.Context, policy RetentionPolicy, now time.Time, dryRun bool) (PruneResult, error) {
	if policy.KeepLast <= 0 && policy.KeepDays <= 0 {
		return PruneResult{}, nil
	}
	cutoff := time.Time{}
	if policy.KeepDays > 0 {
		cutoff = now.UTC().Add(-time.Duration(policy.KeepDays) * 24 * time.Hour)
	}
	sessions, err := s.sessions(ctx)
	if err != nil {
		return PruneResult{}, err
	}

	res := PruneResult{Considered: len(sessions)}
	for idx, row := range sessions {
		keep := false
		if !row.ended && (row.parseErr != nil || now.Sub(row.startedAt) < activeWindow) {
			keep = true
		}
		if !keep && policy.KeepLast > 0 && idx < policy.KeepLast {
			keep = true
		}
		if !keep && policy.KeepDays > 0 {
			if row.parseErr != nil || row.startedAt.After(cutoff) {
				keep = true
			}
		}
		if keep {
			res.Kept++
			continue
		}

		shots, err := s.screenshots(ctx, row.id)
		if err != nil {
			return res, err
		}
		if dryRun {
			res.Deleted++
			res.Screenshots += len(shots)
			continue
		}
		removed, err := removeFiles(shots)
		res.Screenshots += removed
		if err != nil {
			log.Warn().Err(err).Str("session", row.id).Msg("keeping session with undeletable screenshots")
			res.Skipped++
			continue
		}
		if err := s.deleteSession(ctx, row.id); err != nil {
			return res, err
		}
		res.Deleted++
	}
	return res, nil
}

func (s *Store) sessions(ctx context.Context) ([]sessionRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT session_id, started_at, ended_at FROM sessions ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []sessionRow
	for rows.Next() {
		var (
			id, startedAt string
			endedAt       sql.NullString
		)
		if err := rows.Scan(&id, &startedAt, &endedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		parsed, parseErr := time.Parse(time.RFC3339Nano, startedAt)
		out = append(out, sessionRow{id: id, startedAt: parsed, ended: endedAt.Valid, parseErr: parseErr})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}

func (s *Store) screenshots(ctx context.Context, session string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT message FROM events
		WHERE session_id=? AND type=? AND success=1 AND message != ''`, session, string(ScreenshotTaken))
	if err != nil {
		return nil, fmt.Errorf("list screenshots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan screenshot: %w", err)
		}
		paths = append(paths, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate screenshots: %w", err)
	}
	return paths, nil
}

func (s *Store) deleteSession(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin delete session: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM events WHERE session_id=?`, id); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete events of %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE session_id=?`, id); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete session: %w", err)
	}
	return nil
}

// removeFiles deletes paths, ignoring ones already gone, and returns how
// many it removed.
func removeFiles(paths []string) (int, error) {
	removed := 0
	for _, p := range paths {
		if err := os.Remove(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return removed, fmt.Errorf("remove screenshot: %w", err)
		}
		removed++
	}
	return removed, nil
}
