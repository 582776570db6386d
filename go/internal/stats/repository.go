package stats

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sqlc-dev/pqtype"
)

// Record is one observed phase start: who, which phase, when, and its total
// length. Metadata optionally carries the raw wire envelope for later
// inspection.
type Record struct {
	UserID      int64
	Phase       string
	StartedAt   time.Time
	DurationSec int
	Metadata    json.RawMessage
}

// Repository stores phase telemetry. Writes here are best-effort: a failed
// insert never touches the timer path.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a stats repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// InsertPhaseRecord appends one phase record.
func (r *Repository) InsertPhaseRecord(ctx context.Context, rec Record) error {
	metadata := pqtype.NullRawMessage{
		RawMessage: rec.Metadata,
		Valid:      len(rec.Metadata) > 0,
	}

	_, err := r.db.ExecContext(ctx, `
        INSERT INTO phase_records (user_id, phase, started_at, duration_sec, metadata)
        VALUES ($1, $2, $3, $4, $5)
    `, rec.UserID, rec.Phase, rec.StartedAt, rec.DurationSec, metadata)
	if err != nil {
		return fmt.Errorf("failed to insert phase record: %w", err)
	}
	return nil
}

// CountPhases returns how many phases of the given kind a user completed
// since the cutoff.
func (r *Repository) CountPhases(ctx context.Context, userID int64, phase string, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
        SELECT COUNT(*)
        FROM phase_records
        WHERE user_id = $1 AND phase = $2 AND started_at >= $3
    `, userID, phase, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count phases: %w", err)
	}
	return count, nil
}
