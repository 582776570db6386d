package roster

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/studysync/go/internal/events"
)

// Repository implements group membership data access over Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a roster repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetGroupRoster returns the members of a group ordered by id.
func (r *Repository) GetGroupRoster(ctx context.Context, groupID int64) ([]Member, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT user_id, username, status
        FROM group_members
        WHERE group_id = $1
        ORDER BY user_id
    `, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query group roster: %w", err)
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		var m Member
		var status string
		if err := rows.Scan(&m.ID, &m.Username, &status); err != nil {
			return nil, fmt.Errorf("failed to scan roster row: %w", err)
		}
		m.Status = events.Status(status)
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read group roster: %w", err)
	}

	return members, nil
}

// GetMemberTimer returns a member's persisted timer anchor. Members who
// never wrote one read back as a zero anchor with an empty duration.
func (r *Repository) GetMemberTimer(ctx context.Context, userID int64) (TimerRecord, error) {
	var rec TimerRecord
	var status string
	err := r.pool.QueryRow(ctx, `
        SELECT status, COALESCE(timer_start, 'epoch'::timestamptz), COALESCE(timer_duration, 'PT0M0S')
        FROM group_members
        WHERE user_id = $1
    `, userID).Scan(&status, &rec.StartTime, &rec.Duration)
	if err != nil {
		return TimerRecord{}, fmt.Errorf("failed to get member timer: %w", err)
	}
	rec.Status = events.Status(status)
	return rec, nil
}

// UpdateMemberTimer stores a member's last-known timer anchor and presence.
func (r *Repository) UpdateMemberTimer(ctx context.Context, userID int64, status events.Status, startTime time.Time, durationEncoded string) error {
	tag, err := r.pool.Exec(ctx, `
        UPDATE group_members
        SET status = $2,
            timer_start = $3,
            timer_duration = $4,
            updated_at = now()
        WHERE user_id = $1
    `, userID, string(status), startTime, durationEncoded)
	if err != nil {
		return fmt.Errorf("failed to update member timer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %d is not a member of any group", userID)
	}
	return nil
}

// UpdateMemberStatus stores a presence-only change.
func (r *Repository) UpdateMemberStatus(ctx context.Context, userID int64, status events.Status) error {
	_, err := r.pool.Exec(ctx, `
        UPDATE group_members
        SET status = $2, updated_at = now()
        WHERE user_id = $1
    `, userID, string(status))
	if err != nil {
		return fmt.Errorf("failed to update member status: %w", err)
	}
	return nil
}
