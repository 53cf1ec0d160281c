package sqlite

import (
	"context"
	"database/sql"

	"github.com/example/mediation-platform/internal/persistence"
)

// ActivityRepository implements persistence.ActivityRepository. Activity
// rows are append-only; inserts happen inside the case and session
// repository transactions via insertActivity.
type ActivityRepository struct {
	pool *ConnectionPool
}

// NewActivityRepository creates a SQLite-backed activity repository.
func NewActivityRepository(pool *ConnectionPool) *ActivityRepository {
	return &ActivityRepository{pool: pool}
}

// ListRecentActivities returns the most recent activity entries for a
// case, newest first.
func (r *ActivityRepository) ListRecentActivities(ctx context.Context, caseID int64, limit int) ([]persistence.CaseActivity, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT ca.id, ca.case_id, ca.user_id, ca.activity_type, ca.description, ca.created_at,
		       COALESCE(u.first_name || ' ' || u.last_name, '') AS user_name
		FROM case_activities ca
		LEFT JOIN users u ON ca.user_id = u.id
		WHERE ca.case_id = ?
		ORDER BY ca.created_at DESC, ca.id DESC
		LIMIT ?`, caseID, limit)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var activities []persistence.CaseActivity
	for rows.Next() {
		var activity persistence.CaseActivity
		var createdAt string
		if err := rows.Scan(
			&activity.ID,
			&activity.CaseID,
			&activity.UserID,
			&activity.ActivityType,
			&activity.Description,
			&createdAt,
			&activity.UserName,
		); err != nil {
			return nil, mapError(err)
		}
		if activity.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		activities = append(activities, activity)
	}

	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	return activities, nil
}

// insertActivity appends one audit entry within the caller's transaction.
func insertActivity(tx *sql.Tx, activity persistence.CaseActivity) error {
	_, err := tx.Exec(`
		INSERT INTO case_activities (case_id, user_id, activity_type, description, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		activity.CaseID,
		activity.UserID,
		activity.ActivityType,
		activity.Description,
		formatTime(activity.CreatedAt),
	)
	if err != nil {
		return mapError(err)
	}
	return nil
}
