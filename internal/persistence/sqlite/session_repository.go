package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/mediation-platform/internal/persistence"
)

// SessionRepository implements persistence.SessionRepository using SQLite.
type SessionRepository struct {
	pool *ConnectionPool
}

// NewSessionRepository creates a SQLite-backed session repository.
func NewSessionRepository(pool *ConnectionPool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

const sessionColumns = `
	s.id, s.case_id, s.session_number, s.title, s.description, s.scheduled_date,
	s.duration_minutes, s.status, s.location, s.meeting_link, s.notes, s.completed_at, s.created_at`

// ListSessionsForCase returns a case's sessions ordered by scheduled_date
// descending, each with its participant list.
func (r *SessionRepository) ListSessionsForCase(ctx context.Context, caseID int64) ([]persistence.Session, error) {
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT`+sessionColumns+`
		FROM sessions s
		WHERE s.case_id = ?
		ORDER BY s.scheduled_date DESC, s.id DESC`, caseID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var sessions []persistence.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	for i := range sessions {
		participants, err := r.loadParticipants(ctx, sessions[i].ID)
		if err != nil {
			return nil, err
		}
		sessions[i].Participants = participants
	}

	return sessions, nil
}

// GetSession retrieves a single session by id with its participants.
func (r *SessionRepository) GetSession(ctx context.Context, id int64) (persistence.Session, error) {
	row := r.pool.db.QueryRowContext(ctx, "SELECT"+sessionColumns+" FROM sessions s WHERE s.id = ?", id)
	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Session{}, persistence.ErrNotFound
		}
		return persistence.Session{}, err
	}

	if session.Participants, err = r.loadParticipants(ctx, id); err != nil {
		return persistence.Session{}, err
	}

	return session, nil
}

// CreateSession allocates the next session number for the case and
// inserts the session together with its audit entry on the parent case.
func (r *SessionRepository) CreateSession(ctx context.Context, s persistence.Session, activity persistence.CaseActivity) (persistence.Session, error) {
	var id int64
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		number, err := nextSessionNumber(tx, s.CaseID)
		if err != nil {
			return err
		}

		result, err := tx.Exec(`
			INSERT INTO sessions (case_id, session_number, title, description, scheduled_date,
				duration_minutes, status, location, meeting_link, notes, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			s.CaseID,
			number,
			s.Title,
			s.Description,
			formatTime(s.ScheduledDate),
			s.DurationMinutes,
			s.Status,
			s.Location,
			s.MeetingLink,
			s.Notes,
			formatTime(s.CreatedAt),
		)
		if err != nil {
			return mapError(err)
		}

		if id, err = result.LastInsertId(); err != nil {
			return fmt.Errorf("failed to read inserted session id: %w", err)
		}

		return insertActivity(tx, activity)
	})
	if err != nil {
		return persistence.Session{}, err
	}

	return r.GetSession(ctx, id)
}

// UpdateSession applies the sparse patch, stamping completed_at when
// provided, in one transaction.
func (r *SessionRepository) UpdateSession(ctx context.Context, id int64, patch persistence.SessionPatch, completedAt *time.Time) (persistence.Session, error) {
	sets, args := buildSessionUpdate(patch, completedAt)
	if len(sets) == 0 {
		return persistence.Session{}, persistence.ErrConstraintViolation
	}

	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var existing int64
		if err := tx.QueryRow("SELECT id FROM sessions WHERE id = ?", id).Scan(&existing); err != nil {
			return mapError(err)
		}

		args = append(args, id)
		if _, err := tx.Exec("UPDATE sessions SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...); err != nil {
			return mapError(err)
		}
		return nil
	})
	if err != nil {
		return persistence.Session{}, err
	}

	return r.GetSession(ctx, id)
}

// AddParticipant inserts a participant row and its audit entry on the
// parent case atomically.
func (r *SessionRepository) AddParticipant(ctx context.Context, participant persistence.SessionParticipant, activity persistence.CaseActivity) (persistence.SessionParticipant, error) {
	var id int64
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.Exec(`
			INSERT INTO session_participants (session_id, user_id, attendance_status, created_at)
			VALUES (?, ?, ?, ?)`,
			participant.SessionID,
			participant.UserID,
			participant.AttendanceStatus,
			formatTime(participant.CreatedAt),
		)
		if err != nil {
			return mapError(err)
		}

		if id, err = result.LastInsertId(); err != nil {
			return fmt.Errorf("failed to read inserted participant id: %w", err)
		}

		return insertActivity(tx, activity)
	})
	if err != nil {
		return persistence.SessionParticipant{}, err
	}

	return r.getParticipant(ctx, id)
}

const participantSelect = `
	SELECT sp.id, sp.session_id, sp.user_id, sp.attendance_status, sp.created_at,
	       COALESCE(u.first_name || ' ' || u.last_name, '') AS name
	FROM session_participants sp
	LEFT JOIN users u ON sp.user_id = u.id`

func (r *SessionRepository) getParticipant(ctx context.Context, id int64) (persistence.SessionParticipant, error) {
	row := r.pool.db.QueryRowContext(ctx, participantSelect+" WHERE sp.id = ?", id)
	return scanParticipant(row)
}

func (r *SessionRepository) loadParticipants(ctx context.Context, sessionID int64) ([]persistence.SessionParticipant, error) {
	rows, err := r.pool.db.QueryContext(ctx, participantSelect+" WHERE sp.session_id = ? ORDER BY sp.id ASC", sessionID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var participants []persistence.SessionParticipant
	for rows.Next() {
		participant, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		participants = append(participants, participant)
	}

	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	return participants, nil
}

func scanSession(row rowScanner) (persistence.Session, error) {
	var session persistence.Session
	var scheduledDate, createdAt string
	var completedAt sql.NullString

	err := row.Scan(
		&session.ID,
		&session.CaseID,
		&session.SessionNumber,
		&session.Title,
		&session.Description,
		&scheduledDate,
		&session.DurationMinutes,
		&session.Status,
		&session.Location,
		&session.MeetingLink,
		&session.Notes,
		&completedAt,
		&createdAt,
	)
	if err != nil {
		return persistence.Session{}, mapError(err)
	}

	if session.ScheduledDate, err = parseTime(scheduledDate); err != nil {
		return persistence.Session{}, err
	}
	if session.CompletedAt, err = parseNullTime(completedAt); err != nil {
		return persistence.Session{}, err
	}
	if session.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Session{}, err
	}

	return session, nil
}

func scanParticipant(row rowScanner) (persistence.SessionParticipant, error) {
	var participant persistence.SessionParticipant
	var createdAt string

	err := row.Scan(
		&participant.ID,
		&participant.SessionID,
		&participant.UserID,
		&participant.AttendanceStatus,
		&createdAt,
		&participant.Name,
	)
	if err != nil {
		return persistence.SessionParticipant{}, mapError(err)
	}

	if participant.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.SessionParticipant{}, err
	}

	return participant, nil
}

func buildSessionUpdate(patch persistence.SessionPatch, completedAt *time.Time) ([]string, []any) {
	var sets []string
	var args []any
	add := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.ScheduledDate != nil {
		add("scheduled_date", formatTime(*patch.ScheduledDate))
	}
	if patch.DurationMinutes != nil {
		add("duration_minutes", *patch.DurationMinutes)
	}
	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if patch.Location != nil {
		add("location", *patch.Location)
	}
	if patch.MeetingLink != nil {
		add("meeting_link", *patch.MeetingLink)
	}
	if patch.Notes != nil {
		add("notes", *patch.Notes)
	}
	if completedAt != nil {
		add("completed_at", formatTime(*completedAt))
	}

	return sets, args
}
