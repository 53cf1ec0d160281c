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

// CaseRepository implements persistence.CaseRepository using SQLite.
type CaseRepository struct {
	pool *ConnectionPool
}

// NewCaseRepository creates a SQLite-backed case repository.
func NewCaseRepository(pool *ConnectionPool) *CaseRepository {
	return &CaseRepository{pool: pool}
}

const caseColumns = `
	c.id, c.case_number, c.title, c.description, c.category, c.priority, c.status,
	c.created_by, c.assigned_mediator, c.resolution_summary, c.resolution_date, c.created_at,
	COALESCE(u1.first_name || ' ' || u1.last_name, '') AS creator_name,
	COALESCE(u2.first_name || ' ' || u2.last_name, '') AS mediator_name`

const caseJoins = `
	FROM cases c
	LEFT JOIN users u1 ON c.created_by = u1.id
	LEFT JOIN users u2 ON c.assigned_mediator = u2.id`

// ListCases returns cases matching the filter ordered by created_at descending.
func (r *CaseRepository) ListCases(ctx context.Context, filter persistence.CaseFilter) ([]persistence.Case, error) {
	query := "SELECT" + caseColumns + caseJoins
	var conditions []string
	var args []any

	if filter.VisibleToUser != nil {
		conditions = append(conditions,
			"(c.created_by = ? OR c.id IN (SELECT case_id FROM case_parties WHERE user_id = ?))")
		args = append(args, *filter.VisibleToUser, *filter.VisibleToUser)
	}
	if filter.AssignedTo != nil {
		conditions = append(conditions, "c.assigned_mediator = ?")
		args = append(args, *filter.AssignedTo)
	}
	if filter.Status != "" {
		conditions = append(conditions, "c.status = ?")
		args = append(args, filter.Status)
	}
	if filter.Priority != "" {
		conditions = append(conditions, "c.priority = ?")
		args = append(args, filter.Priority)
	}
	if filter.MediatorID != nil {
		conditions = append(conditions, "c.assigned_mediator = ?")
		args = append(args, *filter.MediatorID)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY c.created_at DESC, c.id DESC"

	rows, err := r.pool.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var cases []persistence.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		cases = append(cases, c)
	}

	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	return cases, nil
}

// GetCase retrieves a single case by id.
func (r *CaseRepository) GetCase(ctx context.Context, id int64) (persistence.Case, error) {
	row := r.pool.db.QueryRowContext(ctx, "SELECT"+caseColumns+caseJoins+" WHERE c.id = ?", id)
	c, err := scanCase(row)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Case{}, persistence.ErrNotFound
		}
		return persistence.Case{}, err
	}
	return c, nil
}

// CreateCase allocates a case number for the year of c.CreatedAt and
// inserts the case together with its audit entry. The counter upsert and
// the inserts commit atomically; the UNIQUE constraint on case_number is
// a backstop, retried once should it ever fire.
func (r *CaseRepository) CreateCase(ctx context.Context, c persistence.Case, activity persistence.CaseActivity) (persistence.Case, error) {
	var id int64
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		id, err = r.insertCase(ctx, c, activity)
		if err == nil || !errors.Is(err, persistence.ErrDuplicate) {
			break
		}
	}
	if err != nil {
		return persistence.Case{}, err
	}
	return r.GetCase(ctx, id)
}

func (r *CaseRepository) insertCase(ctx context.Context, c persistence.Case, activity persistence.CaseActivity) (int64, error) {
	var id int64
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		seq, err := nextCaseSeq(tx, c.CreatedAt.Year())
		if err != nil {
			return err
		}

		var mediator sql.NullInt64
		if c.AssignedMediator != nil {
			mediator = sql.NullInt64{Int64: *c.AssignedMediator, Valid: true}
		}

		result, err := tx.Exec(`
			INSERT INTO cases (case_number, title, description, category, priority, status,
				created_by, assigned_mediator, resolution_summary, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			FormatCaseNumber(c.CreatedAt.Year(), seq),
			c.Title,
			c.Description,
			c.Category,
			c.Priority,
			c.Status,
			c.CreatedBy,
			mediator,
			c.ResolutionSummary,
			formatTime(c.CreatedAt),
		)
		if err != nil {
			return mapError(err)
		}

		if id, err = result.LastInsertId(); err != nil {
			return fmt.Errorf("failed to read inserted case id: %w", err)
		}

		activity.CaseID = id
		return insertActivity(tx, activity)
	})
	return id, err
}

// UpdateCase applies the sparse patch, stamping resolution_date when
// provided, and appends the activity entry when non-nil, all in one
// transaction.
func (r *CaseRepository) UpdateCase(ctx context.Context, id int64, patch persistence.CasePatch, resolutionDate *time.Time, activity *persistence.CaseActivity) (persistence.Case, error) {
	sets, args := buildCaseUpdate(patch, resolutionDate)
	if len(sets) == 0 {
		return persistence.Case{}, persistence.ErrConstraintViolation
	}

	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var existing int64
		if err := tx.QueryRow("SELECT id FROM cases WHERE id = ?", id).Scan(&existing); err != nil {
			return mapError(err)
		}

		args = append(args, id)
		if _, err := tx.Exec("UPDATE cases SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...); err != nil {
			return mapError(err)
		}

		if activity != nil {
			return insertActivity(tx, *activity)
		}
		return nil
	})
	if err != nil {
		return persistence.Case{}, err
	}

	return r.GetCase(ctx, id)
}

// DeleteCase removes a case; parties, sessions, participants, activities
// and the session counter go with it via ON DELETE CASCADE.
func (r *CaseRepository) DeleteCase(ctx context.Context, id int64) error {
	result, err := r.pool.db.ExecContext(ctx, "DELETE FROM cases WHERE id = ?", id)
	if err != nil {
		return mapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}

	return nil
}

// AddParty inserts a party row and its audit entry atomically.
func (r *CaseRepository) AddParty(ctx context.Context, party persistence.CaseParty, activity persistence.CaseActivity) (persistence.CaseParty, error) {
	var id int64
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.Exec(`
			INSERT INTO case_parties (case_id, user_id, party_type, organization, representative, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			party.CaseID,
			party.UserID,
			party.PartyType,
			party.Organization,
			party.Representative,
			formatTime(party.CreatedAt),
		)
		if err != nil {
			return mapError(err)
		}

		if id, err = result.LastInsertId(); err != nil {
			return fmt.Errorf("failed to read inserted party id: %w", err)
		}

		return insertActivity(tx, activity)
	})
	if err != nil {
		return persistence.CaseParty{}, err
	}

	return r.getParty(ctx, id)
}

// ListParties returns the parties of a case joined with user contact fields.
func (r *CaseRepository) ListParties(ctx context.Context, caseID int64) ([]persistence.CaseParty, error) {
	rows, err := r.pool.db.QueryContext(ctx, partySelect+" WHERE cp.case_id = ? ORDER BY cp.id ASC", caseID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var parties []persistence.CaseParty
	for rows.Next() {
		party, err := scanParty(rows)
		if err != nil {
			return nil, err
		}
		parties = append(parties, party)
	}

	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	return parties, nil
}

// PartyUserIDs returns the user ids attached to the case as parties.
func (r *CaseRepository) PartyUserIDs(ctx context.Context, caseID int64) ([]int64, error) {
	rows, err := r.pool.db.QueryContext(ctx,
		"SELECT user_id FROM case_parties WHERE case_id = ? ORDER BY user_id ASC", caseID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, mapError(err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	return ids, nil
}

const partySelect = `
	SELECT cp.id, cp.case_id, cp.user_id, cp.party_type, cp.organization, cp.representative, cp.created_at,
	       COALESCE(u.first_name || ' ' || u.last_name, '') AS name,
	       COALESCE(u.email, '') AS email,
	       COALESCE(u.phone, '') AS phone
	FROM case_parties cp
	LEFT JOIN users u ON cp.user_id = u.id`

func (r *CaseRepository) getParty(ctx context.Context, id int64) (persistence.CaseParty, error) {
	row := r.pool.db.QueryRowContext(ctx, partySelect+" WHERE cp.id = ?", id)
	return scanParty(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCase(row rowScanner) (persistence.Case, error) {
	var c persistence.Case
	var mediator sql.NullInt64
	var resolutionDate sql.NullString
	var createdAt string

	err := row.Scan(
		&c.ID,
		&c.CaseNumber,
		&c.Title,
		&c.Description,
		&c.Category,
		&c.Priority,
		&c.Status,
		&c.CreatedBy,
		&mediator,
		&c.ResolutionSummary,
		&resolutionDate,
		&createdAt,
		&c.CreatorName,
		&c.MediatorName,
	)
	if err != nil {
		return persistence.Case{}, mapError(err)
	}

	if mediator.Valid {
		c.AssignedMediator = &mediator.Int64
	}
	if c.ResolutionDate, err = parseNullTime(resolutionDate); err != nil {
		return persistence.Case{}, err
	}
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Case{}, err
	}

	return c, nil
}

func scanParty(row rowScanner) (persistence.CaseParty, error) {
	var party persistence.CaseParty
	var createdAt string

	err := row.Scan(
		&party.ID,
		&party.CaseID,
		&party.UserID,
		&party.PartyType,
		&party.Organization,
		&party.Representative,
		&createdAt,
		&party.Name,
		&party.Email,
		&party.Phone,
	)
	if err != nil {
		return persistence.CaseParty{}, mapError(err)
	}

	if party.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.CaseParty{}, err
	}

	return party, nil
}

// buildCaseUpdate turns the sparse patch into SET clauses; nil fields
// never reach the statement.
func buildCaseUpdate(patch persistence.CasePatch, resolutionDate *time.Time) ([]string, []any) {
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
	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if patch.Priority != nil {
		add("priority", *patch.Priority)
	}
	if patch.Category != nil {
		add("category", *patch.Category)
	}
	if patch.AssignedMediator != nil {
		add("assigned_mediator", *patch.AssignedMediator)
	}
	if patch.ResolutionSummary != nil {
		add("resolution_summary", *patch.ResolutionSummary)
	}
	if resolutionDate != nil {
		add("resolution_date", formatTime(*resolutionDate))
	}

	return sets, args
}
