package sqlite

import (
	"database/sql"
	"fmt"
)

// FormatCaseNumber renders the year-scoped human-readable case label,
// e.g. MED-2025-0001.
func FormatCaseNumber(year, seq int) string {
	return fmt.Sprintf("MED-%d-%04d", year, seq)
}

// nextCaseSeq atomically advances the per-year case counter and returns
// the allocated sequence number. The upsert is a single statement, so
// two transactions can never observe the same value; allocated numbers
// are never reused even when cases are deleted.
func nextCaseSeq(tx *sql.Tx, year int) (int, error) {
	var seq int
	err := tx.QueryRow(`
		INSERT INTO case_number_counters (year, last_seq) VALUES (?, 1)
		ON CONFLICT(year) DO UPDATE SET last_seq = last_seq + 1
		RETURNING last_seq`, year).Scan(&seq)
	if err != nil {
		return 0, mapError(err)
	}
	return seq, nil
}

// nextSessionNumber advances the per-case session counter, starting at 1
// for the first session of a case.
func nextSessionNumber(tx *sql.Tx, caseID int64) (int, error) {
	var seq int
	err := tx.QueryRow(`
		INSERT INTO session_number_counters (case_id, last_seq) VALUES (?, 1)
		ON CONFLICT(case_id) DO UPDATE SET last_seq = last_seq + 1
		RETURNING last_seq`, caseID).Scan(&seq)
	if err != nil {
		return 0, mapError(err)
	}
	return seq, nil
}
