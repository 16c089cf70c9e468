package journal

import (
	"database/sql"
	"fmt"
	"time"
)

// GetTransition returns a single transition record by ID.
func (j *SQLite) GetTransition(id string) (TransitionRecord, error) {
	var rec TransitionRecord

	row := j.db.QueryRow(`
		SELECT id, at, from_state, to_state, reason, activations
		FROM transitions
		WHERE id = ?`, id)

	err := row.Scan(
		&rec.ID,
		&rec.At,
		&rec.From,
		&rec.To,
		&rec.Reason,
		&rec.Activations,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return TransitionRecord{}, fmt.Errorf("transition %q not found", id)
		}
		return TransitionRecord{}, err
	}
	return rec, nil
}

// RecentTransitions returns up to limit transitions, newest first.
func (j *SQLite) RecentTransitions(limit int) ([]TransitionRecord, error) {
	rows, err := j.db.Query(`
		SELECT id, at, from_state, to_state, reason, activations
		FROM transitions
		ORDER BY at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTransitions(rows)
}

// ListTransitionsBetween returns transitions whose timestamp is within
// [start, end), oldest first.
func (j *SQLite) ListTransitionsBetween(start, end time.Time) ([]TransitionRecord, error) {
	rows, err := j.db.Query(`
		SELECT id, at, from_state, to_state, reason, activations
		FROM transitions
		WHERE at >= ? AND at < ?
		ORDER BY at ASC`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTransitions(rows)
}

// ListRejectionsBetween returns rejections whose timestamp is within
// [start, end), oldest first.
func (j *SQLite) ListRejectionsBetween(start, end time.Time) ([]RejectionRecord, error) {
	rows, err := j.db.Query(`
		SELECT id, at, source, symbol, code, detail, price
		FROM rejections
		WHERE at >= ? AND at < ?
		ORDER BY at ASC`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RejectionRecord
	for rows.Next() {
		var rec RejectionRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.At,
			&rec.Source,
			&rec.Symbol,
			&rec.Code,
			&rec.Detail,
			&rec.Price,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanTransitions(rows *sql.Rows) ([]TransitionRecord, error) {
	var out []TransitionRecord
	for rows.Next() {
		var rec TransitionRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.At,
			&rec.From,
			&rec.To,
			&rec.Reason,
			&rec.Activations,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
