package journal

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordTransition(t TransitionRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO transitions
		(id, at, from_state, to_state, reason, activations)
		VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.At, t.From, t.To, t.Reason, t.Activations,
	)
	return err
}

func (j *SQLite) RecordRejection(r RejectionRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO rejections
		(id, at, source, symbol, code, detail, price)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.At, r.Source, r.Symbol, r.Code, r.Detail, r.Price,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
