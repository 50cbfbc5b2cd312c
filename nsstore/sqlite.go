package nsstore

import (
	"database/sql"

	_ "modernc.org/sqlite"
)

// SQLite is a Store backed by a pure-Go sqlite3 database, one row per
// trace energy. WAL mode is enabled and the connection pool is pinned to
// a single writer, since sqlite serializes writers anyway and a larger
// pool only produces SQLITE_BUSY contention under this store's
// append-only write pattern.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if necessary) a sqlite database at path and
// ensures its schema exists.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS energies (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		iteration INTEGER NOT NULL,
		energy REAL NOT NULL
	)`); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

// RecordIteration implements ns.TraceSink.
func (s *SQLite) RecordIteration(iteration int, discardedEnergies []float64) error {
	for _, e := range discardedEnergies {
		if _, err := s.db.Exec(`INSERT INTO energies (iteration, energy) VALUES (?, ?)`, iteration, e); err != nil {
			return err
		}
	}
	return nil
}

// RecordFinal implements ns.TraceSink, persisting liveEnergies under the
// FinalIteration sentinel.
func (s *SQLite) RecordFinal(liveEnergies []float64) error {
	return s.RecordIteration(FinalIteration, liveEnergies)
}

// Records implements Store.
func (s *SQLite) Records() ([]Record, error) {
	rows, err := s.db.Query(`SELECT iteration, energy FROM energies ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.Iteration, &rec.Energy); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Close implements Store.
func (s *SQLite) Close() error {
	return s.db.Close()
}
