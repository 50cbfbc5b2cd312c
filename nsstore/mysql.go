package nsstore

import (
	"database/sql"

	_ "github.com/go-sql-driver/mysql"
)

// MySQL is a Store backed by a shared MySQL/MariaDB server, useful when
// several distributed runs should land their energy trace in one place
// for joint analysis. dsn is passed straight to the go-sql-driver/mysql
// driver, e.g. "user:pass@tcp(host:3306)/dbname?parseTime=true".
type MySQL struct {
	db  *sql.DB
	run string
}

// OpenMySQL opens db at dsn, ensures the schema exists, and scopes all
// records written through the returned Store to runID so multiple
// concurrent runs can share one table.
func OpenMySQL(dsn string, runID string) (*MySQL, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS energies (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		run_id VARCHAR(255) NOT NULL,
		iteration INT NOT NULL,
		energy DOUBLE NOT NULL,
		INDEX idx_run (run_id)
	)`); err != nil {
		db.Close()
		return nil, err
	}
	return &MySQL{db: db, run: runID}, nil
}

// RecordIteration implements ns.TraceSink.
func (s *MySQL) RecordIteration(iteration int, discardedEnergies []float64) error {
	for _, e := range discardedEnergies {
		if _, err := s.db.Exec(`INSERT INTO energies (run_id, iteration, energy) VALUES (?, ?, ?)`, s.run, iteration, e); err != nil {
			return err
		}
	}
	return nil
}

// RecordFinal implements ns.TraceSink, persisting liveEnergies under the
// FinalIteration sentinel.
func (s *MySQL) RecordFinal(liveEnergies []float64) error {
	return s.RecordIteration(FinalIteration, liveEnergies)
}

// Records implements Store, scoped to this store's run ID.
func (s *MySQL) Records() ([]Record, error) {
	rows, err := s.db.Query(`SELECT iteration, energy FROM energies WHERE run_id = ? ORDER BY id ASC`, s.run)
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
func (s *MySQL) Close() error {
	return s.db.Close()
}
