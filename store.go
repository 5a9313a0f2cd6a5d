package templog

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

var (
	// ErrStorage means the store file cannot be opened or created.
	// Fatal at startup; the logger has nowhere to write.
	ErrStorage = errors.New("sample store unavailable")

	// ErrWrite is a failed row insert. Logged and skipped by the
	// polling loop; later writes are unaffected.
	ErrWrite = errors.New("sample store write failed")
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS samples (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp TEXT NOT NULL,
	device TEXT NOT NULL,
	channel TEXT NOT NULL,
	value REAL NOT NULL,
	unit TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_samples_timestamp ON samples(timestamp);
CREATE INDEX IF NOT EXISTS idx_samples_device ON samples(device);
`

// Store is the append-only sample table. One connection per process,
// opened at startup and owned by the polling loop (or the exporter,
// which only reads).
type Store struct {
	db     *sql.DB
	closed bool
}

// OpenStore opens or creates the backing file and ensures the schema.
func OpenStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(ErrStorage, "create %s: %v", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(ErrStorage, "open %s: %v", path, err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, errors.Wrapf(ErrStorage, "init %s: %v", path, err)
	}
	return &Store{db: db}, nil
}

// Append inserts one sample row. Synchronous; at seconds-per-tick and
// single-digit device counts there is nothing to batch.
func (st *Store) Append(s Sample) error {
	_, err := st.db.Exec(
		`INSERT INTO samples (timestamp, device, channel, value, unit) VALUES (?, ?, ?, ?, ?)`,
		s.Timestamp.UTC().Format(TimeFormat), s.Device, s.Channel, s.Value, s.Unit,
	)
	if err != nil {
		return errors.Wrapf(ErrWrite, "%v", err)
	}
	return nil
}

// ReadRange queries samples with start <= timestamp <= end, ordered by
// timestamp ascending. A zero bound is unbounded on that side. Each
// call issues a fresh query.
func (st *Store) ReadRange(start, end time.Time) (*Rows, error) {
	q := `SELECT timestamp, device, channel, value, unit FROM samples`
	var clauses []string
	var args []any
	if !start.IsZero() {
		clauses = append(clauses, "timestamp >= ?")
		args = append(args, start.UTC().Format(TimeFormat))
	}
	if !end.IsZero() {
		clauses = append(clauses, "timestamp <= ?")
		args = append(args, end.UTC().Format(TimeFormat))
	}
	if len(clauses) > 0 {
		q += " WHERE " + strings.Join(clauses, " AND ")
	}
	q += " ORDER BY timestamp, id"

	rows, err := st.db.Query(q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query samples")
	}
	return &Rows{rows: rows}, nil
}

// Close flushes and releases the store. Idempotent.
func (st *Store) Close() error {
	if st.closed {
		return nil
	}
	st.closed = true
	return st.db.Close()
}

// Rows is a lazy iterator over a ReadRange result.
type Rows struct {
	rows *sql.Rows
	cur  Sample
	err  error
}

// Next advances to the next sample, reporting false at the end or on
// error (check Err).
func (r *Rows) Next() bool {
	if r.err != nil {
		return false
	}
	if !r.rows.Next() {
		r.err = r.rows.Err()
		return false
	}

	var ts string
	var s Sample
	if err := r.rows.Scan(&ts, &s.Device, &s.Channel, &s.Value, &s.Unit); err != nil {
		r.err = errors.Wrap(err, "scan sample")
		return false
	}
	t, err := time.Parse(TimeFormat, ts)
	if err != nil {
		r.err = errors.Wrapf(err, "bad timestamp %q", ts)
		return false
	}
	s.Timestamp = t.UTC()
	r.cur = s
	return true
}

// Sample returns the row Next advanced to.
func (r *Rows) Sample() Sample { return r.cur }

func (r *Rows) Err() error { return r.err }

func (r *Rows) Close() error { return r.rows.Close() }
