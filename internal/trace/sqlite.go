package trace

import (
	"database/sql"
	"fmt"
	"os"
	"sync"
	"time"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

const createTraceTable = `CREATE TABLE IF NOT EXISTS trace (
	session    TEXT NOT NULL,
	seq        INTEGER NOT NULL,
	time_ns    INTEGER NOT NULL,
	controller TEXT NOT NULL,
	kind       TEXT NOT NULL,
	source     INTEGER NOT NULL,
	edge       INTEGER NOT NULL,
	detail     TEXT NOT NULL
);`

const insertTrace = `INSERT INTO trace
	(session, seq, time_ns, controller, kind, source, edge, detail)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

// SQLiteSink buffers entries and writes them to a SQLite database in
// batches, one session id per sink.
type SQLiteSink struct {
	mu        sync.Mutex
	db        *sql.DB
	session   string
	path      string
	pending   []Entry
	batchSize int
}

// OpenSQLite opens (creating if needed) path.sqlite3. An empty path picks a
// unique name. Buffered entries are flushed at process exit.
func OpenSQLite(path string) (*SQLiteSink, error) {
	session := xid.New().String()
	if path == "" {
		path = "plic_trace_" + session
	}
	filename := path + ".sqlite3"

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return nil, fmt.Errorf("trace: open %s: %w", filename, err)
	}
	if _, err := db.Exec(createTraceTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("trace: create table in %s: %w", filename, err)
	}

	s := &SQLiteSink{
		db:        db,
		session:   session,
		path:      filename,
		batchSize: 4096,
	}
	atexit.Register(func() {
		if err := s.Flush(); err != nil {
			fmt.Fprintf(os.Stderr, "trace: flush %s: %v\n", filename, err)
		}
	})
	return s, nil
}

// Session returns the id entries from this sink are stored under.
func (s *SQLiteSink) Session() string { return s.session }

// Path returns the database file name.
func (s *SQLiteSink) Path() string { return s.path }

// Write implements Sink.
func (s *SQLiteSink) Write(e Entry) error {
	s.mu.Lock()
	s.pending = append(s.pending, e)
	full := len(s.pending) >= s.batchSize
	s.mu.Unlock()

	if full {
		return s.Flush()
	}
	return nil
}

// Flush writes buffered entries in one transaction.
func (s *SQLiteSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 || s.db == nil {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(insertTrace)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, e := range s.pending {
		edge := 0
		if e.Edge {
			edge = 1
		}
		if _, err := stmt.Exec(s.session, e.Seq, e.Time.UnixNano(), e.Controller, e.Kind, e.Source, edge, e.Detail); err != nil {
			tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.pending = s.pending[:0]
	return nil
}

// Close flushes and closes the database.
func (s *SQLiteSink) Close() error {
	if err := s.Flush(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// ReadSQLite loads the entries of session from the database file. An empty
// session loads every session.
func ReadSQLite(filename, session string) ([]Entry, error) {
	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return nil, fmt.Errorf("trace: open %s: %w", filename, err)
	}
	defer db.Close()

	query := `SELECT seq, time_ns, controller, kind, source, edge, detail FROM trace`
	var args []any
	if session != "" {
		query += ` WHERE session = ?`
		args = append(args, session)
	}
	query += ` ORDER BY session, seq`

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("trace: query %s: %w", filename, err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e      Entry
			timeNs int64
			edge   int
		)
		if err := rows.Scan(&e.Seq, &timeNs, &e.Controller, &e.Kind, &e.Source, &edge, &e.Detail); err != nil {
			return nil, err
		}
		e.Time = time.Unix(0, timeNs)
		e.Edge = edge != 0
		out = append(out, e)
	}
	return out, rows.Err()
}
