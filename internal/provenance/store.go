package provenance

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id      TEXT PRIMARY KEY,
	state_id        TEXT NOT NULL,
	entered_at      TEXT NOT NULL,
	locked_at       TEXT,
	ended_at        TEXT,
	tier            TEXT NOT NULL,
	peak_confidence REAL NOT NULL DEFAULT 0,
	dominant_bands  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS transition_log (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	from_session_id TEXT,
	to_session_id   TEXT NOT NULL,
	from_state_id   TEXT,
	to_state_id     TEXT NOT NULL,
	decision        TEXT NOT NULL,
	confidence      REAL NOT NULL DEFAULT 0,
	margin          REAL NOT NULL DEFAULT 0,
	emergency       INTEGER NOT NULL DEFAULT 0,
	reason          TEXT,
	trace_json      TEXT,
	created_at      TEXT NOT NULL,
	FOREIGN KEY (to_session_id) REFERENCES sessions(session_id)
);

CREATE TABLE IF NOT EXISTS active_session (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	session_id TEXT NOT NULL,
	FOREIGN KEY (session_id) REFERENCES sessions(session_id)
);
`

// #endregion schema

// #region store-struct
// Store persists session lifecycle and transition provenance in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// NewStoreWithDB wraps an existing connection. The caller owns migrations
// and close.
func NewStoreWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for use by other packages.
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion db-accessor

// #region begin-session
// BeginSession inserts a new session row and moves the active pointer to
// it atomically.
func (s *Store) BeginSession(rec SessionRecord) error {
	bands, err := json.Marshal(rec.DominantBands)
	if err != nil {
		return fmt.Errorf("marshal bands: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO sessions (session_id, state_id, entered_at, locked_at, ended_at, tier, peak_confidence, dominant_bands)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SessionID, rec.StateID, rec.EnteredAt.UTC().Format(time.RFC3339Nano),
		nullIfZeroTime(rec.LockedAt), nullIfZeroTime(rec.EndedAt),
		rec.Tier, rec.PeakConfidence, string(bands),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO active_session (id, session_id) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET session_id = excluded.session_id`,
		rec.SessionID,
	)
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}

	return tx.Commit()
}

// #endregion begin-session

// #region update-session
// UpdateSession refreshes the mutable fields of a live session. LockedAt
// is written only once; a later zero value never clears it.
func (s *Store) UpdateSession(sessionID, tierName string, peakConfidence float32, lockedAt time.Time) error {
	res, err := s.db.Exec(
		`UPDATE sessions
		 SET tier = ?, peak_confidence = MAX(peak_confidence, ?),
		     locked_at = COALESCE(locked_at, ?)
		 WHERE session_id = ?`,
		tierName, peakConfidence, nullIfZeroTime(lockedAt), sessionID,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("session %s not found", sessionID)
	}
	return nil
}

// EndSession stamps a session's end time.
func (s *Store) EndSession(sessionID string, endedAt time.Time) error {
	res, err := s.db.Exec(
		`UPDATE sessions SET ended_at = ? WHERE session_id = ?`,
		endedAt.UTC().Format(time.RFC3339Nano), sessionID,
	)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("session %s not found", sessionID)
	}
	return nil
}

// #endregion update-session

// #region get-session
// GetSession retrieves a session by ID.
func (s *Store) GetSession(id string) (SessionRecord, error) {
	row := s.db.QueryRow(
		`SELECT session_id, state_id, entered_at, locked_at, ended_at, tier, peak_confidence, dominant_bands
		 FROM sessions WHERE session_id = ?`, id,
	)
	rec, err := scanSession(row)
	if err != nil {
		return SessionRecord{}, fmt.Errorf("get session %s: %w", id, err)
	}
	return rec, nil
}

// ActiveSession reads the session the active pointer names.
func (s *Store) ActiveSession() (SessionRecord, error) {
	var sessionID string
	err := s.db.QueryRow(`SELECT session_id FROM active_session WHERE id = 1`).Scan(&sessionID)
	if err != nil {
		return SessionRecord{}, fmt.Errorf("get active: %w", err)
	}
	return s.GetSession(sessionID)
}

// #endregion get-session

// #region list-sessions
// ListSessions returns the most recent sessions.
func (s *Store) ListSessions(limit int) ([]SessionRecord, error) {
	rows, err := s.db.Query(
		`SELECT session_id, state_id, entered_at, locked_at, ended_at, tier, peak_confidence, dominant_bands
		 FROM sessions ORDER BY entered_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var records []SessionRecord
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// #endregion list-sessions

// #region log-transition
// LogTransition writes one provenance entry for an approved switch or
// reset.
func (s *Store) LogTransition(entry TransitionRecord) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	emergency := 0
	if entry.Emergency {
		emergency = 1
	}

	_, err := s.db.Exec(
		`INSERT INTO transition_log (from_session_id, to_session_id, from_state_id, to_state_id, decision, confidence, margin, emergency, reason, trace_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullIfEmpty(entry.FromSessionID),
		entry.ToSessionID,
		nullIfEmpty(entry.FromStateID),
		entry.ToStateID,
		entry.Decision,
		entry.Confidence,
		entry.Margin,
		emergency,
		nullIfEmpty(entry.Reason),
		nullIfEmpty(entry.TraceJSON),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log transition: %w", err)
	}
	return nil
}

// ListTransitions returns the most recent transition entries.
func (s *Store) ListTransitions(limit int) ([]TransitionRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, from_session_id, to_session_id, from_state_id, to_state_id, decision, confidence, margin, emergency, reason, trace_json, created_at
		 FROM transition_log ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	defer rows.Close()

	var records []TransitionRecord
	for rows.Next() {
		var rec TransitionRecord
		var fromSession, fromState, reason, traceJSON sql.NullString
		var emergency int
		var createdStr string

		if err := rows.Scan(&rec.ID, &fromSession, &rec.ToSessionID, &fromState, &rec.ToStateID,
			&rec.Decision, &rec.Confidence, &rec.Margin, &emergency, &reason, &traceJSON, &createdStr); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		rec.FromSessionID = fromSession.String
		rec.FromStateID = fromState.String
		rec.Reason = reason.String
		rec.TraceJSON = traceJSON.String
		rec.Emergency = emergency != 0
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// #endregion log-transition

// #region helpers

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (SessionRecord, error) {
	var rec SessionRecord
	var lockedStr, endedStr sql.NullString
	var enteredStr, bandsJSON string

	err := row.Scan(&rec.SessionID, &rec.StateID, &enteredStr, &lockedStr, &endedStr,
		&rec.Tier, &rec.PeakConfidence, &bandsJSON)
	if err != nil {
		return SessionRecord{}, err
	}

	rec.EnteredAt, _ = time.Parse(time.RFC3339Nano, enteredStr)
	if lockedStr.Valid {
		rec.LockedAt, _ = time.Parse(time.RFC3339Nano, lockedStr.String)
	}
	if endedStr.Valid {
		rec.EndedAt, _ = time.Parse(time.RFC3339Nano, endedStr.String)
	}
	if err := json.Unmarshal([]byte(bandsJSON), &rec.DominantBands); err != nil {
		return SessionRecord{}, fmt.Errorf("unmarshal bands: %w", err)
	}
	return rec, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullIfZeroTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// #endregion helpers
