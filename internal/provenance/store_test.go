package provenance

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func tempDB(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sessionFixture(id string) SessionRecord {
	return SessionRecord{
		SessionID:      id,
		StateID:        "focused",
		EnteredAt:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Tier:           "detected",
		PeakConfidence: 64.5,
		DominantBands:  []string{"betaLow", "alpha"},
	}
}

func TestBeginSessionAndActive(t *testing.T) {
	s := tempDB(t)

	if err := s.BeginSession(sessionFixture("s1")); err != nil {
		t.Fatalf("BeginSession: %v", err)
	}

	cur, err := s.ActiveSession()
	if err != nil {
		t.Fatalf("ActiveSession: %v", err)
	}
	if cur.SessionID != "s1" {
		t.Fatalf("expected s1, got %s", cur.SessionID)
	}
	if cur.StateID != "focused" {
		t.Fatalf("expected focused, got %s", cur.StateID)
	}
	if len(cur.DominantBands) != 2 || cur.DominantBands[0] != "betaLow" {
		t.Fatalf("bands not round-tripped: %v", cur.DominantBands)
	}
	if !cur.LockedAt.IsZero() || !cur.EndedAt.IsZero() {
		t.Fatal("fresh session should have zero locked/ended times")
	}
}

func TestBeginSessionMovesActivePointer(t *testing.T) {
	s := tempDB(t)
	s.BeginSession(sessionFixture("s1"))

	second := sessionFixture("s2")
	second.StateID = "flow"
	if err := s.BeginSession(second); err != nil {
		t.Fatalf("BeginSession s2: %v", err)
	}

	cur, err := s.ActiveSession()
	if err != nil {
		t.Fatalf("ActiveSession: %v", err)
	}
	if cur.SessionID != "s2" {
		t.Fatalf("active pointer should follow the latest session, got %s", cur.SessionID)
	}
}

func TestUpdateSessionTierAndPeak(t *testing.T) {
	s := tempDB(t)
	s.BeginSession(sessionFixture("s1"))

	lockedAt := time.Date(2025, 6, 1, 12, 0, 30, 0, time.UTC)
	if err := s.UpdateSession("s1", "locked", 81, lockedAt); err != nil {
		t.Fatalf("UpdateSession: %v", err)
	}

	got, err := s.GetSession("s1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.Tier != "locked" {
		t.Fatalf("tier %q", got.Tier)
	}
	if got.PeakConfidence != 81 {
		t.Fatalf("peak %f", got.PeakConfidence)
	}
	if !got.LockedAt.Equal(lockedAt) {
		t.Fatalf("locked at %v", got.LockedAt)
	}

	// A later update with a lower peak and zero locked time must not
	// regress either field.
	if err := s.UpdateSession("s1", "locked", 40, time.Time{}); err != nil {
		t.Fatalf("UpdateSession second: %v", err)
	}
	got, _ = s.GetSession("s1")
	if got.PeakConfidence != 81 {
		t.Fatalf("peak regressed to %f", got.PeakConfidence)
	}
	if !got.LockedAt.Equal(lockedAt) {
		t.Fatalf("locked at cleared: %v", got.LockedAt)
	}
}

func TestUpdateSessionNotFound(t *testing.T) {
	s := tempDB(t)
	if err := s.UpdateSession("nope", "candidate", 50, time.Time{}); err == nil {
		t.Fatal("expected error for unknown session")
	}
}

func TestEndSession(t *testing.T) {
	s := tempDB(t)
	s.BeginSession(sessionFixture("s1"))

	endedAt := time.Date(2025, 6, 1, 12, 5, 0, 0, time.UTC)
	if err := s.EndSession("s1", endedAt); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	got, _ := s.GetSession("s1")
	if !got.EndedAt.Equal(endedAt) {
		t.Fatalf("ended at %v, want %v", got.EndedAt, endedAt)
	}

	if err := s.EndSession("missing", endedAt); err == nil {
		t.Fatal("expected error for unknown session")
	}
}

func TestGetSessionNotFound(t *testing.T) {
	s := tempDB(t)
	s.BeginSession(sessionFixture("s1"))

	if _, err := s.GetSession("nonexistent-id"); err == nil {
		t.Fatal("expected error for nonexistent session")
	}
}

func TestActiveSessionEmptyDB(t *testing.T) {
	s := tempDB(t)
	if _, err := s.ActiveSession(); err == nil {
		t.Fatal("expected error when no active session exists")
	}
}

func TestListSessionsOrder(t *testing.T) {
	s := tempDB(t)

	first := sessionFixture("s1")
	s.BeginSession(first)

	second := sessionFixture("s2")
	second.EnteredAt = first.EnteredAt.Add(10 * time.Second)
	s.BeginSession(second)

	sessions, err := s.ListSessions(10)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].SessionID != "s2" {
		t.Fatalf("expected newest first, got %s", sessions[0].SessionID)
	}
}

func TestLogAndListTransitions(t *testing.T) {
	s := tempDB(t)
	s.BeginSession(sessionFixture("s1"))
	s.BeginSession(sessionFixture("s2"))

	entry := TransitionRecord{
		FromSessionID: "s1",
		ToSessionID:   "s2",
		FromStateID:   "focused",
		ToStateID:     "flow",
		Decision:      DecisionSwitch,
		Confidence:    71.5,
		Margin:        18.2,
		Emergency:     true,
		Reason:        "confidence collapse",
		TraceJSON:     `{"tick":42}`,
	}
	if err := s.LogTransition(entry); err != nil {
		t.Fatalf("LogTransition: %v", err)
	}

	got, err := s.ListTransitions(10)
	if err != nil {
		t.Fatalf("ListTransitions: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 transition, got %d", len(got))
	}
	tr := got[0]
	if tr.FromStateID != "focused" || tr.ToStateID != "flow" {
		t.Fatalf("states not round-tripped: %+v", tr)
	}
	if !tr.Emergency {
		t.Fatal("emergency flag lost")
	}
	if tr.Decision != DecisionSwitch {
		t.Fatalf("decision %q", tr.Decision)
	}
	if tr.CreatedAt.IsZero() {
		t.Fatal("created at should default to now")
	}
}

func TestLogTransitionResetHasNoOrigin(t *testing.T) {
	s := tempDB(t)
	s.BeginSession(sessionFixture("s1"))

	if err := s.LogTransition(TransitionRecord{
		ToSessionID: "s1",
		ToStateID:   "baseline",
		Decision:    DecisionReset,
	}); err != nil {
		t.Fatalf("LogTransition: %v", err)
	}

	got, _ := s.ListTransitions(1)
	if got[0].FromSessionID != "" || got[0].FromStateID != "" {
		t.Fatalf("reset entry should carry no origin: %+v", got[0])
	}
}

func TestListTransitionsNewestFirst(t *testing.T) {
	s := tempDB(t)
	s.BeginSession(sessionFixture("s1"))

	for _, to := range []string{"a", "b", "c"} {
		if err := s.LogTransition(TransitionRecord{
			ToSessionID: "s1", ToStateID: to, Decision: DecisionSwitch,
		}); err != nil {
			t.Fatalf("LogTransition %s: %v", to, err)
		}
	}
	got, err := s.ListTransitions(2)
	if err != nil {
		t.Fatalf("ListTransitions: %v", err)
	}
	if len(got) != 2 || got[0].ToStateID != "c" || got[1].ToStateID != "b" {
		t.Fatalf("expected newest-first page, got %+v", got)
	}
}

func TestBeginSessionOnClosedDB(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewStore(filepath.Join(dir, "test.db"))
	s.Close()

	if err := s.BeginSession(sessionFixture("s1")); err == nil {
		t.Fatal("expected error on closed DB")
	}
}

func TestLogTransitionOnClosedDB(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewStore(filepath.Join(dir, "test.db"))
	s.BeginSession(sessionFixture("s1"))
	s.Close()

	if err := s.LogTransition(TransitionRecord{ToSessionID: "s1", ToStateID: "x", Decision: DecisionSwitch}); err == nil {
		t.Fatal("expected error on closed DB")
	}
}

func corruptDB(t *testing.T) (*Store, *sql.DB) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	s := NewStoreWithDB(db)
	t.Cleanup(func() { db.Close() })
	return s, db
}

func TestGetSessionBadBandsJSON(t *testing.T) {
	s, db := corruptDB(t)
	now := time.Now().UTC().Format(time.RFC3339Nano)
	db.Exec(
		`INSERT INTO sessions (session_id, state_id, entered_at, tier, dominant_bands)
		 VALUES (?, ?, ?, ?, ?)`, "bad-json", "focused", now, "detected", "not-json",
	)

	if _, err := s.GetSession("bad-json"); err == nil {
		t.Fatal("expected unmarshal error for bad bands JSON")
	}
}

func TestBeginSessionInsertFails(t *testing.T) {
	s, db := corruptDB(t)
	db.Exec("DROP TABLE sessions")

	if err := s.BeginSession(sessionFixture("s1")); err == nil {
		t.Fatal("expected error when sessions table is missing")
	}
}

func TestBeginSessionSetActiveFails(t *testing.T) {
	s, db := corruptDB(t)
	db.Exec("DROP TABLE active_session")

	if err := s.BeginSession(sessionFixture("s1")); err == nil {
		t.Fatal("expected error when active_session table is missing")
	}
}
