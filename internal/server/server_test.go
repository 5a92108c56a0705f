package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/danielpatrickdp/mindstate/internal/catalog"
	"github.com/danielpatrickdp/mindstate/internal/display"
	"github.com/danielpatrickdp/mindstate/internal/provenance"
)

func testServer(t *testing.T, store *provenance.Store) *Server {
	t.Helper()
	return New(DefaultConfig(), catalog.Default(), store)
}

func testModel(stateID string) display.Model {
	return display.Model{
		State: display.CurrentState{
			ID:         stateID,
			Name:       "Test State",
			Confidence: 70,
			Tier:       "candidate",
		},
		Transition: "Entering",
		Trace:      display.Trace{Tick: 7},
	}
}

func TestGetStateBeforeFirstTick(t *testing.T) {
	s := testServer(t, nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/state", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before first publish, got %d", rec.Code)
	}
}

func TestGetStateReturnsLatest(t *testing.T) {
	s := testServer(t, nil)
	s.Publish(testModel("focused"))
	s.Publish(testModel("flow"))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/state", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}

	var model display.Model
	if err := json.Unmarshal(rec.Body.Bytes(), &model); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if model.State.ID != "flow" {
		t.Fatalf("expected the latest model, got %s", model.State.ID)
	}
}

func TestGetStatesListsCatalog(t *testing.T) {
	s := testServer(t, nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/states", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}

	var defs []catalog.Definition
	if err := json.Unmarshal(rec.Body.Bytes(), &defs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(defs) != catalog.Default().Len() {
		t.Fatalf("expected %d states, got %d", catalog.Default().Len(), len(defs))
	}
}

func TestHistoryEndpointsWithoutStore(t *testing.T) {
	s := testServer(t, nil)

	for _, path := range []string{"/api/v1/sessions", "/api/v1/transitions"} {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404 without a store, got %d", path, rec.Code)
		}
	}
}

func TestGetSessionsFromStore(t *testing.T) {
	store, err := provenance.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	store.BeginSession(provenance.SessionRecord{
		SessionID: "s1", StateID: "focused",
		EnteredAt: time.Now().UTC(), Tier: "detected",
		DominantBands: []string{"betaLow"},
	})

	s := testServer(t, store)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/sessions?limit=5", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	var sessions []provenance.SessionRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &sessions); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(sessions) != 1 || sessions[0].StateID != "focused" {
		t.Fatalf("unexpected sessions: %+v", sessions)
	}
}

func TestHealth(t *testing.T) {
	s := testServer(t, nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"healthy"`) {
		t.Fatalf("body %s", rec.Body.String())
	}
}

func TestLimitParam(t *testing.T) {
	cases := []struct {
		query string
		want  int
	}{
		{"", 50},
		{"?limit=10", 10},
		{"?limit=0", 50},
		{"?limit=junk", 50},
		{"?limit=9999", 500},
	}
	for _, c := range cases {
		r := httptest.NewRequest("GET", "/api/v1/sessions"+c.query, nil)
		if got := limitParam(r, 50); got != c.want {
			t.Errorf("limit %q: got %d, want %d", c.query, got, c.want)
		}
	}
}

func TestWebSocketReceivesPublishedModels(t *testing.T) {
	s := testServer(t, nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Registration races the first publish; wait for the subscriber.
	deadline := time.Now().Add(2 * time.Second)
	for s.hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if s.hub.ClientCount() != 1 {
		t.Fatal("subscriber never registered")
	}

	s.Publish(testModel("meditative"))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var model display.Model
	if err := conn.ReadJSON(&model); err != nil {
		t.Fatalf("read model: %v", err)
	}
	if model.State.ID != "meditative" {
		t.Fatalf("streamed model %s", model.State.ID)
	}
}
