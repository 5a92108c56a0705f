package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielpatrickdp/mindstate/internal/catalog"
	"github.com/danielpatrickdp/mindstate/internal/display"
	"github.com/danielpatrickdp/mindstate/internal/engine"
	"github.com/danielpatrickdp/mindstate/internal/provenance"
	"github.com/danielpatrickdp/mindstate/internal/server"
	"github.com/danielpatrickdp/mindstate/internal/source"
)

// #region main
func main() {
	dbPath := envOr("MINDSTATE_DB", "mindstate.db")
	addr := envOr("MINDSTATE_ADDR", ":9053")
	sourceKind := envOr("MINDSTATE_SOURCE", "device")
	deviceURL := envOr("MINDSTATE_DEVICE_URL", "ws://localhost:9052/eeg")

	store, err := provenance.NewStore(dbPath)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	cat := catalog.Default()
	config := engine.DefaultConfig()
	eng, err := engine.New(config, cat)
	if err != nil {
		log.Fatalf("failed to build engine: %v", err)
	}

	serverConfig := server.DefaultConfig()
	serverConfig.Addr = addr
	srv := server.New(serverConfig, cat, store)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var src source.Source
	switch sourceKind {
	case "sim", "simulator":
		src = source.NewSimulator(source.DefaultSimulatorConfig())
	default:
		deviceConfig := source.DefaultDeviceConfig()
		deviceConfig.URL = deviceURL
		src = source.NewDevice(deviceConfig)
	}

	go func() {
		if err := src.Run(ctx); err != nil && ctx.Err() == nil {
			log.Printf("source stopped: %v", err)
		}
	}()
	go func() {
		for s := range src.Samples() {
			eng.Ingest(s)
		}
	}()
	go func() {
		log.Printf("api listening on %s (db: %s, source: %s)", addr, dbPath, sourceKind)
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Printf("server stopped: %v", err)
		}
	}()

	// The first session is recorded on the first tick, once the engine
	// stamps its entry time.
	rec := &recorder{store: store}

	ticker := time.NewTicker(config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			srv.Stop(shutdownCtx)
			shutdownCancel()
			rec.close(time.Now().UTC())
			return
		case now := <-ticker.C:
			model := eng.Tick(now)
			srv.Publish(model)
			rec.observe(eng.Current(), model, now.UTC())
		}
	}
}

// #endregion main

// #region recorder

// recorder mirrors the engine's session lifecycle into the provenance
// store: one row per session, one transition entry per switch.
type recorder struct {
	store     *provenance.Store
	sessionID string
	stateID   string
}

func (r *recorder) observe(cur engine.StateSession, model display.Model, now time.Time) {
	if cur.ID == r.sessionID {
		if err := r.store.UpdateSession(cur.ID, cur.Tier.String(), cur.Confidence, cur.LockedAt); err != nil {
			log.Printf("provenance update error: %v", err)
		}
		return
	}

	if r.sessionID != "" {
		if err := r.store.EndSession(r.sessionID, now); err != nil {
			log.Printf("provenance end error: %v", err)
		}
	}

	bands := make([]string, len(cur.DominantBands))
	for i, b := range cur.DominantBands {
		bands[i] = string(b)
	}
	err := r.store.BeginSession(provenance.SessionRecord{
		SessionID:      cur.ID,
		StateID:        cur.StateID,
		EnteredAt:      cur.EnteredAt,
		Tier:           cur.Tier.String(),
		PeakConfidence: cur.Confidence,
		DominantBands:  bands,
	})
	if err != nil {
		log.Printf("provenance begin error: %v", err)
	}

	decision := provenance.DecisionSwitch
	if r.sessionID == "" {
		decision = provenance.DecisionReset
	}
	traceJSON, _ := json.Marshal(model.Trace)
	err = r.store.LogTransition(provenance.TransitionRecord{
		FromSessionID: r.sessionID,
		ToSessionID:   cur.ID,
		FromStateID:   r.stateID,
		ToStateID:     cur.StateID,
		Decision:      decision,
		Confidence:    cur.Confidence,
		Emergency:     model.Trace.EmergencyActive,
		TraceJSON:     string(traceJSON),
		CreatedAt:     now,
	})
	if err != nil {
		log.Printf("provenance transition error: %v", err)
	}

	r.sessionID = cur.ID
	r.stateID = cur.StateID
}

func (r *recorder) close(now time.Time) {
	if r.sessionID == "" {
		return
	}
	if err := r.store.EndSession(r.sessionID, now); err != nil {
		log.Printf("provenance end error: %v", err)
	}
}

// #endregion recorder

// #region helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
