package source

import (
	"testing"
	"time"
)

func TestParseFrameObjectForm(t *testing.T) {
	data := []byte(`{
		"theta": 0.2, "alpha": 0.7, "betaLow": 0.3, "betaHigh": 0.1, "gamma": 0.05,
		"motion": 0.15,
		"metrics": {"stress": 0.2, "relaxation": 0.8, "engagement": 0.4, "focus": 0.5},
		"timestamp": 1748779200000
	}`)

	s, err := ParseFrame(data)
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}
	if s.Alpha != 0.7 || s.Theta != 0.2 {
		t.Fatalf("bands not parsed: %+v", s)
	}
	if s.Motion != 0.15 {
		t.Fatalf("motion %f", s.Motion)
	}
	if s.Metrics == nil || s.Metrics.Relaxation != 0.8 {
		t.Fatalf("metrics not parsed: %+v", s.Metrics)
	}
	want := time.UnixMilli(1748779200000).UTC()
	if !s.Timestamp.Equal(want) {
		t.Fatalf("timestamp %v, want %v", s.Timestamp, want)
	}
}

func TestParseFrameObjectWithoutMotion(t *testing.T) {
	s, err := ParseFrame([]byte(`{"alpha": 0.5, "theta": 0.1}`))
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}
	if s.Motion != -1 {
		t.Fatalf("absent motion should map to -1, got %f", s.Motion)
	}
	if s.Gamma != 0 {
		t.Fatalf("missing bands should read as 0, got %f", s.Gamma)
	}
}

func TestParseFrameArrayForms(t *testing.T) {
	s, err := ParseFrame([]byte(`[0.1, 0.6, 0.3, 0.2, 0.05]`))
	if err != nil {
		t.Fatalf("ParseFrame 5-array: %v", err)
	}
	if s.Alpha != 0.6 || s.Gamma != 0.05 {
		t.Fatalf("array bands not in canonical order: %+v", s)
	}
	if s.Motion != -1 {
		t.Fatalf("5-array should have no motion, got %f", s.Motion)
	}

	s, err = ParseFrame([]byte(`[0.1, 0.6, 0.3, 0.2, 0.05, 0.4]`))
	if err != nil {
		t.Fatalf("ParseFrame 6-array: %v", err)
	}
	if s.Motion != 0.4 {
		t.Fatalf("6-array motion %f", s.Motion)
	}
}

func TestParseFrameClampsOutOfRange(t *testing.T) {
	s, err := ParseFrame([]byte(`{"alpha": 1.7, "theta": -0.3}`))
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}
	if s.Alpha != 1 || s.Theta != 0 {
		t.Fatalf("values not clamped: %+v", s)
	}
}

func TestParseFrameRejectsGarbage(t *testing.T) {
	cases := [][]byte{
		[]byte(`not json`),
		[]byte(`[0.1, 0.2]`),             // wrong arity
		[]byte(`{"unrelated": "field"}`), // no band fields
	}
	for _, data := range cases {
		if _, err := ParseFrame(data); err == nil {
			t.Errorf("expected error for %s", data)
		}
	}
}
