package smoothing

import (
	"math"
	"sort"
)

// #region window

// Window is a fixed-capacity ring buffer of raw confidences. The oldest
// value is evicted on overflow.
type Window struct {
	buf   []float32
	next  int
	count int
}

// NewWindow creates a window holding at most capacity values.
func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{buf: make([]float32, capacity)}
}

// Push appends a value, evicting the oldest when full.
func (w *Window) Push(v float32) {
	w.buf[w.next] = v
	w.next = (w.next + 1) % len(w.buf)
	if w.count < len(w.buf) {
		w.count++
	}
}

// Len returns the number of buffered values.
func (w *Window) Len() int {
	return w.count
}

// Median returns the median of the buffered values. Median rather than
// mean keeps single-sample spikes out of the smoothed confidence.
// Returns 0 on an empty window.
func (w *Window) Median() float32 {
	if w.count == 0 {
		return 0
	}
	vals := make([]float32, w.count)
	copy(vals, w.buf[:w.count])
	sort.Slice(vals, func(i, j int) bool { return vals[i] < vals[j] })
	mid := len(vals) / 2
	if len(vals)%2 == 1 {
		return vals[mid]
	}
	return (vals[mid-1] + vals[mid]) / 2
}

// StdDev returns the population standard deviation of the buffered
// values, used as the variance/stability signal. Returns 0 with fewer
// than two values.
func (w *Window) StdDev() float32 {
	if w.count < 2 {
		return 0
	}
	var sum float64
	for _, v := range w.buf[:w.count] {
		sum += float64(v)
	}
	mean := sum / float64(w.count)

	var sqSum float64
	for _, v := range w.buf[:w.count] {
		d := float64(v) - mean
		sqSum += d * d
	}
	return float32(math.Sqrt(sqSum / float64(w.count)))
}

// #endregion window

// #region tracker

// Tracker maintains one window per active state id. Windows for ids that
// fall out of relevance are discarded to bound memory; a re-entering id
// starts fresh.
type Tracker struct {
	capacity int
	windows  map[string]*Window
}

// NewTracker creates a tracker whose windows hold capacity values each.
func NewTracker(capacity int) *Tracker {
	return &Tracker{capacity: capacity, windows: make(map[string]*Window)}
}

// Observe records a raw confidence for a state id, creating its window
// on first sight.
func (t *Tracker) Observe(stateID string, confidence float32) {
	w, ok := t.windows[stateID]
	if !ok {
		w = NewWindow(t.capacity)
		t.windows[stateID] = w
	}
	w.Push(confidence)
}

// Smoothed returns the median confidence for a state id, or 0 if the id
// is untracked.
func (t *Tracker) Smoothed(stateID string) float32 {
	if w, ok := t.windows[stateID]; ok {
		return w.Median()
	}
	return 0
}

// Variance returns the population standard deviation for a state id, or
// 0 if the id is untracked.
func (t *Tracker) Variance(stateID string) float32 {
	if w, ok := t.windows[stateID]; ok {
		return w.StdDev()
	}
	return 0
}

// Samples returns how many values are buffered for a state id.
func (t *Tracker) Samples(stateID string) int {
	if w, ok := t.windows[stateID]; ok {
		return w.Len()
	}
	return 0
}

// Retain drops every window whose id is not in keep.
func (t *Tracker) Retain(keep ...string) {
	keepSet := make(map[string]bool, len(keep))
	for _, id := range keep {
		keepSet[id] = true
	}
	for id := range t.windows {
		if !keepSet[id] {
			delete(t.windows, id)
		}
	}
}

// Reset discards a state id's window so its next observation starts a
// fresh buffer.
func (t *Tracker) Reset(stateID string) {
	delete(t.windows, stateID)
}

// #endregion tracker
