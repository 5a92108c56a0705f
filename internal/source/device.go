package source

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/danielpatrickdp/mindstate/internal/sample"
)

// #region config

// DeviceConfig configures the headset bridge client.
type DeviceConfig struct {
	URL            string        // websocket endpoint of the bridge
	DialTimeout    time.Duration
	ReadTimeout    time.Duration // max silence before the connection is considered dead
	ReconnectDelay time.Duration
	MaxReconnect   time.Duration // backoff ceiling
}

// DefaultDeviceConfig returns the canonical bridge client settings.
func DefaultDeviceConfig() DeviceConfig {
	return DeviceConfig{
		URL:            "ws://localhost:9052/eeg",
		DialTimeout:    10 * time.Second,
		ReadTimeout:    15 * time.Second,
		ReconnectDelay: time.Second,
		MaxReconnect:   30 * time.Second,
	}
}

// #endregion config

// #region device

// Device streams samples from a headset bridge over websocket. The bridge
// sends one JSON frame per sample, either as an object with named band
// fields or as a bare array in canonical band order.
type Device struct {
	config DeviceConfig
	out    chan sample.Sample
}

// NewDevice creates a bridge client. Samples drop when the consumer lags;
// the stabilizer only ever wants the most recent reading anyway.
func NewDevice(config DeviceConfig) *Device {
	return &Device{
		config: config,
		out:    make(chan sample.Sample, 16),
	}
}

// Samples returns the sample channel. Closed when Run returns.
func (d *Device) Samples() <-chan sample.Sample {
	return d.out
}

// Run connects to the bridge and pumps frames until the context is
// canceled, reconnecting with capped backoff on any failure.
func (d *Device) Run(ctx context.Context) error {
	defer close(d.out)

	delay := d.config.ReconnectDelay
	for {
		err := d.pump(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			delay *= 2
			if delay > d.config.MaxReconnect {
				delay = d.config.MaxReconnect
			}
		} else {
			delay = d.config.ReconnectDelay
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// pump runs a single connection until it fails or the context ends.
func (d *Device) pump(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: d.config.DialTimeout}
	conn, _, err := dialer.DialContext(ctx, d.config.URL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", d.config.URL, err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		if d.config.ReadTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(d.config.ReadTimeout))
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read frame: %w", err)
		}

		s, err := ParseFrame(data)
		if err != nil {
			// A malformed frame is the bridge's problem, not a reason to
			// drop the connection.
			continue
		}

		select {
		case d.out <- s:
		case <-ctx.Done():
			return ctx.Err()
		default:
			// Consumer lagging: drop the frame, a newer one follows.
		}
	}
}

// #endregion device

// #region frame-parsing

// frame is the object form of a bridge sample.
type frame struct {
	Theta    *float32        `json:"theta"`
	Alpha    *float32        `json:"alpha"`
	BetaLow  *float32        `json:"betaLow"`
	BetaHigh *float32        `json:"betaHigh"`
	Gamma    *float32        `json:"gamma"`
	Motion   *float32        `json:"motion"`
	Metrics  *sample.Metrics `json:"metrics"`
	Unix     int64           `json:"timestamp"` // milliseconds, optional
}

// ParseFrame decodes one bridge frame. Two wire forms are accepted: an
// object with named band fields, or a bare array of 5 (bands only) or 6
// (bands plus motion) values in canonical band order. Values are clamped
// to the unit range.
func ParseFrame(data []byte) (sample.Sample, error) {
	var arr []float32
	if err := json.Unmarshal(data, &arr); err == nil {
		return parseArrayFrame(arr)
	}

	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return sample.Sample{}, fmt.Errorf("parse frame: %w", err)
	}
	if f.Theta == nil && f.Alpha == nil && f.BetaLow == nil && f.BetaHigh == nil && f.Gamma == nil {
		return sample.Sample{}, fmt.Errorf("frame carries no band fields")
	}

	s := sample.Sample{
		Theta:    deref(f.Theta),
		Alpha:    deref(f.Alpha),
		BetaLow:  deref(f.BetaLow),
		BetaHigh: deref(f.BetaHigh),
		Gamma:    deref(f.Gamma),
		Motion:   -1,
		Metrics:  f.Metrics,
	}
	if f.Motion != nil {
		s.Motion = *f.Motion
	}
	if f.Unix > 0 {
		s.Timestamp = time.UnixMilli(f.Unix).UTC()
	}
	return s.Clamp(), nil
}

func parseArrayFrame(arr []float32) (sample.Sample, error) {
	if len(arr) != 5 && len(arr) != 6 {
		return sample.Sample{}, fmt.Errorf("array frame has %d values, want 5 or 6", len(arr))
	}
	s := sample.Sample{
		Theta:    arr[0],
		Alpha:    arr[1],
		BetaLow:  arr[2],
		BetaHigh: arr[3],
		Gamma:    arr[4],
		Motion:   -1,
	}
	if len(arr) == 6 {
		s.Motion = arr[5]
	}
	return s.Clamp(), nil
}

func deref(f *float32) float32 {
	if f == nil {
		return 0
	}
	return *f
}

// #endregion frame-parsing
