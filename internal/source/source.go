// Package source provides sample producers: a websocket client for a
// headset bridge and a deterministic simulator for development and replay.
package source

import (
	"context"

	"github.com/danielpatrickdp/mindstate/internal/sample"
)

// Source produces band-power samples. Run blocks until the context is
// canceled; samples arrive on the channel returned by Samples.
type Source interface {
	Run(ctx context.Context) error
	Samples() <-chan sample.Sample
}
