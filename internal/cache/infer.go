package cache

import (
	"log/slog"

	"github.com/ekisa-team/some/internal/pipeline"
)

// Inferer is what Cached wraps; *pipeline.Pipeline implements it.
type Inferer interface {
	Infer(waveforms [][]float32) ([][]pipeline.Result, error)
}

// Cached answers from the cache where it can and runs the wrapped inferer on
// the remaining waveforms in a single call.
type Cached struct {
	inner   Inferer
	cache   *Cache
	modelID string
}

// NewCached wraps inner. modelID must change whenever the model or the
// configuration does.
func NewCached(inner Inferer, c *Cache, modelID string) *Cached {
	return &Cached{inner: inner, cache: c, modelID: modelID}
}

// Infer implements Inferer. Results come back in input order. Cache read
// failures count as misses; write failures are logged.
func (c *Cached) Infer(waveforms [][]float32) ([][]pipeline.Result, error) {
	out := make([][]pipeline.Result, len(waveforms))
	keys := make([][]byte, len(waveforms))

	var missIdx []int
	var missing [][]float32
	for i, w := range waveforms {
		keys[i] = Key(c.modelID, w)
		res, ok, err := c.cache.Get(keys[i])
		if err != nil {
			slog.Warn("Result cache read failed", "error", err)
		}
		if ok {
			out[i] = res
			continue
		}
		missIdx = append(missIdx, i)
		missing = append(missing, w)
	}

	slog.Debug("Result cache lookup", "hits", len(waveforms)-len(missIdx), "misses", len(missIdx))
	if len(missing) == 0 {
		return out, nil
	}

	fresh, err := c.inner.Infer(missing)
	if err != nil {
		return nil, err
	}

	for j, i := range missIdx {
		out[i] = fresh[j]
		if err := c.cache.Put(keys[i], fresh[j]); err != nil {
			slog.Warn("Result cache write failed", "error", err)
		}
	}
	return out, nil
}
