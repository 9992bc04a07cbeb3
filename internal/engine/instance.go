package engine

import (
	"sync/atomic"

	"github.com/risseraka/matchmakr/internal/indexing"
)

// slot holds the currently published bundle of one dataset. Readers load the
// pointer once per request and keep using that bundle even if a reload
// publishes a newer one meanwhile.
type slot struct {
	current atomic.Pointer[indexing.Dataset]
}

type generationCounter struct {
	n atomic.Uint64
}

func (g *generationCounter) next() uint64 {
	return g.n.Add(1)
}

func (g *generationCounter) current() uint64 {
	return g.n.Load()
}

// published returns the bundle of name, or nil when it was never loaded.
func (e *Engine) published(name string) *indexing.Dataset {
	e.mu.RLock()
	s, ok := e.datasets[name]
	e.mu.RUnlock()
	if !ok {
		return nil
	}
	return s.current.Load()
}

func (e *Engine) publish(ds *indexing.Dataset) {
	e.mu.Lock()
	s, ok := e.datasets[ds.Name]
	if !ok {
		s = &slot{}
		e.datasets[ds.Name] = s
	}
	e.mu.Unlock()
	s.current.Store(ds)
}
