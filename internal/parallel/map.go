package parallel

import (
	"context"
	"iter"

	"golang.org/x/sync/errgroup"
)

type result[D any] struct {
	d D
	e error
}

// Map runs mapFunc over an input sequence with a bounded number of workers
// and yields results as they become available. Input and output are
// iterators, so the typical usage is
//
//	for issues, err := range pmap.Iter(files) {}
//
// Map is context aware, a canceled context ends the processing. Output
// order is completion order, not input order, callers needing a stable
// order must sort afterwards.
type Map[E, D any] struct {
	parentCtx    context.Context
	cancelParent context.CancelFunc
	g            *errgroup.Group
	gctx         context.Context
	mapped       chan result[D]
	mapFunc      func(context.Context, E) (D, error)
}

func NewMap[E, D any](parentCtx context.Context, limit int, mapFunc func(context.Context, E) (D, error)) *Map[E, D] {
	parentCtx, cancelParent := context.WithCancel(parentCtx)
	g, gctx := errgroup.WithContext(parentCtx)
	g.SetLimit(limit + 1)

	mapped := make(chan result[D], limit)

	return &Map[E, D]{
		parentCtx:    parentCtx,
		cancelParent: cancelParent,
		g:            g,
		gctx:         gctx,
		mapped:       mapped,
		mapFunc:      mapFunc,
	}
}

func (m *Map[E, D]) goWorkers(seq iter.Seq2[E, error]) {
	m.g.Go(func() error {
		for entry, nerr := range seq {
			if nerr != nil {
				continue
			}
			m.g.Go(func() error {
				d, mapErr := m.mapFunc(m.gctx, entry)
				select {
				case <-m.gctx.Done():
					return m.gctx.Err()
				default:
					m.mapped <- result[D]{d: d, e: mapErr}
				}
				return nil
			})
		}
		return nil
	})
}

func (m *Map[E, D]) Iter(seq iter.Seq2[E, error]) iter.Seq2[D, error] {
	return func(yield func(D, error) bool) {
		defer m.cancelParent()
		m.goWorkers(seq)

		go func() {
			_ = m.g.Wait()
			close(m.mapped)
		}()

		for r := range m.mapped {
			if m.parentCtx.Err() != nil {
				return
			}
			if !yield(r.d, r.e) {
				return
			}
		}
	}
}
