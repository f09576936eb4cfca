// Package engine defines the pluggable analysis contract and the built-in
// heuristic engine. The runner in internal/review drives an Analyzer
// through its phases and owns all progress bookkeeping; an Analyzer only
// does the work.
package engine

import (
	"context"

	"github.com/reviewd/reviewd/internal/model"
)

// Analyzer is one analysis engine. Implementations must be stateless across
// sessions: many reviews run through the same Analyzer value concurrently.
type Analyzer interface {
	// Phases returns the ordered labels of the work units executed for
	// every batch. The list is fixed for the lifetime of the Analyzer.
	Phases() []string

	// RunPhase executes phase i of the Phases list. The runner calls the
	// phases of one session sequentially, in index order, each exactly
	// once. An error aborts the session.
	RunPhase(ctx context.Context, i int, batch model.Batch, config model.ReviewConfig) error

	// Result builds the final immutable result. Called once, strictly
	// after every phase succeeded.
	Result(ctx context.Context, batch model.Batch, config model.ReviewConfig) (model.Result, error)
}
