package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/reviewd/reviewd/internal/model"
)

var errPhaseOutOfRange = errors.New("phase index out of range")

// Fixed is an Analyzer returning a canned result. It backs dry runs and the
// lifecycle tests, which need full control over phases and failures.
type Fixed struct {
	PhaseLabels []string
	Res         model.Result
	// FailAt aborts the phase with that index (0-based); negative means
	// never fail.
	FailAt  int
	FailErr error
}

// NewFixed returns a Fixed analyzer which never fails.
func NewFixed(phases []string, res model.Result) *Fixed {
	return &Fixed{
		PhaseLabels: phases,
		Res:         res,
		FailAt:      -1,
	}
}

func (f *Fixed) Phases() []string {
	return append([]string(nil), f.PhaseLabels...)
}

func (f *Fixed) RunPhase(ctx context.Context, i int, _ model.Batch, _ model.ReviewConfig) error {
	if i < 0 || i >= len(f.PhaseLabels) {
		return errPhaseOutOfRange
	}
	if i == f.FailAt {
		if f.FailErr != nil {
			return f.FailErr
		}
		return fmt.Errorf("phase %q failed", f.PhaseLabels[i])
	}
	return ctx.Err()
}

func (f *Fixed) Result(_ context.Context, _ model.Batch, _ model.ReviewConfig) (model.Result, error) {
	return f.Res, nil
}
