package flow

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"nftmarket-go/internal/metrics"
)

// StatusFunc receives caller-visible progress messages. Observable side
// effect only; not part of the correctness contract.
type StatusFunc func(msg string)

// NopStatus discards status updates.
func NopStatus(string) {}

// Step is one unit of an ordered flow. Run blocks until the underlying
// transaction (if any) is confirmed, not merely submitted.
type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

// StepError reports which step failed and which steps had already confirmed.
// Confirmed steps are never rolled back; partial completion is a valid
// terminal state the caller resumes from.
type StepError struct {
	Flow      string
	Step      string
	Completed []string
	Err       error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: step %q failed after %d completed: %v", e.Flow, e.Step, len(e.Completed), e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Runner executes steps strictly in order, halting on the first failure.
// When a chain probe is configured, it re-reads the session's chain before
// every step and aborts if the wallet moved off the expected chain.
type Runner struct {
	Flow      string
	Log       zerolog.Logger
	Status    StatusFunc
	ChainID   func() (uint64, bool)
	WantChain uint64
}

// Execute runs the steps. The returned error, if any, is a *StepError.
func (r *Runner) Execute(ctx context.Context, steps []Step) error {
	status := r.Status
	if status == nil {
		status = NopStatus
	}
	completed := make([]string, 0, len(steps))
	for _, step := range steps {
		if r.ChainID != nil {
			if id, ok := r.ChainID(); ok && id != r.WantChain {
				err := fmt.Errorf("%w: on chain %d, want %d", ErrChainChangedMidOperation, id, r.WantChain)
				metrics.StepsTotal.WithLabelValues(r.Flow, step.Name, "aborted").Inc()
				return &StepError{Flow: r.Flow, Step: step.Name, Completed: completed, Err: err}
			}
		}
		status(step.Name)
		r.Log.Debug().Str("flow", r.Flow).Str("step", step.Name).Msg("step start")
		if err := step.Run(ctx); err != nil {
			metrics.StepsTotal.WithLabelValues(r.Flow, step.Name, "failed").Inc()
			return &StepError{Flow: r.Flow, Step: step.Name, Completed: completed, Err: err}
		}
		metrics.StepsTotal.WithLabelValues(r.Flow, step.Name, "ok").Inc()
		completed = append(completed, step.Name)
	}
	return nil
}
