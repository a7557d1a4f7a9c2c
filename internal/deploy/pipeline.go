// Package deploy runs the vault deployment as an ordered pipeline of steps.
// Each step names the facts it needs and the facts it establishes, so a
// mis-ordered pipeline is rejected before any remote call is made.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrInvalidPipeline is returned by Validate when a step requires a fact
	// that no earlier step provides.
	ErrInvalidPipeline = errors.New("invalid pipeline")
	// ErrPreconditionUnmet is returned when a step's required fact does not
	// hold in the live state. No remote call is made for that step.
	ErrPreconditionUnmet = errors.New("precondition unmet")
)

// Fact is something a step establishes about the deployment, such as the
// vault address being known.
type Fact string

const (
	FactAdmin          Fact = "admin.verified"
	FactToken          Fact = "token.address"
	FactVaultSubmitted Fact = "vault.submitted"
	FactVault          Fact = "vault.address"
	FactRolesGranted   Fact = "roles.granted"
	FactRolesVerified  Fact = "roles.verified"
	FactRecorded       Fact = "deployment.recorded"
)

const roleFactPrefix = "role:"

// RoleFact is the fact that the identifier of role has been read from the token.
func RoleFact(role string) Fact {
	return Fact(roleFactPrefix + role)
}

// Step is one stage of the pipeline.
type Step interface {
	Name() string
	Requires() []Fact
	Provides() []Fact
	Run(ctx context.Context, st *State) error
}

// StepError names the step that failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Phase is where a step is in its lifecycle.
type Phase string

const (
	PhaseStarted Phase = "started"
	PhaseDone    Phase = "done"
	PhaseFailed  Phase = "failed"
)

// Event reports step progress to an observer.
type Event struct {
	Step    string
	Phase   Phase
	Elapsed time.Duration
	Err     error
}

// Pipeline runs steps in order.
type Pipeline struct {
	steps    []Step
	initial  []Fact
	log      *zap.Logger
	observer func(Event)
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithInitialFacts declares facts that hold before the first step runs.
func WithInitialFacts(facts ...Fact) PipelineOption {
	return func(p *Pipeline) { p.initial = append(p.initial, facts...) }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) PipelineOption {
	return func(p *Pipeline) { p.log = l }
}

// WithObserver registers a callback for step events.
func WithObserver(fn func(Event)) PipelineOption {
	return func(p *Pipeline) { p.observer = fn }
}

// NewPipeline creates a pipeline over steps.
func NewPipeline(steps []Step, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{steps: steps, log: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Steps returns the steps in run order.
func (p *Pipeline) Steps() []Step { return p.steps }

// Validate checks statically that every required fact is an initial fact or
// provided by an earlier step, and that step names are unique.
func (p *Pipeline) Validate() error {
	if len(p.steps) == 0 {
		return fmt.Errorf("%w: no steps", ErrInvalidPipeline)
	}
	have := make(map[Fact]bool)
	for _, f := range p.initial {
		have[f] = true
	}
	names := make(map[string]bool)

	for i, s := range p.steps {
		if names[s.Name()] {
			return fmt.Errorf("%w: step %q appears twice", ErrInvalidPipeline, s.Name())
		}
		names[s.Name()] = true

		for _, f := range s.Requires() {
			if !have[f] {
				return fmt.Errorf("%w: step %d (%s) requires %s, which no earlier step provides",
					ErrInvalidPipeline, i+1, s.Name(), f)
			}
		}
		for _, f := range s.Provides() {
			have[f] = true
		}
	}
	return nil
}

// Run validates the pipeline and executes each step in order against st.
// Before a step runs its required facts are checked against st; after it
// runs its provided facts must hold. The first failure stops the pipeline
// and is returned as a *StepError. Completed steps are not rolled back.
func (p *Pipeline) Run(ctx context.Context, st *State) error {
	if err := p.Validate(); err != nil {
		return err
	}

	for _, s := range p.steps {
		name := s.Name()

		for _, f := range s.Requires() {
			if !st.Has(f) {
				return p.fail(name, 0, fmt.Errorf("%w: %s", ErrPreconditionUnmet, f))
			}
		}
		if err := ctx.Err(); err != nil {
			return p.fail(name, 0, err)
		}

		p.log.Info("step started", zap.String("step", name))
		p.emit(Event{Step: name, Phase: PhaseStarted})
		start := time.Now()

		err := s.Run(ctx, st)
		if err == nil {
			for _, f := range s.Provides() {
				if !st.Has(f) {
					err = fmt.Errorf("did not establish %s", f)
					break
				}
			}
		}
		elapsed := time.Since(start)

		if err != nil {
			return p.fail(name, elapsed, err)
		}
		p.log.Info("step finished", zap.String("step", name), zap.Duration("elapsed", elapsed))
		p.emit(Event{Step: name, Phase: PhaseDone, Elapsed: elapsed})
	}
	return nil
}

// fail logs and reports a failed step and wraps err for the caller.
func (p *Pipeline) fail(step string, elapsed time.Duration, err error) error {
	p.log.Error("step failed", zap.String("step", step), zap.Duration("elapsed", elapsed), zap.Error(err))
	p.emit(Event{Step: step, Phase: PhaseFailed, Elapsed: elapsed, Err: err})
	return &StepError{Step: step, Err: err}
}

func (p *Pipeline) emit(e Event) {
	if p.observer != nil {
		p.observer(e)
	}
}
