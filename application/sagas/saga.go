package sagas

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Step is a single unit of work with an optional undo
type Step struct {
	Name       string
	Execute    func(ctx context.Context) error
	Compensate func(ctx context.Context) error

	// MaxAttempts defaults to 1
	MaxAttempts int
	// RetryDelay doubles after every failed attempt
	RetryDelay time.Duration
}

// State of a saga execution
type State string

const (
	StatePending      State = "PENDING"
	StateRunning      State = "RUNNING"
	StateCompleted    State = "COMPLETED"
	StateCompensating State = "COMPENSATING"
	StateCompensated  State = "COMPENSATED"
	StateFailed       State = "FAILED"
)

// Saga runs steps in order and undoes completed steps in reverse when one fails
type Saga struct {
	id        string
	name      string
	steps     []Step
	state     State
	logger    *zap.Logger
	retryable func(error) bool
}

// New creates a saga. Errors for which retryable returns false are not retried;
// a nil retryable retries every error.
func New(name string, logger *zap.Logger, retryable func(error) bool) *Saga {
	if logger == nil {
		logger = zap.NewNop()
	}
	if retryable == nil {
		retryable = func(error) bool { return true }
	}
	return &Saga{
		id:        "saga_" + uuid.New().String(),
		name:      name,
		state:     StatePending,
		logger:    logger,
		retryable: retryable,
	}
}

// AddStep appends a step
func (s *Saga) AddStep(step Step) *Saga {
	s.steps = append(s.steps, step)
	return s
}

// Run executes every step. When a step fails, completed steps are compensated
// in reverse order and the step error is returned; compensation failures are
// joined onto it.
func (s *Saga) Run(ctx context.Context) error {
	s.state = StateRunning
	s.logger.Debug("Starting saga",
		zap.String("saga_id", s.id),
		zap.String("saga_name", s.name),
		zap.Int("total_steps", len(s.steps)),
	)

	for i, step := range s.steps {
		if err := s.runWithRetry(ctx, step); err != nil {
			s.state = StateFailed
			s.logger.Warn("Saga step failed",
				zap.String("saga_id", s.id),
				zap.String("step_name", step.Name),
				zap.Error(err),
			)

			stepErr := fmt.Errorf("saga %s failed at step %s: %w", s.name, step.Name, err)
			if compErr := s.compensate(ctx, s.steps[:i]); compErr != nil {
				return errors.Join(stepErr, compErr)
			}
			s.state = StateCompensated
			return stepErr
		}
	}

	s.state = StateCompleted
	return nil
}

func (s *Saga) runWithRetry(ctx context.Context, step Step) error {
	attempts := step.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	delay := step.RetryDelay

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return errors.Join(lastErr, ctx.Err())
			case <-time.After(delay):
			}
			delay *= 2
		}

		lastErr = step.Execute(ctx)
		if lastErr == nil {
			return nil
		}
		if !s.retryable(lastErr) {
			return lastErr
		}
		s.logger.Debug("Retrying saga step",
			zap.String("saga_id", s.id),
			zap.String("step_name", step.Name),
			zap.Int("attempt", attempt),
			zap.Error(lastErr),
		)
	}
	return fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}

func (s *Saga) compensate(ctx context.Context, completed []Step) error {
	s.state = StateCompensating

	var errs []error
	for i := len(completed) - 1; i >= 0; i-- {
		step := completed[i]
		if step.Compensate == nil {
			continue
		}
		// compensation must run even if the caller's context is already done
		if err := step.Compensate(context.WithoutCancel(ctx)); err != nil {
			s.logger.Error("Compensation failed",
				zap.String("saga_id", s.id),
				zap.String("step_name", step.Name),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("compensate %s: %w", step.Name, err))
		}
	}
	return errors.Join(errs...)
}

// State returns the current state
func (s *Saga) State() State {
	return s.state
}

// ID returns the saga id
func (s *Saga) ID() string {
	return s.id
}
