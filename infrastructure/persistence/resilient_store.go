// Package persistence decorates record stores with retries, a circuit
// breaker, tracing spans and operation metrics.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/aws/smithy-go"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/moatasim-KT/interactive-knowledge-system-sub006/application/ports"
	pkgerrors "github.com/moatasim-KT/interactive-knowledge-system-sub006/pkg/errors"
)

// ErrCircuitOpen is returned while the breaker rejects calls
var ErrCircuitOpen = errors.New("record store circuit breaker is open")

// StoreObserver receives per-call measurements
type StoreObserver interface {
	ObserveStoreOperation(store, operation string, duration time.Duration, err error)
	ObserveStoreRetry(store, operation string)
	ObserveBreakerState(name string, state int)
}

// RetryConfig configures retries of transient failures
type RetryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	JitterFactor float64
}

// BreakerConfig configures the circuit breaker
type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// ResilienceConfig groups the decorator settings
type ResilienceConfig struct {
	Retry   RetryConfig
	Breaker BreakerConfig
}

// DefaultResilienceConfig returns the production defaults
func DefaultResilienceConfig() ResilienceConfig {
	return ResilienceConfig{
		Retry: RetryConfig{
			MaxRetries:   3,
			InitialDelay: 50 * time.Millisecond,
			MaxDelay:     2 * time.Second,
			JitterFactor: 0.1,
		},
		Breaker: BreakerConfig{
			MaxRequests:      3,
			Interval:         30 * time.Second,
			Timeout:          30 * time.Second,
			FailureThreshold: 0.6,
			MinRequests:      10,
		},
	}
}

// ResilientStore wraps a RecordStore. Transient failures are retried with
// exponential backoff; sustained failures open the breaker.
type ResilientStore[T ports.Record] struct {
	inner    ports.RecordStore[T]
	name     string
	config   ResilienceConfig
	breaker  *gobreaker.CircuitBreaker
	tracer   trace.Tracer
	observer StoreObserver
	logger   *zap.Logger

	randMu sync.Mutex
	rand   *rand.Rand
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewResilientStore decorates inner. observer may be nil.
func NewResilientStore[T ports.Record](
	inner ports.RecordStore[T],
	name string,
	config ResilienceConfig,
	observer StoreObserver,
	logger *zap.Logger,
) *ResilientStore[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ResilientStore[T]{
		inner:    inner,
		name:     name,
		config:   config,
		tracer:   otel.Tracer("record-store"),
		observer: observer,
		logger:   logger,
		rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep:    sleepContext,
	}

	bc := config.Breaker
	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: bc.MaxRequests,
		Interval:    bc.Interval,
		Timeout:     bc.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < bc.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= bc.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Record store circuit breaker changed state",
				zap.String("store", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			if observer != nil {
				observer.ObserveBreakerState(name, int(to))
			}
		},
		// domain outcomes say nothing about the health of the backend
		IsSuccessful: func(err error) bool {
			return err == nil || !IsTransient(err)
		},
	})
	return s
}

// IsTransient reports whether a store error is worth retrying
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var appErr *pkgerrors.AppError
	if errors.As(err, &appErr) {
		return false
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ProvisionedThroughputExceededException",
			"ThrottlingException",
			"RequestLimitExceeded",
			"InternalServerError",
			"ServiceUnavailable",
			"TransactionConflictException":
			return true
		}
		return apiErr.ErrorFault() == smithy.FaultServer
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "sqlite_busy")
}

func (s *ResilientStore[T]) do(ctx context.Context, operation string, attrs []attribute.KeyValue, fn func(ctx context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, "store."+operation,
		trace.WithAttributes(append(attrs, attribute.String("store.name", s.name))...),
	)
	defer span.End()

	start := time.Now()
	err := s.retry(ctx, operation, func() error {
		_, err := s.breaker.Execute(func() (interface{}, error) {
			return nil, fn(ctx)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}
		return err
	})

	if s.observer != nil {
		s.observer.ObserveStoreOperation(s.name, operation, time.Since(start), err)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (s *ResilientStore[T]) retry(ctx context.Context, operation string, fn func() error) error {
	rc := s.config.Retry
	delay := rc.InitialDelay

	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil || attempt >= rc.MaxRetries || !IsTransient(err) {
			return err
		}

		s.logger.Debug("Retrying record store operation",
			zap.String("store", s.name),
			zap.String("operation", operation),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
		if s.observer != nil {
			s.observer.ObserveStoreRetry(s.name, operation)
		}
		if err := s.sleep(ctx, s.jitter(delay)); err != nil {
			return err
		}
		delay *= 2
		if rc.MaxDelay > 0 && delay > rc.MaxDelay {
			delay = rc.MaxDelay
		}
	}
}

func (s *ResilientStore[T]) jitter(d time.Duration) time.Duration {
	if s.config.Retry.JitterFactor <= 0 || d <= 0 {
		return d
	}
	s.randMu.Lock()
	defer s.randMu.Unlock()
	spread := float64(d) * s.config.Retry.JitterFactor
	return d + time.Duration((s.rand.Float64()*2-1)*spread)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Get returns the record stored under key
func (s *ResilientStore[T]) Get(ctx context.Context, key string) (T, bool, error) {
	var (
		rec T
		ok  bool
	)
	err := s.do(ctx, "Get", []attribute.KeyValue{attribute.String("record.key", key)}, func(ctx context.Context) error {
		var err error
		rec, ok, err = s.inner.Get(ctx, key)
		return err
	})
	return rec, ok, err
}

// GetAll returns up to limit records
func (s *ResilientStore[T]) GetAll(ctx context.Context, limit int) ([]T, error) {
	var recs []T
	err := s.do(ctx, "GetAll", []attribute.KeyValue{attribute.Int("query.limit", limit)}, func(ctx context.Context) error {
		var err error
		recs, err = s.inner.GetAll(ctx, limit)
		return err
	})
	return recs, err
}

// Add inserts a record
func (s *ResilientStore[T]) Add(ctx context.Context, record T, description string) error {
	return s.do(ctx, "Add", []attribute.KeyValue{attribute.String("record.key", record.GetID())}, func(ctx context.Context) error {
		return s.inner.Add(ctx, record, description)
	})
}

// Put inserts or replaces a record
func (s *ResilientStore[T]) Put(ctx context.Context, record T, description string) error {
	return s.do(ctx, "Put", []attribute.KeyValue{attribute.String("record.key", record.GetID())}, func(ctx context.Context) error {
		return s.inner.Put(ctx, record, description)
	})
}

// Delete removes a record
func (s *ResilientStore[T]) Delete(ctx context.Context, key string, description string) (bool, error) {
	var deleted bool
	err := s.do(ctx, "Delete", []attribute.KeyValue{attribute.String("record.key", key)}, func(ctx context.Context) error {
		var err error
		deleted, err = s.inner.Delete(ctx, key, description)
		return err
	})
	return deleted, err
}

// SearchByIndex returns records matching an index value
func (s *ResilientStore[T]) SearchByIndex(ctx context.Context, index, value string, limit int) ([]T, error) {
	var recs []T
	attrs := []attribute.KeyValue{
		attribute.String("query.index", index),
		attribute.String("query.value", value),
	}
	err := s.do(ctx, "SearchByIndex", attrs, func(ctx context.Context) error {
		var err error
		recs, err = s.inner.SearchByIndex(ctx, index, value, limit)
		return err
	})
	return recs, err
}

// History returns every version of key
func (s *ResilientStore[T]) History(ctx context.Context, key string) ([]ports.Version[T], error) {
	var versions []ports.Version[T]
	err := s.do(ctx, "History", []attribute.KeyValue{attribute.String("record.key", key)}, func(ctx context.Context) error {
		var err error
		versions, err = s.inner.History(ctx, key)
		return err
	})
	return versions, err
}

// BreakerState reports the breaker state
func (s *ResilientStore[T]) BreakerState() gobreaker.State {
	return s.breaker.State()
}
