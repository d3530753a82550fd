package letter

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// CounterStore persists one sequence value per letter type.
// A type without a stored value reads as 0.
type CounterStore interface {
	Get(ctx context.Context, letterType LetterType) (int64, error)
	Set(ctx context.Context, letterType LetterType, value int64) error
}

// AtomicCounterStore is implemented by stores that can increment a counter
// atomically across processes (redis INCR, a locked SQL row).
type AtomicCounterStore interface {
	CounterStore
	Increment(ctx context.Context, letterType LetterType) (int64, error)
}

// RaisingCounterStore is implemented by stores that can move a counter up to
// a value in one atomic step. RaiseTo never lowers the counter and returns the
// value stored afterwards.
type RaisingCounterStore interface {
	RaiseTo(ctx context.Context, letterType LetterType, value int64) (int64, error)
}

// ApprovedNumberSource lists letter numbers already issued for a type
type ApprovedNumberSource interface {
	FindIssuedNumbers(ctx context.Context, letterType LetterType) ([]string, error)
}

// Allocator mints sequential letter numbers per letter type
type Allocator struct {
	store  CounterStore
	prefix string
	logger *zap.Logger

	mu    sync.Mutex
	locks map[LetterType]*sync.Mutex
}

// AllocatorOption configures an Allocator
type AllocatorOption func(*Allocator)

// WithPrefix overrides the institutional prefix
func WithPrefix(prefix string) AllocatorOption {
	return func(a *Allocator) {
		if prefix != "" {
			a.prefix = prefix
		}
	}
}

// WithAllocatorLogger sets the logger
func WithAllocatorLogger(logger *zap.Logger) AllocatorOption {
	return func(a *Allocator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAllocator creates an Allocator backed by store
func NewAllocator(store CounterStore, opts ...AllocatorOption) *Allocator {
	a := &Allocator{
		store:  store,
		prefix: DefaultInstitutionPrefix,
		logger: zap.NewNop(),
		locks:  make(map[LetterType]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Prefix returns the institutional prefix used in formatted numbers
func (a *Allocator) Prefix() string {
	return a.prefix
}

func (a *Allocator) lockFor(letterType LetterType) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	l, ok := a.locks[letterType]
	if !ok {
		l = &sync.Mutex{}
		a.locks[letterType] = l
	}
	return l
}

// Peek returns what the next number would be without changing any state
func (a *Allocator) Peek(ctx context.Context, letterType LetterType, year int) (string, error) {
	current, err := a.store.Get(ctx, letterType)
	if err != nil {
		return "", fmt.Errorf("failed to read counter for %s: %w", letterType, err)
	}
	return FormatNumber(a.prefix, current+1, letterType, year), nil
}

// Allocate increments the counter for letterType and returns the number
// built from the new value. Callers must store the result on the request
// and never call Allocate again for that request.
func (a *Allocator) Allocate(ctx context.Context, letterType LetterType, year int) (string, error) {
	seq, err := a.next(ctx, letterType)
	if err != nil {
		return "", err
	}
	number := FormatNumber(a.prefix, seq, letterType, year)
	a.logger.Info("letter number allocated",
		zap.String("letter_type", letterType.String()),
		zap.Int64("sequence", seq),
		zap.String("number", number))
	return number, nil
}

func (a *Allocator) next(ctx context.Context, letterType LetterType) (int64, error) {
	if atomicStore, ok := a.store.(AtomicCounterStore); ok {
		seq, err := atomicStore.Increment(ctx, letterType)
		if err != nil {
			return 0, fmt.Errorf("failed to increment counter for %s: %w", letterType, err)
		}
		return seq, nil
	}

	l := a.lockFor(letterType)
	l.Lock()
	defer l.Unlock()

	current, err := a.store.Get(ctx, letterType)
	if err != nil {
		return 0, fmt.Errorf("failed to read counter for %s: %w", letterType, err)
	}
	seq := current + 1
	if err := a.store.Set(ctx, letterType, seq); err != nil {
		return 0, fmt.Errorf("failed to persist counter for %s: %w", letterType, err)
	}
	return seq, nil
}

// Reconcile moves the stored counter up to the highest sequence found in
// issued numbers. The counter never moves backward. Returns the resulting value.
// Stores implementing RaisingCounterStore do the comparison themselves, so an
// Increment from another process cannot be overwritten.
func (a *Allocator) Reconcile(ctx context.Context, letterType LetterType, issued []string) (int64, error) {
	l := a.lockFor(letterType)
	l.Lock()
	defer l.Unlock()

	stored, err := a.store.Get(ctx, letterType)
	if err != nil {
		return 0, fmt.Errorf("failed to read counter for %s: %w", letterType, err)
	}
	observed := MaxSequence(issued)
	if observed <= stored {
		return stored, nil
	}

	result := observed
	if raiser, ok := a.store.(RaisingCounterStore); ok {
		result, err = raiser.RaiseTo(ctx, letterType, observed)
	} else {
		err = a.store.Set(ctx, letterType, observed)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to repair counter for %s: %w", letterType, err)
	}
	a.logger.Info("letter counter repaired from issued numbers",
		zap.String("letter_type", letterType.String()),
		zap.Int64("stored", stored),
		zap.Int64("observed", observed),
		zap.Int64("counter", result))
	return result, nil
}

// ReconcileAll reconciles every known letter type plus any extra types given
func (a *Allocator) ReconcileAll(ctx context.Context, source ApprovedNumberSource, extra ...LetterType) error {
	types := append(AllLetterTypes(), extra...)
	for _, t := range types {
		issued, err := source.FindIssuedNumbers(ctx, t)
		if err != nil {
			return fmt.Errorf("failed to list issued numbers for %s: %w", t, err)
		}
		if _, err := a.Reconcile(ctx, t, issued); err != nil {
			return err
		}
	}
	return nil
}
