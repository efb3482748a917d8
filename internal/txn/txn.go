// Package txn implements the read-committed, optimistic-concurrency unit of
// work described in the exchange's transaction layer: every repository
// mutation stages into a Tx, and a UnitOfWork commits one or more Tx's
// staged writes together, failing the whole commit if any participant's
// observed version has moved on.
package txn

import (
	"errors"
	"sync"
)

// ErrNotFound is returned when a key has no canonical record.
var ErrNotFound = errors.New("txn: record not found")

// ErrConflict is returned by Commit when a staged read's version has been
// superseded by a concurrent commit.
var ErrConflict = errors.New("txn: conflict")

// ErrInvariant is a sentinel an invariant function may return. Commit
// returns whatever error the store's invariant (see Store.SetInvariant)
// reports for a staged write.
var ErrInvariant = errors.New("txn: invariant violated")

type record[T any] struct {
	value   T
	version uint64
}

// Store is a generic versioned key-value store. Writes only ever happen
// through a Tx staged against it, and Peek/List read the committed state
// directly; Store itself holds the canonical, already-committed state.
type Store[T any] struct {
	mu      sync.RWMutex
	records map[string]*record[T]

	// invariant, if set, is checked against every staged write at commit
	// time, in addition to the version check. It receives the candidate
	// post-commit value and returns an error if it would be invalid.
	invariant func(T) error
}

// NewStore constructs an empty store. SetInvariant may be called
// afterwards to install a commit-time invariant check.
func NewStore[T any]() *Store[T] {
	return &Store[T]{records: make(map[string]*record[T])}
}

// SetInvariant installs a commit-time invariant check (e.g. non-negative
// balance) run against every staged write before it is applied.
func (s *Store[T]) SetInvariant(fn func(T) error) {
	s.invariant = fn
}

// snapshot returns the current value and version for key, without staging
// anything — used both by Tx.Get and by read-only query paths that don't
// need a transactional scope (e.g. book views for reporting).
func (s *Store[T]) snapshot(key string) (T, uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[key]
	if !ok {
		var zero T
		return zero, 0, false
	}
	return r.value, r.version, true
}

// Peek is a convenience read-committed lookup outside any Tx scope.
func (s *Store[T]) Peek(key string) (T, bool) {
	v, _, ok := s.snapshot(key)
	return v, ok
}

// List returns every canonical record's current value, read-committed.
func (s *Store[T]) List() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r.value)
	}
	return out
}

func (s *Store[T]) currentVersion(key string) (uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[key]
	if !ok {
		return 0, false
	}
	return r.version, true
}

// applyRaw installs a staged write as the new canonical value, bumping its
// version. Called only from Tx.apply, which the caller has already
// validated. A zero observed version with no existing record means insert.
func (s *Store[T]) applyRaw(key string, value T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[key]
	if !ok {
		s.records[key] = &record[T]{value: value, version: 1}
		return
	}
	r.value = value
	r.version++
}

// Begin opens a staged scope bound to this store.
func (s *Store[T]) Begin() *Tx[T] {
	return &Tx[T]{
		store:  s,
		reads:  make(map[string]uint64),
		writes: make(map[string]T),
	}
}

// Tx is a staged read/write scope against one Store. Writes accumulate in
// staging and are invisible to other Tx's (and to Store.Peek/List) until a
// owning UnitOfWork commits.
type Tx[T any] struct {
	store  *Store[T]
	reads  map[string]uint64
	writes map[string]T
}

// Get returns the staged value if this Tx already wrote it, otherwise a
// read-committed snapshot of the canonical value; either way the observed
// version is recorded for commit-time validation.
func (tx *Tx[T]) Get(key string) (T, error) {
	if v, ok := tx.writes[key]; ok {
		return v, nil
	}
	v, version, ok := tx.store.snapshot(key)
	if !ok {
		var zero T
		return zero, ErrNotFound
	}
	if _, seen := tx.reads[key]; !seen {
		tx.reads[key] = version
	}
	return v, nil
}

// Put stages a write. If the key has not already been read or written in
// this Tx, its current version (0 if absent) is recorded as the baseline
// for commit-time validation.
func (tx *Tx[T]) Put(key string, value T) {
	if _, seen := tx.reads[key]; !seen {
		if version, ok := tx.store.currentVersion(key); ok {
			tx.reads[key] = version
		} else {
			tx.reads[key] = 0
		}
	}
	tx.writes[key] = value
}

// validate checks every key this Tx observed (by read or write) against
// the store's current version, and runs the store's invariant against
// every staged write. It performs no mutation.
func (tx *Tx[T]) validate() error {
	for key, baseline := range tx.reads {
		current, ok := tx.store.currentVersion(key)
		if !ok {
			current = 0
		}
		if current != baseline {
			return ErrConflict
		}
	}
	if tx.store.invariant != nil {
		for _, v := range tx.writes {
			if err := tx.store.invariant(v); err != nil {
				return err
			}
		}
	}
	return nil
}

// apply installs every staged write as canonical and clears staging.
// Callers must have validated first.
func (tx *Tx[T]) apply() {
	for key, v := range tx.writes {
		tx.store.applyRaw(key, v)
	}
	tx.reads = make(map[string]uint64)
	tx.writes = make(map[string]T)
}

// rollback discards staging without touching the store.
func (tx *Tx[T]) rollback() {
	tx.reads = make(map[string]uint64)
	tx.writes = make(map[string]T)
}

// participant is the type-erased interface a UnitOfWork needs from each
// Tx[T] it aggregates, so heterogeneous Tx[Order]/Tx[Client]/Tx[Stock]
// scopes can commit atomically together.
type participant interface {
	validate() error
	apply()
	rollback()
}

// UnitOfWork aggregates one or more Tx scopes — possibly across different
// record types — into a single atomic commit: every participant validates
// before any participant applies, so a conflict or invariant violation in
// one leaves all of them untouched.
type UnitOfWork struct {
	participants []participant
}

// NewUnitOfWork opens an empty scope. Use Join to bind repository-specific
// Tx's to it.
func NewUnitOfWork() *UnitOfWork {
	return &UnitOfWork{}
}

// Join registers tx as a participant in this unit of work's next commit.
// Join is idiomatic generic glue: repositories call Join(uow, store.Begin())
// and keep the typed *Tx[T] for their own Get/Put calls.
func Join[T any](uow *UnitOfWork, tx *Tx[T]) *Tx[T] {
	uow.participants = append(uow.participants, tx)
	return tx
}

// Commit validates every participant and, only if all succeed, applies all
// of their staged writes. On conflict or invariant failure nothing is
// applied and the UnitOfWork may be retried with fresh reads.
func (u *UnitOfWork) Commit() error {
	for _, p := range u.participants {
		if err := p.validate(); err != nil {
			return err
		}
	}
	for _, p := range u.participants {
		p.apply()
	}
	return nil
}

// Rollback discards every participant's staging without touching any store.
func (u *UnitOfWork) Rollback() {
	for _, p := range u.participants {
		p.rollback()
	}
}
