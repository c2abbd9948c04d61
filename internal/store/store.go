package store

import (
	"fmt"
	"runtime/debug"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/and161185/feedlog/internal/model"
)

// Outcomes reported to an ActionRecorder.
const (
	OutcomeApplied  = "applied"
	OutcomeRejected = "rejected"
	OutcomePanic    = "panic"
)

// ActionRecorder receives one call per dispatched action.
type ActionRecorder interface {
	ObserveAction(action, outcome string)
}

// Option configures a Store.
type Option func(*Store)

// WithValidation toggles rejection of invalid actions (on by default). With
// validation off every action is applied as-is, trusting the caller.
func WithValidation(on bool) Option { return func(s *Store) { s.validate = on } }

// WithLogger sets the logger used for rejected actions and recovered panics.
func WithLogger(l *zap.Logger) Option { return func(s *Store) { s.log = l } }

// WithRecorder sets the per-action metrics sink.
func WithRecorder(r ActionRecorder) Option { return func(s *Store) { s.rec = r } }

// Store serializes all dispatches over a single snapshot and notifies
// subscribers with every new snapshot, in dispatch order.
type Store struct {
	mu       sync.Mutex
	state    model.AppState
	subs     map[int]func(model.AppState)
	nextSub  int
	validate bool
	log      *zap.Logger
	rec      ActionRecorder
}

// New returns a store holding the empty, unauthenticated snapshot.
func New(opts ...Option) *Store {
	s := &Store{
		state:    model.Empty(),
		subs:     map[int]func(model.AppState){},
		validate: true,
		log:      zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// State returns the current snapshot. Its slices must be treated as read-only.
func (s *Store) State() model.AppState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn to receive every post-dispatch snapshot. fn runs while
// the store is locked, so it must not dispatch and should return quickly.
func (s *Store) Subscribe(fn func(model.AppState)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Dispatch applies a to the snapshot. With validation on, an invalid action is
// rejected with an error wrapping an errs sentinel and the snapshot is unchanged.
// A panic while reducing is recovered and returned as an error with the snapshot
// unchanged. Once the new snapshot is committed Dispatch returns nil; a panicking
// subscriber is logged and the remaining subscribers still run.
func (s *Store) Dispatch(a Action) (err error) {
	if a == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	name := "UNKNOWN"
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("dispatch panic",
				zap.String("action", name),
				zap.Any("reason", r),
				zap.ByteString("stack", debug.Stack()),
			)
			s.record(name, OutcomePanic)
			err = fmt.Errorf("dispatch %s: panic: %v", name, r)
		}
	}()
	name = string(a.Type())

	if s.validate {
		if verr := Validate(s.state, a); verr != nil {
			s.log.Info("action rejected", zap.String("action", name), zap.Error(verr))
			s.record(name, OutcomeRejected)
			return verr
		}
	}

	next := Reduce(s.state, a)
	s.state = next
	s.record(name, OutcomeApplied)
	s.notify(name, next)
	return nil
}

// notify calls subscribers in registration order.
func (s *Store) notify(action string, next model.AppState) {
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		s.callSubscriber(action, s.subs[id], next)
	}
}

func (s *Store) callSubscriber(action string, fn func(model.AppState), next model.AppState) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("subscriber panic",
				zap.String("action", action),
				zap.Any("reason", r),
				zap.ByteString("stack", debug.Stack()),
			)
		}
	}()
	fn(next)
}

func (s *Store) record(action, outcome string) {
	if s.rec != nil {
		s.rec.ObserveAction(action, outcome)
	}
}
