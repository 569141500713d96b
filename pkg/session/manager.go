package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/tbgers/tbgclient/internal/logging"
)

// Manager owns session stacks and the default session. Most programs use
// the package-level functions, which share one Manager.
type Manager struct {
	mu     sync.Mutex
	stacks map[uint64][]*entry

	def   atomic.Pointer[Session]
	lanes atomic.Uint64
}

// entry is one push. Scopes compare entries by identity so the same session
// entered twice is still two distinct entries.
type entry struct {
	session *Session
}

// lane is the immutable per-context state. base holds the sessions a forked
// or bound lane starts with; pushes made on the lane live in Manager.stacks.
type lane struct {
	id   uint64
	base []*Session
}

type laneKey struct{ m *Manager }

// NewManager creates a Manager with no default session.
func NewManager() *Manager {
	return &Manager{stacks: make(map[uint64][]*entry)}
}

func (m *Manager) lane(ctx context.Context) *lane {
	l, _ := ctx.Value(laneKey{m}).(*lane)
	return l
}

func (m *Manager) newLane(ctx context.Context, base []*Session) (context.Context, *lane) {
	l := &lane{id: m.lanes.Add(1), base: base}
	return context.WithValue(ctx, laneKey{m}, l), l
}

// Scope is the handle of one Enter.
type Scope struct {
	m       *Manager
	lane    uint64
	entry   *entry
	session *Session
}

// Enter pushes s on the lane of ctx and returns a context carrying the
// lane. The lane is created when ctx has none.
//
// A lane belongs to one goroutine. Goroutines started with a plain go
// statement share their parent's lane and must call Fork on ctx before
// entering sessions of their own; Go does that for them.
func (m *Manager) Enter(ctx context.Context, s *Session) (context.Context, *Scope) {
	if s == nil {
		panic("session: Enter with nil session")
	}
	l := m.lane(ctx)
	if l == nil {
		ctx, l = m.newLane(ctx, nil)
	}

	e := &entry{session: s}
	m.mu.Lock()
	m.stacks[l.id] = append(m.stacks[l.id], e)
	depth := len(l.base) + len(m.stacks[l.id])
	m.mu.Unlock()

	logging.Debug().
		Uint64("lane", l.id).
		Str("session", s.ID()).
		Int("depth", depth).
		Msg("Entered session scope")

	return ctx, &Scope{m: m, lane: l.id, entry: e, session: s}
}

// Session returns the session this scope entered.
func (sc *Scope) Session() *Session { return sc.session }

// Exit pops the entry this scope pushed. It fails with ErrContextCorruption,
// leaving the stack untouched, when that entry is not on top of the lane,
// which includes calling Exit twice.
func (sc *Scope) Exit() error {
	m := sc.m
	m.mu.Lock()
	stack := m.stacks[sc.lane]
	if len(stack) == 0 || stack[len(stack)-1] != sc.entry {
		depth := len(stack)
		m.mu.Unlock()
		return fmt.Errorf("%w: lane %d: session %s is not on top (depth %d)",
			ErrContextCorruption, sc.lane, sc.session.ID(), depth)
	}
	stack[len(stack)-1] = nil
	stack = stack[:len(stack)-1]
	if len(stack) == 0 {
		delete(m.stacks, sc.lane)
	} else {
		m.stacks[sc.lane] = stack
	}
	m.mu.Unlock()

	logging.Debug().
		Uint64("lane", sc.lane).
		Str("session", sc.session.ID()).
		Int("depth", len(stack)).
		Msg("Exited session scope")
	return nil
}

// Use runs fn with s entered on the lane of ctx. The scope is exited on
// every path out of fn, including a panic, which is re-raised afterwards.
func (m *Manager) Use(ctx context.Context, s *Session, fn func(ctx context.Context) error) (err error) {
	ctx, scope := m.Enter(ctx, s)
	defer func() {
		if exitErr := scope.Exit(); exitErr != nil {
			err = errors.Join(err, exitErr)
		}
	}()
	return fn(ctx)
}

// Current returns the innermost session of the lane of ctx, or the default
// session when the lane is empty.
func (m *Manager) Current(ctx context.Context) (*Session, error) {
	if l := m.lane(ctx); l != nil {
		m.mu.Lock()
		stack := m.stacks[l.id]
		if n := len(stack); n > 0 {
			s := stack[n-1].session
			m.mu.Unlock()
			return s, nil
		}
		m.mu.Unlock()
		if n := len(l.base); n > 0 {
			return l.base[n-1], nil
		}
	}
	if s := m.def.Load(); s != nil {
		return s, nil
	}
	return nil, ErrNoSessionDefined
}

// MustCurrent is Current for callers that have ensured a session exists.
func (m *Manager) MustCurrent(ctx context.Context) *Session {
	s, err := m.Current(ctx)
	if err != nil {
		panic(err)
	}
	return s
}

// Depth returns the number of sessions on the lane of ctx.
func (m *Manager) Depth(ctx context.Context) int {
	l := m.lane(ctx)
	if l == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(l.base) + len(m.stacks[l.id])
}

// MakeDefault replaces the default session. Active stacks are unaffected.
func (m *Manager) MakeDefault(s *Session) {
	old := m.def.Swap(s)
	if old != s {
		logging.Debug().Str("session", s.ID()).Msg("Default session changed")
	}
}

// Default returns the default session, or nil.
func (m *Manager) Default() *Session { return m.def.Load() }

// ClearDefault removes the default session.
func (m *Manager) ClearDefault() { m.def.Store(nil) }

// snapshot returns the sessions of the lane of ctx, outermost first.
func (m *Manager) snapshot(ctx context.Context) []*Session {
	l := m.lane(ctx)
	if l == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	sessions := slices.Clone(l.base)
	for _, e := range m.stacks[l.id] {
		sessions = append(sessions, e.session)
	}
	return sessions
}

// Fork returns a context on a new lane that starts with a copy of the stack
// of ctx. Later pushes and pops on either lane are invisible to the other.
func (m *Manager) Fork(ctx context.Context) context.Context {
	ctx, _ = m.newLane(ctx, m.snapshot(ctx))
	return ctx
}

// Go runs fn in a new goroutine on a forked lane.
func (m *Manager) Go(ctx context.Context, fn func(ctx context.Context)) {
	forked := m.Fork(ctx)
	go fn(forked)
}

// Isolate returns a context on a new lane whose only session is s.
func (m *Manager) Isolate(ctx context.Context, s *Session) context.Context {
	ctx, _ = m.newLane(ctx, []*Session{s})
	return ctx
}

// lanesInUse reports how many lanes hold pushed entries.
func (m *Manager) lanesInUse() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stacks)
}
