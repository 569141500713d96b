package session

import "context"

// Bound pairs a session with an entity value. Operations run through it use
// the paired session whatever the ambient stack holds.
//
// A Bound is not safe for concurrent Update calls.
type Bound[E any] struct {
	m       *Manager
	session *Session
	value   E
}

// Wrap pairs s with value.
func Wrap[E any](s *Session, value E) *Bound[E] {
	return WrapWith(std, s, value)
}

// WrapWith pairs s with value, resolving through m.
func WrapWith[E any](m *Manager, s *Session, value E) *Bound[E] {
	if s == nil {
		panic("session: Wrap with nil session")
	}
	return &Bound[E]{m: m, session: s, value: value}
}

// Session returns the paired session.
func (b *Bound[E]) Session() *Session { return b.session }

// Value returns the wrapped entity.
func (b *Bound[E]) Value() E { return b.value }

// Using pairs the same value with another session.
func (b *Bound[E]) Using(s *Session) *Bound[E] {
	return WrapWith(b.m, s, b.value)
}

// Context returns a context whose only session is the paired one. Sessions
// entered on other lanes, and the default, are never seen through it.
func (b *Bound[E]) Context(ctx context.Context) context.Context {
	return b.m.Isolate(ctx, b.session)
}

// Do runs fn on the value under the paired session.
func (b *Bound[E]) Do(ctx context.Context, fn func(E, context.Context) error) error {
	return fn(b.value, b.Context(ctx))
}

// Update runs fn under the paired session and keeps its result as the new
// value. On error the value is unchanged. It returns b so calls chain:
//
//	msg, err := session.Wrap(s, &forum.Message{MID: 5}).Update(ctx, (*forum.Message).Fetch)
func (b *Bound[E]) Update(ctx context.Context, fn func(E, context.Context) (E, error)) (*Bound[E], error) {
	v, err := fn(b.value, b.Context(ctx))
	if err != nil {
		return b, err
	}
	b.value = v
	return b, nil
}

// Call runs fn on the value of b under its paired session and returns fn's
// result, leaving the bound value unchanged.
func Call[E, R any](ctx context.Context, b *Bound[E], fn func(E, context.Context) (R, error)) (R, error) {
	return fn(b.value, b.Context(ctx))
}
