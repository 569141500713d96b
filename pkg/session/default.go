package session

import "context"

var std = NewManager()

// DefaultManager returns the Manager behind the package-level functions.
func DefaultManager() *Manager { return std }

// Enter pushes s on the lane of ctx. See Manager.Enter.
func Enter(ctx context.Context, s *Session) (context.Context, *Scope) { return std.Enter(ctx, s) }

// Use runs fn with s entered. See Manager.Use.
func Use(ctx context.Context, s *Session, fn func(ctx context.Context) error) error {
	return std.Use(ctx, s, fn)
}

// Current returns the session operations on ctx run as.
func Current(ctx context.Context) (*Session, error) { return std.Current(ctx) }

// Depth returns the number of sessions on the lane of ctx.
func Depth(ctx context.Context) int { return std.Depth(ctx) }

// MakeDefault replaces the process-wide default session.
func MakeDefault(s *Session) { std.MakeDefault(s) }

// Default returns the process-wide default session, or nil.
func Default() *Session { return std.Default() }

// ClearDefault removes the process-wide default session.
func ClearDefault() { std.ClearDefault() }

// Fork returns a context on a new lane holding a copy of the stack of ctx.
func Fork(ctx context.Context) context.Context { return std.Fork(ctx) }

// Go runs fn in a new goroutine on a forked lane.
func Go(ctx context.Context, fn func(ctx context.Context)) { std.Go(ctx, fn) }
