// Package session decides which logged-in Session performs a forum
// operation.
//
// Entities never store a session. Operations resolve one at call time with
// Current, which looks at the session stack of the calling context's lane:
//
//	ctx, scope := session.Enter(ctx, alice)
//	defer scope.Exit()
//	msg.Post(ctx) // runs as alice
//
// A lane is an independent LIFO stack carried by a context.Context, the
// unit of isolation between goroutines. Enter creates one when the context
// has none. Goroutines that must not share their parent's stack start from
// Fork (or Go), which copies the parent's stack at spawn time.
//
// When a lane's stack is empty Current falls back to the process-wide
// default session (MakeDefault), and fails with ErrNoSessionDefined when
// there is none.
//
// Wrap pairs one session with one entity value. Operations run through the
// resulting Bound use the paired session regardless of the ambient stack.
package session
