// Package forum models the TBG forum: users, topics, messages, searches and
// alerts.
//
// Entities never hold a session. Every method that talks to the forum takes a
// context and resolves the session through session.Current, so the same
// value can be read with one account and submitted with another:
//
//	ctx, scope := alice.Enter(ctx)
//	defer scope.Exit()
//	msg, err := (&forum.Message{MID: 123}).Fetch(ctx)
//
// To pin a session to a value regardless of the ambient one, wrap it with
// session.Wrap or use GetMessage and GetTopic.
package forum
