/*
Package event provides a pub/sub event system for forum and chat activity.

Publishers are the session package (login, default changes), the forum
package (posts, edits, profile updates) and the chat package (incoming
messages, user lists). Subscribers are mostly the CLI, which renders chat
traffic, and tests.

# Event Types

  - session.logged_in, session.default_changed
  - forum.message.posted, forum.message.edited, forum.profile.updated
  - chat.message, chat.users

# Usage

	unsubscribe := event.Subscribe(event.ChatMessage, func(e event.Event) {
		data := e.Data.(event.ChatMessageData)
		fmt.Println(data.Author, data.Content)
	})
	defer unsubscribe()

Publish delivers asynchronously, one goroutine per subscriber; PublishSync
calls subscribers in the publisher's goroutine, so subscribers must not block
or publish re-entrantly.

Every event is also forwarded as JSON to a watermill gochannel topic, which
Stream exposes for consumers that want a channel instead of callbacks.
*/
package event
