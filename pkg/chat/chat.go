// Package chat is a client for the forum's AJAX chat.
//
// A Connection buffers polled messages by id and hands them out in order:
//
//	conn := chat.NewConnection()
//	for {
//		if _, err := conn.Poll(ctx); err != nil {
//			return err
//		}
//		for _, msg := range conn.Messages() {
//			fmt.Println(msg.User.Name, msg.Content)
//		}
//	}
//
// Like the forum entities, a Connection does not hold a session; each call
// uses session.Current(ctx).
package chat

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/tbgers/tbgclient/internal/event"
	"github.com/tbgers/tbgclient/internal/logging"
	"github.com/tbgers/tbgclient/pkg/api"
	"github.com/tbgers/tbgclient/pkg/forum"
	"github.com/tbgers/tbgclient/pkg/parser"
	"github.com/tbgers/tbgclient/pkg/session"
)

// DefaultPollInterval is used by Run when no interval is given.
const DefaultPollInterval = time.Second

// Message is a chat line. Not to be confused with forum.Message.
type Message struct {
	ID        int         `json:"id"`
	User      *forum.User `json:"user"`
	Role      int         `json:"role"`
	ChannelID int         `json:"channelID"`
	Content   string      `json:"content"`
	Date      time.Time   `json:"date"`
}

func messageFromData(d parser.ChatMessageData) *Message {
	return &Message{
		ID:        d.ID,
		User:      &forum.User{UID: d.UserID, Name: d.Username},
		Role:      d.UserRole,
		ChannelID: d.ChannelID,
		Content:   d.Text,
		Date:      d.Date,
	}
}

// Connection tracks what has been read from the chat. It is safe for
// concurrent use.
type Connection struct {
	mu     sync.Mutex
	buffer map[int]*Message
	lastID int
	seen   bool
	users  []*forum.User
}

// NewConnection returns a connection that has read nothing yet.
func NewConnection() *Connection {
	return &Connection{buffer: make(map[int]*Message)}
}

// LastID returns the highest message id seen. ok is false before the first
// message arrives.
func (c *Connection) LastID() (id int, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastID, c.seen
}

// Users returns the members online as of the last poll.
func (c *Connection) Users() []*forum.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.users)
}

// Poll fetches messages newer than LastID into the buffer and refreshes the
// online list. It returns the connection infos the server sent (userID,
// userName, channelID, ...).
func (c *Connection) Poll(ctx context.Context) (map[string]string, error) {
	s, err := session.Current(ctx)
	if err != nil {
		return nil, err
	}

	last := -1
	if id, ok := c.LastID(); ok {
		last = id
	}
	resp, err := s.Client().ChatPoll(ctx, last)
	if err != nil {
		return nil, err
	}
	data, err := parser.ParseChat(resp.Body)
	if err != nil {
		return nil, &api.RequestError{Method: http.MethodGet, URL: resp.URL, StatusCode: resp.StatusCode, Err: err, Response: resp}
	}

	users := make([]*forum.User, 0, len(data.Users))
	names := make([]string, 0, len(data.Users))
	for _, u := range data.Users {
		users = append(users, &forum.User{UID: u.UserID, Name: u.Name})
		names = append(names, u.Name)
	}

	var fresh []*Message
	c.mu.Lock()
	for _, d := range data.Messages {
		if _, dup := c.buffer[d.ID]; dup || (c.seen && d.ID <= c.lastID) {
			continue
		}
		msg := messageFromData(d)
		c.buffer[d.ID] = msg
		fresh = append(fresh, msg)
		if !c.seen || d.ID > c.lastID {
			c.lastID = d.ID
			c.seen = true
		}
	}
	changed := !slices.EqualFunc(c.users, users, func(a, b *forum.User) bool { return a.UID == b.UID })
	c.users = users
	c.mu.Unlock()

	for _, msg := range fresh {
		event.Publish(event.Event{
			Type: event.ChatMessage,
			Data: event.ChatMessageData{
				MessageID: msg.ID,
				ChannelID: msg.ChannelID,
				UserID:    msg.User.UID,
				Author:    msg.User.Name,
				Content:   msg.Content,
				Date:      msg.Date,
			},
		})
	}
	if changed {
		event.Publish(event.Event{Type: event.ChatUsers, Data: event.ChatUsersData{Users: names}})
	}
	logging.Debug().Str("session", s.ID()).Int("messages", len(fresh)).Int("users", len(users)).Msg("Chat polled")
	return data.Infos, nil
}

// Messages drains the buffer in id order.
func (c *Connection) Messages() []*Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := slices.Sorted(maps.Keys(c.buffer))
	out := make([]*Message, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.buffer[id])
		delete(c.buffer, id)
	}
	return out
}

// Send posts a line. Chat commands such as /quit are sent as-is.
func (c *Connection) Send(ctx context.Context, text string) error {
	s, err := session.Current(ctx)
	if err != nil {
		return err
	}
	if _, err := s.Client().ChatSend(ctx, text); err != nil {
		return fmt.Errorf("chat send: %w", err)
	}
	return nil
}

// Run polls every interval until ctx is done, passing each new message to
// fn in order. fn may be nil when only the event bus is of interest. Poll
// failures are logged and retried on the next tick.
func (c *Connection) Run(ctx context.Context, interval time.Duration, fn func(*Message)) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := c.Poll(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logging.Warn().Err(err).Msg("Chat poll failed")
		}
		msgs := c.Messages()
		if fn != nil {
			for _, msg := range msgs {
				fn(msg)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
