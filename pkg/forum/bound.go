package forum

import (
	"context"

	"github.com/tbgers/tbgclient/pkg/session"
)

// GetMessage reads message mid with s and returns it bound to s. method is
// passed to Message.Update.
func GetMessage(ctx context.Context, s *session.Session, mid int, method string) (*session.Bound[*Message], error) {
	b, err := session.Wrap(s, &Message{MID: mid}).Update(ctx, func(m *Message, ctx context.Context) (*Message, error) {
		return m.Update(ctx, method)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// GetTopic reads topic tid with s and returns it bound to s. method is
// passed to Topic.Update.
func GetTopic(ctx context.Context, s *session.Session, tid int, method string) (*session.Bound[*Topic], error) {
	b, err := session.Wrap(s, &Topic{TID: tid}).Update(ctx, func(t *Topic, ctx context.Context) (*Topic, error) {
		return t.Update(ctx, method)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// GetUser reads the profile of uid with s and returns it bound to s.
func GetUser(ctx context.Context, s *session.Session, uid int) (*session.Bound[*User], error) {
	b, err := session.Wrap(s, &User{UID: uid}).Update(ctx, (*User).Fetch)
	if err != nil {
		return nil, err
	}
	return b, nil
}
