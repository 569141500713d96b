package server

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tbgers/tbgclient/internal/storage"
	"github.com/tbgers/tbgclient/pkg/api"
	"github.com/tbgers/tbgclient/pkg/session"
)

// UserHeader selects the saved session a request runs as.
const UserHeader = "X-TBG-User"

// ErrUnknownUser is returned for users without a saved session.
var ErrUnknownUser = errors.New("no saved session for user")

// pool keeps one session per user, restored from storage on first use.
type pool struct {
	opts  api.Options
	store *storage.Storage

	mu     sync.Mutex
	byUser map[string]*session.Session
}

func newPool(opts api.Options, store *storage.Storage) *pool {
	return &pool{opts: opts, store: store, byUser: make(map[string]*session.Session)}
}

func (p *pool) get(ctx context.Context, user string) (*session.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s, ok := p.byUser[user]; ok {
		return s, nil
	}
	s := session.New(p.opts)
	if err := s.Restore(ctx, p.store, user); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w %q", ErrUnknownUser, user)
		}
		return nil, err
	}
	p.byUser[user] = s
	return s, nil
}

// login logs a fresh session in, saves it and replaces the pooled one.
func (p *pool) login(ctx context.Context, user, password string) (*session.Session, error) {
	s := session.New(p.opts)
	if err := s.Login(ctx, user, password); err != nil {
		return nil, err
	}
	if err := s.Save(ctx, p.store); err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.byUser[user] = s
	p.mu.Unlock()
	return s, nil
}
