package session

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/tbgers/tbgclient/internal/event"
	"github.com/tbgers/tbgclient/internal/logging"
	"github.com/tbgers/tbgclient/internal/storage"
	"github.com/tbgers/tbgclient/pkg/api"
)

// Session is an actor on whose behalf forum operations run. It is safe to
// read from several goroutines but Login and Restore must not race.
type Session struct {
	id     string
	client *api.Client

	mu       sync.RWMutex
	username string
	loggedIn bool
}

// New creates an anonymous session with a fresh cookie jar.
func New(opts api.Options) *Session {
	return NewWithClient(api.New(opts))
}

// NewWithClient creates an anonymous session around an existing client.
func NewWithClient(client *api.Client) *Session {
	return &Session{
		id:     ulid.Make().String(),
		client: client,
	}
}

// ID returns the session's unique id.
func (s *Session) ID() string {
	if s == nil {
		return ""
	}
	return s.id
}

// Client returns the HTTP client holding this session's cookies.
func (s *Session) Client() *api.Client { return s.client }

// Username returns the logged-in user name, or "".
func (s *Session) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

// LoggedIn reports whether Login (or Restore) succeeded.
func (s *Session) LoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loggedIn
}

func (s *Session) String() string {
	if name := s.Username(); name != "" {
		return fmt.Sprintf("Session(%s, %s)", s.id, name)
	}
	return fmt.Sprintf("Session(%s)", s.id)
}

// Login logs the session in. The forum answers a successful login with a
// redirect; anything else is reported through the rendered error, or
// api.ErrLoginFailed when the page carries none.
func (s *Session) Login(ctx context.Context, username, password string) error {
	resp, err := s.client.Login(ctx, username, password)
	if err != nil {
		return fmt.Errorf("login %s: %w", username, err)
	}
	if !resp.IsRedirect() {
		if err := api.CheckErrors(http.MethodPost, resp); err != nil {
			return fmt.Errorf("login %s: %w", username, err)
		}
		return fmt.Errorf("login %s: %w", username, api.ErrLoginFailed)
	}

	s.mu.Lock()
	s.username = username
	s.loggedIn = true
	s.mu.Unlock()

	logging.Info().Str("session", s.id).Str("user", username).Msg("Logged in")
	event.Publish(event.Event{
		Type: event.SessionLoggedIn,
		Data: event.SessionData{SessionID: s.id, Username: username},
	})
	return nil
}

// PrimeSession obtains a PHPSESSID cookie without logging in.
func (s *Session) PrimeSession(ctx context.Context) error {
	return s.client.PrimeSession(ctx)
}

// MakeDefault makes s the process-wide default session.
func (s *Session) MakeDefault() {
	std.MakeDefault(s)
	event.Publish(event.Event{
		Type: event.SessionDefaultChanged,
		Data: event.SessionData{SessionID: s.id, Username: s.Username()},
	})
}

// Enter pushes s on the lane of ctx. See Manager.Enter.
func (s *Session) Enter(ctx context.Context) (context.Context, *Scope) {
	return std.Enter(ctx, s)
}

// Use runs fn with s as the current session.
func (s *Session) Use(ctx context.Context, fn func(ctx context.Context) error) error {
	return std.Use(ctx, s, fn)
}

// Record is the persisted form of a session.
type Record struct {
	ID       string         `json:"id"`
	Username string         `json:"username"`
	ForumURL string         `json:"forumURL"`
	Cookies  []RecordCookie `json:"cookies"`
	SavedAt  time.Time      `json:"savedAt"`
}

// RecordCookie is a persisted cookie.
type RecordCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// AnonymousKey is the storage key of sessions without a user.
const AnonymousKey = "anonymous"

// StorageKey returns where the session of username is stored.
func StorageKey(username string) []string {
	if username == "" {
		username = AnonymousKey
	}
	return []string{"sessions", username}
}

// Save writes the session's cookies to store.
func (s *Session) Save(ctx context.Context, store *storage.Storage) error {
	rec := Record{
		ID:       s.id,
		Username: s.Username(),
		ForumURL: s.client.ForumURL(),
		SavedAt:  time.Now(),
	}
	for _, c := range s.client.Cookies() {
		rec.Cookies = append(rec.Cookies, RecordCookie{Name: c.Name, Value: c.Value})
	}
	if err := store.Put(ctx, StorageKey(rec.Username), rec); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Restore loads the cookies saved for username into s. The session counts
// as logged in when a username was given. It returns storage.ErrNotFound
// when nothing was saved.
func (s *Session) Restore(ctx context.Context, store *storage.Storage, username string) error {
	var rec Record
	if err := store.Get(ctx, StorageKey(username), &rec); err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	if rec.ForumURL != "" && rec.ForumURL != s.client.ForumURL() {
		return fmt.Errorf("restore session: saved for %s, not %s", rec.ForumURL, s.client.ForumURL())
	}

	cookies := make([]*http.Cookie, 0, len(rec.Cookies))
	for _, c := range rec.Cookies {
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value})
	}
	s.client.SetCookies(cookies)

	s.mu.Lock()
	s.username = rec.Username
	s.loggedIn = rec.Username != ""
	s.mu.Unlock()
	return nil
}

// Forget deletes the saved session of username.
func Forget(ctx context.Context, store *storage.Storage, username string) error {
	return store.Delete(ctx, StorageKey(username))
}
