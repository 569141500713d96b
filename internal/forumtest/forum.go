// Package forumtest runs an in-memory imitation of the TBG forum (SMF 2.1
// pages, quotefast XML and the AJAX chat) for tests.
package forumtest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

// Nonce is the hidden input every form carries.
const (
	NonceKey   = "b7f3e1a9"
	NonceValue = "5d2c8e0f4a6b"
	// PostsPerPage mirrors the forum's topic page size.
	PostsPerPage = 25
	// ResultsPerPage mirrors the forum's search page size.
	ResultsPerPage = 30
	// AuthCookie is the SMF login cookie name.
	AuthCookie = "SMFCookie10"
)

// User is a forum member.
type User struct {
	UID       int
	Name      string
	Password  string
	Group     string
	Avatar    string
	Blurb     string
	Location  string
	Gender    string
	Website   string
	Signature string
	Email     string
	RealName  string
	Birthday  [3]string // day, month, year
	Custom    map[string]string
}

// Post is a message in a topic.
type Post struct {
	MID     int
	TID     int
	UID     int
	Subject string
	Body    string
	Icon    string
	Date    time.Time
	Edited  string
	Reason  string
}

// Alert is a notification shown to a member.
type Alert struct {
	AID  int
	UID  int
	From int
	// Verb is "mentioned you in", "quoted you in" or "started a new topic".
	Verb string
	MID  int
	TID  int
}

// ChatLine is one chat message.
type ChatLine struct {
	ID     int
	UserID int
	Text   string
	Date   time.Time
}

// Request is a recorded request.
type Request struct {
	Method   string
	RawQuery string
	Query    map[string]string
	Form     map[string]string
	Cookies  []*http.Cookie
}

// Forum is the fake forum state. All methods are safe for concurrent use.
type Forum struct {
	mu sync.Mutex

	users    map[int]*User
	posts    map[int]*Post
	topics   map[int][]int
	alerts   []Alert
	chat     []ChatLine
	sessions map[string]int

	nextMID, nextTID, nextAlert, nextChat, nextSession int
	clock                                                time.Time

	requests []Request
	failures []int

	// RequireSession makes ?msg= links fail without a PHPSESSID cookie.
	RequireSession bool
}

// New creates an empty forum.
func New() *Forum {
	return &Forum{
		users:          make(map[int]*User),
		posts:          make(map[int]*Post),
		topics:         make(map[int][]int),
		sessions:       make(map[string]int),
		nextMID:        100,
		nextTID:        10,
		nextAlert:      1,
		nextChat:       1,
		clock:          time.Date(2024, time.March, 1, 13, 0, 0, 0, time.Local),
		RequireSession: true,
	}
}

// Start serves the forum until the test ends.
func (f *Forum) Start(tb testing.TB) *Server {
	tb.Helper()
	srv := httptest.NewServer(f.Router())
	tb.Cleanup(srv.Close)
	return &Server{Server: srv, Forum: f}
}

// Server is a running forum.
type Server struct {
	*httptest.Server
	Forum *Forum
}

// ForumURL is the index.php entry point.
func (s *Server) ForumURL() string { return s.URL + "/index.php" }

// ChatURL is the chat endpoint.
func (s *Server) ChatURL() string { return s.URL + "/chat/" }

// Router returns the forum's HTTP handler.
func (f *Forum) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(f.record, f.inject, phpSession)
	r.Get("/index.php", f.handleGet)
	r.Post("/index.php", f.handlePost)
	r.Get("/chat/", f.handleChatPoll)
	r.Post("/chat/", f.handleChatSend)
	return r
}

// Get renders a page as an anonymous visitor.
func (f *Forum) Get(rawQuery string) string {
	req := httptest.NewRequest(http.MethodGet, "/index.php?"+rawQuery, nil)
	req.AddCookie(&http.Cookie{Name: "PHPSESSID", Value: "render"})
	rec := httptest.NewRecorder()
	f.Router().ServeHTTP(rec, req)
	return rec.Body.String()
}

// tick advances the forum clock and returns the new time.
func (f *Forum) tick() time.Time {
	f.clock = f.clock.Add(time.Minute)
	return f.clock
}

// AddUser registers a member and returns its id.
func (f *Forum) AddUser(u User) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.UID == 0 {
		u.UID = len(f.users) + 1
	}
	if u.Group == "" {
		u.Group = "TBGer"
	}
	f.users[u.UID] = &u
	return u.UID
}

// User returns a copy of a member.
func (f *Forum) User(uid int) (User, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[uid]
	if !ok {
		return User{}, false
	}
	return *u, true
}

// AddTopic starts a topic and returns its id and the first message id.
func (f *Forum) AddTopic(uid int, subject, body string) (tid, mid int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextTID++
	tid = f.nextTID
	return tid, f.addPost(tid, uid, subject, body, "xx")
}

// Reply appends a message to a topic.
func (f *Forum) Reply(tid, uid int, subject, body string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addPost(tid, uid, subject, body, "xx")
}

func (f *Forum) addPost(tid, uid int, subject, body, icon string) int {
	f.nextMID++
	p := &Post{
		MID:     f.nextMID,
		TID:     tid,
		UID:     uid,
		Subject: subject,
		Body:    body,
		Icon:    icon,
		Date:    f.tick(),
	}
	f.posts[p.MID] = p
	f.topics[tid] = append(f.topics[tid], p.MID)
	return p.MID
}

// Post returns a copy of a message.
func (f *Forum) Post(mid int) (Post, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[mid]
	if !ok {
		return Post{}, false
	}
	return *p, true
}

// Topic returns the message ids of a topic in order.
func (f *Forum) Topic(tid int) []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.topics[tid])
}

// AddAlert notifies uid.
func (f *Forum) AddAlert(a Alert) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	a.AID = f.nextAlert
	f.nextAlert++
	f.alerts = append(f.alerts, a)
	return a.AID
}

// Say adds a chat line.
func (f *Forum) Say(uid int, text string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.say(uid, text)
}

func (f *Forum) say(uid int, text string) int {
	line := ChatLine{ID: f.nextChat, UserID: uid, Text: text, Date: f.tick()}
	f.nextChat++
	f.chat = append(f.chat, line)
	return line.ID
}

// ChatLines returns the chat history.
func (f *Forum) ChatLines() []ChatLine {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.chat)
}

// FailNext answers the next len(statuses) requests with the given statuses.
func (f *Forum) FailNext(statuses ...int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, statuses...)
}

// Requests returns every request received so far.
func (f *Forum) Requests() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.requests)
}

// LastRequest returns the most recent request matching method and action.
func (f *Forum) LastRequest(method, action string) (Request, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.requests) - 1; i >= 0; i-- {
		r := f.requests[i]
		if r.Method == method && r.Query["action"] == action {
			return r, true
		}
	}
	return Request{}, false
}

// login checks credentials and returns a session token.
func (f *Forum) login(name, password string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Name == name && u.Password == password {
			f.nextSession++
			token := fmt.Sprintf("token-%d-%d", u.UID, f.nextSession)
			f.sessions[token] = u.UID
			return token, true
		}
	}
	return "", false
}

// whoami resolves the login cookie of a request.
func (f *Forum) whoami(r *http.Request) (int, bool) {
	c, err := r.Cookie(AuthCookie)
	if err != nil {
		return 0, false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	uid, ok := f.sessions[c.Value]
	return uid, ok
}
