package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbgers/tbgclient/internal/event"
	"github.com/tbgers/tbgclient/internal/forumtest"
	"github.com/tbgers/tbgclient/internal/storage"
	"github.com/tbgers/tbgclient/pkg/api"
	"github.com/tbgers/tbgclient/pkg/forum"
	"github.com/tbgers/tbgclient/pkg/session"
)

const (
	aliceID = 3
	bobID   = 4
)

type gateway struct {
	t     *testing.T
	forum *forumtest.Forum
	opts  api.Options
	store *storage.Storage
	url   string
	tid   int
	mids  []int
}

// setupGateway runs a gateway in front of a fake forum where alice and bob
// have saved sessions.
func setupGateway(t *testing.T) *gateway {
	event.Reset()
	session.ClearDefault()
	t.Cleanup(session.ClearDefault)

	f := forumtest.New()
	f.AddUser(forumtest.User{UID: aliceID, Name: "alice", Password: "alice-pw"})
	f.AddUser(forumtest.User{UID: bobID, Name: "bob", Password: "bob-pw"})
	tid, _ := f.AddTopic(aliceID, "Welcome", "Welcome to the <b>forums</b>")
	f.Reply(tid, bobID, "Re: Welcome", "hello from bob")
	f.Reply(tid, aliceID, "Re: Welcome", "hello from alice")
	fsrv := f.Start(t)

	g := &gateway{
		t:     t,
		forum: f,
		opts:  api.Options{ForumURL: fsrv.ForumURL(), ChatURL: fsrv.ChatURL(), MaxRetries: -1},
		store: storage.New(t.TempDir()),
		tid:   tid,
		mids:  f.Topic(tid),
	}
	for _, name := range []string{"alice", "bob"} {
		s := session.New(g.opts)
		require.NoError(t, s.Login(context.Background(), name, name+"-pw"))
		require.NoError(t, s.Save(context.Background(), g.store))
	}

	ts := httptest.NewServer(New(DefaultConfig(), g.opts, g.store).Handler())
	t.Cleanup(ts.Close)
	g.url = ts.URL
	return g
}

// do sends a request as user ("" for the default session) and decodes the
// JSON answer into out when out is not nil.
func (g *gateway) do(method, path, user string, body any, out any) int {
	g.t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(g.t, err)
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, g.url+path, r)
	require.NoError(g.t, err)
	if user != "" {
		req.Header.Set(UserHeader, user)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(g.t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(g.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestGetSession(t *testing.T) {
	g := setupGateway(t)

	var errResp ErrorResponse
	assert.Equal(t, http.StatusUnauthorized, g.do("GET", "/session", "", nil, &errResp))
	assert.Equal(t, ErrCodeNoSession, errResp.Error.Code)

	var info SessionInfo
	require.Equal(t, http.StatusOK, g.do("GET", "/session", "alice", nil, &info))
	assert.Equal(t, "alice", info.Username)
	assert.True(t, info.LoggedIn)
	assert.NotEmpty(t, info.ID)

	assert.Equal(t, http.StatusUnauthorized, g.do("GET", "/session", "carol", nil, nil))

	guest := session.New(g.opts)
	guest.MakeDefault()
	require.Equal(t, http.StatusOK, g.do("GET", "/session", "", nil, &info))
	assert.Equal(t, guest.ID(), info.ID)
	assert.False(t, info.LoggedIn)
}

func TestSessionPerRequest(t *testing.T) {
	g := setupGateway(t)
	session.New(g.opts).MakeDefault()

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 20; i++ {
		for _, user := range []string{"alice", "bob"} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				req, _ := http.NewRequest("GET", g.url+"/session", nil)
				req.Header.Set(UserHeader, user)
				resp, err := http.DefaultClient.Do(req)
				if err != nil {
					errs <- err
					return
				}
				defer resp.Body.Close()
				var info SessionInfo
				if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
					errs <- err
					return
				}
				if info.Username != user {
					errs <- fmt.Errorf("request as %s ran as %q", user, info.Username)
				}
			}()
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	var info SessionInfo
	require.Equal(t, http.StatusOK, g.do("GET", "/session", "", nil, &info))
	assert.Empty(t, info.Username, "the default session is untouched")
}

func TestLogin(t *testing.T) {
	g := setupGateway(t)
	require.NoError(t, session.Forget(context.Background(), g.store, "bob"))

	assert.Equal(t, http.StatusBadRequest, g.do("POST", "/session/login", "", map[string]string{}, nil))
	assert.NotEqual(t, http.StatusOK, g.do("POST", "/session/login", "", LoginRequest{Username: "bob", Password: "nope"}, nil))

	var info SessionInfo
	require.Equal(t, http.StatusOK, g.do("POST", "/session/login", "", LoginRequest{Username: "bob", Password: "bob-pw"}, &info))
	assert.Equal(t, "bob", info.Username)
	assert.True(t, g.store.Exists(context.Background(), session.StorageKey("bob")))

	require.Equal(t, http.StatusOK, g.do("GET", "/session", "bob", nil, &info))
	assert.Equal(t, "bob", info.Username)
}

func TestGetTopic(t *testing.T) {
	g := setupGateway(t)
	session.New(g.opts).MakeDefault()

	var page forum.Page[*forum.Message]
	require.Equal(t, http.StatusOK, g.do("GET", fmt.Sprintf("/topic/%d", g.tid), "", nil, &page))
	assert.Equal(t, 1, page.CurrentPage)
	require.Len(t, page.Contents, 3)
	assert.Equal(t, g.mids[1], page.Contents[1].MID)
	assert.Equal(t, "bob", page.Contents[1].User.Name)

	assert.Equal(t, http.StatusBadRequest, g.do("GET", "/topic/abc", "", nil, nil))
	assert.Equal(t, http.StatusBadRequest, g.do("GET", fmt.Sprintf("/topic/%d?page=0", g.tid), "", nil, nil))

	var errResp ErrorResponse
	assert.Equal(t, http.StatusBadGateway, g.do("GET", "/topic/999", "", nil, &errResp))
	assert.Equal(t, ErrCodeForumError, errResp.Error.Code)
}

func TestGetMessage(t *testing.T) {
	g := setupGateway(t)

	var msg forum.Message
	require.Equal(t, http.StatusOK, g.do("GET", fmt.Sprintf("/message/%d", g.mids[0]), "alice", nil, &msg))
	assert.Equal(t, g.tid, msg.TID)
	assert.Contains(t, msg.Content, "<b>forums</b>")

	require.Equal(t, http.StatusOK, g.do("GET", fmt.Sprintf("/message/%d?source=true", g.mids[2]), "alice", nil, &msg))
	assert.Equal(t, "hello from alice", msg.Content)
}

func TestPostAndEditMessage(t *testing.T) {
	g := setupGateway(t)
	posted := make(chan event.Event, 1)
	event.Subscribe(event.MessagePosted, func(e event.Event) { posted <- e })

	assert.Equal(t, http.StatusBadRequest, g.do("POST", fmt.Sprintf("/topic/%d/message", g.tid), "bob", MessageRequest{}, nil))

	var msg forum.Message
	require.Equal(t, http.StatusCreated,
		g.do("POST", fmt.Sprintf("/topic/%d/message", g.tid), "bob", MessageRequest{Content: "a [b]new[/b] reply"}, &msg))
	require.NotZero(t, msg.MID)
	assert.Equal(t, "Re: Welcome", msg.Subject)

	post, ok := g.forum.Post(msg.MID)
	require.True(t, ok)
	assert.Equal(t, bobID, post.UID)
	assert.Equal(t, "a [b]new[/b] reply", post.Body)
	e := <-posted
	assert.Equal(t, msg.MID, e.Data.(event.ForumMessageData).MessageID)

	var edited forum.Message
	require.Equal(t, http.StatusOK,
		g.do("PATCH", fmt.Sprintf("/message/%d", msg.MID), "bob", MessageRequest{Content: "fixed", Reason: "typo"}, &edited))
	post, _ = g.forum.Post(msg.MID)
	assert.Equal(t, "fixed", post.Body)
	assert.Equal(t, "typo", post.Reason)
	assert.Equal(t, "Re: Welcome", post.Subject)

	var errResp ErrorResponse
	assert.Equal(t, http.StatusBadGateway,
		g.do("PATCH", fmt.Sprintf("/message/%d", g.mids[0]), "bob", MessageRequest{Content: "not mine"}, &errResp))
	assert.Equal(t, "cannot_modify", errResp.Error.Details["id"])
}

func TestGetUser(t *testing.T) {
	g := setupGateway(t)

	var user forum.User
	require.Equal(t, http.StatusOK, g.do("GET", "/user/0", "alice", nil, &user))
	assert.Equal(t, aliceID, user.UID)
	assert.Equal(t, "alice", user.Name)

	require.Equal(t, http.StatusOK, g.do("GET", fmt.Sprintf("/user/%d", bobID), "alice", nil, &user))
	assert.Equal(t, "bob", user.Name)

	assert.Equal(t, http.StatusBadRequest, g.do("GET", "/user/-1", "alice", nil, nil))
}

func TestSearch(t *testing.T) {
	g := setupGateway(t)

	assert.Equal(t, http.StatusBadRequest, g.do("GET", "/search", "alice", nil, nil))
	assert.Equal(t, http.StatusBadRequest, g.do("GET", "/search?q=hello&order=sideways", "alice", nil, nil))

	var page forum.Page[*forum.Message]
	require.Equal(t, http.StatusOK, g.do("GET", "/search?q=hello&user=bob", "alice", nil, &page))
	require.Len(t, page.Contents, 1)
	assert.Equal(t, g.mids[1], page.Contents[0].MID)
	req, ok := g.forum.LastRequest(http.MethodGet, "search2")
	require.True(t, ok)
	params, err := forumtest.DecodeSearchParams(req.Query["params"])
	require.NoError(t, err)
	assert.Equal(t, "2,3,5,6", params["brd"])
}

func TestSearch_Boards(t *testing.T) {
	g := setupGateway(t)

	assert.Equal(t, http.StatusBadRequest, g.do("GET", "/search?q=hello&board=general", "alice", nil, nil))
	assert.Equal(t, http.StatusBadRequest, g.do("GET", "/search?q=hello&board=0", "alice", nil, nil))

	require.Equal(t, http.StatusOK, g.do("GET", "/search?q=hello&board=1&board=7", "alice", nil, nil))
	req, ok := g.forum.LastRequest(http.MethodGet, "search2")
	require.True(t, ok)
	params, err := forumtest.DecodeSearchParams(req.Query["params"])
	require.NoError(t, err)
	assert.Equal(t, "1,7", params["brd"])
}

func TestGetAlerts(t *testing.T) {
	g := setupGateway(t)
	g.forum.AddAlert(forumtest.Alert{UID: aliceID, From: bobID, Verb: "quoted you in", MID: g.mids[1], TID: g.tid})

	var page forum.Page[*forum.Alert]
	require.Equal(t, http.StatusOK, g.do("GET", "/alerts", "alice", nil, &page))
	require.Len(t, page.Contents, 1)
	assert.Equal(t, "bob", page.Contents[0].User.Name)

	require.Equal(t, http.StatusOK, g.do("GET", "/alerts", "bob", nil, &page))
	assert.Empty(t, page.Contents)
}

func TestSendChat(t *testing.T) {
	g := setupGateway(t)

	assert.Equal(t, http.StatusBadRequest, g.do("POST", "/chat", "alice", ChatRequest{Text: "  "}, nil))
	assert.Equal(t, http.StatusOK, g.do("POST", "/chat", "alice", ChatRequest{Text: "hi chat"}, nil))

	lines := g.forum.ChatLines()
	require.Len(t, lines, 1)
	assert.Equal(t, aliceID, lines[0].UserID)
	assert.Equal(t, "hi chat", lines[0].Text)

	var users []forum.User
	require.Equal(t, http.StatusOK, g.do("GET", "/chat/users", "", nil, &users))
	assert.Empty(t, users)
}
