package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tbgers/tbgclient/pkg/forum"
	"github.com/tbgers/tbgclient/pkg/session"
)

// SessionInfo describes the session a request runs as.
type SessionInfo struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
	LoggedIn bool   `json:"loggedIn"`
}

// LoginRequest is the body of POST /session/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// MessageRequest is the body of POST /topic/{tid}/message and
// PATCH /message/{mid}. Empty fields keep their current value on edits.
type MessageRequest struct {
	Subject string `json:"subject,omitempty"`
	Content string `json:"content"`
	Icon    string `json:"icon,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

func sessionInfo(s *session.Session) SessionInfo {
	return SessionInfo{ID: s.ID(), Username: s.Username(), LoggedIn: s.LoggedIn()}
}

// pathID reads a positive id from the URL. uid 0 is allowed when zeroOK.
func pathID(w http.ResponseWriter, r *http.Request, name string, zeroOK bool) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || id < 0 || (id == 0 && !zeroOK) {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

// pageParam reads ?page=, defaulting to 1.
func pageParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("page")
	if raw == "" {
		return 1, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid page")
		return 0, false
	}
	return n, true
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, err := session.Current(r.Context())
	if err != nil {
		writeForumError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionInfo(sess))
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "username and password required")
		return
	}
	sess, err := s.sessions.login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeForumError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionInfo(sess))
}

func (s *Server) getTopic(w http.ResponseWriter, r *http.Request) {
	tid, ok := pathID(w, r, "tid", false)
	if !ok {
		return
	}
	n, ok := pageParam(w, r)
	if !ok {
		return
	}
	page, err := (&forum.Topic{TID: tid}).Page(r.Context(), n)
	if err != nil {
		writeForumError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) getMessage(w http.ResponseWriter, r *http.Request) {
	mid, ok := pathID(w, r, "mid", false)
	if !ok {
		return
	}
	method := "get"
	if r.URL.Query().Get("source") == "true" {
		method = "quotefast"
	}
	msg, err := (&forum.Message{MID: mid}).Update(r.Context(), method)
	if err != nil {
		writeForumError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (s *Server) postMessage(w http.ResponseWriter, r *http.Request) {
	tid, ok := pathID(w, r, "tid", false)
	if !ok {
		return
	}
	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "content required")
		return
	}
	ctx := r.Context()

	if req.Subject == "" {
		topic, err := (&forum.Topic{TID: tid}).Fetch(ctx)
		if err != nil {
			writeForumError(w, err)
			return
		}
		req.Subject = "Re: " + topic.Name
	}
	draft := &forum.Message{TID: tid, Subject: req.Subject, Content: req.Content, Icon: forum.PostIcon(req.Icon)}
	posted, err := draft.Submit(ctx, "post")
	if err != nil {
		writeForumError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, posted)
}

func (s *Server) editMessage(w http.ResponseWriter, r *http.Request) {
	mid, ok := pathID(w, r, "mid", false)
	if !ok {
		return
	}
	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "content required")
		return
	}
	ctx := r.Context()

	// The page gives the topic, quotefast the current subject.
	msg, err := (&forum.Message{MID: mid}).Fetch(ctx)
	if err != nil {
		writeForumError(w, err)
		return
	}
	if msg, err = msg.FetchSource(ctx); err != nil {
		writeForumError(w, err)
		return
	}
	msg.Content = req.Content
	if req.Subject != "" {
		msg.Subject = req.Subject
	}
	if req.Icon != "" {
		msg.Icon = forum.PostIcon(req.Icon)
	}
	edited, err := msg.Edit(ctx, req.Reason)
	if err != nil {
		writeForumError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, edited)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	uid, ok := pathID(w, r, "uid", true)
	if !ok {
		return
	}
	user, err := (&forum.User{UID: uid}).Fetch(r.Context())
	if err != nil {
		writeForumError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("q") == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "q required")
		return
	}
	n, ok := pageParam(w, r)
	if !ok {
		return
	}

	search := &forum.Search{
		Query:       q.Get("q"),
		Users:       q["user"],
		Complete:    q.Get("complete") == "true",
		SubjectOnly: q.Get("subjectOnly") == "true",
	}
	for _, v := range q["board"] {
		id, err := strconv.Atoi(v)
		if err != nil || id <= 0 {
			writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid board "+strconv.Quote(v))
			return
		}
		search.Boards = append(search.Boards, id)
	}
	var err error
	if v := q.Get("match"); v != "" {
		if search.Match, err = forum.ParseSearchType(v); err != nil {
			writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
			return
		}
	}
	if v := q.Get("sort"); v != "" {
		if search.Sort, err = forum.ParseSortBy(v); err != nil {
			writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
			return
		}
	}
	if v := q.Get("order"); v != "" {
		if search.Order, err = forum.ParseSortOrder(v); err != nil {
			writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
			return
		}
	}

	page, err := search.Page(r.Context(), n)
	if err != nil {
		writeForumError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) getAlerts(w http.ResponseWriter, r *http.Request) {
	n, ok := pageParam(w, r)
	if !ok {
		return
	}
	page, err := forum.AlertsPage(r.Context(), n)
	if err != nil {
		writeForumError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}
