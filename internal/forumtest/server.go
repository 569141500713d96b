package forumtest

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// ParseQuery splits an SMF query string. Values of the form
// "name;k=v;flag" contribute k=v and flag="" as extra keys.
func ParseQuery(raw string) map[string]string {
	out := make(map[string]string)
	for _, piece := range strings.Split(raw, "&") {
		if piece == "" {
			continue
		}
		k, v, _ := strings.Cut(piece, "=")
		k, _ = url.QueryUnescape(k)
		v, _ = url.QueryUnescape(v)
		segments := strings.Split(v, ";")
		out[k] = segments[0]
		for _, s := range segments[1:] {
			sk, sv, _ := strings.Cut(s, "=")
			out[sk] = sv
		}
	}
	return out
}

func (f *Forum) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := Request{
			Method:   r.Method,
			RawQuery: r.URL.RawQuery,
			Query:    ParseQuery(r.URL.RawQuery),
			Form:     map[string]string{},
			Cookies:  r.Cookies(),
		}
		if r.Body != nil {
			body, _ := io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(body))
			values, _ := url.ParseQuery(string(body))
			for k := range values {
				rec.Form[k] = values.Get(k)
			}
		}
		f.mu.Lock()
		f.requests = append(f.requests, rec)
		f.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (f *Forum) inject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		status := 0
		if len(f.failures) > 0 {
			status = f.failures[0]
			f.failures = f.failures[1:]
		}
		f.mu.Unlock()
		if status != 0 {
			writeFatal(w, status, "Injected failure.", "injected")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func phpSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie("PHPSESSID"); err != nil {
			http.SetCookie(w, &http.Cookie{Name: "PHPSESSID", Value: "s3ss10n", Path: "/"})
		}
		next.ServeHTTP(w, r)
	})
}

func writeHTML(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/html; charset=UTF-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func writeFatal(w http.ResponseWriter, status int, msg, id string) {
	writeHTML(w, status, layout(nil, fatalPage(msg, id)))
}

func (f *Forum) handleGet(w http.ResponseWriter, r *http.Request) {
	q := ParseQuery(r.URL.RawQuery)
	action, hasAction := q["action"]
	if !hasAction {
		switch {
		case q["topic"] != "":
			f.serveTopic(w, q["topic"])
		case q["msg"] != "":
			f.serveMessageLink(w, r, q["msg"])
		default:
			writeHTML(w, http.StatusOK, layout(nil, `<div id="boardindex_table">Board index</div>`))
		}
		return
	}

	switch action {
	case "login":
		writeHTML(w, http.StatusOK, layout(nil, loginForm("")))
	case "post", "post2":
		uid, ok := f.whoami(r)
		if !ok {
			writeFatal(w, http.StatusForbidden, "You are not allowed to post.", "not_logged_in")
			return
		}
		f.servePostForm(w, uid, q)
	case "profile":
		f.serveProfile(w, r, q)
	case "quotefast":
		f.serveQuotefast(w, r, q)
	case "search2":
		f.serveSearch(w, q)
	default:
		writeFatal(w, http.StatusNotFound, "Unknown action.", "unknown_action")
	}
}

func (f *Forum) handlePost(w http.ResponseWriter, r *http.Request) {
	q := ParseQuery(r.URL.RawQuery)
	if err := r.ParseForm(); err != nil && r.PostForm == nil {
		writeFatal(w, http.StatusBadRequest, "Malformed form.", "bad_form")
		return
	}
	form := r.PostForm

	if q["action"] == "login2" {
		if form.Get(NonceKey) != NonceValue {
			writeFatal(w, http.StatusOK, "Session verification failed.", "session_timeout")
			return
		}
		token, ok := f.login(form.Get("user"), form.Get("passwrd"))
		if !ok {
			writeHTML(w, http.StatusOK, layout(nil, errorList("The following errors occurred when trying to log in:",
				"Password incorrect.", "Make sure your username is correct.")+loginForm(form.Get("user"))))
			return
		}
		http.SetCookie(w, &http.Cookie{Name: AuthCookie, Value: token, Path: "/"})
		http.Redirect(w, r, "/index.php?action=login2;sa=check", http.StatusFound)
		return
	}

	uid, ok := f.whoami(r)
	if !ok {
		writeFatal(w, http.StatusForbidden, "You are not allowed to access this section.", "not_logged_in")
		return
	}
	if form.Get(NonceKey) != NonceValue {
		writeFatal(w, http.StatusOK, "Session verification failed.", "session_timeout")
		return
	}

	switch q["action"] {
	case "post2":
		f.savePost(w, r, uid, form)
	case "post":
		f.saveEdit(w, r, uid, q, form)
	case "profile":
		f.saveProfile(w, r, uid, q, form)
	default:
		writeFatal(w, http.StatusNotFound, "Unknown action.", "unknown_action")
	}
}

// topicStart parses "12.30" or "12.new" into the topic id and page offset.
func (f *Forum) topicStart(ref string) (tid, start int, ok bool) {
	tidText, startText, _ := strings.Cut(ref, ".")
	tid, err := strconv.Atoi(tidText)
	if err != nil {
		return 0, 0, false
	}
	f.mu.Lock()
	n := len(f.topics[tid])
	f.mu.Unlock()
	if n == 0 {
		return 0, 0, false
	}
	switch {
	case startText == "new":
		start = (n - 1) / PostsPerPage * PostsPerPage
	case startText != "":
		start, _ = strconv.Atoi(startText)
	}
	return tid, start, true
}

func (f *Forum) serveTopic(w http.ResponseWriter, ref string) {
	tid, start, ok := f.topicStart(ref)
	if !ok {
		writeFatal(w, http.StatusNotFound, "The topic or board you are looking for appears to be either missing or off limits to you.", "topic_gone")
		return
	}

	f.mu.Lock()
	mids := f.topics[tid]
	page := start / PostsPerPage
	total := (len(mids) + PostsPerPage - 1) / PostsPerPage
	var posts []postView
	for i := page * PostsPerPage; i < len(mids) && i < (page+1)*PostsPerPage; i++ {
		posts = append(posts, f.view(f.posts[mids[i]]))
	}
	subject := f.posts[mids[0]].Subject
	f.mu.Unlock()

	crumbs := []crumb{{"General Discussion", "/index.php?board=1.0"}, {subject, fmt.Sprintf("/index.php?topic=%d.0", tid)}}
	writeHTML(w, http.StatusOK, layout(crumbs, topicPage(tid, page+1, total, posts)))
}

func (f *Forum) serveMessageLink(w http.ResponseWriter, r *http.Request, ref string) {
	if _, err := r.Cookie("PHPSESSID"); err != nil && f.RequireSession {
		writeFatal(w, http.StatusOK, "Your session timed out while posting. Please try to re-submit your message.", "session_timeout")
		return
	}
	mid, _ := strconv.Atoi(ref)
	f.mu.Lock()
	p, ok := f.posts[mid]
	var start int
	if ok {
		start = indexOf(f.topics[p.TID], mid) / PostsPerPage * PostsPerPage
	}
	f.mu.Unlock()
	if !ok {
		writeFatal(w, http.StatusNotFound, "The topic or board you are looking for appears to be either missing or off limits to you.", "topic_gone")
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/index.php?topic=%d.%d#msg%d", p.TID, start, mid), http.StatusFound)
}

func indexOf(s []int, v int) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}

func (f *Forum) servePostForm(w http.ResponseWriter, uid int, q map[string]string) {
	tid, _ := strconv.Atoi(q["topic"])
	hidden := map[string]string{"topic": strconv.Itoa(tid), "seqnum": "1"}
	if mid := q["msg"]; mid != "" {
		hidden["msg"] = mid
	}
	writeHTML(w, http.StatusOK, layout(nil, postForm(hidden)))
}

func (f *Forum) savePost(w http.ResponseWriter, r *http.Request, uid int, form url.Values) {
	tid, _ := strconv.Atoi(form.Get("topic"))
	if strings.TrimSpace(form.Get("message")) == "" {
		writeHTML(w, http.StatusOK, layout(nil, errorList("The following error or errors occurred while posting this message:",
			"The message body was left empty.")+postForm(map[string]string{"topic": form.Get("topic")})))
		return
	}

	f.mu.Lock()
	if _, ok := f.topics[tid]; !ok {
		f.mu.Unlock()
		writeFatal(w, http.StatusOK, "The topic or board you are looking for appears to be either missing or off limits to you.", "topic_gone")
		return
	}
	mid := f.addPost(tid, uid, form.Get("subject"), form.Get("message"), form.Get("icon"))
	f.mu.Unlock()

	http.Redirect(w, r, fmt.Sprintf("/index.php?topic=%d.msg%d#new", tid, mid), http.StatusFound)
}

func (f *Forum) saveEdit(w http.ResponseWriter, r *http.Request, uid int, q map[string]string, form url.Values) {
	mid, _ := strconv.Atoi(q["msg"])

	f.mu.Lock()
	p, ok := f.posts[mid]
	switch {
	case !ok:
		f.mu.Unlock()
		writeFatal(w, http.StatusOK, "The message you are looking for does not exist.", "no_message")
		return
	case p.UID != uid:
		f.mu.Unlock()
		writeFatal(w, http.StatusOK, "You are not allowed to edit this message.", "cannot_modify")
		return
	}
	p.Subject = form.Get("subject")
	p.Body = form.Get("message")
	p.Icon = form.Get("icon")
	p.Reason = form.Get("modify_reason")
	p.Edited = f.tick().Format(dateFormat)
	f.mu.Unlock()

	http.Redirect(w, r, fmt.Sprintf("/index.php?topic=%d.msg%d#msg%d", p.TID, mid, mid), http.StatusFound)
}

func (f *Forum) serveProfile(w http.ResponseWriter, r *http.Request, q map[string]string) {
	switch q["area"] {
	case "forumprofile":
		uid, ok := f.whoami(r)
		if !ok {
			writeFatal(w, http.StatusForbidden, "You are not allowed to access this section.", "not_logged_in")
			return
		}
		u, _ := f.User(uid)
		writeHTML(w, http.StatusOK, layout(nil, profileForm(u)))
	case "showalerts":
		uid, ok := f.whoami(r)
		if !ok {
			writeFatal(w, http.StatusForbidden, "You are not allowed to access this section.", "not_logged_in")
			return
		}
		f.serveAlerts(w, uid)
	default:
		uid, _ := strconv.Atoi(q["u"])
		if q["u"] == "" {
			uid, _ = f.whoami(r)
		}
		u, ok := f.User(uid)
		if !ok {
			writeFatal(w, http.StatusOK, "The user whose profile you are trying to view does not exist.", "not_a_user")
			return
		}
		f.mu.Lock()
		posts := 0
		for _, p := range f.posts {
			if p.UID == uid {
				posts++
			}
		}
		f.mu.Unlock()
		writeHTML(w, http.StatusOK, layout(nil, profilePage(u, posts)))
	}
}

// genders are the options of the cust_gender field.
var genders = []string{"", "Male", "Female", "Non-binary"}

func (f *Forum) saveProfile(w http.ResponseWriter, r *http.Request, uid int, q map[string]string, form url.Values) {
	target, _ := strconv.Atoi(q["u"])
	if target != uid {
		writeFatal(w, http.StatusOK, "You are not allowed to edit this profile.", "cannot_profile_edit")
		return
	}

	f.mu.Lock()
	u := f.users[uid]
	if form.Get("avatar_choice") == "external" {
		u.Avatar = form.Get("userpicpersonal")
	} else {
		u.Avatar = ""
	}
	u.Blurb = form.Get("personal_text")
	u.Signature = form.Get("signature")
	u.Website = form.Get("website_url")
	u.Birthday = [3]string{form.Get("bday1"), form.Get("bday2"), form.Get("bday3")}
	for k := range form {
		if name, ok := strings.CutPrefix(k, "customfield["); ok {
			if u.Custom == nil {
				u.Custom = make(map[string]string)
			}
			u.Custom[strings.TrimSuffix(name, "]")] = form.Get(k)
		}
	}
	u.Location = u.Custom["cust_loca"]
	u.RealName = u.Custom["cust_real"]
	if g, err := strconv.Atoi(u.Custom["cust_gender"]); err == nil && g >= 0 && g < len(genders) {
		u.Gender = genders[g]
	}
	for _, k := range []string{"cust_loca", "cust_real", "cust_gender"} {
		delete(u.Custom, k)
	}
	f.mu.Unlock()

	http.Redirect(w, r, fmt.Sprintf("/index.php?action=profile;area=forumprofile;u=%d;updated", uid), http.StatusFound)
}

func (f *Forum) serveQuotefast(w http.ResponseWriter, r *http.Request, q map[string]string) {
	mid, _ := strconv.Atoi(q["quote"])
	p, ok := f.Post(mid)
	w.Header().Set("Content-Type", "text/xml; charset=UTF-8")
	if !ok {
		_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><smf><error><![CDATA[No message]]></error></smf>`)
		return
	}
	_, _ = fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<smf>
	<message id="msg_%d">
		<subject><![CDATA[%s]]></subject>
		<message><![CDATA[%s]]></message>
		<reason><![CDATA[%s]]></reason>
	</message>
</smf>`, p.MID, p.Subject, p.Body, p.Reason)
}

func (f *Forum) serveSearch(w http.ResponseWriter, q map[string]string) {
	params, err := DecodeSearchParams(q["params"])
	if err != nil {
		writeFatal(w, http.StatusOK, "Invalid search string.", "search_invalid")
		return
	}
	start, _ := strconv.Atoi(q["start"])

	f.mu.Lock()
	var hits []*Post
	for _, p := range f.posts {
		if params.Matches(p, f.users[p.UID]) {
			hits = append(hits, p)
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if params["sort_dir"] == "asc" {
			return hits[i].MID < hits[j].MID
		}
		return hits[i].MID > hits[j].MID
	})
	total := max(1, (len(hits)+ResultsPerPage-1)/ResultsPerPage)
	var views []postView
	for i := start; i < len(hits) && i < start+ResultsPerPage; i++ {
		views = append(views, f.view(hits[i]))
	}
	f.mu.Unlock()

	crumbs := []crumb{{"Search", "/index.php?action=search"}}
	writeHTML(w, http.StatusOK, layout(crumbs, searchPage(start/ResultsPerPage+1, total, views)))
}

func (f *Forum) serveAlerts(w http.ResponseWriter, uid int) {
	f.mu.Lock()
	var rows []alertView
	for i := len(f.alerts) - 1; i >= 0; i-- {
		a := f.alerts[i]
		if a.UID != uid {
			continue
		}
		v := alertView{Alert: a, Date: f.clock}
		if from, ok := f.users[a.From]; ok {
			v.FromName = from.Name
		}
		if p, ok := f.posts[a.MID]; ok {
			v.Subject = p.Subject
			v.Date = p.Date
		}
		rows = append(rows, v)
	}
	f.mu.Unlock()
	writeHTML(w, http.StatusOK, layout([]crumb{{"Alerts", "/index.php?action=profile;area=showalerts"}}, alertsPage(rows)))
}

func (f *Forum) handleChatPoll(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	uid, loggedIn := f.whoami(r)

	f.mu.Lock()
	var lines []ChatLine
	if last := q.Get("lastID"); last != "" {
		lastID, _ := strconv.Atoi(last)
		for _, l := range f.chat {
			if l.ID > lastID {
				lines = append(lines, l)
			}
		}
	} else {
		lines = f.chat[max(0, len(f.chat)-10):]
	}
	names := make(map[int]string, len(f.users))
	for id, u := range f.users {
		names[id] = u.Name
	}
	f.mu.Unlock()

	w.Header().Set("Content-Type", "text/xml; charset=UTF-8")
	_, _ = io.WriteString(w, chatXML(uid, loggedIn, names, lines))
}

func (f *Forum) handleChatSend(w http.ResponseWriter, r *http.Request) {
	uid, ok := f.whoami(r)
	if !ok {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	f.Say(uid, r.PostForm.Get("ajax"))
	w.Header().Set("Content-Type", "text/xml; charset=UTF-8")
	_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><root><infos></infos><users></users><messages></messages></root>`)
}
