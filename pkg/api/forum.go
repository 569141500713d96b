package api

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"time"

	"github.com/tbgers/tbgclient/pkg/parser"
)

const (
	// DefaultIcon is the standard post icon.
	DefaultIcon = "xx"
	// TopicPerPage is the number of messages on a topic page.
	TopicPerPage = 25
)

// Post is the editable part of a message.
type Post struct {
	Subject string
	// Message is BBCode.
	Message string
	Icon    string
}

func (p Post) form() url.Values {
	subject := p.Subject
	if subject == "" {
		subject = "Reply"
	}
	icon := p.Icon
	if icon == "" {
		icon = DefaultIcon
	}
	return url.Values{
		"message": {p.Message},
		"subject": {subject},
		"icon":    {icon},
		"goback":  {"0"},
	}
}

// nonce fetches a form and returns its hidden inputs.
func (c *Client) nonce(ctx context.Context, a Action) (map[string]string, *Response, error) {
	resp, err := c.DoAction(ctx, a)
	if err != nil {
		return nil, resp, err
	}
	if err := CheckErrors(http.MethodGet, resp); err != nil {
		return nil, resp, err
	}
	hidden, err := parser.HiddenInputs(resp.Text())
	if err != nil {
		return nil, resp, fmt.Errorf("%s form: %w", a.Name, err)
	}
	return hidden, resp, nil
}

func withNonce(form url.Values, nonce map[string]string) url.Values {
	for _, k := range slices.Sorted(maps.Keys(nonce)) {
		form.Set(k, nonce[k])
	}
	return form
}

// Login fetches the login form and submits the credentials. A successful
// login answers with a redirect, which is not followed.
func (c *Client) Login(ctx context.Context, username, password string) (*Response, error) {
	nonce, _, err := c.nonce(ctx, Action{Name: "login"})
	if err != nil {
		return nil, err
	}
	return c.DoAction(ctx, Action{
		Name:   "login2",
		Method: http.MethodPost,
		Form: withNonce(url.Values{
			"user":         {username},
			"passwrd":      {password},
			"cookielength": {"3153600"},
		}, nonce),
		NoRedirect: true,
	})
}

// PostMessage replies to a topic.
func (c *Client) PostMessage(ctx context.Context, tid int, post Post) (*Response, error) {
	nonce, _, err := c.nonce(ctx, Action{
		Name:    "post2",
		Queries: []Param{P("topic", strconv.Itoa(tid))},
	})
	if err != nil {
		return nil, err
	}
	form := post.form()
	form.Set("post", "Post")
	return c.DoAction(ctx, Action{
		Name:       "post2",
		Method:     http.MethodPost,
		Form:       withNonce(form, nonce),
		NoRedirect: true,
	})
}

// EditMessage replaces the subject, body and icon of a message.
func (c *Client) EditMessage(ctx context.Context, mid, tid int, post Post, reason string) (*Response, error) {
	nonce, _, err := c.nonce(ctx, Action{
		Name:    "post",
		Queries: []Param{P("msg", strconv.Itoa(mid)), P("topic", strconv.Itoa(tid))},
	})
	if err != nil {
		return nil, err
	}
	form := post.form()
	form.Set("topic", strconv.Itoa(tid))
	form.Set("post", "Save")
	form.Set("modify_reason", reason)
	return c.DoAction(ctx, Action{
		Name:       "post",
		Method:     http.MethodPost,
		Queries:    []Param{P("msg", strconv.Itoa(mid))},
		Form:       withNonce(form, nonce),
		NoRedirect: true,
	})
}

// ProfileEdit holds the fields of the forum profile area.
type ProfileEdit struct {
	// Avatar is an external picture URL; nil removes the avatar.
	Avatar *string
	Blurb  string
	// Birthday nil keeps the date currently on the form.
	Birthday     *time.Time
	Signature    string
	WebsiteTitle string
	WebsiteURL   string
	CustomFields map[string]string
}

// EditProfile submits the forum profile area of a user.
func (c *Client) EditProfile(ctx context.Context, uid int, edit ProfileEdit) (*Response, error) {
	formPage := Action{
		Name:       "profile",
		Params:     []Param{P("area", "forumprofile")},
		NoPercents: true,
	}
	nonce, page, err := c.nonce(ctx, formPage)
	if err != nil {
		return nil, err
	}

	var day, month, year string
	if edit.Birthday == nil {
		day, _ = parser.InputValue(page.Text(), "bday1")
		month, _ = parser.InputValue(page.Text(), "bday2")
		year, _ = parser.InputValue(page.Text(), "bday3")
	} else {
		day = strconv.Itoa(edit.Birthday.Day())
		month = strconv.Itoa(int(edit.Birthday.Month()))
		year = strconv.Itoa(edit.Birthday.Year())
	}

	form := url.Values{
		"avatar_choice":   {"none"},
		"userpicpersonal": {""},
		"personal_text":   {edit.Blurb},
		"bday1":           {day},
		"bday2":           {month},
		"bday3":           {year},
		"signature":       {edit.Signature},
		"website_title":   {edit.WebsiteTitle},
		"website_url":     {edit.WebsiteURL},
		"save":            {"Change profile"},
	}
	if edit.Avatar != nil {
		form.Set("avatar_choice", "external")
		form.Set("userpicpersonal", *edit.Avatar)
	}
	for k, v := range edit.CustomFields {
		form.Set("customfield["+k+"]", v)
	}

	return c.DoAction(ctx, Action{
		Name:       "profile",
		Method:     http.MethodPost,
		Params:     []Param{P("area", "forumprofile"), P("u", strconv.Itoa(uid))},
		Form:       withNonce(form, nonce),
		NoPercents: true,
		NoRedirect: true,
	})
}

// GetTopicPage fetches a topic starting at message offset start. start may
// also be "new" for the first unread post.
func (c *Client) GetTopicPage(ctx context.Context, tid int, start string) (*Response, error) {
	if start == "" {
		start = "0"
	}
	return c.Request(ctx, http.MethodGet, c.forumURL, RequestOptions{
		RawQuery: fmt.Sprintf("topic=%d.%s", tid, start),
	})
}

// GetMessagePage fetches the topic page containing a message. The forum
// only resolves message links for visitors with a PHP session, so one is
// obtained first when the jar lacks it.
func (c *Client) GetMessagePage(ctx context.Context, mid int) (*Response, error) {
	if c.Cookie("PHPSESSID") == nil {
		if err := c.PrimeSession(ctx); err != nil {
			return nil, err
		}
	}
	return c.Request(ctx, http.MethodGet, c.forumURL, RequestOptions{
		RawQuery: fmt.Sprintf("msg=%d", mid),
	})
}

// PrimeSession requests the board index without following redirects so the
// forum issues a PHPSESSID cookie.
func (c *Client) PrimeSession(ctx context.Context) error {
	_, err := c.Request(ctx, http.MethodGet, c.forumURL, RequestOptions{NoRedirect: true})
	return err
}

// GetProfile fetches the summary area of a profile. A uid of 0 asks for the
// logged in user's own profile.
func (c *Client) GetProfile(ctx context.Context, uid int) (*Response, error) {
	var params []Param
	if uid > 0 {
		params = []Param{P("u", strconv.Itoa(uid))}
	}
	return c.DoAction(ctx, Action{
		Name:       "profile",
		Params:     params,
		NoPercents: true,
	})
}

// GetQuotefast fetches the BBCode source of a message.
func (c *Client) GetQuotefast(ctx context.Context, mid int) (*Response, error) {
	return c.DoAction(ctx, Action{
		Name:       "quotefast",
		Params:     []Param{P("quote", strconv.Itoa(mid)), Flag("modify"), Flag("xml")},
		NoPercents: true,
	})
}

// Search runs a stored search. params is the encoded parameter blob and
// start the result offset.
func (c *Client) Search(ctx context.Context, params string, start int) (*Response, error) {
	return c.DoAction(ctx, Action{
		Name:       "search2",
		Params:     []Param{P("params", params), P("start", strconv.Itoa(start))},
		NoPercents: true,
	})
}

// GetAlerts fetches a page of the current user's alerts.
func (c *Client) GetAlerts(ctx context.Context, start int) (*Response, error) {
	return c.DoAction(ctx, Action{
		Name:       "profile",
		Params:     []Param{P("area", "showalerts"), P("start", strconv.Itoa(start))},
		NoPercents: true,
	})
}
