package forum

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"

	"github.com/tbgers/tbgclient/internal/event"
	"github.com/tbgers/tbgclient/internal/logging"
	"github.com/tbgers/tbgclient/pkg/api"
	"github.com/tbgers/tbgclient/pkg/parser"
)

// Message is a post in a topic.
type Message struct {
	MID     int       `json:"mid,omitempty"`
	TID     int       `json:"tid,omitempty"`
	Subject string    `json:"subject,omitempty"`
	Date    time.Time `json:"date,omitzero"`
	// Edited is the last edit note ("date by name"), empty if never edited.
	Edited string `json:"edited,omitempty"`
	// Content is HTML when read from a page and BBCode when read with
	// FetchSource or written by the caller.
	Content string   `json:"content,omitempty"`
	User    *User    `json:"user,omitempty"`
	Icon    PostIcon `json:"icon,omitempty"`
}

var newMessage = regexp.MustCompile(`msg(\d+)`)

func messageFromData(d parser.MessageData) *Message {
	return &Message{
		MID:     d.MID,
		TID:     d.TID,
		Subject: d.Subject,
		Date:    d.Date,
		Edited:  d.Edited,
		Content: d.Content,
		User:    userFromData(d.User),
		Icon:    PostIcon(d.Icon),
	}
}

func (m *Message) clone() *Message {
	c := *m
	return &c
}

// Update refreshes the message. Methods are "get" (rendered HTML) and
// "quotefast" (BBCode source).
func (m *Message) Update(ctx context.Context, method string) (*Message, error) {
	switch method {
	case "", "get":
		return m.Fetch(ctx)
	case "quotefast":
		return m.FetchSource(ctx)
	}
	return nil, notImplemented("message", method)
}

// Submit sends the message. Methods are "post" (reply to TID) and "edit"
// (replace MID, with no edit reason).
func (m *Message) Submit(ctx context.Context, method string) (*Message, error) {
	switch method {
	case "", "post":
		return m.Post(ctx)
	case "edit":
		return m.Edit(ctx, "")
	}
	return nil, notImplemented("message", method)
}

// Fetch reads the message MID from the topic page it belongs to.
func (m *Message) Fetch(ctx context.Context) (*Message, error) {
	if err := requireFields(field{"mid", m.MID != 0}); err != nil {
		return nil, err
	}
	_, c, err := client(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := c.GetMessagePage(ctx, m.MID)
	if err != nil {
		return nil, err
	}
	if err := api.CheckErrors(http.MethodGet, resp); err != nil {
		return nil, err
	}
	page, err := parser.ParseTopicPage(resp.Text())
	if err != nil {
		return nil, fmt.Errorf("message %d: %w", m.MID, err)
	}
	for _, d := range page.Contents {
		if d.MID == m.MID {
			return messageFromData(d), nil
		}
	}
	return nil, &api.RequestError{
		Method:     http.MethodGet,
		URL:        resp.URL,
		StatusCode: resp.StatusCode,
		Err:        ErrMessageNotInPage,
		Response:   resp,
	}
}

// FetchSource reads the subject and BBCode of MID through quotefast. It
// also works on messages of locked topics.
func (m *Message) FetchSource(ctx context.Context) (*Message, error) {
	if err := requireFields(field{"mid", m.MID != 0}); err != nil {
		return nil, err
	}
	_, c, err := client(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := c.GetQuotefast(ctx, m.MID)
	if err != nil {
		return nil, err
	}
	// Failures come back as a regular HTML error page.
	if strings.Contains(resp.Text(), "<html") {
		if err := api.CheckErrors(http.MethodGet, resp); err != nil {
			return nil, err
		}
	}
	q, err := parser.ParseQuotefast(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("message %d: %w", m.MID, err)
	}
	out := m.clone()
	out.Subject = q.Subject
	out.Content = q.Content
	return out, nil
}

func (m *Message) post() api.Post {
	return api.Post{Subject: m.Subject, Message: m.Content, Icon: string(m.Icon)}
}

// Post replies to TID with Subject, Content and Icon. The returned copy
// carries the new message id when the forum reports it.
func (m *Message) Post(ctx context.Context) (*Message, error) {
	if err := requireFields(field{"tid", m.TID != 0}); err != nil {
		return nil, err
	}
	s, c, err := client(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := c.PostMessage(ctx, m.TID, m.post())
	if err != nil {
		return nil, err
	}
	if err := api.CheckErrors(http.MethodPost, resp); err != nil {
		return nil, err
	}

	out := m.clone()
	if match := newMessage.FindStringSubmatch(resp.Location()); match != nil {
		out.MID, _ = strconv.Atoi(match[1])
	}
	logging.Info().Str("session", s.ID()).Int("tid", out.TID).Int("mid", out.MID).Msg("Message posted")
	event.Publish(event.Event{
		Type: event.MessagePosted,
		Data: event.ForumMessageData{SessionID: s.ID(), TopicID: out.TID, MessageID: out.MID, Subject: out.Subject},
	})
	return out, nil
}

// Edit replaces MID with Subject, Content and Icon.
func (m *Message) Edit(ctx context.Context, reason string) (*Message, error) {
	if err := requireFields(field{"mid", m.MID != 0}, field{"tid", m.TID != 0}); err != nil {
		return nil, err
	}
	s, c, err := client(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := c.EditMessage(ctx, m.MID, m.TID, m.post(), reason)
	if err != nil {
		return nil, err
	}
	if err := api.CheckErrors(http.MethodPost, resp); err != nil {
		return nil, err
	}

	logging.Info().Str("session", s.ID()).Int("mid", m.MID).Msg("Message edited")
	event.Publish(event.Event{
		Type: event.MessageEdited,
		Data: event.ForumMessageData{SessionID: s.ID(), TopicID: m.TID, MessageID: m.MID, Subject: m.Subject, Reason: reason},
	})
	return m, nil
}

// Markdown converts the HTML content to Markdown.
func (m *Message) Markdown() (string, error) {
	converter := md.NewConverter("", true, &md.Options{
		HeadingStyle:     "atx",
		HorizontalRule:   "---",
		BulletListMarker: "-",
		CodeBlockStyle:   "fenced",
		EmDelimiter:      "*",
	})
	converter.Remove("script", "style")
	return converter.ConvertString(m.Content)
}

// PlainText returns the text of the HTML content without markup.
func (m *Message) PlainText() string {
	doc, err := parser.Parse(m.Content)
	if err != nil {
		return m.Content
	}
	return strings.TrimSpace(doc.Text())
}
