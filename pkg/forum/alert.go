package forum

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"time"

	"github.com/tbgers/tbgclient/pkg/api"
	"github.com/tbgers/tbgclient/pkg/parser"
)

// AlertsPerPage is the number of alerts on a page.
const AlertsPerPage = 25

// AlertKind classifies an alert.
type AlertKind int

const (
	// Unknown alerts keep their text only.
	Unknown AlertKind = iota
	// Mentioned: User mentioned the member in Message.
	Mentioned
	// Quoted: User quoted the member in Message.
	Quoted
	// NewTopic: User started Topic on a watched board.
	NewTopic
)

func (k AlertKind) String() string {
	switch k {
	case Mentioned:
		return "mentioned"
	case Quoted:
		return "quoted"
	case NewTopic:
		return "new topic"
	}
	return "unknown"
}

func (k AlertKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *AlertKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "mentioned":
		*k = Mentioned
	case "quoted":
		*k = Quoted
	case "new topic":
		*k = NewTopic
	default:
		*k = Unknown
	}
	return nil
}

// Alert is a notification of the logged in member. Message is set for
// Mentioned and Quoted, Topic for NewTopic.
type Alert struct {
	AID     int       `json:"aid"`
	Kind    AlertKind `json:"kind"`
	Date    time.Time `json:"date,omitzero"`
	Text    string    `json:"text"`
	Unread  bool      `json:"unread,omitempty"`
	User    *User     `json:"user,omitempty"`
	Message *Message  `json:"message,omitempty"`
	Topic   *Topic    `json:"topic,omitempty"`
}

func alertFromData(d parser.AlertData) *Alert {
	a := &Alert{
		AID:    d.AID,
		Date:   d.Date,
		Text:   d.Text,
		Unread: d.Unread,
	}
	if d.User.UID != 0 || d.User.Name != "" {
		a.User = userFromData(d.User)
	}
	switch d.Kind {
	case parser.AlertMention:
		a.Kind = Mentioned
	case parser.AlertQuote:
		a.Kind = Quoted
	case parser.AlertNewTopic:
		a.Kind = NewTopic
	}
	switch a.Kind {
	case Mentioned, Quoted:
		a.Message = &Message{MID: d.MID, TID: d.TID, Subject: d.TopicName, User: a.User}
	case NewTopic:
		a.Topic = &Topic{TID: d.TID, Name: d.TopicName}
	}
	return a
}

// AlertsPage reads page n (from 1) of the session's alerts.
func AlertsPage(ctx context.Context, n int) (*Page[*Alert], error) {
	if n < 1 {
		return nil, fmt.Errorf("alerts: invalid page %d", n)
	}
	_, c, err := client(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := c.GetAlerts(ctx, (n-1)*AlertsPerPage)
	if err != nil {
		return nil, err
	}
	if err := api.CheckErrors(http.MethodGet, resp); err != nil {
		return nil, err
	}
	data, err := parser.ParseAlertsPage(resp.Text())
	if err != nil {
		return nil, fmt.Errorf("alerts: %w", err)
	}
	checkPage("alerts", n, data.CurrentPage)
	return convertPage(data, alertFromData), nil
}

// AlertPages iterates over every page of alerts, stopping at the first error.
func AlertPages(ctx context.Context) iter.Seq2[*Page[*Alert], error] {
	return paginate(ctx, AlertsPage)
}
