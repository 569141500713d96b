package parser

import (
	"encoding/xml"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"
)

// QuoteData is the editable source of a message, as returned by
// action=quotefast;quote=N;modify;xml.
type QuoteData struct {
	MID     int    `json:"mid"`
	Subject string `json:"subject"`
	// Content is the BBCode source.
	Content string `json:"content"`
	Reason  string `json:"reason,omitempty"`
}

type quotefastDoc struct {
	XMLName xml.Name `xml:"smf"`
	Message struct {
		ID      string `xml:"id,attr"`
		Subject string `xml:"subject"`
		Body    string `xml:"message"`
		Reason  string `xml:"reason"`
	} `xml:"message"`
	Quote string `xml:"quote"`
}

// ParseQuotefast parses the quotefast XML response.
func ParseQuotefast(document []byte) (QuoteData, error) {
	var doc quotefastDoc
	if err := xml.Unmarshal(document, &doc); err != nil {
		return QuoteData{}, fmt.Errorf("parse quotefast: %w", err)
	}
	q := QuoteData{
		Subject: strings.TrimSpace(doc.Message.Subject),
		Content: doc.Message.Body,
		Reason:  strings.TrimSpace(doc.Message.Reason),
	}
	if q.Content == "" {
		q.Content = doc.Quote
	}
	if n, ok := ParseInteger(doc.Message.ID); ok {
		q.MID = n
	}
	return q, nil
}

// ChatMessageData is one chat line.
type ChatMessageData struct {
	ID        int       `json:"id"`
	Date      time.Time `json:"date"`
	UserID    int       `json:"userID"`
	UserRole  int       `json:"userRole"`
	ChannelID int       `json:"channelID"`
	Username  string    `json:"username"`
	Text      string    `json:"text"`
}

// ChatUserData is a member of the online list.
type ChatUserData struct {
	UserID    int    `json:"userID"`
	UserRole  int    `json:"userRole"`
	ChannelID int    `json:"channelID"`
	Name      string `json:"name"`
}

// ChatResponse is a parsed AJAX chat poll.
type ChatResponse struct {
	Infos    map[string]string `json:"infos"`
	Users    []ChatUserData    `json:"users"`
	Messages []ChatMessageData `json:"messages"`
}

type chatDoc struct {
	XMLName xml.Name `xml:"root"`
	Infos   []struct {
		Type  string `xml:"type,attr"`
		Value string `xml:",chardata"`
	} `xml:"infos>info"`
	Users []struct {
		UserID    string `xml:"userID,attr"`
		UserRole  string `xml:"userRole,attr"`
		ChannelID string `xml:"channelID,attr"`
		Name      string `xml:",chardata"`
	} `xml:"users>user"`
	Messages []struct {
		ID        string `xml:"id,attr"`
		DateTime  string `xml:"dateTime,attr"`
		UserID    string `xml:"userID,attr"`
		UserRole  string `xml:"userRole,attr"`
		ChannelID string `xml:"channelID,attr"`
		Username  string `xml:"username"`
		Text      string `xml:"text"`
	} `xml:"messages>message"`
}

// ParseChat parses an AJAX chat XML response.
func ParseChat(document []byte) (*ChatResponse, error) {
	var doc chatDoc
	if err := xml.Unmarshal(document, &doc); err != nil {
		return nil, fmt.Errorf("parse chat: %w", err)
	}

	resp := &ChatResponse{Infos: make(map[string]string, len(doc.Infos))}
	for _, info := range doc.Infos {
		resp.Infos[info.Type] = strings.TrimSpace(info.Value)
	}
	for _, u := range doc.Users {
		resp.Users = append(resp.Users, ChatUserData{
			UserID:    atoi(u.UserID),
			UserRole:  atoi(u.UserRole),
			ChannelID: atoi(u.ChannelID),
			Name:      strings.TrimSpace(u.Name),
		})
	}
	for _, m := range doc.Messages {
		id, err := strconv.Atoi(m.ID)
		if err != nil {
			return nil, fmt.Errorf("parse chat: message id %q: %w", m.ID, err)
		}
		date, err := mail.ParseDate(m.DateTime)
		if err != nil {
			return nil, fmt.Errorf("parse chat: message %d date: %w", id, err)
		}
		resp.Messages = append(resp.Messages, ChatMessageData{
			ID:        id,
			Date:      date,
			UserID:    atoi(m.UserID),
			UserRole:  atoi(m.UserRole),
			ChannelID: atoi(m.ChannelID),
			Username:  m.Username,
			Text:      m.Text,
		})
	}
	return resp, nil
}

func atoi(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}
