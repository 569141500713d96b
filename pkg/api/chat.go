package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// ChatPoll fetches chat messages newer than lastID; lastID < 0 fetches the
// server's default backlog.
func (c *Client) ChatPoll(ctx context.Context, lastID int) (*Response, error) {
	q := url.Values{"ajax": {"true"}}
	if lastID >= 0 {
		q.Set("lastID", strconv.Itoa(lastID))
	}
	return c.Request(ctx, http.MethodGet, c.chatURL, RequestOptions{RawQuery: q.Encode()})
}

// ChatSend posts a line to the chat.
func (c *Client) ChatSend(ctx context.Context, text string) (*Response, error) {
	return c.Request(ctx, http.MethodPost, c.chatURL, RequestOptions{
		Form: url.Values{"ajax": {text}},
	})
}
