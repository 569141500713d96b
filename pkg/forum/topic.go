package forum

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"strconv"

	"github.com/tbgers/tbgclient/pkg/api"
	"github.com/tbgers/tbgclient/pkg/parser"
)

// Topic is a thread of messages.
type Topic struct {
	TID  int    `json:"tid,omitempty"`
	Name string `json:"name,omitempty"`
	// Pages is the page count seen on the last fetch.
	Pages int `json:"pages,omitempty"`
}

// Update refreshes the topic. The only method is "get".
func (t *Topic) Update(ctx context.Context, method string) (*Topic, error) {
	switch method {
	case "", "get":
		return t.Fetch(ctx)
	}
	return nil, notImplemented("topic", method)
}

// Submit is not supported by topics; new topics are not created by this
// client.
func (t *Topic) Submit(ctx context.Context, method string) (*Topic, error) {
	return nil, notImplemented("topic", method)
}

// Fetch reads the name and page count of TID from its first page.
func (t *Topic) Fetch(ctx context.Context) (*Topic, error) {
	page, err := t.Page(ctx, 1)
	if err != nil {
		return nil, err
	}
	out := *t
	if n := len(page.Hierarchy); n > 0 {
		out.Name = page.Hierarchy[n-1].Name
	}
	out.Pages = page.TotalPages
	return &out, nil
}

// Page reads page n (from 1) of the topic.
func (t *Topic) Page(ctx context.Context, n int) (*Page[*Message], error) {
	if err := requireFields(field{"tid", t.TID != 0}); err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, fmt.Errorf("topic %d: invalid page %d", t.TID, n)
	}
	_, c, err := client(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := c.GetTopicPage(ctx, t.TID, strconv.Itoa((n-1)*api.TopicPerPage))
	if err != nil {
		return nil, err
	}
	if err := api.CheckErrors(http.MethodGet, resp); err != nil {
		return nil, err
	}
	data, err := parser.ParseTopicPage(resp.Text())
	if err != nil {
		return nil, fmt.Errorf("topic %d: %w", t.TID, err)
	}
	checkPage("topic", n, data.CurrentPage)
	return convertPage(data, messageFromData), nil
}

// All iterates over every page of the topic, stopping at the first error.
func (t *Topic) All(ctx context.Context) iter.Seq2[*Page[*Message], error] {
	return paginate(ctx, t.Page)
}
