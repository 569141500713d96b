package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// Param is one ";key=value" (or bare ";key") segment of an SMF action.
type Param struct {
	Key   string
	Value string
	Bare  bool
}

// P returns a key=value parameter.
func P(key, value string) Param { return Param{Key: key, Value: value} }

// Flag returns a parameter without a value.
func Flag(key string) Param { return Param{Key: key, Bare: true} }

// Action describes a request to index.php?action=....
type Action struct {
	Name   string
	Method string // GET when empty
	Params []Param
	// Queries are sent before the action, in order.
	Queries []Param
	Form    url.Values
	// NoPercents keeps ';' and '=' literal in the query string. Some SMF
	// areas do not decode them.
	NoPercents bool
	NoRedirect bool
}

// escape percent-encodes everything outside the unreserved set.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// ActionString renders name;k=v;flag with every key and value escaped.
func ActionString(name string, params []Param) string {
	var b strings.Builder
	b.WriteString(name)
	for _, p := range params {
		b.WriteByte(';')
		b.WriteString(escape(p.Key))
		if !p.Bare {
			b.WriteByte('=')
			b.WriteString(escape(p.Value))
		}
	}
	return b.String()
}

// EncodeQuery renders the query string of an action request.
func EncodeQuery(a Action) string {
	pairs := append(append([]Param(nil), a.Queries...), P("action", ActionString(a.Name, a.Params)))

	encode := url.QueryEscape
	if a.NoPercents {
		encode = func(s string) string {
			s = url.QueryEscape(s)
			s = strings.ReplaceAll(s, "%3B", ";")
			return strings.ReplaceAll(s, "%3D", "=")
		}
	}

	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, encode(p.Key)+"="+encode(p.Value))
	}
	return strings.Join(parts, "&")
}

// DoAction sends an action to the forum.
func (c *Client) DoAction(ctx context.Context, a Action) (*Response, error) {
	method := a.Method
	if method == "" {
		method = http.MethodGet
	}
	return c.Request(ctx, method, c.forumURL, RequestOptions{
		RawQuery:   EncodeQuery(a),
		Form:       a.Form,
		NoRedirect: a.NoRedirect,
	})
}
