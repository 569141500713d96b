// Package api sends requests to a TBG (SMF 2.1) forum and its AJAX chat.
//
// A Client owns a cookie jar, so one Client corresponds to one logged-in
// identity. Most callers reach it through a session.Session rather than
// directly.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/tbgers/tbgclient/internal/logging"
	"github.com/tbgers/tbgclient/pkg/types"
)

// Default endpoints and limits.
const (
	DefaultForumURL  = "https://tbgforums.com/forums/index.php"
	DefaultChatURL   = "https://tbgforums.com/forums/chat/"
	DefaultUserAgent = "tbgclient/0.6 (+https://github.com/tbgers/tbgclient)"
	DefaultTimeout   = 30 * time.Second

	// DefaultMaxRetries applies to GET and HEAD requests only.
	DefaultMaxRetries      = 3
	DefaultInitialInterval = 500 * time.Millisecond
	DefaultMaxInterval     = 5 * time.Second

	maxResponseSize = 5 * 1024 * 1024 // 5MB
)

// Options configures a Client.
type Options struct {
	ForumURL  string
	ChatURL   string
	UserAgent string
	Timeout   time.Duration

	// IgnoreErrorCodes returns 4xx/5xx responses instead of a *RequestError.
	IgnoreErrorCodes bool

	// MaxRetries is the retry budget for idempotent requests. Negative
	// disables retries.
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration

	// HTTPClient replaces the default transport. Its Jar and CheckRedirect
	// are overwritten.
	HTTPClient *http.Client
}

// OptionsFromConfig maps a loaded configuration onto client options.
func OptionsFromConfig(cfg *types.Config) Options {
	opts := Options{
		ForumURL:         cfg.ForumURL,
		ChatURL:          cfg.ChatURL,
		UserAgent:        cfg.UserAgent,
		Timeout:          cfg.RequestTimeout(),
		IgnoreErrorCodes: !cfg.ShouldRaiseOnErrorCode(),
	}
	if cfg.Retry != nil {
		opts.MaxRetries = cfg.Retry.MaxRetries
		opts.InitialInterval = cfg.Retry.Initial(DefaultInitialInterval)
		opts.MaxInterval = cfg.Retry.Max(DefaultMaxInterval)
	}
	return opts
}

// Client sends requests to one forum.
type Client struct {
	http      *http.Client
	forumURL  string
	chatURL   string
	userAgent string
	raise     bool

	maxRetries      int
	initialInterval time.Duration
	maxInterval     time.Duration
}

// New creates a client with an empty cookie jar.
func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	} else {
		copied := *httpClient
		httpClient = &copied
	}
	jar, _ := cookiejar.New(nil) // only fails with non-nil options
	httpClient.Jar = jar
	httpClient.CheckRedirect = checkRedirect

	c := &Client{
		http:            httpClient,
		forumURL:        opts.ForumURL,
		chatURL:         opts.ChatURL,
		userAgent:       opts.UserAgent,
		raise:           !opts.IgnoreErrorCodes,
		maxRetries:      opts.MaxRetries,
		initialInterval: opts.InitialInterval,
		maxInterval:     opts.MaxInterval,
	}
	if c.forumURL == "" {
		c.forumURL = DefaultForumURL
	}
	if c.chatURL == "" {
		c.chatURL = DefaultChatURL
	}
	if c.userAgent == "" {
		c.userAgent = DefaultUserAgent
	}
	if c.maxRetries == 0 {
		c.maxRetries = DefaultMaxRetries
	}
	if c.initialInterval <= 0 {
		c.initialInterval = DefaultInitialInterval
	}
	if c.maxInterval <= 0 {
		c.maxInterval = DefaultMaxInterval
	}
	return c
}

// ForumURL returns the forum entry point (.../index.php).
func (c *Client) ForumURL() string { return c.forumURL }

// ChatURL returns the chat endpoint.
func (c *Client) ChatURL() string { return c.chatURL }

type noRedirectKey struct{}

func checkRedirect(req *http.Request, via []*http.Request) error {
	if v, _ := req.Context().Value(noRedirectKey{}).(bool); v {
		return http.ErrUseLastResponse
	}
	if len(via) >= 10 {
		return errors.New("stopped after 10 redirects")
	}
	return nil
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	// URL is the final URL after redirects.
	URL    string
	Header http.Header
	Body   []byte
}

// Text returns the body as a string.
func (r *Response) Text() string { return string(r.Body) }

// Location returns the redirect target of a 3xx response.
func (r *Response) Location() string { return r.Header.Get("Location") }

// IsRedirect reports whether the response is a 3xx.
func (r *Response) IsRedirect() bool { return r.StatusCode >= 300 && r.StatusCode < 400 }

// RequestOptions are per-request settings.
type RequestOptions struct {
	// RawQuery is appended to the URL as is.
	RawQuery string
	// Form is sent as an application/x-www-form-urlencoded body.
	Form url.Values
	// NoRedirect returns 3xx responses instead of following them.
	NoRedirect bool
}

var errRetryableStatus = errors.New("retryable status")

// Request sends a request. GET and HEAD requests are retried with
// exponential backoff on transport errors and 502/503/504 responses.
// Responses with status >= 400 yield a *RequestError unless the client
// ignores error codes.
func (c *Client) Request(ctx context.Context, method, rawURL string, opts RequestOptions) (*Response, error) {
	if opts.RawQuery != "" {
		sep := "?"
		if strings.Contains(rawURL, "?") {
			sep = "&"
		}
		rawURL += sep + opts.RawQuery
	}
	if opts.NoRedirect {
		ctx = context.WithValue(ctx, noRedirectKey{}, true)
	}

	attempt := 0
	op := func() (*Response, error) {
		attempt++
		resp, err := c.do(ctx, method, rawURL, opts.Form)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(ctx.Err())
			}
			return nil, err
		}
		switch resp.StatusCode {
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return resp, errRetryableStatus
		}
		return resp, nil
	}

	var (
		resp *Response
		err  error
	)
	if idempotent(method) && c.maxRetries > 0 {
		resp, err = backoff.RetryNotifyWithData(op, c.newBackoff(ctx), func(err error, next time.Duration) {
			logging.Debug().
				Str("method", method).
				Str("url", rawURL).
				Int("attempt", attempt).
				Dur("retryIn", next).
				Err(err).
				Msg("Retrying request")
		})
	} else {
		resp, err = op()
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			err = permanent.Err
		}
	}
	if errors.Is(err, errRetryableStatus) {
		err = nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, rawURL, err)
	}

	logging.Debug().
		Str("method", method).
		Str("url", resp.URL).
		Int("status", resp.StatusCode).
		Int("bytes", len(resp.Body)).
		Msg("Request finished")

	if c.raise && resp.StatusCode >= 400 {
		return resp, &RequestError{
			Method:     method,
			URL:        resp.URL,
			StatusCode: resp.StatusCode,
			Response:   resp,
		}
	}
	return resp, nil
}

func idempotent(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}

func (c *Client) newBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialInterval
	b.MaxInterval = c.maxInterval
	b.RandomizationFactor = 0.5
	b.Multiplier = 2.0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.maxRetries)), ctx)
}

func (c *Client) do(ctx context.Context, method, rawURL string, form url.Values) (*Response, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxResponseSize {
		return nil, backoff.Permanent(fmt.Errorf("response too large (exceeds %d bytes)", maxResponseSize))
	}

	return &Response{
		StatusCode: resp.StatusCode,
		URL:        resp.Request.URL.String(),
		Header:     resp.Header,
		Body:       data,
	}, nil
}

// Cookies returns the cookies the jar would send to the forum.
func (c *Client) Cookies() []*http.Cookie {
	u, err := url.Parse(c.forumURL)
	if err != nil {
		return nil
	}
	return c.http.Jar.Cookies(u)
}

// Cookie returns the named forum cookie, or nil.
func (c *Client) Cookie(name string) *http.Cookie {
	for _, cookie := range c.Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

// SetCookies stores cookies for the forum, e.g. ones restored from disk.
func (c *Client) SetCookies(cookies []*http.Cookie) {
	u, err := url.Parse(c.forumURL)
	if err != nil {
		return
	}
	// Store against the directory so the cookies cover the chat too.
	u.Path = "/"
	c.http.Jar.SetCookies(u, cookies)
}

// ClearCookies replaces the jar with an empty one.
func (c *Client) ClearCookies() {
	jar, _ := cookiejar.New(nil)
	c.http.Jar = jar
}
