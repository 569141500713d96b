package api

import (
	"errors"
	"fmt"

	"github.com/tbgers/tbgclient/pkg/parser"
)

// ErrLoginFailed is returned when the forum neither redirected after login2
// nor rendered an error explaining why.
var ErrLoginFailed = errors.New("login failed")

// RequestError reports a failed request: an HTTP error status, or an error
// page rendered by the forum (Err is then a *parser.PageError).
type RequestError struct {
	Method     string
	URL        string
	StatusCode int
	Err        error
	Response   *Response
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
	}
	return fmt.Sprintf("%s %s returns %d", e.Method, e.URL, e.StatusCode)
}

func (e *RequestError) Unwrap() error { return e.Err }

// CheckErrors turns an SMF error page into a *RequestError.
func CheckErrors(method string, resp *Response) error {
	if resp == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := parser.CheckErrors(resp.Text()); err != nil {
		return &RequestError{
			Method:     method,
			URL:        resp.URL,
			StatusCode: resp.StatusCode,
			Err:        err,
			Response:   resp,
		}
	}
	return nil
}

// StatusCode extracts the HTTP status from a *RequestError, or 0.
func StatusCode(err error) int {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode
	}
	return 0
}
