package forumtest

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"
)

// SearchParams is a decoded search2 params blob.
type SearchParams map[string]string

// DecodeSearchParams reverses the forum's params encoding: url-safe base64
// with "." padding over a zlib stream of key|'|value pairs joined by |"|.
func DecodeSearchParams(encoded string) (SearchParams, error) {
	keys, values, err := decodeSearch(encoded)
	if err != nil {
		return nil, err
	}
	params := make(SearchParams, len(keys))
	for i, k := range keys {
		params[k] = values[i]
	}
	return params, nil
}

// DecodeSearchKeys returns the parameter names in encoded order.
func DecodeSearchKeys(encoded string) ([]string, error) {
	keys, _, err := decodeSearch(encoded)
	return keys, err
}

func decodeSearch(encoded string) (keys, values []string, err error) {
	if encoded == "" {
		return nil, nil, errors.New("empty params")
	}
	std := strings.NewReplacer("-", "+", "_", "/", ".", "=").Replace(encoded)
	compressed, err := base64.StdEncoding.DecodeString(std)
	if err != nil {
		return nil, nil, err
	}
	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, nil, err
	}
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, nil, err
	}
	for _, pair := range strings.Split(string(raw), `|"|`) {
		k, v, _ := strings.Cut(pair, `|'|`)
		keys = append(keys, k)
		values = append(values, v)
	}
	return keys, values, nil
}

// Matches reports whether a post satisfies the search.
func (p SearchParams) Matches(post *Post, author *User) bool {
	haystack := strings.ToLower(post.Subject)
	if _, subjectOnly := p["subject_only"]; !subjectOnly {
		haystack += " " + strings.ToLower(post.Body)
	}

	words := strings.Fields(strings.ToLower(p["search"]))
	if len(words) == 0 {
		return false
	}
	anyWord := p["searchtype"] == "2"
	matched := !anyWord
	for _, w := range words {
		found := strings.Contains(haystack, w)
		if anyWord && found {
			matched = true
		}
		if !anyWord && !found {
			matched = false
		}
	}
	if !matched {
		return false
	}

	if spec := p["userspec"]; spec != "" && spec != "*" {
		if author == nil {
			return false
		}
		ok := false
		for _, name := range strings.Split(spec, ",") {
			if strings.EqualFold(strings.TrimSpace(name), author.Name) {
				ok = true
			}
		}
		if !ok {
			return false
		}
	}

	if maxAge, err := strconv.Atoi(p["maxage"]); err == nil {
		if time.Since(post.Date) > time.Duration(maxAge)*24*time.Hour {
			return false
		}
	}
	return true
}
