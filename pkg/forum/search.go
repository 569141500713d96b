package forum

import (
	"bytes"
	"compress/zlib"
	"context"
	"encoding/base64"
	"fmt"
	"iter"
	"net/http"
	"strconv"
	"strings"

	"github.com/tbgers/tbgclient/pkg/api"
	"github.com/tbgers/tbgclient/pkg/parser"
)

// MessagesPerSearchPage is the number of results on a search page.
const MessagesPerSearchPage = 30

// DefaultSearchBoards are the boards searched when Boards is empty.
var DefaultSearchBoards = []int{2, 3, 5, 6}

// Search is a forum search. Searches are slow on the forum side; prefer
// reading one page over iterating all of them.
type Search struct {
	Query string
	// Match defaults to AllWords.
	Match SearchType
	// Users limits results to these member names. Empty means everyone.
	Users []string
	// Sort defaults to SortRelevance, Order to Descending.
	Sort  SortBy
	Order SortOrder
	// Complete shows full messages instead of excerpts.
	Complete    bool
	SubjectOnly bool
	// MinAge and MaxAge bound the age of results in days. A zero MaxAge
	// means 9999.
	MinAge int
	MaxAge int
	Boards []int
}

type searchField struct{ key, value string }

func (s *Search) fields() []searchField {
	boards := s.Boards
	if len(boards) == 0 {
		boards = DefaultSearchBoards
	}
	ids := make([]string, len(boards))
	for i, b := range boards {
		ids[i] = strconv.Itoa(b)
	}
	sort, order, match, maxAge := s.Sort, s.Order, s.Match, s.MaxAge
	if sort == "" {
		sort = SortRelevance
	}
	if order == "" {
		order = Descending
	}
	if match == 0 {
		match = AllWords
	}
	if maxAge == 0 {
		maxAge = 9999
	}
	users := "*"
	if len(s.Users) > 0 {
		users = strings.Join(s.Users, ",")
	}

	fields := []searchField{
		{"advanced", "1"},
		{"brd", strings.Join(ids, ",")},
		{"sort", string(sort)},
		{"sort_dir", string(order)},
		{"search", s.Query},
		{"searchtype", strconv.Itoa(int(match))},
		{"userspec", users},
		{"minage", strconv.Itoa(s.MinAge)},
		{"maxage", strconv.Itoa(maxAge)},
	}
	if s.Complete {
		fields = append(fields, searchField{"show_complete", ""})
	}
	if s.SubjectOnly {
		fields = append(fields, searchField{"subject_only", ""})
	}
	return fields
}

// EncodeParams builds the params blob search2 accepts: key|'|value pairs
// joined by |"|, zlib compressed, then base64 with "-", "_" and "." in place
// of "+", "/" and "=".
func (s *Search) EncodeParams() (string, error) {
	pairs := make([]string, 0, 11)
	for _, f := range s.fields() {
		pairs = append(pairs, f.key+`|'|`+f.value)
	}

	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write([]byte(strings.Join(pairs, `|"|`))); err != nil {
		return "", err
	}
	if err := zw.Close(); err != nil {
		return "", err
	}
	encoded := base64.StdEncoding.EncodeToString(buf.Bytes())
	return strings.NewReplacer("+", "-", "/", "_", "=", ".").Replace(encoded), nil
}

// Page reads page n (from 1) of the results.
func (s *Search) Page(ctx context.Context, n int) (*Page[*Message], error) {
	if err := requireFields(field{"query", strings.TrimSpace(s.Query) != ""}); err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, fmt.Errorf("search: invalid page %d", n)
	}
	params, err := s.EncodeParams()
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	_, c, err := client(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := c.Search(ctx, params, (n-1)*MessagesPerSearchPage)
	if err != nil {
		return nil, err
	}
	if err := api.CheckErrors(http.MethodGet, resp); err != nil {
		return nil, err
	}
	data, err := parser.ParseSearchPage(resp.Text())
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	checkPage("search", n, data.CurrentPage)
	return convertPage(data, messageFromData), nil
}

// All iterates over every page of results, stopping at the first error.
func (s *Search) All(ctx context.Context) iter.Seq2[*Page[*Message], error] {
	return paginate(ctx, s.Page)
}
