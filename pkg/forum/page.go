package forum

import (
	"context"
	"iter"

	"github.com/tbgers/tbgclient/internal/logging"
	"github.com/tbgers/tbgclient/pkg/api"
	"github.com/tbgers/tbgclient/pkg/parser"
	"github.com/tbgers/tbgclient/pkg/session"
)

// Page is one page of a paginated listing.
type Page[T any] struct {
	Hierarchy   []parser.Crumb `json:"hierarchy"`
	CurrentPage int            `json:"currentPage"`
	TotalPages  int            `json:"totalPages"`
	Contents    []T            `json:"contents"`
}

// Last reports whether p is the final page.
func (p *Page[T]) Last() bool {
	return p.CurrentPage >= p.TotalPages
}

// All iterates over the contents of p.
func (p *Page[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, v := range p.Contents {
			if !yield(v) {
				return
			}
		}
	}
}

func convertPage[D, T any](data *parser.PageData[D], conv func(D) T) *Page[T] {
	page := &Page[T]{
		Hierarchy:   data.Hierarchy,
		CurrentPage: data.CurrentPage,
		TotalPages:  data.TotalPages,
		Contents:    make([]T, 0, len(data.Contents)),
	}
	for _, d := range data.Contents {
		page.Contents = append(page.Contents, conv(d))
	}
	return page
}

// paginate yields pages 1, 2, ... until the last one or the first error.
func paginate[T any](ctx context.Context, get func(context.Context, int) (*Page[T], error)) iter.Seq2[*Page[T], error] {
	return func(yield func(*Page[T], error) bool) {
		for n := 1; ; n++ {
			page, err := get(ctx, n)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(page, nil) || page.Last() {
				return
			}
		}
	}
}

func checkPage(kind string, want, got int) {
	if want != got {
		logging.Warn().Str("kind", kind).Int("expected", want).Int("got", got).Msg("Unexpected page")
	}
}

// client resolves the session for ctx.
func client(ctx context.Context) (*session.Session, *api.Client, error) {
	s, err := session.Current(ctx)
	if err != nil {
		return nil, nil, err
	}
	return s, s.Client(), nil
}
