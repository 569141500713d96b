// Package parser extracts forum data from SMF 2.1 pages.
//
// Functions take the raw document (or a goquery selection of an already
// parsed page) and return plain data structs; turning them into forum
// entities is the forum package's job.
package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// DateFormat is the SMF timestamp layout used on post headers and alerts.
const DateFormat = "Jan 02, 2006, 03:04:05 PM"

var (
	// ErrFormCount is returned by HiddenInputs when the page does not have
	// exactly one form besides the search box.
	ErrFormCount = errors.New("expected exactly one form after the search form")
	// ErrMissingElement is returned when a required page element is absent.
	ErrMissingElement = errors.New("missing page element")
)

var (
	nonDigits  = regexp.MustCompile(`[^\d]`)
	msgID      = regexp.MustCompile(`^msg(\d+)$`)
	topicParam = regexp.MustCompile(`topic=(\d+)`)
	msgParam   = regexp.MustCompile(`msg=?(\d+)`)
	userParam  = regexp.MustCompile(`\bu=(\d+)`)
)

// now is replaced in tests to pin relative dates.
var now = time.Now

// PageError is an error message rendered by the forum itself.
type PageError struct {
	// Title is the heading ("An Error Has Occurred!") or the errors list caption.
	Title   string
	Message string
	// ID is the element id SMF attaches to the message, if any.
	ID string
}

func (e *PageError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s: \n%s\n(%s)", e.Title, e.Message, e.ID)
	}
	return fmt.Sprintf("%s: \n%s", e.Title, e.Message)
}

// Parse parses an HTML document.
func Parse(document string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(document))
}

// ParseInteger keeps only the digits of text. ok is false when there are none.
func ParseInteger(text string) (n int, ok bool) {
	digits := nonDigits.ReplaceAllString(text, "")
	if digits == "" {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseDate parses an SMF timestamp, including the "Today at" and
// "Yesterday at" forms used for recent posts. ok is false if text is not a date.
func ParseDate(text string) (t time.Time, ok bool) {
	text = strings.TrimSpace(text)
	if t, err := time.ParseInLocation(DateFormat, text, time.Local); err == nil {
		return t, true
	}

	var day time.Time
	switch {
	case strings.HasPrefix(text, "Today at "):
		day = now()
		text = strings.TrimPrefix(text, "Today at ")
	case strings.HasPrefix(text, "Yesterday at "):
		day = now().AddDate(0, 0, -1)
		text = strings.TrimPrefix(text, "Yesterday at ")
	default:
		return time.Time{}, false
	}

	clock, err := time.ParseInLocation("03:04:05 PM", text, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	y, m, d := day.Date()
	return time.Date(y, m, d, clock.Hour(), clock.Minute(), clock.Second(), 0, time.Local), true
}

// CheckErrors returns a *PageError when the document is an SMF error page
// (#fatal_error) or a form that was rejected with an error list (#errors).
func CheckErrors(document string) error {
	doc, err := Parse(document)
	if err != nil {
		return err
	}

	if fatal := doc.Find("div#fatal_error").First(); fatal.Length() > 0 {
		title := strings.TrimSpace(fatal.Find("h3").First().Text())
		if title == "" {
			title = "An error has occurred"
		}
		msg := fatal.Find("div.windowbg > div").First()
		if msg.Length() == 0 {
			msg = fatal.Find("div.windowbg").First()
		}
		id, _ := msg.Attr("id")
		return &PageError{
			Title:   title,
			Message: strings.TrimSpace(msg.Text()),
			ID:      id,
		}
	}

	if list := doc.Find("div#errors").First(); list.Length() > 0 {
		title := strings.TrimSpace(list.Find("dt").First().Text())
		var lines []string
		list.Find("dd").First().Contents().Each(func(_ int, s *goquery.Selection) {
			if goquery.NodeName(s) == "br" {
				return
			}
			if line := strings.TrimSpace(s.Text()); line != "" {
				lines = append(lines, line)
			}
		})
		return &PageError{Title: title, Message: strings.Join(lines, "\n")}
	}

	return nil
}

// HiddenInputs returns the hidden inputs (nonce values) of the page's form.
// The first form on every SMF page is the search box and is skipped.
func HiddenInputs(document string) (map[string]string, error) {
	doc, err := Parse(document)
	if err != nil {
		return nil, err
	}

	forms := doc.Find("form")
	if forms.Length() != 2 {
		return nil, fmt.Errorf("%w: found %d", ErrFormCount, forms.Length()-1)
	}

	nonce := make(map[string]string)
	forms.Eq(1).Find(`input[type="hidden"]`).Each(func(_ int, s *goquery.Selection) {
		name, ok := s.Attr("name")
		if !ok {
			return
		}
		nonce[name] = s.AttrOr("value", "")
	})
	return nonce, nil
}

// InputValue returns the value attribute of the first input with the given name.
func InputValue(document, name string) (string, bool) {
	doc, err := Parse(document)
	if err != nil {
		return "", false
	}
	return doc.Find(fmt.Sprintf(`input[name=%q]`, name)).First().Attr("value")
}

// Crumb is one entry of the navigation breadcrumb.
type Crumb struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// PageData is a paginated listing.
type PageData[T any] struct {
	Hierarchy   []Crumb `json:"hierarchy"`
	CurrentPage int     `json:"currentPage"`
	TotalPages  int     `json:"totalPages"`
	Contents    []T     `json:"contents"`
}

// ContentParser parses the #content_section of a page.
type ContentParser[T any] func(content *goquery.Selection) ([]T, error)

// ParsePage parses breadcrumbs and pagination, delegating the listing
// itself to parse.
func ParsePage[T any](document string, parse ContentParser[T]) (*PageData[T], error) {
	doc, err := Parse(document)
	if err != nil {
		return nil, err
	}
	return parsePageDoc(doc, parse)
}

func parsePageDoc[T any](doc *goquery.Document, parse ContentParser[T]) (*PageData[T], error) {
	page := &PageData[T]{CurrentPage: 1, TotalPages: 1}

	doc.Find("div.navigate_section li").Each(func(_ int, li *goquery.Selection) {
		page.Hierarchy = append(page.Hierarchy, Crumb{
			Name: strings.Trim(li.Text(), "► \n\t"),
			URL:  li.Find("a").Last().AttrOr("href", ""),
		})
	})

	content := doc.Find("#content_section").First()
	if content.Length() == 0 {
		return nil, fmt.Errorf("%w: #content_section", ErrMissingElement)
	}

	if links := content.Find(`div[class*="pagelinks"]`).First(); links.Length() > 0 {
		var numbers []int
		links.Contents().Each(func(_ int, s *goquery.Selection) {
			if n, ok := ParseInteger(s.Text()); ok {
				numbers = append(numbers, n)
			}
		})
		if len(numbers) > 0 {
			page.TotalPages = numbers[len(numbers)-1]
		}
		if n, err := strconv.Atoi(strings.TrimSpace(links.Find("span.current_page").First().Text())); err == nil {
			page.CurrentPage = n
		}
		if page.TotalPages < page.CurrentPage {
			page.TotalPages = page.CurrentPage
		}
	}

	contents, err := parse(content)
	if err != nil {
		return nil, err
	}
	page.Contents = contents
	return page, nil
}

// idFrom returns the first capture of re in s.
func idFrom(re *regexp.Regexp, s string) int {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

// afterLabel strips a leading "Label:" from text.
func afterLabel(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.Index(text, ":"); i >= 0 {
		return strings.TrimSpace(text[i+1:])
	}
	return text
}

func innerHTML(s *goquery.Selection) string {
	html, err := s.Html()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(html)
}
