package commands

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/tbgers/tbgclient/pkg/forum"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	nameColor   = color.New(color.FgGreen)
	dimColor    = color.New(color.Faint)
)

const dateLayout = "Jan 02, 2006 15:04"

// Message body formats accepted by --format.
const (
	formatHTML     = "html"
	formatMarkdown = "markdown"
	formatText     = "text"
)

func checkFormat(format string) error {
	switch format {
	case formatHTML, formatMarkdown, formatText:
		return nil
	}
	return fmt.Errorf("unknown format %q (want html, markdown or text)", format)
}

func body(m *forum.Message, format string) (string, error) {
	switch format {
	case formatHTML:
		return m.Content, nil
	case formatText:
		return m.PlainText(), nil
	}
	return m.Markdown()
}

func userName(u *forum.User) string {
	if u == nil || u.Name == "" {
		return "(guest)"
	}
	return u.Name
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "?"
	}
	return t.Format(dateLayout)
}

func printMessage(w io.Writer, m *forum.Message, format string) error {
	if jsonOut {
		return printJSON(w, m)
	}
	text, err := body(m, format)
	if err != nil {
		return err
	}
	headerColor.Fprintf(w, "#%d %s\n", m.MID, m.Subject)
	nameColor.Fprint(w, userName(m.User))
	dimColor.Fprintf(w, "  %s", formatDate(m.Date))
	if m.Edited != "" {
		dimColor.Fprintf(w, "  (edited %s)", m.Edited)
	}
	fmt.Fprintf(w, "\n\n%s\n\n", strings.TrimSpace(text))
	return nil
}

func printPageHeader[T any](w io.Writer, title string, p *forum.Page[T]) {
	if len(p.Hierarchy) > 0 {
		names := make([]string, 0, len(p.Hierarchy))
		for _, c := range p.Hierarchy {
			names = append(names, c.Name)
		}
		dimColor.Fprintln(w, strings.Join(names, " > "))
	}
	headerColor.Fprintf(w, "%s (page %d of %d)\n\n", title, p.CurrentPage, p.TotalPages)
}

func printMessages(w io.Writer, title string, p *forum.Page[*forum.Message], format string) error {
	if jsonOut {
		return printJSON(w, p)
	}
	printPageHeader(w, title, p)
	for m := range p.All() {
		if err := printMessage(w, m, format); err != nil {
			return err
		}
	}
	return nil
}

func printUser(w io.Writer, u *forum.User) error {
	if jsonOut {
		return printJSON(w, u)
	}
	headerColor.Fprintf(w, "%s (#%d)\n", u.Name, u.UID)
	row := func(label, value string) {
		if value != "" {
			fmt.Fprintf(w, "  %-10s %s\n", label+":", value)
		}
	}
	row("Group", string(u.Group))
	row("Posts", fmt.Sprint(u.Posts))
	row("Name", u.RealName)
	row("Gender", u.Gender)
	row("Location", u.Location)
	row("Website", u.Website)
	row("Email", u.Email)
	row("Blurb", u.Blurb)
	keys := make([]string, 0, len(u.Social))
	for k := range u.Social {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		row(k, u.Social[k])
	}
	return nil
}

func printAlerts(w io.Writer, p *forum.Page[*forum.Alert]) error {
	if jsonOut {
		return printJSON(w, p)
	}
	headerColor.Fprintf(w, "Alerts (page %d of %d)\n\n", p.CurrentPage, p.TotalPages)
	for a := range p.All() {
		marker := " "
		if a.Unread {
			marker = "*"
		}
		fmt.Fprintf(w, "%s ", marker)
		dimColor.Fprintf(w, "%s  ", formatDate(a.Date))
		fmt.Fprintf(w, "[%s] %s", a.Kind, a.Text)
		switch {
		case a.Message != nil:
			dimColor.Fprintf(w, "  (msg %d)", a.Message.MID)
		case a.Topic != nil:
			dimColor.Fprintf(w, "  (topic %d)", a.Topic.TID)
		}
		fmt.Fprintln(w)
	}
	return nil
}
