package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
)

var (
	addColor = color.New(color.FgGreen)
	delColor = color.New(color.FgRed)
)

// sourceDiff is a line diff between two versions of a message source.
type sourceDiff struct {
	diffs     []diffmatchpatch.Diff
	additions int
	deletions int
}

func diffSource(before, after string) sourceDiff {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	d := sourceDiff{diffs: diffs}
	for _, part := range diffs {
		switch part.Type {
		case diffmatchpatch.DiffInsert:
			d.additions += len(splitLines(part.Text))
		case diffmatchpatch.DiffDelete:
			d.deletions += len(splitLines(part.Text))
		}
	}
	return d
}

func (d sourceDiff) empty() bool { return d.additions == 0 && d.deletions == 0 }

// print writes the diff with "+", "-" and " " line prefixes.
func (d sourceDiff) print(w io.Writer) {
	for _, part := range d.diffs {
		for _, line := range splitLines(part.Text) {
			switch part.Type {
			case diffmatchpatch.DiffInsert:
				addColor.Fprintf(w, "+%s\n", line)
			case diffmatchpatch.DiffDelete:
				delColor.Fprintf(w, "-%s\n", line)
			default:
				fmt.Fprintf(w, " %s\n", line)
			}
		}
	}
	dimColor.Fprintf(w, "%d addition(s), %d deletion(s)\n", d.additions, d.deletions)
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}
