package cli

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/term"
)

const columnGap = 2

// Table renders column-aligned output. Rows are buffered until Flush so that
// column widths account for every row; when stdout is a terminal, columns
// are narrowed to fit and long cells wrap. Empty tables produce no output.
type Table struct {
	out     io.Writer
	width   int
	headers []string
	rows    [][]string
	prefix  string
}

// NewTable creates a table on stdout with the given column headers.
func NewTable(headers ...string) *Table {
	return &Table{
		out:     os.Stdout,
		width:   terminalWidth(),
		headers: headers,
	}
}

// WithWriter redirects the table to w. Output is not width-capped.
func (t *Table) WithWriter(w io.Writer) *Table {
	t.out = w
	t.width = 0
	return t
}

// WithPrefix sets a string prepended to each line (headers, divider, rows).
// Useful for indenting sub-tables within larger output.
func (t *Table) WithPrefix(prefix string) *Table {
	t.prefix = prefix
	return t
}

// Row buffers a row. Missing trailing cells are blank.
func (t *Table) Row(values ...string) {
	row := make([]string, len(t.headers))
	copy(row, values)
	t.rows = append(t.rows, row)
}

// Flush writes the table. If no rows were added, nothing is printed.
func (t *Table) Flush() {
	if len(t.rows) == 0 {
		return
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = visualLen(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			widths[i] = max(widths[i], visualLen(cell))
		}
	}
	if t.width > 0 {
		widths = capWidths(widths, t.headers, t.width, visualLen(t.prefix))
	}

	dividers := make([]string, len(t.headers))
	for i, h := range t.headers {
		dividers[i] = strings.Repeat("-", len(h))
	}
	t.writeLine(t.headers, widths)
	t.writeLine(dividers, widths)

	for _, row := range t.rows {
		wrapped := make([][]string, len(row))
		height := 1
		for i, cell := range row {
			wrapped[i] = wrapCell(cell, widths[i])
			height = max(height, len(wrapped[i]))
		}
		for n := 0; n < height; n++ {
			line := make([]string, len(row))
			for i := range row {
				if n < len(wrapped[i]) {
					line[i] = wrapped[i][n]
				}
			}
			t.writeLine(line, widths)
		}
	}
	t.rows = nil
}

func (t *Table) writeLine(cells []string, widths []int) {
	var b strings.Builder
	b.WriteString(t.prefix)
	for i, cell := range cells {
		b.WriteString(cell)
		if i < len(cells)-1 {
			b.WriteString(strings.Repeat(" ", widths[i]-visualLen(cell)+columnGap))
		}
	}
	fmt.Fprintln(t.out, strings.TrimRight(b.String(), " "))
}

func terminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return 0
	}
	w, _, err := term.GetSize(fd)
	if err != nil {
		return 0
	}
	return w
}

var ansiRE = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// visualLen is the printed width of s, ignoring ANSI color codes.
func visualLen(s string) int {
	return utf8.RuneCountInString(ansiRE.ReplaceAllString(s, ""))
}

// capWidths narrows the widest columns until the table fits termWidth. No
// column goes below its header width.
func capWidths(widths []int, headers []string, termWidth, prefix int) []int {
	out := append([]int(nil), widths...)
	total := prefix + columnGap*(len(out)-1)
	for _, w := range out {
		total += w
	}

	for total > termWidth {
		widest := -1
		for i, w := range out {
			if w > visualLen(headers[i]) && (widest < 0 || w > out[widest]) {
				widest = i
			}
		}
		if widest < 0 {
			break
		}
		out[widest]--
		total--
	}
	return out
}

// wrapCell splits s into lines of at most width. Words longer than width are
// broken. A cell that fits is returned unchanged; a wrapped cell loses its
// color codes.
func wrapCell(s string, width int) []string {
	if width <= 0 || visualLen(s) <= width {
		return []string{s}
	}

	var lines []string
	cur := ""
	for _, word := range strings.Fields(ansiRE.ReplaceAllString(s, "")) {
		for utf8.RuneCountInString(word) > width {
			if cur != "" {
				lines = append(lines, cur)
				cur = ""
			}
			r := []rune(word)
			lines = append(lines, string(r[:width]))
			word = string(r[width:])
		}
		switch {
		case word == "":
		case cur == "":
			cur = word
		case utf8.RuneCountInString(cur)+1+utf8.RuneCountInString(word) <= width:
			cur += " " + word
		default:
			lines = append(lines, cur)
			cur = word
		}
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	return lines
}
