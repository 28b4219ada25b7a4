package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Printer writes styled components to a writer.
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter creates a Printer; a nil writer means stdout.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{out: w, width: GetTerminalWidth()}
}

// Writer returns the underlying writer.
func (p *Printer) Writer() io.Writer {
	return p.out
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// Newline prints an empty line
func (p *Printer) Newline() {
	_, _ = fmt.Fprintln(p.out)
}

// PrintHeader prints a command banner.
func (p *Printer) PrintHeader(title, command string, params ...Param) {
	h := NewHeader(title, command, params...)
	h.Width = p.width
	p.Println(h.Render())
	p.Newline()
}

// PrintSuccess prints a success box.
func (p *Printer) PrintSuccess(title string, details ...Param) {
	r := NewSuccessResult(title, details...)
	r.Width = p.width
	p.Println(r.Render())
}

// PrintError prints a failure box. A multi-line hint is split into
// troubleshooting lines.
func (p *Printer) PrintError(title string, err error, hint string) {
	var tips []string
	if hint != "" {
		tips = strings.Split(hint, "\n")
	}
	r := NewFailureResult(title, err, tips)
	r.Width = p.width
	p.Println(r.Render())
}

// PrintTable prints rows with columns padded to the widest cell.
func (p *Printer) PrintTable(headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	format := func(cells []string) string {
		parts := make([]string, len(cells))
		for i, c := range cells {
			if i < len(widths) {
				parts[i] = fmt.Sprintf("%-*s", widths[i], c)
			} else {
				parts[i] = c
			}
		}
		return "  " + strings.TrimRight(strings.Join(parts, "  "), " ")
	}

	p.Println(HeaderTitleStyle.UnsetPaddingLeft().Render(format(headers)))
	for _, row := range rows {
		p.Println(format(row))
	}
}
