// Package report renders stored audit results into paginated PDF documents.
package report

import (
	"strings"
)

// Cursor tracks the vertical drawing position across pages. It owns the page
// index and y-offset so the pagination logic is testable independent of the
// drawing library.
type Cursor struct {
	page   int
	y      float64
	top    float64
	bottom float64
}

// NewCursor creates a cursor on page 1 at the top offset
func NewCursor(top, bottom float64) *Cursor {
	return &Cursor{page: 1, y: top, top: top, bottom: bottom}
}

// Page returns the current 1-based page index
func (c *Cursor) Page() int {
	return c.page
}

// Y returns the current vertical offset on the page
func (c *Cursor) Y() float64 {
	return c.y
}

// Fits reports whether a block of the given height fits on the current page
func (c *Cursor) Fits(height float64) bool {
	return c.y+height <= c.bottom
}

// Advance moves the cursor down by height, breaking to a new page first if
// the block would cross the page-bottom threshold. Returns true when a page
// break occurred.
func (c *Cursor) Advance(height float64) bool {
	if c.Fits(height) {
		c.y += height
		return false
	}
	c.Break()
	c.y += height
	return true
}

// Break forces a page break, resetting the offset to the top of a new page
func (c *Cursor) Break() {
	c.page++
	c.y = c.top
}

// PaginateLines splits lines into pages of at most perPage lines each
func PaginateLines(lines []string, perPage int) [][]string {
	if perPage <= 0 || len(lines) == 0 {
		return nil
	}

	pages := make([][]string, 0, (len(lines)+perPage-1)/perPage)
	for start := 0; start < len(lines); start += perPage {
		end := start + perPage
		if end > len(lines) {
			end = len(lines)
		}
		pages = append(pages, lines[start:end])
	}
	return pages
}

// TruncateLine clamps a line to width runes, replacing the tail with an
// ellipsis. The result is for display only and is deliberately lossy.
func TruncateLine(line string, width int) string {
	if width <= 0 {
		return ""
	}
	runes := []rune(line)
	if len(runes) <= width {
		return line
	}
	if width == 1 {
		return "…"
	}
	return string(runes[:width-1]) + "…"
}

// SplitCodeLines normalizes line endings and splits source text into lines
func SplitCodeLines(code string) []string {
	code = strings.ReplaceAll(code, "\r\n", "\n")
	return strings.Split(code, "\n")
}
