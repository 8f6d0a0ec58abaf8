package report

import (
	"fmt"
	"strings"
	"testing"
)

func TestCursorAdvanceWithinPage(t *testing.T) {
	c := NewCursor(15, 280)

	if c.Page() != 1 {
		t.Fatalf("expected page 1, got %d", c.Page())
	}
	if broke := c.Advance(100); broke {
		t.Error("advance within page should not break")
	}
	if c.Y() != 115 {
		t.Errorf("expected y=115, got %f", c.Y())
	}
	if c.Page() != 1 {
		t.Errorf("expected page 1, got %d", c.Page())
	}
}

func TestCursorAdvanceBreaksAtThreshold(t *testing.T) {
	c := NewCursor(15, 280)
	c.Advance(200)

	// 215 + 100 crosses the 280 threshold
	if broke := c.Advance(100); !broke {
		t.Error("expected page break")
	}
	if c.Page() != 2 {
		t.Errorf("expected page 2, got %d", c.Page())
	}
	if c.Y() != 115 {
		t.Errorf("expected y reset to top plus height (115), got %f", c.Y())
	}
}

func TestCursorFits(t *testing.T) {
	c := NewCursor(15, 280)
	if !c.Fits(265) {
		t.Error("block ending exactly at threshold should fit")
	}
	if c.Fits(266) {
		t.Error("block crossing threshold should not fit")
	}
}

func TestCursorBreak(t *testing.T) {
	c := NewCursor(15, 280)
	c.Advance(50)
	c.Break()

	if c.Page() != 2 {
		t.Errorf("expected page 2, got %d", c.Page())
	}
	if c.Y() != 15 {
		t.Errorf("expected y reset to 15, got %f", c.Y())
	}
}

func TestPaginateLines(t *testing.T) {
	lines := make([]string, 120)
	for i := range lines {
		lines[i] = fmt.Sprintf("line %d", i+1)
	}

	pages := PaginateLines(lines, 50)
	if len(pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(pages))
	}
	if len(pages[0]) != 50 || len(pages[1]) != 50 || len(pages[2]) != 20 {
		t.Errorf("expected page sizes 50/50/20, got %d/%d/%d",
			len(pages[0]), len(pages[1]), len(pages[2]))
	}
	if pages[2][19] != "line 120" {
		t.Errorf("expected last line to be 'line 120', got %q", pages[2][19])
	}
}

func TestPaginateLinesEdgeCases(t *testing.T) {
	if pages := PaginateLines(nil, 50); pages != nil {
		t.Errorf("expected nil for empty input, got %v", pages)
	}
	if pages := PaginateLines([]string{"a"}, 0); pages != nil {
		t.Errorf("expected nil for zero capacity, got %v", pages)
	}
	if pages := PaginateLines([]string{"a", "b"}, 5); len(pages) != 1 || len(pages[0]) != 2 {
		t.Errorf("expected single short page, got %v", pages)
	}
}

func TestTruncateLine(t *testing.T) {
	tests := []struct {
		line     string
		width    int
		expected string
	}{
		{"short", 10, "short"},
		{"exactly ten chars!", 18, "exactly ten chars!"},
		{"this line is too long", 10, "this line…"},
		{"", 10, ""},
		{"abc", 1, "…"},
	}

	for _, tt := range tests {
		if got := TruncateLine(tt.line, tt.width); got != tt.expected {
			t.Errorf("TruncateLine(%q, %d) = %q, want %q", tt.line, tt.width, got, tt.expected)
		}
	}
}

func TestSplitCodeLines(t *testing.T) {
	lines := SplitCodeLines("a\r\nb\nc")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if strings.Join(lines, "|") != "a|b|c" {
		t.Errorf("unexpected lines: %v", lines)
	}
}
