package main

import (
	"fmt"
	"strings"

	"github.com/Paranoid-AF/codelet"
)

const (
	gutterWidth = 5
	tabWidth    = 4
)

// view is everything drawn in one frame.
type view struct {
	path      string
	lines     []string
	caret     codelet.CaretPosition
	pending   string
	status    string
	connected bool
}

// render draws v into a width x height screen: the document around the
// caret, the pending suggestion dimmed after the caret and a status bar.
func render(v view, width, height int) string {
	rows := max(height-1, 1)
	top := max(v.caret.Line-rows/2, 0)
	if top+rows > len(v.lines) {
		top = max(len(v.lines)-rows, 0)
	}
	textWidth := max(width-gutterWidth, 1)

	var b strings.Builder
	b.WriteString("\x1b[H")
	for i := 0; i < rows; i++ {
		n := top + i
		b.WriteString("\x1b[K")
		if n < len(v.lines) {
			line := expandTabs(v.lines[n])
			if n == v.caret.Line && v.pending != "" {
				col := displayColumn(v.lines[n], v.caret.Character)
				ghost, _, more := strings.Cut(v.pending, "\n")
				if more {
					ghost += "…"
				}
				head, tail := splitAt(line, col)
				line = head + "\x1b[2m" + expandTabs(ghost) + "\x1b[0m" + tail
			}
			fmt.Fprintf(&b, "\x1b[90m%4d\x1b[0m %s", n+1, clip(line, textWidth))
		} else {
			b.WriteString("\x1b[90m   ~\x1b[0m")
		}
		b.WriteString("\r\n")
	}

	backend := "offline"
	if v.connected {
		backend = "online"
	}
	bar := fmt.Sprintf(" %s  %d:%d  %s  %s", v.path, v.caret.Line+1, v.caret.Character+1, backend, v.status)
	fmt.Fprintf(&b, "\x1b[K\x1b[7m%s\x1b[0m", padRight(clip(bar, width), width))

	row := v.caret.Line - top + 1
	col := gutterWidth + displayColumn(lineAt(v.lines, v.caret.Line), v.caret.Character) + 1
	fmt.Fprintf(&b, "\x1b[%d;%dH", row, min(col, width))
	return b.String()
}

func lineAt(lines []string, n int) string {
	if n < 0 || n >= len(lines) {
		return ""
	}
	return lines[n]
}

func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", strings.Repeat(" ", tabWidth))
}

// displayColumn is the screen column of rune index char in line.
func displayColumn(line string, char int) int {
	col := 0
	for i, r := range []rune(line) {
		if i >= char {
			break
		}
		if r == '\t' {
			col += tabWidth
		} else {
			col++
		}
	}
	return col
}

// splitAt splits s at rune index n.
func splitAt(s string, n int) (string, string) {
	rs := []rune(s)
	n = min(max(n, 0), len(rs))
	return string(rs[:n]), string(rs[n:])
}

// clip truncates s to n visible runes. Escape sequences are not counted.
func clip(s string, n int) string {
	var b strings.Builder
	visible := 0
	inEscape := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			inEscape = true
		case inEscape:
			if r >= '@' && r <= '~' && r != '[' {
				inEscape = false
			}
		case visible >= n:
			continue
		default:
			visible++
		}
		b.WriteRune(r)
	}
	return b.String()
}

func padRight(s string, n int) string {
	if w := len([]rune(s)); w < n {
		return s + strings.Repeat(" ", n-w)
	}
	return s
}
