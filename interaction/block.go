package interaction

import (
	"strings"

	"github.com/Paranoid-AF/codelet"
	"github.com/Paranoid-AF/codelet/gather"
)

// blockScanLines bounds how far EnclosingBlock looks above and below a selection.
const blockScanLines = 200

// EnclosingBlock returns the text of the brace block around sel, extended
// upward over a doc comment directly above its opening line. read returns a
// document line and false past the end. ok is false when no enclosing block
// is found within the scan bound.
func EnclosingBlock(read func(line int) (string, bool), sel codelet.Selection) (block string, ok bool) {
	begin, ok := openingLine(read, sel.Start.Line)
	if !ok {
		return "", false
	}
	end, ok := closingLine(read, sel.End.Line)
	if !ok {
		return "", false
	}
	for begin > 0 && begin > sel.Start.Line-blockScanLines {
		s, ok := read(begin - 1)
		if !ok || !gather.IsComment(s) {
			break
		}
		begin--
	}

	lines := make([]string, 0, end-begin+1)
	for i := begin; i <= end; i++ {
		s, _ := read(i)
		lines = append(lines, s)
	}
	return strings.Join(lines, "\n"), true
}

// openingLine scans upward from line for an unmatched "{".
func openingLine(read func(int) (string, bool), line int) (int, bool) {
	depth := 0
	for i := line; i >= 0 && i > line-blockScanLines; i-- {
		s, ok := read(i)
		if !ok {
			return 0, false
		}
		for j := len(s) - 1; j >= 0; j-- {
			switch s[j] {
			case '}':
				depth++
			case '{':
				if depth == 0 {
					return i, true
				}
				depth--
			}
		}
	}
	return 0, false
}

// closingLine scans downward from line for an unmatched "}".
func closingLine(read func(int) (string, bool), line int) (int, bool) {
	depth := 0
	for i := line; i < line+blockScanLines; i++ {
		s, ok := read(i)
		if !ok {
			return 0, false
		}
		for j := 0; j < len(s); j++ {
			switch s[j] {
			case '{':
				depth++
			case '}':
				if depth == 0 {
					return i, true
				}
				depth--
			}
		}
	}
	return 0, false
}
