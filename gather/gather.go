// Package gather assembles generation requests from editor state: the text
// around the caret, recently visited files and symbols named by the comment
// block above the caret.
package gather

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Paranoid-AF/codelet"
	"github.com/Paranoid-AF/codelet/editor"
)

// docScanLines bounds how far DocBlock looks above the caret.
const docScanLines = 200

// SymbolProvider resolves symbols mentioned in a piece of text.
type SymbolProvider interface {
	Symbols(ctx context.Context, text, path string) ([]codelet.Symbol, error)
	// UpdateIndexRoot re-indexes the project at path in the background.
	UpdateIndexRoot(path string)
}

// Locker runs fn with a consistent view of editor state.
type Locker interface {
	Snapshot(ctx context.Context, fn func() error) error
}

// Limits bounds what a request carries.
type Limits struct {
	PrefixLines     int
	SuffixLines     int
	RecentFileCount int
}

// Gatherer builds generation requests.
type Gatherer struct {
	state   editor.StateProvider
	lock    Locker
	symbols SymbolProvider
	recent  *RecentFiles
	now     func() time.Time
}

// NewGatherer returns a Gatherer. symbols may be nil.
func NewGatherer(state editor.StateProvider, lock Locker, symbols SymbolProvider, recent *RecentFiles) *Gatherer {
	return &Gatherer{
		state:   state,
		lock:    lock,
		symbols: symbols,
		recent:  recent,
		now:     time.Now,
	}
}

// snapshot is the editor state read under the interaction lock.
type snapshot struct {
	caret   codelet.CaretPosition
	path    string
	context codelet.Context
	doc     string
}

// Generate builds a CompletionGenerate for the caret.
func (g *Gatherer) Generate(ctx context.Context, lim Limits) (*codelet.CompletionGenerate, error) {
	start := g.now()
	var snap snapshot
	err := g.lock.Snapshot(ctx, func() error {
		var err error
		snap, err = g.read(lim)
		return err
	})
	if err != nil {
		return nil, err
	}
	return g.complete(ctx, start, snap, lim), nil
}

// Paste builds an EditorPaste carrying the clipboard text.
func (g *Gatherer) Paste(ctx context.Context, lim Limits) (*codelet.EditorPaste, error) {
	start := g.now()
	var (
		snap snapshot
		clip string
	)
	err := g.lock.Snapshot(ctx, func() error {
		var err error
		if snap, err = g.read(lim); err != nil {
			return err
		}
		clip, err = g.state.ClipboardText()
		return err
	})
	if err != nil {
		return nil, err
	}
	return &codelet.EditorPaste{
		CompletionGenerate: *g.complete(ctx, start, snap, lim),
		Clipboard:          clip,
	}, nil
}

func (g *Gatherer) read(lim Limits) (snapshot, error) {
	caret, err := g.state.CaretPosition()
	if err != nil {
		return snapshot{}, err
	}
	path, err := g.state.CurrentFilePath()
	if err != nil {
		return snapshot{}, err
	}
	count, err := g.state.LineCount()
	if err != nil {
		return snapshot{}, err
	}
	read := func(line int) (string, bool) {
		if line < 0 || line >= count {
			return "", false
		}
		s, err := g.state.LineContent(line)
		return s, err == nil
	}

	cur, ok := read(caret.Line)
	if !ok {
		return snapshot{}, fmt.Errorf("read caret line %d", caret.Line)
	}
	c := Surrounding(read, caret, cur, lim.PrefixLines, lim.SuffixLines)
	if IsShell(path) {
		c.Prefix = RedactText(c.Prefix)
		c.Suffix = RedactText(c.Suffix)
	}
	return snapshot{
		caret:   caret,
		path:    path,
		context: c,
		doc:     DocBlock(read, caret.Line),
	}, nil
}

// complete adds recent files and symbols to a snapshot.
func (g *Gatherer) complete(ctx context.Context, start time.Time, snap snapshot, lim Limits) *codelet.CompletionGenerate {
	req := &codelet.CompletionGenerate{
		Caret:       snap.caret,
		Path:        snap.path,
		Context:     snap.context,
		RecentFiles: []string{},
		Symbols:     []codelet.Symbol{},
	}
	req.Timing.Start = start.UnixMilli()
	req.Timing.Context = g.now().UnixMilli()

	if g.recent != nil {
		req.RecentFiles = g.recent.Top(lim.RecentFileCount, snap.path)
	}
	req.Timing.RecentFiles = g.now().UnixMilli()

	if g.symbols != nil && snap.doc != "" {
		syms, err := g.symbols.Symbols(ctx, snap.doc, snap.path)
		if err != nil {
			slog.Debug("symbol lookup failed", "path", snap.path, "error", err)
		} else if syms != nil {
			req.Symbols = syms
		}
	}
	req.Timing.Symbol = g.now().UnixMilli()
	req.Timing.End = g.now().UnixMilli()
	return req
}

// Surrounding splits the text around caret into prefix, infix and suffix.
// cur is the caret line. Prefix holds up to prefixLines lines above it, each
// newline-terminated; Suffix holds the rest of the caret line followed by up
// to suffixLines lines below it.
func Surrounding(read func(int) (string, bool), caret codelet.CaretPosition, cur string, prefixLines, suffixLines int) codelet.Context {
	var prefix strings.Builder
	for i := max(caret.Line-max(prefixLines, 0), 0); i < caret.Line; i++ {
		s, _ := read(i)
		prefix.WriteString(s)
		prefix.WriteByte('\n')
	}

	rs := []rune(cur)
	at := min(max(caret.Character, 0), len(rs))

	var suffix strings.Builder
	suffix.WriteString(string(rs[at:]))
	for i := caret.Line + 1; i <= caret.Line+suffixLines; i++ {
		s, ok := read(i)
		if !ok {
			break
		}
		suffix.WriteByte('\n')
		suffix.WriteString(s)
	}

	return codelet.Context{
		Prefix: prefix.String(),
		Infix:  string(rs[:at]),
		Suffix: suffix.String(),
	}
}

// DocBlock returns the comment block ending directly above line, including
// line itself when it is a comment.
func DocBlock(read func(int) (string, bool), line int) string {
	end := line
	if s, ok := read(line); !ok || !IsComment(s) {
		end = line - 1
	}
	begin := end + 1
	for i := end; i >= 0 && i > line-docScanLines; i-- {
		s, ok := read(i)
		if !ok || !IsComment(s) {
			break
		}
		begin = i
	}
	if begin > end {
		return ""
	}
	lines := make([]string, 0, end-begin+1)
	for i := begin; i <= end; i++ {
		s, _ := read(i)
		lines = append(lines, strings.TrimSpace(s))
	}
	return strings.Join(lines, "\n")
}

// IsComment reports whether s is a line of a comment block.
func IsComment(s string) bool {
	s = strings.TrimSpace(s)
	for _, p := range []string{"//", "/*", "*", "#"} {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
