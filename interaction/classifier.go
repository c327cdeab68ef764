package interaction

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Paranoid-AF/codelet"
	"github.com/Paranoid-AF/codelet/editor"
)

// ErrNoHandler is logged when an interaction has no registered handler.
var ErrNoHandler = errors.New("no handler registered")

// FlushInterval is how often buffered navigation keys are dispatched.
const FlushInterval = 100 * time.Millisecond

// minPublishedLines is the line span a mouse selection must exceed to be published.
const minPublishedLines = 2

// Result tells the host whether to drop the raw event.
type Result int

const (
	Passthrough Result = iota
	Consumed
)

func (r Result) String() string {
	if r == Consumed {
		return "consumed"
	}
	return "passthrough"
}

// Handler handles one interaction. consumed suppresses the raw event.
type Handler func(in Interaction) (consumed bool, err error)

// Classifier classifies raw events and dispatches the resulting interactions
// synchronously on the caller's goroutine.
type Classifier struct {
	state editor.StateProvider
	ctrl  editor.Controller
	lock  *Lock

	mu       sync.RWMutex
	handlers map[Kind]Handler
	commit   Shortcut
	manual   Shortcut

	navMu    sync.Mutex
	navKey   Key
	navCount int

	mouseMu   sync.Mutex
	mouseDown *codelet.CaretPosition

	logger *slog.Logger
}

// NewClassifier returns a Classifier reading host state through state and
// ctrl. Every key event touches lock.
func NewClassifier(state editor.StateProvider, ctrl editor.Controller, lock *Lock) *Classifier {
	return &Classifier{
		state:    state,
		ctrl:     ctrl,
		lock:     lock,
		handlers: make(map[Kind]Handler),
		logger:   slog.Default(),
	}
}

// SetLogger replaces the default logger.
func (c *Classifier) SetLogger(l *slog.Logger) { c.logger = l }

// On registers h for kind, replacing any previous handler.
func (c *Classifier) On(kind Kind, h Handler) {
	c.mu.Lock()
	c.handlers[kind] = h
	c.mu.Unlock()
}

// SetShortcuts parses and installs the commit and manual completion shortcuts.
func (c *Classifier) SetShortcuts(commit, manual string) error {
	cs, err := ParseShortcut(commit)
	if err != nil {
		return err
	}
	ms, err := ParseShortcut(manual)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.commit, c.manual = cs, ms
	c.mu.Unlock()
	return nil
}

// Handle classifies ev and dispatches it.
func (c *Classifier) Handle(ev RawEvent) Result {
	var consumed bool
	switch ev := ev.(type) {
	case KeyEvent:
		c.lock.Touch()
		consumed = c.handleKey(ev)
	case MouseEvent:
		c.handleMouse(ev)
	case WindowEvent:
		c.handleWindow(ev)
	}
	if consumed {
		return Consumed
	}
	return Passthrough
}

func (c *Classifier) handleKey(ev KeyEvent) bool {
	c.mu.RLock()
	commit, manual := c.commit, c.manual
	c.mu.RUnlock()

	switch {
	case commit.Matches(ev):
		return c.dispatch(Commit{})
	case manual.Matches(ev):
		at, _ := c.editPoint()
		return c.dispatch(EnterInput{At: at, Manual: true})
	}

	if ev.Key.Navigation() {
		c.navMu.Lock()
		c.navKey = ev.Key
		c.navCount++
		c.navMu.Unlock()
		return false
	}

	switch ev.Key {
	case KeyRune:
		return c.handleRune(ev)
	case KeyBackspace:
		at, selected := c.replaceSelection()
		return c.dispatch(DeleteInput{At: at, Selected: selected})
	case KeyTab:
		if ev.Mods != 0 {
			return false
		}
		return c.dispatch(CompletionAccept{})
	case KeyEscape:
		return c.dispatch(CompletionCancel{})
	case KeyEnter:
		if c.ctrl.SuggestionPopupVisible() {
			return c.dispatch(CompletionCancel{})
		}
		at, _ := c.replaceSelection()
		return c.dispatch(EnterInput{At: at})
	case KeyDelete:
		c.replaceSelection()
		return c.dispatch(CompletionCancel{Explicit: true})
	}
	return false
}

func (c *Classifier) handleRune(ev KeyEvent) bool {
	switch ev.Mods {
	case 0, ModShift:
		at, selected := c.replaceSelection()
		return c.dispatch(NormalInput{Char: ev.Rune, At: at, Selected: selected})
	case ModCtrl:
		switch ev.Rune {
		case 's', 'S':
			return c.dispatch(Save{})
		case 'v', 'V':
			at, _ := c.replaceSelection()
			return c.dispatch(Paste{At: at})
		case 'z', 'Z':
			return c.dispatch(Undo{})
		}
	}
	return false
}

// editPoint returns where an edit lands: the selection start when a
// selection exists, otherwise the caret.
func (c *Classifier) editPoint() (codelet.CaretPosition, *codelet.Selection) {
	caret, err := c.state.CaretPosition()
	if err != nil {
		return codelet.CaretPosition{}, nil
	}
	sel, ok, err := c.state.Selection()
	if err != nil || !ok {
		return caret, nil
	}
	return sel.Start, &sel
}

// replaceSelection dispatches SelectionReplace when a selection is about to
// be replaced and returns the edit point.
func (c *Classifier) replaceSelection() (codelet.CaretPosition, bool) {
	at, sel := c.editPoint()
	if sel == nil {
		return at, false
	}
	c.dispatch(SelectionReplace{StartLine: sel.Start.Line, LineDelta: -sel.LineSpan()})
	return at, true
}

func (c *Classifier) handleMouse(ev MouseEvent) {
	if ev.Button != MouseLeft {
		return
	}
	caret, err := c.state.CaretPosition()
	if err != nil {
		return
	}

	c.mouseMu.Lock()
	if ev.Down {
		c.mouseDown = &caret
		c.mouseMu.Unlock()
		return
	}
	from := c.mouseDown
	c.mouseDown = nil
	c.mouseMu.Unlock()
	if from == nil {
		return
	}

	c.dispatch(NavigateWithMouse{From: *from, To: caret, Moved: from.Compare(caret) != 0})
	c.dispatch(c.selectionPublish())
}

// selectionPublish builds the selection to publish after a mouse release.
func (c *Classifier) selectionPublish() SelectionPublish {
	sel, ok, err := c.state.Selection()
	if err != nil || !ok || sel.LineSpan() <= minPublishedLines {
		return SelectionPublish{}
	}
	path, err := c.state.CurrentFilePath()
	if err != nil {
		return SelectionPublish{}
	}

	read := func(line int) (string, bool) {
		s, err := c.state.LineContent(line)
		return s, err == nil
	}
	lines := make([]string, 0, sel.LineSpan()+1)
	for i := sel.Start.Line; i <= sel.End.Line; i++ {
		s, ok := read(i)
		if !ok {
			return SelectionPublish{}
		}
		rs := []rune(s)
		lo, hi := 0, len(rs)
		if i == sel.Start.Line {
			lo = min(sel.Start.Character, hi)
		}
		if i == sel.End.Line {
			hi = min(sel.End.Character, hi)
		}
		lines = append(lines, string(rs[lo:max(lo, hi)]))
	}

	block, _ := EnclosingBlock(read, sel)
	dims, _ := c.state.CaretDimensions()
	return SelectionPublish{
		Path:       path,
		Selection:  sel,
		Content:    strings.Join(lines, "\n"),
		Block:      block,
		Dimensions: dims,
	}
}

func (c *Classifier) handleWindow(ev WindowEvent) {
	if ev.Type == WindowKillFocus || ev.Type == WindowClose {
		c.navMu.Lock()
		c.navCount = 0
		c.navMu.Unlock()
		c.mouseMu.Lock()
		c.mouseDown = nil
		c.mouseMu.Unlock()
	}
	c.dispatch(WindowChange{Event: ev.Type, Window: ev.Window})
}

// Flush dispatches buffered navigation keys as one NavigateWithKey.
func (c *Classifier) Flush() {
	c.navMu.Lock()
	key, count := c.navKey, c.navCount
	c.navCount = 0
	c.navMu.Unlock()
	if count == 0 {
		return
	}
	c.dispatch(NavigateWithKey{Key: key, Count: count})
}

// Run flushes navigation keys every FlushInterval until ctx is done.
func (c *Classifier) Run(ctx context.Context) error {
	ticker := time.NewTicker(FlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.Flush()
		}
	}
}

func (c *Classifier) dispatch(in Interaction) (consumed bool) {
	kind := in.Kind()
	c.mu.RLock()
	h, ok := c.handlers[kind]
	c.mu.RUnlock()
	if !ok {
		c.logger.Warn("interaction dropped", "interaction", kind, "error", ErrNoHandler)
		return false
	}

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("interaction handler panicked", "interaction", kind, "panic", r)
			consumed = false
		}
	}()

	consumed, err := h(in)
	if err != nil {
		c.logger.Warn("interaction handler failed", "interaction", kind, "error", err)
	}
	return consumed
}
