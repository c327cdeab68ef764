package editor

import (
	"fmt"
	"strings"
	"sync"

	"github.com/Paranoid-AF/codelet"
)

// Memory is an in-memory single-document editor. It implements Editor; the
// remaining methods apply raw edits the way a host would after an input
// event was passed through.
type Memory struct {
	mu        sync.Mutex
	lines     []string
	caret     codelet.CaretPosition
	anchor    *codelet.CaretPosition
	path      string
	window    codelet.WindowHandle
	focused   bool
	clipboard string
	popup     bool
	status    string

	saves   int
	accepts int
	cancels int
}

// NewMemory returns a focused editor for path holding text.
func NewMemory(window codelet.WindowHandle, path, text string) *Memory {
	return &Memory{
		lines:   strings.Split(text, "\n"),
		path:    path,
		window:  window,
		focused: true,
	}
}

var _ Editor = (*Memory)(nil)

func (m *Memory) CaretPosition() (codelet.CaretPosition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.focused {
		return codelet.CaretPosition{}, codelet.ErrNoWindow
	}
	return m.caret, nil
}

func (m *Memory) Selection() (codelet.Selection, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.focused {
		return codelet.Selection{}, false, codelet.ErrNoWindow
	}
	if m.anchor == nil {
		return codelet.Selection{}, false, nil
	}
	sel := codelet.NewSelection(*m.anchor, m.caret)
	if sel.Empty() {
		return codelet.Selection{}, false, nil
	}
	return sel, true, nil
}

func (m *Memory) LineContent(line int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.focused {
		return "", codelet.ErrNoWindow
	}
	if line < 0 || line >= len(m.lines) {
		return "", fmt.Errorf("line %d out of range [0, %d)", line, len(m.lines))
	}
	return m.lines[line], nil
}

func (m *Memory) CurrentFilePath() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.focused {
		return "", codelet.ErrNoWindow
	}
	return m.path, nil
}

func (m *Memory) LineCount() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.focused {
		return 0, codelet.ErrNoWindow
	}
	return len(m.lines), nil
}

// CaretDimensions places the caret on a grid of one cell per rune.
func (m *Memory) CaretDimensions() (codelet.Dimensions, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.focused {
		return codelet.Dimensions{}, codelet.ErrNoWindow
	}
	return codelet.Dimensions{Height: 1, X: m.caret.Character, Y: m.caret.Line}, nil
}

func (m *Memory) ClipboardText() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clipboard, nil
}

// InsertText inserts text at the caret, replacing any selection.
func (m *Memory) InsertText(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.focused {
		return codelet.ErrNoWindow
	}
	m.insert(text)
	return nil
}

func (m *Memory) SendAcceptKeystroke() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.focused {
		return codelet.ErrNoWindow
	}
	m.accepts++
	m.popup = false
	return nil
}

func (m *Memory) SendCancelKeystroke() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.focused {
		return codelet.ErrNoWindow
	}
	m.cancels++
	m.popup = false
	return nil
}

func (m *Memory) SendSaveKeystroke() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.focused {
		return codelet.ErrNoWindow
	}
	m.saves++
	return nil
}

func (m *Memory) CurrentWindow() (codelet.WindowHandle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.window, m.focused
}

func (m *Memory) SuggestionPopupVisible() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.popup
}

func (m *Memory) SetStatusText(text string) {
	m.mu.Lock()
	m.status = text
	m.mu.Unlock()
}

func (m *Memory) ClearStatusText() {
	m.mu.Lock()
	m.status = ""
	m.mu.Unlock()
}

// Status returns the current status text.
func (m *Memory) Status() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Keystrokes returns how many accept, cancel and save keystrokes were sent.
func (m *Memory) Keystrokes() (accepts, cancels, saves int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accepts, m.cancels, m.saves
}

// Text returns the whole document.
func (m *Memory) Text() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return strings.Join(m.lines, "\n")
}

// Focus gives or takes focus from the window.
func (m *Memory) Focus(focused bool) {
	m.mu.Lock()
	m.focused = focused
	m.mu.Unlock()
}

// Open replaces the document, path and window, resetting the caret.
func (m *Memory) Open(window codelet.WindowHandle, path, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.window = window
	m.path = path
	m.lines = strings.Split(text, "\n")
	m.caret = codelet.CaretPosition{}
	m.anchor = nil
	m.focused = true
}

// SetClipboard sets the clipboard text.
func (m *Memory) SetClipboard(text string) {
	m.mu.Lock()
	m.clipboard = text
	m.mu.Unlock()
}

// SetPopup shows or hides the editor's own suggestion popup.
func (m *Memory) SetPopup(visible bool) {
	m.mu.Lock()
	m.popup = visible
	m.mu.Unlock()
}

// SetCaret moves the caret, clamped to the document, and clears the selection.
func (m *Memory) SetCaret(line, character int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.anchor = nil
	m.moveTo(line, character)
	m.caret.MaxCharacter = m.caret.Character
}

// Select selects from the given anchor to the current caret.
func (m *Memory) Select(line, character int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	saved := m.caret
	m.moveTo(line, character)
	anchor := m.caret
	m.caret = saved
	m.anchor = &anchor
}

// MoveCaret moves the caret by dl lines and dc characters. Vertical moves
// keep the sticky column.
func (m *Memory) MoveCaret(dl, dc int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.anchor = nil
	if dl != 0 {
		m.moveTo(m.caret.Line+dl, m.caret.MaxCharacter)
		return
	}
	line, char := m.caret.Line, m.caret.Character+dc
	if char < 0 && line > 0 {
		line--
		char = runeLen(m.lines[line])
	} else if char > runeLen(m.lines[line]) && line < len(m.lines)-1 {
		line++
		char = 0
	}
	m.moveTo(line, char)
	m.caret.MaxCharacter = m.caret.Character
}

// MoveLineEdge moves the caret to the start or end of its line.
func (m *Memory) MoveLineEdge(end bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.anchor = nil
	char := 0
	if end {
		char = runeLen(m.lines[m.caret.Line])
	}
	m.moveTo(m.caret.Line, char)
	m.caret.MaxCharacter = m.caret.Character
}

// TypeRune inserts r at the caret.
func (m *Memory) TypeRune(r rune) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insert(string(r))
}

// Newline splits the caret line.
func (m *Memory) Newline() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insert("\n")
}

// Paste inserts the clipboard at the caret.
func (m *Memory) Paste() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insert(m.clipboard)
}

// Backspace deletes the selection or the character before the caret,
// merging with the previous line at column 0.
func (m *Memory) Backspace() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteSelection() {
		return
	}
	c := m.caret
	switch {
	case c.Character > 0:
		rs := []rune(m.lines[c.Line])
		m.lines[c.Line] = string(rs[:c.Character-1]) + string(rs[c.Character:])
		m.moveTo(c.Line, c.Character-1)
	case c.Line > 0:
		prev := m.lines[c.Line-1]
		m.lines[c.Line-1] = prev + m.lines[c.Line]
		m.lines = append(m.lines[:c.Line], m.lines[c.Line+1:]...)
		m.moveTo(c.Line-1, runeLen(prev))
	}
	m.caret.MaxCharacter = m.caret.Character
}

// Delete deletes the selection or the character after the caret.
func (m *Memory) Delete() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteSelection() {
		return
	}
	c := m.caret
	rs := []rune(m.lines[c.Line])
	switch {
	case c.Character < len(rs):
		m.lines[c.Line] = string(rs[:c.Character]) + string(rs[c.Character+1:])
	case c.Line < len(m.lines)-1:
		m.lines[c.Line] += m.lines[c.Line+1]
		m.lines = append(m.lines[:c.Line+1], m.lines[c.Line+2:]...)
	}
}

// insert replaces the selection with text. m.mu must be held.
func (m *Memory) insert(text string) {
	m.deleteSelection()
	c := m.caret
	rs := []rune(m.lines[c.Line])
	head, tail := string(rs[:c.Character]), string(rs[c.Character:])

	parts := strings.Split(text, "\n")
	parts[0] = head + parts[0]
	last := len(parts) - 1
	endChar := runeLen(parts[last])
	parts[last] += tail

	lines := make([]string, 0, len(m.lines)+last)
	lines = append(lines, m.lines[:c.Line]...)
	lines = append(lines, parts...)
	lines = append(lines, m.lines[c.Line+1:]...)
	m.lines = lines
	m.moveTo(c.Line+last, endChar)
	m.caret.MaxCharacter = m.caret.Character
}

// deleteSelection removes the selected text. m.mu must be held.
func (m *Memory) deleteSelection() bool {
	if m.anchor == nil {
		return false
	}
	sel := codelet.NewSelection(*m.anchor, m.caret)
	m.anchor = nil
	if sel.Empty() {
		return false
	}
	head := string([]rune(m.lines[sel.Start.Line])[:sel.Start.Character])
	tail := string([]rune(m.lines[sel.End.Line])[sel.End.Character:])
	lines := append([]string{}, m.lines[:sel.Start.Line]...)
	lines = append(lines, head+tail)
	lines = append(lines, m.lines[sel.End.Line+1:]...)
	m.lines = lines
	m.moveTo(sel.Start.Line, sel.Start.Character)
	m.caret.MaxCharacter = m.caret.Character
	return true
}

// moveTo sets the caret clamped to the document. m.mu must be held.
func (m *Memory) moveTo(line, character int) {
	line = min(max(line, 0), len(m.lines)-1)
	character = min(max(character, 0), runeLen(m.lines[line]))
	m.caret.Line = line
	m.caret.Character = character
}

func runeLen(s string) int { return len([]rune(s)) }
