package editor

import (
	"errors"
	"testing"

	"github.com/Paranoid-AF/codelet"
)

func newTestMemory(t *testing.T, text string) *Memory {
	t.Helper()
	return NewMemory(1, "/src/main.go", text)
}

func caret(t *testing.T, m *Memory) codelet.CaretPosition {
	t.Helper()
	c, err := m.CaretPosition()
	if err != nil {
		t.Fatalf("CaretPosition: %v", err)
	}
	return c
}

func TestMemoryTypeAndNewline(t *testing.T) {
	m := newTestMemory(t, "")
	for _, r := range "ab" {
		m.TypeRune(r)
	}
	m.Newline()
	m.TypeRune('c')

	if got := m.Text(); got != "ab\nc" {
		t.Errorf("Text = %q", got)
	}
	if c := caret(t, m); c.Line != 1 || c.Character != 1 {
		t.Errorf("caret = %+v, want 1:1", c)
	}
}

func TestMemoryBackspaceMergesLines(t *testing.T) {
	m := newTestMemory(t, "foo\nbar")
	m.SetCaret(1, 0)
	m.Backspace()

	if got := m.Text(); got != "foobar" {
		t.Errorf("Text = %q", got)
	}
	if c := caret(t, m); c.Line != 0 || c.Character != 3 {
		t.Errorf("caret = %+v, want 0:3", c)
	}
}

func TestMemoryDeleteJoinsNextLine(t *testing.T) {
	m := newTestMemory(t, "ab\ncd")
	m.SetCaret(0, 2)
	m.Delete()
	if got := m.Text(); got != "abcd" {
		t.Errorf("Text = %q", got)
	}
}

func TestMemoryPasteMultiline(t *testing.T) {
	m := newTestMemory(t, "x()")
	m.SetCaret(0, 2)
	m.SetClipboard("1,\n2")
	m.Paste()

	if got := m.Text(); got != "x(1,\n2)" {
		t.Errorf("Text = %q", got)
	}
	if c := caret(t, m); c.Line != 1 || c.Character != 1 {
		t.Errorf("caret = %+v, want 1:1", c)
	}
}

func TestMemorySelectionReplace(t *testing.T) {
	m := newTestMemory(t, "one\ntwo\nthree")
	m.SetCaret(2, 2)
	m.Select(0, 1)

	sel, ok, err := m.Selection()
	if err != nil || !ok {
		t.Fatalf("Selection = %v, %v", ok, err)
	}
	if sel.Start.Line != 0 || sel.End.Line != 2 {
		t.Errorf("selection = %+v", sel)
	}

	m.TypeRune('X')
	if got := m.Text(); got != "oXree" {
		t.Errorf("Text = %q", got)
	}
	if _, ok, _ := m.Selection(); ok {
		t.Error("selection should be cleared after replace")
	}
}

func TestMemoryStickyColumn(t *testing.T) {
	m := newTestMemory(t, "long line\nx\nanother line")
	m.SetCaret(0, 7)
	m.MoveCaret(1, 0)
	if c := caret(t, m); c.Character != 1 {
		t.Errorf("clamped character = %d, want 1", c.Character)
	}
	m.MoveCaret(1, 0)
	if c := caret(t, m); c.Character != 7 {
		t.Errorf("sticky character = %d, want 7", c.Character)
	}
}

func TestMemoryUnfocused(t *testing.T) {
	m := newTestMemory(t, "a")
	m.Focus(false)

	if _, err := m.CaretPosition(); !errors.Is(err, codelet.ErrNoWindow) {
		t.Errorf("CaretPosition err = %v, want ErrNoWindow", err)
	}
	if _, ok := m.CurrentWindow(); ok {
		t.Error("CurrentWindow should report no focus")
	}
	if err := m.InsertText("b"); !errors.Is(err, codelet.ErrNoWindow) {
		t.Errorf("InsertText err = %v", err)
	}
}

func TestMemoryKeystrokesAndStatus(t *testing.T) {
	m := newTestMemory(t, "")
	m.SetPopup(true)
	if err := m.SendCancelKeystroke(); err != nil {
		t.Fatal(err)
	}
	if m.SuggestionPopupVisible() {
		t.Error("cancel keystroke should hide the popup")
	}
	m.SendSaveKeystroke()
	m.SendAcceptKeystroke()

	accepts, cancels, saves := m.Keystrokes()
	if accepts != 1 || cancels != 1 || saves != 1 {
		t.Errorf("keystrokes = %d/%d/%d", accepts, cancels, saves)
	}

	m.SetStatusText("generating")
	if m.Status() != "generating" {
		t.Errorf("Status = %q", m.Status())
	}
	m.ClearStatusText()
	if m.Status() != "" {
		t.Errorf("Status = %q after clear", m.Status())
	}
}

func TestMemoryLineContentOutOfRange(t *testing.T) {
	m := newTestMemory(t, "a\nb")
	if _, err := m.LineContent(2); err == nil {
		t.Error("expected out of range error")
	}
	if s, err := m.LineContent(1); err != nil || s != "b" {
		t.Errorf("LineContent(1) = %q, %v", s, err)
	}
}
