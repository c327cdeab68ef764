// Package interaction turns raw editor input into semantic interactions and
// dispatches them to registered handlers.
package interaction

import "github.com/Paranoid-AF/codelet"

// Kind tags an Interaction variant.
type Kind int

const (
	KindNormalInput Kind = iota
	KindDeleteInput
	KindCompletionAccept
	KindCompletionCancel
	KindEnterInput
	KindNavigateWithKey
	KindNavigateWithMouse
	KindPaste
	KindSave
	KindUndo
	KindSelectionReplace
	KindSelectionPublish
	KindCommit
	KindWindowChange
)

var kindNames = [...]string{
	KindNormalInput:       "NormalInput",
	KindDeleteInput:       "DeleteInput",
	KindCompletionAccept:  "CompletionAccept",
	KindCompletionCancel:  "CompletionCancel",
	KindEnterInput:        "EnterInput",
	KindNavigateWithKey:   "NavigateWithKey",
	KindNavigateWithMouse: "NavigateWithMouse",
	KindPaste:             "Paste",
	KindSave:              "Save",
	KindUndo:              "Undo",
	KindSelectionReplace:  "SelectionReplace",
	KindSelectionPublish:  "SelectionPublish",
	KindCommit:            "Commit",
	KindWindowChange:      "WindowChange",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Unknown"
	}
	return kindNames[k]
}

// Interaction is a classified user action. The set of variants is closed.
type Interaction interface {
	Kind() Kind
	interaction()
}

// NormalInput is a printable character typed at At.
type NormalInput struct {
	Char rune
	At   codelet.CaretPosition
	// Selected is true when the character replaces a selection.
	Selected bool
}

// DeleteInput is a backspace at At.
type DeleteInput struct {
	At       codelet.CaretPosition
	Selected bool
}

// CompletionAccept asks to take the pending suggestion.
type CompletionAccept struct{}

// CompletionCancel dismisses the pending suggestion.
type CompletionCancel struct {
	Explicit bool
}

// EnterInput is a line break at At. Manual is set when the manual completion
// shortcut produced it.
type EnterInput struct {
	At     codelet.CaretPosition
	Manual bool
}

// NavigateWithKey is a coalesced burst of Count navigation keys ending with Key.
type NavigateWithKey struct {
	Key   Key
	Count int
}

// NavigateWithMouse is a completed left click or drag.
type NavigateWithMouse struct {
	From, To codelet.CaretPosition
	Moved    bool
}

// Paste inserts the clipboard at At.
type Paste struct {
	At codelet.CaretPosition
}

type Save struct{}

type Undo struct{}

// SelectionReplace precedes an edit that replaces a selection starting on
// StartLine. LineDelta is the signed change in line count.
type SelectionReplace struct {
	StartLine int
	LineDelta int
}

// SelectionPublish carries a multi-line mouse selection. A zero value clears
// the published selection.
type SelectionPublish struct {
	Path       string
	Selection  codelet.Selection
	Content    string
	Block      string
	Dimensions codelet.Dimensions
}

// Cleared reports whether this publishes an empty selection.
func (p SelectionPublish) Cleared() bool { return p.Content == "" }

// Commit is the commit shortcut.
type Commit struct{}

// WindowChange forwards a host window notification.
type WindowChange struct {
	Event  WindowEventType
	Window codelet.WindowHandle
}

func (NormalInput) Kind() Kind       { return KindNormalInput }
func (DeleteInput) Kind() Kind       { return KindDeleteInput }
func (CompletionAccept) Kind() Kind  { return KindCompletionAccept }
func (CompletionCancel) Kind() Kind  { return KindCompletionCancel }
func (EnterInput) Kind() Kind        { return KindEnterInput }
func (NavigateWithKey) Kind() Kind   { return KindNavigateWithKey }
func (NavigateWithMouse) Kind() Kind { return KindNavigateWithMouse }
func (Paste) Kind() Kind             { return KindPaste }
func (Save) Kind() Kind              { return KindSave }
func (Undo) Kind() Kind              { return KindUndo }
func (SelectionReplace) Kind() Kind  { return KindSelectionReplace }
func (SelectionPublish) Kind() Kind  { return KindSelectionPublish }
func (Commit) Kind() Kind            { return KindCommit }
func (WindowChange) Kind() Kind      { return KindWindowChange }

func (NormalInput) interaction()       {}
func (DeleteInput) interaction()       {}
func (CompletionAccept) interaction()  {}
func (CompletionCancel) interaction()  {}
func (EnterInput) interaction()        {}
func (NavigateWithKey) interaction()   {}
func (NavigateWithMouse) interaction() {}
func (Paste) interaction()             {}
func (Save) interaction()              {}
func (Undo) interaction()              {}
func (SelectionReplace) interaction()  {}
func (SelectionPublish) interaction()  {}
func (Commit) interaction()            {}
func (WindowChange) interaction()      {}
