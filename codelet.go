// Package codelet defines the value types and wire messages shared by the
// completion coordination engine and its backend.
// Messages are JSON-encoded and wrapped in an envelope naming their action.
package codelet

import "errors"

// ErrNoWindow is returned by editor collaborators when no editor window has focus.
var ErrNoWindow = errors.New("no focused editor window")

// CaretPosition is a cursor location inside a document.
// Positions are ordered by line, then by character.
type CaretPosition struct {
	// Line is the zero-based line index.
	Line int `json:"line"`
	// Character is the zero-based column, counted in runes.
	Character int `json:"character"`
	// MaxCharacter is the sticky column kept across vertical moves.
	MaxCharacter int `json:"-"`
}

// Compare returns -1, 0 or +1 depending on whether p sorts before, equal to or after o.
func (p CaretPosition) Compare(o CaretPosition) int {
	switch {
	case p.Line < o.Line:
		return -1
	case p.Line > o.Line:
		return 1
	case p.Character < o.Character:
		return -1
	case p.Character > o.Character:
		return 1
	}
	return 0
}

// Before reports whether p sorts strictly before o.
func (p CaretPosition) Before(o CaretPosition) bool { return p.Compare(o) < 0 }

// Selection is a text range with Start <= End.
type Selection struct {
	Start CaretPosition `json:"start"`
	End   CaretPosition `json:"end"`
}

// NewSelection orders the two anchors so that Start <= End.
func NewSelection(a, b CaretPosition) Selection {
	if b.Before(a) {
		a, b = b, a
	}
	return Selection{Start: a, End: b}
}

// Empty reports whether the selection covers no text.
func (s Selection) Empty() bool { return s.Start.Compare(s.End) == 0 }

// LineSpan is the number of line breaks covered by the selection.
func (s Selection) LineSpan() int { return s.End.Line - s.Start.Line }

// WindowHandle identifies a host editor window.
type WindowHandle uint64

// Dimensions locates the caret on screen.
type Dimensions struct {
	Height int `json:"height"`
	X      int `json:"x"`
	Y      int `json:"y"`
}

// Symbol is a named declaration resolved for generation context.
type Symbol struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	Type      string `json:"type"`
	StartLine int    `json:"startLine"`
	EndLine   int    `json:"endLine"`
}

// EditRatio classifies how much of a suggestion survived in the document.
type EditRatio string

const (
	RatioNone EditRatio = "None"
	RatioFew  EditRatio = "Few"
	RatioMost EditRatio = "Most"
	RatioAll  EditRatio = "All"
)

// Action names used on the wire.
const (
	ActionCompletionGenerate  = "CompletionGenerate"
	ActionCompletionAccept    = "CompletionAccept"
	ActionCompletionCancel    = "CompletionCancel"
	ActionCompletionCache     = "CompletionCache"
	ActionCompletionEdit      = "CompletionEdit"
	ActionCompletionSelect    = "CompletionSelect"
	ActionEditorPaste         = "EditorPaste"
	ActionEditorSelection     = "EditorSelection"
	ActionEditorSwitchProject = "EditorSwitchProject"
	ActionEditorCommit        = "EditorCommit"
)

// ResultSuccess is the result value of a successful backend response.
const ResultSuccess = "success"

// Message is an outbound message. Action names the envelope it travels in.
type Message interface {
	Action() string
}

// Context is the text surrounding the caret sent with a generation request.
type Context struct {
	// Prefix holds the lines above the caret line.
	Prefix string `json:"prefix"`
	// Infix is the caret line up to the caret.
	Infix string `json:"infix"`
	// Suffix is the rest of the caret line and the lines below it.
	Suffix string `json:"suffix"`
}

// Timing records epoch milliseconds at each stage of request assembly.
type Timing struct {
	Start       int64 `json:"start"`
	Context     int64 `json:"context"`
	RecentFiles int64 `json:"recentFiles"`
	Symbol      int64 `json:"symbol"`
	End         int64 `json:"end"`
}

// CompletionGenerate asks the backend for completion candidates at the caret.
type CompletionGenerate struct {
	Caret       CaretPosition `json:"caret"`
	Path        string        `json:"path"`
	Context     Context       `json:"context"`
	RecentFiles []string      `json:"recentFiles"`
	Symbols     []Symbol      `json:"symbols"`
	Timing      Timing        `json:"timing"`
}

func (CompletionGenerate) Action() string { return ActionCompletionGenerate }

// EditorPaste is a generation request issued right after a paste.
type EditorPaste struct {
	CompletionGenerate
	// Clipboard is the pasted text.
	Clipboard string `json:"clipboard"`
}

func (EditorPaste) Action() string { return ActionEditorPaste }

// Candidates is the candidate set carried by a generation response.
type Candidates struct {
	Type       string   `json:"type"`
	Candidates []string `json:"candidates"`
}

// GenerateResult is the backend response to CompletionGenerate and EditorPaste.
type GenerateResult struct {
	Result      string      `json:"result"`
	Message     string      `json:"message,omitempty"`
	ActionID    string      `json:"actionId"`
	Completions *Candidates `json:"completions,omitempty"`
}

// OK reports whether the backend produced a result.
func (r *GenerateResult) OK() bool { return r.Result == ResultSuccess }

// CompletionAccept reports that the user took candidate Index.
type CompletionAccept struct {
	ActionID string `json:"actionId"`
	Index    int    `json:"index"`
}

func (CompletionAccept) Action() string { return ActionCompletionAccept }

// CompletionCancel reports that a suggestion was dismissed.
type CompletionCancel struct {
	ActionID string `json:"actionId"`
	// Explicit is true when the user dismissed on purpose (Delete key)
	// rather than by typing past the suggestion.
	Explicit bool `json:"explicit"`
}

func (CompletionCancel) Action() string { return ActionCompletionCancel }

// CompletionCache acknowledges a keystroke that matched the cached suggestion.
type CompletionCache struct {
	IsDelete bool `json:"isDelete"`
}

func (CompletionCache) Action() string { return ActionCompletionCache }

// CompletionEdit reports how much of a suggestion survived later editing.
type CompletionEdit struct {
	ActionID      string    `json:"actionId"`
	Count         int       `json:"count"`
	EditedContent string    `json:"editedContent"`
	Ratio         EditRatio `json:"ratio"`
}

func (CompletionEdit) Action() string { return ActionCompletionEdit }

// CompletionSelect tells the backend where candidate Index is displayed.
type CompletionSelect struct {
	ActionID   string     `json:"actionId"`
	Index      int        `json:"index"`
	Dimensions Dimensions `json:"dimensions"`
}

func (CompletionSelect) Action() string { return ActionCompletionSelect }

// EditorSelection publishes a multi-line mouse selection. An empty Content
// clears the previous selection.
type EditorSelection struct {
	Path       string        `json:"path"`
	Content    string        `json:"content"`
	Block      string        `json:"block"`
	Begin      CaretPosition `json:"begin"`
	End        CaretPosition `json:"end"`
	Dimensions Dimensions    `json:"dimensions"`
}

func (EditorSelection) Action() string { return ActionEditorSelection }

// EditorSwitchProject announces that the focused file belongs to another project.
type EditorSwitchProject struct {
	Path string `json:"path"`
}

func (EditorSwitchProject) Action() string { return ActionEditorSwitchProject }

// EditorCommit asks the backend to prepare a commit for the project at Path.
type EditorCommit struct {
	Path string `json:"path"`
}

func (EditorCommit) Action() string { return ActionEditorCommit }
