// Package editor declares what the engine needs from the host editor and
// provides Memory, an in-process editor used by the terminal host and tests.
package editor

import "github.com/Paranoid-AF/codelet"

// StateProvider reads host editor state. Methods return codelet.ErrNoWindow
// when no editor window has focus.
type StateProvider interface {
	CaretPosition() (codelet.CaretPosition, error)
	// Selection returns the active selection; ok is false when nothing is selected.
	Selection() (sel codelet.Selection, ok bool, err error)
	LineContent(line int) (string, error)
	CurrentFilePath() (string, error)
	LineCount() (int, error)
	CaretDimensions() (codelet.Dimensions, error)
	ClipboardText() (string, error)
}

// Controller drives the host editor.
type Controller interface {
	InsertText(text string) error
	SendAcceptKeystroke() error
	SendCancelKeystroke() error
	SendSaveKeystroke() error
	// CurrentWindow returns the focused window; ok is false when none has focus.
	CurrentWindow() (h codelet.WindowHandle, ok bool)
	SuggestionPopupVisible() bool
	SetStatusText(text string)
	ClearStatusText()
}

// Editor is both halves of the host editor contract.
type Editor interface {
	StateProvider
	Controller
}
