package completion

import (
	"strings"
	"time"

	"github.com/Paranoid-AF/codelet"
)

const (
	// ReportDelay is how long after its terminal reaction an entry is reported.
	ReportDelay = 10 * time.Second
	// MaxAge is how long after its terminal reaction an unreported entry is
	// kept at all.
	MaxAge = 10 * time.Minute
)

// EditedCompletion tracks the document lines a shown suggestion occupies so
// that, some time after the user reacted to it, the surviving text can be
// compared with what was suggested.
//
// It is not safe for concurrent use; the owner serialises access.
type EditedCompletion struct {
	ActionID string
	Window   codelet.WindowHandle

	lines []string
	refs  []int

	reacted   bool
	accepted  bool
	reactTime time.Time

	now func() time.Time
}

// NewEditedCompletion splits text into lines and references them contiguously
// from line, the caret line at generation time.
func NewEditedCompletion(actionID string, window codelet.WindowHandle, text string, line int) *EditedCompletion {
	lines := strings.Split(text, "\n")
	refs := make([]int, len(lines))
	for i := range refs {
		refs[i] = line + i
	}
	return &EditedCompletion{
		ActionID: actionID,
		Window:   window,
		lines:    lines,
		refs:     refs,
		now:      time.Now,
	}
}

// SetClock replaces the time source. Intended for tests.
func (e *EditedCompletion) SetClock(now func() time.Time) {
	e.now = now
}

// References returns a copy of the tracked line numbers.
func (e *EditedCompletion) References() []int {
	return append([]int(nil), e.refs...)
}

// AddLine records count lines inserted at line at: every reference >= at
// moves down by count.
func (e *EditedCompletion) AddLine(at, count int) {
	if count <= 0 {
		return
	}
	for i, r := range e.refs {
		if r >= at {
			e.refs[i] = r + count
		}
	}
}

// RemoveLine records count lines removed at line at, each merged into the
// line above. Every reference >= at+count moves up by count. References to the
// removed lines themselves do not shift by count: they collapse onto at-1,
// the line they merged into, so the list stays sorted.
func (e *EditedCompletion) RemoveLine(at, count int) {
	if count <= 0 {
		return
	}
	floor := max(at-1, 0)
	for i, r := range e.refs {
		switch {
		case r >= at+count:
			e.refs[i] = r - count
		case r >= at:
			e.refs[i] = floor
		}
	}
}

// React records the terminal disposition. Only the first call is meaningful
// for reporting; later calls overwrite it, so callers check Reacted first.
func (e *EditedCompletion) React(accept bool) {
	e.reacted = true
	e.accepted = accept
	e.reactTime = e.now()
}

// Reacted reports whether React has been called.
func (e *EditedCompletion) Reacted() bool { return e.reacted }

// Accepted reports the recorded disposition.
func (e *EditedCompletion) Accepted() bool { return e.accepted }

// CanReport reports whether ReportDelay has elapsed since React.
func (e *EditedCompletion) CanReport() bool {
	return e.reacted && e.now().Sub(e.reactTime) >= ReportDelay
}

// Expired reports whether MaxAge has elapsed since React.
func (e *EditedCompletion) Expired() bool {
	return e.reacted && e.now().Sub(e.reactTime) >= MaxAge
}

// Parse re-reads the referenced lines through read and builds the statistic.
// A line is retained when it equals the suggested line literally, ignoring
// leading and trailing whitespace. Accepted entries report All with the number
// of retained lines; rejected entries report None with the original line count.
func (e *EditedCompletion) Parse(read func(line int) (string, bool)) codelet.CompletionEdit {
	edited := make([]string, 0, len(e.refs))
	matched := 0
	for i, ref := range e.refs {
		doc, ok := read(ref)
		if !ok {
			continue
		}
		edited = append(edited, doc)
		if retained(e.lines[i], doc) {
			matched++
		}
	}

	stat := codelet.CompletionEdit{
		ActionID:      e.ActionID,
		Count:         matched,
		EditedContent: strings.Join(edited, "\n"),
		Ratio:         Classify(matched, len(e.lines)),
	}
	if e.accepted {
		stat.Ratio = codelet.RatioAll
	} else {
		stat.Ratio = codelet.RatioNone
		stat.Count = len(e.lines)
	}
	return stat
}

// retained reports whether the suggested line survives unchanged in the
// document line.
func retained(original, doc string) bool {
	return strings.TrimSpace(original) == strings.TrimSpace(doc)
}

// Classify maps the retained proportion onto the ordinal scale.
func Classify(matched, total int) codelet.EditRatio {
	switch {
	case total <= 0 || matched <= 0:
		return codelet.RatioNone
	case matched >= total:
		return codelet.RatioAll
	case matched*2 < total:
		return codelet.RatioFew
	default:
		return codelet.RatioMost
	}
}
