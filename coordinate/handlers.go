package coordinate

import (
	"fmt"
	"strings"

	"github.com/Paranoid-AF/codelet"
	"github.com/Paranoid-AF/codelet/completion"
	"github.com/Paranoid-AF/codelet/interaction"
)

func (c *Coordinator) onAccept(interaction.Interaction) (bool, error) {
	c.cacheMu.Lock()
	rest := c.cache.Remaining()
	c.cache.Reset("")
	comps := c.completions
	c.completions = nil
	c.cacheMu.Unlock()

	if rest == "" || comps == nil {
		return false, nil
	}
	if c.ctrl.SuggestionPopupVisible() {
		if err := c.ctrl.SendCancelKeystroke(); err != nil {
			c.logger.Debug("dismiss popup failed", "error", err)
		}
	}
	c.accepted(comps)
	if err := c.ctrl.InsertText(rest); err != nil {
		return true, fmt.Errorf("insert suggestion: %w", err)
	}
	if err := c.ctrl.SendAcceptKeystroke(); err != nil {
		return true, fmt.Errorf("accept keystroke: %w", err)
	}
	return true, nil
}

func (c *Coordinator) onCancel(in interaction.Interaction) (bool, error) {
	ev := in.(interaction.CompletionCancel)
	return c.cancel(ev.Explicit), nil
}

// onCancelling handles interactions whose only effect is dismissing the
// pending suggestion. The keystroke always reaches the editor.
func (c *Coordinator) onCancelling(interaction.Interaction) (bool, error) {
	c.cancel(false)
	return false, nil
}

func (c *Coordinator) onNormalInput(in interaction.Interaction) (bool, error) {
	ev := in.(interaction.NormalInput)
	if !ev.Selected && c.cache.Valid() {
		c.cacheMu.Lock()
		hit, exhausted := c.cache.Step(ev.Char)
		var comps *completion.Completions
		if exhausted {
			c.cache.Reset("")
			comps = c.completions
			c.completions = nil
		}
		c.cacheMu.Unlock()

		switch {
		case exhausted:
			cacheStepsTotal.WithLabelValues("forward", "hit").Inc()
			if comps != nil {
				c.accepted(comps)
			}
			return false, nil
		case hit:
			cacheStepsTotal.WithLabelValues("forward", "hit").Inc()
			c.send(codelet.CompletionCache{})
			return false, nil
		}
		cacheStepsTotal.WithLabelValues("forward", "miss").Inc()
	}

	c.cancel(false)
	line, _ := c.state.LineContent(ev.At.Line)
	c.arm(NeedsRetrieve(line, ev.Char))
	return false, nil
}

func (c *Coordinator) onDeleteInput(in interaction.Interaction) (bool, error) {
	ev := in.(interaction.DeleteInput)
	defer c.touchEdit()

	switch {
	case ev.Selected:
		c.cancel(false)
		return false, nil
	case ev.At.Character == 0:
		c.cancel(false)
		if ev.At.Line > 0 {
			c.shiftLines(ev.At.Line, -1)
		}
		return false, nil
	}

	if c.cache.Valid() {
		line, err := c.state.LineContent(ev.At.Line)
		if err == nil {
			if r, ok := runeBefore(line, ev.At.Character); ok && c.cache.StepBack(r) {
				cacheStepsTotal.WithLabelValues("backward", "hit").Inc()
				c.send(codelet.CompletionCache{IsDelete: true})
				return false, nil
			}
		}
		cacheStepsTotal.WithLabelValues("backward", "miss").Inc()
	}
	c.cancel(false)
	return false, nil
}

// runeBefore returns the rune just left of character col in line.
func runeBefore(line string, col int) (rune, bool) {
	runes := []rune(line)
	if col <= 0 || col > len(runes) {
		return 0, false
	}
	return runes[col-1], true
}

func (c *Coordinator) onEnter(in interaction.Interaction) (bool, error) {
	ev := in.(interaction.EnterInput)
	c.cancel(false)
	if ev.Manual {
		c.rearm()
		return true, nil
	}
	if ev.At.Character == 0 {
		c.shiftLines(ev.At.Line, 1)
	} else {
		c.shiftLines(ev.At.Line+1, 1)
	}
	return false, nil
}

func (c *Coordinator) onMouse(in interaction.Interaction) (bool, error) {
	if in.(interaction.NavigateWithMouse).Moved {
		c.cancel(false)
	}
	return false, nil
}

func (c *Coordinator) onPaste(in interaction.Interaction) (bool, error) {
	ev := in.(interaction.Paste)
	clip, err := c.state.ClipboardText()
	if err != nil {
		return false, fmt.Errorf("read clipboard: %w", err)
	}
	c.cancel(false)

	if n := strings.Count(clip, "\n"); n > 0 {
		if ev.At.Character == 0 {
			c.shiftLines(ev.At.Line, n)
		} else {
			c.shiftLines(ev.At.Line+1, n)
		}
	}

	c.requestPaste()
	return false, nil
}

func (c *Coordinator) onSelectionReplace(in interaction.Interaction) (bool, error) {
	ev := in.(interaction.SelectionReplace)
	switch {
	case ev.LineDelta > 0:
		c.shiftLines(ev.StartLine, ev.LineDelta)
	case ev.LineDelta < 0:
		c.shiftLines(ev.StartLine+1, ev.LineDelta)
	}
	return false, nil
}

func (c *Coordinator) onSelectionPublish(in interaction.Interaction) (bool, error) {
	ev := in.(interaction.SelectionPublish)
	c.send(codelet.EditorSelection{
		Path:       ev.Path,
		Content:    ev.Content,
		Block:      ev.Block,
		Begin:      ev.Selection.Start,
		End:        ev.Selection.End,
		Dimensions: ev.Dimensions,
	})
	return false, nil
}

func (c *Coordinator) onCommit(interaction.Interaction) (bool, error) {
	path, err := c.state.CurrentFilePath()
	if err != nil {
		return false, err
	}
	root := c.projects.Root(path)
	if root == "" {
		return false, fmt.Errorf("no project contains %s", path)
	}
	c.send(codelet.EditorCommit{Path: root})
	return true, nil
}

func (c *Coordinator) onWindow(in interaction.Interaction) (bool, error) {
	ev := in.(interaction.WindowChange)
	switch ev.Event {
	case interaction.WindowClose:
		c.cancel(false)
		c.trackMu.Lock()
		for id, e := range c.tracked {
			if e.Window == ev.Window {
				delete(c.tracked, id)
			}
		}
		c.trackMu.Unlock()
	case interaction.WindowKillFocus:
		c.cancel(false)
	case interaction.WindowMove, interaction.WindowSize:
		c.cacheMu.RLock()
		comps := c.completions
		c.cacheMu.RUnlock()
		if comps != nil && c.cache.Valid() {
			c.announce(comps)
		}
	}
	return false, nil
}
