package coordinate

import (
	"context"
	"log/slog"
	"time"

	"github.com/Paranoid-AF/codelet"
	"github.com/Paranoid-AF/codelet/gather"
)

// SetLogger replaces the logger.
func (c *Coordinator) SetLogger(l *slog.Logger) { c.logger = l }

// SetClock replaces the time source of the debounce and report logic.
func (c *Coordinator) SetClock(now func() time.Time) { c.now = now }

// sampleTick refreshes the recency of the focused source file.
func (c *Coordinator) sampleTick(context.Context) {
	if _, ok := c.ctrl.CurrentWindow(); !ok {
		return
	}
	path, err := c.state.CurrentFilePath()
	if err != nil || path == "" {
		return
	}
	c.recent.Touch(path)
}

// caretTick follows the focused file across projects.
func (c *Coordinator) caretTick(context.Context) {
	path, err := c.state.CurrentFilePath()
	if err != nil || path == "" {
		return
	}

	c.pollMu.Lock()
	if path == c.lastPath {
		c.pollMu.Unlock()
		return
	}
	c.lastPath = path
	c.pollMu.Unlock()

	root := c.projects.Root(path)
	if root == "" {
		return
	}

	c.pollMu.Lock()
	switched := root != c.project
	c.project = root
	c.pollMu.Unlock()
	if !switched {
		return
	}

	c.logger.Info("switched project", "root", root)
	c.send(codelet.EditorSwitchProject{Path: root})
	if c.symbols != nil {
		c.symbols.UpdateIndexRoot(root)
	}
}

// Project returns the root of the project the focused file was last seen in.
func (c *Coordinator) Project() string {
	c.pollMu.Lock()
	defer c.pollMu.Unlock()
	return c.project
}

// autoSaveTick sends the save keystroke once the configured interval passed.
func (c *Coordinator) autoSaveTick(context.Context) {
	interval := c.settings.Load().Editor.AutoSaveInterval.Duration
	if interval <= 0 {
		return
	}
	now := c.now()

	c.pollMu.Lock()
	if c.lastSave.IsZero() {
		c.lastSave = now
	}
	if now.Sub(c.lastSave) < interval {
		c.pollMu.Unlock()
		return
	}
	c.lastSave = now
	c.pollMu.Unlock()

	if _, ok := c.ctrl.CurrentWindow(); !ok {
		return
	}
	if err := c.ctrl.SendSaveKeystroke(); err != nil {
		c.logger.Debug("auto-save failed", "error", err)
	}
}

// Recent exposes the recent-files tracker.
func (c *Coordinator) Recent() *gather.RecentFiles { return c.recent }
