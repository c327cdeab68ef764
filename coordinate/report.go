package coordinate

import (
	"context"

	"github.com/Paranoid-AF/codelet"
	"github.com/Paranoid-AF/codelet/completion"
)

// reportTick reports tracked suggestions in the focused window whose
// reaction is old enough. Entries in any window past completion.MaxAge are
// dropped unreported.
func (c *Coordinator) reportTick(ctx context.Context) {
	c.expireTracked()

	window, ok := c.ctrl.CurrentWindow()
	if !ok {
		return
	}

	var due []*completion.EditedCompletion
	c.trackMu.Lock()
	for id, e := range c.tracked {
		if e.Window == window && e.CanReport() {
			due = append(due, e)
			delete(c.tracked, id)
		}
	}
	c.trackMu.Unlock()
	if len(due) == 0 {
		return
	}

	var stats []codelet.CompletionEdit
	err := c.lock.Snapshot(ctx, func() error {
		count, err := c.state.LineCount()
		if err != nil {
			return err
		}
		read := func(line int) (string, bool) {
			if line < 0 || line >= count {
				return "", false
			}
			s, err := c.state.LineContent(line)
			return s, err == nil
		}
		for _, e := range due {
			stats = append(stats, e.Parse(read))
		}
		return nil
	})
	if err != nil {
		c.logger.Debug("edit report deferred", "entries", len(due), "error", err)
		c.trackMu.Lock()
		for _, e := range due {
			if _, ok := c.tracked[e.ActionID]; !ok {
				c.tracked[e.ActionID] = e
			}
		}
		c.trackMu.Unlock()
		return
	}
	for i, stat := range stats {
		editRatiosTotal.WithLabelValues(string(stat.Ratio)).Inc()
		c.logger.Debug("edit reported", "action_id", stat.ActionID, "accepted", due[i].Accepted(), "ratio", stat.Ratio)
		c.send(stat)
	}
}

// expireTracked drops entries past completion.MaxAge without reporting them.
func (c *Coordinator) expireTracked() {
	c.trackMu.Lock()
	defer c.trackMu.Unlock()
	for id, e := range c.tracked {
		if e.Expired() {
			delete(c.tracked, id)
			c.logger.Debug("edit report expired", "action_id", id, "window", e.Window)
		}
	}
}
