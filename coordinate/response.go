package coordinate

import (
	"encoding/json"

	"github.com/Paranoid-AF/codelet"
	"github.com/Paranoid-AF/codelet/completion"
)

// onGenerateResult handles the backend reply to CompletionGenerate and
// EditorPaste.
func (c *Coordinator) onGenerateResult(data json.RawMessage) {
	stale := c.replied()

	var res codelet.GenerateResult
	if err := json.Unmarshal(data, &res); err != nil {
		c.logger.Warn("malformed generation result", "error", err)
		return
	}
	c.ctrl.ClearStatusText()

	c.debounceMu.Lock()
	if !c.requestedAt.IsZero() {
		generationLatency.Observe(c.now().Sub(c.requestedAt).Seconds())
	}
	c.debounceMu.Unlock()

	if !res.OK() {
		generationsTotal.WithLabelValues("result", "failed").Inc()
		c.logger.Warn("generation failed", "action_id", res.ActionID, "result", res.Result, "message", res.Message)
		return
	}
	if res.Completions == nil || len(res.Completions.Candidates) == 0 {
		generationsTotal.WithLabelValues("result", "empty").Inc()
		return
	}
	if stale {
		suggestionsTotal.WithLabelValues("stale").Inc()
		c.send(codelet.CompletionCancel{ActionID: res.ActionID, Explicit: true})
		c.logger.Info("dropped stale generation result", "action_id", res.ActionID)
		return
	}
	generationsTotal.WithLabelValues("result", "installed").Inc()
	c.install(completion.NewCompletions(res.ActionID, res.Completions.Candidates))
}
