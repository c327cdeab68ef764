package coordinate

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/Paranoid-AF/codelet"
	"github.com/Paranoid-AF/codelet/gather"
)

const (
	// pasteTimeout bounds an out-of-band paste request.
	pasteTimeout = 5 * time.Second
	// replyTimeout is how long an issued request waits for its reply before
	// its slot is given up. Replies lost to a reconnect would otherwise shift
	// every later reply onto the wrong request.
	replyTimeout = 30 * time.Second
)

// issued records the edit generation a request went out under.
type issued struct {
	gen uint64
	at  time.Time
}

// statementKeywords mark lines where a typed ';' may end a construct worth
// completing past.
var statementKeywords = regexp.MustCompile(`\b(class|if|for|struct|switch|union|while)\b`)

// NeedsRetrieve reports whether typing ch on line should schedule a
// generation request.
func NeedsRetrieve(line string, ch rune) bool {
	switch ch {
	case '{', '}':
		return false
	case ';':
		return statementKeywords.MatchString(line)
	}
	return true
}

// arm starts a new debounce cycle. Replies to requests issued before it are
// dropped as stale.
func (c *Coordinator) arm(need bool) {
	c.debounceMu.Lock()
	c.lastEdit = c.now()
	c.needRetrieve = need
	c.gen++
	c.debounceMu.Unlock()
}

// rearm schedules a generation on the next worker tick.
func (c *Coordinator) rearm() {
	delay := c.settings.Load().Completion.DebounceDelay.Duration
	c.debounceMu.Lock()
	c.lastEdit = c.now().Add(-delay)
	c.needRetrieve = true
	c.gen++
	c.debounceMu.Unlock()
}

// touchEdit restarts the debounce window without changing whether a
// generation is due.
func (c *Coordinator) touchEdit() {
	c.debounceMu.Lock()
	c.lastEdit = c.now()
	c.gen++
	c.debounceMu.Unlock()
}

// due reports whether the debounce window has passed with a generation
// pending, and if so claims it and returns the edit generation it belongs to.
func (c *Coordinator) due(delay time.Duration) (uint64, bool) {
	c.debounceMu.Lock()
	defer c.debounceMu.Unlock()
	if !c.needRetrieve || c.now().Sub(c.lastEdit) < delay {
		return 0, false
	}
	c.needRetrieve = false
	c.requestedAt = c.now()
	return c.gen, true
}

// issue sends a generation request made under edit generation gen and queues
// gen for the reply. Replies arrive in request order, so issueMu keeps the
// queue in wire order.
func (c *Coordinator) issue(msg codelet.Message, gen uint64) error {
	c.issueMu.Lock()
	defer c.issueMu.Unlock()

	c.debounceMu.Lock()
	c.inflight = append(c.inflight, issued{gen: gen, at: c.now()})
	c.debounceMu.Unlock()

	err := c.tr.Send(msg)

	c.debounceMu.Lock()
	defer c.debounceMu.Unlock()
	if err != nil {
		if n := len(c.inflight); n > 0 {
			c.inflight = c.inflight[:n-1]
		}
		return err
	}
	c.lastIssued = gen
	return nil
}

// replied takes the oldest outstanding request and reports whether its reply
// is stale: an edit started a newer cycle after the request went out. An
// unsolicited reply is judged by the last request issued.
func (c *Coordinator) replied() (stale bool) {
	c.debounceMu.Lock()
	defer c.debounceMu.Unlock()
	now := c.now()
	for len(c.inflight) > 0 && now.Sub(c.inflight[0].at) > replyTimeout {
		c.inflight = c.inflight[1:]
	}
	gen := c.lastIssued
	if len(c.inflight) > 0 {
		gen = c.inflight[0].gen
		c.inflight = c.inflight[1:]
	}
	return gen < c.gen
}

func (c *Coordinator) limits(cfg *codelet.Config) gather.Limits {
	return gather.Limits{
		PrefixLines:     cfg.Completion.PrefixLines,
		SuffixLines:     cfg.Completion.SuffixLines,
		RecentFileCount: cfg.Completion.RecentFileCount,
	}
}

// retrieveTick issues a generation request once the debounce window passes.
func (c *Coordinator) retrieveTick(ctx context.Context) {
	cfg := c.settings.Load()
	gen, ok := c.due(cfg.Completion.DebounceDelay.Duration)
	if !ok {
		return
	}
	req, err := c.gatherer.Generate(ctx, c.limits(cfg))
	if err != nil {
		c.skipped("generate", err)
		return
	}
	if err := c.issue(req, gen); err != nil {
		c.skipped("generate", err)
		return
	}
	generationsTotal.WithLabelValues("generate", "sent").Inc()
	c.ctrl.SetStatusText(StatusGenerating)
}

// requestPaste starts a new cycle and sends a paste request for it in the
// background, bypassing the debounce window.
func (c *Coordinator) requestPaste() {
	lim := c.limits(c.settings.Load())
	c.debounceMu.Lock()
	c.lastEdit = c.now()
	c.needRetrieve = false
	c.gen++
	gen := c.gen
	c.requestedAt = c.now()
	c.debounceMu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), pasteTimeout)
		defer cancel()

		req, err := c.gatherer.Paste(ctx, lim)
		if err != nil {
			c.skipped("paste", err)
			return
		}
		if err := c.issue(req, gen); err != nil {
			c.skipped("paste", err)
			return
		}
		generationsTotal.WithLabelValues("paste", "sent").Inc()
		c.ctrl.SetStatusText(StatusGenerating)
	}()
}

// skipped logs a retrieval cycle that produced no request. Missing focus is
// routine and not logged.
func (c *Coordinator) skipped(kind string, err error) {
	generationsTotal.WithLabelValues(kind, "skipped").Inc()
	if errors.Is(err, codelet.ErrNoWindow) || errors.Is(err, context.Canceled) {
		return
	}
	c.skipLog.Do(func() {
		c.logger.Warn("retrieval cycle skipped", "kind", kind, "error", err)
	})
}

// Wait blocks until background paste requests finish.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}
