// Package coordinate ties the engine together: it handles classified
// interactions, validates typing against the pending suggestion, schedules
// generation requests and reports how suggestions fared.
package coordinate

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/Paranoid-AF/codelet"
	"github.com/Paranoid-AF/codelet/completion"
	"github.com/Paranoid-AF/codelet/editor"
	"github.com/Paranoid-AF/codelet/gather"
	"github.com/Paranoid-AF/codelet/interaction"
	"github.com/Paranoid-AF/codelet/transport"
)

// Poll intervals of the background loops.
const (
	retrieveInterval = 10 * time.Millisecond
	reportInterval   = time.Second
	sampleInterval   = 100 * time.Millisecond
	caretInterval    = 100 * time.Millisecond
	autoSaveInterval = time.Second
)

// StatusGenerating is shown while a generation request is outstanding.
const StatusGenerating = "codelet: generating..."

// Transport sends messages to the backend and routes its replies.
type Transport interface {
	Send(msg codelet.Message) error
	Handle(action string, h transport.HandlerFunc)
}

// Deps are the long-lived services a Coordinator is built from.
type Deps struct {
	Settings  *codelet.Settings
	Editor    editor.Editor
	Transport Transport
	Lock      *interaction.Lock
	// Symbols is optional.
	Symbols gather.SymbolProvider
}

// Coordinator owns all suggestion state.
type Coordinator struct {
	settings *codelet.Settings
	state    editor.StateProvider
	ctrl     editor.Controller
	tr       Transport
	lock     *interaction.Lock
	symbols  gather.SymbolProvider
	gatherer *gather.Gatherer
	recent   *gather.RecentFiles
	projects *gather.Projects

	// cacheMu pairs cache with completions so they are replaced together.
	cacheMu     sync.RWMutex
	cache       *completion.Cache
	completions *completion.Completions

	trackMu sync.RWMutex
	tracked map[string]*completion.EditedCompletion

	// gen counts edit cycles. A reply is stale when a cycle began after its
	// request was issued.
	debounceMu   sync.Mutex
	lastEdit     time.Time
	needRetrieve bool
	gen          uint64
	lastIssued   uint64
	inflight     []issued
	requestedAt  time.Time

	issueMu sync.Mutex

	pollMu   sync.Mutex
	lastPath string
	project  string
	lastSave time.Time

	wg      sync.WaitGroup
	now     func() time.Time
	logger  *slog.Logger
	skipLog rate.Sometimes
}

// New builds a Coordinator. Call Register to wire it to a classifier and
// Run to start its background loops.
func New(d Deps) *Coordinator {
	if d.Settings == nil {
		d.Settings = codelet.NewSettings(nil)
	}
	if d.Lock == nil {
		d.Lock = interaction.NewLock(d.Settings.Load().Interaction.UnlockDelay.Duration)
	}
	recent := gather.NewRecentFiles()
	return &Coordinator{
		settings: d.Settings,
		state:    d.Editor,
		ctrl:     d.Editor,
		tr:       d.Transport,
		lock:     d.Lock,
		symbols:  d.Symbols,
		gatherer: gather.NewGatherer(d.Editor, d.Lock, d.Symbols, recent),
		recent:   recent,
		projects: gather.NewProjects(),
		cache:    completion.NewCache(),
		tracked:  make(map[string]*completion.EditedCompletion),
		now:      time.Now,
		logger:   slog.Default(),
		skipLog:  rate.Sometimes{First: 1, Interval: 30 * time.Second},
	}
}

// Register installs the interaction handlers on cl and the response
// handlers on the transport.
func (c *Coordinator) Register(cl *interaction.Classifier) {
	handlers := map[interaction.Kind]interaction.Handler{
		interaction.KindNormalInput:       c.onNormalInput,
		interaction.KindDeleteInput:       c.onDeleteInput,
		interaction.KindCompletionAccept:  c.onAccept,
		interaction.KindCompletionCancel:  c.onCancel,
		interaction.KindEnterInput:        c.onEnter,
		interaction.KindNavigateWithKey:   c.onCancelling,
		interaction.KindNavigateWithMouse: c.onMouse,
		interaction.KindPaste:             c.onPaste,
		interaction.KindSave:              c.onCancelling,
		interaction.KindUndo:              c.onCancelling,
		interaction.KindSelectionReplace:  c.onSelectionReplace,
		interaction.KindSelectionPublish:  c.onSelectionPublish,
		interaction.KindCommit:            c.onCommit,
		interaction.KindWindowChange:      c.onWindow,
	}
	for kind, h := range handlers {
		cl.On(kind, counted(kind, h))
	}
	c.tr.Handle(codelet.ActionCompletionGenerate, c.onGenerateResult)
	c.tr.Handle(codelet.ActionEditorPaste, c.onGenerateResult)
}

func counted(kind interaction.Kind, h interaction.Handler) interaction.Handler {
	label := kind.String()
	return func(in interaction.Interaction) (bool, error) {
		interactionsTotal.WithLabelValues(label).Inc()
		return h(in)
	}
}

// Run drives the background loops until ctx is done.
func (c *Coordinator) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.every(ctx, retrieveInterval, c.retrieveTick) })
	g.Go(func() error { return c.every(ctx, reportInterval, c.reportTick) })
	g.Go(func() error { return c.every(ctx, sampleInterval, c.sampleTick) })
	g.Go(func() error { return c.every(ctx, caretInterval, c.caretTick) })
	g.Go(func() error { return c.every(ctx, autoSaveInterval, c.autoSaveTick) })
	err := g.Wait()
	c.wg.Wait()
	return err
}

// Close releases the caches. Run must have returned.
func (c *Coordinator) Close() {
	c.recent.Close()
	c.projects.Close()
}

// every calls fn every interval until ctx is done. A panicking iteration is
// logged and the loop continues.
func (c *Coordinator) every(ctx context.Context, interval time.Duration, fn func(context.Context)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			func() {
				defer func() {
					if r := recover(); r != nil {
						slog.Error("poll iteration panicked", "panic", r)
					}
				}()
				fn(ctx)
			}()
		}
	}
}

// send writes msg to the backend, logging failures.
func (c *Coordinator) send(msg codelet.Message) {
	if err := c.tr.Send(msg); err != nil {
		c.logger.Debug("message not sent", "action", msg.Action(), "error", err)
	}
}

// Pending returns the pending suggestion text from the cursor on, and
// whether one exists.
func (c *Coordinator) Pending() (string, bool) {
	if !c.cache.Valid() {
		return "", false
	}
	c.cacheMu.RLock()
	defer c.cacheMu.RUnlock()
	rest := c.cache.Remaining()
	return rest, rest != ""
}

// takePending clears the cache and returns the completions it belonged to,
// or nil when nothing was pending.
func (c *Coordinator) takePending() *completion.Completions {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	prev, _ := c.cache.Reset("")
	comps := c.completions
	c.completions = nil
	if prev == "" {
		return nil
	}
	return comps
}

// cancel dismisses the pending suggestion and reports whether there was one.
func (c *Coordinator) cancel(explicit bool) bool {
	comps := c.takePending()
	if comps == nil {
		return false
	}
	c.send(codelet.CompletionCancel{ActionID: comps.ActionID(), Explicit: explicit})
	c.react(comps.ActionID(), false)
	suggestionsTotal.WithLabelValues("cancelled").Inc()
	return true
}

// accepted reports acceptance of comps to the backend and the tracker.
func (c *Coordinator) accepted(comps *completion.Completions) {
	c.send(codelet.CompletionAccept{ActionID: comps.ActionID(), Index: comps.Index()})
	c.react(comps.ActionID(), true)
	suggestionsTotal.WithLabelValues("accepted").Inc()
}

// install makes comps the pending suggestion, cancelling any older one, and
// starts tracking it in the focused window.
func (c *Coordinator) install(comps *completion.Completions) {
	c.cacheMu.Lock()
	prevContent, _ := c.cache.Reset(comps.Current())
	prev := c.completions
	c.completions = comps
	c.cacheMu.Unlock()

	if prevContent != "" && prev != nil {
		c.send(codelet.CompletionCancel{ActionID: prev.ActionID()})
		c.react(prev.ActionID(), false)
		suggestionsTotal.WithLabelValues("cancelled").Inc()
	}
	suggestionsTotal.WithLabelValues("shown").Inc()

	if window, ok := c.ctrl.CurrentWindow(); ok {
		if caret, err := c.state.CaretPosition(); err == nil {
			e := completion.NewEditedCompletion(comps.ActionID(), window, comps.Current(), caret.Line)
			e.SetClock(c.now)
			c.trackMu.Lock()
			c.tracked[comps.ActionID()] = e
			c.trackMu.Unlock()
		}
	}
	c.announce(comps)
}

// announce tells the backend where the current candidate is displayed.
func (c *Coordinator) announce(comps *completion.Completions) {
	dims, err := c.state.CaretDimensions()
	if err != nil && !errors.Is(err, codelet.ErrNoWindow) {
		c.logger.Debug("caret dimensions unavailable", "error", err)
	}
	c.send(codelet.CompletionSelect{ActionID: comps.ActionID(), Index: comps.Index(), Dimensions: dims})
}

// react records the first disposition of a tracked suggestion.
func (c *Coordinator) react(actionID string, accept bool) {
	c.trackMu.Lock()
	defer c.trackMu.Unlock()
	if e, ok := c.tracked[actionID]; ok && !e.Reacted() {
		e.React(accept)
	}
}

// shiftLines applies a line insertion (count > 0) or removal (count < 0) at
// line to every tracked suggestion in the focused window.
func (c *Coordinator) shiftLines(line, count int) {
	if count == 0 {
		return
	}
	window, ok := c.ctrl.CurrentWindow()
	if !ok {
		return
	}
	c.trackMu.Lock()
	defer c.trackMu.Unlock()
	for _, e := range c.tracked {
		if e.Window != window {
			continue
		}
		if count > 0 {
			e.AddLine(line, count)
		} else {
			e.RemoveLine(line, -count)
		}
	}
}

// Tracked returns the action ids currently tracked.
func (c *Coordinator) Tracked() []string {
	c.trackMu.RLock()
	defer c.trackMu.RUnlock()
	ids := make([]string, 0, len(c.tracked))
	for id := range c.tracked {
		ids = append(ids, id)
	}
	return ids
}
