package coordinate

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Paranoid-AF/codelet"
	"github.com/Paranoid-AF/codelet/completion"
	"github.com/Paranoid-AF/codelet/editor"
	"github.com/Paranoid-AF/codelet/interaction"
	"github.com/Paranoid-AF/codelet/transport"
)

type fakeTransport struct {
	mu       sync.Mutex
	sent     []codelet.Message
	handlers map[string]transport.HandlerFunc
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{handlers: make(map[string]transport.HandlerFunc)}
}

func (f *fakeTransport) Send(msg codelet.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeTransport) Handle(action string, h transport.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[action] = h
}

func (f *fakeTransport) deliver(t *testing.T, action string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	f.mu.Lock()
	h := f.handlers[action]
	f.mu.Unlock()
	if h == nil {
		t.Fatalf("no handler for %s", action)
	}
	h(data)
}

func (f *fakeTransport) messages() []codelet.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]codelet.Message(nil), f.sent...)
}

func (f *fakeTransport) clear() {
	f.mu.Lock()
	f.sent = nil
	f.mu.Unlock()
}

// sentOf returns the messages of type T in send order.
func sentOf[T codelet.Message](f *fakeTransport) []T {
	var out []T
	for _, m := range f.messages() {
		if v, ok := m.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Add(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type stubSymbols struct {
	mu    sync.Mutex
	roots []string
}

func (s *stubSymbols) Symbols(context.Context, string, string) ([]codelet.Symbol, error) {
	return nil, nil
}

func (s *stubSymbols) UpdateIndexRoot(path string) {
	s.mu.Lock()
	s.roots = append(s.roots, path)
	s.mu.Unlock()
}

type harness struct {
	co    *Coordinator
	cl    *interaction.Classifier
	mem   *editor.Memory
	tr    *fakeTransport
	clock *fakeClock
	syms  *stubSymbols
	dir   string
}

// newHarness opens a 20-line empty document in window 1.
func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	mem := editor.NewMemory(1, filepath.Join(dir, "main.c"), strings.Repeat("\n", 19))
	tr := newFakeTransport()
	lock := interaction.NewLock(time.Millisecond)
	syms := &stubSymbols{}
	co := New(Deps{Editor: mem, Transport: tr, Lock: lock, Symbols: syms})
	t.Cleanup(func() {
		co.Wait()
		co.Close()
	})
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	co.SetClock(clock.Now)

	cl := interaction.NewClassifier(mem, mem, lock)
	co.Register(cl)
	return &harness{co: co, cl: cl, mem: mem, tr: tr, clock: clock, syms: syms, dir: dir}
}

// key sends a key press and applies it to the document when it passes through.
func (h *harness) key(r rune) interaction.Result {
	res := h.cl.Handle(interaction.KeyEvent{Key: interaction.KeyRune, Rune: r})
	if res == interaction.Passthrough {
		h.mem.TypeRune(r)
	}
	return res
}

func (h *harness) suggest(t *testing.T, id string, candidates ...string) {
	t.Helper()
	h.tr.deliver(t, codelet.ActionCompletionGenerate, codelet.GenerateResult{
		Result:      codelet.ResultSuccess,
		ActionID:    id,
		Completions: &codelet.Candidates{Type: "completion", Candidates: candidates},
	})
}

func TestNeedsRetrieve(t *testing.T) {
	tests := []struct {
		line string
		ch   rune
		want bool
	}{
		{"for (int i = 0; i < 10; i++);", ';', true},
		{"int x = 5;", ';', false},
		{"while (x)", ';', true},
		{"format(x)", ';', false},
		{"if (x) {", '{', false},
		{"}", '}', false},
		{"", 'a', true},
		{"int x", ' ', true},
	}
	for _, tt := range tests {
		if got := NeedsRetrieve(tt.line, tt.ch); got != tt.want {
			t.Errorf("NeedsRetrieve(%q, %q) = %v, want %v", tt.line, tt.ch, got, tt.want)
		}
	}
}

func TestInstallSelectsCandidate(t *testing.T) {
	h := newHarness(t)
	h.mem.SetCaret(3, 0)
	h.suggest(t, "a1", "foo_bar();", "foo();")

	sel := sentOf[codelet.CompletionSelect](h.tr)
	if len(sel) != 1 || sel[0].ActionID != "a1" || sel[0].Index != 0 {
		t.Fatalf("select = %+v", sel)
	}
	if rest, ok := h.co.Pending(); !ok || rest != "foo_bar();" {
		t.Errorf("Pending() = %q, %v", rest, ok)
	}
	if ids := h.co.Tracked(); !slices.Equal(ids, []string{"a1"}) {
		t.Errorf("tracked = %v", ids)
	}
}

func TestTypingMatchingCharacter(t *testing.T) {
	h := newHarness(t)
	h.suggest(t, "a1", "foo_bar();")
	h.tr.clear()

	if res := h.key('f'); res != interaction.Passthrough {
		t.Fatalf("result = %v", res)
	}
	if got := sentOf[codelet.CompletionCache](h.tr); len(got) != 1 || got[0].IsDelete {
		t.Errorf("cache acks = %+v", got)
	}
	if got := sentOf[codelet.CompletionCancel](h.tr); len(got) != 0 {
		t.Errorf("unexpected cancel %+v", got)
	}
	if rest, _ := h.co.Pending(); rest != "oo_bar();" {
		t.Errorf("Pending() = %q", rest)
	}
}

func TestTypingMismatchCancelsAndArms(t *testing.T) {
	h := newHarness(t)
	h.suggest(t, "a1", "foo_bar();")
	h.tr.clear()

	h.key('x')
	cancels := sentOf[codelet.CompletionCancel](h.tr)
	if len(cancels) != 1 || cancels[0] != (codelet.CompletionCancel{ActionID: "a1", Explicit: false}) {
		t.Fatalf("cancels = %+v", cancels)
	}
	if _, ok := h.co.Pending(); ok {
		t.Error("suggestion still pending")
	}

	ctx := context.Background()
	h.co.retrieveTick(ctx)
	if got := sentOf[*codelet.CompletionGenerate](h.tr); len(got) != 0 {
		t.Fatal("generated before the debounce window passed")
	}

	h.clock.Add(200 * time.Millisecond)
	h.co.retrieveTick(ctx)
	gens := sentOf[*codelet.CompletionGenerate](h.tr)
	if len(gens) != 1 {
		t.Fatalf("generate requests = %d", len(gens))
	}
	if gens[0].Context.Infix != "x" || gens[0].Caret.Character != 1 {
		t.Errorf("request = %+v", gens[0])
	}
	if h.mem.Status() != StatusGenerating {
		t.Errorf("status = %q", h.mem.Status())
	}

	h.co.retrieveTick(ctx)
	if got := sentOf[*codelet.CompletionGenerate](h.tr); len(got) != 1 {
		t.Errorf("generated %d times for one edit", len(got))
	}
}

func TestBraceDoesNotArm(t *testing.T) {
	h := newHarness(t)
	h.key('{')
	h.clock.Add(time.Second)
	h.co.retrieveTick(context.Background())
	if got := sentOf[*codelet.CompletionGenerate](h.tr); len(got) != 0 {
		t.Errorf("generate sent after '{'")
	}
}

func TestExhaustionIsImplicitAccept(t *testing.T) {
	h := newHarness(t)
	h.suggest(t, "a1", "ab")
	h.tr.clear()

	h.key('a')
	h.key('b')
	accepts := sentOf[codelet.CompletionAccept](h.tr)
	if len(accepts) != 1 || accepts[0] != (codelet.CompletionAccept{ActionID: "a1", Index: 0}) {
		t.Fatalf("accepts = %+v", accepts)
	}
	if _, ok := h.co.Pending(); ok {
		t.Error("cache not reset after exhaustion")
	}
	if got := h.mem.Text(); !strings.HasPrefix(got, "ab\n") {
		t.Errorf("text = %q", got)
	}
}

func TestAcceptInsertsRemainder(t *testing.T) {
	h := newHarness(t)
	h.suggest(t, "a1", "foo()")
	h.key('f')
	h.mem.SetPopup(true)
	h.tr.clear()

	if res := h.cl.Handle(interaction.KeyEvent{Key: interaction.KeyTab}); res != interaction.Consumed {
		t.Fatalf("Tab result = %v", res)
	}
	if line, _ := h.mem.LineContent(0); line != "foo()" {
		t.Errorf("line = %q", line)
	}
	accepts, cancels, _ := h.mem.Keystrokes()
	if accepts != 1 || cancels != 1 {
		t.Errorf("keystrokes accept=%d cancel=%d", accepts, cancels)
	}
	if got := sentOf[codelet.CompletionAccept](h.tr); len(got) != 1 || got[0].ActionID != "a1" {
		t.Errorf("accepts = %+v", got)
	}

	if res := h.cl.Handle(interaction.KeyEvent{Key: interaction.KeyTab}); res != interaction.Passthrough {
		t.Errorf("Tab without suggestion = %v", res)
	}
}

func TestEscapeCancels(t *testing.T) {
	h := newHarness(t)
	if res := h.cl.Handle(interaction.KeyEvent{Key: interaction.KeyEscape}); res != interaction.Passthrough {
		t.Errorf("Escape without suggestion = %v", res)
	}
	h.suggest(t, "a1", "foo()")
	if res := h.cl.Handle(interaction.KeyEvent{Key: interaction.KeyEscape}); res != interaction.Consumed {
		t.Errorf("Escape = %v", res)
	}
	if got := sentOf[codelet.CompletionCancel](h.tr); len(got) != 1 || got[0].Explicit {
		t.Errorf("cancels = %+v", got)
	}

	h.suggest(t, "a2", "bar()")
	h.cl.Handle(interaction.KeyEvent{Key: interaction.KeyDelete})
	cancels := sentOf[codelet.CompletionCancel](h.tr)
	if last := cancels[len(cancels)-1]; last != (codelet.CompletionCancel{ActionID: "a2", Explicit: true}) {
		t.Errorf("delete cancel = %+v", last)
	}
}

func TestBackspaceStepsBack(t *testing.T) {
	h := newHarness(t)
	h.mem.SetCaret(1, 0)
	h.suggest(t, "a1", "foo()")
	h.key('f')
	h.key('o')
	h.tr.clear()

	h.cl.Handle(interaction.KeyEvent{Key: interaction.KeyBackspace})
	h.mem.Backspace()
	if got := sentOf[codelet.CompletionCache](h.tr); len(got) != 1 || !got[0].IsDelete {
		t.Fatalf("acks = %+v", got)
	}
	if rest, _ := h.co.Pending(); rest != "oo()" {
		t.Errorf("Pending() = %q", rest)
	}

	h.cl.Handle(interaction.KeyEvent{Key: interaction.KeyBackspace})
	h.mem.Backspace()
	if rest, _ := h.co.Pending(); rest != "foo()" {
		t.Errorf("Pending() = %q", rest)
	}

	// At column 0 the deletion merges lines and always cancels.
	h.cl.Handle(interaction.KeyEvent{Key: interaction.KeyBackspace})
	if _, ok := h.co.Pending(); ok {
		t.Error("suggestion survived a line merge")
	}
	if got := sentOf[codelet.CompletionCancel](h.tr); len(got) != 1 {
		t.Errorf("cancels = %+v", got)
	}
}

func TestBackspaceMergeShiftsTracked(t *testing.T) {
	h := newHarness(t)
	h.co.tracked["t"] = completion.NewEditedCompletion("t", 1, "x\ny", 10)
	h.mem.SetCaret(5, 0)
	h.cl.Handle(interaction.KeyEvent{Key: interaction.KeyBackspace})
	if got := h.co.tracked["t"].References(); !slices.Equal(got, []int{9, 10}) {
		t.Errorf("references = %v", got)
	}
}

func TestBackspaceDoesNotArmRetrieval(t *testing.T) {
	h := newHarness(t)
	h.mem.SetCaret(1, 0)
	h.mem.TypeRune('a')
	h.cl.Handle(interaction.KeyEvent{Key: interaction.KeyBackspace})
	h.clock.Add(time.Second)
	h.co.retrieveTick(context.Background())
	if got := sentOf[*codelet.CompletionGenerate](h.tr); len(got) != 0 {
		t.Error("backspace scheduled a generation")
	}
}

func TestPasteShiftsTracked(t *testing.T) {
	h := newHarness(t)
	h.co.tracked["t"] = completion.NewEditedCompletion("t", 1, "x\ny", 10)
	h.mem.SetCaret(10, 0)
	h.mem.SetClipboard("a\nb\nc\n")

	h.cl.Handle(interaction.KeyEvent{Key: interaction.KeyRune, Rune: 'v', Mods: interaction.ModCtrl})
	if got := h.co.tracked["t"].References(); !slices.Equal(got, []int{13, 14}) {
		t.Errorf("references = %v", got)
	}

	h.co.Wait()
	pastes := sentOf[*codelet.EditorPaste](h.tr)
	if len(pastes) != 1 || pastes[0].Clipboard != "a\nb\nc\n" {
		t.Fatalf("paste requests = %+v", pastes)
	}

	// Paste results are not stale unless typing resumed.
	h.tr.deliver(t, codelet.ActionEditorPaste, codelet.GenerateResult{
		Result:      codelet.ResultSuccess,
		ActionID:    "p1",
		Completions: &codelet.Candidates{Candidates: []string{"d"}},
	})
	if rest, ok := h.co.Pending(); !ok || rest != "d" {
		t.Errorf("Pending() = %q, %v", rest, ok)
	}
}

func TestPasteMidLine(t *testing.T) {
	h := newHarness(t)
	h.co.tracked["t"] = completion.NewEditedCompletion("t", 1, "x\ny", 10)
	h.mem.SetCaret(10, 0)
	h.mem.TypeRune('z')
	h.mem.SetClipboard("a\nb")

	h.cl.Handle(interaction.KeyEvent{Key: interaction.KeyRune, Rune: 'v', Mods: interaction.ModCtrl})
	if got := h.co.tracked["t"].References(); !slices.Equal(got, []int{10, 12}) {
		t.Errorf("references = %v", got)
	}
}

func TestEnterShiftsTracked(t *testing.T) {
	h := newHarness(t)
	h.co.tracked["t"] = completion.NewEditedCompletion("t", 1, "x\ny", 10)
	h.mem.SetCaret(10, 0)
	h.mem.TypeRune('z')

	h.cl.Handle(interaction.KeyEvent{Key: interaction.KeyEnter})
	if got := h.co.tracked["t"].References(); !slices.Equal(got, []int{10, 12}) {
		t.Errorf("references = %v", got)
	}

	h.mem.SetCaret(4, 0)
	h.cl.Handle(interaction.KeyEvent{Key: interaction.KeyEnter})
	if got := h.co.tracked["t"].References(); !slices.Equal(got, []int{11, 13}) {
		t.Errorf("references = %v", got)
	}
}

func TestSelectionReplaceShiftsTracked(t *testing.T) {
	h := newHarness(t)
	h.co.tracked["t"] = completion.NewEditedCompletion("t", 1, "x\ny", 10)
	h.mem.SetCaret(5, 0)
	h.mem.Select(2, 0)

	h.key('q')
	if got := h.co.tracked["t"].References(); !slices.Equal(got, []int{7, 8}) {
		t.Errorf("references = %v", got)
	}
}

func TestShiftIgnoresOtherWindows(t *testing.T) {
	h := newHarness(t)
	h.co.tracked["t"] = completion.NewEditedCompletion("t", 2, "x", 10)
	h.mem.SetCaret(0, 0)
	h.cl.Handle(interaction.KeyEvent{Key: interaction.KeyEnter})
	if got := h.co.tracked["t"].References(); !slices.Equal(got, []int{10}) {
		t.Errorf("references = %v", got)
	}
}

func TestStaleResultDropped(t *testing.T) {
	h := newHarness(t)
	h.key('x')
	h.tr.clear()

	h.suggest(t, "old", "foo()")
	cancels := sentOf[codelet.CompletionCancel](h.tr)
	if len(cancels) != 1 || cancels[0] != (codelet.CompletionCancel{ActionID: "old", Explicit: true}) {
		t.Fatalf("cancels = %+v", cancels)
	}
	if got := sentOf[codelet.CompletionSelect](h.tr); len(got) != 0 {
		t.Errorf("stale result selected: %+v", got)
	}
	if _, ok := h.co.Pending(); ok {
		t.Error("stale result installed")
	}
	if len(h.co.Tracked()) != 0 {
		t.Error("stale result tracked")
	}
}

func TestReplyToSupersededRequestDropped(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.key('a')
	h.clock.Add(200 * time.Millisecond)
	h.co.retrieveTick(ctx)
	h.key('b')
	h.clock.Add(200 * time.Millisecond)
	h.co.retrieveTick(ctx)
	if got := sentOf[*codelet.CompletionGenerate](h.tr); len(got) != 2 {
		t.Fatalf("generate requests = %d", len(got))
	}
	h.tr.clear()

	// Reply to the first request arrives after the second went out.
	h.suggest(t, "r1", "stale()")
	if rest, ok := h.co.Pending(); ok {
		t.Fatalf("superseded reply installed: %q", rest)
	}
	if ids := h.co.Tracked(); len(ids) != 0 {
		t.Errorf("tracked = %v", ids)
	}
	cancels := sentOf[codelet.CompletionCancel](h.tr)
	if len(cancels) != 1 || cancels[0] != (codelet.CompletionCancel{ActionID: "r1", Explicit: true}) {
		t.Errorf("cancels = %+v", cancels)
	}

	h.suggest(t, "r2", "fresh()")
	if rest, ok := h.co.Pending(); !ok || rest != "fresh()" {
		t.Errorf("Pending() = %q, %v", rest, ok)
	}
}

func TestReplyAfterTypingResumedDropped(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.key('a')
	h.clock.Add(200 * time.Millisecond)
	h.co.retrieveTick(ctx)
	h.key('b')

	h.suggest(t, "r1", "stale()")
	if _, ok := h.co.Pending(); ok {
		t.Error("reply installed after typing resumed")
	}
}

func TestLostReplySlotExpires(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// The reply to this request is never delivered.
	h.key('a')
	h.clock.Add(200 * time.Millisecond)
	h.co.retrieveTick(ctx)

	h.clock.Add(replyTimeout + time.Second)
	h.key('b')
	h.clock.Add(200 * time.Millisecond)
	h.co.retrieveTick(ctx)

	h.suggest(t, "r2", "fresh()")
	if rest, ok := h.co.Pending(); !ok || rest != "fresh()" {
		t.Errorf("Pending() = %q, %v", rest, ok)
	}
}

func TestNewerResultReplacesOlder(t *testing.T) {
	h := newHarness(t)
	h.suggest(t, "a1", "foo()")
	h.tr.clear()
	h.suggest(t, "a2", "bar()")

	msgs := h.tr.messages()
	if len(msgs) != 2 {
		t.Fatalf("messages = %+v", msgs)
	}
	if c, ok := msgs[0].(codelet.CompletionCancel); !ok || c.ActionID != "a1" || c.Explicit {
		t.Errorf("first = %+v", msgs[0])
	}
	if s, ok := msgs[1].(codelet.CompletionSelect); !ok || s.ActionID != "a2" {
		t.Errorf("second = %+v", msgs[1])
	}
}

func TestFailedResult(t *testing.T) {
	h := newHarness(t)
	h.mem.SetStatusText(StatusGenerating)
	h.tr.deliver(t, codelet.ActionCompletionGenerate, codelet.GenerateResult{Result: "error", Message: "boom", ActionID: "a1"})
	if h.mem.Status() != "" {
		t.Errorf("status = %q", h.mem.Status())
	}
	if len(h.tr.messages()) != 0 {
		t.Errorf("messages = %+v", h.tr.messages())
	}

	h.suggest(t, "a2")
	if _, ok := h.co.Pending(); ok {
		t.Error("empty candidate list installed")
	}
}

func TestReportAfterDelay(t *testing.T) {
	h := newHarness(t)
	h.mem.SetCaret(2, 0)
	h.suggest(t, "a1", "foo()")
	h.key('f')
	h.cl.Handle(interaction.KeyEvent{Key: interaction.KeyTab})
	h.tr.clear()

	ctx := context.Background()
	h.clock.Add(5 * time.Second)
	h.co.reportTick(ctx)
	if got := sentOf[codelet.CompletionEdit](h.tr); len(got) != 0 {
		t.Fatalf("reported early: %+v", got)
	}

	h.clock.Add(6 * time.Second)
	h.co.reportTick(ctx)
	edits := sentOf[codelet.CompletionEdit](h.tr)
	want := codelet.CompletionEdit{ActionID: "a1", Count: 1, EditedContent: "foo()", Ratio: codelet.RatioAll}
	if len(edits) != 1 || edits[0] != want {
		t.Fatalf("edits = %+v", edits)
	}
	if len(h.co.Tracked()) != 0 {
		t.Error("reported entry still tracked")
	}
}

func TestReportRejected(t *testing.T) {
	h := newHarness(t)
	h.suggest(t, "a1", "foo()\nbar()")
	h.key('x')
	h.clock.Add(11 * time.Second)

	h.mem.Focus(false)
	h.co.reportTick(context.Background())
	if got := sentOf[codelet.CompletionEdit](h.tr); len(got) != 0 {
		t.Fatal("reported while unfocused")
	}

	h.mem.Focus(true)
	h.co.reportTick(context.Background())
	edits := sentOf[codelet.CompletionEdit](h.tr)
	if len(edits) != 1 || edits[0].Ratio != codelet.RatioNone || edits[0].Count != 2 {
		t.Errorf("edits = %+v", edits)
	}
}

func TestUnreportedEntryExpires(t *testing.T) {
	h := newHarness(t)
	h.suggest(t, "a1", "foo()")
	h.key('x')
	h.mem.Focus(false)
	h.tr.clear()

	h.clock.Add(completion.ReportDelay + time.Second)
	h.co.reportTick(context.Background())
	if ids := h.co.Tracked(); len(ids) != 1 {
		t.Fatalf("tracked = %v", ids)
	}

	h.clock.Add(completion.MaxAge)
	h.co.reportTick(context.Background())
	if ids := h.co.Tracked(); len(ids) != 0 {
		t.Errorf("expired entry still tracked: %v", ids)
	}
	if got := sentOf[codelet.CompletionEdit](h.tr); len(got) != 0 {
		t.Errorf("expired entry reported: %+v", got)
	}
}

func TestFirstReactionWins(t *testing.T) {
	h := newHarness(t)
	h.suggest(t, "a1", "foo()")
	h.co.react("a1", true)
	h.co.react("a1", false)
	if e := h.co.tracked["a1"]; !e.Accepted() {
		t.Error("later rejection overwrote the acceptance")
	}
}

func TestPollPanicLogged(t *testing.T) {
	h := newHarness(t)
	var buf bytes.Buffer
	h.co.SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	calls := 0
	err := h.co.every(ctx, time.Millisecond, func(context.Context) {
		calls++
		if calls == 1 {
			panic("boom")
		}
		cancel()
	})
	if err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want loop to continue after panic", calls)
	}
	if !strings.Contains(buf.String(), "poll iteration panicked") {
		t.Errorf("log = %q", buf.String())
	}
}

func TestManualShortcutRearms(t *testing.T) {
	h := newHarness(t)
	if err := h.cl.SetShortcuts("", "alt+\\"); err != nil {
		t.Fatal(err)
	}
	res := h.cl.Handle(interaction.KeyEvent{Key: interaction.KeyRune, Rune: '\\', Mods: interaction.ModAlt})
	if res != interaction.Consumed {
		t.Fatalf("result = %v", res)
	}
	h.co.retrieveTick(context.Background())
	if got := sentOf[*codelet.CompletionGenerate](h.tr); len(got) != 1 {
		t.Errorf("generate requests = %d", len(got))
	}
}

func TestCommitSendsProjectRoot(t *testing.T) {
	h := newHarness(t)
	if err := os.WriteFile(filepath.Join(h.dir, "go.mod"), []byte("module x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := h.cl.SetShortcuts("ctrl+alt+c", ""); err != nil {
		t.Fatal(err)
	}
	res := h.cl.Handle(interaction.KeyEvent{Key: interaction.KeyRune, Rune: 'c', Mods: interaction.ModCtrl | interaction.ModAlt})
	if res != interaction.Consumed {
		t.Fatalf("result = %v", res)
	}
	commits := sentOf[codelet.EditorCommit](h.tr)
	if len(commits) != 1 || commits[0].Path != h.dir {
		t.Errorf("commits = %+v", commits)
	}
}

func TestCaretTickSwitchesProject(t *testing.T) {
	h := newHarness(t)
	other := t.TempDir()
	for _, dir := range []string{h.dir, other} {
		if err := os.Mkdir(filepath.Join(dir, ".git"), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	ctx := context.Background()
	h.co.caretTick(ctx)
	h.co.caretTick(ctx)
	h.mem.Open(1, filepath.Join(h.dir, "util.c"), "")
	h.co.caretTick(ctx)
	h.mem.Open(1, filepath.Join(other, "lib.c"), "")
	h.co.caretTick(ctx)

	switches := sentOf[codelet.EditorSwitchProject](h.tr)
	if len(switches) != 2 || switches[0].Path != h.dir || switches[1].Path != other {
		t.Errorf("switches = %+v", switches)
	}
	h.syms.mu.Lock()
	defer h.syms.mu.Unlock()
	if !slices.Equal(h.syms.roots, []string{h.dir, other}) {
		t.Errorf("index roots = %v", h.syms.roots)
	}
	if h.co.Project() != other {
		t.Errorf("Project() = %q", h.co.Project())
	}
}

func TestSampleTickRecordsSource(t *testing.T) {
	h := newHarness(t)
	h.co.sampleTick(context.Background())
	h.mem.Open(1, filepath.Join(h.dir, "notes.txt"), "")
	h.co.sampleTick(context.Background())
	if got := h.co.Recent().Top(5, ""); !slices.Equal(got, []string{filepath.Join(h.dir, "main.c")}) {
		t.Errorf("recent = %v", got)
	}
}

func TestAutoSave(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.co.autoSaveTick(ctx)
	h.clock.Add(time.Hour)
	h.co.autoSaveTick(ctx)
	if _, _, saves := h.mem.Keystrokes(); saves != 0 {
		t.Fatalf("saved with auto-save disabled")
	}

	interval := codelet.Duration{Duration: 30 * time.Second}
	h.co.settings.Update(&codelet.ConfigUpdate{Editor: codelet.EditorUpdate{AutoSaveInterval: &interval}})
	h.co.autoSaveTick(ctx)
	h.clock.Add(10 * time.Second)
	h.co.autoSaveTick(ctx)
	h.clock.Add(25 * time.Second)
	h.co.autoSaveTick(ctx)
	if _, _, saves := h.mem.Keystrokes(); saves != 1 {
		t.Errorf("saves = %d", saves)
	}
}

func TestWindowEvents(t *testing.T) {
	h := newHarness(t)
	h.suggest(t, "a1", "foo()")
	h.tr.clear()

	h.cl.Handle(interaction.WindowEvent{Type: interaction.WindowMove, Window: 1})
	if got := sentOf[codelet.CompletionSelect](h.tr); len(got) != 1 || got[0].ActionID != "a1" {
		t.Errorf("reselect = %+v", got)
	}

	h.cl.Handle(interaction.WindowEvent{Type: interaction.WindowKillFocus, Window: 1})
	if _, ok := h.co.Pending(); ok {
		t.Error("suggestion survived focus loss")
	}

	h.cl.Handle(interaction.WindowEvent{Type: interaction.WindowClose, Window: 1})
	if len(h.co.Tracked()) != 0 {
		t.Errorf("tracked = %v", h.co.Tracked())
	}
}

func TestRunStops(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.co.Run(ctx) }()
	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}
