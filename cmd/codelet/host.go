package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Paranoid-AF/codelet"
	"github.com/Paranoid-AF/codelet/coordinate"
	"github.com/Paranoid-AF/codelet/editor"
	"github.com/Paranoid-AF/codelet/interaction"
	"github.com/Paranoid-AF/codelet/symbols"
	"github.com/Paranoid-AF/codelet/transport"
)

// docWindow is the handle of the single terminal window.
const docWindow codelet.WindowHandle = 1

const redrawInterval = 50 * time.Millisecond

// hostOptions configures the run command.
type hostOptions struct {
	file        string
	configPath  string
	metricsAddr string
}

// document is the in-memory editor backing a file on disk.
type document struct {
	*editor.Memory
	path string

	// onSave is called with the written contents after each save.
	onSave func(path string, src []byte)
}

func openDocument(path string) (*document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return &document{Memory: editor.NewMemory(docWindow, abs, string(data)), path: abs}, nil
}

// SendSaveKeystroke writes the document back to disk.
func (d *document) SendSaveKeystroke() error {
	if err := d.Memory.SendSaveKeystroke(); err != nil {
		return err
	}
	src := []byte(d.Text())
	if err := os.WriteFile(d.path, src, 0o644); err != nil {
		return err
	}
	if d.onSave != nil {
		d.onSave(d.path, src)
	}
	return nil
}

// apply performs the editor's own action for a key the classifier passed
// through.
func (d *document) apply(ev interaction.KeyEvent) {
	switch ev.Key {
	case interaction.KeyRune:
		switch ev.Mods {
		case 0, interaction.ModShift:
			d.TypeRune(ev.Rune)
		case interaction.ModCtrl:
			d.applyCtrl(ev.Rune)
		}
	case interaction.KeyTab:
		d.TypeRune('\t')
	case interaction.KeyEnter:
		d.Newline()
	case interaction.KeyBackspace:
		d.Backspace()
	case interaction.KeyDelete:
		d.Delete()
	case interaction.KeyUp:
		d.MoveCaret(-1, 0)
	case interaction.KeyDown:
		d.MoveCaret(1, 0)
	case interaction.KeyLeft:
		d.MoveCaret(0, -1)
	case interaction.KeyRight:
		d.MoveCaret(0, 1)
	case interaction.KeyHome:
		d.MoveLineEdge(false)
	case interaction.KeyEnd:
		d.MoveLineEdge(true)
	case interaction.KeyPageUp:
		d.MoveCaret(-pageLines, 0)
	case interaction.KeyPageDown:
		d.MoveCaret(pageLines, 0)
	}
}

const pageLines = 20

func (d *document) applyCtrl(r rune) {
	switch r {
	case 'v':
		d.Paste()
	case 's':
		if err := d.SendSaveKeystroke(); err != nil {
			slog.Warn("save failed", "path", d.path, "error", err)
		}
	case 'k':
		// Copy the caret line.
		caret, err := d.CaretPosition()
		if err != nil {
			return
		}
		if line, err := d.LineContent(caret.Line); err == nil {
			d.SetClipboard(line + "\n")
		}
	}
}

func (d *document) view(co *coordinate.Coordinator, client *transport.Client) view {
	caret, _ := d.CaretPosition()
	pending, _ := co.Pending()
	count, _ := d.LineCount()
	lines := make([]string, 0, count)
	for i := 0; i < count; i++ {
		line, _ := d.LineContent(i)
		lines = append(lines, line)
	}
	return view{
		path:      d.path,
		lines:     lines,
		caret:     caret,
		pending:   pending,
		status:    d.Status(),
		connected: client.Connected(),
	}
}

func runHost(ctx context.Context, opts hostOptions) error {
	cfg, warnings, err := codelet.LoadConfigFrom(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	for _, w := range warnings {
		slog.Warn("config", "warning", w)
	}
	settings := codelet.NewSettings(cfg)

	doc, err := openDocument(opts.file)
	if err != nil {
		return fmt.Errorf("open %s: %w", opts.file, err)
	}

	tty, err := OpenTerminal()
	if err != nil {
		return err
	}
	defer tty.Close()

	lock := interaction.NewLock(cfg.Interaction.UnlockDelay.Duration)
	client := transport.NewClient(cfg.Transport.BackendURL)
	index := symbols.NewIndex()
	defer index.Close()
	doc.onSave = index.UpdateFile

	co := coordinate.New(coordinate.Deps{
		Settings:  settings,
		Editor:    doc,
		Transport: client,
		Lock:      lock,
		Symbols:   index,
	})
	defer co.Close()

	cl := interaction.NewClassifier(doc, doc, lock)
	if err := cl.SetShortcuts(cfg.Interaction.CommitShortcut, cfg.Interaction.ManualCompletionShortcut); err != nil {
		return err
	}
	co.Register(cl)

	settings.OnChange(func(cfg *codelet.Config, changed []string) {
		client.SetURL(cfg.Transport.BackendURL)
		lock.SetDelay(cfg.Interaction.UnlockDelay.Duration)
		if err := cl.SetShortcuts(cfg.Interaction.CommitShortcut, cfg.Interaction.ManualCompletionShortcut); err != nil {
			slog.Warn("shortcuts not updated", "error", err)
		}
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return co.Run(ctx) })
	g.Go(func() error { return cl.Run(ctx) })
	g.Go(func() error { return client.Run(ctx) })
	if _, err := os.Stat(filepath.Dir(opts.configPath)); err == nil {
		g.Go(func() error { return codelet.WatchConfig(ctx, opts.configPath, settings) })
	}
	if opts.metricsAddr != "" {
		g.Go(func() error { return serveDebug(ctx, opts.metricsAddr, client) })
	}

	keys := make(chan interaction.KeyEvent)
	go readKeys(ctx, tty, keys, cancel)
	g.Go(func() error { return drive(ctx, tty, doc, cl, co, client, keys) })

	slog.Info("editing", "path", doc.path, "backend", cfg.Transport.BackendURL)
	return g.Wait()
}

// readKeys forwards key presses until the terminal fails or the user quits.
// The blocking tty read cannot observe ctx, so it runs outside the group.
func readKeys(ctx context.Context, t *Terminal, keys chan<- interaction.KeyEvent, quit context.CancelFunc) {
	defer quit()
	for {
		ev, err := t.ReadKey()
		if err != nil {
			if !errors.Is(err, ErrQuit) && !errors.Is(err, io.EOF) {
				slog.Warn("terminal read failed", "error", err)
			}
			return
		}
		if ev.Key == interaction.KeyRune && ev.Rune == 0 {
			continue
		}
		select {
		case keys <- ev:
		case <-ctx.Done():
			return
		}
	}
}

// drive feeds keys through the classifier, applies the ones it passes
// through, and redraws the screen when it changes.
func drive(ctx context.Context, t *Terminal, doc *document, cl *interaction.Classifier, co *coordinate.Coordinator, client *transport.Client, keys <-chan interaction.KeyEvent) error {
	ticker := time.NewTicker(redrawInterval)
	defer ticker.Stop()

	resize := make(chan os.Signal, 1)
	signal.Notify(resize, syscall.SIGWINCH)
	defer signal.Stop(resize)

	last := ""
	draw := func() {
		w, h := t.Size()
		frame := render(doc.view(co, client), w, h)
		if frame == last {
			return
		}
		last = frame
		io.WriteString(t.Writer(), "\x1b[2J"+frame)
	}

	draw()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-keys:
			if cl.Handle(ev) == interaction.Passthrough {
				doc.apply(ev)
			}
		case <-resize:
			cl.Handle(interaction.WindowEvent{Type: interaction.WindowSize, Window: docWindow})
			last = ""
		case <-ticker.C:
		}
		draw()
	}
}
