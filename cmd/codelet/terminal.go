package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"golang.org/x/term"

	"github.com/Paranoid-AF/codelet/interaction"
)

// ErrQuit is returned when the user presses Ctrl-Q or Ctrl-C.
var ErrQuit = errors.New("quit")

// Terminal reads raw key presses from /dev/tty so it works even when stdout
// is redirected.
type Terminal struct {
	tty      *os.File
	oldState *term.State
	in       *bufio.Reader
}

// OpenTerminal opens /dev/tty and switches it to raw mode.
func OpenTerminal() (*Terminal, error) {
	tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open /dev/tty: %w", err)
	}

	old, err := term.MakeRaw(int(tty.Fd()))
	if err != nil {
		tty.Close()
		return nil, fmt.Errorf("raw mode: %w", err)
	}

	return &Terminal{tty: tty, oldState: old, in: bufio.NewReader(tty)}, nil
}

// Close restores terminal state and closes the tty fd.
func (t *Terminal) Close() {
	fmt.Fprint(t.tty, "\x1b[2J\x1b[H")
	term.Restore(int(t.tty.Fd()), t.oldState)
	t.tty.Close()
}

// Writer returns the tty for drawing.
func (t *Terminal) Writer() io.Writer { return t.tty }

// Size returns the terminal width and height, with a fallback of 80x24.
func (t *Terminal) Size() (width, height int) {
	w, h, err := term.GetSize(int(t.tty.Fd()))
	if err != nil || w <= 0 || h <= 0 {
		return 80, 24
	}
	return w, h
}

// ReadKey blocks for the next key press.
func (t *Terminal) ReadKey() (interaction.KeyEvent, error) {
	return decodeKey(t.in)
}

// decodeKey decodes one key press from raw terminal input.
func decodeKey(in *bufio.Reader) (interaction.KeyEvent, error) {
	b, err := in.ReadByte()
	if err != nil {
		return interaction.KeyEvent{}, err
	}

	switch b {
	case 3, 17: // Ctrl-C, Ctrl-Q
		return interaction.KeyEvent{}, ErrQuit
	case 9:
		return interaction.KeyEvent{Key: interaction.KeyTab}, nil
	case 13, 10:
		return interaction.KeyEvent{Key: interaction.KeyEnter}, nil
	case 127, 8: // Backspace / Ctrl-H
		return interaction.KeyEvent{Key: interaction.KeyBackspace}, nil
	case 27:
		return decodeEscape(in)
	}

	if b < 32 {
		// Ctrl-A is 1, Ctrl-Z is 26.
		return interaction.KeyEvent{Key: interaction.KeyRune, Rune: rune('a' + b - 1), Mods: interaction.ModCtrl}, nil
	}
	r, err := readRune(in, b)
	if err != nil {
		return interaction.KeyEvent{}, err
	}
	return interaction.KeyEvent{Key: interaction.KeyRune, Rune: r}, nil
}

// decodeEscape handles input after ESC: a lone Escape, Alt+key, or a CSI
// sequence.
func decodeEscape(in *bufio.Reader) (interaction.KeyEvent, error) {
	if in.Buffered() == 0 {
		return interaction.KeyEvent{Key: interaction.KeyEscape}, nil
	}
	b, err := in.ReadByte()
	if err != nil {
		return interaction.KeyEvent{}, err
	}
	if b != '[' && b != 'O' {
		r, err := readRune(in, b)
		if err != nil {
			return interaction.KeyEvent{}, err
		}
		return interaction.KeyEvent{Key: interaction.KeyRune, Rune: r, Mods: interaction.ModAlt}, nil
	}

	b, err = in.ReadByte()
	if err != nil {
		return interaction.KeyEvent{}, err
	}
	switch b {
	case 'A':
		return interaction.KeyEvent{Key: interaction.KeyUp}, nil
	case 'B':
		return interaction.KeyEvent{Key: interaction.KeyDown}, nil
	case 'C':
		return interaction.KeyEvent{Key: interaction.KeyRight}, nil
	case 'D':
		return interaction.KeyEvent{Key: interaction.KeyLeft}, nil
	case 'H':
		return interaction.KeyEvent{Key: interaction.KeyHome}, nil
	case 'F':
		return interaction.KeyEvent{Key: interaction.KeyEnd}, nil
	}

	// \x1b[N~ forms.
	if b >= '1' && b <= '6' {
		if next, err := in.ReadByte(); err != nil || next != '~' {
			return interaction.KeyEvent{}, err
		}
		switch b {
		case '1':
			return interaction.KeyEvent{Key: interaction.KeyHome}, nil
		case '3':
			return interaction.KeyEvent{Key: interaction.KeyDelete}, nil
		case '4':
			return interaction.KeyEvent{Key: interaction.KeyEnd}, nil
		case '5':
			return interaction.KeyEvent{Key: interaction.KeyPageUp}, nil
		case '6':
			return interaction.KeyEvent{Key: interaction.KeyPageDown}, nil
		}
	}
	return interaction.KeyEvent{}, nil
}

// readRune completes the UTF-8 sequence that starts with lead.
func readRune(in *bufio.Reader, lead byte) (rune, error) {
	if lead < utf8.RuneSelf {
		return rune(lead), nil
	}
	buf := []byte{lead}
	for len(buf) < utf8.UTFMax && !utf8.FullRune(buf) {
		b, err := in.ReadByte()
		if err != nil {
			return 0, err
		}
		buf = append(buf, b)
	}
	r, _ := utf8.DecodeRune(buf)
	return r, nil
}
