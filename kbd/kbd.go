//go:build !windows

// Package kbd is a keyboard event source reading the controlling
// terminal's stdin in raw mode. It decodes the common escape sequences
// into key events and forwards everything else as text input, which lets
// a development host drive the e-paper terminal from a regular shell.
package kbd

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/inkterm/inkterm"
)

// Keyboard reads raw key input from a file descriptor, normally stdin.
type Keyboard struct {
	fd       int
	in       *os.File
	out      *os.File
	oldState *term.State
	buf      [64]byte
	pending  []byte
}

// Open switches the given terminal into raw mode and hides its cursor.
func Open(in *os.File, out *os.File) (*Keyboard, error) {
	fd := int(in.Fd())
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("kbd: raw mode: %w", err)
	}

	// Switch the hosting terminal to the alternate screen with a hidden
	// cursor so our raw reads do not scribble over the shell.
	fmt.Fprint(out, "\x1b[?1049h\x1b[2J\x1b[?25l")

	return &Keyboard{fd: fd, in: in, out: out, oldState: state}, nil
}

// Close restores the terminal state.
func (k *Keyboard) Close() error {
	fmt.Fprint(k.out, "\x1b[?25h\x1b[?1049l")
	return term.Restore(k.fd, k.oldState)
}

// Fd returns the polled descriptor.
func (k *Keyboard) Fd() int { return k.fd }

// PollMode waits for input.
func (k *Keyboard) PollMode() inkterm.PollMode { return inkterm.PollIn }

// escapeKeys maps the tail of an ESC sequence to a special key.
var escapeKeys = map[string]inkterm.Key{
	"[A":  inkterm.KeyUp,
	"[B":  inkterm.KeyDown,
	"[C":  inkterm.KeyRight,
	"[D":  inkterm.KeyLeft,
	"[H":  inkterm.KeyHome,
	"[F":  inkterm.KeyEnd,
	"[2~": inkterm.KeyInsert,
	"[3~": inkterm.KeyDelete,
	"[5~": inkterm.KeyPageUp,
	"[6~": inkterm.KeyPageDown,
	"OP":  inkterm.KeyF1,
	"OQ":  inkterm.KeyF2,
	"OR":  inkterm.KeyF3,
	"OS":  inkterm.KeyF4,
}

// Poll decodes one event from the input stream. Decoded special keys are
// delivered as key events; everything else passes through as text so the
// child process sees the exact bytes the user typed.
func (k *Keyboard) Poll(mode inkterm.PollMode) (inkterm.Event, bool) {
	if len(k.pending) == 0 {
		n, err := k.in.Read(k.buf[:])
		if n <= 0 || err != nil {
			return inkterm.Event{Type: inkterm.EventQuit}, true
		}
		k.pending = k.buf[:n]
	}

	data := k.pending

	if data[0] == 0x1B && len(data) > 1 {
		// Try the known escape sequences, longest match first.
		for l := min(4, len(data)-1); l >= 1; l-- {
			if key, ok := escapeKeys[string(data[1:1+l])]; ok {
				k.pending = data[1+l:]
				return inkterm.Event{
					Type: inkterm.EventKey,
					Key:  inkterm.KeyEvent{Key: key},
				}, true
			}
		}
	}

	// Forward the rest verbatim, stopping before the next ESC so that
	// sequences split across reads still decode.
	end := len(data)
	for i := 1; i < len(data); i++ {
		if data[i] == 0x1B {
			end = i
			break
		}
	}
	out := make([]byte, end)
	copy(out, data[:end])
	k.pending = data[end:]
	return inkterm.Event{
		Type: inkterm.EventText,
		Text: inkterm.TextEvent{Buf: out},
	}, true
}

var _ inkterm.EventSource = (*Keyboard)(nil)
