package inkterm

import (
	"log/slog"
	"time"
)

// frameIntervalUS is the 60 Hz frame pacing interval in microseconds.
const frameIntervalUS = 16667

// Terminal wires the event sources, the VT driver, the matrix and the
// renderer into a running terminal session.
type Terminal struct {
	sources  []EventSource
	display  *MemoryDisplay
	matrix   *Matrix
	renderer *MatrixRenderer
	vt       *VT
	pty      *PTY
	log      *slog.Logger

	done bool
}

// TerminalOptions configures a terminal session.
type TerminalOptions struct {
	Renderer RendererOptions

	// Font size in 1/64ths of a point.
	FontSize int

	// Orientation of the rendering in 90° steps.
	Orientation int

	// Command to run on the PTY, e.g. {"/bin/bash"}.
	Command []string

	Logger *slog.Logger
}

// NewTerminal creates a terminal session on the given backend. The extra
// event sources (keyboard, windowing system) are polled alongside the
// child process.
func NewTerminal(opts TerminalOptions, backend Backend, font GlyphProvider, extraSources ...EventSource) (*Terminal, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	display := NewMemoryDisplay(backend)
	matrix := NewMatrix(0, 0)
	renderer := NewMatrixRenderer(opts.Renderer, font, display, matrix,
		opts.FontSize, opts.Orientation, log)
	vt := NewVT(matrix)

	pty, err := StartPTY(opts.Command, matrix.Rows(), matrix.Cols())
	if err != nil {
		return nil, err
	}

	t := &Terminal{
		display:  display,
		matrix:   matrix,
		renderer: renderer,
		vt:       vt,
		pty:      pty,
		log:      log,
	}
	t.sources = append(t.sources, extraSources...)
	t.sources = append(t.sources, pty)
	return t, nil
}

// Close releases the PTY.
func (t *Terminal) Close() error {
	return t.pty.Close()
}

// encodeKey translates a key event into the byte sequence sent to the
// child process.
func encodeKey(ev KeyEvent) []byte {
	var buf []byte
	if ev.Alt {
		buf = append(buf, 0x1B)
	}

	if ev.Ctrl && ev.Rune >= 'a' && ev.Rune <= 'z' {
		return append(buf, byte(ev.Rune-'a'+1))
	}
	if ev.Ctrl && ev.Rune >= 'A' && ev.Rune <= 'Z' {
		return append(buf, byte(ev.Rune-'A'+1))
	}

	csi := func(s string) []byte {
		return append(buf, append([]byte{0x1B, '['}, s...)...)
	}
	ss3 := func(c byte) []byte {
		return append(buf, 0x1B, 'O', c)
	}

	switch ev.Key {
	case KeyEnter:
		return append(buf, '\r')
	case KeyTab:
		return append(buf, '\t')
	case KeyBackspace:
		return append(buf, 0x7F)
	case KeyEscape:
		return append(buf, 0x1B)
	case KeyUp:
		return csi("A")
	case KeyDown:
		return csi("B")
	case KeyRight:
		return csi("C")
	case KeyLeft:
		return csi("D")
	case KeyHome:
		return csi("H")
	case KeyEnd:
		return csi("F")
	case KeyInsert:
		return csi("2~")
	case KeyDelete:
		return csi("3~")
	case KeyPageUp:
		return csi("5~")
	case KeyPageDown:
		return csi("6~")
	case KeyF1, KeyF2, KeyF3, KeyF4:
		return ss3(byte('P' + int(ev.Key-KeyF1)))
	case KeyF5:
		return csi("15~")
	case KeyF6:
		return csi("17~")
	case KeyF7:
		return csi("18~")
	case KeyF8:
		return csi("19~")
	case KeyF9:
		return csi("20~")
	case KeyF10:
		return csi("21~")
	case KeyF11:
		return csi("23~")
	case KeyF12:
		return csi("24~")
	}

	if ev.Rune != 0 {
		return append(buf, []byte(string(ev.Rune))...)
	}
	return buf
}

// Run drives the terminal until the child exits or a quit event arrives.
// The loop waits on all event sources at once; when output is pending it
// redraws at most every 16.667 ms, drawing immediately once the frame
// budget has elapsed.
func (t *Terminal) Run() {
	last := -1
	pendingDraw := true
	lastDraw := time.Now()

	for !t.done {
		timeout := -1
		if pendingDraw {
			elapsed := time.Since(lastDraw).Microseconds()
			timeout = int((frameIntervalUS - elapsed) / 1000)
			if timeout <= 0 {
				dt := int(elapsed / 1000)
				t.renderer.Draw(false, dt)
				lastDraw = time.Now()
				pendingDraw = false
				timeout = -1
			}
		}
		ev, idx := WaitEvent(t.sources, last, timeout)
		if idx >= 0 {
			last = idx
		}

		switch ev.Type {
		case EventNone:
			// Timeout: the next loop iteration performs the draw.
		case EventKey:
			if buf := encodeKey(ev.Key); len(buf) > 0 {
				t.pty.Write(buf)
			}
		case EventText:
			buf := ev.Text.Buf
			if ev.Text.Alt {
				buf = append([]byte{0x1B}, buf...)
			}
			t.pty.Write(buf)
		case EventChildOutput:
			t.vt.Write(ev.Child.Buf)
			pendingDraw = true
		case EventResize:
			// A geometry change repaints the whole screen; afterwards
			// the matrix has its new size and the child learns about it.
			t.renderer.RefreshBounds()
			t.renderer.Draw(true, 0)
			lastDraw = time.Now()
			pendingDraw = false
			t.vt.resetMargins()
			t.pty.Resize(t.matrix.Rows(), t.matrix.Cols())
		case EventQuit:
			t.done = true
		}
	}
}
