// Package qt is a development backend that emulates an e-paper panel
// inside a Qt widget, mirroring the gtk backend for desktops where Qt is
// the native toolkit. Commit requests run through the shared e-paper
// update semantics; the paint handler replays the emulated panel with
// run-length filled rectangles.
package qt

import (
	"log/slog"
	"sync"

	"github.com/mappu/miqt/qt"
	"golang.org/x/sys/unix"

	"github.com/inkterm/inkterm"
)

// Backend is a Qt widget behaving like an e-paper display and delivering
// its key, resize and close events as an event source.
type Backend struct {
	log *slog.Logger

	widget *qt.QWidget

	mu     sync.Mutex
	width  int
	height int

	// Emulated panel pixels, 32bpp.
	panel []byte

	events    []inkterm.Event
	pipeRead  int
	pipeWrite int
}

var panelLayout = inkterm.RGBA32Layout

// New creates the widget. The caller must have constructed the
// QApplication first; Run executes the Qt event loop and blocks.
func New(width, height int, log *slog.Logger) (*Backend, error) {
	if log == nil {
		log = slog.Default()
	}

	var pipeFds [2]int
	if err := unix.Pipe(pipeFds[:]); err != nil {
		return nil, err
	}

	b := &Backend{
		log:       log,
		widget:    qt.NewQWidget2(),
		width:     width,
		height:    height,
		pipeRead:  pipeFds[0],
		pipeWrite: pipeFds[1],
	}
	b.resizePanel(width, height)

	b.widget.SetWindowTitle("inkterm")
	b.widget.Resize(width, height)
	b.widget.SetFocusPolicy(qt.StrongFocus)

	b.widget.OnPaintEvent(func(super func(event *qt.QPaintEvent), event *qt.QPaintEvent) {
		b.paint()
	})
	b.widget.OnKeyPressEvent(func(super func(event *qt.QKeyEvent), event *qt.QKeyEvent) {
		b.keyPress(event)
	})
	b.widget.OnResizeEvent(func(super func(event *qt.QResizeEvent), event *qt.QResizeEvent) {
		super(event)
		b.resized()
	})
	b.widget.OnCloseEvent(func(super func(event *qt.QCloseEvent), event *qt.QCloseEvent) {
		b.pushEvent(inkterm.Event{Type: inkterm.EventQuit})
		super(event)
	})

	b.widget.Show()
	return b, nil
}

// Run executes the Qt event loop until the last window closes.
func (b *Backend) Run() {
	qt.QApplication_Exec()
}

func (b *Backend) resizePanel(w, h int) {
	b.panel = make([]byte, w*h*4)
	for i := range b.panel {
		b.panel[i] = 0xFF
	}
}

// DoLock returns the current panel rectangle.
func (b *Backend) DoLock() inkterm.Rect {
	b.mu.Lock()
	defer b.mu.Unlock()
	return inkterm.Rect{X0: 0, Y0: 0, X1: b.width, Y1: b.height}
}

// DoUnlock applies the commit requests to the emulated panel and
// schedules a repaint.
func (b *Backend) DoUnlock(requests []inkterm.CommitRequest, composite []inkterm.RGBA, stride int) {
	b.mu.Lock()
	for _, req := range requests {
		r := req.Rect.Clip(inkterm.Rect{X0: 0, Y0: 0, X1: b.width, Y1: b.height})
		if !r.Valid() || r.Area() == 0 {
			continue
		}
		inkterm.EPaperUpdate(b.panel, b.width*4, panelLayout, composite, stride, r, req.Mode)
	}
	b.mu.Unlock()

	b.widget.Update()
}

// paint replays the panel buffer. Pixels are grouped into horizontal runs
// of equal gray so each run costs a single fill.
func (b *Backend) paint() {
	b.mu.Lock()
	defer b.mu.Unlock()

	painter := qt.NewQPainter2(b.widget.QPaintDevice)
	defer painter.End()

	for y := 0; y < b.height; y++ {
		row := b.panel[y*b.width*4:]
		x := 0
		for x < b.width {
			v := row[x*4]
			run := x + 1
			for run < b.width && row[run*4] == v {
				run++
			}
			color := qt.NewQColor3(int(v), int(v), int(v))
			painter.FillRect5(x, y, run-x, 1, color)
			x = run
		}
	}
}

func (b *Backend) resized() {
	w := b.widget.Width()
	h := b.widget.Height()

	b.mu.Lock()
	changed := w > 0 && h > 0 && (w != b.width || h != b.height)
	if changed {
		b.width, b.height = w, h
		b.resizePanel(w, h)
	}
	b.mu.Unlock()

	if changed {
		b.pushEvent(inkterm.Event{Type: inkterm.EventResize})
	}
}

// qtSpecialKeys maps Qt key codes to terminal keys.
var qtSpecialKeys = map[qt.Key]inkterm.Key{
	qt.Key_Return:    inkterm.KeyEnter,
	qt.Key_Enter:     inkterm.KeyEnter,
	qt.Key_Tab:       inkterm.KeyTab,
	qt.Key_Backspace: inkterm.KeyBackspace,
	qt.Key_Escape:    inkterm.KeyEscape,
	qt.Key_Up:        inkterm.KeyUp,
	qt.Key_Down:      inkterm.KeyDown,
	qt.Key_Left:      inkterm.KeyLeft,
	qt.Key_Right:     inkterm.KeyRight,
	qt.Key_Home:      inkterm.KeyHome,
	qt.Key_End:       inkterm.KeyEnd,
	qt.Key_Insert:    inkterm.KeyInsert,
	qt.Key_Delete:    inkterm.KeyDelete,
	qt.Key_PageUp:    inkterm.KeyPageUp,
	qt.Key_PageDown:  inkterm.KeyPageDown,
	qt.Key_F1:        inkterm.KeyF1,
	qt.Key_F2:        inkterm.KeyF2,
	qt.Key_F3:        inkterm.KeyF3,
	qt.Key_F4:        inkterm.KeyF4,
	qt.Key_F5:        inkterm.KeyF5,
	qt.Key_F6:        inkterm.KeyF6,
	qt.Key_F7:        inkterm.KeyF7,
	qt.Key_F8:        inkterm.KeyF8,
	qt.Key_F9:        inkterm.KeyF9,
	qt.Key_F10:       inkterm.KeyF10,
	qt.Key_F11:       inkterm.KeyF11,
	qt.Key_F12:       inkterm.KeyF12,
}

func (b *Backend) keyPress(event *qt.QKeyEvent) {
	modifiers := event.Modifiers()
	kev := inkterm.KeyEvent{
		Shift: modifiers&qt.ShiftModifier != 0,
		Ctrl:  modifiers&qt.ControlModifier != 0,
		Alt:   modifiers&qt.AltModifier != 0,
	}

	if key, ok := qtSpecialKeys[qt.Key(event.Key())]; ok {
		kev.Key = key
	} else if text := event.Text(); text != "" {
		runes := []rune(text)
		kev.Rune = runes[0]
	} else {
		return
	}

	b.pushEvent(inkterm.Event{Type: inkterm.EventKey, Key: kev})
}

func (b *Backend) pushEvent(ev inkterm.Event) {
	b.mu.Lock()
	b.events = append(b.events, ev)
	b.mu.Unlock()
	unix.Write(b.pipeWrite, []byte{0})
}

// Fd returns the read side of the wake pipe.
func (b *Backend) Fd() int { return b.pipeRead }

// PollMode waits for queued events.
func (b *Backend) PollMode() inkterm.PollMode { return inkterm.PollIn }

// Poll drains one queued event.
func (b *Backend) Poll(mode inkterm.PollMode) (inkterm.Event, bool) {
	var tmp [1]byte
	unix.Read(b.pipeRead, tmp[:])

	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.events) == 0 {
		return inkterm.Event{}, false
	}
	ev := b.events[0]
	b.events = b.events[1:]
	return ev, true
}

var _ inkterm.Backend = (*Backend)(nil)
var _ inkterm.EventSource = (*Backend)(nil)
