// Package gtk is a development backend that emulates an e-paper panel
// inside a GTK window. Commit requests run through the shared e-paper
// update semantics against an in-memory panel buffer, so the window shows
// the same grayscale, masking and draft artifacts a real panel would.
package gtk

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gotk3/gotk3/cairo"
	"github.com/gotk3/gotk3/gdk"
	"github.com/gotk3/gotk3/glib"
	"github.com/gotk3/gotk3/gtk"
	"golang.org/x/sys/unix"

	"github.com/inkterm/inkterm"
)

// Backend is a GTK window that behaves like an e-paper display. It also
// acts as an event source for key input, resize and window-close events.
type Backend struct {
	log *slog.Logger

	win  *gtk.Window
	area *gtk.DrawingArea

	mu     sync.Mutex
	width  int
	height int

	// Emulated panel pixels in cairo ARGB32 layout.
	panel []byte

	// Event queue drained through the wake pipe.
	events    []inkterm.Event
	pipeRead  int
	pipeWrite int
}

// panelLayout matches cairo's little-endian ARGB32 byte order.
var panelLayout = inkterm.RGBA32Layout

// New creates the window. Run must be called afterwards to start the GTK
// main loop; it blocks, so it usually runs on its own goroutine.
func New(width, height int, log *slog.Logger) (*Backend, error) {
	if log == nil {
		log = slog.Default()
	}

	gtk.Init(nil)

	win, err := gtk.WindowNew(gtk.WINDOW_TOPLEVEL)
	if err != nil {
		return nil, fmt.Errorf("gtk: creating window: %w", err)
	}
	area, err := gtk.DrawingAreaNew()
	if err != nil {
		return nil, fmt.Errorf("gtk: creating drawing area: %w", err)
	}

	var pipeFds [2]int
	if err := unix.Pipe(pipeFds[:]); err != nil {
		return nil, fmt.Errorf("gtk: event pipe: %w", err)
	}

	b := &Backend{
		log:       log,
		win:       win,
		area:      area,
		width:     width,
		height:    height,
		pipeRead:  pipeFds[0],
		pipeWrite: pipeFds[1],
	}
	b.resizePanel(width, height)

	win.SetTitle("inkterm")
	win.SetDefaultSize(width, height)
	win.Add(area)
	win.AddEvents(int(gdk.KEY_PRESS_MASK))

	area.Connect("draw", b.onDraw)
	win.Connect("key-press-event", b.onKeyPress)
	win.Connect("configure-event", b.onConfigure)
	win.Connect("destroy", func() {
		b.pushEvent(inkterm.Event{Type: inkterm.EventQuit})
		gtk.MainQuit()
	})

	win.ShowAll()
	return b, nil
}

// Run executes the GTK main loop until the window is destroyed.
func (b *Backend) Run() {
	gtk.Main()
}

// Stop asks the GTK main loop to terminate.
func (b *Backend) Stop() {
	glib.IdleAdd(func() {
		b.win.Destroy()
	})
}

// resizePanel reallocates the emulated panel. New content starts out
// white, like a freshly cleared e-paper.
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

// DoUnlock applies every commit request to the emulated panel and asks
// GTK to repaint the affected window region.
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

	glib.IdleAdd(func() {
		b.area.QueueDraw()
	})
}

func (b *Backend) onDraw(da *gtk.DrawingArea, cr *cairo.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	surface := cairo.CreateImageSurfaceForData(b.panel, cairo.FORMAT_ARGB32,
		b.width, b.height, b.width*4)
	cr.SetSourceSurface(surface, 0, 0)
	cr.Paint()
	return false
}

func (b *Backend) onConfigure(win *gtk.Window, ev *gdk.Event) bool {
	alloc := b.area.GetAllocation()
	w, h := alloc.GetWidth(), alloc.GetHeight()

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
	return false
}

func (b *Backend) onKeyPress(win *gtk.Window, ev *gdk.Event) bool {
	key := gdk.EventKeyNewFromEvent(ev)
	keyval := key.KeyVal()
	state := gdk.ModifierType(key.State())

	kev := inkterm.KeyEvent{
		Shift: state&gdk.SHIFT_MASK != 0,
		Ctrl:  state&gdk.CONTROL_MASK != 0,
		Alt:   state&gdk.MOD1_MASK != 0,
	}

	switch keyval {
	case gdk.KEY_Return, gdk.KEY_KP_Enter:
		kev.Key = inkterm.KeyEnter
	case gdk.KEY_Tab, gdk.KEY_ISO_Left_Tab:
		kev.Key = inkterm.KeyTab
	case gdk.KEY_BackSpace:
		kev.Key = inkterm.KeyBackspace
	case gdk.KEY_Escape:
		kev.Key = inkterm.KeyEscape
	case gdk.KEY_Up:
		kev.Key = inkterm.KeyUp
	case gdk.KEY_Down:
		kev.Key = inkterm.KeyDown
	case gdk.KEY_Left:
		kev.Key = inkterm.KeyLeft
	case gdk.KEY_Right:
		kev.Key = inkterm.KeyRight
	case gdk.KEY_Home:
		kev.Key = inkterm.KeyHome
	case gdk.KEY_End:
		kev.Key = inkterm.KeyEnd
	case gdk.KEY_Insert:
		kev.Key = inkterm.KeyInsert
	case gdk.KEY_Delete:
		kev.Key = inkterm.KeyDelete
	case gdk.KEY_Page_Up:
		kev.Key = inkterm.KeyPageUp
	case gdk.KEY_Page_Down:
		kev.Key = inkterm.KeyPageDown
	case gdk.KEY_F1:
		kev.Key = inkterm.KeyF1
	case gdk.KEY_F2:
		kev.Key = inkterm.KeyF2
	case gdk.KEY_F3:
		kev.Key = inkterm.KeyF3
	case gdk.KEY_F4:
		kev.Key = inkterm.KeyF4
	case gdk.KEY_F5:
		kev.Key = inkterm.KeyF5
	case gdk.KEY_F6:
		kev.Key = inkterm.KeyF6
	case gdk.KEY_F7:
		kev.Key = inkterm.KeyF7
	case gdk.KEY_F8:
		kev.Key = inkterm.KeyF8
	case gdk.KEY_F9:
		kev.Key = inkterm.KeyF9
	case gdk.KEY_F10:
		kev.Key = inkterm.KeyF10
	case gdk.KEY_F11:
		kev.Key = inkterm.KeyF11
	case gdk.KEY_F12:
		kev.Key = inkterm.KeyF12
	default:
		if r := gdk.KeyvalToUnicode(keyval); r != 0 {
			kev.Rune = r
		} else {
			return false
		}
	}

	b.pushEvent(inkterm.Event{Type: inkterm.EventKey, Key: kev})
	return true
}

// pushEvent enqueues an event and wakes the poll loop through the pipe.
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
