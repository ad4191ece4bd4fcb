// Package term is a development backend that shows the emulated e-paper
// panel inside an ordinary terminal. Every character cell displays two
// vertically stacked pixels using the upper-half-block glyph, so the full
// update pipeline (dither drafts, masking, promotion) can be inspected
// over SSH without any windowing system.
package term

import (
	"log/slog"
	"sync"

	"github.com/gdamore/tcell/v2"
	"golang.org/x/sys/unix"

	"github.com/inkterm/inkterm"
)

// upperHalfBlock shows the top pixel in the foreground color and the
// bottom pixel in the background color.
const upperHalfBlock = '▀'

// Backend renders the emulated panel onto a tcell screen.
type Backend struct {
	log    *slog.Logger
	screen tcell.Screen

	mu     sync.Mutex
	width  int
	height int
	panel  []byte

	events    []inkterm.Event
	pipeRead  int
	pipeWrite int
}

var panelLayout = inkterm.RGBA32Layout

// New initializes the hosting terminal. The emulated panel is as wide as
// the terminal and twice as tall.
func New(log *slog.Logger) (*Backend, error) {
	if log == nil {
		log = slog.Default()
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}
	screen.HideCursor()

	var pipeFds [2]int
	if err := unix.Pipe(pipeFds[:]); err != nil {
		screen.Fini()
		return nil, err
	}

	cols, rows := screen.Size()
	b := &Backend{
		log:       log,
		screen:    screen,
		width:     cols,
		height:    rows * 2,
		pipeRead:  pipeFds[0],
		pipeWrite: pipeFds[1],
	}
	b.resizePanel(b.width, b.height)

	go b.eventLoop()
	return b, nil
}

// Close restores the hosting terminal.
func (b *Backend) Close() {
	b.screen.Fini()
}

func (b *Backend) resizePanel(w, h int) {
	b.panel = make([]byte, w*h*4)
	for i := range b.panel {
		b.panel[i] = 0xFF
	}
}

// DoLock returns the emulated panel rectangle.
func (b *Backend) DoLock() inkterm.Rect {
	b.mu.Lock()
	defer b.mu.Unlock()
	return inkterm.Rect{X0: 0, Y0: 0, X1: b.width, Y1: b.height}
}

// DoUnlock applies the commit requests to the panel and repaints the
// touched character cells.
func (b *Backend) DoUnlock(requests []inkterm.CommitRequest, composite []inkterm.RGBA, stride int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, req := range requests {
		r := req.Rect.Clip(inkterm.Rect{X0: 0, Y0: 0, X1: b.width, Y1: b.height})
		if !r.Valid() || r.Area() == 0 {
			continue
		}
		inkterm.EPaperUpdate(b.panel, b.width*4, panelLayout, composite, stride, r, req.Mode)

		for y := r.Y0 / 2; y <= (r.Y1-1)/2; y++ {
			for x := r.X0; x < r.X1; x++ {
				top := b.pixelGray(x, y*2)
				bottom := b.pixelGray(x, y*2+1)
				style := tcell.StyleDefault.
					Foreground(tcell.NewRGBColor(top, top, top)).
					Background(tcell.NewRGBColor(bottom, bottom, bottom))
				b.screen.SetContent(x, y, upperHalfBlock, nil, style)
			}
		}
	}
	b.screen.Show()
}

// pixelGray reads the intensity of one panel pixel.
func (b *Backend) pixelGray(x, y int) int32 {
	if y >= b.height {
		return 0xFF
	}
	return int32(b.panel[(y*b.width+x)*4])
}

// eventLoop pumps tcell events into the queue until the screen dies.
func (b *Backend) eventLoop() {
	for {
		ev := b.screen.PollEvent()
		if ev == nil {
			return
		}
		switch tev := ev.(type) {
		case *tcell.EventKey:
			b.handleKey(tev)
		case *tcell.EventResize:
			cols, rows := tev.Size()
			b.mu.Lock()
			b.width, b.height = cols, rows*2
			b.resizePanel(b.width, b.height)
			b.mu.Unlock()
			b.pushEvent(inkterm.Event{Type: inkterm.EventResize})
		}
	}
}

// tcellSpecialKeys maps tcell keys to terminal keys.
var tcellSpecialKeys = map[tcell.Key]inkterm.Key{
	tcell.KeyEnter:      inkterm.KeyEnter,
	tcell.KeyTab:        inkterm.KeyTab,
	tcell.KeyBackspace:  inkterm.KeyBackspace,
	tcell.KeyBackspace2: inkterm.KeyBackspace,
	tcell.KeyEsc:        inkterm.KeyEscape,
	tcell.KeyUp:         inkterm.KeyUp,
	tcell.KeyDown:       inkterm.KeyDown,
	tcell.KeyLeft:       inkterm.KeyLeft,
	tcell.KeyRight:      inkterm.KeyRight,
	tcell.KeyHome:       inkterm.KeyHome,
	tcell.KeyEnd:        inkterm.KeyEnd,
	tcell.KeyInsert:     inkterm.KeyInsert,
	tcell.KeyDelete:     inkterm.KeyDelete,
	tcell.KeyPgUp:       inkterm.KeyPageUp,
	tcell.KeyPgDn:       inkterm.KeyPageDown,
	tcell.KeyF1:         inkterm.KeyF1,
	tcell.KeyF2:         inkterm.KeyF2,
	tcell.KeyF3:         inkterm.KeyF3,
	tcell.KeyF4:         inkterm.KeyF4,
	tcell.KeyF5:         inkterm.KeyF5,
	tcell.KeyF6:         inkterm.KeyF6,
	tcell.KeyF7:         inkterm.KeyF7,
	tcell.KeyF8:         inkterm.KeyF8,
	tcell.KeyF9:         inkterm.KeyF9,
	tcell.KeyF10:        inkterm.KeyF10,
	tcell.KeyF11:        inkterm.KeyF11,
	tcell.KeyF12:        inkterm.KeyF12,
}

func (b *Backend) handleKey(ev *tcell.EventKey) {
	mods := ev.Modifiers()
	kev := inkterm.KeyEvent{
		Shift: mods&tcell.ModShift != 0,
		Ctrl:  mods&tcell.ModCtrl != 0,
		Alt:   mods&tcell.ModAlt != 0,
	}

	if key, ok := tcellSpecialKeys[ev.Key()]; ok {
		kev.Key = key
	} else if ev.Key() == tcell.KeyRune {
		kev.Rune = ev.Rune()
	} else if ev.Key() >= tcell.KeyCtrlA && ev.Key() <= tcell.KeyCtrlZ {
		kev.Ctrl = true
		kev.Rune = rune('a' + int(ev.Key()) - int(tcell.KeyCtrlA))
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
