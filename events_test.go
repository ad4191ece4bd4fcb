package inkterm

import (
	"testing"

	"golang.org/x/sys/unix"
)

// pipeSource delivers one text event per byte written to its pipe.
type pipeSource struct {
	r, w int
}

func newPipeSource(t *testing.T) *pipeSource {
	t.Helper()
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	})
	return &pipeSource{r: fds[0], w: fds[1]}
}

func (s *pipeSource) Fd() int            { return s.r }
func (s *pipeSource) PollMode() PollMode { return PollIn }

func (s *pipeSource) Poll(mode PollMode) (Event, bool) {
	var buf [1]byte
	n, err := unix.Read(s.r, buf[:])
	if n <= 0 || err != nil {
		return Event{}, false
	}
	return Event{Type: EventText, Text: TextEvent{Buf: buf[:n]}}, true
}

func TestWaitEventDeliversReadySource(t *testing.T) {
	src := newPipeSource(t)
	unix.Write(src.w, []byte{'x'})

	ev, idx := WaitEvent([]EventSource{src}, -1, 100)
	if ev.Type != EventText || idx != 0 {
		t.Fatalf("got %+v from source %d", ev, idx)
	}
	if string(ev.Text.Buf) != "x" {
		t.Fatalf("payload = %q", ev.Text.Buf)
	}
}

func TestWaitEventTimeout(t *testing.T) {
	src := newPipeSource(t)

	ev, idx := WaitEvent([]EventSource{src}, -1, 10)
	if ev.Type != EventNone || idx != -1 {
		t.Fatalf("expected timeout, got %+v from %d", ev, idx)
	}
}

func TestWaitEventRoundRobin(t *testing.T) {
	a := newPipeSource(t)
	b := newPipeSource(t)
	sources := []EventSource{a, b}

	unix.Write(a.w, []byte{'a'})
	unix.Write(b.w, []byte{'b'})

	// With both ready, scanning starts after the previous source.
	_, first := WaitEvent(sources, -1, 100)
	_, second := WaitEvent(sources, first, 100)
	if first == second {
		t.Fatalf("round robin stuck on source %d", first)
	}
}

func TestWaitEventNoSources(t *testing.T) {
	ev, idx := WaitEvent(nil, -1, 0)
	if ev.Type != EventNone || idx != -1 {
		t.Fatalf("got %+v, %d", ev, idx)
	}
}
