package inkterm

import "golang.org/x/sys/unix"

// EventType discriminates the Event variants.
type EventType int

const (
	// EventNone means no event happened.
	EventNone EventType = iota

	// EventKey is a special (non-text) key press.
	EventKey

	// EventText is text input as UTF-8 bytes.
	EventText

	// EventChildOutput is output received from the child process.
	EventChildOutput

	// EventResize signals that the display geometry changed.
	EventResize

	// EventQuit asks the terminal to exit.
	EventQuit
)

// Key identifies special keys.
type Key int

const (
	KeyNone Key = iota
	KeyEnter
	KeyTab
	KeyBackspace
	KeyEscape
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyInsert
	KeyDelete
	KeyHome
	KeyEnd
	KeyPageUp
	KeyPageDown
	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12
)

// KeyEvent describes a key press. Rune is the codepoint for printable
// keys and zero otherwise; Key identifies special keys.
type KeyEvent struct {
	Rune  rune
	Key   Key
	Shift bool
	Ctrl  bool
	Alt   bool
}

// TextEvent carries raw UTF-8 text input.
type TextEvent struct {
	Buf []byte
	Alt bool
}

// ChildEvent carries bytes read from the child process.
type ChildEvent struct {
	Buf []byte
}

// Event is a single input event delivered by an EventSource.
type Event struct {
	Type  EventType
	Key   KeyEvent
	Text  TextEvent
	Child ChildEvent
}

// PollMode selects the poll condition an event source waits on.
type PollMode int

const (
	PollIn PollMode = 1 << iota
	PollOut
	PollErr
)

// EventSource is anything the event loop can wait on: it exposes a
// pollable file descriptor, the condition to wait for, and a non-blocking
// Poll that drains one event once the descriptor is ready.
type EventSource interface {
	Fd() int
	PollMode() PollMode
	Poll(mode PollMode) (Event, bool)
}

func pollEvents(mode PollMode) int16 {
	var ev int16
	if mode&PollIn != 0 {
		ev |= unix.POLLIN
	}
	if mode&PollOut != 0 {
		ev |= unix.POLLOUT
	}
	if mode&PollErr != 0 {
		ev |= unix.POLLERR
	}
	return ev
}

// WaitEvent blocks until one of the sources has an event or the timeout
// (in milliseconds, negative for no timeout) elapses. To keep one noisy
// source from starving the others, scanning starts after the source that
// delivered the previous event, identified by last (pass -1 initially).
// Returns the event and the index of the source that produced it, or an
// EventNone event and -1 on timeout.
func WaitEvent(sources []EventSource, last int, timeout int) (Event, int) {
	if len(sources) == 0 {
		return Event{}, -1
	}

	fds := make([]unix.PollFd, len(sources))
	for i, src := range sources {
		fds[i] = unix.PollFd{
			Fd:     int32(src.Fd()),
			Events: pollEvents(src.PollMode()),
		}
	}

	n, err := unix.Poll(fds, timeout)
	if err != nil || n == 0 {
		// EINTR and timeouts both surface as "nothing happened".
		return Event{}, -1
	}

	for off := 1; off <= len(sources); off++ {
		i := (last + off) % len(sources)
		if fds[i].Revents == 0 {
			continue
		}
		var mode PollMode
		if fds[i].Revents&(unix.POLLIN|unix.POLLHUP) != 0 {
			mode |= PollIn
		}
		if fds[i].Revents&unix.POLLOUT != 0 {
			mode |= PollOut
		}
		if fds[i].Revents&unix.POLLERR != 0 {
			mode |= PollErr
		}
		if ev, ok := sources[i].Poll(mode); ok {
			return ev, i
		}
	}
	return Event{}, -1
}
