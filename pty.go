package inkterm

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/creack/pty"
)

// eventBufSize is the read chunk size for child output.
const eventBufSize = 1024

// PTY hosts the child process behind a pseudo-terminal and exposes its
// output as an event source. Reads surface as EventChildOutput; when the
// child exits the source delivers a single EventQuit.
type PTY struct {
	cmd  *exec.Cmd
	file *os.File
	buf  [eventBufSize]byte
	eof  bool
}

// StartPTY spawns the given command on a new pseudo-terminal with the
// given initial size.
func StartPTY(argv []string, rows, cols int) (*PTY, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("pty: empty command")
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = append(os.Environ(), "TERM=xterm-256color")

	f, err := pty.StartWithSize(cmd, &pty.Winsize{
		Rows: uint16(rows),
		Cols: uint16(cols),
	})
	if err != nil {
		return nil, fmt.Errorf("pty: starting %q: %w", argv[0], err)
	}
	return &PTY{cmd: cmd, file: f}, nil
}

// Write forwards input bytes to the child process.
func (p *PTY) Write(buf []byte) (int, error) {
	return p.file.Write(buf)
}

// Resize propagates a new terminal size to the child.
func (p *PTY) Resize(rows, cols int) error {
	return pty.Setsize(p.file, &pty.Winsize{
		Rows: uint16(rows),
		Cols: uint16(cols),
	})
}

// Close tears down the pseudo-terminal and reaps the child.
func (p *PTY) Close() error {
	err := p.file.Close()
	if p.cmd.Process != nil {
		p.cmd.Process.Kill()
	}
	p.cmd.Wait()
	return err
}

// Fd returns the controller side descriptor for polling.
func (p *PTY) Fd() int { return int(p.file.Fd()) }

// PollMode waits for child output.
func (p *PTY) PollMode() PollMode { return PollIn }

// Poll reads one chunk of child output. A closed or errored descriptor
// yields EventQuit exactly once.
func (p *PTY) Poll(mode PollMode) (Event, bool) {
	if p.eof {
		return Event{}, false
	}
	n, _ := p.file.Read(p.buf[:])
	if n > 0 {
		out := make([]byte, n)
		copy(out, p.buf[:n])
		return Event{Type: EventChildOutput, Child: ChildEvent{Buf: out}}, true
	}
	// On Linux a closed PTY surfaces as EIO rather than io.EOF; either
	// way the child is gone.
	p.eof = true
	return Event{Type: EventQuit}, true
}
