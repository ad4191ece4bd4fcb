//go:build linux

// Package fbdev drives a Linux framebuffer device, including the mxcfb
// e-paper controllers found in Kobo and similar e-readers. Commit
// requests are blitted into the memory-mapped framebuffer and flushed
// with MXCFB_SEND_UPDATE; before a region is updated again the driver
// waits for the completion marker of the previous update.
package fbdev

import (
	"fmt"
	"log/slog"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/inkterm/inkterm"
)

const (
	ioctlGetVarScreenInfo = 0x4600
	ioctlGetFixScreenInfo = 0x4602
)

// mxcfb waveform and update constants.
const (
	waveformModeAuto = 257

	// The A2-like black-and-white waveform used for draft updates.
	waveformModeA2 = 4

	updateModePartial = 0

	tempUseAmbient = 0x1000

	epdcFlagForceMonochrome = 0x0002
)

type fbBitfield struct {
	Offset   uint32
	Length   uint32
	MSBRight uint32
}

type fbVarScreenInfo struct {
	XRes         uint32
	YRes         uint32
	XResVirtual  uint32
	YResVirtual  uint32
	XOffset      uint32
	YOffset      uint32
	BitsPerPixel uint32
	Grayscale    uint32
	Red          fbBitfield
	Green        fbBitfield
	Blue         fbBitfield
	Transp       fbBitfield
	NonStd       uint32
	Activate     uint32
	Height       uint32
	Width        uint32
	AccelFlags   uint32
	Pixclock     uint32
	LeftMargin   uint32
	RightMargin  uint32
	UpperMargin  uint32
	LowerMargin  uint32
	HsyncLen     uint32
	VsyncLen     uint32
	Sync         uint32
	VMode        uint32
	Rotate       uint32
	Colorspace   uint32
	Reserved     [4]uint32
}

type fbFixScreenInfo struct {
	ID           [16]byte
	SMemStart    uintptr
	SMemLen      uint32
	Type         uint32
	TypeAux      uint32
	Visual       uint32
	XPanStep     uint16
	YPanStep     uint16
	YWrapStep    uint16
	LineLength   uint32
	MMIOStart    uintptr
	MMIOLen      uint32
	Accel        uint32
	Capabilities uint16
	Reserved     [2]uint16
}

type mxcfbRect struct {
	Top    uint32
	Left   uint32
	Width  uint32
	Height uint32
}

type mxcfbAltBufferData struct {
	PhysAddr        uint32
	Width           uint32
	Height          uint32
	AltUpdateRegion mxcfbRect
}

type mxcfbUpdateData struct {
	UpdateRegion  mxcfbRect
	WaveformMode  uint32
	UpdateMode    uint32
	UpdateMarker  uint32
	Temp          int32
	Flags         uint32
	AltBufferData mxcfbAltBufferData
}

// ioW encodes a write ioctl request number.
func ioW(typ, nr, size uintptr) uintptr {
	const iocWrite = 1
	return iocWrite<<30 | size<<16 | typ<<8 | nr
}

// Display is a framebuffer-backed display backend.
type Display struct {
	fd     int
	buf    []byte
	offset int
	stride int
	width  int
	height int
	layout inkterm.ColorLayout
	log    *slog.Logger

	// Marker of the last update sent to the panel; zero means none
	// outstanding.
	prevMarker uint32
	marker     uint32

	// Consecutive monochrome updates; the first one in a run uses the
	// auto waveform so the panel settles into clean black and white.
	monoRun int
}

// Open opens and memory-maps the given framebuffer device.
func Open(device string, log *slog.Logger) (*Display, error) {
	if log == nil {
		log = slog.Default()
	}

	fd, err := unix.Open(device, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("fbdev: opening %q: %w", device, err)
	}

	var vinfo fbVarScreenInfo
	var finfo fbFixScreenInfo
	if err := ioctlPtr(fd, ioctlGetVarScreenInfo, unsafe.Pointer(&vinfo)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("fbdev: FBIOGET_VSCREENINFO: %w", err)
	}
	if err := ioctlPtr(fd, ioctlGetFixScreenInfo, unsafe.Pointer(&finfo)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("fbdev: FBIOGET_FSCREENINFO: %w", err)
	}

	size := int(finfo.LineLength) * int(vinfo.YResVirtual)
	buf, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("fbdev: mmap: %w", err)
	}

	layout := inkterm.ColorLayout{
		BPP: uint8(vinfo.BitsPerPixel),
		RR:  uint8(8 - vinfo.Red.Length),
		RL:  uint8(vinfo.Red.Offset),
		GR:  uint8(8 - vinfo.Green.Length),
		GL:  uint8(vinfo.Green.Offset),
		BR:  uint8(8 - vinfo.Blue.Length),
		BL:  uint8(vinfo.Blue.Offset),
	}

	d := &Display{
		fd:     fd,
		buf:    buf,
		stride: int(finfo.LineLength),
		width:  int(vinfo.XRes),
		height: int(vinfo.YRes),
		layout: layout,
		log:    log,
		marker: 1,
	}
	d.offset = int(vinfo.XOffset)*layout.BytesPerPixel() + int(vinfo.YOffset)*d.stride

	id := string(finfo.ID[:])
	for i, b := range finfo.ID {
		if b == 0 {
			id = string(finfo.ID[:i])
			break
		}
	}
	log.Info("opened framebuffer",
		"device", device, "id", id,
		"width", d.width, "height", d.height, "bpp", vinfo.BitsPerPixel)
	return d, nil
}

func ioctlPtr(fd int, req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

// Close unmaps the framebuffer and closes the device.
func (d *Display) Close() error {
	unix.Munmap(d.buf)
	return unix.Close(d.fd)
}

// DoLock returns the physical display rectangle.
func (d *Display) DoLock() inkterm.Rect {
	return inkterm.Rect{X0: 0, Y0: 0, X1: d.width, Y1: d.height}
}

// DoUnlock copies every commit rectangle from the composed buffer into
// the framebuffer and triggers the matching panel update.
func (d *Display) DoUnlock(requests []inkterm.CommitRequest, composite []inkterm.RGBA, stride int) {
	bypp := d.layout.BytesPerPixel()
	for _, req := range requests {
		r := req.Rect
		for y := r.Y0; y < r.Y1; y++ {
			tp := d.offset + y*d.stride + r.X0*bypp
			sp := y*stride + r.X0
			for x := r.X0; x < r.X1; x++ {
				cc := d.layout.Conv(composite[sp])
				sp++
				for k := 0; k < bypp; k++ {
					d.buf[tp] = uint8(cc >> (8 * k))
					tp++
				}
			}
		}
		d.sendUpdate(r, req.Mode)
	}
}

// sendUpdate issues the mxcfb update ioctl for the given region, first
// waiting for the completion of the previous update so that overlapping
// updates never race on the panel.
func (d *Display) sendUpdate(r inkterm.Rect, mode inkterm.UpdateMode) {
	if d.prevMarker != 0 {
		d.waitForComplete(d.prevMarker)
	}

	d.marker++
	if d.marker > 1024 {
		d.marker = 1
	}

	data := mxcfbUpdateData{
		UpdateRegion: mxcfbRect{
			Top:    uint32(r.Y0),
			Left:   uint32(r.X0),
			Width:  uint32(r.Width()),
			Height: uint32(r.Height()),
		},
		UpdateMode:   updateModePartial,
		UpdateMarker: d.marker,
		Temp:         tempUseAmbient,
	}

	// The draft pass commits with a source-mono mask; drive those with
	// the fast monochrome waveform, except the first update of a run (see
	// monoRun). Everything else uses the automatic
	// partial grayscale waveform.
	if mode.Mask&inkterm.MaskSourceMono != 0 {
		if d.monoRun == 0 {
			data.WaveformMode = waveformModeAuto
		} else {
			data.WaveformMode = waveformModeA2
		}
		data.Flags = epdcFlagForceMonochrome
		d.monoRun++
	} else {
		data.WaveformMode = waveformModeAuto
		d.monoRun = 0
	}

	req := ioW('F', 0x2E, unsafe.Sizeof(data))
	if err := ioctlPtr(d.fd, req, unsafe.Pointer(&data)); err != nil {
		d.log.Warn("MXCFB_SEND_UPDATE failed", "err", err)
		d.prevMarker = 0
		return
	}
	d.prevMarker = d.marker
}

func (d *Display) waitForComplete(marker uint32) {
	req := ioW('F', 0x2F, unsafe.Sizeof(marker))
	if err := ioctlPtr(d.fd, req, unsafe.Pointer(&marker)); err != nil {
		d.log.Debug("MXCFB_WAIT_FOR_UPDATE_COMPLETE failed", "err", err)
	}
}

var _ inkterm.Backend = (*Display)(nil)

// ErrNotAFramebuffer is returned by Probe for paths that exist but are
// not framebuffer devices.
var ErrNotAFramebuffer = fmt.Errorf("fbdev: not a framebuffer device")

// Probe reports whether the given path looks like an accessible
// framebuffer device without mapping it.
func Probe(device string) error {
	fi, err := os.Stat(device)
	if err != nil {
		return err
	}
	if fi.Mode()&os.ModeCharDevice == 0 {
		return ErrNotAFramebuffer
	}
	return nil
}
