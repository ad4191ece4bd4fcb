package inkterm

import "testing"

func TestRGBAToGrayscale(t *testing.T) {
	tests := []struct {
		name string
		c    RGBA
		want uint8
	}{
		{"black", Black, 0},
		{"white", White, 15},
		{"mid gray", RGBA{128, 128, 128, 0xFF}, 8},
		{"pure green dominates", RGBA{0, 255, 0, 0xFF}, 9},
		{"pure blue is dark", RGBA{0, 0, 255, 0xFF}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RGBAToGrayscale(tt.c); got != tt.want {
				t.Errorf("RGBAToGrayscale(%+v) = %d, want %d", tt.c, got, tt.want)
			}
		})
	}
}

func TestGrayscaleToRGBA(t *testing.T) {
	for g := uint8(0); g < 16; g++ {
		c := GrayscaleToRGBA(g)
		if c.R != 17*g || c.G != 17*g || c.B != 17*g || c.A != 0xFF {
			t.Errorf("GrayscaleToRGBA(%d) = %+v", g, c)
		}
	}
}

func TestGrayscaleRoundTrip(t *testing.T) {
	for g := uint8(0); g < 16; g++ {
		if got := RGBAToGrayscale(GrayscaleToRGBA(g)); got != g {
			t.Errorf("round trip of %d = %d", g, got)
		}
	}
}

// applyUpdate runs a single-pixel e-paper update and returns the
// resulting grayscale.
func applyUpdate(t *testing.T, gSrc, gTar uint8, mode UpdateMode) uint8 {
	t.Helper()

	tar := make([]uint8, 4)
	layout := RGBA32Layout
	cc := layout.Conv(GrayscaleToRGBA(gTar))
	for k := 0; k < 4; k++ {
		tar[k] = uint8(cc >> (8 * k))
	}
	src := []RGBA{GrayscaleToRGBA(gSrc)}

	EPaperUpdate(tar, 4, layout, src, 1, Rect{0, 0, 1, 1}, mode)

	var out uint32
	for k := 0; k < 4; k++ {
		out |= uint32(tar[k]) << (8 * k)
	}
	return RGBAToGrayscale(layout.ConvToRGBA(out))
}

// expectedUpdate mirrors the §4.5 rules independently of the
// implementation's loop structure.
func expectedUpdate(gSrc, gTar uint8, mode UpdateMode) uint8 {
	out := gSrc
	if mode.Output&OutputInvert != 0 {
		out = 15 - out
	}
	if mode.Output&OutputForceMono != 0 {
		if out > 7 {
			out = 15
		} else {
			out = 0
		}
	}

	masked := false
	if mode.Mask&MaskSourceMono != 0 && out != 0 && out != 15 {
		masked = true
	}
	if mode.Mask&MaskTargetMono != 0 && gTar != 0 && gTar != 15 {
		masked = true
	}
	if mode.Mask&MaskPartial != 0 && gTar == out {
		masked = true
	}

	if mode.Output&OutputWhite != 0 {
		out = 15
	}
	if masked {
		return gTar
	}
	return out
}

func TestEPaperUpdateSemantics(t *testing.T) {
	// Property 6: exhaust every (source, target) grayscale pair for
	// every documented mode combination.
	outputs := []OutputOp{
		OutputIdentity, OutputForceMono, OutputInvert,
		OutputInvertAndForceMono, OutputWhite,
	}
	masks := []MaskOp{
		MaskFull, MaskSourceMono, MaskTargetMono,
		MaskSourceAndTargetMono, MaskPartial,
	}

	for _, output := range outputs {
		for _, mask := range masks {
			mode := UpdateMode{Output: output, Mask: mask}
			for gSrc := uint8(0); gSrc < 16; gSrc++ {
				for gTar := uint8(0); gTar < 16; gTar++ {
					got := applyUpdate(t, gSrc, gTar, mode)
					want := expectedUpdate(gSrc, gTar, mode)
					if got != want {
						t.Fatalf("mode %+v src %d tar %d: got %d, want %d",
							mode, gSrc, gTar, got, want)
					}
				}
			}
		}
	}
}

func TestEPaperPartialMaskIdempotent(t *testing.T) {
	// Drawing the same image twice with a partial mask changes nothing
	// on the second pass.
	mode := UpdateMode{Output: OutputIdentity, Mask: MaskPartial}
	for g := uint8(0); g < 16; g++ {
		once := applyUpdate(t, g, 15, mode)
		twice := applyUpdate(t, g, once, mode)
		if once != twice {
			t.Errorf("second commit of %d changed %d -> %d", g, once, twice)
		}
	}
}

func TestEPaperSourceMonoSkipsMidTones(t *testing.T) {
	mode := UpdateMode{Output: OutputIdentity, Mask: MaskSourceMono}
	for g := uint8(1); g < 15; g++ {
		if got := applyUpdate(t, g, 0, mode); got != 0 {
			t.Errorf("mid-tone source %d leaked through: %d", g, got)
		}
	}
	if got := applyUpdate(t, 15, 0, mode); got != 15 {
		t.Errorf("white source masked: %d", got)
	}
	if got := applyUpdate(t, 0, 15, mode); got != 0 {
		t.Errorf("black source masked: %d", got)
	}
}

func TestColorLayoutRoundTrip(t *testing.T) {
	layouts := []ColorLayout{
		RGBA32Layout,
		{BPP: 16, RR: 3, RL: 11, GR: 2, GL: 5, BR: 3, BL: 0}, // RGB565
	}
	for _, l := range layouts {
		for _, c := range []RGBA{Black, White, {0xFF, 0, 0, 0xFF}, {0, 0xFF, 0, 0xFF}} {
			got := l.ConvToRGBA(l.Conv(c))
			if got.R != c.R || got.G != c.G || got.B != c.B {
				t.Errorf("layout %+v: %+v -> %+v", l, c, got)
			}
		}
	}
}
