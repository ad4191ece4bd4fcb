package inkterm

// This file defines the pixel-level semantics of an e-paper update. The
// emulation backends use EPaperUpdate to produce an on-screen equivalent
// of what a panel would show; the hardware backend maps the same
// UpdateMode values onto driver waveforms.

// RGBAToGrayscale converts a color to a 4-bit grayscale value between 0
// and 15 using integer luminance weights.
func RGBAToGrayscale(c RGBA) uint8 {
	r := uint16(c.R) * 77
	g := uint16(c.G) * 151
	b := uint16(c.B) * 28
	return uint8((r + g + b) >> 12)
}

// grayscaleRamp is the 16-level grayscale-to-intensity lookup.
var grayscaleRamp = [16]uint8{
	0, 17, 34, 51, 68, 85, 102, 119,
	136, 153, 170, 187, 204, 221, 238, 255,
}

// GrayscaleToRGBA converts a 4-bit grayscale value to an opaque RGBA
// color.
func GrayscaleToRGBA(g uint8) RGBA {
	v := grayscaleRamp[g&0x0F]
	return RGBA{v, v, v, 0xFF}
}

// EPaperUpdate applies an e-paper update to the target surface. For every
// pixel in the rectangle both the source and the current target color are
// reduced to 4-bit grayscale; the output operation transforms the source
// value and the mask operation decides whether the pixel is rewritten at
// all. Masked pixels keep their target grayscale.
//
// tar is the backend pixel buffer with the given stride in bytes and
// color layout. src is the composed RGBA buffer with srcStride in pixels.
// The rectangle is half-open and expressed in coordinates shared by both
// buffers.
func EPaperUpdate(tar []uint8, tarStride int, tarLayout ColorLayout, src []RGBA, srcStride int, r Rect, mode UpdateMode) {
	bypp := tarLayout.BytesPerPixel()
	for y := r.Y0; y < r.Y1; y++ {
		tp := y*tarStride + r.X0*bypp
		sp := y*srcStride + r.X0
		for x := r.X0; x < r.X1; x++ {
			var cTar32 uint32
			for k := 0; k < bypp; k++ {
				cTar32 |= uint32(tar[tp+k]) << (8 * k)
			}
			gTar := RGBAToGrayscale(tarLayout.ConvToRGBA(cTar32))
			gSrc := RGBAToGrayscale(src[sp])
			sp++

			if mode.Output&OutputInvert != 0 {
				gSrc = 15 - gSrc
			}
			if mode.Output&OutputForceMono != 0 {
				if gSrc > 7 {
					gSrc = 15
				} else {
					gSrc = 0
				}
			}

			masked := false
			if mode.Mask&MaskSourceMono != 0 && gSrc != 0 && gSrc != 15 {
				masked = true
			}
			if mode.Mask&MaskTargetMono != 0 && gTar != 0 && gTar != 15 {
				masked = true
			}
			if mode.Mask&MaskPartial != 0 && gTar == gSrc {
				masked = true
			}

			// White overrides the source value but never the mask.
			if mode.Output&OutputWhite != 0 {
				gSrc = 15
			}

			var cc uint32
			if !masked {
				cc = tarLayout.Conv(GrayscaleToRGBA(gSrc))
			} else {
				cc = tarLayout.Conv(GrayscaleToRGBA(gTar))
			}
			for k := 0; k < bypp; k++ {
				tar[tp] = uint8(cc >> (8 * k))
				tp++
			}
		}
	}
}
