package inkterm

// bayer4 is the 4x4 ordered dithering threshold matrix.
var bayer4 = [4][4]int{
	{0, 8, 2, 10},
	{12, 4, 14, 6},
	{3, 11, 1, 9},
	{15, 7, 13, 5},
}

// ditherOrderedGrayscale fills the rectangle with a binary ordered
// dithering pattern representing the 4-bit grayscale value g. The
// fraction of white pixels approximates g/15, with g=0 fully black and
// g=15 fully white. stride is the row length of tar in pixels.
func ditherOrderedGrayscale(g uint8, tar []RGBA, stride int, r Rect) {
	level := int(g & 0x0F)
	for y := r.Y0; y < r.Y1; y++ {
		row := tar[y*stride:]
		thresholds := &bayer4[y&3]
		for x := r.X0; x < r.X1; x++ {
			if level*16 > thresholds[x&3]*15 {
				row[x] = White
			} else {
				row[x] = Black
			}
		}
	}
}
