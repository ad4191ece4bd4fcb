package inkterm

// VT driver: translates the escape-sequence stream coming from the child
// process into Matrix operations. Terminal emulation correctness beyond
// the matrix contract is a non-goal; unrecognized sequences are skipped.

// vtState enumerates the parser states.
type vtState int

const (
	vtGround  vtState = iota
	vtEscape          // after ESC
	vtCSI             // reading CSI parameters
	vtOSC             // reading an OSC string
	vtCharset         // after ESC ( or ESC )
)

// VT parses the byte stream of the child process and drives a Matrix.
type VT struct {
	matrix *Matrix
	state  vtState
	style  Style

	// CSI accumulator
	params  []int
	curPar  int
	hasPar  bool
	private byte

	// OSC strings are swallowed; this tracks the terminating ESC of ST.
	oscEsc bool

	// UTF-8 accumulator
	utf8Buf  []byte
	utf8Need int

	// Scroll region margins (1-based rows, inclusive).
	marginTop    int
	marginBottom int

	savedPos    Point
	savedStyle  Style
	hasSavedPos bool
}

// NewVT creates a driver for the given matrix.
func NewVT(matrix *Matrix) *VT {
	v := &VT{
		matrix: matrix,
		style:  DefaultStyle(),
		params: make([]int, 0, 16),
	}
	v.resetMargins()
	return v
}

func (v *VT) resetMargins() {
	v.marginTop = 1
	v.marginBottom = v.matrix.Rows()
}

// Reset restores the driver and the matrix to their initial state.
func (v *VT) Reset() {
	v.matrix.Reset()
	v.state = vtGround
	v.style = DefaultStyle()
	v.utf8Buf = v.utf8Buf[:0]
	v.utf8Need = 0
	v.hasSavedPos = false
	v.resetMargins()
}

// Write feeds child output bytes into the driver.
func (v *VT) Write(data []byte) {
	for _, b := range data {
		v.processByte(b)
	}
}

func (v *VT) processByte(b byte) {
	if v.utf8Need > 0 {
		if b&0xC0 == 0x80 {
			v.utf8Buf = append(v.utf8Buf, b)
			v.utf8Need--
			if v.utf8Need == 0 {
				if r := decodeUTF8(v.utf8Buf); r != 0 && v.state == vtGround {
					v.print(r)
				}
				v.utf8Buf = v.utf8Buf[:0]
			}
			return
		}
		// Invalid continuation byte; drop the partial sequence.
		v.utf8Buf = v.utf8Buf[:0]
		v.utf8Need = 0
	}

	if v.state == vtGround {
		switch {
		case b&0xE0 == 0xC0:
			v.utf8Buf = append(v.utf8Buf[:0], b)
			v.utf8Need = 1
			return
		case b&0xF0 == 0xE0:
			v.utf8Buf = append(v.utf8Buf[:0], b)
			v.utf8Need = 2
			return
		case b&0xF8 == 0xF0:
			v.utf8Buf = append(v.utf8Buf[:0], b)
			v.utf8Need = 3
			return
		}
	}

	switch v.state {
	case vtGround:
		v.handleGround(b)
	case vtEscape:
		v.handleEscape(b)
	case vtCSI:
		v.handleCSI(b)
	case vtOSC:
		v.handleOSC(b)
	case vtCharset:
		// Charset designation: consume the single designator byte.
		v.state = vtGround
	}
}

// decodeUTF8 decodes a complete multi-byte UTF-8 sequence. Returns zero
// for malformed input.
func decodeUTF8(buf []byte) rune {
	if len(buf) == 0 {
		return 0
	}
	var r rune
	switch {
	case buf[0]&0xE0 == 0xC0:
		r = rune(buf[0] & 0x1F)
	case buf[0]&0xF0 == 0xE0:
		r = rune(buf[0] & 0x0F)
	case buf[0]&0xF8 == 0xF0:
		r = rune(buf[0] & 0x07)
	default:
		return 0
	}
	for _, b := range buf[1:] {
		r = r<<6 | rune(b&0x3F)
	}
	return r
}

// isCombiningMark reports whether the rune attaches to the preceding base
// character instead of occupying its own cell.
func isCombiningMark(r rune) bool {
	switch {
	case r >= 0x0300 && r <= 0x036F: // combining diacritical marks
		return true
	case r >= 0x1AB0 && r <= 0x1AFF: // extended
		return true
	case r >= 0x1DC0 && r <= 0x1DFF: // supplement
		return true
	case r >= 0x20D0 && r <= 0x20FF: // marks for symbols
		return true
	case r >= 0xFE20 && r <= 0xFE2F: // half marks
		return true
	}
	return false
}

func (v *VT) print(r rune) {
	v.matrix.Write(r, v.style, isCombiningMark(r))
}

func (v *VT) handleGround(b byte) {
	switch b {
	case 0x00:
		// NUL: ignored
	case 0x07:
		// BEL: no audible bell on e-paper
	case 0x08:
		v.matrix.MoveRel(0, -1, false)
	case 0x09:
		col := v.matrix.Col()
		next := (col/8)*8 + 9
		if next > v.matrix.Cols() {
			next = v.matrix.Cols()
		}
		v.matrix.MoveAbs(v.matrix.Row(), next)
	case 0x0A, 0x0B, 0x0C:
		v.lineFeed()
	case 0x0D:
		v.matrix.MoveAbs(v.matrix.Row(), 1)
	case 0x1B:
		v.state = vtEscape
	default:
		if b >= 0x20 && b < 0x7F {
			v.print(rune(b))
		}
	}
}

// lineFeed advances the cursor one row, scrolling the margin region when
// the cursor sits on the bottom margin.
func (v *VT) lineFeed() {
	row := v.matrix.Row()
	if row == v.marginBottom {
		v.scrollRegion(1)
		return
	}
	v.matrix.MoveRel(1, 0, false)
}

// reverseLineFeed moves the cursor one row up, scrolling the region down
// at the top margin.
func (v *VT) reverseLineFeed() {
	row := v.matrix.Row()
	if row == v.marginTop {
		v.scrollRegion(-1)
		return
	}
	v.matrix.MoveRel(-1, 0, false)
}

// scrollRegion scrolls the margin region by n rows; positive n scrolls
// the content up.
func (v *VT) scrollRegion(n int) {
	r := Rect{1, v.marginTop, v.matrix.Cols(), v.marginBottom}
	v.matrix.Scroll(0, v.style, r, n, 0)
}

func (v *VT) handleEscape(b byte) {
	v.state = vtGround
	switch b {
	case '[':
		v.state = vtCSI
		v.params = v.params[:0]
		v.curPar = 0
		v.hasPar = false
		v.private = 0
	case ']':
		v.state = vtOSC
		v.oscEsc = false
	case '(', ')':
		v.state = vtCharset
	case '7':
		v.savedPos = v.matrix.Pos()
		v.savedStyle = v.style
		v.hasSavedPos = true
	case '8':
		if v.hasSavedPos {
			v.matrix.MoveAbs(v.savedPos.Y, v.savedPos.X)
			v.style = v.savedStyle
		}
	case 'D':
		v.lineFeed()
	case 'E':
		v.lineFeed()
		v.matrix.MoveAbs(v.matrix.Row(), 1)
	case 'M':
		v.reverseLineFeed()
	case 'c':
		v.Reset()
	}
}

func (v *VT) handleOSC(b byte) {
	// OSC strings end with BEL or ST (ESC \); their content is ignored.
	switch {
	case b == 0x07:
		v.state = vtGround
	case b == 0x1B:
		v.oscEsc = true
	case v.oscEsc && b == '\\':
		v.state = vtGround
	default:
		v.oscEsc = false
	}
}

func (v *VT) pushParam() {
	if v.hasPar || len(v.params) > 0 {
		v.params = append(v.params, v.curPar)
	}
	v.curPar = 0
	v.hasPar = false
}

// param returns the i-th CSI parameter, or def when absent or zero.
func (v *VT) param(i, def int) int {
	if i >= len(v.params) || v.params[i] == 0 {
		return def
	}
	return v.params[i]
}

func (v *VT) handleCSI(b byte) {
	switch {
	case b >= '0' && b <= '9':
		v.curPar = v.curPar*10 + int(b-'0')
		v.hasPar = true
		return
	case b == ';' || b == ':':
		v.hasPar = true
		v.pushParam()
		return
	case b == '?' || b == '>' || b == '<' || b == '=':
		v.private = b
		return
	case b >= 0x20 && b <= 0x2F:
		// Intermediate bytes (e.g. DECSCUSR's space) are skipped.
		return
	}

	v.pushParam()
	v.state = vtGround

	if v.private == '?' {
		v.handlePrivateMode(b)
		return
	}

	m := v.matrix
	switch b {
	case 'A':
		m.MoveRel(-v.param(0, 1), 0, false)
	case 'B':
		m.MoveRel(v.param(0, 1), 0, false)
	case 'C':
		m.MoveRel(0, v.param(0, 1), false)
	case 'D':
		m.MoveRel(0, -v.param(0, 1), false)
	case 'E':
		m.MoveRel(v.param(0, 1), 0, false)
		m.MoveAbs(m.Row(), 1)
	case 'F':
		m.MoveRel(-v.param(0, 1), 0, false)
		m.MoveAbs(m.Row(), 1)
	case 'G', '`':
		m.MoveAbs(m.Row(), v.param(0, 1))
	case 'H', 'f':
		m.MoveAbs(v.param(0, 1), v.param(1, 1))
	case 'd':
		m.MoveAbs(v.param(0, 1), m.Col())
	case 'J':
		v.eraseDisplay(v.param(0, 0))
	case 'K':
		v.eraseLine(v.param(0, 0))
	case 'L':
		// Insert lines: the rows below the cursor move down.
		r := Rect{1, m.Row(), m.Cols(), v.marginBottom}
		m.Scroll(0, v.style, r, -v.param(0, 1), 0)
	case 'M':
		// Delete lines: the rows below the cursor move up.
		r := Rect{1, m.Row(), m.Cols(), v.marginBottom}
		m.Scroll(0, v.style, r, v.param(0, 1), 0)
	case '@':
		// Insert blank characters at the cursor.
		r := Rect{m.Col(), m.Row(), m.Cols(), m.Row()}
		m.Scroll(0, v.style, r, 0, -v.param(0, 1))
	case 'P':
		// Delete characters at the cursor.
		r := Rect{m.Col(), m.Row(), m.Cols(), m.Row()}
		m.Scroll(0, v.style, r, 0, v.param(0, 1))
	case 'X':
		// Erase characters without moving the rest of the line.
		n := v.param(0, 1)
		to := min(m.Col()+n-1, m.Cols())
		m.Fill(0, v.style, Point{m.Col(), m.Row()}, Point{to, m.Row()})
	case 'S':
		v.scrollRegion(v.param(0, 1))
	case 'T':
		v.scrollRegion(-v.param(0, 1))
	case 'm':
		v.handleSGR()
	case 'r':
		top := v.param(0, 1)
		bottom := v.param(1, m.Rows())
		if top < bottom {
			v.marginTop = top
			v.marginBottom = min(bottom, m.Rows())
			m.MoveAbs(1, 1)
		}
	case 's':
		v.savedPos = m.Pos()
		v.hasSavedPos = true
	case 'u':
		if v.hasSavedPos {
			m.MoveAbs(v.savedPos.Y, v.savedPos.X)
		}
	}
}

func (v *VT) handlePrivateMode(b byte) {
	set := b == 'h'
	if b != 'h' && b != 'l' {
		return
	}
	for i := range v.params {
		switch v.params[i] {
		case 25: // DECTCEM
			v.matrix.SetCursorVisible(set)
		case 47, 1047, 1049:
			v.matrix.SetAlternativeBufferActive(set)
			if v.params[i] == 1049 {
				if set {
					v.savedPos = v.matrix.Pos()
					v.hasSavedPos = true
					v.matrix.MoveAbs(1, 1)
				} else if v.hasSavedPos {
					v.matrix.MoveAbs(v.savedPos.Y, v.savedPos.X)
				}
			}
		}
	}
}

func (v *VT) eraseDisplay(mode int) {
	m := v.matrix
	switch mode {
	case 0:
		m.Fill(0, v.style, m.Pos(), Point{m.Cols(), m.Rows()})
	case 1:
		m.Fill(0, v.style, Point{1, 1}, m.Pos())
	case 2, 3:
		m.Fill(0, v.style, Point{1, 1}, Point{m.Cols(), m.Rows()})
	}
}

func (v *VT) eraseLine(mode int) {
	m := v.matrix
	row := m.Row()
	switch mode {
	case 0:
		m.Fill(0, v.style, m.Pos(), Point{m.Cols(), row})
	case 1:
		m.Fill(0, v.style, Point{1, row}, m.Pos())
	case 2:
		m.Fill(0, v.style, Point{1, row}, Point{m.Cols(), row})
	}
}

// sgrColor reads an extended color specification (38/48;5;n or
// 38/48;2;r;g;b) starting after the introducer at index i. Returns the
// color and the index of the last consumed parameter.
func (v *VT) sgrColor(i int) (Color, int, bool) {
	if i+1 < len(v.params) && v.params[i+1] == 5 && i+2 < len(v.params) {
		return IndexedColor(v.params[i+2]), i + 2, true
	}
	if i+1 < len(v.params) && v.params[i+1] == 2 && i+4 < len(v.params) {
		c := RGBA{
			R: uint8(v.params[i+2]),
			G: uint8(v.params[i+3]),
			B: uint8(v.params[i+4]),
			A: 0xFF,
		}
		return RGBColor(c), i + 4, true
	}
	return Color{}, i, false
}

func (v *VT) handleSGR() {
	if len(v.params) == 0 {
		v.style = DefaultStyle()
		return
	}
	for i := 0; i < len(v.params); i++ {
		p := v.params[i]
		switch {
		case p == 0:
			v.style = DefaultStyle()
		case p == 1:
			v.style.Bold = true
		case p == 3:
			v.style.Italic = true
		case p == 4:
			v.style.Underline = 1
		case p == 7:
			v.style.Inverse = true
		case p == 8:
			v.style.Concealed = true
		case p == 9:
			v.style.Strikethrough = true
		case p == 21:
			v.style.Underline = 2
		case p == 22:
			v.style.Bold = false
		case p == 23:
			v.style.Italic = false
		case p == 24:
			v.style.Underline = 0
		case p == 27:
			v.style.Inverse = false
		case p == 28:
			v.style.Concealed = false
		case p == 29:
			v.style.Strikethrough = false
		case p >= 30 && p <= 37:
			v.style.Fg = IndexedColor(p - 30)
			v.style.DefaultFg = false
		case p == 38:
			if c, j, ok := v.sgrColor(i); ok {
				v.style.Fg = c
				v.style.DefaultFg = false
				i = j
			} else {
				return
			}
		case p == 39:
			v.style.DefaultFg = true
		case p >= 40 && p <= 47:
			v.style.Bg = IndexedColor(p - 40)
			v.style.DefaultBg = false
		case p == 48:
			if c, j, ok := v.sgrColor(i); ok {
				v.style.Bg = c
				v.style.DefaultBg = false
				i = j
			} else {
				return
			}
		case p == 49:
			v.style.DefaultBg = true
		case p >= 90 && p <= 97:
			v.style.Fg = IndexedColor(p - 90 + 8)
			v.style.DefaultFg = false
		case p >= 100 && p <= 107:
			v.style.Bg = IndexedColor(p - 100 + 8)
			v.style.DefaultBg = false
		}
	}
}
