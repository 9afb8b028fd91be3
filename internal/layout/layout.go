package layout

import "fmt"

// Groups is the number of interleaved column subsets per frame. The wire
// protocol always splits each panel's columns into exactly four bursts;
// group assignment is x mod 4.
const Groups = 4

// Layout holds the packing constants derived from the display geometry.
// All fields are computed once at attach time and stay fixed for the
// lifetime of a device instance.
type Layout struct {
	Width  int
	Height int
	Panels int

	RegsPerCol      int // vertical bytes per column
	PanelCols       int // columns per panel
	ColsPerGroup    int // columns of one panel inside one group burst
	PanelBlockBytes int // header byte plus column registers for one panel
	GroupBytes      int // one burst: every panel's block for a group
	FrameBytes      int // all four group bursts
	BitmapBytes     int // linear 1bpp bitmap backing the framebuffer
}

// New derives a Layout from the display geometry. A geometry that does not
// divide evenly into panels, groups and column pairs is a configuration
// error, not a runtime condition.
func New(width, height, panels int) (Layout, error) {
	if width <= 0 || height <= 0 || panels <= 0 {
		return Layout{}, fmt.Errorf("busefb: invalid geometry %dx%d/%d: dimensions must be positive", width, height, panels)
	}
	if width%panels != 0 {
		return Layout{}, fmt.Errorf("busefb: width %d not divisible by %d panels", width, panels)
	}
	panelCols := width / panels
	if panelCols%Groups != 0 {
		return Layout{}, fmt.Errorf("busefb: panel width %d not divisible by %d groups", panelCols, Groups)
	}
	colsPerGroup := panelCols / Groups
	if colsPerGroup%2 != 0 {
		return Layout{}, fmt.Errorf("busefb: %d columns per group: the column pair swap needs an even count", colsPerGroup)
	}
	l := Layout{
		Width:  width,
		Height: height,
		Panels: panels,

		RegsPerCol:   (height + 7) / 8,
		PanelCols:    panelCols,
		ColsPerGroup: colsPerGroup,
		BitmapBytes:  (width*height + 7) / 8,
	}
	l.PanelBlockBytes = l.ColsPerGroup*l.RegsPerCol + 1
	l.GroupBytes = panels * l.PanelBlockBytes
	l.FrameBytes = Groups * l.GroupBytes
	return l, nil
}

// Group returns the byte range [lo, hi) of group g inside a wire frame.
func (l Layout) Group(g int) (lo, hi int) {
	lo = g * l.GroupBytes
	return lo, lo + l.GroupBytes
}
