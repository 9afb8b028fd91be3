// Package wire converts the linear framebuffer into the display's grouped
// column transmission format.
package wire

import "github.com/example/busefb/internal/layout"

// Compose packs a framebuffer snapshot into frame, the byte layout the
// display expects on the bus. It is pure with respect to vram: the same
// snapshot always yields the same frame.
//
// The panel samples pixel values with the X axis mirrored but addresses its
// column drivers in native, unmirrored order. The asymmetry is part of the
// hardware contract and must stay bit-exact, as must the column pair swap
// and the group interleave (x mod 4, not a contiguous quarter split).
//
// frame is fully overwritten. Unset pixels contribute nothing beyond the
// initial clear, so a block with no lit pixels keeps a zero header; the
// display ignores the header of a block it has no data for.
func Compose(l layout.Layout, vram, frame []byte) {
	for i := range frame {
		frame[i] = 0
	}
	for y := 0; y < l.Height; y++ {
		// Row 0 in logical space is the last hardware row, MSB first
		// within each vertical register byte.
		yRev := l.Height - 1 - y
		reg := yRev / 8
		bit := byte(7 - yRev%8)
		for x := 0; x < l.Width; x++ {
			idx := y*l.Width + (l.Width - 1 - x)
			if vram[idx>>3]&(1<<(idx&7)) == 0 {
				continue
			}
			panel := x / l.PanelCols
			grp := x % layout.Groups
			// Adjacent column pairs are swapped to match the column
			// driver IC wiring.
			col := (x%l.PanelCols)/layout.Groups ^ 1
			base := grp*l.GroupBytes + panel*l.PanelBlockBytes
			frame[base] = byte(grp)
			frame[base+1+col*l.RegsPerCol+reg] |= 1 << bit
		}
	}
}
