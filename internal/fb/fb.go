// Package fb implements the shared linear framebuffer feeding the display
// refresh cycle.
package fb

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// Buffer is a 1 bit per pixel bitmap in row-major order, packed LSB first
// within each byte. Writers may mutate it at any time; the refresh cycle
// observes it only through Snapshot, so a transmitted frame always shows a
// consistent point-in-time copy.
type Buffer struct {
	mu   sync.Mutex
	w, h int
	pix  []byte
}

// New returns a cleared buffer for a w by h display.
func New(w, h int) *Buffer {
	return &Buffer{w: w, h: h, pix: make([]byte, (w*h+7)/8)}
}

// ColorModel implements image.Image.
func (b *Buffer) ColorModel() color.Model { return image1bit.BitModel }

// Bounds implements image.Image.
func (b *Buffer) Bounds() image.Rectangle { return image.Rect(0, 0, b.w, b.h) }

// Len returns the size of the underlying bitmap in bytes.
func (b *Buffer) Len() int { return len(b.pix) }

// At implements image.Image.
func (b *Buffer) At(x, y int) color.Color {
	if b.BitAt(x, y) {
		return image1bit.On
	}
	return image1bit.Off
}

// BitAt reports whether the pixel at (x, y) is lit.
func (b *Buffer) BitAt(x, y int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bitAt(x, y)
}

// Set implements draw.Image.
func (b *Buffer) Set(x, y int, c color.Color) {
	b.SetBit(x, y, image1bit.BitModel.Convert(c).(image1bit.Bit) == image1bit.On)
}

// SetBit sets or clears a single pixel. Out of bounds writes are dropped.
func (b *Buffer) SetBit(x, y int, on bool) {
	b.mu.Lock()
	b.setBit(x, y, on)
	b.mu.Unlock()
}

// DrawSrc draws src over the rectangle r of the buffer, holding the buffer
// lock once for the whole operation instead of per pixel.
func (b *Buffer) DrawSrc(r image.Rectangle, src image.Image, sp image.Point) {
	b.mu.Lock()
	draw.Draw(view{b}, r, src, sp, draw.Src)
	b.mu.Unlock()
}

// Write replaces the whole bitmap with p.
func (b *Buffer) Write(p []byte) (int, error) {
	if len(p) != len(b.pix) {
		return 0, fmt.Errorf("busefb: bitmap length %d, want %d", len(p), len(b.pix))
	}
	b.mu.Lock()
	copy(b.pix, p)
	b.mu.Unlock()
	return len(p), nil
}

// Clear switches every pixel off.
func (b *Buffer) Clear() {
	b.mu.Lock()
	for i := range b.pix {
		b.pix[i] = 0
	}
	b.mu.Unlock()
}

// Snapshot copies the bitmap into dst. This is the only window during which
// writers block on the refresh cycle; composition and transmission run on
// the copy.
func (b *Buffer) Snapshot(dst []byte) {
	b.mu.Lock()
	copy(dst, b.pix)
	b.mu.Unlock()
}

func (b *Buffer) bitAt(x, y int) bool {
	if x < 0 || y < 0 || x >= b.w || y >= b.h {
		return false
	}
	idx := y*b.w + x
	return b.pix[idx>>3]&(1<<(idx&7)) != 0
}

func (b *Buffer) setBit(x, y int, on bool) {
	if x < 0 || y < 0 || x >= b.w || y >= b.h {
		return
	}
	idx := y*b.w + x
	if on {
		b.pix[idx>>3] |= 1 << (idx & 7)
	} else {
		b.pix[idx>>3] &^= 1 << (idx & 7)
	}
}

// view is the lock-free surface handed to image/draw while the buffer lock
// is already held.
type view struct {
	b *Buffer
}

func (v view) ColorModel() color.Model { return image1bit.BitModel }
func (v view) Bounds() image.Rectangle { return image.Rect(0, 0, v.b.w, v.b.h) }

func (v view) At(x, y int) color.Color {
	if v.b.bitAt(x, y) {
		return image1bit.On
	}
	return image1bit.Off
}

func (v view) Set(x, y int, c color.Color) {
	v.b.setBit(x, y, image1bit.BitModel.Convert(c).(image1bit.Bit) == image1bit.On)
}
