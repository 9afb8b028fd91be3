package fb

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

func TestBitAddressing(t *testing.T) {
	b := New(128, 19)
	require.Equal(t, 304, b.Len())

	// idx = y*width + x, byte idx>>3, bit idx&7
	b.SetBit(0, 0, true)
	b.SetBit(1, 0, true)
	b.SetBit(0, 1, true)
	b.SetBit(127, 0, true)

	snap := make([]byte, b.Len())
	b.Snapshot(snap)
	assert.Equal(t, byte(0x03), snap[0])
	assert.Equal(t, byte(0x80), snap[15], "bit 127 is the MSB of byte 15")
	assert.Equal(t, byte(0x01), snap[16], "row 1 starts at byte 16")

	assert.True(t, b.BitAt(0, 0))
	assert.True(t, b.BitAt(127, 0))
	assert.False(t, b.BitAt(2, 0))

	b.SetBit(0, 0, false)
	assert.False(t, b.BitAt(0, 0))
}

func TestOutOfBoundsDropped(t *testing.T) {
	b := New(8, 8)
	b.SetBit(-1, 0, true)
	b.SetBit(8, 0, true)
	b.SetBit(0, 8, true)
	snap := make([]byte, b.Len())
	b.Snapshot(snap)
	for i, v := range snap {
		assert.Zero(t, v, "byte %d", i)
	}
	assert.False(t, b.BitAt(-1, 0))
	assert.False(t, b.BitAt(8, 0))
}

func TestImageSurface(t *testing.T) {
	b := New(16, 8)
	assert.Equal(t, image.Rect(0, 0, 16, 8), b.Bounds())
	assert.Equal(t, image1bit.BitModel, b.ColorModel())

	b.Set(3, 2, color.White)
	assert.Equal(t, image1bit.On, b.At(3, 2))
	b.Set(3, 2, color.Black)
	assert.Equal(t, image1bit.Off, b.At(3, 2))
}

func TestDrawSrc(t *testing.T) {
	b := New(16, 8)
	b.DrawSrc(image.Rect(2, 1, 6, 3), image.NewUniform(color.White), image.Point{})
	for y := 0; y < 8; y++ {
		for x := 0; x < 16; x++ {
			want := x >= 2 && x < 6 && y >= 1 && y < 3
			assert.Equal(t, want, b.BitAt(x, y), "pixel (%d,%d)", x, y)
		}
	}
}

func TestWriteValidatesLength(t *testing.T) {
	b := New(128, 19)
	_, err := b.Write(make([]byte, 303))
	assert.Error(t, err)

	p := make([]byte, 304)
	p[0] = 0xFF
	n, err := b.Write(p)
	require.NoError(t, err)
	assert.Equal(t, 304, n)
	assert.True(t, b.BitAt(0, 0))
	assert.True(t, b.BitAt(7, 0))
	assert.False(t, b.BitAt(8, 0))
}

func TestSnapshotIsolation(t *testing.T) {
	b := New(16, 8)
	b.SetBit(5, 5, true)

	snap := make([]byte, b.Len())
	b.Snapshot(snap)

	// Mutations after the copy must not show up in the snapshot.
	b.SetBit(0, 0, true)
	b.SetBit(5, 5, false)

	idx := 5*16 + 5
	assert.NotZero(t, snap[idx>>3]&(1<<(idx&7)))
	assert.Zero(t, snap[0]&1)
}

func TestClear(t *testing.T) {
	b := New(16, 8)
	for y := 0; y < 8; y++ {
		for x := 0; x < 16; x++ {
			b.SetBit(x, y, true)
		}
	}
	b.Clear()
	snap := make([]byte, b.Len())
	b.Snapshot(snap)
	for i, v := range snap {
		assert.Zero(t, v, "byte %d", i)
	}
}
