package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDerivedConstants(t *testing.T) {
	tests := []struct {
		name                   string
		w, h, panels           int
		regsPerCol, panelCols  int
		colsPerGroup           int
		panelBlockBytes        int
		groupBytes, frameBytes int
		bitmapBytes            int
	}{
		{"buse 128x19", 128, 19, 4, 3, 32, 8, 25, 100, 400, 304},
		{"128x24", 128, 24, 4, 3, 32, 8, 25, 100, 400, 384},
		{"256x19 eight panels", 256, 19, 8, 3, 32, 8, 25, 200, 800, 608},
		{"64x8", 64, 8, 4, 1, 16, 4, 5, 20, 80, 64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.w, tt.h, tt.panels)
			require.NoError(t, err)
			assert.Equal(t, tt.regsPerCol, l.RegsPerCol)
			assert.Equal(t, tt.panelCols, l.PanelCols)
			assert.Equal(t, tt.colsPerGroup, l.ColsPerGroup)
			assert.Equal(t, tt.panelBlockBytes, l.PanelBlockBytes)
			assert.Equal(t, tt.groupBytes, l.GroupBytes)
			assert.Equal(t, tt.frameBytes, l.FrameBytes)
			assert.Equal(t, tt.bitmapBytes, l.BitmapBytes)

			// The frame size identity doubles as the allocation size and
			// the transfer chunk boundary.
			assert.Equal(t, Groups*tt.panels*(tt.colsPerGroup*tt.regsPerCol+1), l.FrameBytes)
		})
	}
}

func TestInvalidGeometry(t *testing.T) {
	tests := []struct {
		name         string
		w, h, panels int
	}{
		{"zero width", 0, 19, 4},
		{"zero height", 128, 0, 4},
		{"zero panels", 128, 19, 0},
		{"negative width", -128, 19, 4},
		{"width not divisible by panels", 130, 19, 4},
		{"panel width not divisible by groups", 100, 19, 4},
		{"odd columns per group", 96, 19, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.w, tt.h, tt.panels)
			assert.Error(t, err)
		})
	}
}

func TestGroupRange(t *testing.T) {
	l, err := New(128, 19, 4)
	require.NoError(t, err)
	for g := 0; g < Groups; g++ {
		lo, hi := l.Group(g)
		assert.Equal(t, g*100, lo)
		assert.Equal(t, (g+1)*100, hi)
	}
	_, hi := l.Group(Groups - 1)
	assert.Equal(t, l.FrameBytes, hi)
}
