// Package pattern generates built-in test patterns for the display.
package pattern

import (
	"github.com/example/busefb/internal/fb"
	"github.com/example/busefb/internal/layout"
)

type Kind string

const (
	None        Kind = ""
	ColumnSweep Kind = "column_sweep"
	Checker     Kind = "checker"
	Blink       Kind = "blink"
	AllOn       Kind = "all_on"
)

type Plan struct{ Kind Kind }

type Runner struct {
	plan Plan
	step int
}

func NewRunner(plan Plan) *Runner { return &Runner{plan: plan} }
func (r *Runner) Kind() Kind      { return r.plan.Kind }

// Step fills img with the next frame of the pattern; returns false when the
// pattern is complete. Cyclic patterns never complete.
func (r *Runner) Step(l layout.Layout, img *fb.Buffer) bool {
	img.Clear()

	switch r.plan.Kind {
	case ColumnSweep:
		x := r.step
		if x >= l.Width {
			return false
		}
		for y := 0; y < l.Height; y++ {
			img.SetBit(x, y, true)
		}
	case Checker:
		even := r.step%2 == 0
		for y := 0; y < l.Height; y++ {
			for x := 0; x < l.Width; x++ {
				img.SetBit(x, y, ((x+y)%2 == 0) == even)
			}
		}
	case Blink:
		if r.step%2 == 0 {
			fill(l, img)
		}
	case AllOn:
		fill(l, img)
	default:
		return false
	}
	r.step++
	return true
}

func fill(l layout.Layout, img *fb.Buffer) {
	for y := 0; y < l.Height; y++ {
		for x := 0; x < l.Width; x++ {
			img.SetBit(x, y, true)
		}
	}
}
