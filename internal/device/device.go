// Package device drives a Buse segmented monochrome LED display over SPI.
//
// The display has no command set: it continuously consumes frames in a
// grouped column format (see internal/wire) and lights each group for as
// long as chip select stays released after the group's burst. That release
// window is the brightness control, so the refresh cycle times it with a
// dedicated one-shot timer rather than sleeping on the work path.
package device

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"

	"github.com/example/busefb/internal/fb"
	"github.com/example/busefb/internal/layout"
	"github.com/example/busefb/internal/wire"
)

// Opts configures the display geometry and transmission timing.
type Opts struct {
	W      int // display width in pixels
	H      int // display height in pixels
	Panels int // horizontal hardware segments

	// Freq is the SPI clock rate.
	Freq physic.Frequency

	// Pulse is how long chip select stays released after each group
	// burst. The display latches the burst and lights it for exactly this
	// window, so a longer pulse means a brighter display.
	Pulse time.Duration
}

// DefaultOpts matches the Buse 128x19 four panel display.
var DefaultOpts = Opts{
	W:      128,
	H:      19,
	Panels: 4,
	Freq:   2 * physic.MegaHertz,
	Pulse:  50 * time.Microsecond,
}

// Dev is an open handle to the display. It owns the refresh cycle; pixel
// data flows in solely through the framebuffer.
type Dev struct {
	c     conn.Conn
	cs    gpio.PinOut
	l     layout.Layout
	fb    *fb.Buffer
	pulse time.Duration

	// shadow and frame are owned by the refresh goroutine. They are
	// allocated once at attach and reused in place every frame.
	shadow []byte
	frame  []byte

	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	halted bool
}

var _ display.Drawer = &Dev{}

// New connects to the display on port p, allocates the per-instance buffers
// and starts the refresh cycle. cs is the chip select line, which doubles
// as the brightness gate. opts can be nil to use DefaultOpts.
func New(p spi.Port, cs gpio.PinOut, opts *Opts) (*Dev, error) {
	if opts == nil {
		o := DefaultOpts
		opts = &o
	}
	l, err := layout.New(opts.W, opts.H, opts.Panels)
	if err != nil {
		return nil, err
	}
	if cs == nil {
		return nil, fmt.Errorf("busefb: chip select pin is required")
	}
	freq := opts.Freq
	if freq == 0 {
		freq = DefaultOpts.Freq
	}
	pulse := opts.Pulse
	if pulse <= 0 {
		pulse = DefaultOpts.Pulse
	}
	c, err := p.Connect(freq, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("busefb: connect: %w", err)
	}
	if lim, ok := c.(conn.Limits); ok {
		if max := lim.MaxTxSize(); max != 0 && max < l.GroupBytes {
			return nil, fmt.Errorf("busefb: SPI max transfer %d below group burst %d", max, l.GroupBytes)
		}
	}
	// A contended line distorts brightness timing but must not block
	// attach.
	if err := cs.Out(gpio.High); err != nil {
		log.Warn().Err(err).Msg("chip select not responding; brightness timing may vary")
	}
	d := &Dev{
		c:      c,
		cs:     cs,
		l:      l,
		fb:     fb.New(l.Width, l.Height),
		pulse:  pulse,
		shadow: make([]byte, l.BitmapBytes),
		frame:  make([]byte, l.FrameBytes),
		done:   make(chan struct{}),
	}
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	go d.refresh(ctx)
	return d, nil
}

// Layout returns the packing constants derived at attach time.
func (d *Dev) Layout() layout.Layout { return d.l }

// Framebuffer returns the shared linear bitmap. Writers may draw into it at
// any time; changes appear starting with the next composed frame, never mid
// frame.
func (d *Dev) Framebuffer() *fb.Buffer { return d.fb }

// ColorModel implements display.Drawer.
func (d *Dev) ColorModel() color.Model { return d.fb.ColorModel() }

// Bounds implements display.Drawer.
func (d *Dev) Bounds() image.Rectangle { return d.fb.Bounds() }

// Draw implements display.Drawer by rendering src into the framebuffer.
func (d *Dev) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	d.mu.Lock()
	halted := d.halted
	d.mu.Unlock()
	if halted {
		return fmt.Errorf("busefb: halted")
	}
	d.fb.DrawSrc(r.Intersect(d.Bounds()), src, sp)
	return nil
}

// Halt stops the refresh cycle, transmits one dark frame and leaves chip
// select asserted. It is idempotent. Teardown order matters: the cycle is
// cancelled and fully drained before the buffers are reused for blanking.
func (d *Dev) Halt() error {
	d.mu.Lock()
	if d.halted {
		d.mu.Unlock()
		return nil
	}
	d.halted = true
	d.mu.Unlock()

	d.cancel()
	<-d.done

	// A zeroed frame is exactly what composing an empty bitmap yields, so
	// the panel goes dark without a special blanking command.
	for i := range d.frame {
		d.frame[i] = 0
	}
	var err error
	for g := 0; g < layout.Groups; g++ {
		lo, hi := d.l.Group(g)
		d.csOut(gpio.High)
		if txErr := d.c.Tx(d.frame[lo:hi], nil); txErr != nil && err == nil {
			err = fmt.Errorf("busefb: blank: %w", txErr)
		}
		d.csOut(gpio.Low)
		d.csOut(gpio.High)
	}
	return err
}

func (d *Dev) String() string {
	return fmt.Sprintf("busefb.Dev{%dx%d}", d.l.Width, d.l.Height)
}

// refresh is the self pacing work context. It composes a frame, then walks
// the four groups, blocking on the bus transfer and on the brightness pulse
// timer in turn. The next frame is composed only after the last group's
// pulse has fully elapsed, so two frames are never in flight and the rate
// settles to whatever the bus and pulse timing actually allow.
func (d *Dev) refresh(ctx context.Context) {
	defer close(d.done)
	timer := time.NewTimer(d.pulse)
	stopTimer(timer)
	for ctx.Err() == nil {
		d.refreshFrame(ctx, timer)
	}
}

// refreshFrame runs one full cycle: snapshot and compose, then one burst
// and one pulse per group, in strictly increasing group order.
func (d *Dev) refreshFrame(ctx context.Context, timer *time.Timer) {
	// Writers block only for the duration of this copy, not for the
	// conversion or the transmission.
	d.fb.Snapshot(d.shadow)
	wire.Compose(d.l, d.shadow, d.frame)
	for g := 0; g < layout.Groups; g++ {
		if err := d.sendGroup(ctx, g, timer); err != nil {
			return
		}
	}
}

// sendGroup transmits one group burst and times its brightness pulse.
// Transfer errors are absorbed: the display frames blocks by their header
// byte and simply drops a corrupt burst, so a failure costs one group for
// one cycle. Only cancellation stops the cycle.
func (d *Dev) sendGroup(ctx context.Context, g int, timer *time.Timer) error {
	lo, hi := d.l.Group(g)
	d.csOut(gpio.High)
	if err := d.c.Tx(d.frame[lo:hi], nil); err != nil {
		log.Warn().Err(err).Int("group", g).Msg("group transfer failed")
	}
	d.csOut(gpio.Low) // display window opens
	timer.Reset(d.pulse)
	select {
	case <-timer.C:
	case <-ctx.Done():
		stopTimer(timer)
		d.csOut(gpio.High)
		return ctx.Err()
	}
	d.csOut(gpio.High) // display window closes
	return nil
}

// csOut toggles the chip select line. The line gates brightness, so a
// failed toggle distorts timing but must not stop the cycle.
func (d *Dev) csOut(l gpio.Level) {
	if err := d.cs.Out(l); err != nil {
		log.Warn().Err(err).Msg("chip select toggle failed")
	}
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}
