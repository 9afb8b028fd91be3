package main

import (
	"flag"
	"image"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/extra/devices/screen"
	"periph.io/x/host/v3"

	"github.com/example/busefb/internal/config"
	"github.com/example/busefb/internal/device"
	"github.com/example/busefb/internal/fb"
	"github.com/example/busefb/internal/layout"
	"github.com/example/busefb/internal/pattern"
)

func main() {
	// ---- Flags (remain usable; config.yaml can override most) ----
	var (
		width       = flag.Int("width", 128, "display width in pixels")
		height      = flag.Int("height", 19, "display height in pixels")
		panels      = flag.Int("panels", 4, "horizontal hardware segments")
		spiDev      = flag.String("spi", "", "SPI port name (empty for the first port)")
		csName      = flag.String("cs", "GPIO25", "chip select / brightness gate pin")
		speedHz     = flag.Int("speed-hz", 2000000, "SPI clock rate")
		pulseUs     = flag.Int("pulse-us", 50, "display window per group burst (us); larger is brighter")
		pat         = flag.String("pattern", string(pattern.Checker), "demo pattern: column_sweep | checker | blink | all_on")
		fps         = flag.Int("fps", 30, "pattern animation rate")
		configPath  = flag.String("config", "config.yaml", "path to config.yaml")
		writeConfig = flag.Bool("write-config", false, "write the effective configuration to -config and exit")
	)
	flag.Parse()

	// ---- Logging ----
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	// ---- Load config.yaml (optional) ----
	var cfg *config.Config
	if c, err := config.Load(*configPath); err != nil {
		log.Warn().Err(err).Str("path", *configPath).Msg("config load failed; proceeding with flags")
	} else {
		cfg = c
	}

	// ---- Effective params (config overrides flags where available) ----
	eW, eH, eP := *width, *height, *panels
	eSPI, eCS := *spiDev, *csName
	eSpeed, ePulse := *speedHz, *pulseUs
	ePat, eFPS := *pat, *fps

	if cfg != nil {
		if cfg.Panel.Width > 0 {
			eW = cfg.Panel.Width
		}
		if cfg.Panel.Height > 0 {
			eH = cfg.Panel.Height
		}
		if cfg.Panel.Panels > 0 {
			eP = cfg.Panel.Panels
		}
		if cfg.SPI.Dev != "" {
			eSPI = cfg.SPI.Dev
		}
		if cfg.SPI.SpeedHz > 0 {
			eSpeed = cfg.SPI.SpeedHz
		}
		if cfg.CSPin != "" {
			eCS = cfg.CSPin
		}
		if cfg.PulseUs > 0 {
			ePulse = cfg.PulseUs
		}
		if cfg.Pattern != "" {
			ePat = cfg.Pattern
		}
		if cfg.FPS > 0 {
			eFPS = cfg.FPS
		}
	}

	l, err := layout.New(eW, eH, eP)
	if err != nil {
		log.Fatal().Err(err).Msg("bad geometry")
	}

	if *writeConfig {
		out := &config.Config{
			Panel:   config.Panel{Width: eW, Height: eH, Panels: eP},
			SPI:     config.SPI{Dev: eSPI, SpeedHz: eSpeed},
			CSPin:   eCS,
			PulseUs: ePulse,
			Pattern: ePat,
			FPS:     eFPS,
		}
		if err := config.Save(*configPath, out); err != nil {
			log.Fatal().Err(err).Str("path", *configPath).Msg("config write failed")
		}
		log.Info().Str("path", *configPath).Msg("config written")
		return
	}

	if _, err := host.Init(); err != nil {
		log.Fatal().Err(err).Msg("host init failed")
	}

	// ---- Attach display; console preview when there is no SPI port ----
	var drawer display.Drawer
	if port, err := spireg.Open(eSPI); err != nil {
		log.Warn().Err(err).Msg("no SPI port found; previewing at the console")
		drawer = screen.New(eW)
	} else {
		defer port.Close()
		cs := gpioreg.ByName(eCS)
		if cs == nil {
			log.Fatal().Str("pin", eCS).Msg("chip select pin not found")
		}
		opts := device.Opts{
			W:      eW,
			H:      eH,
			Panels: eP,
			Freq:   physic.Frequency(eSpeed) * physic.Hertz,
			Pulse:  time.Duration(ePulse) * time.Microsecond,
		}
		dev, err := device.New(port, cs, &opts)
		if err != nil {
			log.Fatal().Err(err).Msg("display attach failed")
		}
		drawer = dev
		log.Info().
			Str("dev", dev.String()).
			Int("frame_bytes", l.FrameBytes).
			Int("group_bytes", l.GroupBytes).
			Int("pulse_us", ePulse).
			Msg("display attached")
	}

	// ---- Pattern loop ----
	runner := pattern.NewRunner(pattern.Plan{Kind: pattern.Kind(ePat)})
	img := fb.New(eW, eH)

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(time.Second / time.Duration(maxInt(1, eFPS)))
	defer ticker.Stop()

loop:
	for {
		select {
		case s := <-ch:
			log.Info().Str("signal", s.String()).Msg("shutting down")
			break loop
		case <-ticker.C:
			if !runner.Step(l, img) {
				log.Info().Str("pattern", ePat).Msg("pattern complete")
				break loop
			}
			if err := drawer.Draw(drawer.Bounds(), img, image.Point{}); err != nil {
				log.Warn().Err(err).Msg("draw failed")
			}
		}
	}

	if err := drawer.Halt(); err != nil {
		log.Warn().Err(err).Msg("halt failed")
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
