package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Panel struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	Panels int `yaml:"panels"`
}

type SPI struct {
	Dev     string `yaml:"dev"`      // e.g. /dev/spidev0.0; empty for the first port
	SpeedHz int    `yaml:"speed_hz"` // e.g. 2000000
}

type Config struct {
	Panel   Panel  `yaml:"panel"`
	SPI     SPI    `yaml:"spi,omitempty"`
	CSPin   string `yaml:"cs_pin"`   // chip select / brightness gate line, e.g. GPIO25
	PulseUs int    `yaml:"pulse_us"` // display window per group burst; larger is brighter
	Pattern string `yaml:"pattern"`
	FPS     int    `yaml:"fps"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}
