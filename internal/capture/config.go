package capture

import (
	"fmt"
	"time"
)

// Config defines the capture session parameters
type Config struct {
	Quota    int
	Interval time.Duration
	Width    int
	Height   int
	// ModelURI is the static location the detector model is loaded from at mount.
	ModelURI string
}

// DefaultConfig returns five captures, one every 12 seconds, at 640x480
func DefaultConfig() Config {
	return Config{
		Quota:    5,
		Interval: 12 * time.Second,
		Width:    640,
		Height:   480,
	}
}

func (c Config) validate() error {
	if c.Quota <= 0 {
		return fmt.Errorf("quota must be positive, got %d", c.Quota)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %v", c.Interval)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("invalid raster size %dx%d", c.Width, c.Height)
	}
	return nil
}
