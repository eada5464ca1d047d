package core

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jo-hoe/classwatch/internal/attendance"
	"github.com/jo-hoe/classwatch/internal/auth"
	"github.com/jo-hoe/classwatch/internal/capture"
	"github.com/jo-hoe/classwatch/internal/capture/device"
	"github.com/jo-hoe/classwatch/internal/facedetect"
	"github.com/jo-hoe/classwatch/internal/tokenstore"
)

const defaultPort = 8080

// PluginConfig selects a registered implementation by name; all other keys are its parameters
type PluginConfig struct {
	Name   string         `yaml:"name"`
	Params map[string]any `yaml:",inline"`
}

type DetectorConfig struct {
	Name string `yaml:"name"`
	// ModelURI is the static location the detection model is loaded from
	ModelURI string         `yaml:"modelURI"`
	Params   map[string]any `yaml:",inline"`
}

type CaptureConfig struct {
	Quota           int `yaml:"quota"`
	IntervalSeconds int `yaml:"intervalSeconds"`
	Width           int `yaml:"width"`
	Height          int `yaml:"height"`
}

type AuthConfig struct {
	Endpoint       string `yaml:"endpoint"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
}

type TokenStore struct {
	Type             string `yaml:"type"`
	ConnectionString string `yaml:"connectionString"`
}

type RosterConfig struct {
	Students []attendance.Student `yaml:"students"`
}

type ServiceConfig struct {
	Port       int            `yaml:"port"`
	LogLevel   string         `yaml:"logLevel"`
	Capture    CaptureConfig  `yaml:"capture"`
	Camera     PluginConfig   `yaml:"camera"`
	Detector   DetectorConfig `yaml:"detector"`
	Auth       AuthConfig     `yaml:"auth"`
	TokenStore TokenStore     `yaml:"tokenStore"`
	Roster     RosterConfig   `yaml:"roster"`
}

// LoadConfig loads configuration from the specified YAML file
func LoadConfig(configPath string) (*ServiceConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	var config ServiceConfig
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	config.applyDefaults()
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", configPath, err)
	}

	return &config, nil
}

func (c *ServiceConfig) applyDefaults() {
	defaults := capture.DefaultConfig()
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Capture.Quota == 0 {
		c.Capture.Quota = defaults.Quota
	}
	if c.Capture.IntervalSeconds == 0 {
		c.Capture.IntervalSeconds = int(defaults.Interval / time.Second)
	}
	if c.Capture.Width == 0 {
		c.Capture.Width = defaults.Width
	}
	if c.Capture.Height == 0 {
		c.Capture.Height = defaults.Height
	}
	if c.Auth.Endpoint == "" {
		c.Auth.Endpoint = auth.DefaultEndpoint
	}
	if c.TokenStore.Type == "" {
		c.TokenStore.Type = tokenstore.TypeMemory
	}
	if len(c.Roster.Students) == 0 {
		c.Roster.Students = attendance.DefaultStudents()
	}
}

func (c *ServiceConfig) validate() error {
	if _, err := parseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Capture.Quota < 0 || c.Capture.IntervalSeconds < 0 || c.Capture.Width < 0 || c.Capture.Height < 0 {
		return fmt.Errorf("capture settings must be positive: %+v", c.Capture)
	}

	if c.Camera.Name == "" {
		return fmt.Errorf("camera has empty name")
	}
	if !device.DefaultRegistry.IsRegistered(c.Camera.Name) {
		return fmt.Errorf("unknown camera %q, available: %v", c.Camera.Name, device.DefaultRegistry.GetRegisteredNames())
	}
	if c.Detector.Name == "" {
		return fmt.Errorf("detector has empty name")
	}
	if !facedetect.DefaultRegistry.IsRegistered(c.Detector.Name) {
		return fmt.Errorf("unknown detector %q, available: %v", c.Detector.Name, facedetect.DefaultRegistry.GetRegisteredNames())
	}

	seenIDs := make(map[int]bool)
	for i, student := range c.Roster.Students {
		if student.Name == "" {
			return fmt.Errorf("student at index %d has empty name", i)
		}
		if seenIDs[student.ID] {
			return fmt.Errorf("duplicate student id: %d", student.ID)
		}
		seenIDs[student.ID] = true
	}

	return nil
}

// CaptureSettings converts the capture section for the capture controller
func (c *ServiceConfig) CaptureSettings() capture.Config {
	return capture.Config{
		Quota:    c.Capture.Quota,
		Interval: time.Duration(c.Capture.IntervalSeconds) * time.Second,
		Width:    c.Capture.Width,
		Height:   c.Capture.Height,
		ModelURI: c.Detector.ModelURI,
	}
}

// SlogLevel returns the configured log level, info when unset
func (c *ServiceConfig) SlogLevel() slog.Level {
	level, _ := parseLogLevel(c.LogLevel)
	return level
}

func parseLogLevel(value string) (slog.Level, error) {
	switch strings.ToLower(value) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", value)
	}
}
