// Package config loads the service configuration file and supplies the
// defaults used when no file is present.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level service configuration.
type Config struct {
	Application ApplicationConfig `yaml:"application"`
	Camera      CameraConfig      `yaml:"camera"`
	Model       ModelConfig       `yaml:"model"`
	Server      ServerConfig      `yaml:"server"`
	Storage     StorageConfig     `yaml:"storage"`
}

// ApplicationConfig holds process-level options.
type ApplicationConfig struct {
	Name string `yaml:"name"`
	Tray bool   `yaml:"tray"`
}

// CameraConfig selects and shapes the capture device.
type CameraConfig struct {
	Index  int `yaml:"index"`
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	FPS    int `yaml:"fps"`
}

// ModelConfig points at the optional ONNX detection model. An empty path
// means the service runs on the classical pipeline alone.
type ModelConfig struct {
	Path                string  `yaml:"path"`
	ClassesPath         string  `yaml:"classes_path"`
	ConfidenceThreshold float32 `yaml:"confidence_threshold"`
}

// ServerConfig holds the HTTP listener options.
type ServerConfig struct {
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir"`
}

// StorageConfig locates the settings database. An empty path resolves to
// the per-user data directory at startup.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Application: ApplicationConfig{
			Name: "VeinScope",
			Tray: true,
		},
		Camera: CameraConfig{
			Index:  0,
			Width:  640,
			Height: 480,
			FPS:    30,
		},
		Model: ModelConfig{
			ConfidenceThreshold: 0.5,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// Load reads the YAML file at path over the defaults. A missing file is
// not an error; the defaults are returned as-is.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects values the rest of the system cannot work with.
func (c *Config) Validate() error {
	if c.Camera.Index < 0 {
		return fmt.Errorf("camera index %d is negative", c.Camera.Index)
	}
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		return fmt.Errorf("camera resolution %dx%d is not positive", c.Camera.Width, c.Camera.Height)
	}
	if c.Camera.FPS <= 0 {
		return fmt.Errorf("camera fps %d is not positive", c.Camera.FPS)
	}
	if c.Model.ConfidenceThreshold < 0 || c.Model.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence threshold %f outside [0, 1]", c.Model.ConfidenceThreshold)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server addr is empty")
	}
	return nil
}
