package model

import "time"

// Config holds the settings of a conversion run
type Config struct {
	OutputDir        string       `yaml:"output-dir" json:"outputDir" validate:"required"`
	ViewsDir         string       `yaml:"views-dir" json:"viewsDir"`
	Server           ServerConfig `yaml:"server" json:"server"`
	Ignore           []string     `yaml:"ignore" json:"ignore,omitempty"`
	IgnoreActionsTag bool         `yaml:"ignore-actions-tag" json:"ignoreActionsTag"`
	SkipTags         []string     `yaml:"skip-tags" json:"skipTags,omitempty"`
	Extensions       []string     `yaml:"extensions" json:"extensions,omitempty"`
	Workers          int          `yaml:"workers" json:"workers" validate:"min=1,max=64"`
	Validate         bool         `yaml:"validate" json:"validate"`
	LogFormat        string       `yaml:"log-format" json:"logFormat" validate:"oneof=console json"`
	Verbose          bool         `yaml:"verbose" json:"verbose"`
}

// ServerConfig describes how to reach a Jenkins server
type ServerConfig struct {
	URL      string        `yaml:"url" json:"url" validate:"omitempty,url"`
	Username string        `yaml:"username" json:"username,omitempty"`
	Password string        `yaml:"password" json:"-"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout" validate:"min=0"`

	// RequestsPerSecond caps the request rate; zero lifts the cap.
	RequestsPerSecond float64 `yaml:"requests-per-second" json:"requestsPerSecond" validate:"min=0,max=1000"`
}

// DefaultConfig returns the settings used when no config file is given
func DefaultConfig() *Config {
	return &Config{
		OutputDir: "output",
		Workers:   4,
		LogFormat: "console",
		Server: ServerConfig{
			Timeout:           30 * time.Second,
			RequestsPerSecond: 10,
		},
	}
}

// ViewsOutputDir returns where view documents are written
func (c *Config) ViewsOutputDir() string {
	if c.ViewsDir != "" {
		return c.ViewsDir
	}
	return c.OutputDir + "/views"
}
