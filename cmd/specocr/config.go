package main

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/overlaykit/specocr"
)

type Config struct {
	Core      CoreConfig      `toml:"core"`
	Admission AdmissionConfig `toml:"admission"`
	Grouping  GroupingConfig  `toml:"grouping"`
	Engine    EngineConfig    `toml:"engine"`
}

type CoreConfig struct {
	Enabled               bool `toml:"enabled"`
	MinExecutionInterval  int  `toml:"min_execution_interval_ms"`
	CacheTTL              int  `toml:"cache_ttl_ms"`
	ExecutionTimeout      int  `toml:"execution_timeout_ms"`
	ScreenChangeDetection bool `toml:"screen_change_detection"`
}

type AdmissionConfig struct {
	CPUCeiling         float64 `toml:"cpu_ceiling"`
	GPUCeiling         float64 `toml:"gpu_ceiling"`
	VRAMCeiling        float64 `toml:"vram_ceiling"`
	MinAvailableVRAMMB float64 `toml:"min_available_vram_mb"`
}

type GroupingConfig struct {
	BaseDistance float64 `toml:"base_distance"`
}

type EngineConfig struct {
	// RemoteURL selects the remote recognition server; empty selects the
	// local Tesseract engine.
	RemoteURL string   `toml:"remote_url"`
	Languages []string `toml:"languages"`
}

func NewDefaultConfig() *Config {
	return &Config{
		Core: CoreConfig{
			Enabled:               true,
			MinExecutionInterval:  2000,
			CacheTTL:              30000,
			ExecutionTimeout:      30000,
			ScreenChangeDetection: true,
		},
		Admission: AdmissionConfig{
			CPUCeiling:         specocr.DefaultCPUUsageCeiling,
			GPUCeiling:         specocr.DefaultGPUUsageCeiling,
			VRAMCeiling:        specocr.DefaultVRAMUsageCeiling,
			MinAvailableVRAMMB: specocr.DefaultMinAvailableVRAMMB,
		},
		Grouping: GroupingConfig{
			BaseDistance: specocr.DefaultBaseGroupingDistance,
		},
		Engine: EngineConfig{
			Languages: []string{"eng"},
		},
	}
}

// LoadConfig reads a TOML config file over the defaults. A missing path
// returns the defaults unchanged.
func LoadConfig(path string) (*Config, error) {
	cfg := NewDefaultConfig()
	if path == "" {
		return cfg, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// coordinatorConfig maps the file config onto the library config.
func (c *Config) coordinatorConfig(engine specocr.RecognitionEngine, metrics specocr.MetricsProvider) specocr.Config {
	return specocr.Config{
		Enabled:                      c.Core.Enabled,
		Engine:                       engine,
		Metrics:                      metrics,
		MinExecutionInterval:         time.Duration(c.Core.MinExecutionInterval) * time.Millisecond,
		CacheTTL:                     time.Duration(c.Core.CacheTTL) * time.Millisecond,
		ExecutionTimeout:             time.Duration(c.Core.ExecutionTimeout) * time.Millisecond,
		CPUUsageCeiling:              c.Admission.CPUCeiling,
		GPUUsageCeiling:              c.Admission.GPUCeiling,
		VRAMUsageCeiling:             c.Admission.VRAMCeiling,
		MinAvailableVRAMMB:           c.Admission.MinAvailableVRAMMB,
		ScreenChangeDetectionEnabled: c.Core.ScreenChangeDetection,
		BaseGroupingDistance:         c.Grouping.BaseDistance,
	}
}
