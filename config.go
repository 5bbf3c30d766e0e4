package specocr

import "time"

const (
	// DefaultMinExecutionInterval is the minimum spacing between successful
	// speculative executions.
	DefaultMinExecutionInterval = 2 * time.Second

	// DefaultCacheTTL is how long a speculative result stays consumable.
	DefaultCacheTTL = 30 * time.Second

	// DefaultExecutionTimeout bounds one recognition call.
	DefaultExecutionTimeout = 30 * time.Second

	// DefaultCPUUsageCeiling and friends are the admission ceilings applied
	// when the config leaves them unset.
	DefaultCPUUsageCeiling  = 90.0
	DefaultGPUUsageCeiling  = 80.0
	DefaultVRAMUsageCeiling = 85.0

	// DefaultMinAvailableVRAMMB is the least estimated free VRAM required to
	// admit a speculative execution.
	DefaultMinAvailableVRAMMB = 512.0

	// AssumedTotalVRAMMB is used to estimate VRAM percentages when the
	// metrics provider reports only used megabytes and no authoritative
	// total.
	AssumedTotalVRAMMB = 8192.0

	// DefaultBaseGroupingDistance feeds the region clusterer's proximity
	// thresholds.
	DefaultBaseGroupingDistance = 50.0
)

// Config holds configuration for the Coordinator.
type Config struct {
	// Enabled turns speculative execution on. When false every TryExecute
	// call returns false immediately.
	Enabled bool

	// Engine performs recognition. If nil, TryExecute is a clean no-op.
	Engine RecognitionEngine

	// Metrics reports system load for admission control. If nil, TryExecute
	// fails closed and rejects every call.
	Metrics MetricsProvider

	// Flags reports whether exclusive (authoritative) execution is active.
	// If nil, speculative work is never blocked by mode.
	Flags ModeFlags

	// MinExecutionInterval rejects executions that would start too soon
	// after the previous successful one. If 0, uses
	// DefaultMinExecutionInterval.
	MinExecutionInterval time.Duration

	// CacheTTL is the lifetime of a populated result. If 0, uses
	// DefaultCacheTTL.
	CacheTTL time.Duration

	// ExecutionTimeout bounds one recognition call. If 0, uses
	// DefaultExecutionTimeout.
	ExecutionTimeout time.Duration

	// CPUUsageCeiling, GPUUsageCeiling, VRAMUsageCeiling and
	// MinAvailableVRAMMB are the admission ceilings. If 0, defaults apply.
	CPUUsageCeiling    float64
	GPUUsageCeiling    float64
	VRAMUsageCeiling   float64
	MinAvailableVRAMMB float64

	// ScreenChangeDetectionEnabled makes Consume compare the caller's
	// fingerprint against the cached one; when false, TTL is the sole
	// staleness criterion.
	ScreenChangeDetectionEnabled bool

	// BaseGroupingDistance is the base proximity distance handed to the
	// region clusterer. If 0, uses DefaultBaseGroupingDistance.
	BaseGroupingDistance float64
}

// applyDefaults fills in default values for unset config fields
func (c *Config) applyDefaults() {
	if c.MinExecutionInterval == 0 {
		c.MinExecutionInterval = DefaultMinExecutionInterval
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = DefaultCacheTTL
	}
	if c.ExecutionTimeout == 0 {
		c.ExecutionTimeout = DefaultExecutionTimeout
	}
	if c.CPUUsageCeiling == 0 {
		c.CPUUsageCeiling = DefaultCPUUsageCeiling
	}
	if c.GPUUsageCeiling == 0 {
		c.GPUUsageCeiling = DefaultGPUUsageCeiling
	}
	if c.VRAMUsageCeiling == 0 {
		c.VRAMUsageCeiling = DefaultVRAMUsageCeiling
	}
	if c.MinAvailableVRAMMB == 0 {
		c.MinAvailableVRAMMB = DefaultMinAvailableVRAMMB
	}
	if c.BaseGroupingDistance == 0 {
		c.BaseGroupingDistance = DefaultBaseGroupingDistance
	}
}
