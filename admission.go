package specocr

import "log/slog"

// AdmissionGate decides whether the system has headroom for a speculative
// execution. It is a pure decision over one metrics reading; errors reading
// metrics are handled by the caller, which must fail closed.
type AdmissionGate struct {
	cpuCeiling         float64
	gpuCeiling         float64
	vramCeiling        float64
	minAvailableVRAMMB float64
}

// NewAdmissionGate creates a gate from the configured ceilings.
func NewAdmissionGate(cfg Config) *AdmissionGate {
	cfg.applyDefaults()
	return &AdmissionGate{
		cpuCeiling:         cfg.CPUUsageCeiling,
		gpuCeiling:         cfg.GPUUsageCeiling,
		vramCeiling:        cfg.VRAMUsageCeiling,
		minAvailableVRAMMB: cfg.MinAvailableVRAMMB,
	}
}

// Allow reports whether every available metric is under its ceiling. Optional
// metrics that are absent skip only their own checks; a host without a GPU is
// admitted on CPU alone.
func (g *AdmissionGate) Allow(m ResourceMetrics) bool {
	if m.CPUPercent > g.cpuCeiling {
		slog.Debug("admission denied", "metric", "cpu", "value", m.CPUPercent, "ceiling", g.cpuCeiling)
		return false
	}

	if m.GPUPercent != nil && *m.GPUPercent > g.gpuCeiling {
		slog.Debug("admission denied", "metric", "gpu", "value", *m.GPUPercent, "ceiling", g.gpuCeiling)
		return false
	}

	if m.GPUMemoryUsedMB != nil {
		// No authoritative total VRAM is reported, so estimate against an
		// assumed capacity.
		usedMB := *m.GPUMemoryUsedMB
		vramPercent := usedMB / AssumedTotalVRAMMB * 100
		if vramPercent > g.vramCeiling {
			slog.Debug("admission denied", "metric", "vram", "value", vramPercent, "ceiling", g.vramCeiling)
			return false
		}

		availableMB := AssumedTotalVRAMMB - usedMB
		if availableMB < g.minAvailableVRAMMB {
			slog.Debug("admission denied", "metric", "vram_available_mb", "value", availableMB, "floor", g.minAvailableVRAMMB)
			return false
		}
	}

	return true
}
