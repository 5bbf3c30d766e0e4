// Package sysmetrics provides the default resource metrics provider backed
// by gopsutil. GPU readings come from an optional injected reader, since no
// portable library covers every vendor's instrumentation.
package sysmetrics

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v4/cpu"

	"github.com/overlaykit/specocr"
)

// GPUReader reports GPU utilization percent and used video memory in MB.
// Hosts without an instrumented GPU leave it nil; the admission gate then
// decides on CPU alone.
type GPUReader func(ctx context.Context) (utilPercent float64, memoryUsedMB float64, err error)

// Provider implements specocr.MetricsProvider.
type Provider struct {
	gpu GPUReader
}

// NewProvider creates a provider with an optional GPU reader.
func NewProvider(gpu GPUReader) *Provider {
	return &Provider{gpu: gpu}
}

// CurrentMetrics samples current CPU load and, when a reader is configured,
// GPU load. Any read error is returned as-is; the coordinator fails closed
// on it.
func (p *Provider) CurrentMetrics(ctx context.Context) (specocr.ResourceMetrics, error) {
	percents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return specocr.ResourceMetrics{}, fmt.Errorf("failed to read cpu usage: %w", err)
	}

	var metrics specocr.ResourceMetrics
	if len(percents) > 0 {
		metrics.CPUPercent = percents[0]
	}

	if p.gpu != nil {
		util, usedMB, err := p.gpu(ctx)
		if err != nil {
			return specocr.ResourceMetrics{}, fmt.Errorf("failed to read gpu usage: %w", err)
		}
		metrics.GPUPercent = &util
		metrics.GPUMemoryUsedMB = &usedMB
	}

	return metrics, nil
}
