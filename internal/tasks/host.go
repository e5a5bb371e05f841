package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/stone-age-io/links-health-monitor/internal/utils"
)

// HostStats describes the machine the monitor runs on
type HostStats struct {
	CPUCount          int     `json:"cpu_count"`
	MemoryTotalGB     float64 `json:"memory_total_gb"`
	MemoryFreeGB      float64 `json:"memory_free_gb"`
	MemoryUsedPercent float64 `json:"memory_used_percent"`
	Timestamp         string  `json:"timestamp"`
}

// CollectHostStats reads host CPU and memory figures
func CollectHostStats(ctx context.Context) (*HostStats, error) {
	vmem, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read memory: %w", err)
	}

	cpus, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to count CPUs: %w", err)
	}

	return &HostStats{
		CPUCount:          cpus,
		MemoryTotalGB:     utils.GB(vmem.Total),
		MemoryFreeGB:      utils.GB(vmem.Available),
		MemoryUsedPercent: utils.Round(vmem.UsedPercent),
		Timestamp:         time.Now().UTC().Format(time.RFC3339),
	}, nil
}
