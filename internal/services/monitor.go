package services

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/sirupsen/logrus"
)

// SystemSnapshot is a point-in-time view of host resource usage exposed on
// the status API.
type SystemSnapshot struct {
	CPUPercent     float64   `json:"cpu_percent"`
	MemoryPercent  float64   `json:"memory_percent"`
	MemoryUsedMB   uint64    `json:"memory_used_mb"`
	MemoryTotalMB  uint64    `json:"memory_total_mb"`
	DiskPercent    float64   `json:"disk_percent"`
	DiskFreeGB     uint64    `json:"disk_free_gb"`
	CollectedAt    time.Time `json:"collected_at"`
}

// MonitorService samples host resource usage.
type MonitorService struct {
	logger *logrus.Logger
}

// NewMonitorService creates a monitor.
func NewMonitorService(logger *logrus.Logger) *MonitorService {
	if logger == nil {
		logger = logrus.New()
	}
	return &MonitorService{logger: logger}
}

// Snapshot samples CPU, memory and disk. Individual probe failures are
// logged and leave the corresponding fields zero rather than failing the
// whole snapshot.
func (m *MonitorService) Snapshot(ctx context.Context) SystemSnapshot {
	snapshot := SystemSnapshot{CollectedAt: time.Now()}

	if percents, err := cpu.PercentWithContext(ctx, 0, false); err != nil {
		m.logger.WithError(err).Warn("CPU sample failed")
	} else if len(percents) > 0 {
		snapshot.CPUPercent = percents[0]
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		m.logger.WithError(err).Warn("Memory sample failed")
	} else {
		snapshot.MemoryPercent = vm.UsedPercent
		snapshot.MemoryUsedMB = vm.Used / 1024 / 1024
		snapshot.MemoryTotalMB = vm.Total / 1024 / 1024
	}

	if usage, err := disk.UsageWithContext(ctx, "/"); err != nil {
		m.logger.WithError(err).Warn("Disk sample failed")
	} else {
		snapshot.DiskPercent = usage.UsedPercent
		snapshot.DiskFreeGB = usage.Free / 1024 / 1024 / 1024
	}

	return snapshot
}
