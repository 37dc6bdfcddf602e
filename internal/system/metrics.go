package system

import (
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// Metrics is a point-in-time snapshot of the host the monitor runs on.
type Metrics struct {
	Hostname           string  `json:"hostname"`
	HostUptimeSeconds  uint64  `json:"host_uptime_seconds"`
	CPUUsagePercent    float64 `json:"cpu_usage_percent"`
	MemoryUsagePercent float64 `json:"memory_usage_percent"`
	MemoryUsedBytes    uint64  `json:"memory_used_bytes"`
	MemoryTotalBytes   uint64  `json:"memory_total_bytes"`
	DiskUsagePercent   float64 `json:"disk_usage_percent"`
	LoadAvg1m          float64 `json:"load_1m"`
	LoadAvg5m          float64 `json:"load_5m"`
	LoadAvg15m         float64 `json:"load_15m"`
	Goroutines         int     `json:"goroutines"`
}

// Collect gathers whatever the platform supports. Individual probe failures
// leave the matching fields zero.
func Collect() (*Metrics, error) {
	m := &Metrics{
		Goroutines: runtime.NumGoroutine(),
	}

	if info, err := host.Info(); err == nil {
		m.Hostname = info.Hostname
		m.HostUptimeSeconds = info.Uptime
	}

	// CPU usage
	cpuPercent, err := cpu.Percent(0, false)
	if err == nil && len(cpuPercent) > 0 {
		m.CPUUsagePercent = cpuPercent[0]
	}

	// Memory
	memStats, err := mem.VirtualMemory()
	if err == nil {
		m.MemoryUsagePercent = memStats.UsedPercent
		m.MemoryUsedBytes = memStats.Used
		m.MemoryTotalBytes = memStats.Total
	}

	if usage, err := disk.Usage("/"); err == nil {
		m.DiskUsagePercent = usage.UsedPercent
	}

	// Load average
	loadStats, err := load.Avg()
	if err == nil {
		m.LoadAvg1m = loadStats.Load1
		m.LoadAvg5m = loadStats.Load5
		m.LoadAvg15m = loadStats.Load15
	}

	return m, nil
}

// ToMap flattens the snapshot for the health payload.
func (m *Metrics) ToMap() map[string]float64 {
	return map[string]float64{
		"system.cpu_usage_percent":    m.CPUUsagePercent,
		"system.memory_usage_percent": m.MemoryUsagePercent,
		"system.memory_used_bytes":    float64(m.MemoryUsedBytes),
		"system.memory_total_bytes":   float64(m.MemoryTotalBytes),
		"system.disk_usage_percent":   m.DiskUsagePercent,
		"system.load_1m":              m.LoadAvg1m,
		"system.load_5m":              m.LoadAvg5m,
		"system.load_15m":             m.LoadAvg15m,
		"process.goroutines":          float64(m.Goroutines),
	}
}
