package diagnostics

import (
	"context"
	"os"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemInfo is a point-in-time view of the host.
type SystemInfo struct {
	OS         string `json:"os"`
	Arch       string `json:"arch"`
	CPUModel   string `json:"cpu_model"`
	CPUCores   int    `json:"cpu_cores"`
	CPUThreads int    `json:"cpu_threads"`

	// Memory (in MB)
	MemTotalMB     float64 `json:"mem_total_mb"`
	MemAvailableMB float64 `json:"mem_available_mb"`
	MemPercent     float64 `json:"mem_percent"`

	// Disk (in GB)
	DiskTotalGB float64 `json:"disk_total_gb"`
	DiskFreeGB  float64 `json:"disk_free_gb"`

	// Load Average (Unix)
	LoadAvg1 float64 `json:"load_avg_1"`

	OpenFDs int `json:"open_fds"`
	MaxFDs  int `json:"max_fds"`
}

// CollectSystemInfo gathers host statistics. Fields that cannot be read stay zero.
func CollectSystemInfo(ctx context.Context) SystemInfo {
	info := SystemInfo{OS: runtime.GOOS, Arch: runtime.GOARCH}

	if infos, err := cpu.InfoWithContext(ctx); err == nil && len(infos) > 0 {
		info.CPUModel = strings.TrimSpace(infos[0].ModelName)
	}
	if cores, err := cpu.CountsWithContext(ctx, false); err == nil {
		info.CPUCores = cores
	}
	if threads, err := cpu.CountsWithContext(ctx, true); err == nil {
		info.CPUThreads = threads
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		info.MemTotalMB = float64(vm.Total) / 1024 / 1024
		info.MemAvailableMB = float64(vm.Available) / 1024 / 1024
		info.MemPercent = vm.UsedPercent
	}

	if usage, err := disk.UsageWithContext(ctx, rootDiskPath()); err == nil {
		info.DiskTotalGB = float64(usage.Total) / 1024 / 1024 / 1024
		info.DiskFreeGB = float64(usage.Free) / 1024 / 1024 / 1024
	}

	if avg, err := load.AvgWithContext(ctx); err == nil {
		info.LoadAvg1 = avg.Load1
	}

	info.OpenFDs, info.MaxFDs = CountFDs()
	return info
}

func rootDiskPath() string {
	if runtime.GOOS == "windows" {
		drive := os.Getenv("SystemDrive")
		if drive == "" {
			drive = "C:"
		}
		return drive + "\\"
	}
	return "/"
}
