package diagnostics

import (
	"fmt"
	"log/slog"

	"github.com/shirou/gopsutil/v3/mem"
)

// PreflightResult contains the result of pre-execution checks.
type PreflightResult struct {
	OK             bool     `json:"ok"`
	Warnings       []string `json:"warnings,omitempty"`
	Errors         []string `json:"errors,omitempty"`
	FreeMemoryMB   float64  `json:"free_memory_mb"`
	FDUsagePercent float64  `json:"fd_usage_percent"`
}

// Preflight checks that the host can afford another agent process.
type Preflight struct {
	minFreeMemoryMB  int
	minFreeFDPercent int
	logger           *slog.Logger

	memory func() (*mem.VirtualMemoryStat, error)
	fds    func() (open, limit int)
}

// NewPreflight creates a preflight check. Zero thresholds disable that check.
func NewPreflight(minFreeMemoryMB, minFreeFDPercent int, logger *slog.Logger) *Preflight {
	if logger == nil {
		logger = slog.Default()
	}
	return &Preflight{
		minFreeMemoryMB:  minFreeMemoryMB,
		minFreeFDPercent: minFreeFDPercent,
		logger:           logger,
		memory:           mem.VirtualMemory,
		fds:              CountFDs,
	}
}

// RunPreflight performs the checks. Probe failures are warnings, not errors.
func (p *Preflight) RunPreflight() PreflightResult {
	result := PreflightResult{OK: true}

	if vm, err := p.memory(); err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("memory probe failed: %v", err))
	} else {
		result.FreeMemoryMB = float64(vm.Available) / 1024 / 1024
		if p.minFreeMemoryMB > 0 {
			switch {
			case result.FreeMemoryMB < float64(p.minFreeMemoryMB):
				result.OK = false
				result.Errors = append(result.Errors,
					fmt.Sprintf("insufficient free memory: %.0f MB available (minimum: %d MB)",
						result.FreeMemoryMB, p.minFreeMemoryMB))
			case result.FreeMemoryMB < float64(p.minFreeMemoryMB)*1.5:
				// Warning if approaching threshold
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("free memory approaching limit: %.0f MB available", result.FreeMemoryMB))
			}
		}
	}

	open, limit := p.fds()
	if limit > 0 {
		result.FDUsagePercent = float64(open) / float64(limit) * 100
		free := 100.0 - result.FDUsagePercent
		if p.minFreeFDPercent > 0 && free < float64(p.minFreeFDPercent) {
			result.OK = false
			result.Errors = append(result.Errors,
				fmt.Sprintf("insufficient free FDs: %.1f%% free (minimum: %d%%)", free, p.minFreeFDPercent))
		}
	}

	if !result.OK {
		p.logger.Warn("preflight failed", "errors", result.Errors)
	}
	return result
}
