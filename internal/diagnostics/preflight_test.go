package diagnostics

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shirou/gopsutil/v3/mem"
)

func fakeMemory(availableMB uint64) func() (*mem.VirtualMemoryStat, error) {
	return func() (*mem.VirtualMemoryStat, error) {
		return &mem.VirtualMemoryStat{Available: availableMB * 1024 * 1024}, nil
	}
}

func TestPreflight_Thresholds(t *testing.T) {
	tests := []struct {
		name         string
		availableMB  uint64
		open, limit  int
		minMemMB     int
		minFDPercent int
		wantOK       bool
		wantWarnings int
	}{
		{"plenty", 4096, 10, 1024, 256, 10, true, 0},
		{"low memory", 100, 10, 1024, 256, 10, false, 0},
		{"approaching memory limit", 300, 10, 1024, 256, 10, true, 1},
		{"fd exhaustion", 4096, 1000, 1024, 256, 10, false, 0},
		{"disabled checks", 1, 1000, 1024, 0, 0, true, 0},
		{"fd data unavailable", 4096, 0, 0, 256, 10, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPreflight(tt.minMemMB, tt.minFDPercent, nil)
			p.memory = fakeMemory(tt.availableMB)
			p.fds = func() (int, int) { return tt.open, tt.limit }

			got := p.RunPreflight()
			if got.OK != tt.wantOK {
				t.Errorf("OK = %v, want %v (errors: %v)", got.OK, tt.wantOK, got.Errors)
			}
			if len(got.Warnings) != tt.wantWarnings {
				t.Errorf("Warnings = %v, want %d", got.Warnings, tt.wantWarnings)
			}
			if !got.OK && len(got.Errors) == 0 {
				t.Error("failed preflight must explain why")
			}
		})
	}
}

func TestPreflight_MemoryProbeFailureIsWarning(t *testing.T) {
	p := NewPreflight(256, 0, nil)
	p.memory = func() (*mem.VirtualMemoryStat, error) { return nil, errors.New("no /proc") }
	p.fds = func() (int, int) { return 0, 0 }

	got := p.RunPreflight()
	if !got.OK {
		t.Errorf("probe failure should not block runs: %v", got.Errors)
	}
	if len(got.Warnings) != 1 || !strings.Contains(got.Warnings[0], "memory probe failed") {
		t.Errorf("Warnings = %v", got.Warnings)
	}
}

func TestCollectSystemInfo(t *testing.T) {
	info := CollectSystemInfo(context.Background())
	if info.OS == "" || info.Arch == "" {
		t.Errorf("OS/Arch not set: %+v", info)
	}
}
