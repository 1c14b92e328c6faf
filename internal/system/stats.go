package system

import (
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// MemoryStats is a snapshot of process and host memory.
type MemoryStats struct {
	RSS          uint64
	CPUPercent   float64
	HostTotal    uint64
	HostUsedPerc float64
}

// ReadMemoryStats samples the current process. Fields that cannot be read
// on this platform stay zero.
func ReadMemoryStats() (MemoryStats, error) {
	var s MemoryStats

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return s, fmt.Errorf("system: %w", err)
	}
	if mi, err := p.MemoryInfo(); err == nil {
		s.RSS = mi.RSS
	}
	if cpu, err := p.CPUPercent(); err == nil {
		s.CPUPercent = cpu
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		return s, fmt.Errorf("system: %w", err)
	}
	s.HostTotal = vm.Total
	s.HostUsedPerc = vm.UsedPercent
	return s, nil
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
