// Package process 提供当前进程的资源统计，用于调试报告
package process

import (
	"fmt"
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/process"
)

// Stats 进程资源快照
type Stats struct {
	PID        int     `json:"pid"`
	Name       string  `json:"name"`
	RSS        uint64  `json:"rss"`
	Threads    int32   `json:"threads"`
	CPUPercent float64 `json:"cpu_percent"`
	// LogicalCPUs 逻辑 CPU 数量
	LogicalCPUs int `json:"logical_cpus"`
	// GOMAXPROCS 当前 Go 调度并行度
	GOMAXPROCS int `json:"gomaxprocs"`
}

// String 返回字符串表示
func (s *Stats) String() string {
	return fmt.Sprintf("pid=%d rss=%.1fMB threads=%d cpu=%.1f%% cpus=%d gomaxprocs=%d",
		s.PID, float64(s.RSS)/(1024*1024), s.Threads, s.CPUPercent, s.LogicalCPUs, s.GOMAXPROCS)
}

// Self 获取当前进程的资源快照
func Self() (*Stats, error) {
	return ByPID(os.Getpid())
}

// ByPID 获取指定进程的资源快照
func ByPID(pid int) (*Stats, error) {
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return nil, fmt.Errorf("进程不存在: PID=%d: %w", pid, err)
	}

	stats := &Stats{
		PID:        pid,
		GOMAXPROCS: runtime.GOMAXPROCS(0),
	}

	stats.Name, _ = proc.Name()
	if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
		stats.RSS = mem.RSS
	}
	stats.Threads, _ = proc.NumThreads()
	stats.CPUPercent, _ = proc.CPUPercent()

	if n, err := cpu.Counts(true); err == nil {
		stats.LogicalCPUs = n
	} else {
		stats.LogicalCPUs = runtime.NumCPU()
	}

	return stats, nil
}

// LogicalCPUs 逻辑 CPU 数量，获取失败时回退到 runtime.NumCPU
func LogicalCPUs() int {
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}
