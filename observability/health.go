package observability

import (
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

// HealthSnapshot reports technical metrics for the running process,
// served on the health endpoint.
type HealthSnapshot struct {
	Status     string  `json:"status"`
	Pid        int     `json:"pid"`
	PidStatus  string  `json:"pid_status"`
	CPUPercent float64 `json:"cpu_percent"`
	RAMBytes   uint64  `json:"ram_bytes"`
	UptimeSec  float64 `json:"uptime_sec"`
}

type HealthReporter struct {
	proc    *process.Process
	started time.Time
}

func NewHealthReporter() (*HealthReporter, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	return &HealthReporter{proc: p, started: time.Now()}, nil
}

// Snapshot collects memory, CPU and OS status for the current process.
func (h *HealthReporter) Snapshot() (HealthSnapshot, error) {
	memInfo, err := h.proc.MemoryInfo()
	if err != nil {
		return HealthSnapshot{}, err
	}
	cpuPercent, err := h.proc.CPUPercent()
	if err != nil {
		return HealthSnapshot{}, err
	}
	status, err := h.proc.Status()
	if err != nil {
		return HealthSnapshot{}, err
	}
	return HealthSnapshot{
		Status:     "ok",
		Pid:        os.Getpid(),
		PidStatus:  status,
		CPUPercent: cpuPercent,
		RAMBytes:   memInfo.RSS,
		UptimeSec:  time.Since(h.started).Seconds(),
	}, nil
}
