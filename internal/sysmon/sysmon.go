// Package sysmon samples host CPU and memory load for the dashboard.
package sysmon

import (
	"context"
	"log/slog"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

const broadcastPeriod = 2 * time.Second

type Stats struct {
	CPU float64 `json:"cpu"`
	RAM float64 `json:"ram"`
}

type Notifier interface {
	Emit(event string, payload any)
}

type Monitor struct {
	Notifier Notifier
}

// Sample takes one measurement. The CPU figure is averaged over a 500 ms
// window, so the call blocks for that long.
func (m *Monitor) Sample() (Stats, error) {
	perc, err := cpu.Percent(500*time.Millisecond, false)
	if err != nil {
		return Stats{}, err
	}
	vm, err := mem.VirtualMemory()
	if err != nil {
		return Stats{}, err
	}

	var c float64
	if len(perc) > 0 {
		c = perc[0]
	}
	return Stats{CPU: c, RAM: vm.UsedPercent}, nil
}

// Run broadcasts system_stats events until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(broadcastPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			stats, err := m.Sample()
			if err != nil {
				slog.Warn("system stats unavailable", "err", err)
				continue
			}
			m.Notifier.Emit("system_stats", stats)
		}
	}
}
