package home

import (
	"context"
	"fmt"
	"math"
	"os"
	"runtime"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leeineian/radiobox/sys"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

const (
	sysInfoCPUSample = 500 * time.Millisecond
	sysInfoTimeout   = 5 * time.Second
)

func handleInfoSystem(c *Context) error {
	ctx, cancel := context.WithTimeout(c.Ctx, sysInfoTimeout)
	defer cancel()
	c.Reply(codeBlock(renderSystemInfo(ctx)))
	return nil
}

// renderSystemInfo collects what it can; a failing probe drops its row.
func renderSystemInfo(ctx context.Context) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	t.AppendRow(table.Row{"Heap in use", sys.FormatBytes(ms.HeapInuse)})
	t.AppendRow(table.Row{"Heap total", sys.FormatBytes(ms.HeapSys)})
	if p, err := process.NewProcessWithContext(ctx, int32(os.Getpid())); err == nil {
		if info, err := p.MemoryInfoWithContext(ctx); err == nil {
			t.AppendRow(table.Row{"Rss", sys.FormatBytes(info.RSS)})
		} else {
			sys.LogCommand(sys.MsgSysInfoErr, "process memory", err)
		}
	}
	t.AppendSeparator()

	if pct, err := cpu.PercentWithContext(ctx, sysInfoCPUSample, false); err == nil && len(pct) > 0 {
		t.AppendRow(table.Row{"CPU usage", fmt.Sprintf("%d%%", int(math.Round(pct[0])))})
	} else if err != nil {
		sys.LogCommand(sys.MsgSysInfoErr, "cpu", err)
	}
	if temp, ok := cpuTemperature(ctx); ok {
		t.AppendRow(table.Row{"Temperature", fmt.Sprintf("%d°C", int(math.Round(temp)))})
	}
	t.AppendRow(table.Row{"Arch", runtime.GOARCH})
	t.AppendRow(table.Row{"Go version", runtime.Version()})
	t.AppendRow(table.Row{"Goroutines", runtime.NumGoroutine()})
	t.AppendRow(table.Row{"Uptime", sys.FormatClock(time.Since(sys.StartupTime))})
	if path := sys.GetLogPath(); path != "" {
		t.AppendRow(table.Row{"Log file", path})
	}
	t.AppendSeparator()

	if info, err := host.InfoWithContext(ctx); err == nil {
		t.AppendRow(table.Row{"Platform", info.Platform + " " + info.PlatformVersion})
		t.AppendRow(table.Row{"Release", info.KernelVersion})
	} else {
		t.AppendRow(table.Row{"Platform", runtime.GOOS})
		sys.LogCommand(sys.MsgSysInfoErr, "host", err)
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		t.AppendRow(table.Row{"Total memory", sys.FormatBytes(vm.Total)})
	} else {
		sys.LogCommand(sys.MsgSysInfoErr, "memory", err)
	}
	return t.Render()
}

// cpuTemperature returns the hottest thermal sensor reading.
func cpuTemperature(ctx context.Context) (float64, bool) {
	temps, err := host.SensorsTemperaturesWithContext(ctx)
	if len(temps) == 0 {
		if err != nil {
			sys.LogDebug(sys.MsgSysInfoErr, "temperature", err)
		}
		return 0, false
	}
	hottest := temps[0].Temperature
	for _, s := range temps[1:] {
		hottest = max(hottest, s.Temperature)
	}
	return hottest, hottest > 0
}
