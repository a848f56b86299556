package httphandler

import (
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"sync"

	"github.com/shirou/gopsutil/process"
	"github.com/webitel/im-social-service/internal/domain/model"
)

var self = sync.OnceValues(func() (*process.Process, error) {
	return process.NewProcess(int32(os.Getpid()))
})

// HubStats serves the registry snapshot read by the monitor command.
func (h *Handler) HubStats(w http.ResponseWriter, _ *http.Request) {
	stats := h.hub.Stats()
	stats.Process = h.processStats()
	writeJSON(w, http.StatusOK, stats)
}

// processStats is best effort: a failing gopsutil call leaves the field empty.
func (h *Handler) processStats() *model.ProcessStats {
	p, err := self()
	if err != nil {
		h.logger.Debug("PROCESS_STATS_FAILED", slog.Any("err", err))
		return nil
	}

	out := &model.ProcessStats{PID: p.Pid, Goroutines: runtime.NumGoroutine()}
	if cpu, err := p.CPUPercent(); err == nil {
		out.CPUPercent = cpu
	}
	if mem, err := p.MemoryPercent(); err == nil {
		out.MemoryPercent = mem
	}
	if info, err := p.MemoryInfo(); err == nil {
		out.RSSBytes = info.RSS
	}
	return out
}
