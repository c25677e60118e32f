package server

import (
	"net/http"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/screenq/screenq/internal/logger"
)

type statusResponse struct {
	Status        string  `json:"status"`
	SessionID     string  `json:"session_id"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	MemoryMB      float64 `json:"memory_mb,omitempty"`
	DiskFreeMB    float64 `json:"disk_free_mb,omitempty"`
}

// handleStatus reports process health. Metric lookups are best effort: a
// probe failure drops the field rather than failing the request.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Status:        "active",
		SessionID:     s.sessionID,
		UptimeSeconds: time.Since(s.started).Seconds(),
	}

	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mem, err := proc.MemoryInfo(); err == nil {
			resp.MemoryMB = float64(mem.RSS) / (1024 * 1024)
		}
	} else {
		logger.Debug("process probe failed", "error", err)
	}

	if usage, err := disk.Usage(s.screenshotDir); err == nil {
		resp.DiskFreeMB = float64(usage.Free) / (1024 * 1024)
	} else {
		logger.Debug("disk probe failed", "dir", s.screenshotDir, "error", err)
	}

	writeJSON(w, resp)
}
