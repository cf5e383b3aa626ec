package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// health reports liveness unconditionally; readiness additionally checks
// host memory headroom, matching spec.md §6's health/readiness split.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "reason": "memory stats unavailable"})
		return
	}
	if vm.UsedPercent > 95 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{"status": "not ready", "reason": "memory pressure", "usedPercent": vm.UsedPercent})
		return
	}

	load, err := cpu.PercentWithContext(ctx, 0, false)
	cpuPercent := 0.0
	if err == nil && len(load) > 0 {
		cpuPercent = load[0]
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ready",
		"memUsedPercent": vm.UsedPercent,
		"cpuPercent":     cpuPercent,
	})
}
