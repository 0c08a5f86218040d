package server

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/wheelhouse-trading/wheelhouse/internal/database"
)

// SystemHandlers serves health and system monitoring endpoints.
type SystemHandlers struct {
	log       zerolog.Logger
	dataDir   string
	policyDB  *database.DB
	journalDB *database.DB
	cacheDB   *database.DB
	startedAt time.Time
}

// NewSystemHandlers creates system handlers.
func NewSystemHandlers(log zerolog.Logger, dataDir string, policyDB, journalDB, cacheDB *database.DB) *SystemHandlers {
	return &SystemHandlers{
		log:       log.With().Str("handler", "system").Logger(),
		dataDir:   dataDir,
		policyDB:  policyDB,
		journalDB: journalDB,
		cacheDB:   cacheDB,
		startedAt: time.Now(),
	}
}

// HandleHealth handles GET /health
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	databases := map[string]string{}

	for _, db := range []*database.DB{h.policyDB, h.journalDB, h.cacheDB} {
		if db == nil {
			continue
		}
		if err := db.Conn().Ping(); err != nil {
			databases[db.Name()] = "unreachable: " + err.Error()
			status = "degraded"
		} else {
			databases[db.Name()] = "ok"
		}
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}

	h.writeJSON(w, code, map[string]interface{}{
		"status":         status,
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"databases":      databases,
	})
}

// HandleSystemInfo handles GET /api/system/info
func (h *SystemHandlers) HandleSystemInfo(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"go_version": runtime.Version(),
		"goroutines": runtime.NumGoroutine(),
		"data_dir":   h.dataDir,
		"uptime_sec": int64(time.Since(h.startedAt).Seconds()),
	}

	if cpuPercent, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(cpuPercent) > 0 {
		info["cpu_percent"] = cpuPercent[0]
	} else if err != nil {
		h.log.Debug().Err(err).Msg("Failed to read CPU usage")
	}

	if memStat, err := mem.VirtualMemory(); err == nil {
		info["memory_used_percent"] = memStat.UsedPercent
		info["memory_total_bytes"] = memStat.Total
		info["memory_available_bytes"] = memStat.Available
	} else {
		h.log.Debug().Err(err).Msg("Failed to read memory usage")
	}

	h.writeJSON(w, http.StatusOK, info)
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}
