package telemetry

import (
	"encoding/json"
	"net/http"
	"time"
)

// Status is the run summary served at /status.
type Status struct {
	SimulatedMs int64   `json:"simulated_ms"`
	Frames      int     `json:"frames"`
	AverageFPS  float64 `json:"average_fps"`
	MaxTickMs   float64 `json:"max_tick_ms"`
	Seed        uint32  `json:"seed"`
	CycleSteps  uint    `json:"cycle_steps"`
	Viewers     int     `json:"viewers"`
}

// StatusFunc supplies the latest run summary. It is called from HTTP goroutines.
type StatusFunc func() Status

// Handler mounts the viewer feed at /ws, a liveness probe at /livez and the run
// summary at /status when status is non-nil.
func (h *Hub) Handler(status StatusFunc) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", h)
	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, struct {
			Status    string `json:"status"`
			Timestamp string `json:"timestamp"`
		}{Status: "alive", Timestamp: h.now().UTC().Format(time.RFC3339Nano)})
	})
	if status != nil {
		mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				w.Header().Set("Allow", http.MethodGet)
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
				return
			}
			current := status()
			current.Viewers = h.Clients()
			writeJSON(w, http.StatusOK, current)
		})
	}
	return mux
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}
