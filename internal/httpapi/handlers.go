package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ibrahimsoomro/game-of-three/internal/hub"
)

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// Stats reports the live registry counters.
func Stats(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan hub.Stats, 1)
		h.Inbox() <- hub.GetStats{Reply: reply}

		select {
		case stats := <-reply:
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(stats)
		case <-time.After(2 * time.Second):
			http.Error(w, "hub unavailable", http.StatusServiceUnavailable)
		}
	}
}
