package httpx

import (
	"net/http"
)

// healthPayload identifies the service in probe responses so fleet-wide
// health scrapes can tell binaries apart.
type healthPayload struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// healthHandler answers readiness/liveness probes.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodHead {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		return
	}
	WriteJSON(w, http.StatusOK, healthPayload{Status: "ok", Service: "notify-api"})
}
