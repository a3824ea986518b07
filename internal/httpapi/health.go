package httpapi

import "net/http"

// healthLive reports process liveness unconditionally: if this handler
// runs, the process is up.
func (h *handlers) healthLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "live"})
}

// healthReady additionally probes the metadata store, per §6's exit-code
// contract: a dependency outage surfaces as 500 here, never as a panic
// downstream.
func (h *handlers) healthReady(w http.ResponseWriter, r *http.Request) {
	if _, err := h.DatasetStore.List(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "metadata store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
