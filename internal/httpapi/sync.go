package httpapi

import (
	"net/http"
	"strconv"
)

// syncFile implements POST /sync/sync-file/{id}: a synchronous re-run of
// F's batch sync for one dataset, recording the outcome on its metadata.
func (h *handlers) syncFile(w http.ResponseWriter, r *http.Request) {
	fileID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	syncErr := h.Syncer.Sync(r.Context(), fileID, nil)
	if syncErr != nil {
		h.DatasetStore.SetSyncResult(r.Context(), fileID, false, syncErr.Error())
		writeError(w, http.StatusInternalServerError, syncErr.Error())
		return
	}
	h.DatasetStore.SetSyncResult(r.Context(), fileID, true, "")
	writeJSON(w, http.StatusOK, map[string]string{"status": "synced"})
}

// syncAll re-syncs every known dataset in turn, best-effort: one dataset's
// failure doesn't stop the rest, it's just reported in the response.
func (h *handlers) syncAll(w http.ResponseWriter, r *http.Request) {
	datasets, err := h.DatasetStore.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	type outcome struct {
		FileID int64  `json:"file_id"`
		Synced bool   `json:"synced"`
		Error  string `json:"error,omitempty"`
	}
	outcomes := make([]outcome, 0, len(datasets))
	for _, meta := range datasets {
		err := h.Syncer.Sync(r.Context(), meta.FileID, nil)
		if err != nil {
			h.DatasetStore.SetSyncResult(r.Context(), meta.FileID, false, err.Error())
			outcomes = append(outcomes, outcome{FileID: meta.FileID, Synced: false, Error: err.Error()})
			continue
		}
		h.DatasetStore.SetSyncResult(r.Context(), meta.FileID, true, "")
		outcomes = append(outcomes, outcome{FileID: meta.FileID, Synced: true})
	}
	writeJSON(w, http.StatusOK, outcomes)
}

// syncStatus reports each dataset's last known sync outcome.
func (h *handlers) syncStatus(w http.ResponseWriter, r *http.Request) {
	datasets, err := h.DatasetStore.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	type status struct {
		FileID        int64  `json:"file_id"`
		IndexSynced   bool   `json:"index_synced"`
		LastSyncError string `json:"last_sync_error,omitempty"`
	}
	out := make([]status, 0, len(datasets))
	for _, meta := range datasets {
		out = append(out, status{
			FileID:        meta.FileID,
			IndexSynced:   meta.IndexSynced,
			LastSyncError: meta.LastSyncError,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
