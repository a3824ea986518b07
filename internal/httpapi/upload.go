package httpapi

import (
	"io"
	"net/http"
	"strconv"

	"github.com/partforge/partsearch/internal/dataset"
)

const maxSingleShotUploadBytes = 256 << 20 // 256 MiB

// uploadSingleShot implements POST /upload: a single multipart file field
// named "file" is read whole, fed through Init/Part/Complete as one chunk.
func (h *handlers) uploadSingleShot(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxSingleShotUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing \"file\" form field")
		return
	}
	defer file.Close()

	body, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read uploaded file")
		return
	}

	contentType := header.Header.Get("Content-Type")
	uploadID, fileID, err := h.Uploads.Init(r.Context(), header.Filename, contentType, int64(len(body)))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := h.Uploads.Part(r.Context(), uploadID, 1, body); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := h.Uploads.Complete(r.Context(), uploadID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"file_id": fileID, "status": dataset.StatusProcessing})
}

type uploadInitRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	TotalSize   int64  `json:"total_size"`
}

func (h *handlers) uploadInit(w http.ResponseWriter, r *http.Request) {
	var req uploadInitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	uploadID, fileID, err := h.Uploads.Init(r.Context(), req.Filename, req.ContentType, req.TotalSize)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"upload_id": uploadID, "file_id": fileID})
}

type uploadPartRequest struct {
	UploadID   string `json:"upload_id"`
	PartNumber int    `json:"part_number"`
	Data       []byte `json:"data"` // base64-decoded by encoding/json automatically
}

func (h *handlers) uploadPart(w http.ResponseWriter, r *http.Request) {
	var req uploadPartRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.Uploads.Part(r.Context(), req.UploadID, req.PartNumber, req.Data); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "received"})
}

type uploadCompleteRequest struct {
	UploadID string `json:"upload_id"`
}

func (h *handlers) uploadComplete(w http.ResponseWriter, r *http.Request) {
	var req uploadCompleteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.Uploads.Complete(r.Context(), req.UploadID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "processing"})
}

func (h *handlers) uploadCancel(w http.ResponseWriter, r *http.Request) {
	fileID, err := strconv.ParseInt(r.PathValue("file_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid file_id")
		return
	}
	if err := h.Uploads.Cancel(r.Context(), fileID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": dataset.StatusCancelled})
}

func (h *handlers) uploadList(w http.ResponseWriter, r *http.Request) {
	datasets, err := h.DatasetStore.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, datasets)
}

func (h *handlers) uploadGet(w http.ResponseWriter, r *http.Request) {
	fileID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	meta, err := h.DatasetStore.Get(r.Context(), fileID)
	if err != nil {
		writeError(w, http.StatusNotFound, "dataset not found")
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

func (h *handlers) uploadDelete(w http.ResponseWriter, r *http.Request) {
	fileID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.DatasetStore.Delete(r.Context(), fileID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *handlers) uploadRows(w http.ResponseWriter, r *http.Request) {
	fileID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	pageSize := 100
	if v := r.URL.Query().Get("page_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			pageSize = n
		}
	}
	var afterID int64
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			afterID = n * int64(pageSize)
		}
	}

	rows, err := h.DatasetStore.RowsPage(r.Context(), fileID, afterID, pageSize)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rows)
}
