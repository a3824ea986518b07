package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/partforge/partsearch/internal/cache"
	"github.com/partforge/partsearch/internal/search"
	"github.com/partforge/partsearch/internal/upload"
)

type searchPartRequest struct {
	FileID     int64  `json:"file_id"`
	PartNumber string `json:"part_number"`
	Mode       string `json:"mode"`
	Page       int    `json:"page"`
	PageSize   int    `json:"page_size"`
	ShowAll    bool   `json:"show_all"`
}

func resolveMode(mode string) search.Mode {
	switch search.Mode(mode) {
	case search.ModeExact, search.ModeFuzzy, search.ModeHybrid:
		return search.Mode(mode)
	default:
		return search.ModeHybrid
	}
}

// searchPart implements POST /query/search-part: a single part-number
// lookup, served from the result cache (J) when a fresh entry exists.
func (h *handlers) searchPart(w http.ResponseWriter, r *http.Request) {
	var req searchPartRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PartNumber == "" {
		writeError(w, http.StatusBadRequest, "part_number is required")
		return
	}
	mode := resolveMode(req.Mode)

	start := time.Now()
	key := cache.Key("search_single", req.FileID, []string{req.PartNumber}, string(mode), req.PageSize, req.ShowAll)
	entry, err := h.Cache.GetOrFill(key, cache.ResultTTL, func() ([]byte, error) {
		result, err := h.Engine.SearchSingle(r.Context(), req.FileID, req.PartNumber, mode, req.Page, req.PageSize, req.ShowAll)
		if err != nil {
			return nil, err
		}
		return json.Marshal(result)
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.Analytics.RecordSearch(r.Context(), req.FileID, req.PartNumber, string(mode), -1, time.Since(start))
	writeRawJSONEntry(w, entry)
}

type searchPartBulkRequest struct {
	FileID       int64    `json:"file_id"`
	PartNumbers  []string `json:"part_numbers"`
	Mode         string   `json:"mode"`
	PerPartLimit int      `json:"per_part_limit"`
}

// searchPartBulk implements POST /query/search-part-bulk: many part
// numbers searched in one request, chunked internally by the engine (H).
func (h *handlers) searchPartBulk(w http.ResponseWriter, r *http.Request) {
	var req searchPartBulkRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.PartNumbers) == 0 {
		writeError(w, http.StatusBadRequest, "part_numbers must not be empty")
		return
	}
	mode := resolveMode(req.Mode)

	results, err := h.Engine.SearchBulk(r.Context(), req.FileID, req.PartNumbers, mode, req.PerPartLimit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// searchPartBulkUpload implements POST /query/search-part-bulk-upload: a
// single-column file of part numbers is parsed, then fed through the same
// bulk-search path as /query/search-part-bulk.
func (h *handlers) searchPartBulkUpload(w http.ResponseWriter, r *http.Request) {
	h.bulkSearchFromUpload(w, r)
}

// bulkExcelSearch implements POST /bulk-search/bulk-excel-search, the
// legacy-named equivalent of searchPartBulkUpload kept as its own route
// per §6's endpoint surface.
func (h *handlers) bulkExcelSearch(w http.ResponseWriter, r *http.Request) {
	h.bulkSearchFromUpload(w, r)
}

func (h *handlers) bulkSearchFromUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxSingleShotUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	fileID, err := strconv.ParseInt(r.FormValue("file_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "file_id is required")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing \"file\" form field")
		return
	}
	defer file.Close()

	tmp, err := os.CreateTemp("", "partlist-*"+filepath.Ext(header.Filename))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := io.Copy(tmp, file); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	partNumbers, err := upload.ParsePartListFile(tmp.Name(), header.Filename)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(partNumbers) == 0 {
		writeError(w, http.StatusBadRequest, "uploaded file contained no part numbers")
		return
	}

	mode := resolveMode(r.FormValue("mode"))
	results, err := h.Engine.SearchBulk(r.Context(), fileID, partNumbers, mode, 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// writeRawJSONEntry writes a cache entry whose Value is already a
// marshaled JSON document, without re-encoding it. A summarized entry
// (over the cache's size ceiling) is written as a JSON string instead.
func writeRawJSONEntry(w http.ResponseWriter, entry cache.Entry) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if entry.Summarized {
		summary, _ := json.Marshal(string(entry.Value))
		w.Write(summary)
		return
	}
	w.Write(entry.Value)
}
