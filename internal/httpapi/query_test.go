package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partforge/partsearch/internal/search"
	"github.com/partforge/partsearch/internal/store"
)

func TestSearchPart_EmptyPartNumberReturns400(t *testing.T) {
	s := newTestServer(t)
	rec := postJSON(t, s.mux, "/query/search-part", searchPartRequest{FileID: 1, PartNumber: ""}, s.authHeader(t))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchPart_NoMatchesReturnsEmptyResult(t *testing.T) {
	s := newTestServer(t)
	rec := postJSON(t, s.mux, "/query/search-part", searchPartRequest{FileID: 1, PartNumber: "ABC123", Mode: "hybrid"}, s.authHeader(t))
	assert.Equal(t, http.StatusOK, rec.Code)

	var result search.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Empty(t, result.Companies)
	assert.Equal(t, "no matches found", result.Message)
}

// TestSearchPart_ExactMatchReturnsFullConfidence exercises S4: an exact
// part-number match is scored by the confidence scorer (B) at 100 with a
// match_type in the exact tier.
func TestSearchPart_ExactMatchReturnsFullConfidence(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.index.Upsert(context.Background(), []store.PartDoc{
		{FileID: 1, RowID: 1, PartNumber: "ABC123", ItemDescription: "Widget bracket", UnitPrice: 5.5, Quantity: 10, PrimaryBuyer: "Acme Co"},
	}))

	rec := postJSON(t, s.mux, "/query/search-part", searchPartRequest{FileID: 1, PartNumber: "ABC123", Mode: "hybrid"}, s.authHeader(t))
	assert.Equal(t, http.StatusOK, rec.Code)

	var result search.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.NotEmpty(t, result.Companies)
	company := result.Companies[0]
	assert.Equal(t, float64(100), company.Confidence)
	assert.Equal(t, "found", company.MatchStatus)
	assert.Contains(t, []string{"exact", "normalized_l2", "normalized_l3"}, company.MatchType)
}

// TestSearchPart_FuzzyMatchReturnsFoundOrPartial exercises S5: a close but
// non-exact part-number match still clears the found/partial threshold with
// confidence >= 60, and its match_type is not the exact tier.
func TestSearchPart_FuzzyMatchReturnsFoundOrPartial(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.index.Upsert(context.Background(), []store.PartDoc{
		{FileID: 1, RowID: 1, PartNumber: "ABC-124", ItemDescription: "Widget bracket", UnitPrice: 5.5, Quantity: 10, PrimaryBuyer: "Acme Co"},
	}))

	rec := postJSON(t, s.mux, "/query/search-part", searchPartRequest{FileID: 1, PartNumber: "ABC123", Mode: "hybrid"}, s.authHeader(t))
	assert.Equal(t, http.StatusOK, rec.Code)

	var result search.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.NotEmpty(t, result.Companies)
	company := result.Companies[0]
	assert.Contains(t, []string{"found", "partial"}, company.MatchStatus)
	assert.GreaterOrEqual(t, company.Confidence, float64(60))
	assert.NotEqual(t, "exact", company.MatchType)
}

func TestSearchPart_SecondCallIsServedFromCache(t *testing.T) {
	s := newTestServer(t)
	req := searchPartRequest{FileID: 1, PartNumber: "ABC123", Mode: "hybrid"}

	first := postJSON(t, s.mux, "/query/search-part", req, s.authHeader(t))
	assert.Equal(t, http.StatusOK, first.Code)

	second := postJSON(t, s.mux, "/query/search-part", req, s.authHeader(t))
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
}

func TestSearchPartBulk_EmptyPartNumbersReturns400(t *testing.T) {
	s := newTestServer(t)
	rec := postJSON(t, s.mux, "/query/search-part-bulk", searchPartBulkRequest{FileID: 1}, s.authHeader(t))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchPartBulk_ReturnsOneEntryPerPart(t *testing.T) {
	s := newTestServer(t)
	req := searchPartBulkRequest{FileID: 1, PartNumbers: []string{"ABC123", "DEF456"}, Mode: "exact"}
	rec := postJSON(t, s.mux, "/query/search-part-bulk", req, s.authHeader(t))
	assert.Equal(t, http.StatusOK, rec.Code)

	var results map[string]search.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	assert.Contains(t, results, "ABC123")
	assert.Contains(t, results, "DEF456")
}

func bulkUploadRequest(t *testing.T, target, fileID, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("file_id", fileID))
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestSearchPartBulkUpload_MissingFileFieldReturns400(t *testing.T) {
	s := newTestServer(t)
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("file_id", "1"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/query/search-part-bulk-upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	for k, vs := range s.authHeader(t) {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBulkExcelSearch_ParsesUploadedPartListAndSearches(t *testing.T) {
	s := newTestServer(t)
	req := bulkUploadRequest(t, "/bulk-search/bulk-excel-search", "1", "parts.csv", []byte("part_number\nABC123\nDEF456\n"))
	for k, vs := range s.authHeader(t) {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var results map[string]search.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	assert.Contains(t, results, "ABC123")
	assert.Contains(t, results, "DEF456")
}
