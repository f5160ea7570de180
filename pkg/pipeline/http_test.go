package pipeline

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/phenobridge/platform/pkg/common/models"
)

func newTestRouter(service *Service) *mux.Router {
	router := mux.NewRouter()
	NewHTTPHandler(service, 1<<20).Register(router)
	return router
}

func TestHandleConvert(t *testing.T) {
	router := newTestRouter(newTestService(testFetcher(), 2))

	body := `{"patient_ids":["1","2"]}`
	req := httptest.NewRequest(http.MethodPost, "/convert", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp models.ConvertResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp.Status != "completed" || resp.Documents != 2 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Report == nil || len(resp.Report.Entities) != 7 {
		t.Fatalf("response must carry the full report: %+v", resp.Report)
	}
}

func TestHandleConvertRejectsBadPayloads(t *testing.T) {
	router := newTestRouter(newTestService(testFetcher(), 1))

	for _, body := range []string{
		`not json`,
		`{}`,
		`{"patient_ids":[]}`,
		`{"patient_ids":["abc"]}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/convert", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("payload %q: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestHandleConvertShapeErrorIsBadGateway(t *testing.T) {
	fetcher := testFetcher()
	fetcher.individuals = [][]interface{}{{int64(1), "short row"}}
	router := newTestRouter(newTestService(fetcher, 1))

	req := httptest.NewRequest(http.MethodPost, "/convert", strings.NewReader(`{"patient_ids":["1"]}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("row shape mismatch should map to 502, got %d", rec.Code)
	}
}

func TestHandleDocumentWithoutStore(t *testing.T) {
	router := newTestRouter(newTestService(testFetcher(), 1))

	req := httptest.NewRequest(http.MethodGet, "/documents/1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without a configured store, got %d", rec.Code)
	}
}
