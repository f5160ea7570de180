package pipeline

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/phenobridge/platform/pkg/common/logger"
	"github.com/phenobridge/platform/pkg/common/models"
	"github.com/phenobridge/platform/pkg/omop"
)

type HTTPHandler struct {
	service *Service
	maxBody int64
}

func NewHTTPHandler(service *Service, maxBody int64) *HTTPHandler {
	return &HTTPHandler{service: service, maxBody: maxBody}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/convert", h.handleConvert).Methods(http.MethodPost)
	router.HandleFunc("/documents/{patient_id}", h.handleDocument).Methods(http.MethodGet)
}

func (h *HTTPHandler) handleConvert(w http.ResponseWriter, r *http.Request) {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	var req models.ConvertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Log.WithError(err).Warn("invalid conversion payload")
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.PatientIDs) == 0 {
		http.Error(w, "patient_ids required", http.StatusBadRequest)
		return
	}

	ids := make([]int64, 0, len(req.PatientIDs))
	for _, raw := range req.PatientIDs {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, "patient ids must be numeric", http.StatusBadRequest)
			return
		}
		ids = append(ids, id)
	}

	resp, err := h.service.Process(r.Context(), ids)
	if err != nil {
		if omop.IsShapeError(err) {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		logger.Log.WithError(err).Error("failed to run conversion")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

func (h *HTTPHandler) handleDocument(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	patientID := vars["patient_id"]

	if h.service.cache != nil {
		if doc, err := h.service.cache.Get(r.Context(), patientID); err == nil {
			w.Header().Set("Content-Type", "application/json")
			w.Write(doc)
			return
		}
	}

	if h.service.repo == nil {
		http.Error(w, "document store not configured", http.StatusNotFound)
		return
	}

	rec, err := h.service.repo.Latest(r.Context(), patientID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "document not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to fetch document")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rec.Document)
}
