package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/tidycorpus/runtime/internal/errhandling"
	"github.com/tidycorpus/runtime/internal/logger"
	"github.com/tidycorpus/runtime/pkg/corpus"
)

// maxChainBody bounds a POSTed filter chain (1MB).
const maxChainBody = 1 << 20

// columnInfo is one dataset column in a discovery response.
type columnInfo struct {
	Language string `json:"language"`
	Size     int64  `json:"size"`
}

// errorBody is the JSON error envelope.
type errorBody struct {
	Error struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

// handleListDatasets returns the discovery mapping: dataset name to its
// columns, in sorted language order.
func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	listing, err := s.store.List()
	if err != nil {
		writeError(w, err)
		return
	}

	response := make(map[string][]columnInfo, len(listing))
	for name, ds := range listing {
		columns := make([]columnInfo, 0, len(ds.Columns))
		for _, lang := range ds.Languages() {
			columns = append(columns, columnInfo{Language: lang, Size: ds.Columns[lang].Size})
		}
		response[name] = columns
	}
	writeJSON(w, http.StatusOK, response)
}

// handleGetSample runs the empty chain: the base sample, unfiltered.
func (s *Server) handleGetSample(w http.ResponseWriter, r *http.Request) {
	s.runChain(w, r, nil)
}

// handlePostSample runs the chain given in the request body, a JSON array
// of filter steps.
func (s *Server) handlePostSample(w http.ResponseWriter, r *http.Request) {
	var steps []corpus.FilterStep
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChainBody))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&steps); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "invalid_chain", "request body must be a JSON array of filter steps: "+err.Error())
		return
	}
	s.runChain(w, r, steps)
}

func (s *Server) runChain(w http.ResponseWriter, r *http.Request, steps []corpus.FilterStep) {
	dataset := r.PathValue("name")
	start := time.Now()

	records, err := s.executor.Execute(r.Context(), dataset, steps)
	if err != nil {
		logger.Warn("chain request failed",
			"dataset", dataset,
			"steps", len(steps),
			"error", err.Error(),
		)
		writeError(w, err)
		return
	}

	logger.Debug("chain request served",
		"dataset", dataset,
		"steps", len(steps),
		"records", len(records),
		"duration", time.Since(start),
	)
	writeJSON(w, http.StatusOK, records)
}

// handleListFilters dumps the registry in sorted name order.
func (s *Server) handleListFilters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.List())
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errhandling.IsValidation(err):
		return http.StatusBadRequest
	case errhandling.IsMissingResource(err):
		return http.StatusNotFound
	case errhandling.KindOf(err) == errhandling.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	kind := string(errhandling.KindOf(err))
	if kind == "" {
		kind = "internal"
	}
	writeErrorStatus(w, statusFor(err), kind, err.Error())
}

func writeErrorStatus(w http.ResponseWriter, status int, kind, message string) {
	var body errorBody
	body.Error.Kind = kind
	body.Error.Message = message
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Warn("failed to write response", "error", err.Error())
	}
}
