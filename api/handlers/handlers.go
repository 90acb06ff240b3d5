// Package handlers implements the census REST API.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aria-lang/census-go/internal/errs"
	"github.com/aria-lang/census-go/pkg/census"
)

// API serves census operations over HTTP. Defaults supplies the server-side
// settings (calibration data, database, search binary) every request
// starts from.
type API struct {
	Defaults *census.Config
	// Adapter overrides the search adapter derived from Defaults.
	Adapter census.SearchAdapter
	Logger  *slog.Logger
}

// Routes mounts the API under r.
func (a *API) Routes(r chi.Router) {
	r.Route("/calibration", func(r chi.Router) {
		r.Get("/read-lengths", a.ReadLengthsHandler)
	})
	r.Route("/quality", func(r chi.Router) {
		r.Post("/detect", a.DetectHandler)
		r.Post("/decode", DecodeQualityHandler)
	})
	r.Post("/estimate", a.EstimateHandler)
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: msg})
}

// writeError maps the error kinds onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	var (
		cfgErr    *errs.ConfigurationError
		inErr     *errs.InputError
		estErr    *errs.EstimationError
		searchErr *errs.SearchAdapterError
	)
	switch {
	case errors.As(err, &cfgErr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Kind: "configuration"})
	case errors.As(err, &inErr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Kind: "input"})
	case errors.As(err, &estErr):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Kind: "estimation"})
	case errors.As(err, &searchErr):
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Error: err.Error(), Kind: "search"})
	default:
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
}

func (a *API) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}
