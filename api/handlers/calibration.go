package handlers

import (
	"net/http"

	"github.com/aria-lang/census-go/pkg/census"
)

// ReadLengthsResponse lists the calibrated read lengths.
type ReadLengthsResponse struct {
	ReadLengths []int `json:"read_lengths"`
}

// ReadLengthsHandler handles GET /calibration/read-lengths.
func (a *API) ReadLengthsHandler(w http.ResponseWriter, r *http.Request) {
	lengths, err := census.ReadLengths(a.Defaults.DataDir)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ReadLengthsResponse{ReadLengths: lengths})
}
