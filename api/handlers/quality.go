package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/aria-lang/census-go/internal/quality"
	"github.com/aria-lang/census-go/pkg/census"
)

// DetectRequest names a sequence file visible to the server.
type DetectRequest struct {
	Path string `json:"path"`
}

// DetectHandler handles POST /quality/detect: file type, quality encoding
// and length profile of the leading records.
func (a *API) DetectHandler(w http.ResponseWriter, r *http.Request) {
	var req DetectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.Path == "" {
		badRequest(w, "'path' is required")
		return
	}

	in, err := census.Inspect(req.Path)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, in)
}

// DecodeRequest is a raw quality string. An empty encoding is detected
// from the string itself.
type DecodeRequest struct {
	Encoded  string `json:"encoded"`
	Encoding string `json:"encoding,omitempty"`
}

// DecodeResponse holds Phred scores and their summary.
type DecodeResponse struct {
	Encoding string `json:"encoding"`
	Scores   []int  `json:"scores"`
	// Phred33 re-encodes the scores as a Sanger quality string.
	Phred33 string  `json:"phred33"`
	Length  int     `json:"length"`
	Min     int     `json:"min"`
	Max     int     `json:"max"`
	Mean    float64 `json:"mean"`
	Median  int     `json:"median"`
}

// DecodeQualityHandler handles POST /quality/decode.
func DecodeQualityHandler(w http.ResponseWriter, r *http.Request) {
	var req DecodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.Encoded == "" {
		badRequest(w, "'encoded' is required")
		return
	}

	enc, err := quality.ParseEncoding(req.Encoding)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if enc == quality.Unknown {
		min, max := req.Encoded[0], req.Encoded[0]
		for i := 1; i < len(req.Encoded); i++ {
			if c := req.Encoded[i]; c < min {
				min = c
			} else if c > max {
				max = c
			}
		}
		enc = quality.DetectEncoding(min, max)
	}

	values, err := quality.Decode([]byte(req.Encoded), enc)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	scores := quality.Wrap(values)
	writeJSON(w, http.StatusOK, DecodeResponse{
		Encoding: enc.String(),
		Scores:   values,
		Phred33:  scores.ToPhred33(),
		Length:   scores.Len(),
		Min:      scores.Min(),
		Max:      scores.Max(),
		Mean:     scores.Average(),
		Median:   scores.Median(),
	})
}
