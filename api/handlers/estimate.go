package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/aria-lang/census-go/pkg/census"
)

// EstimateRequest runs the pipeline on a file visible to the server. Unset
// fields keep the server defaults.
type EstimateRequest struct {
	Input            string   `json:"input"`
	FileType         string   `json:"file_type,omitempty"`
	Encoding         string   `json:"fastq_format,omitempty"`
	SampleSize       *int     `json:"sample_size,omitempty"`
	ReadLength       *int     `json:"read_length,omitempty"`
	MinBaseQuality   *float64 `json:"min_base_quality,omitempty"`
	MinMeanQuality   *float64 `json:"min_mean_quality,omitempty"`
	FilterDuplicates bool     `json:"filter_duplicates,omitempty"`
	// MaxUnknown is a fraction in [0, 1].
	MaxUnknown  *float64 `json:"max_unknown,omitempty"`
	Seed        uint64   `json:"seed,omitempty"`
	OutlierMADs *float64 `json:"outlier_mads,omitempty"`
}

// EstimateResponse is the report plus the per-family breakdown.
type EstimateResponse struct {
	*census.Report
	FileType    string `json:"file_type"`
	FamilyCount int    `json:"families_used"`
}

func (req *EstimateRequest) apply(cfg *census.Config) {
	cfg.Input = req.Input
	if req.FileType != "" {
		cfg.FileType = req.FileType
	}
	if req.Encoding != "" {
		cfg.Encoding = req.Encoding
	}
	if req.SampleSize != nil {
		cfg.SampleSize = *req.SampleSize
	}
	if req.ReadLength != nil {
		cfg.ReadLength = *req.ReadLength
	}
	if req.MinBaseQuality != nil {
		cfg.MinBaseQuality = *req.MinBaseQuality
	}
	if req.MinMeanQuality != nil {
		cfg.MinMeanQuality = *req.MinMeanQuality
	}
	if req.FilterDuplicates {
		cfg.FilterDuplicates = true
	}
	if req.MaxUnknown != nil {
		cfg.MaxUnknown = *req.MaxUnknown
	}
	if req.Seed != 0 {
		cfg.Seed = req.Seed
	}
	if req.OutlierMADs != nil {
		cfg.OutlierMADs = *req.OutlierMADs
	}
}

// EstimateHandler handles POST /estimate.
func (a *API) EstimateHandler(w http.ResponseWriter, r *http.Request) {
	var req EstimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.Input == "" {
		badRequest(w, "'input' is required")
		return
	}

	cfg := *a.Defaults
	req.apply(&cfg)
	// The report is returned, not written; run artifacts go to the system
	// temp directory.
	cfg.Output = "-"
	cfg.KeepTemp = false

	opts := []census.Option{census.WithLogger(a.logger().With("input", cfg.Input))}
	if a.Adapter != nil {
		opts = append(opts, census.WithAdapter(a.Adapter))
	}
	res, err := census.Estimate(r.Context(), &cfg, opts...)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, EstimateResponse{
		Report:      res.Report,
		FileType:    res.FileType.String(),
		FamilyCount: res.Estimate.Used(),
	})
}
