// Package handler exposes the size-constrained re-encoding search over
// HTTP. The upload is decoded once, searched once, and the encoded
// output streamed back with the search outcome in response headers.
package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/sizefit/sizefit/internal/config"
	"github.com/sizefit/sizefit/internal/encoder"
	"github.com/sizefit/sizefit/internal/imaging"
	"github.com/sizefit/sizefit/internal/worker"
	"github.com/sizefit/sizefit/pkg/fit"
	"github.com/sizefit/sizefit/pkg/metrics"
	"github.com/sizefit/sizefit/pkg/sizeexpr"
)

// Response headers describing the search outcome.
const (
	headerFidelity     = "X-Sizefit-Fidelity"
	headerVariant      = "X-Sizefit-Variant"
	headerPass         = "X-Sizefit-Pass"
	headerSavedPercent = "X-Sizefit-Saved-Percent"
)

// Handler handles HTTP requests for size-constrained re-encoding.
type Handler struct {
	cfg  *config.Config
	pool *worker.Pool
}

// New creates a Handler backed by the given worker pool.
func New(cfg *config.Config, pool *worker.Pool) *Handler {
	return &Handler{cfg: cfg, pool: pool}
}

// Compress handles the /compress endpoint. Query parameters override
// the configured defaults: target (a size expression, or "none" for
// unconstrained), base_fidelity, min_fidelity, format (jpeg or webp).
func (h *Handler) Compress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	params, format, ok := h.requestParams(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(int64(h.cfg.MaxUploadMB) << 20); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			http.Error(w, "Content-Type must be multipart/form-data", http.StatusBadRequest)
		} else {
			http.Error(w, "Request too large", http.StatusRequestEntityTooLarge)
		}
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "No file provided", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Failed to read upload", http.StatusBadRequest)
		return
	}

	img, _, err := imaging.DecodeValidated(data)
	if err != nil {
		switch {
		case errors.Is(err, imaging.ErrFileTooLarge):
			http.Error(w, "File too large", http.StatusRequestEntityTooLarge)
		case errors.Is(err, imaging.ErrImageTooLarge), errors.Is(err, imaging.ErrInvalidDimensions):
			http.Error(w, "Image dimensions not acceptable", http.StatusUnprocessableEntity)
		default:
			http.Error(w, "Unsupported or corrupt image", http.StatusUnsupportedMediaType)
		}
		return
	}

	enc, err := encoder.For(format, h.cfg.UseTurbo)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	start := time.Now()
	var result *fit.Result
	err = h.pool.Submit(r.Context(), func(ctx context.Context) error {
		var searchErr error
		result, searchErr = fit.Search(ctx, img, enc.Encode, params)
		return searchErr
	})
	if err != nil {
		if errors.Is(err, worker.ErrPoolBusy) {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "Service busy, please try again", http.StatusServiceUnavailable)
			return
		}
		log.Printf("Search error: %v", err)
		metrics.RecordSearch("error", "api", time.Since(start).Seconds(), 0, len(data), 0)
		http.Error(w, "Compression failed", http.StatusInternalServerError)
		return
	}

	outcome := "pass"
	if !result.Pass {
		outcome = "fallback"
	}
	metrics.RecordSearch(outcome, "api", time.Since(start).Seconds(), result.Probes, len(data), len(result.Data))

	saved := 0.0
	if len(data) > 0 {
		saved = (1 - float64(len(result.Data))/float64(len(data))) * 100
	}

	w.Header().Set("Content-Type", contentTypeFor(format))
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Data)))
	w.Header().Set(headerFidelity, strconv.FormatFloat(result.Fidelity, 'f', 3, 64))
	w.Header().Set(headerVariant, result.Variant.String())
	w.Header().Set(headerPass, strconv.FormatBool(result.Pass))
	w.Header().Set(headerSavedPercent, fmt.Sprintf("%.1f", saved))
	w.WriteHeader(http.StatusOK)
	w.Write(result.Data)
}

// requestParams resolves search parameters from query overrides on top
// of the configured defaults. Writes an error response and returns
// ok = false on invalid input.
func (h *Handler) requestParams(w http.ResponseWriter, r *http.Request) (fit.Params, string, bool) {
	params := h.cfg.SearchParams()
	format := h.cfg.OutputFormat
	query := r.URL.Query()

	if v := query.Get("target"); v != "" {
		if v == "none" {
			params.TargetBytes = sizeexpr.Unconstrained
		} else {
			target, err := sizeexpr.Parse(v)
			if err != nil {
				http.Error(w, "Invalid target: "+err.Error(), http.StatusBadRequest)
				return params, format, false
			}
			params.TargetBytes = target
		}
	}

	if v := query.Get("base_fidelity"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			http.Error(w, "Invalid base_fidelity", http.StatusBadRequest)
			return params, format, false
		}
		params.BaseFidelity = fit.ClampFidelity(f)
	}
	if v := query.Get("min_fidelity"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			http.Error(w, "Invalid min_fidelity", http.StatusBadRequest)
			return params, format, false
		}
		params.MinFidelity = fit.ClampFidelity(f)
	}
	if params.MinFidelity > params.BaseFidelity {
		http.Error(w, "min_fidelity above base_fidelity", http.StatusBadRequest)
		return params, format, false
	}

	if v := query.Get("format"); v != "" {
		format = v
	}

	return params, format, true
}

func contentTypeFor(format string) string {
	if format == "webp" {
		return "image/webp"
	}
	return "image/jpeg"
}

// Health handles the /health endpoint for readiness/liveness probes.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
