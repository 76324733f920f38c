// Package api exposes the wavefront analysis operations over HTTP.
package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aperture-data/wavefront.report/internal/config"
	"github.com/aperture-data/wavefront.report/internal/grid"
	"github.com/aperture-data/wavefront.report/internal/psf"
	"github.com/aperture-data/wavefront.report/internal/pupil"
	"github.com/aperture-data/wavefront.report/internal/store"
	"github.com/aperture-data/wavefront.report/internal/zernike"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	runs *store.RunStore
	cfg  *config.AnalysisConfig
}

func NewServer(runs *store.RunStore, cfg *config.AnalysisConfig) *Server {
	if cfg == nil {
		cfg = config.EmptyAnalysisConfig()
	}
	return &Server{
		runs: runs,
		cfg:  cfg,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400 && statusCode < 500:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 500:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/zernike/fit", s.fitHandler)
	mux.HandleFunc("/api/zernike/synthesize", s.synthesizeHandler)
	mux.HandleFunc("/api/psf", s.psfHandler)
	mux.HandleFunc("/api/runs", s.listRunsHandler)
	mux.HandleFunc("/api/runs/", s.runHandler)
	mux.HandleFunc("/healthz", s.healthHandler)
	return mux
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// fitRequest carries a square phase map in nm and optional overrides
// for the configured fit defaults.
type fitRequest struct {
	Phase   []float64 `json:"phase_nm"`
	Samples int       `json:"samples"`

	Terms     *int    `json:"terms,omitempty"`
	Ordering  *string `json:"ordering,omitempty"`
	Normalize *bool   `json:"normalize,omitempty"`

	// Save persists the result; Source labels the stored run.
	Save   bool   `json:"save,omitempty"`
	Source string `json:"source,omitempty"`
}

type fitResponse struct {
	RunID      string                            `json:"run_id,omitempty"`
	Ordering   string                            `json:"ordering"`
	Normalized bool                              `json:"normalized"`
	ResidualNm float64                           `json:"residual_nm"`
	InputPVNm  float64                           `json:"input_pv_nm"`
	InputRMSNm float64                           `json:"input_rms_nm"`
	Terms      []fitTerm                         `json:"terms"`
	Magnitudes map[string]zernike.MagnitudeAngle `json:"magnitudes"`
}

type fitTerm struct {
	Index int     `json:"index"`
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

func (s *Server) fitHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req fitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	if req.Samples < 2 {
		s.writeJSONError(w, http.StatusBadRequest,
			fmt.Sprintf("samples must be at least 2, got %d", req.Samples))
		return
	}
	terms := s.cfg.GetTerms()
	if req.Terms != nil {
		terms = *req.Terms
	}
	normalize := s.cfg.GetNormalize()
	if req.Normalize != nil {
		normalize = *req.Normalize
	}
	orderingName := s.cfg.GetOrdering()
	if req.Ordering != nil {
		orderingName = *req.Ordering
	}
	ordering, err := zernike.ParseOrdering(orderingName)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := zernike.Fit(req.Phase, req.Samples, terms, normalize, ordering)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	desc := result.Description()

	resp := fitResponse{
		Ordering:   ordering.String(),
		Normalized: normalize,
		ResidualNm: result.Residual,
		InputPVNm:  grid.PV(req.Phase),
		InputRMSNm: grid.RMS(req.Phase),
		Magnitudes: desc.Magnitudes(),
	}
	names := desc.Names()
	for i, v := range result.Coefs {
		resp.Terms = append(resp.Terms, fitTerm{Index: i, Name: names[i], Value: v})
	}

	if req.Save {
		if s.runs == nil {
			s.writeJSONError(w, http.StatusInternalServerError, "Run storage is not configured")
			return
		}
		run := &store.AnalysisRun{
			Source:     req.Source,
			Samples:    req.Samples,
			Dia:        s.cfg.GetDia(),
			Wavelength: s.cfg.GetWavelength(),
			Terms:      terms,
			Ordering:   ordering.String(),
			Normalized: normalize,
			ResidualNm: result.Residual,
			InputPVNm:  resp.InputPVNm,
			InputRMSNm: resp.InputRMSNm,
		}
		for _, t := range resp.Terms {
			run.Coefficients = append(run.Coefficients, store.RunCoefficient{
				TermIndex: t.Index,
				TermName:  t.Name,
				Value:     t.Value,
			})
		}
		if err := s.runs.SaveRun(run); err != nil {
			s.writeJSONError(w, http.StatusInternalServerError,
				fmt.Sprintf("Failed to save run: %v", err))
			return
		}
		resp.RunID = run.RunID
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write fit result")
		return
	}
}

type synthesizeRequest struct {
	Coefs   []float64 `json:"coefs"`
	Samples *int      `json:"samples,omitempty"`

	Ordering  *string `json:"ordering,omitempty"`
	Normalize *bool   `json:"normalize,omitempty"`
}

type synthesizeResponse struct {
	Samples int       `json:"samples"`
	Phase   []float64 `json:"phase_nm"`
	PVNm    float64   `json:"pv_nm"`
	RMSNm   float64   `json:"rms_nm"`
}

func (s *Server) synthesizeHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req synthesizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	samples := s.cfg.GetSamples()
	if req.Samples != nil {
		samples = *req.Samples
	}
	if samples < 2 {
		s.writeJSONError(w, http.StatusBadRequest,
			fmt.Sprintf("samples must be at least 2, got %d", samples))
		return
	}
	normalize := s.cfg.GetNormalize()
	if req.Normalize != nil {
		normalize = *req.Normalize
	}
	orderingName := s.cfg.GetOrdering()
	if req.Ordering != nil {
		orderingName = *req.Ordering
	}
	ordering, err := zernike.ParseOrdering(orderingName)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	desc, err := zernike.NewDescription(ordering, req.Coefs, 0, normalize)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	phase := desc.Synthesize(samples)

	resp := synthesizeResponse{
		Samples: samples,
		Phase:   phase,
		PVNm:    grid.PV(phase),
		RMSNm:   grid.RMS(phase),
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write synthesis result")
		return
	}
}

// psfRequest accepts either Zernike coefficients or a raw phase grid in
// nm; exactly one of the two must be provided.
type psfRequest struct {
	Coefs []float64 `json:"coefs,omitempty"`
	Phase []float64 `json:"phase_nm,omitempty"`

	Samples    *int     `json:"samples,omitempty"`
	Dia        *float64 `json:"dia_mm,omitempty"`
	Wavelength *float64 `json:"wavelength_um,omitempty"`
	Ordering   *string  `json:"ordering,omitempty"`
	Normalize  *bool    `json:"normalize,omitempty"`
	EFL        *float64 `json:"efl_mm,omitempty"`
	Q          *float64 `json:"q,omitempty"`

	// EERadii requests encircled energy fractions at these radii in µm.
	EERadii []float64 `json:"ee_radii_um,omitempty"`
}

type psfResponse struct {
	Samples         int       `json:"samples"`
	SampleSpacingUm float64   `json:"sample_spacing_um"`
	Intensity       []float64 `json:"intensity"`
	Strehl          float64   `json:"strehl"`

	EncircledEnergy []eePoint `json:"encircled_energy,omitempty"`
}

type eePoint struct {
	RadiusUm float64 `json:"radius_um"`
	Fraction float64 `json:"fraction"`
}

func (s *Server) psfHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req psfRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	samples := s.cfg.GetSamples()
	if req.Samples != nil {
		samples = *req.Samples
	}
	dia := s.cfg.GetDia()
	if req.Dia != nil {
		dia = *req.Dia
	}
	wavelength := s.cfg.GetWavelength()
	if req.Wavelength != nil {
		wavelength = *req.Wavelength
	}
	normalize := s.cfg.GetNormalize()
	if req.Normalize != nil {
		normalize = *req.Normalize
	}
	efl := s.cfg.GetEFL()
	if req.EFL != nil {
		efl = *req.EFL
	}
	q := s.cfg.GetQ()
	if req.Q != nil {
		q = *req.Q
	}
	orderingName := s.cfg.GetOrdering()
	if req.Ordering != nil {
		orderingName = *req.Ordering
	}
	ordering, err := zernike.ParseOrdering(orderingName)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	opts := []pupil.Option{
		pupil.WithSamples(samples),
		pupil.WithDia(dia),
		pupil.WithWavelength(wavelength),
		pupil.WithMask(s.cfg.GetMaskShape(), s.cfg.GetMaskRadius()),
	}

	var pup *pupil.Pupil
	switch {
	case req.Phase != nil && req.Coefs != nil:
		s.writeJSONError(w, http.StatusBadRequest, "Provide either 'coefs' or 'phase_nm', not both")
		return
	case req.Phase != nil:
		opts = append(opts, pupil.WithData(nil, nil, req.Phase))
		pup, err = pupil.New(opts...)
	default:
		var desc *zernike.Description
		desc, err = zernike.NewDescription(ordering, req.Coefs, 0, normalize)
		if err != nil {
			s.writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		pup, err = pupil.FromZernike(desc, opts...)
	}
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	point, err := psf.FromPupil(pup, efl, q)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := psfResponse{
		Samples:         point.Samples,
		SampleSpacingUm: point.SampleSpacing,
		Intensity:       point.Intensity,
		Strehl:          pup.Strehl(),
	}
	for _, radius := range req.EERadii {
		resp.EncircledEnergy = append(resp.EncircledEnergy, eePoint{
			RadiusUm: radius,
			Fraction: point.EncircledEnergy(radius),
		})
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write propagation result")
		return
	}
}

func (s *Server) listRunsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if s.runs == nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Run storage is not configured")
		return
	}

	limit := 50 // default value
	if l := r.URL.Query().Get("limit"); l != "" {
		parsedLimit, err := strconv.Atoi(l)
		if err != nil || parsedLimit < 1 {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid 'limit' parameter")
			return
		}
		limit = parsedLimit
	}

	runs, err := s.runs.ListRuns(limit)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve runs: %v", err))
		return
	}
	if runs == nil {
		runs = []*store.AnalysisRun{}
	}

	if err := json.NewEncoder(w).Encode(runs); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write runs")
		return
	}
}

func (s *Server) runHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if s.runs == nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Run storage is not configured")
		return
	}

	runID := strings.TrimPrefix(r.URL.Path, "/api/runs/")
	if runID == "" || strings.Contains(runID, "/") {
		s.writeJSONError(w, http.StatusBadRequest, "Invalid run ID")
		return
	}

	switch r.Method {
	case http.MethodGet:
		run, err := s.runs.GetRun(runID)
		if err == store.ErrRunNotFound {
			s.writeJSONError(w, http.StatusNotFound, "Run not found")
			return
		}
		if err != nil {
			s.writeJSONError(w, http.StatusInternalServerError,
				fmt.Sprintf("Failed to retrieve run: %v", err))
			return
		}
		if err := json.NewEncoder(w).Encode(run); err != nil {
			s.writeJSONError(w, http.StatusInternalServerError, "Failed to write run")
			return
		}
	case http.MethodDelete:
		err := s.runs.DeleteRun(runID)
		if err == store.ErrRunNotFound {
			s.writeJSONError(w, http.StatusNotFound, "Run not found")
			return
		}
		if err != nil {
			s.writeJSONError(w, http.StatusInternalServerError,
				fmt.Sprintf("Failed to delete run: %v", err))
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"deleted": runID})
	default:
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
