package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aperture-data/wavefront.report/internal/config"
	"github.com/aperture-data/wavefront.report/internal/store"
	"github.com/aperture-data/wavefront.report/internal/zernike"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	db, err := store.NewDB(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.MigrateUp("../../migrations"))
	return NewServer(store.NewRunStore(db), config.EmptyAnalysisConfig())
}

func postJSON(t *testing.T, mux *http.ServeMux, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	mux := testServer(t).ServeMux()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

// synthPhase builds a defocus phase map through the synthesize endpoint.
func synthPhase(t *testing.T, mux *http.ServeMux, samples int) []float64 {
	t.Helper()
	w := postJSON(t, mux, "/api/zernike/synthesize", map[string]any{
		"coefs":   []float64{0, 0, 0, 40},
		"samples": samples,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Samples int       `json:"samples"`
		Phase   []float64 `json:"phase_nm"`
		PVNm    float64   `json:"pv_nm"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, samples, resp.Samples)
	require.Len(t, resp.Phase, samples*samples)
	require.Greater(t, resp.PVNm, 0.0)
	return resp.Phase
}

func TestSynthesizeAndFitRoundTrip(t *testing.T) {
	mux := testServer(t).ServeMux()
	phase := synthPhase(t, mux, 64)

	w := postJSON(t, mux, "/api/zernike/fit", map[string]any{
		"phase_nm": phase,
		"samples":  64,
		"terms":    8,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		RunID      string  `json:"run_id"`
		Ordering   string  `json:"ordering"`
		ResidualNm float64 `json:"residual_nm"`
		Terms      []struct {
			Index int     `json:"index"`
			Name  string  `json:"name"`
			Value float64 `json:"value"`
		} `json:"terms"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Empty(t, resp.RunID, "unsaved fits carry no run ID")
	assert.Equal(t, "fringe", resp.Ordering)
	assert.InDelta(t, 0.0, resp.ResidualNm, 1e-6)
	require.Len(t, resp.Terms, 8)
	assert.Equal(t, "Defocus", resp.Terms[3].Name)
	assert.InDelta(t, 40.0, resp.Terms[3].Value, 1e-6)
}

func TestFitSaveAndRunLifecycle(t *testing.T) {
	mux := testServer(t).ServeMux()
	phase := synthPhase(t, mux, 32)

	w := postJSON(t, mux, "/api/zernike/fit", map[string]any{
		"phase_nm": phase,
		"samples":  32,
		"terms":    4,
		"save":     true,
		"source":   "synthetic defocus",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var fitResp struct {
		RunID string `json:"run_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fitResp))
	require.NotEmpty(t, fitResp.RunID)

	t.Run("list includes the run", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		var runs []store.AnalysisRun
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &runs))
		require.Len(t, runs, 1)
		assert.Equal(t, "synthetic defocus", runs[0].Source)
	})

	t.Run("get returns coefficients", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/runs/"+fitResp.RunID, nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		var run store.AnalysisRun
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &run))
		assert.Len(t, run.Coefficients, 4)
	})

	t.Run("delete removes it", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/api/runs/"+fitResp.RunID, nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		req = httptest.NewRequest(http.MethodGet, "/api/runs/"+fitResp.RunID, nil)
		w = httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestPSFEndpoint(t *testing.T) {
	mux := testServer(t).ServeMux()

	w := postJSON(t, mux, "/api/psf", map[string]any{
		"coefs":       []float64{0, 0, 0, 50},
		"samples":     32,
		"q":           2,
		"ee_radii_um": []float64{5, 20},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Samples         int       `json:"samples"`
		SampleSpacingUm float64   `json:"sample_spacing_um"`
		Intensity       []float64 `json:"intensity"`
		Strehl          float64   `json:"strehl"`
		EncircledEnergy []struct {
			RadiusUm float64 `json:"radius_um"`
			Fraction float64 `json:"fraction"`
		} `json:"encircled_energy"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, 64, resp.Samples, "Q=2 pads the 32-sample pupil")
	assert.Greater(t, resp.SampleSpacingUm, 0.0)
	assert.Len(t, resp.Intensity, 64*64)
	assert.Greater(t, resp.Strehl, 0.0)
	assert.Less(t, resp.Strehl, 1.0)
	require.Len(t, resp.EncircledEnergy, 2)
	assert.LessOrEqual(t, resp.EncircledEnergy[0].Fraction, resp.EncircledEnergy[1].Fraction)
}

func TestPSFFromPhaseGrid(t *testing.T) {
	mux := testServer(t).ServeMux()

	// A flat measured phase map propagates to a diffraction-limited spot.
	w := postJSON(t, mux, "/api/psf", map[string]any{
		"phase_nm": make([]float64, 32*32),
		"samples":  32,
		"q":        2,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Samples int     `json:"samples"`
		Strehl  float64 `json:"strehl"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 64, resp.Samples)
	assert.InDelta(t, 1.0, resp.Strehl, 1e-12, "flat wavefront is diffraction limited")
}

func TestBadRequests(t *testing.T) {
	mux := testServer(t).ServeMux()

	t.Run("fit rejects GET", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/zernike/fit", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})

	t.Run("fit rejects malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/zernike/fit", bytes.NewReader([]byte("{")))
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("fit rejects bad ordering", func(t *testing.T) {
		w := postJSON(t, mux, "/api/zernike/fit", map[string]any{
			"phase_nm": make([]float64, 16),
			"samples":  4,
			"ordering": "zemax",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("fit rejects negative samples", func(t *testing.T) {
		w := postJSON(t, mux, "/api/zernike/fit", map[string]any{
			"phase_nm": []float64{1, 2, 3, 4},
			"samples":  -2,
			"terms":    1,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("psf rejects coefs and phase together", func(t *testing.T) {
		w := postJSON(t, mux, "/api/psf", map[string]any{
			"coefs":    []float64{0, 0, 0, 50},
			"phase_nm": make([]float64, 32*32),
			"samples":  32,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("psf rejects mismatched phase dimensions", func(t *testing.T) {
		w := postJSON(t, mux, "/api/psf", map[string]any{
			"phase_nm": make([]float64, 10),
			"samples":  4,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("fit rejects mismatched dimensions", func(t *testing.T) {
		w := postJSON(t, mux, "/api/zernike/fit", map[string]any{
			"phase_nm": make([]float64, 10),
			"samples":  4,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("psf rejects too many coefficients", func(t *testing.T) {
		w := postJSON(t, mux, "/api/psf", map[string]any{
			"coefs": make([]float64, zernike.Fringe.Len()+1),
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("runs rejects bad limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/runs?limit=bogus", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown run id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/runs/does-not-exist", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestStatusCodeColor(t *testing.T) {
	assert.Contains(t, statusCodeColor(200), "200")
	assert.Contains(t, statusCodeColor(301), "301")
	assert.Contains(t, statusCodeColor(404), "404")
	assert.Contains(t, statusCodeColor(500), "500")
	assert.Equal(t, "100", statusCodeColor(100))
}
