package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrRunNotFound is returned when a run ID has no stored row.
var ErrRunNotFound = errors.New("store: analysis run not found")

// AnalysisRun records one Zernike fit over a phase map: the optical
// prescription, fit settings, and summary statistics.
type AnalysisRun struct {
	RunID      string  `json:"run_id"`
	Source     string  `json:"source"` // free-form label for the input data
	Samples    int     `json:"samples"`
	Dia        float64 `json:"dia_mm"`
	Wavelength float64 `json:"wavelength_um"`
	Terms      int     `json:"terms"`
	Ordering   string  `json:"ordering"`
	Normalized bool    `json:"normalized"`
	ResidualNm float64 `json:"residual_nm"`
	InputPVNm  float64 `json:"input_pv_nm"`
	InputRMSNm float64 `json:"input_rms_nm"`
	CreatedAt  int64   `json:"created_at"`

	Coefficients []RunCoefficient `json:"coefficients,omitempty"`
}

// RunCoefficient is one fitted term of an analysis run.
type RunCoefficient struct {
	TermIndex int     `json:"term_index"`
	TermName  string  `json:"term_name"`
	Value     float64 `json:"value"`
}

// RunStore provides persistence for analysis runs.
type RunStore struct {
	db *DB
}

// NewRunStore creates a RunStore backed by the given database.
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db}
}

// SaveRun persists a run and its coefficients in one transaction. If
// RunID is empty, a UUID is generated.
func (s *RunStore) SaveRun(run *AnalysisRun) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAt == 0 {
		run.CreatedAt = time.Now().UnixNano()
	}

	return retryOnBusy(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		defer tx.Rollback()

		_, err = tx.Exec(`
			INSERT INTO analysis_runs (
				run_id, source, samples, dia_mm, wavelength_um,
				terms, ordering, normalized, residual_nm,
				input_pv_nm, input_rms_nm, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.RunID, run.Source, run.Samples, run.Dia, run.Wavelength,
			run.Terms, run.Ordering, run.Normalized, run.ResidualNm,
			run.InputPVNm, run.InputRMSNm, run.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		for _, c := range run.Coefficients {
			_, err = tx.Exec(`
				INSERT INTO run_coefficients (run_id, term_index, term_name, value)
				VALUES (?, ?, ?, ?)`,
				run.RunID, c.TermIndex, c.TermName, c.Value,
			)
			if err != nil {
				return fmt.Errorf("insert coefficient %d: %w", c.TermIndex, err)
			}
		}

		return tx.Commit()
	})
}

// GetRun loads a run and its coefficients by ID.
func (s *RunStore) GetRun(runID string) (*AnalysisRun, error) {
	run := &AnalysisRun{}
	err := s.db.QueryRow(`
		SELECT run_id, source, samples, dia_mm, wavelength_um,
		       terms, ordering, normalized, residual_nm,
		       input_pv_nm, input_rms_nm, created_at
		FROM analysis_runs WHERE run_id = ?`, runID).Scan(
		&run.RunID, &run.Source, &run.Samples, &run.Dia, &run.Wavelength,
		&run.Terms, &run.Ordering, &run.Normalized, &run.ResidualNm,
		&run.InputPVNm, &run.InputRMSNm, &run.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT term_index, term_name, value
		FROM run_coefficients WHERE run_id = ?
		ORDER BY term_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("query coefficients: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c RunCoefficient
		if err := rows.Scan(&c.TermIndex, &c.TermName, &c.Value); err != nil {
			return nil, fmt.Errorf("scan coefficient: %w", err)
		}
		run.Coefficients = append(run.Coefficients, c)
	}
	return run, rows.Err()
}

// ListRuns returns the most recent runs (without coefficients),
// newest first.
func (s *RunStore) ListRuns(limit int) ([]*AnalysisRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT run_id, source, samples, dia_mm, wavelength_um,
		       terms, ordering, normalized, residual_nm,
		       input_pv_nm, input_rms_nm, created_at
		FROM analysis_runs
		ORDER BY created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*AnalysisRun
	for rows.Next() {
		run := &AnalysisRun{}
		if err := rows.Scan(
			&run.RunID, &run.Source, &run.Samples, &run.Dia, &run.Wavelength,
			&run.Terms, &run.Ordering, &run.Normalized, &run.ResidualNm,
			&run.InputPVNm, &run.InputRMSNm, &run.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run and its coefficients.
func (s *RunStore) DeleteRun(runID string) error {
	return retryOnBusy(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		defer tx.Rollback()

		if _, err := tx.Exec(`DELETE FROM run_coefficients WHERE run_id = ?`, runID); err != nil {
			return fmt.Errorf("delete coefficients: %w", err)
		}
		res, err := tx.Exec(`DELETE FROM analysis_runs WHERE run_id = ?`, runID)
		if err != nil {
			return fmt.Errorf("delete run: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			return ErrRunNotFound
		}
		return tx.Commit()
	})
}
