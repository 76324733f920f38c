// Package fft wraps gonum's complex FFT with the 2D transforms and
// quadrant shifts used by diffraction propagation and frequency-domain
// filtering. Grids are flat row-major complex slices.
package fft

import (
	"gonum.org/v1/gonum/dsp/fourier"
)

// FFT2 computes the unnormalized 2D DFT of a rows x cols grid in place
// and returns it: rows are transformed first, then columns.
func FFT2(data []complex128, rows, cols int) []complex128 {
	rowFFT := fourier.NewCmplxFFT(cols)
	buf := make([]complex128, cols)
	for r := 0; r < rows; r++ {
		row := data[r*cols : (r+1)*cols]
		rowFFT.Coefficients(buf, row)
		copy(row, buf)
	}

	colFFT := fourier.NewCmplxFFT(rows)
	colIn := make([]complex128, rows)
	colOut := make([]complex128, rows)
	for c := 0; c < cols; c++ {
		for r := 0; r < rows; r++ {
			colIn[r] = data[r*cols+c]
		}
		colFFT.Coefficients(colOut, colIn)
		for r := 0; r < rows; r++ {
			data[r*cols+c] = colOut[r]
		}
	}
	return data
}

// IFFT2 computes the normalized inverse 2D DFT in place and returns it.
func IFFT2(data []complex128, rows, cols int) []complex128 {
	rowFFT := fourier.NewCmplxFFT(cols)
	buf := make([]complex128, cols)
	for r := 0; r < rows; r++ {
		row := data[r*cols : (r+1)*cols]
		rowFFT.Sequence(buf, row)
		copy(row, buf)
	}

	colFFT := fourier.NewCmplxFFT(rows)
	colIn := make([]complex128, rows)
	colOut := make([]complex128, rows)
	for c := 0; c < cols; c++ {
		for r := 0; r < rows; r++ {
			colIn[r] = data[r*cols+c]
		}
		colFFT.Sequence(colOut, colIn)
		for r := 0; r < rows; r++ {
			data[r*cols+c] = colOut[r]
		}
	}

	// gonum's transforms are unnormalized; forward followed by inverse
	// scales by rows*cols.
	norm := complex(float64(rows*cols), 0)
	for i := range data {
		data[i] /= norm
	}
	return data
}

// Shift moves the DC bin to the center of the grid (fftshift).
func Shift(data []complex128, rows, cols int) []complex128 {
	return roll(data, rows, cols, rows/2, cols/2)
}

// Ishift undoes Shift for grids of any parity (ifftshift).
func Ishift(data []complex128, rows, cols int) []complex128 {
	return roll(data, rows, cols, (rows+1)/2, (cols+1)/2)
}

// roll circularly shifts the grid down by dr rows and right by dc cols.
func roll(data []complex128, rows, cols, dr, dc int) []complex128 {
	out := make([]complex128, len(data))
	for r := 0; r < rows; r++ {
		nr := (r + dr) % rows
		for c := 0; c < cols; c++ {
			nc := (c + dc) % cols
			out[nr*cols+nc] = data[r*cols+c]
		}
	}
	copy(data, out)
	return data
}
