// Package encoding turns a validated problem instance into the flat arrays
// the search engine consumes: one dense membership matrix per feature,
// constraint triples and float32 item columns.
//
// 2D data is always a contiguous row-major buffer plus a row-offset table.
// Offsets are element offsets into the buffer; the engine binding turns them
// into row pointers inside its own memory.
package encoding

import (
	"fmt"

	"github.com/standardbeagle/ccsearch/internal/input"
)

// Matrix is a dense row-major int32 matrix with an explicit row-offset table
type Matrix struct {
	Rows       int
	Cols       int
	Stride     int
	Data       []int32
	RowOffsets []int
}

// NewMatrix allocates a zeroed rows x cols matrix
func NewMatrix(rows, cols int) *Matrix {
	m := &Matrix{
		Rows:       rows,
		Cols:       cols,
		Stride:     cols,
		Data:       make([]int32, rows*cols),
		RowOffsets: make([]int, rows),
	}
	for i := range m.RowOffsets {
		m.RowOffsets[i] = i * m.Stride
	}
	return m
}

// Row returns row i as a slice of the backing buffer
func (m *Matrix) Row(i int) []int32 {
	off := m.RowOffsets[i]
	return m.Data[off : off+m.Cols]
}

// At returns cell (i, j)
func (m *Matrix) At(i, j int) int32 {
	return m.Data[m.RowOffsets[i]+j]
}

// EncodeFeature builds the membership matrix for one feature. The column
// count is the largest group number referenced; cell (i, g-1) is 1 when item
// i belongs to group g.
func EncodeFeature(membership []input.GroupList) (*Matrix, error) {
	groups := 0
	for _, gl := range membership {
		if m := gl.MaxGroup(); m > groups {
			groups = m
		}
	}

	m := NewMatrix(len(membership), groups)
	for i, gl := range membership {
		row := m.Row(i)
		for _, g := range gl {
			if g < 1 {
				return nil, fmt.Errorf("item %d: group %d is not a valid 1-based group number", i, g)
			}
			row[g-1] = 1
		}
	}
	return m, nil
}
