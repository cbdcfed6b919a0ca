// Package results pages collections out of the engine and writes them as
// text lines: the ascending 0-based item indices of each collection followed
// by its score.
package results

import (
	"slices"
	"strconv"
)

// DefaultPageSize is the number of collections fetched per engine call
const DefaultPageSize = 100000

// Page is one fetch buffer: Rows collections of Width item indices stored
// contiguously, plus a score per row
type Page struct {
	Width      int
	Cells      []uint32
	RowOffsets []int
	Scores     []float32
}

// NewPage allocates a page for rows collections of width items
func NewPage(rows, width int) *Page {
	p := &Page{
		Width:      width,
		Cells:      make([]uint32, rows*width),
		RowOffsets: make([]int, rows),
		Scores:     make([]float32, rows),
	}
	for i := range p.RowOffsets {
		p.RowOffsets[i] = i * width
	}
	return p
}

// Capacity is the number of rows the page holds
func (p *Page) Capacity() int {
	return len(p.RowOffsets)
}

// Row returns row i as a slice of the page buffer
func (p *Page) Row(i int) []uint32 {
	off := p.RowOffsets[i]
	return p.Cells[off : off+p.Width]
}

// AppendRow formats one collection as "i1 i2 ... score\n". items is sorted
// in place.
func AppendRow(dst []byte, items []uint32, score float32) []byte {
	slices.Sort(items)
	for _, it := range items {
		dst = strconv.AppendUint(dst, uint64(it), 10)
		dst = append(dst, ' ')
	}
	dst = strconv.AppendFloat(dst, float64(score), 'g', -1, 32)
	return append(dst, '\n')
}
