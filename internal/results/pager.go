package results

import (
	"bufio"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/standardbeagle/ccsearch/internal/debug"
	ccserrors "github.com/standardbeagle/ccsearch/internal/errors"
)

// Source is the result side of the engine adapter
type Source interface {
	PrepareResults() (count, collLen int, err error)
	Fetch(rows []uint32, rowOffsets []int, scores []float32) (int, error)
}

// Pager drains a Source one page at a time
type Pager struct {
	src      Source
	pageSize int
	logger   *zap.Logger
}

// NewPager creates a pager fetching up to pageSize collections per call.
// A non-positive pageSize uses DefaultPageSize.
func NewPager(src Source, pageSize int, logger *zap.Logger) *Pager {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Pager{
		src:      src,
		pageSize: pageSize,
		logger:   debug.Component(logger, "results"),
	}
}

// Each calls fn for every collection in engine order. The items slice is
// only valid during the call. Returns the number of collections visited.
func (p *Pager) Each(fn func(items []uint32, score float32) error) (int, error) {
	total, width, err := p.src.PrepareResults()
	if err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, nil
	}

	page := NewPage(min(p.pageSize, total), width)
	done := 0
	for done < total {
		n, err := p.src.Fetch(page.Cells, page.RowOffsets, page.Scores)
		if err != nil {
			return done, err
		}
		if n == 0 {
			return done, ccserrors.NewEngineError("getres", 0).
				WithCause(fmt.Errorf("results exhausted after %d of %d collections", done, total))
		}
		p.logger.Debug("page fetched", zap.Int("rows", n), zap.Int("done", done+n), zap.Int("total", total))

		for i := 0; i < n; i++ {
			if err := fn(page.Row(i), page.Scores[i]); err != nil {
				return done + i, err
			}
		}
		done += n
	}
	return done, nil
}

// Run writes every collection to w as one line each and returns the number
// of lines written
func (p *Pager) Run(w io.Writer) (int, error) {
	bw := bufio.NewWriter(w)
	var line []byte
	n, err := p.Each(func(items []uint32, score float32) error {
		line = AppendRow(line[:0], items, score)
		_, err := bw.Write(line)
		return err
	})
	if flushErr := bw.Flush(); err == nil {
		err = flushErr
	}
	return n, err
}
