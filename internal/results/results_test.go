package results

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ccserrors "github.com/standardbeagle/ccsearch/internal/errors"
)

// sliceSource serves fixed rows, optionally failing or running dry early
type sliceSource struct {
	width     int
	rows      [][]uint32
	scores    []float32
	claim     int // reported count, len(rows) when zero
	failAfter int // Fetch calls before returning an error, disabled when zero
	fetches   []int
	cursor    int
}

func (s *sliceSource) PrepareResults() (int, int, error) {
	s.cursor = 0
	if s.claim > 0 {
		return s.claim, s.width, nil
	}
	return len(s.rows), s.width, nil
}

func (s *sliceSource) Fetch(cells []uint32, offsets []int, scores []float32) (int, error) {
	if s.failAfter > 0 && len(s.fetches) == s.failAfter {
		return 0, ccserrors.NewEngineError("getres", -1)
	}
	n := 0
	for n < len(offsets) && s.cursor < len(s.rows) {
		copy(cells[offsets[n]:offsets[n]+s.width], s.rows[s.cursor])
		scores[n] = s.scores[s.cursor]
		n++
		s.cursor++
	}
	s.fetches = append(s.fetches, n)
	return n, nil
}

func TestAppendRow(t *testing.T) {
	line := AppendRow(nil, []uint32{3, 0, 2}, 24)
	assert.Equal(t, "0 2 3 24\n", string(line))

	line = AppendRow(nil, []uint32{1}, 0.1)
	assert.Equal(t, "1 0.1\n", string(line))

	line = AppendRow(nil, []uint32{5, 4}, -1.5e-7)
	assert.Equal(t, "4 5 -1.5e-07\n", string(line))
}

func TestNewPage(t *testing.T) {
	p := NewPage(3, 4)
	assert.Equal(t, 3, p.Capacity())
	assert.Equal(t, []int{0, 4, 8}, p.RowOffsets)
	assert.Len(t, p.Cells, 12)
	p.Row(1)[0] = 7
	assert.Equal(t, uint32(7), p.Cells[4])
}

func TestPager_Pages(t *testing.T) {
	src := &sliceSource{
		width:  2,
		rows:   [][]uint32{{1, 0}, {3, 2}, {4, 1}, {2, 0}, {3, 1}},
		scores: []float32{9, 8, 7, 6, 5},
	}
	var out bytes.Buffer
	n, err := NewPager(src, 2, nil).Run(&out)
	require.NoError(t, err)

	assert.Equal(t, 5, n)
	assert.Equal(t, []int{2, 2, 1}, src.fetches)
	assert.Equal(t, "0 1 9\n2 3 8\n1 4 7\n0 2 6\n1 3 5\n", out.String())
}

func TestPager_PageSizesAgree(t *testing.T) {
	rows := make([][]uint32, 23)
	scores := make([]float32, len(rows))
	for i := range rows {
		rows[i] = []uint32{uint32(i + 2), uint32(i), uint32(i + 1)}
		scores[i] = float32(100 - i)
	}

	var want string
	for _, size := range []int{1, 2, 5, 22, 23, 1000, 0} {
		src := &sliceSource{width: 3, rows: rows, scores: scores}
		var out bytes.Buffer
		n, err := NewPager(src, size, nil).Run(&out)
		require.NoError(t, err, "page size %d", size)
		assert.Equal(t, len(rows), n)

		lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
		require.Len(t, lines, len(rows))
		for i, l := range lines {
			fields := strings.Fields(l)
			require.Len(t, fields, 4)
			assert.Equal(t, []string{strconv.Itoa(i), strconv.Itoa(i + 1), strconv.Itoa(i + 2)}, fields[:3])
		}
		if want == "" {
			want = out.String()
		}
		assert.Equal(t, want, out.String(), "page size %d", size)
	}
}

func TestPager_Empty(t *testing.T) {
	src := &sliceSource{width: 3}
	var out bytes.Buffer
	n, err := NewPager(src, 10, nil).Run(&out)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, out.String())
	assert.Empty(t, src.fetches)
}

func TestPager_ExhaustedEarly(t *testing.T) {
	src := &sliceSource{
		width:  1,
		rows:   [][]uint32{{0}, {1}},
		scores: []float32{2, 1},
		claim:  3,
	}
	var out bytes.Buffer
	n, err := NewPager(src, 10, nil).Run(&out)

	var engErr *ccserrors.EngineError
	require.True(t, errors.As(err, &engErr))
	assert.Equal(t, "getres", engErr.Call)
	assert.Contains(t, err.Error(), "2 of 3")
	assert.Equal(t, 2, n)
	assert.Equal(t, "0 2\n1 1\n", out.String(), "lines before the failure are kept")
}

func TestPager_FetchError(t *testing.T) {
	src := &sliceSource{
		width:     1,
		rows:      [][]uint32{{0}, {1}, {2}},
		scores:    []float32{3, 2, 1},
		failAfter: 1,
	}
	n, err := NewPager(src, 2, nil).Run(io.Discard)
	require.Error(t, err)
	assert.Equal(t, 2, n)
}

func TestPager_CallbackError(t *testing.T) {
	src := &sliceSource{width: 1, rows: [][]uint32{{0}, {1}}, scores: []float32{1, 1}}
	stop := errors.New("stop")
	n, err := NewPager(src, 10, nil).Each(func([]uint32, float32) error { return stop })
	assert.ErrorIs(t, err, stop)
	assert.Zero(t, n)
}

func TestOpenSink_None(t *testing.T) {
	s, err := OpenSink("", nil)
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestOpenSink_Stdout(t *testing.T) {
	var buf bytes.Buffer
	s, err := OpenSink(StdoutPath, &buf)
	require.NoError(t, err)
	_, err = s.WriteString("0 1 2\n")
	require.NoError(t, err)
	require.NoError(t, s.Close())
	assert.Equal(t, "0 1 2\n", buf.String())
}

func TestOpenSink_Files(t *testing.T) {
	const content = "0 1 2 24\n0 1 3 22\n"
	dir := t.TempDir()

	read := map[string]func(t *testing.T, path string) string{
		"out.txt": func(t *testing.T, path string) string {
			b, err := os.ReadFile(path)
			require.NoError(t, err)
			return string(b)
		},
		"out.gz": func(t *testing.T, path string) string {
			f, err := os.Open(path)
			require.NoError(t, err)
			defer f.Close()
			r, err := gzip.NewReader(f)
			require.NoError(t, err)
			b, err := io.ReadAll(r)
			require.NoError(t, err)
			return string(b)
		},
		"out.zst": func(t *testing.T, path string) string {
			f, err := os.Open(path)
			require.NoError(t, err)
			defer f.Close()
			d, err := zstd.NewReader(f)
			require.NoError(t, err)
			defer d.Close()
			b, err := io.ReadAll(d)
			require.NoError(t, err)
			return string(b)
		},
	}

	for name, readBack := range read {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			s, err := OpenSink(path, nil)
			require.NoError(t, err)
			_, err = s.WriteString(content)
			require.NoError(t, err)
			require.NoError(t, s.Close())
			assert.Equal(t, content, readBack(t, path))
		})
	}
}

func TestOpenSink_BadPath(t *testing.T) {
	_, err := OpenSink(filepath.Join(t.TempDir(), "missing", "out.txt"), nil)
	var fileErr *ccserrors.FileError
	require.True(t, errors.As(err, &fileErr))
	assert.Equal(t, "create", fileErr.Operation)
}
