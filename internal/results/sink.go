package results

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	ccserrors "github.com/standardbeagle/ccsearch/internal/errors"
)

// StdoutPath selects standard output
const StdoutPath = "stdout"

// Sink is a buffered output destination. Close flushes it.
type Sink struct {
	*bufio.Writer
	closers []io.Closer
	path    string
}

// OpenSink opens the result destination for path: StdoutPath writes to
// stdout, a ".zst" or ".gz" suffix compresses, anything else is a plain
// file. An empty path means no output and returns a nil Sink.
func OpenSink(path string, stdout io.Writer) (*Sink, error) {
	switch path {
	case "":
		return nil, nil
	case StdoutPath:
		return &Sink{Writer: bufio.NewWriter(stdout), path: path}, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, ccserrors.NewFileError("create", path, err)
	}
	s := &Sink{path: path}

	var w io.Writer = f
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zst":
		enc, err := zstd.NewWriter(f)
		if err != nil {
			_ = f.Close()
			return nil, ccserrors.NewFileError("create", path, err)
		}
		w = enc
		s.closers = append(s.closers, enc)
	case ".gz":
		gz := gzip.NewWriter(f)
		w = gz
		s.closers = append(s.closers, gz)
	}
	s.closers = append(s.closers, f)
	s.Writer = bufio.NewWriter(w)
	return s, nil
}

// Close flushes buffered output and closes the compressor and file in that
// order. Every failure is reported.
func (s *Sink) Close() error {
	var errs []error
	if err := s.Flush(); err != nil {
		errs = append(errs, err)
	}
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return ccserrors.NewFileError("write", s.path, ccserrors.NewMultiError(errs))
	}
	return nil
}
