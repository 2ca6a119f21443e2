package export

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// ErrNotFound wraps opening a path that does not exist, so callers can
// distinguish a missing export from an unreadable one.
var ErrNotFound = errors.New("export file not found")

// ParseError reports malformed top-level JSON. It is fatal for the current
// pass: the token stream stops and no further records are produced.
type ParseError struct {
	Path   string
	Offset int64
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error in %s at offset %d: %v", e.Path, e.Offset, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Reader wraps exactly one open export file and exposes its top-level JSON
// array as a pull-based token stream. It never materializes the document:
// only the element currently being decoded is buffered.
//
// A Reader is single-use. Restarting a pass means opening a new Reader.
type Reader struct {
	path    string
	file    *os.File
	dec     *json.Decoder
	started bool
	closed  bool
	empty   bool
}

// Open opens an export file for one streaming pass. A missing path yields an
// error matching ErrNotFound; any other failure is surfaced as-is.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("open export: %w", err)
	}
	return &Reader{
		path: path,
		file: f,
		dec:  json.NewDecoder(bufio.NewReaderSize(f, 64*1024)),
	}, nil
}

// Path returns the path the reader was opened with.
func (r *Reader) Path() string {
	return r.path
}

// Close releases the underlying file handle. It is safe to call more than
// once and is called automatically when the stream is exhausted.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.file.Close()
}

// begin consumes the opening delimiter of the top-level array. A zero-byte
// file counts as an empty export rather than an error.
func (r *Reader) begin() error {
	if r.started {
		return nil
	}
	r.started = true

	tok, err := r.dec.Token()
	if err == io.EOF {
		r.empty = true
		return nil
	}
	if err != nil {
		return r.parseError(err)
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '[' {
		return r.parseError(fmt.Errorf("expected top-level array, got %v", tok))
	}
	return nil
}

// more reports whether another top-level element remains.
func (r *Reader) more() bool {
	return !r.empty && r.dec.More()
}

// decodeElement decodes the next top-level array element into v.
func (r *Reader) decodeElement(v any) error {
	if err := r.dec.Decode(v); err != nil {
		return r.parseError(err)
	}
	return nil
}

// end consumes the closing delimiter, verifies nothing follows it, and
// releases the file handle.
func (r *Reader) end() error {
	defer r.Close()
	if r.empty {
		return nil
	}
	if _, err := r.dec.Token(); err != nil {
		return r.parseError(err)
	}
	if tok, err := r.dec.Token(); err != io.EOF {
		if err != nil {
			return r.parseError(err)
		}
		return r.parseError(fmt.Errorf("trailing data after top-level array: %v", tok))
	}
	return nil
}

func (r *Reader) parseError(err error) error {
	// The decoder's input offset points just past the bytes it consumed,
	// which is close enough to locate the damage in a gigabyte-scale file.
	return &ParseError{Path: r.path, Offset: r.dec.InputOffset(), Err: err}
}
