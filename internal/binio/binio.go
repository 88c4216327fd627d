// Package binio reads and writes the raw little-endian float64 records used
// by sample and signal files.
package binio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"math"
)

// ByteOrder of every record on disk.
var ByteOrder = binary.LittleEndian

// Reader decodes float64 records from an io.Reader without read-ahead.
type Reader struct {
	r   io.Reader
	buf []byte
	n   int64
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// ReadFloats fills dst. It returns io.EOF if the stream ended exactly before
// the record and io.ErrUnexpectedEOF if it ended inside it.
func (r *Reader) ReadFloats(dst []float64) error {
	size := 8 * len(dst)
	if cap(r.buf) < size {
		r.buf = make([]byte, size)
	}
	b := r.buf[:size]

	n, err := io.ReadFull(r.r, b)
	r.n += int64(n)
	if err != nil {
		return err
	}
	for i := range dst {
		dst[i] = math.Float64frombits(ByteOrder.Uint64(b[8*i:]))
	}
	return nil
}

// BytesRead reports the number of bytes consumed so far.
func (r *Reader) BytesRead() int64 { return r.n }

// Writer encodes float64 records. Errors are sticky and reported by Flush.
type Writer struct {
	w   *bufio.Writer
	n   int64
	err error
	buf [8]byte
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

func (w *Writer) WriteFloats(vals ...float64) {
	if w.err != nil {
		return
	}
	for _, v := range vals {
		ByteOrder.PutUint64(w.buf[:], math.Float64bits(v))
		n, err := w.w.Write(w.buf[:])
		w.n += int64(n)
		if err != nil {
			w.err = err
			return
		}
	}
}

// Flush writes buffered data and returns the total bytes written.
func (w *Writer) Flush() (int64, error) {
	if w.err != nil {
		return w.n, w.err
	}
	return w.n, w.w.Flush()
}

// IsTruncated reports whether err means the input ended early.
func IsTruncated(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
