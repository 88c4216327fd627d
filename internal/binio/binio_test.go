package binio

import (
	"bytes"
	"errors"
	"io"
	"math"
	"testing"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.WriteFloats(1.5, -2, math.Inf(1), math.SmallestNonzeroFloat64)
	n, err := w.Flush()
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if n != 32 || buf.Len() != 32 {
		t.Fatalf("wrote %d bytes (buffer %d), want 32", n, buf.Len())
	}

	r := NewReader(&buf)
	got := make([]float64, 4)
	if err := r.ReadFloats(got); err != nil {
		t.Fatalf("ReadFloats: %v", err)
	}
	want := []float64{1.5, -2, math.Inf(1), math.SmallestNonzeroFloat64}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("value %d = %g, want %g", i, got[i], want[i])
		}
	}
	if r.BytesRead() != 32 {
		t.Errorf("BytesRead = %d, want 32", r.BytesRead())
	}

	if err := r.ReadFloats(got[:1]); !errors.Is(err, io.EOF) {
		t.Errorf("reading past end: got %v, want io.EOF", err)
	}
}

func TestLittleEndianLayout(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.WriteFloats(1)
	if _, err := w.Flush(); err != nil {
		t.Fatal(err)
	}

	want := []byte{0, 0, 0, 0, 0, 0, 0xf0, 0x3f}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("encoding of 1.0 = % x, want % x", buf.Bytes(), want)
	}
}

func TestReaderPartialRecord(t *testing.T) {
	r := NewReader(bytes.NewReader(make([]byte, 12)))
	err := r.ReadFloats(make([]float64, 2))
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("got %v, want io.ErrUnexpectedEOF", err)
	}
	if !IsTruncated(err) {
		t.Error("IsTruncated should report a partial record")
	}
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, errors.New("disk full") }

func TestWriterStickyError(t *testing.T) {
	w := NewWriter(failingWriter{})
	for i := 0; i < 1000; i++ {
		w.WriteFloats(float64(i))
	}
	if _, err := w.Flush(); err == nil {
		t.Error("expected write error")
	}
}
