// Package binio reads and writes the little-endian, fixed-width binary framing
// shared by car, sweep and optimization files.
package binio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/san-kum/vvase/internal/analysis"
)

// MaxStringLength bounds length-prefixed strings read from disk.
const MaxStringLength = 1 << 20

// Writer encodes values in little-endian order. The first error is kept and
// all later writes are skipped.
type Writer struct {
	w   *bufio.Writer
	err error
	n   int64
	buf [8]byte
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

func (w *Writer) write(b []byte) {
	if w.err != nil {
		return
	}
	var n int
	n, w.err = w.w.Write(b)
	w.n += int64(n)
}

// Header writes the 4-byte magic followed by the int32 version.
func (w *Writer) Header(magic [4]byte, version int32) {
	w.write(magic[:])
	w.Int32(version)
}

func (w *Writer) Int32(v int32) {
	binary.LittleEndian.PutUint32(w.buf[:4], uint32(v))
	w.write(w.buf[:4])
}

func (w *Writer) Uint32(v uint32) {
	binary.LittleEndian.PutUint32(w.buf[:4], v)
	w.write(w.buf[:4])
}

func (w *Writer) Int64(v int64) {
	binary.LittleEndian.PutUint64(w.buf[:], uint64(v))
	w.write(w.buf[:])
}

func (w *Writer) Float64(v float64) {
	binary.LittleEndian.PutUint64(w.buf[:], math.Float64bits(v))
	w.write(w.buf[:])
}

func (w *Writer) Bool(v bool) {
	if v {
		w.write([]byte{1})
		return
	}
	w.write([]byte{0})
}

// Str writes a uint32 byte length followed by the bytes.
func (w *Writer) Str(s string) {
	w.Uint32(uint32(len(s)))
	w.write([]byte(s))
}

func (w *Writer) Vector(v r3.Vector) {
	w.Float64(v.X)
	w.Float64(v.Y)
	w.Float64(v.Z)
}

// Flush writes buffered data and returns the first error seen.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	return w.w.Flush()
}

func (w *Writer) Err() error {
	return w.err
}

// Written is the number of bytes accepted so far, flushed or not.
func (w *Writer) Written() int64 {
	return w.n
}

// Reader decodes values written by Writer. Short reads are reported as
// analysis.ErrFileFormat.
type Reader struct {
	r   io.Reader
	err error
	buf [8]byte
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

func (r *Reader) read(n int) []byte {
	if r.err != nil {
		return nil
	}
	if _, err := io.ReadFull(r.r, r.buf[:n]); err != nil {
		r.fail(errors.Wrap(err, "truncated file"))
		return nil
	}
	return r.buf[:n]
}

func (r *Reader) fail(err error) {
	if r.err == nil {
		r.err = fmt.Errorf("%v: %w", err, analysis.ErrFileFormat)
	}
}

// Header reads and checks the magic, returning the file version. Versions
// outside [0, current] fail.
func (r *Reader) Header(magic [4]byte, current int32) int32 {
	b := r.read(4)
	if b == nil {
		return 0
	}
	if [4]byte{b[0], b[1], b[2], b[3]} != magic {
		r.fail(errors.Errorf("bad magic %q, want %q", b, magic[:]))
		return 0
	}
	version := r.Int32()
	if r.err == nil && (version < 0 || version > current) {
		r.fail(errors.Errorf("unsupported version %d (newest known is %d)", version, current))
	}
	return version
}

func (r *Reader) Int32() int32 {
	b := r.read(4)
	if b == nil {
		return 0
	}
	return int32(binary.LittleEndian.Uint32(b))
}

func (r *Reader) Uint32() uint32 {
	b := r.read(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *Reader) Int64() int64 {
	b := r.read(8)
	if b == nil {
		return 0
	}
	return int64(binary.LittleEndian.Uint64(b))
}

func (r *Reader) Float64() float64 {
	b := r.read(8)
	if b == nil {
		return 0
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}

func (r *Reader) Bool() bool {
	b := r.read(1)
	return b != nil && b[0] != 0
}

func (r *Reader) Str() string {
	n := r.Uint32()
	if r.err != nil {
		return ""
	}
	if n > MaxStringLength {
		r.fail(errors.Errorf("string length %d exceeds limit", n))
		return ""
	}
	s := make([]byte, n)
	if _, err := io.ReadFull(r.r, s); err != nil {
		r.fail(errors.Wrap(err, "truncated string"))
		return ""
	}
	return string(s)
}

func (r *Reader) Vector() r3.Vector {
	return r3.Vector{X: r.Float64(), Y: r.Float64(), Z: r.Float64()}
}

// Enum reads an int32 and checks it lies in [0, n).
func (r *Reader) Enum(n int) int {
	v := r.Int32()
	if r.err == nil && (v < 0 || int(v) >= n) {
		r.fail(errors.Errorf("enum value %d out of range [0,%d)", v, n))
		return 0
	}
	return int(v)
}

// Count reads an int32 element count, rejecting negative or absurd values.
func (r *Reader) Count(limit int) int {
	v := r.Int32()
	if r.err == nil && (v < 0 || int(v) > limit) {
		r.fail(errors.Errorf("element count %d out of range", v))
		return 0
	}
	return int(v)
}

func (r *Reader) Err() error {
	return r.err
}
