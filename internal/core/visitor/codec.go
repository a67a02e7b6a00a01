package visitor

import (
	"encoding/binary"
	"math"
)

// writer builds the binary form of a region tree. All multi-byte writes are
// little-endian.
type writer struct {
	buf []byte
}

func newWriter() *writer {
	return &writer{buf: make([]byte, 0, 256)}
}

// writeC writes 1 byte.
func (w *writer) writeC(v byte) {
	w.buf = append(w.buf, v)
}

// writeH writes 2 bytes little-endian.
func (w *writer) writeH(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

// writeD writes 4 bytes little-endian.
func (w *writer) writeD(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

// writeQ writes 8 bytes little-endian.
func (w *writer) writeQ(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

// writeS writes a length-prefixed UTF-8 string (u16 length).
func (w *writer) writeS(s string) {
	w.writeH(uint16(len(s)))
	w.buf = append(w.buf, s...)
}

// writeBytes writes a length-prefixed byte block (u32 length).
func (w *writer) writeBytes(b []byte) {
	w.writeD(uint32(len(b)))
	w.buf = append(w.buf, b...)
}

func (w *writer) bytes() []byte {
	return w.buf
}

// reader reads fields written by writer. A short read yields zero values and
// latches ErrCorrupt; callers check err once after a batch of reads.
type reader struct {
	data []byte
	off  int
	err  error
}

func newReader(data []byte) *reader {
	return &reader{data: data}
}

func (r *reader) fail() {
	if r.err == nil {
		r.err = ErrCorrupt
	}
	r.off = len(r.data)
}

func (r *reader) readC() byte {
	if r.off >= len(r.data) {
		r.fail()
		return 0
	}
	v := r.data[r.off]
	r.off++
	return v
}

func (r *reader) readH() uint16 {
	if r.off+2 > len(r.data) {
		r.fail()
		return 0
	}
	v := binary.LittleEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v
}

func (r *reader) readD() uint32 {
	if r.off+4 > len(r.data) {
		r.fail()
		return 0
	}
	v := binary.LittleEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v
}

func (r *reader) readS() string {
	n := int(r.readH())
	if r.off+n > len(r.data) {
		r.fail()
		return ""
	}
	s := string(r.data[r.off : r.off+n])
	r.off += n
	return s
}

func (r *reader) readBytes() []byte {
	n := int(r.readD())
	if n < 0 || r.off+n > len(r.data) {
		r.fail()
		return nil
	}
	b := make([]byte, n)
	copy(b, r.data[r.off:r.off+n])
	r.off += n
	return b
}

// remaining returns the number of unread bytes.
func (r *reader) remaining() int {
	return len(r.data) - r.off
}

// Scalar encodings shared by the field accessors.

func putU32(v uint32) []byte { return binary.LittleEndian.AppendUint32(nil, v) }
func putU64(v uint64) []byte { return binary.LittleEndian.AppendUint64(nil, v) }
func putF32(v float32) []byte {
	return binary.LittleEndian.AppendUint32(nil, math.Float32bits(v))
}
func putF64(v float64) []byte {
	return binary.LittleEndian.AppendUint64(nil, math.Float64bits(v))
}
