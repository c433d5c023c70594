// Package rw implements the little-endian section codec shared by the
// mesh-tile, cache-layer and tile-state payload formats. Sections are
// padded to 4-byte alignment by the callers via PadZero/Skip.
package rw

import (
	"bytes"
	"encoding/binary"
	"math"
)

type ReaderWriter struct {
	order binary.ByteOrder
	buf   bytes.Buffer
	tmp   [8]byte
}

func NewWriter() *ReaderWriter {
	return &ReaderWriter{order: binary.LittleEndian}
}

func NewReader(data []byte) *ReaderWriter {
	r := &ReaderWriter{order: binary.LittleEndian}
	r.buf.Write(data)
	return r
}

// Bytes returns everything written so far.
func (w *ReaderWriter) Bytes() []byte { return w.buf.Bytes() }

// Remaining returns the number of unread bytes.
func (w *ReaderWriter) Remaining() int { return w.buf.Len() }

func (w *ReaderWriter) WriteUint8(v uint8) {
	w.buf.WriteByte(v)
}

func (w *ReaderWriter) WriteUint8s(v []uint8) {
	w.buf.Write(v)
}

func (w *ReaderWriter) WriteUint16(v uint16) {
	w.order.PutUint16(w.tmp[:2], v)
	w.buf.Write(w.tmp[:2])
}

func (w *ReaderWriter) WriteUint16s(v []uint16) {
	for _, x := range v {
		w.WriteUint16(x)
	}
}

func (w *ReaderWriter) WriteUint32(v uint32) {
	w.order.PutUint32(w.tmp[:4], v)
	w.buf.Write(w.tmp[:4])
}

func (w *ReaderWriter) WriteInt32(v int32) {
	w.WriteUint32(uint32(v))
}

func (w *ReaderWriter) WriteFloat32(v float32) {
	w.WriteUint32(math.Float32bits(v))
}

func (w *ReaderWriter) WriteFloat32s(v []float32) {
	for _, x := range v {
		w.WriteFloat32(x)
	}
}

// PadZero appends n zero bytes, aligning the next section.
func (w *ReaderWriter) PadZero(n int) {
	for i := 0; i < n; i++ {
		w.buf.WriteByte(0)
	}
}

func (w *ReaderWriter) ReadUint8() uint8 {
	b, err := w.buf.ReadByte()
	if err != nil {
		panic(err)
	}
	return b
}

func (w *ReaderWriter) ReadUint8s(v []uint8) {
	for i := range v {
		v[i] = w.ReadUint8()
	}
}

func (w *ReaderWriter) ReadUint16() uint16 {
	w.read(2)
	return w.order.Uint16(w.tmp[:2])
}

func (w *ReaderWriter) ReadUint16s(v []uint16) {
	for i := range v {
		v[i] = w.ReadUint16()
	}
}

func (w *ReaderWriter) ReadUint32() uint32 {
	w.read(4)
	return w.order.Uint32(w.tmp[:4])
}

func (w *ReaderWriter) ReadInt32() int32 {
	return int32(w.ReadUint32())
}

func (w *ReaderWriter) ReadFloat32() float32 {
	return math.Float32frombits(w.ReadUint32())
}

func (w *ReaderWriter) ReadFloat32s(v []float32) {
	for i := range v {
		v[i] = w.ReadFloat32()
	}
}

// Skip discards n bytes of padding.
func (w *ReaderWriter) Skip(n int) {
	for i := 0; i < n; i++ {
		w.ReadUint8()
	}
}

func (w *ReaderWriter) read(n int) {
	if _, err := w.buf.Read(w.tmp[:n]); err != nil {
		panic(err)
	}
}
