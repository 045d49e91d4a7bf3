package model

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"
)

// Binary artifact header constants.
const (
	graphMagic   = uint32(0x4D504C4E) // "NLPM" little endian, "MPLN" on disk
	graphVersion = uint16(1)
)

// Serialize writes the Graph to a byte slice using the memplan binary
// format: a fixed header followed by values, ops (with any bindings), and
// the graph input/output lists. All integers are little endian.
func (g *Graph) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	w := &graphWriter{w: &buf}

	w.u32(graphMagic)
	w.u16(graphVersion)
	w.u8(uint8(g.Device))

	if g.Arena != nil {
		w.u8(1)
		w.u64(g.Arena.TotalSize)
		w.u8(uint8(g.Arena.Device))
	} else {
		w.u8(0)
	}

	w.u32(uint32(len(g.Values)))
	w.u32(uint32(len(g.Ops)))
	w.u32(uint32(len(g.Inputs)))
	w.u32(uint32(len(g.Outputs)))

	for i := range g.Values {
		w.value(&g.Values[i])
	}
	for i := range g.Ops {
		w.op(&g.Ops[i])
	}
	w.valueIDs(g.Inputs)
	w.valueIDs(g.Outputs)

	if w.err != nil {
		return nil, fmt.Errorf("serialize graph: %w", w.err)
	}
	return buf.Bytes(), nil
}

// Deserialize reads a Graph from memplan binary format.
func Deserialize(data []byte) (*Graph, error) {
	r := &graphReader{r: bytes.NewReader(data)}

	if magic := r.u32(); magic != graphMagic {
		return nil, fmt.Errorf("invalid magic number: %x", magic)
	}
	if version := r.u16(); version != graphVersion {
		return nil, fmt.Errorf("unsupported version: %d", version)
	}

	g := &Graph{Device: Device(r.u8())}

	if r.u8() == 1 {
		g.Arena = &ArenaDirective{TotalSize: r.u64(), Device: Device(r.u8())}
	}

	valueCount := r.u32()
	opCount := r.u32()
	inputCount := r.u32()
	outputCount := r.u32()
	if r.err != nil {
		return nil, fmt.Errorf("deserialize graph header: %w", r.err)
	}

	g.Values = make([]Value, valueCount)
	for i := range g.Values {
		r.value(&g.Values[i])
		g.Values[i].ID = ValueID(i)
	}
	g.Ops = make([]Op, opCount)
	for i := range g.Ops {
		r.op(&g.Ops[i])
		g.Ops[i].ID = OpID(i)
	}
	g.Inputs = r.valueIDs(int(inputCount))
	g.Outputs = r.valueIDs(int(outputCount))

	if r.err != nil {
		return nil, fmt.Errorf("deserialize graph: %w", r.err)
	}
	return g, nil
}

// graphWriter accumulates the first write error so call sites stay flat.
type graphWriter struct {
	w   io.Writer
	err error
}

func (w *graphWriter) emit(v any) {
	if w.err == nil {
		w.err = binary.Write(w.w, binary.LittleEndian, v)
	}
}

func (w *graphWriter) u8(v uint8)   { w.emit(v) }
func (w *graphWriter) u16(v uint16) { w.emit(v) }
func (w *graphWriter) u32(v uint32) { w.emit(v) }
func (w *graphWriter) u64(v uint64) { w.emit(v) }

func (w *graphWriter) str(s string) {
	w.u16(uint16(len(s)))
	if w.err == nil {
		_, w.err = w.w.Write([]byte(s))
	}
}

func (w *graphWriter) i64s(vals []int64) {
	w.u8(uint8(len(vals)))
	for _, v := range vals {
		w.emit(v)
	}
}

func (w *graphWriter) valueIDs(ids []ValueID) {
	w.u16(uint16(len(ids)))
	for _, id := range ids {
		w.u32(uint32(id))
	}
}

func (w *graphWriter) value(v *Value) {
	w.str(v.Name)
	w.u8(uint8(v.DType))
	w.u32(uint32(v.Producer))
	w.i64s(v.Extents)
	w.i64s(v.Strides)
}

func (w *graphWriter) op(o *Op) {
	w.u8(o.Kernel)
	w.valueIDs(o.Inputs)
	w.valueIDs(o.Outputs)
	w.u16(uint16(len(o.Bindings)))
	for i := range o.Bindings {
		b := &o.Bindings[i]
		w.u32(uint32(b.Value))
		w.u64(b.Offset)
		w.u64(b.Size)
		w.i64s(b.Extents)
		w.i64s(b.Strides)
		w.u8(uint8(b.Device))
		w.u8(uint8(b.DType))
	}
}

// graphReader mirrors graphWriter for decoding.
type graphReader struct {
	r   *bytes.Reader
	err error
}

func (r *graphReader) read(v any) {
	if r.err == nil {
		r.err = binary.Read(r.r, binary.LittleEndian, v)
	}
}

func (r *graphReader) u8() uint8   { var v uint8; r.read(&v); return v }
func (r *graphReader) u16() uint16 { var v uint16; r.read(&v); return v }
func (r *graphReader) u32() uint32 { var v uint32; r.read(&v); return v }
func (r *graphReader) u64() uint64 { var v uint64; r.read(&v); return v }

func (r *graphReader) str() string {
	n := r.u16()
	if r.err != nil || n == 0 {
		return ""
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r.r, b); err != nil {
		r.err = err
		return ""
	}
	return string(b)
}

func (r *graphReader) i64s() []int64 {
	n := r.u8()
	if r.err != nil || n == 0 {
		return nil
	}
	vals := make([]int64, n)
	for i := range vals {
		r.read(&vals[i])
	}
	return vals
}

func (r *graphReader) valueIDs(n int) []ValueID {
	if n < 0 {
		n = int(r.u16())
	}
	if r.err != nil || n == 0 {
		return nil
	}
	ids := make([]ValueID, n)
	for i := range ids {
		ids[i] = ValueID(r.u32())
	}
	return ids
}

func (r *graphReader) value(v *Value) {
	v.Name = r.str()
	v.DType = DType(r.u8())
	v.Producer = OpID(r.u32())
	v.Extents = r.i64s()
	v.Strides = r.i64s()
}

func (r *graphReader) op(o *Op) {
	o.Kernel = r.u8()
	o.Inputs = r.valueIDs(-1)
	o.Outputs = r.valueIDs(-1)
	n := int(r.u16())
	if r.err != nil || n == 0 {
		return
	}
	o.Bindings = make([]Binding, n)
	for i := range o.Bindings {
		b := &o.Bindings[i]
		b.Value = ValueID(r.u32())
		b.Offset = r.u64()
		b.Size = r.u64()
		b.Extents = r.i64s()
		b.Strides = r.i64s()
		b.Device = Device(r.u8())
		b.DType = DType(r.u8())
	}
}

// SerializeGob writes the Graph using gob encoding (fallback).
func (g *Graph) SerializeGob() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(g); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DeserializeGob reads a Graph from gob-encoded data (fallback).
func DeserializeGob(data []byte) (*Graph, error) {
	var g Graph
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&g); err != nil {
		return nil, err
	}
	return &g, nil
}
