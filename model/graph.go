// Package model defines the dataflow graph representation consumed by the
// memplan planner and runtime.
//
// This package provides the core data structures for representing a tensor
// program as an ordered list of operations over statically shaped values.
// The graph representation is shared by the compiler (which builds it from
// a text specification), the planner (which assigns arena regions to
// values), and the runtime (which executes the rewritten program).
//
// Key data structures:
//   - Value: a produced tensor with element type, extents, and strides
//   - Op: a compute step with kernel opcode, input and output values
//   - Binding: an out-buffer directive placing an output inside the arena
//   - Graph: the complete program with ops in execution order
//
// Values and ops are addressed by small integer handles (ValueID, OpID)
// assigned once at construction. Handles index directly into the graph's
// backing slices, so they are cheap map keys and survive serialization
// unchanged.
//
// The graph is mutable while the compiler and planner run their passes,
// and immutable afterwards: the runtime never modifies it.
package model

import (
	"fmt"
)

// ValueID is a dense handle for a value in a Graph.
type ValueID uint32

// OpID is a dense handle for an operation in a Graph.
type OpID uint32

// NoOp marks a value with no producing operation (graph inputs, weights).
const NoOp = OpID(0xFFFFFFFF)

// DType enumerates the element types a value can carry.
type DType uint8

// Supported element types.
const (
	DTypeUnknown DType = iota
	DTypeF32
	DTypeF64
	DTypeI32
	DTypeI64
	DTypeU8
)

// Width returns the element size in bytes, or 0 for DTypeUnknown.
func (d DType) Width() uint64 {
	switch d {
	case DTypeF32, DTypeI32:
		return 4
	case DTypeF64, DTypeI64:
		return 8
	case DTypeU8:
		return 1
	}
	return 0
}

func (d DType) String() string {
	switch d {
	case DTypeF32:
		return "f32"
	case DTypeF64:
		return "f64"
	case DTypeI32:
		return "i32"
	case DTypeI64:
		return "i64"
	case DTypeU8:
		return "u8"
	}
	return "unknown"
}

// ParseDType maps a type name from the DSL to a DType.
func ParseDType(s string) DType {
	switch s {
	case "f32":
		return DTypeF32
	case "f64":
		return DTypeF64
	case "i32":
		return DTypeI32
	case "i64":
		return DTypeI64
	case "u8":
		return DTypeU8
	}
	return DTypeUnknown
}

// Device enumerates execution targets for the arena and kernels.
type Device uint8

// Supported devices. Only the CPU backend ships kernels today; the CUDA
// tag exists so compiled artifacts carry the intended target.
const (
	DeviceCPU Device = iota
	DeviceCUDA
)

func (d Device) String() string {
	switch d {
	case DeviceCPU:
		return "cpu"
	case DeviceCUDA:
		return "cuda"
	}
	return fmt.Sprintf("device(%d)", uint8(d))
}

// ParseDevice maps a device name to a Device, defaulting to CPU.
func ParseDevice(s string) Device {
	if s == "cuda" {
		return DeviceCUDA
	}
	return DeviceCPU
}

// Value describes a tensor produced or consumed by the program.
type Value struct {
	ID       ValueID
	Name     string
	DType    DType
	Extents  []int64 // per-axis element counts; nil or [0] means unknown
	Strides  []int64 // per-axis element strides; nil means row-major
	Producer OpID    // NoOp for graph inputs and weights
}

// NumElems returns the total element count, or false when the extents are
// degenerate (absent, empty, or leading zero placeholder).
func (v *Value) NumElems() (int64, bool) {
	if len(v.Extents) == 0 || v.Extents[0] == 0 {
		return 0, false
	}
	n := int64(1)
	for _, e := range v.Extents {
		if e <= 0 {
			return 0, false
		}
		n *= e
	}
	return n, true
}

// StorageSize returns the byte size of the value's storage, or false when
// the element type or extents are not concrete.
func (v *Value) StorageSize() (uint64, bool) {
	w := v.DType.Width()
	if w == 0 {
		return 0, false
	}
	n, ok := v.NumElems()
	if !ok {
		return 0, false
	}
	return uint64(n) * w, true
}

// ConcreteStrides returns the value's strides, falling back to row-major
// strides derived from the extents when none were recorded.
func (v *Value) ConcreteStrides() []int64 {
	if len(v.Strides) > 0 && v.Strides[0] != 0 {
		return v.Strides
	}
	return RowMajorStrides(v.Extents)
}

// RowMajorStrides computes default contiguous strides for extents.
func RowMajorStrides(extents []int64) []int64 {
	if len(extents) == 0 {
		return nil
	}
	strides := make([]int64, len(extents))
	acc := int64(1)
	for i := len(extents) - 1; i >= 0; i-- {
		strides[i] = acc
		acc *= extents[i]
	}
	return strides
}

// Binding is an out-buffer directive: it places one output value at a
// fixed region of the arena and carries everything the runtime needs to
// materialize the tensor there.
type Binding struct {
	Value   ValueID
	Offset  uint64
	Size    uint64
	Extents []int64
	Strides []int64
	Device  Device
	DType   DType
}

// ArenaDirective is the single allocation the rewritten program performs:
// one contiguous block of TotalSize bytes on Device.
type ArenaDirective struct {
	TotalSize uint64
	Device    Device
}

// Op is one compute step. Ops execute in Graph.Ops order.
//
// An op with a non-empty Bindings slice runs as its out-buffer variant:
// each listed output writes into its pre-assigned arena region instead of
// allocating. An op with no bindings runs in the allocating form.
type Op struct {
	ID       OpID
	Kernel   uint8
	Inputs   []ValueID
	Outputs  []ValueID
	Bindings []Binding
}

// OutOfPlace reports whether the op was rewritten to its out-buffer form.
func (o *Op) OutOfPlace() bool {
	return len(o.Bindings) > 0
}

// BindingFor returns the binding for one of the op's outputs, if any.
func (o *Op) BindingFor(v ValueID) (Binding, bool) {
	for _, b := range o.Bindings {
		if b.Value == v {
			return b, true
		}
	}
	return Binding{}, false
}

// Graph is the complete program: values, ops in execution order, and the
// arena directive once planning has run.
type Graph struct {
	Values  []Value
	Ops     []Op
	Inputs  []ValueID
	Outputs []ValueID
	Device  Device
	Arena   *ArenaDirective // nil until a plan is applied
}

// NewGraph returns an empty graph targeting the given device.
func NewGraph(device Device) *Graph {
	return &Graph{Device: device}
}

// AddValue appends a value and returns its handle. The producer is set to
// NoOp; AddOp records the real producer when the value is an op output.
func (g *Graph) AddValue(v Value) ValueID {
	id := ValueID(len(g.Values))
	v.ID = id
	v.Producer = NoOp
	g.Values = append(g.Values, v)
	return id
}

// AddOp appends an op at the end of the program and records it as the
// producer of its outputs. Returns the op's handle.
func (g *Graph) AddOp(kernel uint8, inputs, outputs []ValueID) OpID {
	id := OpID(len(g.Ops))
	g.Ops = append(g.Ops, Op{ID: id, Kernel: kernel, Inputs: inputs, Outputs: outputs})
	for _, out := range outputs {
		if int(out) < len(g.Values) {
			g.Values[out].Producer = id
		}
	}
	return id
}

// Value returns the value with the given handle.
func (g *Graph) Value(id ValueID) *Value {
	return &g.Values[id]
}

// Op returns the op with the given handle.
func (g *Graph) Op(id OpID) *Op {
	return &g.Ops[id]
}

// OpCount returns the number of ops in the graph.
func (g *Graph) OpCount() int {
	return len(g.Ops)
}

// ValueCount returns the number of values in the graph.
func (g *Graph) ValueCount() int {
	return len(g.Values)
}

// Validate checks graph consistency: handle bounds, producer agreement,
// def-before-use over the program order, and binding bounds once an arena
// directive is present.
func (g *Graph) Validate() error {
	if len(g.Ops) == 0 {
		return fmt.Errorf("graph has no ops")
	}

	defined := make([]bool, len(g.Values))
	for _, in := range g.Inputs {
		if int(in) >= len(g.Values) {
			return fmt.Errorf("graph input %d out of range", in)
		}
		defined[in] = true
	}
	for i := range g.Values {
		if g.Values[i].Producer == NoOp {
			defined[i] = true
		}
	}

	for i := range g.Ops {
		op := &g.Ops[i]
		for _, in := range op.Inputs {
			if int(in) >= len(g.Values) {
				return fmt.Errorf("op %d input %d out of range", op.ID, in)
			}
			if !defined[in] {
				return fmt.Errorf("op %d uses value %d before it is produced", op.ID, in)
			}
		}
		for _, out := range op.Outputs {
			if int(out) >= len(g.Values) {
				return fmt.Errorf("op %d output %d out of range", op.ID, out)
			}
			if g.Values[out].Producer != op.ID {
				return fmt.Errorf("value %d producer mismatch: has %d, produced by %d",
					out, g.Values[out].Producer, op.ID)
			}
			defined[out] = true
		}
	}

	for _, out := range g.Outputs {
		if int(out) >= len(g.Values) {
			return fmt.Errorf("graph output %d out of range", out)
		}
		if !defined[out] {
			return fmt.Errorf("graph output %d is never produced", out)
		}
	}

	if g.Arena != nil {
		for i := range g.Ops {
			for _, b := range g.Ops[i].Bindings {
				if b.Offset+b.Size > g.Arena.TotalSize {
					return fmt.Errorf("binding for value %d exceeds arena: offset %d size %d total %d",
						b.Value, b.Offset, b.Size, g.Arena.TotalSize)
				}
			}
		}
	}

	return nil
}

// SortOps reorders ops into a dependency-respecting execution order using
// Kahn's algorithm over value producer edges. Op handles are reassigned to
// stay dense; value producers are remapped to match. Returns an error when
// the dependencies contain a cycle.
func (g *Graph) SortOps() error {
	n := len(g.Ops)
	adj := make([][]OpID, n)
	inDegree := make([]int, n)

	for i := range g.Ops {
		seen := make(map[OpID]bool)
		for _, in := range g.Ops[i].Inputs {
			p := g.Values[in].Producer
			if p == NoOp || p == OpID(i) || seen[p] {
				continue
			}
			seen[p] = true
			adj[p] = append(adj[p], OpID(i))
			inDegree[i]++
		}
	}

	queue := make([]OpID, 0, n)
	for i := 0; i < n; i++ {
		if inDegree[i] == 0 {
			queue = append(queue, OpID(i))
		}
	}

	order := make([]OpID, 0, n)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		order = append(order, cur)
		for _, next := range adj[cur] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if len(order) != n {
		return fmt.Errorf("cycle detected in op dependencies")
	}

	remap := make([]OpID, n)
	sorted := make([]Op, n)
	for newID, oldID := range order {
		remap[oldID] = OpID(newID)
		sorted[newID] = g.Ops[oldID]
		sorted[newID].ID = OpID(newID)
	}
	g.Ops = sorted

	for i := range g.Values {
		if p := g.Values[i].Producer; p != NoOp {
			g.Values[i].Producer = remap[p]
		}
	}
	return nil
}
