// Package kernels provides the compute kernel catalog for memplan.
//
// Each opcode maps to a Kernel carrying dispatch metadata and a float32
// implementation. The metadata field the planner cares about is
// HasOutVariant: whether the operation can write its result into
// caller-supplied storage. Only outputs of such operations are eligible
// for static memory planning; everything else keeps its own allocation.
//
// Kernel implementations receive their output tensor from the caller. The
// runtime decides where that tensor's storage lives: a pre-assigned arena
// region for planned values, a fresh slice otherwise. Kernels themselves
// never allocate.
//
// Available operations:
//   - Elementwise: add, mul, relu, sigmoid, tanh
//   - Linear algebra: matmul
//   - Aggregations: sum
//   - Concat (allocating only: no out-buffer form is registered)
package kernels

import (
	"fmt"
)

// Kernel operation codes
const (
	OpNoop    = 0x00
	OpAdd     = 0x01
	OpMul     = 0x02
	OpReLU    = 0x03
	OpSigmoid = 0x04
	OpTanh    = 0x05
	OpMatMul  = 0x06
	OpSum     = 0x07
	OpConcat  = 0x08
)

// Tensor is the minimal view a kernel needs: flat float32 data plus
// per-axis extents.
type Tensor struct {
	Data    []float32
	Extents []int64
}

// KernelFn computes outputs from inputs, writing into out.Data in place.
type KernelFn func(inputs []Tensor, out Tensor) error

// Kernel describes one operation in the catalog.
type Kernel struct {
	Name          string
	Arity         int  // expected input count, -1 for variadic
	HasOutVariant bool // can write into caller-supplied storage
	Fn            KernelFn
}

// Catalog maps opcodes to kernels.
var Catalog = [256]Kernel{
	OpNoop:    {Name: "noop", Arity: 0, HasOutVariant: true, Fn: noop},
	OpAdd:     {Name: "add", Arity: 2, HasOutVariant: true, Fn: add},
	OpMul:     {Name: "mul", Arity: 2, HasOutVariant: true, Fn: mul},
	OpReLU:    {Name: "relu", Arity: 1, HasOutVariant: true, Fn: relu},
	OpSigmoid: {Name: "sigmoid", Arity: 1, HasOutVariant: true, Fn: sigmoid},
	OpTanh:    {Name: "tanh", Arity: 1, HasOutVariant: true, Fn: tanh},
	OpMatMul:  {Name: "matmul", Arity: 2, HasOutVariant: true, Fn: matMul},
	OpSum:     {Name: "sum", Arity: 1, HasOutVariant: true, Fn: sum},
	OpConcat:  {Name: "concat", Arity: -1, HasOutVariant: false, Fn: concat},
}

// Lookup returns the kernel for an opcode.
func Lookup(op uint8) (Kernel, bool) {
	k := Catalog[op]
	return k, k.Name != ""
}

// HasOutVariant reports whether the opcode's operation has an out-buffer
// form. This is the eligibility predicate the planner's collector uses.
func HasOutVariant(op uint8) bool {
	return Catalog[op].Name != "" && Catalog[op].HasOutVariant
}

// ByName returns the opcode for a kernel name, used by the DSL parser.
func ByName(name string) (uint8, bool) {
	for op, k := range Catalog {
		if k.Name == name {
			return uint8(op), true
		}
	}
	return 0, false
}

func checkElementwise(inputs []Tensor, out Tensor) error {
	for i, in := range inputs {
		if len(in.Data) != len(out.Data) {
			return fmt.Errorf("input %d has %d elements, output has %d", i, len(in.Data), len(out.Data))
		}
	}
	return nil
}

func noop(inputs []Tensor, out Tensor) error {
	return nil
}

func add(inputs []Tensor, out Tensor) error {
	if err := checkElementwise(inputs, out); err != nil {
		return err
	}
	a, b := inputs[0].Data, inputs[1].Data
	for i := range out.Data {
		out.Data[i] = a[i] + b[i]
	}
	return nil
}

func mul(inputs []Tensor, out Tensor) error {
	if err := checkElementwise(inputs, out); err != nil {
		return err
	}
	a, b := inputs[0].Data, inputs[1].Data
	for i := range out.Data {
		out.Data[i] = a[i] * b[i]
	}
	return nil
}

func relu(inputs []Tensor, out Tensor) error {
	if err := checkElementwise(inputs, out); err != nil {
		return err
	}
	for i, x := range inputs[0].Data {
		if x < 0 {
			x = 0
		}
		out.Data[i] = x
	}
	return nil
}

// sigmoid uses the fast rational approximation x / (1 + |x|).
func sigmoid(inputs []Tensor, out Tensor) error {
	if err := checkElementwise(inputs, out); err != nil {
		return err
	}
	for i, x := range inputs[0].Data {
		if x >= 0 {
			out.Data[i] = x / (1 + x)
		} else {
			out.Data[i] = x / (1 - x)
		}
	}
	return nil
}

// tanh uses a rational approximation accurate to ~1e-3 on [-3, 3].
func tanh(inputs []Tensor, out Tensor) error {
	if err := checkElementwise(inputs, out); err != nil {
		return err
	}
	for i, x := range inputs[0].Data {
		x2 := x * x
		out.Data[i] = x * (27 + x2) / (27 + 9*x2)
	}
	return nil
}

// matMul computes a row-major [m,k] x [k,n] product into out [m,n].
func matMul(inputs []Tensor, out Tensor) error {
	a, b := inputs[0], inputs[1]
	if len(a.Extents) != 2 || len(b.Extents) != 2 {
		return fmt.Errorf("matmul requires rank-2 inputs")
	}
	m, k := a.Extents[0], a.Extents[1]
	k2, n := b.Extents[0], b.Extents[1]
	if k != k2 {
		return fmt.Errorf("matmul inner dimensions disagree: %d vs %d", k, k2)
	}
	if int64(len(out.Data)) != m*n {
		return fmt.Errorf("matmul output has %d elements, want %d", len(out.Data), m*n)
	}
	for i := int64(0); i < m; i++ {
		for j := int64(0); j < n; j++ {
			var acc float32
			for p := int64(0); p < k; p++ {
				acc += a.Data[i*k+p] * b.Data[p*n+j]
			}
			out.Data[i*n+j] = acc
		}
	}
	return nil
}

// sum reduces the input to a single element.
func sum(inputs []Tensor, out Tensor) error {
	if len(out.Data) != 1 {
		return fmt.Errorf("sum output must have 1 element, got %d", len(out.Data))
	}
	var acc float32
	for _, x := range inputs[0].Data {
		acc += x
	}
	out.Data[0] = acc
	return nil
}

// concat joins inputs along axis 0. Registered without an out-buffer form:
// its output always keeps an independent allocation.
func concat(inputs []Tensor, out Tensor) error {
	off := 0
	for i, in := range inputs {
		if off+len(in.Data) > len(out.Data) {
			return fmt.Errorf("concat input %d overflows output", i)
		}
		copy(out.Data[off:], in.Data)
		off += len(in.Data)
	}
	if off != len(out.Data) {
		return fmt.Errorf("concat filled %d of %d elements", off, len(out.Data))
	}
	return nil
}
