package kernels

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, op uint8, inputs []Tensor, out Tensor) {
	t.Helper()
	k, ok := Lookup(op)
	require.True(t, ok)
	require.NoError(t, k.Fn(inputs, out))
}

func TestLookup(t *testing.T) {
	t.Parallel()

	k, ok := Lookup(OpAdd)
	require.True(t, ok)
	assert.Equal(t, "add", k.Name)
	assert.Equal(t, 2, k.Arity)

	_, ok = Lookup(0xFE)
	assert.False(t, ok)
}

func TestByName(t *testing.T) {
	t.Parallel()

	op, ok := ByName("matmul")
	require.True(t, ok)
	assert.Equal(t, uint8(OpMatMul), op)

	_, ok = ByName("softmax")
	assert.False(t, ok)
}

func TestHasOutVariant(t *testing.T) {
	t.Parallel()

	assert.True(t, HasOutVariant(OpAdd))
	assert.True(t, HasOutVariant(OpMatMul))
	assert.False(t, HasOutVariant(OpConcat), "concat only has the allocating form")
	assert.False(t, HasOutVariant(0xFE), "unregistered opcodes are never eligible")
}

func TestElementwise(t *testing.T) {
	t.Parallel()

	a := Tensor{Data: []float32{1, -2, 3, 0}}
	b := Tensor{Data: []float32{4, 5, -6, 2}}

	out := Tensor{Data: make([]float32, 4)}
	run(t, OpAdd, []Tensor{a, b}, out)
	assert.Equal(t, []float32{5, 3, -3, 2}, out.Data)

	run(t, OpMul, []Tensor{a, b}, out)
	assert.Equal(t, []float32{4, -10, -18, 0}, out.Data)

	run(t, OpReLU, []Tensor{a}, out)
	assert.Equal(t, []float32{1, 0, 3, 0}, out.Data)
}

func TestSigmoidApproximation(t *testing.T) {
	t.Parallel()

	in := Tensor{Data: []float32{0, 1, -1, 3}}
	out := Tensor{Data: make([]float32, 4)}
	run(t, OpSigmoid, []Tensor{in}, out)

	// x / (1 + |x|): bounded in (-1, 1), odd symmetric around zero.
	assert.Equal(t, float32(0), out.Data[0])
	assert.InDelta(t, 0.5, out.Data[1], 1e-6)
	assert.InDelta(t, -0.5, out.Data[2], 1e-6)
	assert.InDelta(t, 0.75, out.Data[3], 1e-6)
}

func TestTanhApproximation(t *testing.T) {
	t.Parallel()

	in := Tensor{Data: []float32{0, 0.5, -0.5, 1}}
	out := Tensor{Data: make([]float32, 4)}
	run(t, OpTanh, []Tensor{in}, out)

	assert.Equal(t, float32(0), out.Data[0])
	assert.InDelta(t, 0.4621, out.Data[1], 2e-2)
	assert.InDelta(t, -0.4621, out.Data[2], 2e-2)
	assert.InDelta(t, 0.7616, out.Data[3], 2e-2)
}

func TestMatMul(t *testing.T) {
	t.Parallel()

	a := Tensor{Data: []float32{1, 2, 3, 4, 5, 6}, Extents: []int64{2, 3}}
	b := Tensor{Data: []float32{7, 8, 9, 10, 11, 12}, Extents: []int64{3, 2}}
	out := Tensor{Data: make([]float32, 4), Extents: []int64{2, 2}}

	run(t, OpMatMul, []Tensor{a, b}, out)
	assert.Equal(t, []float32{58, 64, 139, 154}, out.Data)
}

func TestMatMulShapeErrors(t *testing.T) {
	t.Parallel()

	k, _ := Lookup(OpMatMul)
	a := Tensor{Data: make([]float32, 6), Extents: []int64{2, 3}}
	bad := Tensor{Data: make([]float32, 6), Extents: []int64{2, 3}}
	out := Tensor{Data: make([]float32, 4), Extents: []int64{2, 2}}
	require.Error(t, k.Fn([]Tensor{a, bad}, out), "inner dimensions disagree")

	flat := Tensor{Data: make([]float32, 6), Extents: []int64{6}}
	require.Error(t, k.Fn([]Tensor{flat, flat}, out), "rank-2 required")
}

func TestSum(t *testing.T) {
	t.Parallel()

	in := Tensor{Data: []float32{1, 2, 3, 4}}
	out := Tensor{Data: make([]float32, 1)}
	run(t, OpSum, []Tensor{in}, out)
	assert.Equal(t, float32(10), out.Data[0])

	k, _ := Lookup(OpSum)
	require.Error(t, k.Fn([]Tensor{in}, Tensor{Data: make([]float32, 2)}))
}

func TestConcat(t *testing.T) {
	t.Parallel()

	a := Tensor{Data: []float32{1, 2}}
	b := Tensor{Data: []float32{3, 4, 5}}
	out := Tensor{Data: make([]float32, 5)}
	run(t, OpConcat, []Tensor{a, b}, out)
	assert.Equal(t, []float32{1, 2, 3, 4, 5}, out.Data)

	k, _ := Lookup(OpConcat)
	require.Error(t, k.Fn([]Tensor{a, b}, Tensor{Data: make([]float32, 4)}), "overflow")
	require.Error(t, k.Fn([]Tensor{a}, Tensor{Data: make([]float32, 5)}), "underfill")
}

func TestElementwiseSizeMismatch(t *testing.T) {
	t.Parallel()

	k, _ := Lookup(OpAdd)
	a := Tensor{Data: make([]float32, 4)}
	b := Tensor{Data: make([]float32, 3)}
	require.Error(t, k.Fn([]Tensor{a, b}, Tensor{Data: make([]float32, 4)}))
}
