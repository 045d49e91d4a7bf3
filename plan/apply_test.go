package plan

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbl8/memplan/kernels"
	"github.com/sbl8/memplan/model"
)

func applyFixture(t *testing.T) (*model.Graph, model.ValueID, model.ValueID) {
	t.Helper()
	g := model.NewGraph(model.DeviceCPU)
	x := g.AddValue(model.Value{Name: "x", DType: model.DTypeF32, Extents: []int64{2, 3}})
	g.Inputs = []model.ValueID{x}
	a := g.AddValue(model.Value{Name: "a", DType: model.DTypeF32, Extents: []int64{2, 3}})
	b := g.AddValue(model.Value{Name: "b", DType: model.DTypeF32, Extents: []int64{2, 3}})
	g.AddOp(kernels.OpReLU, []model.ValueID{x}, []model.ValueID{a})
	g.AddOp(kernels.OpTanh, []model.ValueID{a}, []model.ValueID{b})
	g.Outputs = []model.ValueID{b}
	return g, a, b
}

func TestApplyRewritesGraph(t *testing.T) {
	t.Parallel()

	g, a, b := applyFixture(t)
	regions := map[model.ValueID]Region{
		a: {Offset: 0, Size: 24},
		b: {Offset: 24, Size: 24},
	}

	require.NoError(t, Apply(g, regions, 48))

	require.NotNil(t, g.Arena)
	assert.Equal(t, uint64(48), g.Arena.TotalSize)
	assert.Equal(t, model.DeviceCPU, g.Arena.Device)

	opA := g.Op(g.Value(a).Producer)
	require.True(t, opA.OutOfPlace())
	bind, ok := opA.BindingFor(a)
	require.True(t, ok)
	assert.Equal(t, uint64(0), bind.Offset)
	assert.Equal(t, uint64(24), bind.Size)
	assert.Equal(t, []int64{2, 3}, bind.Extents)
	assert.Equal(t, []int64{3, 1}, bind.Strides, "row-major default strides")
	assert.Equal(t, model.DTypeF32, bind.DType)

	opB := g.Op(g.Value(b).Producer)
	bindB, ok := opB.BindingFor(b)
	require.True(t, ok)
	assert.Equal(t, uint64(24), bindB.Offset)

	require.NoError(t, g.Validate())
}

func TestApplyCorruptedPlanAborts(t *testing.T) {
	t.Parallel()

	g, a, b := applyFixture(t)
	regions := map[model.ValueID]Region{
		a: {Offset: 0, Size: 24},
		b: {Offset: 40, Size: 24}, // ends at 64, past the declared total
	}

	err := Apply(g, regions, 48)
	require.ErrorIs(t, err, ErrPlanInvariant)

	// No partial rewrite: the graph must be untouched.
	assert.Nil(t, g.Arena)
	for i := range g.Ops {
		assert.Empty(t, g.Ops[i].Bindings)
	}
}

func TestApplyEmptyPlanIsNoOp(t *testing.T) {
	t.Parallel()

	g, _, _ := applyFixture(t)
	require.NoError(t, Apply(g, nil, 0))
	assert.Nil(t, g.Arena)
}

func TestResultDumpOrdersByStart(t *testing.T) {
	t.Parallel()

	g, a, b := applyFixture(t)
	res := &Result{
		Strategy:  StrategyGreedyBySize,
		Regions:   map[model.ValueID]Region{b: {24, 24}, a: {0, 24}},
		TotalSize: 48,
		Managed: &Managed{
			Values: []model.ValueID{a, b},
			Sizes:  map[model.ValueID]uint64{a: 24, b: 24},
			Ranges: map[model.ValueID]LiveRange{a: {0, 1}, b: {1, 1}},
		},
	}

	var buf bytes.Buffer
	res.Dump(&buf, g)
	out := buf.String()

	assert.Contains(t, out, "strategy=greedy-by-size")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("a:")), bytes.Index(buf.Bytes(), []byte("b:")),
		"entries ordered by ascending live range start")
	assert.Contains(t, out, "[0,1]")
	assert.Contains(t, out, "{off:0 size:24}")
}
