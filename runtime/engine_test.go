package runtime

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbl8/memplan/compiler"
	"github.com/sbl8/memplan/kernels"
	"github.com/sbl8/memplan/model"
	"github.com/sbl8/memplan/plan"
)

const netSpec = `
device cpu
tensor x f32 8 input
tensor a f32 8
tensor b f32 8
tensor y f32 8 output

op relu a x
op mul b a a
op add y a b
`

func buildEngine(t *testing.T, strategy plan.Strategy) *Engine {
	t.Helper()
	opts := compiler.DefaultOptions()
	opts.Strategy = strategy
	g, _, err := compiler.BuildGraph([]byte(netSpec), opts)
	require.NoError(t, err)

	e, err := NewEngine(g, DefaultEngineOptions())
	require.NoError(t, err)
	return e
}

func TestExecutePlannedGraph(t *testing.T) {
	t.Parallel()

	e := buildEngine(t, plan.StrategyGreedyBySize)
	require.NotZero(t, e.ArenaSize())

	x := []float32{1, -2, 3, -4, 0.5, 0, 2, -1}
	out, err := e.Execute(map[string][]float32{"x": x})
	require.NoError(t, err)

	y := out["y"]
	require.Len(t, y, 8)
	for i, v := range x {
		r := v
		if r < 0 {
			r = 0
		}
		assert.InDelta(t, r+r*r, y[i], 1e-6, "element %d", i)
	}
}

func TestPlannedMatchesUnplanned(t *testing.T) {
	t.Parallel()

	x := []float32{0.5, -1, 2, 3, -0.25, 7, 0, 1.5}
	in := map[string][]float32{"x": x}

	base := buildEngine(t, plan.StrategyNone)
	require.Zero(t, base.ArenaSize())
	want, err := base.Execute(in)
	require.NoError(t, err)

	for _, strat := range []plan.Strategy{plan.StrategyGreedyBySize, plan.StrategyLinearScan, plan.StrategyGreedyByBreadth} {
		e := buildEngine(t, strat)
		got, err := e.Execute(in)
		require.NoError(t, err)
		assert.Equal(t, want["y"], got["y"], "strategy %s", strat)
	}
}

func TestExecuteInputValidation(t *testing.T) {
	t.Parallel()

	e := buildEngine(t, plan.StrategyGreedyBySize)

	_, err := e.Execute(map[string][]float32{})
	require.Error(t, err, "missing input")

	_, err = e.Execute(map[string][]float32{"x": make([]float32, 3)})
	require.Error(t, err, "wrong input size")
}

func TestExecuteStats(t *testing.T) {
	t.Parallel()

	e := buildEngine(t, plan.StrategyLinearScan)
	in := map[string][]float32{"x": make([]float32, 8)}

	for i := 0; i < 3; i++ {
		_, err := e.Execute(in)
		require.NoError(t, err)
	}

	stats := e.Stats()
	assert.Equal(t, int64(3), stats.Executions)
	assert.Equal(t, int64(3), stats.KernelRuns[kernels.OpReLU])
	assert.Equal(t, int64(3), stats.KernelRuns[kernels.OpAdd])
	assert.Positive(t, stats.LastLatency)
}

func TestNewEngineRejectsCorruptBinding(t *testing.T) {
	t.Parallel()

	g, _, err := compiler.BuildGraph([]byte(netSpec), compiler.DefaultOptions())
	require.NoError(t, err)

	// Push one binding past the arena; Validate catches it at construction.
	for i := range g.Ops {
		if len(g.Ops[i].Bindings) > 0 {
			g.Ops[i].Bindings[0].Offset = g.Arena.TotalSize
			break
		}
	}
	_, err = NewEngine(g, DefaultEngineOptions())
	require.Error(t, err)
}

func TestNewEngineRejectsNonCPUArena(t *testing.T) {
	t.Parallel()

	g, _, err := compiler.BuildGraph([]byte(netSpec), compiler.DefaultOptions())
	require.NoError(t, err)
	g.Arena.Device = model.DeviceCUDA

	_, err = NewEngine(g, DefaultEngineOptions())
	require.Error(t, err)
}

func TestLoadRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "net.mps")
	art := filepath.Join(dir, "net.mpl")
	require.NoError(t, os.WriteFile(src, []byte(netSpec), 0o644))
	require.NoError(t, compiler.Compile(src, art))

	e, err := Load(art, DefaultEngineOptions())
	require.NoError(t, err)

	out, err := e.Execute(map[string][]float32{"x": {1, 1, 1, 1, 1, 1, 1, 1}})
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 2, 2, 2, 2, 2, 2, 2}, out["y"])
}

func TestLoadMissingArtifact(t *testing.T) {
	t.Parallel()
	_, err := Load(filepath.Join(t.TempDir(), "missing.mpl"), DefaultEngineOptions())
	require.Error(t, err)
}
