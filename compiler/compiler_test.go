package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbl8/memplan/kernels"
	"github.com/sbl8/memplan/model"
	"github.com/sbl8/memplan/plan"
)

const chainSpec = `
device cpu
tensor x f32 64 input
tensor a f32 64
tensor b f32 64
tensor y f32 64 output

op relu a x
op tanh b a
op sigmoid y b
`

func TestCompilePlansAndWritesArtifact(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "chain.mps")
	out := filepath.Join(dir, "chain.mpl")
	require.NoError(t, os.WriteFile(src, []byte(chainSpec), 0o644))

	require.NoError(t, Compile(src, out))

	g, err := model.ReadFile(out)
	require.NoError(t, err)
	require.NoError(t, g.Validate())

	// Both intermediates were planned into the arena. Their lifetimes
	// touch at the middle op, so each keeps its own 256 byte region.
	require.NotNil(t, g.Arena)
	assert.Equal(t, uint64(512), g.Arena.TotalSize)

	var bindings int
	for i := range g.Ops {
		bindings += len(g.Ops[i].Bindings)
	}
	assert.Equal(t, 2, bindings)
}

func TestCompileStrategyNoneLeavesGraphUnplanned(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "chain.mps")
	out := filepath.Join(dir, "chain.mpl")
	require.NoError(t, os.WriteFile(src, []byte(chainSpec), 0o644))

	opts := DefaultOptions()
	opts.Strategy = plan.StrategyNone
	require.NoError(t, CompileWithOptions(src, out, opts))

	g, err := model.ReadFile(out)
	require.NoError(t, err)
	assert.Nil(t, g.Arena)
	for i := range g.Ops {
		assert.Empty(t, g.Ops[i].Bindings)
	}
}

func TestCompileCompressedArtifact(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "chain.mps")
	plain := filepath.Join(dir, "plain.mpl")
	packed := filepath.Join(dir, "packed.mpl")
	require.NoError(t, os.WriteFile(src, []byte(chainSpec), 0o644))

	opts := DefaultOptions()
	require.NoError(t, CompileWithOptions(src, plain, opts))
	opts.Compress = true
	require.NoError(t, CompileWithOptions(src, packed, opts))

	gp, err := model.ReadFile(plain)
	require.NoError(t, err)
	gz, err := model.ReadFile(packed)
	require.NoError(t, err)
	assert.Equal(t, gp.Values, gz.Values)
	assert.Equal(t, gp.Ops, gz.Ops)
}

func TestCompileSortsOutOfOrderOps(t *testing.T) {
	t.Parallel()

	// Ops listed consumer-first; SortOps must recover the chain. Upfront
	// validation is off since def-before-use only holds after sorting.
	src := []byte(`
device cpu
tensor x f32 16 input
tensor a f32 16
tensor y f32 16 output
op tanh y a
op relu a x
`)
	opts := DefaultOptions()
	opts.Validate = false
	g, res, err := BuildGraph(src, opts)
	require.NoError(t, err)
	require.NoError(t, g.Validate())
	require.True(t, res.Planned())
	assert.Equal(t, uint8(kernels.OpReLU), g.Ops[0].Kernel)
	assert.Equal(t, uint8(kernels.OpTanh), g.Ops[1].Kernel)
}

func TestCompileRejectsInvalidSpec(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "bad.mps")
	out := filepath.Join(dir, "bad.mpl")
	require.NoError(t, os.WriteFile(src, []byte("op relu y x\n"), 0o644))

	err := Compile(src, out)
	require.Error(t, err)
	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr), "no artifact on failure")
}

func TestCompileMissingSource(t *testing.T) {
	t.Parallel()
	err := Compile(filepath.Join(t.TempDir(), "nope.mps"), "out.mpl")
	require.Error(t, err)
}
