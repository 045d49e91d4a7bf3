// Package runtime executes memplan graphs.
//
// The engine walks the program in op order and dispatches each op to its
// kernel. For a planned graph it allocates the arena exactly once at
// construction; every bound output then materializes as a sub-slice of
// that block at its binding's offset, so execution performs no per-tensor
// allocations for planned values. Unbound outputs (leaked values, or all
// values when the graph was never planned) allocate independently.
//
// Execution model:
//  1. Load the compiled graph and validate it
//  2. Allocate the arena from the graph's arena directive, if present
//  3. Materialize weights and bind caller inputs
//  4. Run ops in order, writing bound outputs into their regions
//  5. Return the graph outputs by name
package runtime

import (
	"fmt"
	"io"
	"log/slog"
	"time"
	"unsafe"

	"github.com/sbl8/memplan/core"
	"github.com/sbl8/memplan/kernels"
	"github.com/sbl8/memplan/model"
)

// EngineOptions configures engine behavior.
type EngineOptions struct {
	Logger      *slog.Logger
	EnableStats bool
}

// DefaultEngineOptions provides sensible runtime defaults.
func DefaultEngineOptions() EngineOptions {
	return EngineOptions{EnableStats: true}
}

// ExecutionStats tracks runtime counters across Execute calls.
type ExecutionStats struct {
	Executions  int64
	KernelRuns  map[uint8]int64
	LastLatency time.Duration
}

// Engine executes a compiled graph against a single pre-allocated arena.
// An Engine is not safe for concurrent Execute calls: bound outputs share
// the arena by design.
type Engine struct {
	graph *model.Graph
	arena []byte
	opts  EngineOptions
	stats ExecutionStats
}

// NewEngine validates the graph and, when an arena directive is present,
// allocates the arena buffer. A binding outside the arena is an
// internal-consistency failure and fails construction.
func NewEngine(g *model.Graph, opts EngineOptions) (*Engine, error) {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("invalid graph: %w", err)
	}

	e := &Engine{
		graph: g,
		opts:  opts,
		stats: ExecutionStats{KernelRuns: make(map[uint8]int64)},
	}

	if g.Arena != nil {
		if g.Arena.Device != model.DeviceCPU {
			return nil, fmt.Errorf("unsupported arena device %s", g.Arena.Device)
		}
		e.arena = core.AlignedBytes(int(g.Arena.TotalSize))
		opts.Logger.Debug("arena allocated",
			"total_size", g.Arena.TotalSize, "device", g.Arena.Device.String())
	}

	return e, nil
}

// Graph returns the engine's underlying graph.
func (e *Engine) Graph() *model.Graph {
	return e.graph
}

// ArenaSize returns the arena capacity, 0 for unplanned graphs.
func (e *Engine) ArenaSize() uint64 {
	return uint64(len(e.arena))
}

// Stats returns a copy of the engine's execution counters.
func (e *Engine) Stats() ExecutionStats {
	return e.stats
}

// Execute runs the program with the given inputs, keyed by value name,
// and returns the graph outputs keyed the same way.
func (e *Engine) Execute(inputs map[string][]float32) (map[string][]float32, error) {
	start := time.Now()

	buffers := make(map[model.ValueID][]float32, len(e.graph.Values))
	if err := e.bindInputs(buffers, inputs); err != nil {
		return nil, err
	}

	for i := range e.graph.Ops {
		if err := e.runOp(&e.graph.Ops[i], buffers); err != nil {
			return nil, fmt.Errorf("op %d: %w", i, err)
		}
	}

	out := make(map[string][]float32, len(e.graph.Outputs))
	for _, v := range e.graph.Outputs {
		val := e.graph.Value(v)
		buf, ok := buffers[v]
		if !ok {
			return nil, fmt.Errorf("graph output %q was never produced", val.Name)
		}
		out[val.Name] = buf
	}

	if e.opts.EnableStats {
		e.stats.Executions++
		e.stats.LastLatency = time.Since(start)
	}
	return out, nil
}

// bindInputs materializes weights and caller-supplied inputs.
func (e *Engine) bindInputs(buffers map[model.ValueID][]float32, inputs map[string][]float32) error {
	for i := range e.graph.Values {
		v := &e.graph.Values[i]
		if v.Producer != model.NoOp {
			continue
		}
		data, ok := inputs[v.Name]
		if !ok {
			return fmt.Errorf("missing input %q", v.Name)
		}
		if n, known := v.NumElems(); known && int64(len(data)) != n {
			return fmt.Errorf("input %q has %d elements, want %d", v.Name, len(data), n)
		}
		buffers[v.ID] = data
	}
	return nil
}

// runOp dispatches one op to its kernel, materializing each output either
// into its arena region (out-buffer variant) or a fresh slice.
func (e *Engine) runOp(op *model.Op, buffers map[model.ValueID][]float32) error {
	k, ok := kernels.Lookup(op.Kernel)
	if !ok {
		return fmt.Errorf("unknown kernel opcode %#x", op.Kernel)
	}
	if k.Arity >= 0 && len(op.Inputs) != k.Arity {
		return fmt.Errorf("kernel %s wants %d inputs, got %d", k.Name, k.Arity, len(op.Inputs))
	}

	ins := make([]kernels.Tensor, len(op.Inputs))
	for i, in := range op.Inputs {
		buf, ok := buffers[in]
		if !ok {
			return fmt.Errorf("input value %d not materialized", in)
		}
		ins[i] = kernels.Tensor{Data: buf, Extents: e.graph.Value(in).Extents}
	}

	for _, outID := range op.Outputs {
		val := e.graph.Value(outID)
		n, known := val.NumElems()
		if !known {
			return fmt.Errorf("output %q has no concrete extents", val.Name)
		}

		var data []float32
		if b, bound := op.BindingFor(outID); bound {
			view, err := e.arenaView(b)
			if err != nil {
				return err
			}
			data = view
		} else {
			data = make([]float32, n)
		}

		out := kernels.Tensor{Data: data, Extents: val.Extents}
		if err := k.Fn(ins, out); err != nil {
			return fmt.Errorf("kernel %s: %w", k.Name, err)
		}
		buffers[outID] = data
	}

	if e.opts.EnableStats {
		e.stats.KernelRuns[op.Kernel]++
	}
	return nil
}

// arenaView returns the float32 view of a binding's arena region.
func (e *Engine) arenaView(b model.Binding) ([]float32, error) {
	if b.Offset+b.Size > uint64(len(e.arena)) {
		return nil, fmt.Errorf("binding for value %d exceeds arena: offset %d size %d arena %d",
			b.Value, b.Offset, b.Size, len(e.arena))
	}
	if b.DType != model.DTypeF32 {
		return nil, fmt.Errorf("cpu backend only executes f32 tensors, got %s", b.DType)
	}
	if b.Offset%4 != 0 || b.Size%4 != 0 {
		return nil, fmt.Errorf("binding for value %d not 4-byte aligned", b.Value)
	}
	if b.Size == 0 {
		return nil, nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&e.arena[b.Offset])), b.Size/4), nil
}

// Load reads a compiled artifact and constructs an engine for it.
func Load(path string, opts EngineOptions) (*Engine, error) {
	g, err := model.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return NewEngine(g, opts)
}
