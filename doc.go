// Package memplan implements static memory planning for tensor dataflow
// programs.
//
// A memplan graph is an ordered list of operations producing fixed-size
// tensors with statically known shapes. The planner computes, ahead of
// execution, a single contiguous memory arena and a byte offset for every
// eligible tensor, such that tensors alive at the same time never share
// bytes and tensors with disjoint lifetimes may. The program is then
// rewritten so one allocation backs the whole run.
//
// # Architecture Overview
//
//   - Liveness: per-value live intervals over program order
//   - Planner: interval packing with three interchangeable strategies
//   - Plan application: arena directive + per-value out-buffer bindings
//   - Runtime: executes the rewritten program against the single arena
//
// # Packing Strategies
//
// Three deterministic heuristics share one contract (sizes and live
// ranges in, value-to-region plan out):
//
//   - greedy-by-size: largest values first, first-fit by offset among
//     time-conflicting neighbors
//   - linear-scan: chronological replay with a best-fit free list,
//     mirroring linear-scan register allocation
//   - greedy-by-breadth: program-order walk preferring regions of inputs
//     each operation retires
//
// A fourth mode, none, disables planning and leaves the program with
// per-tensor allocations.
//
// # Basic Usage
//
//	// Compile a graph spec with planning enabled
//	memplan compile --strategy greedy-by-size model.mps
//
//	// Inspect the allocation table
//	memplan plan model.mps
//
//	// Execute the planned artifact
//	memplan run model.mpl
//
// # Package Structure
//
//   - model: graph representation, bindings, binary serialization
//   - liveness: live interval analysis over program order
//   - plan: region model, packing strategies, plan application
//   - kernels: compute kernel catalog with out-variant metadata
//   - compiler: DSL parsing and the compile pipeline
//   - runtime: arena-backed execution engine
//   - config: tool configuration loading
//   - cmd/memplan: command-line interface
package memplan
