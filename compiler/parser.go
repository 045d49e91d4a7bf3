package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sbl8/memplan/kernels"
	"github.com/sbl8/memplan/model"
)

// --- DSL parser with support for device, tensor, op, and iterate blocks ---
//
// Directives:
//
//	device cpu|cuda
//	tensor <name> <dtype> <extents, e.g. 64x64> [input|output]
//	op <kernel> <out> <in...>
//	iterate <var> <start> <end> { ... }
//
// Tensors must be declared before the ops that use them. Iterate blocks
// expand their body once per value of <var>, substituting the variable
// wherever it appears as a whole token or as a `.var` name suffix.

// parseSpec parses the DSL and returns a Graph or an error on invalid syntax.
func parseSpec(src []byte) (*model.Graph, error) {
	lines := strings.Split(string(src), "\n")
	p := &dslParser{
		graph:  model.NewGraph(model.DeviceCPU),
		byName: make(map[string]model.ValueID),
	}

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var err error
		i, err = p.parseLine(lines, i)
		if err != nil {
			return nil, fmt.Errorf("line %d: %v", i+1, err)
		}
	}

	return p.graph, nil
}

// dslParser accumulates graph state while walking the spec.
type dslParser struct {
	graph  *model.Graph
	byName map[string]model.ValueID
}

// parseLine processes a single line and returns the next line index.
func (p *dslParser) parseLine(lines []string, idx int) (int, error) {
	line := strings.TrimSpace(lines[idx])
	fields := strings.Fields(line)

	switch fields[0] {
	case "iterate":
		return p.parseIterateBlock(lines, idx, fields)
	default:
		return idx, p.processSimpleLine(fields)
	}
}

// processSimpleLine handles device, tensor, and op directives.
func (p *dslParser) processSimpleLine(fields []string) error {
	switch fields[0] {
	case "device":
		return p.parseDeviceLine(fields)
	case "tensor":
		return p.parseTensorLine(fields)
	case "op":
		return p.parseOpLine(fields)
	default:
		return fmt.Errorf("unknown directive: %s", fields[0])
	}
}

func (p *dslParser) parseDeviceLine(fields []string) error {
	if len(fields) != 2 {
		return fmt.Errorf("invalid device spec: needs exactly 1 argument")
	}
	p.graph.Device = model.ParseDevice(fields[1])
	return nil
}

func (p *dslParser) parseTensorLine(fields []string) error {
	if len(fields) < 4 {
		return fmt.Errorf("invalid tensor spec: needs name, dtype, extents")
	}
	name := fields[1]
	if _, exists := p.byName[name]; exists {
		return fmt.Errorf("duplicate tensor %q", name)
	}

	dtype := model.ParseDType(fields[2])
	if dtype == model.DTypeUnknown {
		return fmt.Errorf("unknown dtype %q", fields[2])
	}
	extents, err := parseExtents(fields[3])
	if err != nil {
		return err
	}

	id := p.graph.AddValue(model.Value{Name: name, DType: dtype, Extents: extents})
	p.byName[name] = id

	for _, role := range fields[4:] {
		switch role {
		case "input":
			p.graph.Inputs = append(p.graph.Inputs, id)
		case "output":
			p.graph.Outputs = append(p.graph.Outputs, id)
		default:
			return fmt.Errorf("unknown tensor role %q", role)
		}
	}
	return nil
}

func (p *dslParser) parseOpLine(fields []string) error {
	if len(fields) < 3 {
		return fmt.Errorf("invalid op spec: needs kernel and output")
	}
	kernel, ok := kernels.ByName(fields[1])
	if !ok {
		return fmt.Errorf("unknown kernel %q", fields[1])
	}

	out, ok := p.byName[fields[2]]
	if !ok {
		return fmt.Errorf("undeclared output tensor %q", fields[2])
	}

	inputs := make([]model.ValueID, 0, len(fields)-3)
	for _, name := range fields[3:] {
		in, ok := p.byName[name]
		if !ok {
			return fmt.Errorf("undeclared input tensor %q", name)
		}
		inputs = append(inputs, in)
	}

	p.graph.AddOp(kernel, inputs, []model.ValueID{out})
	return nil
}

// parseIterateBlock handles iterate constructs.
func (p *dslParser) parseIterateBlock(lines []string, idx int, fields []string) (int, error) {
	if len(fields) < 4 {
		return idx, fmt.Errorf("invalid iterate spec: %s", strings.Join(fields, " "))
	}

	varName := fields[1]
	start, err := strconv.Atoi(fields[2])
	if err != nil {
		return idx, fmt.Errorf("invalid iterate start %q: %v", fields[2], err)
	}
	end, err := strconv.Atoi(fields[3])
	if err != nil {
		return idx, fmt.Errorf("invalid iterate end %q: %v", fields[3], err)
	}

	blockStart := idx
	if fields[len(fields)-1] != "{" {
		blockStart++
		for blockStart < len(lines) && strings.TrimSpace(lines[blockStart]) == "" {
			blockStart++
		}
		if blockStart >= len(lines) || strings.TrimSpace(lines[blockStart]) != "{" {
			return idx, fmt.Errorf("missing '{' after iterate")
		}
	}

	block, blockEnd, err := collectBlockLines(lines, blockStart)
	if err != nil {
		return idx, err
	}

	for v := start; v <= end; v++ {
		for _, line := range block {
			expanded := expandVariable(line, varName, v)
			if err := p.processSimpleLine(strings.Fields(expanded)); err != nil {
				return idx, fmt.Errorf("iterate expansion: %v", err)
			}
		}
	}

	return blockEnd, nil
}

// collectBlockLines gathers lines within braces.
func collectBlockLines(lines []string, startIdx int) ([]string, int, error) {
	var block []string
	i := startIdx + 1

	for i < len(lines) {
		line := strings.TrimSpace(lines[i])
		if line == "}" {
			return block, i, nil
		}
		if line != "" && !strings.HasPrefix(line, "#") {
			block = append(block, line)
		}
		i++
	}

	return nil, i, fmt.Errorf("unterminated iterate block")
}

// expandVariable replaces the iterate variable in a line, both as a whole
// token and as a `.var` suffix inside tensor names (t.i -> t.0).
func expandVariable(line, varName string, value int) string {
	val := strconv.Itoa(value)
	fields := strings.Fields(line)
	for i, field := range fields {
		if field == varName {
			fields[i] = val
			continue
		}
		if !strings.Contains(field, ".") {
			continue
		}
		parts := strings.Split(field, ".")
		for j := 1; j < len(parts); j++ {
			if parts[j] == varName {
				parts[j] = val
			}
		}
		fields[i] = strings.Join(parts, ".")
	}
	return strings.Join(fields, " ")
}

// parseExtents parses an extents token such as "64x64" or "128".
func parseExtents(s string) ([]int64, error) {
	parts := strings.Split(s, "x")
	extents := make([]int64, len(parts))
	for i, part := range parts {
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid extents %q", s)
		}
		extents[i] = n
	}
	return extents, nil
}
