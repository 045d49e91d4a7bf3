package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/sbl8/memplan/model"
	"github.com/sbl8/memplan/runtime"
)

func newRunCmd() *cobra.Command {
	var fill float64

	cmd := &cobra.Command{
		Use:   "run <artifact.mpl>",
		Short: "Execute a compiled artifact with constant-filled inputs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := runtime.Load(args[0], runtime.EngineOptions{Logger: logger})
			if err != nil {
				return err
			}

			g := engine.Graph()
			inputs := make(map[string][]float32)
			for i := range g.Values {
				v := &g.Values[i]
				if v.Producer != model.NoOp {
					continue
				}
				n, ok := v.NumElems()
				if !ok {
					return fmt.Errorf("input %q has no concrete extents", v.Name)
				}
				buf := make([]float32, n)
				for j := range buf {
					buf[j] = float32(fill)
				}
				inputs[v.Name] = buf
			}

			outputs, err := engine.Execute(inputs)
			if err != nil {
				return err
			}

			if engine.ArenaSize() > 0 {
				logger.Info("executed with planned arena", "arena_bytes", engine.ArenaSize())
			} else {
				logger.Info("executed without memory plan")
			}
			names := make([]string, 0, len(outputs))
			for name := range outputs {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				data := outputs[name]
				preview := data
				if len(preview) > 8 {
					preview = preview[:8]
				}
				fmt.Printf("%s (%d elements): %v\n", name, len(data), preview)
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&fill, "fill", 1.0, "constant used to fill every graph input")
	return cmd
}
