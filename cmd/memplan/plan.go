package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sbl8/memplan/compiler"
	"github.com/sbl8/memplan/model"
	"github.com/sbl8/memplan/plan"
)

func newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan <spec.mps>",
		Short: "Plan a spec and print the allocation table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			opts := compiler.DefaultOptions()
			opts.Strategy = plan.ParseStrategy(cfg.Strategy)
			opts.Logger = logger

			g, res, err := compiler.BuildGraph(spec, opts)
			if err != nil {
				return err
			}

			printPlanTable(g, res)
			return nil
		},
	}
	return cmd
}

// printPlanTable renders the allocation dump with interval and region
// columns, ordered by ascending live range start.
func printPlanTable(g *model.Graph, res *plan.Result) {
	header := color.New(color.Bold)
	header.Printf("plan %s  strategy=%s  arena=%d bytes  values=%d\n",
		res.ID, res.Strategy, res.TotalSize, len(res.Regions))

	if !res.Planned() {
		fmt.Println("no values planned (strategy none or nothing eligible)")
		return
	}

	order := make([]model.ValueID, 0, len(res.Regions))
	for v := range res.Regions {
		order = append(order, v)
	}
	sort.Slice(order, func(i, j int) bool {
		ri, rj := res.Managed.Ranges[order[i]], res.Managed.Ranges[order[j]]
		if ri.Start != rj.Start {
			return ri.Start < rj.Start
		}
		return order[i] < order[j]
	})

	nameCol := color.New(color.FgCyan)
	regionCol := color.New(color.FgGreen)
	for _, v := range order {
		rng := res.Managed.Ranges[v]
		reg := res.Regions[v]
		nameCol.Printf("  %-20s", g.Value(v).Name)
		fmt.Printf(" live %-10s ", rng)
		regionCol.Printf("[%d, %d)", reg.Offset, reg.End())
		fmt.Printf("  %d bytes\n", reg.Size)
	}
}
