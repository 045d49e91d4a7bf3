package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sbl8/memplan/compiler"
	"github.com/sbl8/memplan/plan"
)

func newCompileCmd() *cobra.Command {
	var (
		outDir   string
		compress bool
		parallel int
	)

	cmd := &cobra.Command{
		Use:   "compile <spec.mps> [more specs...]",
		Short: "Compile specs into planned .mpl artifacts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := compiler.DefaultOptions()
			opts.Strategy = plan.ParseStrategy(cfg.Strategy)
			opts.Compress = compress || cfg.Compress
			opts.Logger = logger

			// Each spec compiles into its own graph; runs are independent,
			// so fan out across files.
			var g errgroup.Group
			g.SetLimit(parallel)
			for _, src := range args {
				src := src
				g.Go(func() error {
					out := artifactPath(src, outDir)
					if err := compiler.CompileWithOptions(src, out, opts); err != nil {
						return fmt.Errorf("%s: %w", src, err)
					}
					logger.Info("compiled", "source", src, "artifact", out)
					return nil
				})
			}
			return g.Wait()
		},
	}

	cmd.Flags().StringVarP(&outDir, "out-dir", "o", "", "directory for artifacts (default alongside sources)")
	cmd.Flags().BoolVar(&compress, "compress", false, "zstd-compress artifacts")
	cmd.Flags().IntVar(&parallel, "parallel", 4, "max specs compiled concurrently")
	return cmd
}

// artifactPath maps spec.mps to spec.mpl, optionally under outDir.
func artifactPath(src, outDir string) string {
	base := filepath.Base(src)
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	base += ".mpl"
	if outDir != "" {
		return filepath.Join(outDir, base)
	}
	return filepath.Join(filepath.Dir(src), base)
}
