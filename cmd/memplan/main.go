// Command memplan compiles tensor graph specs into planned binary
// artifacts and inspects or executes the result.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sbl8/memplan/config"
)

const version = "1.0.0"

var (
	cfg      *config.Config
	settings *viper.Viper
	cfgPath  string
	logger   *slog.Logger
)

func main() {
	root := &cobra.Command{
		Use:           "memplan",
		Short:         "Static memory planner for tensor dataflow graphs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, settings, err = config.Load(cfgPath)
			if err != nil {
				return err
			}
			if err := settings.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			if err := settings.Unmarshal(cfg); err != nil {
				return err
			}

			level := slog.LevelInfo
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
			return nil
		},
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default ./memplan.yaml)")
	root.PersistentFlags().String("strategy", config.Defaults().Strategy,
		"packing strategy: greedy-by-size, linear-scan, greedy-by-breadth, none")
	root.PersistentFlags().Bool("verbose", false, "debug-level logging")

	root.AddCommand(newCompileCmd(), newPlanCmd(), newRunCmd(), newVersionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("memplan %s\n", version)
		},
	}
}
