package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"align-bot/internal/app"
	"align-bot/internal/brand"
	"align-bot/internal/config"
	"align-bot/internal/pipeline"
)

// stageLoader builds the pipeline stages. Commands that never call a model do not
// need one, so configuration is only read when a loader is invoked.
type stageLoader func(ctx context.Context, logLevel string) (pipeline.Options, error)

func loadStages(ctx context.Context, logLevel string) (pipeline.Options, error) {
	cfg, err := config.Load()
	if err != nil {
		return pipeline.Options{}, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	logger := app.NewLoggerTo(os.Stderr, cfg.LogLevel)
	return app.Stages(ctx, cfg, app.NewHTTPClient(cfg, logger), logger)
}

type cli struct {
	v      *viper.Viper
	stages stageLoader
}

func newRootCmd(stages stageLoader) *cobra.Command {
	c := &cli{v: viper.New(), stages: stages}
	c.v.SetEnvPrefix("align")
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "align",
		Short: "Brand-safe campaign generation from the command line.",
		Long: `align runs the two-stage campaign pipeline: a strategist analyzes the request
against the brand, you review the strategy, and only then are the copy and the
visual produced.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().Bool("json", false, "print results as JSON")
	root.PersistentFlags().String("log-level", "", "log level for stage diagnostics on stderr (debug, info, warn, error)")
	_ = c.v.BindPFlag("json", root.PersistentFlags().Lookup("json"))
	_ = c.v.BindPFlag("log-level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(
		c.presetsCmd(),
		c.ruleCmd(),
		c.runCmd(),
		c.batchCmd(),
	)
	return root
}

func (c *cli) isJSON() bool {
	return c.v.GetBool("json")
}

func (c *cli) loadStages(cmd *cobra.Command) (pipeline.Options, error) {
	return c.stages(cmd.Context(), c.v.GetString("log-level"))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readProfile loads a brand file, or returns the default profile for an empty path.
func readProfile(path string) (brand.Profile, error) {
	if path == "" {
		return brand.DefaultProfile(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return brand.Profile{}, fmt.Errorf("open brand file: %w", err)
	}
	defer f.Close()
	return brand.DecodeProfile(f)
}
