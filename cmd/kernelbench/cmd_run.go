package main

import (
	"fmt"
	"os"

	"github.com/ciricc/kernelbench/internal/app"
	"github.com/ciricc/kernelbench/internal/config"
	"github.com/spf13/cobra"
)

// overrides holds flags that take precedence over the config file.
type overrides struct {
	root     string
	suites   []string
	baseline string
	csv      string
	json     string
	metrics  string
	failFast bool
}

func (o *overrides) register(cmd *cobra.Command, outputs bool) {
	f := cmd.Flags()
	f.StringVar(&o.root, "root", "", "directory containing one sub-directory per suite")
	f.StringSliceVar(&o.suites, "suites", nil, "suites to compare, baseline first")
	if !outputs {
		return
	}
	f.StringVar(&o.baseline, "baseline", "", "baseline suite (default: first suite)")
	f.StringVar(&o.csv, "csv", "", "write the ratio table as CSV")
	f.StringVar(&o.json, "json", "", "write the full JSON report")
	f.StringVar(&o.metrics, "metrics", "", "write a Prometheus textfile")
	f.BoolVar(&o.failFast, "fail-fast", false, "abort on the first failing benchmark")
}

func (o *overrides) apply(cmd *cobra.Command, c *config.Config) {
	f := cmd.Flags()
	if f.Changed("root") {
		c.Root = o.root
	}
	if f.Changed("suites") {
		c.Suites = o.suites
	}
	if f.Changed("baseline") {
		c.Baseline = o.baseline
	}
	if f.Changed("csv") {
		c.Output.CSV = o.csv
	}
	if f.Changed("json") {
		c.Output.JSON = o.json
	}
	if f.Changed("metrics") {
		c.Output.Metrics = o.metrics
	}
	if f.Changed("fail-fast") {
		c.FailFast = o.failFast
	}
}

func newApplication(cmd *cobra.Command, flags *rootFlags, o *overrides) (*app.Application, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	o.apply(cmd, &cfg)

	logger, err := app.NewLogger(os.Stderr, flags.logLevel)
	if err != nil {
		return nil, err
	}
	return app.New(cfg,
		app.WithLogger(logger),
		app.WithOutput(cmd.OutOrStdout()),
	)
}

func newRunCmd(flags *rootFlags) *cobra.Command {
	o := &overrides{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Profile every benchmark until stable and print the ratio table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, err := newApplication(cmd, flags, o)
			if err != nil {
				return err
			}
			report, err := application.Run(cmd.Context())
			if err != nil && report != nil {
				return fmt.Errorf("%d benchmark(s) failed: %w", len(report.Errors), err)
			}
			return err
		},
	}
	o.register(cmd, true)
	return cmd
}
