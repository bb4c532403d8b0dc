package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newCatalogCmd(flags *rootFlags) *cobra.Command {
	o := &overrides{}
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List the benchmarks every suite provides",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, err := newApplication(cmd, flags, o)
			if err != nil {
				return err
			}
			common, perSuite, err := application.Catalog()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, s := range application.Config.Suites {
				fmt.Fprintf(w, "%s (%d): %s\n", s, len(perSuite[s]), strings.Join(perSuite[s], " "))
			}
			fmt.Fprintf(w, "common (%d): %s\n", len(common), strings.Join(common, " "))
			return nil
		},
	}
	o.register(cmd, false)
	return cmd
}
