package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/merlya/merlya-core/pkg/resilience"
)

func newMetricsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "dump a human-readable summary of the process's resilience metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			m := resilience.NewMetrics()
			fmt.Print(m.Dump())
			return nil
		},
	}
}
