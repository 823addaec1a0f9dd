package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func (c *cli) analyticsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analytics",
		Short: "Print the analytics report as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := c.build(cmd.Context())
			if err != nil {
				return err
			}
			defer container.Close()

			report, err := container.Aggregator.Compute(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(c.out)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
}
