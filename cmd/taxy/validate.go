package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load the config root and report any errors without starting the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := configDir(cmd)
			a, _, err := loadApp(dir)
			if err != nil {
				return failConfig(err)
			}
			a.checker.Stop()
			fmt.Fprintf(cmd.OutOrStdout(), "config root %q is valid\n", dir)
			return nil
		},
	}
}
