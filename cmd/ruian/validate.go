package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ruian/internal/config"
)

func newValidateCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [archive | URL | latest]",
		Short: "Validate the effective run configuration and exit",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.resolve(cmd, args, getenv)
			if err != nil {
				return err
			}
			issues := config.ValidateRun(cfg)
			for _, iss := range issues {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
			}
			if config.HasErrors(issues) {
				return fmt.Errorf("configuration is invalid")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "configuration is valid")
			return nil
		},
	}
}
