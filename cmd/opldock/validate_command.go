package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"opldock/internal/target"
)

func newValidateCommand(ctx *commandContext) *cobra.Command {
	var skipEnsure bool

	cmd := &cobra.Command{
		Use:   "validate <target-path>",
		Short: "Check a USB target and create the OPL folder layout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := ctx.services(); err != nil {
				return err
			}

			dir, err := target.Resolve(args[0])
			if err != nil {
				return err
			}
			if err := target.ValidateAccess(dir); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if skipEnsure {
				existing := target.Existing(dir)
				fmt.Fprintf(out, "Target %s is accessible (%d/%d required folders present)\n",
					dir, len(existing), len(target.RequiredFolders))
				return nil
			}

			missing, created, err := target.EnsureFolders(dir)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Target %s is ready\n", dir)
			if len(created) > 0 {
				fmt.Fprintf(out, "Created folders: %s\n", strings.Join(created, ", "))
			} else if len(missing) == 0 {
				fmt.Fprintln(out, "All required folders already existed")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipEnsure, "no-ensure", false, "Report structure without creating missing folders")
	return cmd
}
