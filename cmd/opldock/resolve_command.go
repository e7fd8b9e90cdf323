package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"opldock/internal/gameid"
	"opldock/internal/target"
)

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var targetPath string
	var gameName string
	var sourceFilename string

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve the OPL game identifier for a name or filename",
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := ctx.services()
			if err != nil {
				return err
			}

			name, err := gameid.DeriveName(gameName, sourceFilename)
			if err != nil {
				return err
			}

			var dir string
			if targetPath != "" {
				dir, err = target.Resolve(targetPath)
				if err != nil {
					return err
				}
			}

			resolution := services.resolver.Resolve(gameid.Request{
				TargetDir:      dir,
				GameName:       name,
				SourceFilename: sourceFilename,
			})

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Game:      %s\n", name)
			fmt.Fprintf(out, "Game ID:   %s\n", resolution.ID)
			fmt.Fprintf(out, "ID source: %s\n", resolution.Source)
			if resolution.Generated {
				fmt.Fprintln(out, "Note: synthetic identifier, no canonical ID was found")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "target", "t", "", "Target path whose manifest should be consulted")
	cmd.Flags().StringVarP(&gameName, "name", "n", "", "Game name")
	cmd.Flags().StringVarP(&sourceFilename, "file", "f", "", "Source filename")
	return cmd
}
