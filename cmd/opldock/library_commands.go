package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "scan <target-path>",
		Short: "List the games installed on a USB target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := ctx.services()
			if err != nil {
				return err
			}

			games, err := services.library.Scan(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(games) == 0 {
				fmt.Fprintln(out, "No games installed")
				return nil
			}

			rows := make([][]string, 0, len(games))
			for _, game := range games {
				source := game.IDSource
				if !game.InManifest {
					source += " (unjournaled)"
				}
				rows = append(rows, []string{
					game.GameID, game.DisplayName, game.Folder, game.Filename, game.Size, source,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"GAME ID", "NAME", "FOLDER", "FILE", "SIZE", "ID SOURCE"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			fmt.Fprintf(out, "%d game(s)\n", len(games))
			return nil
		},
	}
}

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	var filename string

	cmd := &cobra.Command{
		Use:   "remove <target-path> <game-id>",
		Short: "Remove an installed game, its art, and its manifest entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := ctx.services()
			if err != nil {
				return err
			}

			result, err := services.library.Delete(args[0], args[1], filename)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, path := range result.RemovedFiles {
				fmt.Fprintf(out, "removed %s\n", path)
			}
			for _, path := range result.RemovedArt {
				fmt.Fprintf(out, "removed %s\n", path)
			}
			fmt.Fprintf(out, "Removed %d file(s), %d art file(s), %d manifest entr(ies)\n",
				len(result.RemovedFiles), len(result.RemovedArt), result.ManifestEntries)
			return nil
		},
	}

	cmd.Flags().StringVar(&filename, "file", "", "Remove only this destination filename")
	return cmd
}
