package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"opldock/internal/importer"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "import <target-path> <iso-file>...",
		Short: "Import ISO files onto a USB target",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := ctx.services()
			if err != nil {
				return err
			}

			sources := make([]importer.Source, 0, len(args)-1)
			for _, path := range args[1:] {
				isoPath := path
				sources = append(sources, importer.Source{
					Name: filepath.Base(isoPath),
					Open: func() (io.ReadCloser, error) { return os.Open(isoPath) },
				})
			}

			result := services.pipeline.Run(importer.Request{
				TargetPath: args[0],
				Overwrite:  overwrite,
				Sources:    sources,
			})
			if result.Err != nil {
				return fmt.Errorf("%s: %w", result.Message, result.Err)
			}

			rows := make([][]string, 0, len(result.Imported))
			for _, file := range result.Imported {
				rows = append(rows, []string{
					file.GameID, file.GameName, file.IDSource, file.TargetFolder, file.File, file.Size,
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"GAME ID", "NAME", "ID SOURCE", "FOLDER", "FILE", "SIZE"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
			))
			fmt.Fprintf(out, "Imported %d file(s); manifest at %s\n", len(result.Imported), result.ManifestPath)
			return nil
		},
	}

	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace existing destination files")
	return cmd
}
