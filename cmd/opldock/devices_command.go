package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"opldock/internal/devices"
)

func newDevicesCommand(ctx *commandContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List removable block devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			listing, err := devices.List(cmd.Context())
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(listing))
			for _, device := range listing {
				if !all && !device.UsableTarget() {
					continue
				}
				rows = append(rows, []string{
					device.Path, device.Size, device.FSType, device.Label, device.Mountpoint,
				})
			}

			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, "No usable removable devices found (use --all to list every removable device)")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"DEVICE", "SIZE", "FS", "LABEL", "MOUNTPOINT"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include unmounted and non-partition devices")
	return cmd
}

func newToolsCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "tools",
		Short:       "Check the external tools opldock depends on",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := [][]string{}
			missingRequired := false
			statuses := depsCheck()
			for _, status := range statuses {
				state := "ok"
				if !status.Available {
					state = "missing"
					if !status.Optional {
						missingRequired = true
					}
				}
				kind := "required"
				if status.Optional {
					kind = "optional"
				}
				rows = append(rows, []string{status.Name, kind, state, status.Description})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"TOOL", "KIND", "STATUS", "PURPOSE"},
				rows,
				nil,
			))
			if missingRequired {
				return fmt.Errorf("required tools are missing")
			}
			return nil
		},
	}
}
