package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List the schematics of the working directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		k, _, err := newKernel()
		if err != nil {
			return err
		}
		defer k.Close()

		files, err := k.Workspace().List()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(files) == 0 {
			fmt.Fprintln(out, dimStyle.Render("No .asc files found."))
			return nil
		}
		for _, f := range files {
			fmt.Fprintln(out, f)
		}
		return nil
	},
}
