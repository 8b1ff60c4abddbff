package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export <backup-file>",
	Short: "Pack a backup and its companion files into a .tar.zst archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		om, err := newManager(cmd)
		if err != nil {
			return err
		}
		out, err := om.ExportBackup(cmd.Context(), args[0], exportOutput)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "archive path (defaults to <backup-file>.tar.zst)")
}
