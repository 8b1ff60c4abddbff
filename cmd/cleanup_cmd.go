package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	cleanupRoot string
	cleanupKeep int
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete date folders beyond the retention count",
	Long: `Keeps the newest --keep date folders under the backup root and deletes the rest,
with every backup inside them. --keep must be at least 1: a zero or negative count is
rejected rather than deleting every folder.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		om, err := newManager(cmd)
		if err != nil {
			return err
		}
		keep := om.Config().Retention.KeepLast
		if cmd.Flags().Changed("keep") {
			keep = cleanupKeep
		}

		deleted, err := om.CleanupOldBackups(rootOrDefault(om, cleanupRoot), om.Databases().Primary.GetName(), keep)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d folder(s), kept up to %d\n", deleted, keep)
		return nil
	},
}

func init() {
	cleanupCmd.Flags().StringVarP(&cleanupRoot, "root", "r", "", "backup root (defaults to backup.output_directory)")
	cleanupCmd.Flags().IntVarP(&cleanupKeep, "keep", "k", 0, "folders to keep, at least 1 (defaults to retention.keep_last)")
}
