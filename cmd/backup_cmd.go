package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/kebairia/shelfsafe/internal/backup"
)

var backupSource, backupName, backupRoot string

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Backup the configured databases, then apply retention",
	Long: `Backs up the primary database and, when enabled, the secondary one under a
shared timestamp, then removes date folders beyond retention.keep_last.
With --source, backs up that single file instead and skips retention.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		om, err := newManager(cmd)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if backupSource != "" {
			target := backup.Target{
				SourcePath:            backupSource,
				LogicalName:           backupName,
				IncludeCompanionFiles: om.Config().Backup.IncludeCompanionFiles,
			}
			art, err := om.CreateBackup(cmd.Context(), target, rootOrDefault(om, backupRoot), "").Artifact()
			if err != nil {
				return fmt.Errorf("backup %s: %w", backupSource, err)
			}
			fmt.Fprintf(out, "%s\t%s\n", art.MainFilePath, humanize.IBytes(art.SizeBytes))
			return nil
		}

		outcome := om.CreateBackups(cmd.Context())
		printResult(cmd, "primary", outcome.Primary)
		if outcome.Secondary != nil {
			printResult(cmd, "secondary", *outcome.Secondary)
		}
		if outcome.Deleted > 0 {
			fmt.Fprintf(out, "retention: removed %d old folder(s)\n", outcome.Deleted)
		}
		if err := outcome.Primary.Err(); err != nil {
			return fmt.Errorf("primary backup: %w", err)
		}
		return nil
	},
}

func printResult(cmd *cobra.Command, role string, r backup.Result) {
	art, err := r.Artifact()
	if err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\tFAILED (%s)\t%v\n", role, backup.KindOf(err), err)
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", role, filepath.Base(art.MainFilePath), humanize.IBytes(art.SizeBytes))
}

func init() {
	backupCmd.Flags().StringVarP(&backupSource, "source", "s", "", "back up this database file only")
	backupCmd.Flags().StringVarP(&backupName, "name", "n", "", "logical name for --source (defaults to its file name)")
	backupCmd.Flags().StringVarP(&backupRoot, "root", "r", "", "backup root (defaults to backup.output_directory)")
}
