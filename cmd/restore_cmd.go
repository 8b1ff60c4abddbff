package cmd

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/kebairia/shelfsafe/internal/restore"
)

var restoreTarget, restoreDatabase string

var restoreCmd = &cobra.Command{
	Use:   "restore [backup-file]",
	Short: "Restore a backup over a live database",
	Long: `Validates a backup and restores it over a live database file. Whatever is at
the target is backed up first; nothing is overwritten if that safety backup fails.

  shelfsafe restore <backup-file> --target <db-file>
  shelfsafe restore --database <name>   restores the newest backup of a configured database`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		om, err := newManager(cmd)
		if err != nil {
			return err
		}

		var res restore.Result
		switch {
		case len(args) == 1 && restoreTarget != "":
			res, err = om.RestoreBackup(cmd.Context(), args[0], restoreTarget)
		case len(args) == 1 && restoreDatabase != "":
			db, ok := om.Databases().Lookup(restoreDatabase)
			if !ok {
				return fmt.Errorf("no configured database named %q", restoreDatabase)
			}
			res, err = om.RestoreDatabase(cmd.Context(), db, args[0])
		case len(args) == 0 && restoreDatabase != "":
			res, err = om.RestoreLatest(cmd.Context(), restoreDatabase)
		default:
			return errors.New("give a backup file with --target or --database, or --database alone")
		}
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "restored %s (%s)\n", res.RestoredPath, humanize.IBytes(res.RestoredSizeBytes))
		if res.SafetyBackupPath != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "previous state saved to %s\n", res.SafetyBackupPath)
		}
		return nil
	},
}

func init() {
	restoreCmd.Flags().StringVarP(&restoreTarget, "target", "t", "", "database file to overwrite")
	restoreCmd.Flags().StringVarP(&restoreDatabase, "database", "d", "", "configured database to restore")
}
