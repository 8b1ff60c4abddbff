package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kebairia/shelfsafe/internal/backup"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Check that backup files are intact SQLite databases",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		om, err := newManager(cmd)
		if err != nil {
			return err
		}
		failed := 0
		for _, path := range args {
			if err := om.ValidateBackup(cmd.Context(), path); err != nil {
				failed++
				fmt.Fprintf(cmd.OutOrStdout(), "INVALID\t%s\t%s\t%v\n", path, backup.KindOf(err), err)
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "OK\t%s\n", path)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d file(s) failed validation", failed, len(args))
		}
		return nil
	},
}
