package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var listRoot, listDatabase string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List backups, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		om, err := newManager(cmd)
		if err != nil {
			return err
		}
		artifacts, err := om.ListBackups(rootOrDefault(om, listRoot))
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "DATABASE\tTIMESTAMP\tSIZE\tWAL\tSHM\tPATH")
		for _, a := range artifacts {
			if listDatabase != "" && a.LogicalName != listDatabase {
				continue
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%t\t%s\n",
				a.LogicalName, a.Timestamp, humanize.IBytes(a.SizeBytes), a.HasWAL, a.HasSHM, a.MainFilePath)
		}
		return tw.Flush()
	},
}

func init() {
	listCmd.Flags().StringVarP(&listRoot, "root", "r", "", "backup root (defaults to backup.output_directory)")
	listCmd.Flags().StringVarP(&listDatabase, "database", "d", "", "only show backups of this logical name")
}
