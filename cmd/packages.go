package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/archlog/archlog/pkg/pacman"
)

// packagesCmd represents the packages command
var packagesCmd = &cobra.Command{
	Use:   "packages",
	Short: "List the pending package upgrades",
	RunE: func(cmd *cobra.Command, args []string) error {
		updates, err := pacman.CheckUpdates()
		if err != nil {
			return err
		}
		if len(updates) == 0 {
			fmt.Println("No packages to upgrade.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, u := range updates {
			fmt.Fprintf(w, "%s\t%s\t->\t%s\n", u.Name, u.Current, u.New)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(packagesCmd)
}
