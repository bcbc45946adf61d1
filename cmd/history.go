package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/archlog/archlog/pkg/storage"
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show changelog entries recorded by earlier runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		pkg, _ := cmd.Flags().GetString("package")
		limit, _ := cmd.Flags().GetInt("limit")

		dbPath := viper.GetString("history.dbpath")
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return fmt.Errorf("history database not found: %s", dbPath)
		}

		db, err := storage.Open(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()

		entries, err := db.ListRecentEntries(context.Background(), pkg, limit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No recorded entries.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "RUN\tRECORDED\tPACKAGE\tTAG\tTYPE\tMESSAGE")
		for _, e := range entries {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
				e.RunID, e.RecordedAt.Format("2006-01-02 15:04"), e.Package, e.VersionTag, e.ReleaseType, e.Message)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().StringP("package", "p", "", "Only show entries of one package")
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of entries to show")
}
