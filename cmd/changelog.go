package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/archlog/archlog/internal/utils"
	"github.com/archlog/archlog/pkg/changelog"
	"github.com/archlog/archlog/pkg/pacman"
	"github.com/archlog/archlog/pkg/storage"
)

// changelogCmd represents the changelog command
var changelogCmd = &cobra.Command{
	Use:   "changelog",
	Short: "Build the changelog of the pending package upgrades",
	Long: `Lists the pending upgrades reported by checkupdates, lets you pick
which ones to inspect and writes their reconstructed changelogs to a JSON
file, one file per day.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		outDir, _ := cmd.Flags().GetString("output")

		updates, err := pacman.CheckUpdates()
		if err != nil {
			return err
		}
		if len(updates) == 0 {
			fmt.Println("No packages to upgrade.")
			return nil
		}

		packages := buildPackages(updates)
		if len(packages) == 0 {
			return fmt.Errorf("none of the %d pending upgrades could be parsed", len(updates))
		}

		printUpdates(packages)

		selected := packages
		if !all {
			selected, err = selectPackages(packages, os.Stdin)
			if err != nil {
				return err
			}
		}
		if len(selected) == 0 {
			fmt.Println("Nothing selected.")
			return nil
		}

		if outDir == "" {
			outDir = viper.GetString("changelog-dir")
		}
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return err
		}
		path := filepath.Join(outDir, time.Now().Format("2006-01-02")+"-changelog.json")
		// One file per day; a rerun starts it over.
		_ = os.Remove(path)
		writer := changelog.NewWriter(path)

		agg := changelog.NewAggregator(changelog.Options{
			EnabledRepositories: enabledRepositories(),
			TagThreshold:        viper.GetInt("matching.tag-threshold"),
			URLSimilarity:       viper.GetInt("matching.url-similarity"),
			ScrapeTimeout:       time.Duration(viper.GetInt("webscraper-delay")) * time.Second,
		})

		wording := viper.GetString("architecture-wording")
		var recorded []storage.Entry

		for _, pkg := range selected {
			arch, err := pacman.Architecture(pkg.Name, wording)
			if err != nil {
				utils.Log.Error("Architecture of ", pkg.Name, " could not be determined, skipping it: ", err)
				continue
			}
			pkg.Architecture = arch

			utils.Log.Info("Building changelog for ", pkg.Name, " (", pkg.CurrentVersion, " -> ", pkg.NewVersion, ")")
			entries := agg.Build(pkg)

			if err := writer.Write(pkg, entries); err != nil {
				return err
			}
			fmt.Printf("%s: %d entries\n", pkg.Name, len(entries))

			for _, e := range entries {
				recorded = append(recorded, storage.Entry{
					Package:     e.Package,
					VersionTag:  e.VersionTag,
					ReleaseType: string(e.Type),
					Message:     e.Message,
					CommitURL:   e.CommitURL,
					CompareURL:  e.CompareURL,
				})
			}
		}

		fmt.Println("Changelog written to", path)

		if viper.GetBool("history.enabled") && len(recorded) > 0 {
			db, err := storage.Open(viper.GetString("history.dbpath"))
			if err != nil {
				utils.Log.Error("History database could not be opened: ", err)
				return nil
			}
			defer db.Close()
			if _, err := db.RecordRun(context.Background(), recorded); err != nil {
				utils.Log.Error("Recording the run failed: ", err)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(changelogCmd)
	changelogCmd.Flags().BoolP("all", "a", false, "Build changelogs for every pending upgrade without asking")
	changelogCmd.Flags().StringP("output", "o", "", "Directory the changelog file is written to (defaults to the configured changelog-dir)")
}

func buildPackages(updates []pacman.Update) []*changelog.Package {
	var packages []*changelog.Package
	for _, u := range updates {
		pkg, err := changelog.NewPackage(u.Name, u.Current, u.New)
		if err != nil {
			utils.Log.Error("Skipping unparsable update line: ", err)
			continue
		}
		packages = append(packages, pkg)
	}
	return packages
}

func printUpdates(packages []*changelog.Package) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for i, pkg := range packages {
		fmt.Fprintf(w, "%d\t%s\t%s\t->\t%s\n", i+1, pkg.Name, pkg.CurrentVersion, pkg.NewVersion)
	}
	w.Flush()
}

// selectPackages reads a whitespace-separated index selection, 0 meaning all.
func selectPackages(packages []*changelog.Package, in io.Reader) ([]*changelog.Package, error) {
	fmt.Print("Choose packages (0 = all, indices separated by spaces): ")

	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return nil, scanner.Err()
	}

	var selected []*changelog.Package
	for _, field := range strings.Fields(scanner.Text()) {
		index, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("invalid selection %q", field)
		}
		if index == 0 {
			return packages, nil
		}
		if index < 1 || index > len(packages) {
			return nil, fmt.Errorf("selection %d is out of range", index)
		}
		selected = append(selected, packages[index-1])
	}
	return selected, nil
}
