package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/archlog/archlog/internal/utils"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

var cfgFile string

const (
	LOGO = `	                  _     _
	  __ _ _ __ ___ | |__ | | ___   __ _
	 / _` + "`" + ` | '__/ __|| '_ \| |/ _ \ / _` + "`" + ` |
	| (_| | | | (__ | | | | | (_) | (_| |
	 \__,_|_|  \___||_| |_|_|\___/ \__, |
	                               |___/

`
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "archlog",
	Short: "Changelog viewer for upgradable Arch Linux packages.",
	Long: LOGO + `archlog reconstructs the changelog of every pending package upgrade:
the packaging commits from the Arch GitLab recipe repositories and the
upstream commits from GitHub, GitLab instances, invent.kde.org or
git.kernel.org.`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.archlog.yaml)")

	// Global flags
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".archlog")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; create it with defaults.
			home, _ := homedir.Dir()
			configPath := home + "/.archlog.yaml"
			if err := viper.SafeWriteConfigAs(configPath); err != nil {
				fmt.Printf("Error creating config file: %s", err)
			}
		}
	}

	home, _ := homedir.Dir()

	viper.SetDefault("arch-repositories", []map[string]any{
		{"name": "core", "enabled": true},
		{"name": "extra", "enabled": true},
		{"name": "multilib", "enabled": true},
		{"name": "core-testing", "enabled": false},
		{"name": "extra-testing", "enabled": false},
		{"name": "multilib-testing", "enabled": false},
	})
	viper.SetDefault("architecture-wording", "Architecture")
	viper.SetDefault("webscraper-delay", 10)
	viper.SetDefault("matching.tag-threshold", 70)
	viper.SetDefault("matching.url-similarity", 80)
	viper.SetDefault("changelog-dir", filepath.Join(home, ".archlog"))
	viper.SetDefault("history.enabled", true)
	viper.SetDefault("history.dbpath", filepath.Join(home, ".archlog", "history.sqlite"))

	// Init log library
	levelString, _ := rootCmd.PersistentFlags().GetString("loglevel")
	utils.SetLogLevel(levelString)
}

// enabledRepositories reads the repository toggle list from the config.
func enabledRepositories() []string {
	var enabled []string
	raw, ok := viper.Get("arch-repositories").([]any)
	if !ok {
		// Defaults are stored typed; a config file yields []any instead.
		typed, ok := viper.Get("arch-repositories").([]map[string]any)
		if !ok {
			return nil
		}
		for _, repo := range typed {
			raw = append(raw, any(repo))
		}
	}

	for _, item := range raw {
		repo, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name, _ := repo["name"].(string)
		flag, _ := repo["enabled"].(bool)
		if name != "" && flag {
			enabled = append(enabled, name)
		}
	}
	return enabled
}
