/*
Copyright © 2025 riad@rsworld.eu

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"examexport/config"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "examexport",
	Short: "Export exam results for a date range to a styled Excel workbook.",
	Long: `
**********************************************
*              EXAM EXPORT                   *
**********************************************

This tool queries exam results joined with the student roster for an inclusive
date range and produces a downloadable spreadsheet. It runs as a password-gated
web form (serve) or directly from the command line (export).

Database access is configured through the config file or the environment:
- Postgres: SUPABASE_DB_NAME, SUPABASE_USER, SUPABASE_PASSWORD, SUPABASE_HOST, SUPABASE_PORT
- SQLite:   EXAMEXPORT_DB_DRIVER=sqlite, EXAMEXPORT_DB_PATH
A .env file in the working directory is loaded first.
`,
	Example: `
  # Create configuration file
  examexport config create

  # Start the web form on the default port (8501)
  examexport serve

  # Export one week of results
  examexport export --from 2025-03-01 --to 2025-03-07

  # Export a whole month as CSV with the basic column set
  examexport export --month 2025-03 --profile basic --format csv

  # Try everything locally without Postgres
  examexport db seed --db ./examexport.db
  EXAMEXPORT_DB_DRIVER=sqlite EXAMEXPORT_DB_PATH=./examexport.db APP_PASSWORD=secret examexport serve
`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	config.SetDefaults()

	rootCmd.PersistentFlags().StringVar(&cfgFile, "configFile", "", "Config file override (default discovery: $HOME/.examexport.yaml, then ./.examexport.yaml)")
}

// initConfig reads in the .env file, the config file and ENV variables if set.
func initConfig() {
	if err := loadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".examexport" (without extension).
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".examexport")
	}

	viper.AutomaticEnv() // read in environment variables that match

	// The environment alone is a complete configuration, so a missing file is only
	// reported when one was requested explicitly.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Failed to read config file: %v\n", err)
		}
	}
}

// loadDotEnv loads path into the process environment without overriding
// variables that are already set. A missing file is not an error.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
