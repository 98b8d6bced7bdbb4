package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configCreateDriver string

var configCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a configuration file from the example template.",
	Long: `Write a commented configuration template for the chosen database driver.

An existing file is never overwritten. The template leaves the access password
and the database password empty; they can be filled in later or supplied through
APP_PASSWORD and SUPABASE_PASSWORD in the environment or a .env file.`,
	Example: `
  # Postgres template at $HOME/.examexport.yaml
  examexport config create

  # Local SQLite setup next to the demo database
  examexport --configFile ./.examexport.yaml config create --driver sqlite
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configFilePath(cfgFile, viper.ConfigFileUsed(), os.UserHomeDir)
		if err != nil {
			return err
		}

		created, err := writeConfigTemplate(path, configCreateDriver)
		if err != nil {
			return err
		}
		if !created {
			fmt.Printf("Config file already exists at: %s\n", path)
			return nil
		}

		fmt.Printf("New %s config file created at: %s\n", configCreateDriver, path)
		fmt.Println("Set app.password (or APP_PASSWORD) before running serve or export.")
		return nil
	},
}

func init() {
	configCmd.AddCommand(configCreateCmd)

	configCreateCmd.Flags().StringVar(&configCreateDriver, "driver", "postgres", "Database driver for the template: postgres|sqlite")
}
