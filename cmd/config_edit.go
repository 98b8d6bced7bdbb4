package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open the active config in an editor and validate it afterwards.",
	Long: `Open the active examexport config file in an editor.

The editor is taken from EXAMEXPORT_EDITOR, VISUAL or EDITOR, in that order, and
defaults to vi. A missing file is first created from the Postgres template.

After the editor exits the file is validated. Values from the environment
(APP_PASSWORD, SUPABASE_*) count towards validation, so secrets may stay out of
the file.`,
	Example: `
  # Edit active config
  examexport config edit

  # Edit with VS Code
  EXAMEXPORT_EDITOR="code --wait" examexport config edit
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configFilePath(cfgFile, viper.ConfigFileUsed(), os.UserHomeDir)
		if err != nil {
			return err
		}

		created, err := writeConfigTemplate(path, "postgres")
		if err != nil {
			return err
		}
		if created {
			fmt.Printf("No config file found. Created example config at: %s\n", path)
		}

		editor, err := editorCommand(os.Getenv, path)
		if err != nil {
			return err
		}
		editor.Stdin, editor.Stdout, editor.Stderr = os.Stdin, os.Stdout, os.Stderr
		if err := editor.Run(); err != nil {
			return fmt.Errorf("run editor: %w", err)
		}

		cfg, err := validateConfigFile(path)
		if err != nil {
			return fmt.Errorf("config saved but invalid: %w", err)
		}

		fmt.Printf("Configuration saved and validated: %s\n", path)
		fmt.Printf("Database: %s (%s), profile: %s\n", cfg.Database.RedactedDSN(), cfg.Database.Driver, cfg.Export.Profile)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configEditCmd)
}
