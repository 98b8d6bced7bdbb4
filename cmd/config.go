package cmd

import "github.com/spf13/cobra"

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage examexport configuration file values.",
	Long: `Create, edit, display, and delete the examexport configuration file.

The configuration stores the access password, the database connection and server options:
- app.password / app.password_hash
- database.driver, database.name, database.user, database.password, database.host, database.port, database.sslmode
- database.path (sqlite)
- server.port, server.session_ttl
- export.profile

Every key can also be set through its environment variable (see "examexport --help").`,
	Example: `
  # Create default config in $HOME/.examexport.yaml
  examexport config create

  # Show active config and source file
  examexport config show

  # Open active config in editor (creates example if missing)
  examexport config edit

  # Delete active config file
  examexport config delete
`,
}

func init() {
	rootCmd.AddCommand(configCmd)
}
