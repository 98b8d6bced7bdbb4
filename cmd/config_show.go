package cmd

import (
	"fmt"
	"io"
	"os"

	"examexport/config"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show active configuration values.",
	Long: `Display the currently loaded configuration and the resolved config file path.

This command validates the configuration before printing values. Secrets are masked.`,
	Example: `
  # Show active configuration
  examexport config show
`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadAndValidate()
		if err != nil {
			fmt.Println("Invalid config:", err)
			return
		}

		if configPath := viper.ConfigFileUsed(); configPath != "" {
			fmt.Println("Config file loaded from:", configPath)
		} else {
			fmt.Println("No config file in use, values come from defaults and environment.")
		}
		printConfig(os.Stdout, *cfg)
	},
}

func printConfig(out io.Writer, cfg config.Config) {
	fmt.Fprintln(out, "Configuration:")
	fmt.Fprintf(out, "app.password: %s\n", maskSecret(cfg.App.Password))
	fmt.Fprintf(out, "app.password_hash: %s\n", maskSecret(cfg.App.PasswordHash))
	fmt.Fprintf(out, "database.driver: %s\n", cfg.Database.Driver)
	if cfg.Database.Driver == "sqlite" {
		fmt.Fprintf(out, "database.path: %s\n", cfg.Database.Path)
	} else {
		fmt.Fprintf(out, "database.name: %s\n", cfg.Database.Name)
		fmt.Fprintf(out, "database.user: %s\n", cfg.Database.User)
		fmt.Fprintf(out, "database.password: %s\n", maskSecret(cfg.Database.Password))
		fmt.Fprintf(out, "database.host: %s\n", cfg.Database.Host)
		fmt.Fprintf(out, "database.port: %d\n", cfg.Database.Port)
		fmt.Fprintf(out, "database.sslmode: %s\n", cfg.Database.SSLMode)
	}
	fmt.Fprintf(out, "database.dsn: %s\n", cfg.Database.RedactedDSN())
	fmt.Fprintf(out, "server.port: %d\n", cfg.Server.Port)
	fmt.Fprintf(out, "server.session_ttl: %s\n", cfg.Server.SessionTTL)
	fmt.Fprintf(out, "export.profile: %s\n", cfg.Export.Profile)
}

func maskSecret(value string) string {
	if value == "" {
		return "(not set)"
	}
	return "(set)"
}

func init() {
	configCmd.AddCommand(configShowCmd)
}
