package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"examexport/config"
	"examexport/storage"
	"examexport/web"

	"github.com/spf13/cobra"
)

var (
	servePort    int
	serveProfile string
	serveDebug   bool
	serveOpen    bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the password-gated export web form",
	Long: `Start an HTTP server with the exam results export form.

Visitors enter the access password once per browser session, pick a start and end
date and download the resulting workbook. The database is reached per export; an
unreachable database at startup is reported but does not stop the server.`,
	Example: `
  # Start server on the configured port (default 8501)
  examexport serve

  # Custom port, basic profile, open the browser
  examexport serve --port 9090 --profile basic --open
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadAndValidate()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = servePort
		}
		if strings.TrimSpace(serveProfile) != "" {
			cfg.Export.Profile = serveProfile
		}

		logger := newServeLogger(serveDebug)

		dialect, err := storage.ParseDialect(cfg.Database.Driver)
		if err != nil {
			return err
		}
		store, err := storage.New(dialect, cfg.Database.DSN())
		if err != nil {
			return err
		}
		defer store.Close()

		pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
		if err := store.Ping(pingCtx); err != nil {
			logger.Warn("database not reachable at startup", "dsn", cfg.Database.RedactedDSN(), "error", err)
		}
		cancelPing()

		handler, err := web.NewServer(store, *cfg, logger)
		if err != nil {
			return err
		}

		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		server := &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.ListenAndServe()
		}()

		listenURL := fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
		logger.Info("listening", "url", listenURL, "driver", cfg.Database.Driver, "profile", cfg.Export.Profile)
		if serveOpen {
			if openErr := openURLInBrowser(listenURL); openErr != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to open browser: %v\n", openErr)
			}
		}

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-sigCh:
			logger.Info("shutting down")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				return fmt.Errorf("shutdown server: %w", err)
			}
			err := <-errCh
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVar(&servePort, "port", 8501, "HTTP port for the web server (overrides server.port)")
	serveCmd.Flags().StringVar(&serveProfile, "profile", "", "Export profile for downloads (overrides export.profile)")
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable debug logging")
	serveCmd.Flags().BoolVar(&serveOpen, "open", false, "Open the form in the default browser")
}

func newServeLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func openURLInBrowser(rawURL string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", rawURL)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", rawURL)
	default:
		cmd = exec.Command("xdg-open", rawURL)
	}
	return cmd.Start()
}
