// Package cli implements the katalog command line.
package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/erazemk/katalog/internal/app"
	"github.com/erazemk/katalog/internal/config"
	"github.com/erazemk/katalog/internal/db"
	"github.com/erazemk/katalog/internal/logging"
)

// Runtime carries the persistent flags shared by every command.
type Runtime struct {
	EnvFile  string
	APIURL   string
	DBPath   string
	LogLevel string
	LogFile  string
	JSON     bool

	// HTTPClient replaces the default API client transport. Tests set it.
	HTTPClient *http.Client
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&Runtime{})
}

func newRootCmd(rt *Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "katalog",
		Short:         "Admin client for the catalog backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: strings.TrimSpace(`
  # Sign in and list items
  katalog login --email admin@example.com
  katalog items list

  # Run the web admin UI
  katalog serve --addr 127.0.0.1:8080
`),
	}

	cmd.PersistentFlags().StringVar(&rt.EnvFile, "env-file", ".env", "Read configuration from this dotenv file when it exists")
	cmd.PersistentFlags().StringVar(&rt.APIURL, "api-url", "", "Backend API base URL (overrides KATALOG_API_URL)")
	cmd.PersistentFlags().StringVar(&rt.DBPath, "db", "", "Local state database path (overrides KATALOG_DB)")
	cmd.PersistentFlags().StringVar(&rt.LogLevel, "log-level", "", "Log level: debug, info, warn or error (overrides KATALOG_LOG_LEVEL)")
	cmd.PersistentFlags().StringVar(&rt.LogFile, "log", "", "Also append logs to this file (overrides KATALOG_LOG_FILE)")
	cmd.PersistentFlags().BoolVar(&rt.JSON, "json", false, "Print JSON instead of tables")

	cmd.AddCommand(newServeCmd(rt))
	cmd.AddCommand(newLoginCmd(rt))
	cmd.AddCommand(newSignupCmd(rt))
	cmd.AddCommand(newLogoutCmd(rt))
	cmd.AddCommand(newWhoamiCmd(rt))
	cmd.AddCommand(newItemsCmd(rt))
	cmd.AddCommand(newCategoriesCmd(rt))
	cmd.AddCommand(newStoresCmd(rt))

	return cmd
}

// loadConfig reads the environment and applies flag overrides.
func (rt *Runtime) loadConfig(cmd *cobra.Command, daemon bool) (*config.Config, error) {
	cfg, err := config.Load(rt.EnvFile)
	if err != nil && cfg == nil {
		return nil, err
	}

	if changed(cmd, "api-url") {
		cfg.APIURL = rt.APIURL
	}
	if changed(cmd, "db") {
		cfg.DBPath = rt.DBPath
	}
	if changed(cmd, "log") {
		cfg.LogFile = rt.LogFile
	}
	switch {
	case changed(cmd, "log-level"):
		cfg.LogLevel = rt.LogLevel
	case !daemon && os.Getenv("KATALOG_LOG_LEVEL") == "":
		// One-shot commands print results on stdout; keep info logs out of it.
		cfg.LogLevel = "warn"
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// withApp builds the application for one command run and tears it down
// when fn returns.
func (rt *Runtime) withApp(cmd *cobra.Command, daemon bool, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := rt.loadConfig(cmd, daemon)
	if err != nil {
		return err
	}

	logger, closeLog, err := logging.Setup(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	a, err := app.New(app.Options{
		Config:     cfg,
		DB:         database,
		Logger:     logger,
		HTTPClient: rt.HTTPClient,
	})
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(cmd.Context(), a)
}

// requireSession fails early with a hint when no token is stored.
func requireSession(ctx context.Context, a *app.App) error {
	if !a.Auth.Guard(ctx) {
		return errNotSignedIn
	}
	return nil
}

func changed(cmd *cobra.Command, name string) bool {
	f := cmd.Flag(name)
	return f != nil && f.Changed
}
