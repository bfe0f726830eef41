// Package app wires the client, the local state and the controllers into
// one object owned by the process.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/erazemk/katalog/internal/auth"
	"github.com/erazemk/katalog/internal/client"
	"github.com/erazemk/katalog/internal/config"
	"github.com/erazemk/katalog/internal/confirm"
	"github.com/erazemk/katalog/internal/flash"
	"github.com/erazemk/katalog/internal/itemform"
	"github.com/erazemk/katalog/internal/itemlist"
	"github.com/erazemk/katalog/internal/logging"
	"github.com/erazemk/katalog/internal/metrics"
	"github.com/erazemk/katalog/internal/modal"
	"github.com/erazemk/katalog/internal/model"
	"github.com/erazemk/katalog/internal/preview"
	"github.com/erazemk/katalog/internal/store"
)

// PreviewPrefix is the URL prefix preview handles are served under.
const PreviewPrefix = "/previews/"

// Options configures New.
type Options struct {
	Config     *config.Config
	DB         *sql.DB
	Logger     *slog.Logger
	HTTPClient *http.Client
}

// App is the composition root. It owns the single modal coordinator and
// hands it to both controllers.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *metrics.Metrics

	Client     *client.Client
	Tokens     *store.TokenStore
	Auth       *auth.Service
	Items      *client.Resource[model.Item]
	Categories *client.Resource[model.Category]
	Stores     *client.Resource[model.Store]

	Modal    *modal.Coordinator
	Previews *preview.Registry
	Dialog   *confirm.Dialog
	Flash    *flash.Banner
	Form     *itemform.Controller
	List     *itemlist.Controller
}

// New builds the application graph.
func New(opts Options) (*App, error) {
	if opts.Config == nil {
		return nil, errors.New("config is required")
	}
	if opts.DB == nil {
		return nil, errors.New("database is required")
	}
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Metrics:  metrics.New(),
		Tokens:   store.NewTokenStore(opts.DB),
		Modal:    modal.New(),
		Previews: preview.NewRegistry(PreviewPrefix),
		Dialog:   confirm.New(confirm.BusyDelay),
		Flash:    flash.New(cfg.FlashDuration),
	}

	c, err := client.New(client.Config{
		BaseURL:    cfg.APIURL,
		HTTPClient: httpClient,
		Tokens:     a.Tokens,
		Limiter:    limiter,
		Logger:     logger.With("component", "client"),
		Metrics:    a.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("creating client: %w", err)
	}
	a.Client = c
	a.Auth = &auth.Service{Client: c, Tokens: a.Tokens, Logger: logger.With("component", "auth")}
	a.Items = client.Items(c)
	a.Categories = client.Categories(c)
	a.Stores = client.Stores(c)

	a.Form = itemform.New(itemform.Options{
		Items:        a.Items,
		Categories:   a.Categories,
		Stores:       a.Stores,
		Modal:        a.Modal,
		Previews:     a.Previews,
		ImageBaseURL: cfg.APIURL,
		CloseDelay:   cfg.CloseDelay,
		Logger:       logger,
		Metrics:      a.Metrics,
	})
	a.List = itemlist.New(itemlist.Options{
		Items:       a.Items,
		Form:        a.Form,
		Modal:       a.Modal,
		Confirm:     a.Dialog,
		Flash:       a.Flash,
		ReloadDelay: cfg.ReloadDelay,
		Logger:      logger,
		Metrics:     a.Metrics,
	})
	return a, nil
}

// Start loads the form options and the first page of items. Failures are
// recorded in controller state rather than returned.
func (a *App) Start(ctx context.Context) {
	a.Form.Init(ctx)
	_ = a.List.Load(ctx)
}

// ImageURL resolves a stored image path against the API origin.
func (a *App) ImageURL(path string) string {
	return a.Client.ImageURL(path)
}

// Close tears every controller down.
func (a *App) Close() {
	a.List.Close()
	a.Form.Close()
	a.Dialog.Close()
	a.Flash.Stop()
}
