// Package web serves the admin UI. Every page renders controller state
// and every form post drives one controller operation.
package web

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/erazemk/katalog/internal/app"
	"github.com/erazemk/katalog/internal/logging"
	webembed "github.com/erazemk/katalog/web"
)

// NewRouter creates the admin UI router with all page routes registered.
func NewRouter(a *app.App, logger *slog.Logger) (http.Handler, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	templates, err := LoadTemplates(logger)
	if err != nil {
		return nil, err
	}

	s := &Server{
		App:       a,
		Templates: templates,
		Logger:    logger,
	}

	static, err := webembed.Static()
	if err != nil {
		return nil, fmt.Errorf("opening static assets: %w", err)
	}

	mux := http.NewServeMux()
	guard := s.GuardMiddleware

	// Static assets.
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	mux.Handle("GET /metrics", a.Metrics.Handler())

	// Public routes.
	mux.HandleFunc("GET /signin", s.SignInPage)
	mux.HandleFunc("POST /signin", s.SignInSubmit)
	mux.HandleFunc("GET /signup", s.SignUpPage)
	mux.HandleFunc("POST /signup", s.SignUpSubmit)
	mux.HandleFunc("POST /signout", s.SignOut)

	// Guarded routes.
	mux.Handle("GET /{$}", guard(http.RedirectHandler("/items", http.StatusSeeOther)))
	mux.Handle("GET /items", guard(http.HandlerFunc(s.ItemsPage)))
	mux.Handle("POST /items/reload", guard(http.HandlerFunc(s.ItemsReload)))
	mux.Handle("POST /items/new", guard(http.HandlerFunc(s.ItemNew)))
	mux.Handle("POST /items/{id}/edit", guard(http.HandlerFunc(s.ItemEdit)))
	mux.Handle("POST /items/{id}/delete", guard(http.HandlerFunc(s.ItemDelete)))
	mux.Handle("POST /confirm", guard(http.HandlerFunc(s.ConfirmSubmit)))

	mux.Handle("POST /form", guard(http.HandlerFunc(s.FormSubmit)))
	mux.Handle("POST /form/photo/clear", guard(http.HandlerFunc(s.FormClearPhoto)))
	mux.Handle("POST /form/cancel", guard(http.HandlerFunc(s.FormCancel)))
	mux.Handle("GET "+app.PreviewPrefix+"{id}", guard(http.HandlerFunc(s.PreviewGet)))

	return LoggingMiddleware(logger)(mux), nil
}
