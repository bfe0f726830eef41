// Package web embeds the admin UI page templates and static assets.
package web

import (
	"embed"
	"io/fs"
)

//go:embed static templates
var assets embed.FS

// Static returns the assets served under /static/.
func Static() (fs.FS, error) {
	return fs.Sub(assets, "static")
}

// Pages returns the layout and page templates.
func Pages() (fs.FS, error) {
	return fs.Sub(assets, "templates")
}
