package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/erazemk/katalog/internal/client"
)

var errNotSignedIn = errors.New("not signed in (run: katalog login)")

var (
	colorBorder = lipgloss.Color("#6c757d")
	colorHeader = lipgloss.Color("#d16d7a")

	styleHeader = lipgloss.NewStyle().Foreground(colorHeader).Bold(true).Padding(0, 1)
	styleCell   = lipgloss.NewStyle().Padding(0, 1)
	styleMuted  = lipgloss.NewStyle().Foreground(colorBorder)
	styleOK     = lipgloss.NewStyle().Foreground(lipgloss.Color("#2e8b57")).Bold(true)
)

// renderTable draws rows under headers with a light border.
func renderTable(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorBorder)).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader
			}
			return styleCell
		}).
		Headers(headers...).
		Rows(rows...)
	return t.String()
}

// writeOut prints v as indented JSON when --json is set, otherwise as the
// table built by render.
func writeOut(cmd *cobra.Command, rt *Runtime, v any, render func() string) error {
	out := cmd.OutOrStdout()
	if rt.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprintln(out, render())
	return err
}

// writeDone prints a one-line confirmation.
func writeDone(w io.Writer, msg string) {
	fmt.Fprintln(w, styleOK.Render(msg))
}

// displayErr turns backend errors into the message the operator sees.
func displayErr(err error) error {
	var apiErr *client.Error
	if errors.As(err, &apiErr) {
		return errors.New(apiErr.Message)
	}
	return err
}
