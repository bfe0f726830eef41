package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/erazemk/katalog/internal/app"
)

func newCategoriesCmd(rt *Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Category lookups",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(cmd, false, func(ctx context.Context, a *app.App) error {
				if err := requireSession(ctx, a); err != nil {
					return err
				}
				categories, err := a.Categories.List(ctx)
				if err != nil {
					return displayErr(err)
				}
				return writeOut(cmd, rt, categories, func() string {
					rows := make([][]string, 0, len(categories))
					for _, c := range categories {
						rows = append(rows, []string{c.ID, c.Name})
					}
					return renderTable([]string{"ID", "Name"}, rows)
				})
			})
		},
	})
	return cmd
}

func newStoresCmd(rt *Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stores",
		Short: "Store lookups",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stores",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(cmd, false, func(ctx context.Context, a *app.App) error {
				if err := requireSession(ctx, a); err != nil {
					return err
				}
				stores, err := a.Stores.List(ctx)
				if err != nil {
					return displayErr(err)
				}
				return writeOut(cmd, rt, stores, func() string {
					rows := make([][]string, 0, len(stores))
					for _, s := range stores {
						rows = append(rows, []string{s.ID, s.Name, dash(s.Location), dash(s.Description)})
					}
					return renderTable([]string{"ID", "Name", "Location", "Description"}, rows)
				})
			})
		},
	})
	return cmd
}
