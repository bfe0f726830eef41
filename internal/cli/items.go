package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/erazemk/katalog/internal/app"
	"github.com/erazemk/katalog/internal/itemform"
	"github.com/erazemk/katalog/internal/itemlist"
	"github.com/erazemk/katalog/internal/model"
)

func newItemsCmd(rt *Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "items",
		Short: "Item commands",
	}
	cmd.AddCommand(newItemsListCmd(rt))
	cmd.AddCommand(newItemsShowCmd(rt))
	cmd.AddCommand(newItemsCreateCmd(rt))
	cmd.AddCommand(newItemsUpdateCmd(rt))
	cmd.AddCommand(newItemsDeleteCmd(rt))
	return cmd
}

func newItemsListCmd(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(cmd, false, func(ctx context.Context, a *app.App) error {
				if err := requireSession(ctx, a); err != nil {
					return err
				}
				a.Start(ctx)

				st := a.List.State()
				if st.Error != "" {
					return errors.New(st.Error)
				}

				categories, stores := lookupNames(a)
				return writeOut(cmd, rt, st.Items, func() string {
					rows := make([][]string, 0, len(st.Items))
					for _, it := range st.Items {
						rows = append(rows, []string{
							it.ID,
							it.Name,
							it.Category.LabelIn(categories),
							it.Store.LabelIn(stores),
							formatPrice(it.Price),
							strconv.Itoa(it.Quantity),
							dash(string(it.StockType)),
						})
					}
					if len(rows) == 0 {
						return styleMuted.Render("No items yet.")
					}
					return renderTable([]string{"ID", "Name", "Category", "Store", "Price", "Qty", "Stock"}, rows)
				})
			})
		},
	}
}

func newItemsShowCmd(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(cmd, false, func(ctx context.Context, a *app.App) error {
				if err := requireSession(ctx, a); err != nil {
					return err
				}
				item, err := a.Items.Get(ctx, args[0])
				if err != nil {
					return displayErr(err)
				}
				a.Form.Init(ctx)
				return writeItem(cmd, rt, a, item)
			})
		},
	}
}

// itemFlags are the editable item fields. Only flags the operator set are
// applied to the draft.
type itemFlags struct {
	name        string
	description string
	price       string
	quantity    int
	stock       string
	category    string
	store       string
	photo       string
}

func (f *itemFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "Item name")
	cmd.Flags().StringVar(&f.description, "description", "", "Item description")
	cmd.Flags().StringVar(&f.price, "price", "", "Price (positive number)")
	cmd.Flags().IntVar(&f.quantity, "quantity", 0, "Quantity in stock")
	cmd.Flags().StringVar(&f.stock, "stock", "", "Stock discipline (LIFO or FIFO)")
	cmd.Flags().StringVar(&f.category, "category", "", "Category ID")
	cmd.Flags().StringVar(&f.store, "store", "", "Store ID")
	cmd.Flags().StringVar(&f.photo, "photo", "", "Photo file to upload")
}

// apply copies the set flags onto the form draft and attaches the photo.
func (f *itemFlags) apply(cmd *cobra.Command, form *itemform.Controller) error {
	var stock model.StockType
	if changed(cmd, "stock") {
		s, err := model.ParseStockType(f.stock)
		if err != nil {
			return err
		}
		stock = s
	}
	if changed(cmd, "quantity") && f.quantity < 0 {
		return fmt.Errorf("quantity must not be negative")
	}

	form.Edit(func(d *itemform.Draft) {
		if changed(cmd, "name") {
			d.Name = f.name
		}
		if changed(cmd, "description") {
			d.Description = f.description
		}
		if changed(cmd, "price") {
			d.SetPrice(f.price)
		}
		if changed(cmd, "quantity") {
			d.Quantity = f.quantity
		}
		if changed(cmd, "stock") {
			d.StockType = stock
		}
		if changed(cmd, "category") {
			d.CategoryID = f.category
		}
		if changed(cmd, "store") {
			d.StoreID = f.store
		}
	})

	if f.photo == "" {
		return nil
	}
	file, err := readImageFile(f.photo)
	if err != nil {
		return err
	}
	return form.SelectPhoto(itemform.Photo{
		Name:        file.Name,
		ContentType: file.ContentType,
		Size:        int64(len(file.Data)),
		Data:        file.Data,
	})
}

func newItemsCreateCmd(rt *Runtime) *cobra.Command {
	var f itemFlags

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an item",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(cmd, false, func(ctx context.Context, a *app.App) error {
				if err := requireSession(ctx, a); err != nil {
					return err
				}
				a.List.RequestCreate()
				return submitForm(cmd, rt, a, &f)
			})
		},
	}

	f.register(cmd)
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newItemsUpdateCmd(rt *Runtime) *cobra.Command {
	var f itemFlags

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update an item; unset flags keep their current value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(cmd, false, func(ctx context.Context, a *app.App) error {
				if err := requireSession(ctx, a); err != nil {
					return err
				}
				item, err := a.Items.Get(ctx, args[0])
				if err != nil {
					return displayErr(err)
				}
				if item.ID == "" {
					item.ID = args[0]
				}
				a.List.RequestEdit(*item)
				return submitForm(cmd, rt, a, &f)
			})
		},
	}

	f.register(cmd)
	return cmd
}

// submitForm fills the open form from flags, submits it and prints the
// saved item.
func submitForm(cmd *cobra.Command, rt *Runtime, a *app.App, f *itemFlags) error {
	ctx := cmd.Context()

	saved := make(chan itemform.Completion, 1)
	unsubscribe := a.Form.Subscribe(func(c itemform.Completion) {
		select {
		case saved <- c:
		default:
		}
	})
	defer unsubscribe()

	if err := f.apply(cmd, a.Form); err != nil {
		a.Form.Cancel()
		return err
	}
	if err := a.Form.Submit(ctx); err != nil {
		a.Form.Cancel()
		return displayErr(err)
	}

	done := <-saved
	if rt.JSON {
		return writeOut(cmd, rt, done.Item, nil)
	}

	msg := itemform.MsgCreated
	if done.Mode == itemform.ModeEdit {
		msg = itemform.MsgUpdated
	}
	writeDone(cmd.OutOrStdout(), msg)
	if done.Item == nil {
		return nil
	}
	a.Form.Init(ctx)
	return writeItem(cmd, rt, a, done.Item)
}

func newItemsDeleteCmd(rt *Runtime) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an item after confirmation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(cmd, false, func(ctx context.Context, a *app.App) error {
				if err := requireSession(ctx, a); err != nil {
					return err
				}

				outcome := a.List.RequestDelete(args[0])

				answer := yes
				if !yes {
					dialog := a.Dialog.State().Config
					ok, err := promptConfirm(cmd, dialog.Title, dialog.Message, dialog.ConfirmText, dialog.CancelText)
					if err != nil {
						a.Dialog.Cancel()
						return err
					}
					answer = ok
				}
				if answer {
					a.Dialog.Confirm()
				} else {
					a.Dialog.Cancel()
				}

				var res itemlist.DeleteOutcome
				select {
				case res = <-outcome:
				case <-ctx.Done():
					return ctx.Err()
				}
				if res.Err != nil {
					return displayErr(res.Err)
				}
				if !res.Confirmed {
					fmt.Fprintln(cmd.OutOrStdout(), styleMuted.Render("Nothing deleted"))
					return nil
				}
				writeDone(cmd.OutOrStdout(), itemlist.MsgDeleted)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

// writeItem prints one item as a two-column table.
func writeItem(cmd *cobra.Command, rt *Runtime, a *app.App, item *model.Item) error {
	categories, stores := lookupNames(a)
	return writeOut(cmd, rt, item, func() string {
		return renderTable([]string{"Field", "Value"}, [][]string{
			{"ID", item.ID},
			{"Name", item.Name},
			{"Description", dash(item.Description)},
			{"Price", formatPrice(item.Price)},
			{"Quantity", strconv.Itoa(item.Quantity)},
			{"Stock", dash(string(item.StockType))},
			{"Category", dash(item.Category.LabelIn(categories))},
			{"Store", dash(item.Store.LabelIn(stores))},
			{"Image", a.ImageURL(item.ImageURL)},
		})
	})
}

// lookupNames maps category and store identifiers to names using the
// options the form loaded.
func lookupNames(a *app.App) (categories, stores map[string]string) {
	st := a.Form.State()
	categories = make(map[string]string, len(st.Categories))
	for _, c := range st.Categories {
		categories[c.ID] = c.Name
	}
	stores = make(map[string]string, len(st.Stores))
	for _, s := range st.Stores {
		stores[s.ID] = s.Name
	}
	return categories, stores
}

func formatPrice(p model.Price) string {
	v, ok := p.Float()
	if !ok {
		return "-"
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
