package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dukerupert/checklist/internal/model"
	"github.com/dukerupert/checklist/internal/store"
)

func newListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every item in insertion order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, db, err := openList(cmd.Context(), app)
			if err != nil {
				return err
			}
			defer db.Close()
			return writeOut(cmd, app, list.Items())
		},
	}
}

func newSearchCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "search <term>",
		Short: "List items whose name contains term (case-insensitive)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, db, err := openList(cmd.Context(), app)
			if err != nil {
				return err
			}
			defer db.Close()
			return writeOut(cmd, app, list.Search(args[0]))
		},
	}
}

func newAddCmd(app *App) *cobra.Command {
	var quantity, category string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, db, err := openList(cmd.Context(), app)
			if err != nil {
				return err
			}
			defer db.Close()

			item, err := list.Add(cmd.Context(), store.ItemInput{Name: args[0], Quantity: quantity, Category: category})
			if item == nil {
				return err
			}
			return writeOut(cmd, app, item)
		},
	}
	cmd.Flags().StringVar(&quantity, "quantity", "", "Quantity (free text, default \"1\")")
	cmd.Flags().StringVar(&category, "category", "", "Category")
	return cmd
}

func newEditCmd(app *App) *cobra.Command {
	var name, quantity, category string

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change the name, quantity or category of an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			list, db, err := openList(cmd.Context(), app)
			if err != nil {
				return err
			}
			defer db.Close()

			current := findItem(list.Items(), id)
			if current == nil {
				return fmt.Errorf("item %d: %w", id, store.ErrNotFound)
			}

			// Flags left unset keep their current values.
			in := store.ItemInput{Name: current.Name, Quantity: current.Quantity, Category: current.CategoryName()}
			if cmd.Flags().Changed("name") {
				in.Name = name
			}
			if cmd.Flags().Changed("quantity") {
				in.Quantity = quantity
			}
			if cmd.Flags().Changed("category") {
				in.Category = category
			}

			item, err := list.Edit(cmd.Context(), id, in)
			if item == nil {
				return err
			}
			return writeOut(cmd, app, item)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "New name")
	cmd.Flags().StringVar(&quantity, "quantity", "", "New quantity")
	cmd.Flags().StringVar(&category, "category", "", "New category (empty clears it)")
	return cmd
}

func newToggleCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Flip the bought flag of an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			list, db, err := openList(cmd.Context(), app)
			if err != nil {
				return err
			}
			defer db.Close()

			item, err := list.Toggle(cmd.Context(), id)
			if item == nil {
				if errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("item %d: %w", id, err)
				}
				return err
			}
			return writeOut(cmd, app, item)
		},
	}
}

func newDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an item (no-op when it does not exist)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			list, db, err := openList(cmd.Context(), app)
			if err != nil {
				return err
			}
			defer db.Close()

			deleted, err := list.Delete(cmd.Context(), id)
			if err != nil && !deleted {
				return err
			}
			return writeOut(cmd, app, map[string]any{"id": id, "deleted": deleted})
		},
	}
}

func newClearBoughtCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-bought",
		Short: "Delete every bought item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, db, err := openList(cmd.Context(), app)
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := list.ClearBought(cmd.Context())
			if err != nil && n == 0 {
				return err
			}
			return writeOut(cmd, app, map[string]int64{"cleared": n})
		},
	}
}

func findItem(items []model.GroceryItem, id int64) *model.GroceryItem {
	for i := range items {
		if items[i].ID == id {
			return &items[i]
		}
	}
	return nil
}
