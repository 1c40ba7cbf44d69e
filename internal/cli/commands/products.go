package commands

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/storeadmin-dev/storeadmin/internal/analytics"
	"github.com/storeadmin-dev/storeadmin/internal/products"
	"github.com/storeadmin-dev/storeadmin/internal/storeapi"
)

// NewProductsCmd creates the products command group
func NewProductsCmd() *cobra.Command {
	var serverAlias string

	cmd := &cobra.Command{
		Use:     "products",
		Aliases: []string{"product"},
		Short:   "Manage the store catalog",
	}
	cmd.PersistentFlags().StringVar(&serverAlias, "server", "", "Server alias or URL")

	var search string
	list := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List products",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext()
			defer cancel()
			return runProductsList(ctx, serverAlias, search)
		},
	}
	list.Flags().StringVar(&search, "search", "", "Filter by name or category")

	show := &cobra.Command{
		Use:   "show <product-id>",
		Short: "Show one product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext()
			defer cancel()
			return runProductShow(ctx, serverAlias, args[0])
		},
	}

	var yes bool
	del := &cobra.Command{
		Use:   "delete <product-id>",
		Short: "Delete a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext()
			defer cancel()

			var opts []Option
			if yes {
				opts = append(opts, WithConfirm(func(string) (bool, error) { return true, nil }))
			}
			return runProductDelete(ctx, serverAlias, args[0], opts...)
		},
	}
	del.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	cmd.AddCommand(list, show, del)
	return cmd
}

func runProductsList(ctx context.Context, serverAlias, search string, opts ...Option) error {
	e := newEnv(opts...)

	sess, err := e.authenticated(ctx, serverAlias)
	if err != nil {
		return err
	}

	list, err := products.NewService(nil, e.logger).List(ctx, sess.API, search)
	if err != nil {
		return errors.New(storeapi.MessageOf(err, "Failed to load products"))
	}

	if len(list) == 0 {
		e.println("No products found.")
		return nil
	}

	printProducts(e, list)
	return nil
}

func printProducts(e *env, list []storeapi.Product) {
	w := tabwriter.NewWriter(e.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tPRICE\tQTY\tSTOCK")
	fmt.Fprintln(w, "──\t────\t────────\t─────\t───\t─────")
	for _, p := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			p.ID,
			p.Name,
			p.Category,
			analytics.FormatMoney(p.Price),
			p.Quantity,
			products.StockBadge(p),
		)
	}
	w.Flush()
}

func runProductShow(ctx context.Context, serverAlias, productID string, opts ...Option) error {
	e := newEnv(opts...)

	sess, err := e.authenticated(ctx, serverAlias)
	if err != nil {
		return err
	}

	p, err := products.NewService(nil, e.logger).Get(ctx, sess.API, productID)
	if err != nil {
		return errors.New(storeapi.MessageOf(err, "Product not found"))
	}

	w := tabwriter.NewWriter(e.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID:\t%s\n", p.ID)
	fmt.Fprintf(w, "Name:\t%s\n", p.Name)
	fmt.Fprintf(w, "Category:\t%s\n", p.Category)
	fmt.Fprintf(w, "Price:\t%s\n", analytics.FormatMoney(p.Price))
	fmt.Fprintf(w, "Quantity:\t%d (%s)\n", p.Quantity, products.StockBadge(*p))
	if p.Discount > 0 {
		fmt.Fprintf(w, "Discount:\t%g%%\n", p.Discount)
	}
	if p.Ratings > 0 {
		fmt.Fprintf(w, "Ratings:\t%g\n", p.Ratings)
	}
	if p.Description != "" {
		fmt.Fprintf(w, "Description:\t%s\n", p.Description)
	}
	w.Flush()
	return nil
}

func runProductDelete(ctx context.Context, serverAlias, productID string, opts ...Option) error {
	e := newEnv(opts...)

	sess, err := e.authenticated(ctx, serverAlias)
	if err != nil {
		return err
	}

	ok, err := e.confirm(fmt.Sprintf("Delete product %s", productID))
	if err != nil {
		return err
	}
	if !ok {
		e.println("Delete cancelled")
		return nil
	}

	result := products.NewService(nil, e.logger).Delete(ctx, sess.API, productID)
	if !result.Success {
		return errors.New(result.Error)
	}

	e.printf("✓ %s\n", result.Message)
	e.printf("  %d products remaining\n", len(result.Products))
	return nil
}
