package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/storeadmin-dev/storeadmin/internal/analytics"
	"github.com/storeadmin-dev/storeadmin/internal/orders"
	"github.com/storeadmin-dev/storeadmin/internal/storeapi"
)

// NewOrdersCmd creates the orders command group
func NewOrdersCmd() *cobra.Command {
	var serverAlias, search string

	cmd := &cobra.Command{
		Use:     "orders",
		Aliases: []string{"order"},
		Short:   "Browse customer orders",
	}
	cmd.PersistentFlags().StringVar(&serverAlias, "server", "", "Server alias or URL")

	list := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List orders, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext()
			defer cancel()
			return runOrdersList(ctx, serverAlias, search)
		},
	}
	list.Flags().StringVar(&search, "search", "", "Filter by order ID, customer name or email")

	cmd.AddCommand(list)
	return cmd
}

func runOrdersList(ctx context.Context, serverAlias, search string, opts ...Option) error {
	e := newEnv(opts...)

	sess, err := e.authenticated(ctx, serverAlias)
	if err != nil {
		return err
	}

	list, err := orders.List(ctx, sess.API, search)
	if err != nil {
		return errors.New(storeapi.MessageOf(err, "Failed to load orders"))
	}

	if len(list) == 0 {
		e.println("No orders found.")
		return nil
	}

	w := tabwriter.NewWriter(e.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ORDER\tCUSTOMER\tEMAIL\tSTATUS\tTOTAL\tPLACED")
	fmt.Fprintln(w, "─────\t────────\t─────\t──────\t─────\t──────")
	for _, o := range list {
		placed := "-"
		if !o.CreatedAt.IsZero() {
			placed = humanize.Time(o.CreatedAt)
		}
		fmt.Fprintf(w, "#%s\t%s\t%s\t%s\t%s\t%s\n",
			orders.ShortID(o.ID),
			o.Name,
			o.Email,
			strings.ToUpper(o.PaymentStatus),
			analytics.FormatMoney(o.TotalAmount),
			placed,
		)
	}
	w.Flush()
	return nil
}
