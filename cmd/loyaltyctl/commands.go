package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"mushroom-dashboard/internal/domain"
	"mushroom-dashboard/internal/importer"
	custrepo "mushroom-dashboard/internal/repository/customer"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type envOpener func(ctx context.Context) (*env, error)

// allCustomersLimit bounds a --all reconcile; a farm ledger stays far below it.
const allCustomersLimit = 100000

func newRootCmd(open envOpener) *cobra.Command {
	root := &cobra.Command{
		Use:           "loyaltyctl",
		Short:         "Operate the mushroom farm loyalty ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newImportCmd(open), newReconcileCmd(open), newShowCmd(open))
	return root
}

func newImportCmd(open envOpener) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a sales CSV export and reconcile every customer in it",
		Long: `Import historical sales from a CSV with the header

  date,customer_name,contact_number,product_type,quantity,unit,price_per_unit,payment_type,payment_status

Rows are stored without touching loyalty counters; each customer seen is then
reconciled from the full sales history. Invalid rows are skipped and listed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			e, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			report, err := importer.NewCSVImporter(f, e.services.Sales, e.logger).Run(cmd.Context())
			if report != nil {
				if werr := writeJSON(cmd.OutOrStdout(), report); werr != nil && err == nil {
					err = werr
				}
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "path to the sales CSV")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newReconcileCmd(open envOpener) *cobra.Command {
	var (
		all      bool
		parallel int
	)
	cmd := &cobra.Command{
		Use:   "reconcile [contact-number...]",
		Short: "Rebuild loyalty counters from stored sales",
		Args: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) > 0) {
				return fmt.Errorf("pass contact numbers or --all, not both")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := open(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			keys := args
			if all {
				customers, err := e.stores.Customers.List(ctx, custrepo.ListFilter{Limit: allCustomersLimit})
				if err != nil {
					return fmt.Errorf("list customers: %w", err)
				}
				keys = make([]string, 0, len(customers))
				for _, c := range customers {
					keys = append(keys, c.Key)
				}
			}

			results := make([]domain.Customer, len(keys))
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(max(parallel, 1))
			for i, key := range keys {
				g.Go(func() error {
					c, err := e.services.Sales.Reconcile(gctx, key)
					if err != nil {
						return fmt.Errorf("reconcile %s: %w", key, err)
					}
					results[i] = *c
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			e.logger.Info("reconciled customers", zap.Int("count", len(keys)))
			return writeJSON(cmd.OutOrStdout(), results)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "reconcile every customer")
	cmd.Flags().IntVar(&parallel, "parallel", 4, "customers reconciled concurrently")
	return cmd
}

func newShowCmd(open envOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "show <contact-number>",
		Short: "Print a customer's loyalty record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			c, err := e.services.Ledger.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), c)
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
