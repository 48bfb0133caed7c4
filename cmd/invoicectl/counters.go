package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/erp/invoicing/internal/domain/invoicing"
	"github.com/erp/invoicing/internal/infrastructure/cache"
	"github.com/erp/invoicing/internal/infrastructure/persistence"
	"github.com/spf13/cobra"
)

func newCountersCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "counters [name]...",
		Short: "Show the last value handed out by each numbering counter",
		Long: `Counters reads the configured numbering backend (numbering.backend)
without advancing it. With no names every counter is shown.`,
		Example: `  invoicectl counters
  invoicectl counters INVOICE`,
		RunE: func(cmd *cobra.Command, args []string) error {
			names := args
			if len(names) == 0 {
				names = invoicing.Counters()
			}

			db, err := c.openDatabase()
			if err != nil {
				return err
			}
			defer db.Close()

			backends := cache.NewBackendFactory(c.cfg.Redis, cache.WithLogger(c.log))
			defer backends.Close()

			store, err := backends.CreateCounterStore(cmd.Context(), c.cfg.Numbering.Backend, persistence.NewGormSequenceStore(db.DB))
			if err != nil {
				return err
			}
			allocator := invoicing.NewSequenceAllocator(store, c.cfg.Numbering.SequenceWidth)
			return printCounters(cmd.Context(), cmd.OutOrStdout(), allocator, names)
		},
	}
}

func printCounters(ctx context.Context, out io.Writer, allocator *invoicing.SequenceAllocator, names []string) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "COUNTER\tVALUE\tFORMATTED")
	for _, name := range names {
		seq, err := allocator.Current(ctx, name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%d\t%s\n", name, seq.Value, seq.Formatted)
	}
	return w.Flush()
}
