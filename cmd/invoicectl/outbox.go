package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/erp/invoicing/internal/infrastructure/event"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newOutboxCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "Inspect and repair the payment event outbox",
	}

	var page, pageSize int
	dead := &cobra.Command{
		Use:   "dead",
		Short: "List dead-lettered events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := c.openDatabase()
			if err != nil {
				return err
			}
			defer db.Close()

			entries, total, err := event.NewGormOutboxRepository(db.DB).FindDead(cmd.Context(), page, pageSize)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tDOCUMENT\tRETRIES\tUPDATED\tLAST ERROR")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", e.ID, e.AggregateID, e.RetryCount, e.UpdatedAt.Format("2006-01-02 15:04:05"), e.LastError)
			}
			fmt.Fprintf(w, "\n%d dead event(s)\n", total)
			return w.Flush()
		},
	}
	dead.Flags().IntVar(&page, "page", 1, "Page number")
	dead.Flags().IntVar(&pageSize, "page-size", 50, "Entries per page")

	retry := &cobra.Command{
		Use:   "retry <entry-id>...",
		Short: "Move dead-lettered events back to pending",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := c.openDatabase()
			if err != nil {
				return err
			}
			defer db.Close()

			repo := event.NewGormOutboxRepository(db.DB)
			for _, arg := range args {
				id, err := uuid.Parse(arg)
				if err != nil {
					return fmt.Errorf("invalid entry id %q: %w", arg, err)
				}
				entry, err := repo.FindByID(cmd.Context(), id)
				if err != nil {
					return fmt.Errorf("find %s: %w", id, err)
				}
				if err := entry.ResetForRetry(); err != nil {
					return fmt.Errorf("retry %s: %w", id, err)
				}
				if err := repo.Update(cmd.Context(), entry); err != nil {
					return fmt.Errorf("update %s: %w", id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s requeued\n", id)
			}
			return nil
		},
	}

	cmd.AddCommand(dead, retry)
	return cmd
}
