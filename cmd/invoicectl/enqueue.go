package main

import (
	"fmt"

	"github.com/erp/invoicing/internal/infrastructure/event"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newEnqueueCmd(c *cli) *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "enqueue <document-id>...",
		Short: "Queue a payment change event for documents",
		Long: `Enqueue writes a PaymentChanged event to the outbox for each document.
A running server picks it up and reconciles the document.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}

			db, err := c.openDatabase()
			if err != nil {
				return err
			}
			defer db.Close()

			publisher := event.NewPaymentEventPublisher(
				event.NewGormOutboxRepository(db.DB),
				event.NewInvoicingSerializer(),
				c.cfg.Event.MaxRetries,
			)
			for _, id := range ids {
				evt, err := publisher.PaymentChanged(cmd.Context(), id, source)
				if err != nil {
					return fmt.Errorf("enqueue %s: %w", id, err)
				}
				c.log.Info("Payment event queued",
					zap.String("document_id", id.String()),
					zap.String("event_id", evt.EventID().String()),
				)
				fmt.Fprintln(cmd.OutOrStdout(), evt.EventID())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "source", "cli", "Source recorded on the event")
	return cmd
}
