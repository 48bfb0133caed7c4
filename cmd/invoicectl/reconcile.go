package main

import (
	"encoding/json"
	"fmt"

	appinvoicing "github.com/erp/invoicing/internal/application/invoicing"
	"github.com/erp/invoicing/internal/infrastructure/cache"
	"github.com/erp/invoicing/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newReconcileCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile <document-id>...",
		Short: "Recompute the payment state of documents now",
		Long: `Reconcile sums the bank-attached transactions allocated to each document
and rewrites its total paid and status. Running it twice is harmless.`,
		Example: `  invoicectl reconcile 6f1c2a8e-6b47-4c1f-9a8e-2a3cfe0f4d11`,
		Args:    cobra.MinimumNArgs(1),
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

			backends := cache.NewBackendFactory(c.cfg.Redis, cache.WithLogger(c.log), cache.WithInMemoryFallback(true))
			defer backends.Close()

			locker, err := backends.CreateDocumentLocker(cmd.Context(), c.cfg.Reconciliation)
			if err != nil {
				return err
			}

			service := appinvoicing.NewReconciliationService(
				persistence.NewGormDocumentRepository(db.DB),
				persistence.NewGormTransactionLedger(db.DB),
				c.log,
				appinvoicing.WithLocker(locker),
				appinvoicing.WithMaxConflictRetries(c.cfg.Reconciliation.MaxConflictRetries),
			)

			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, id := range ids {
				result, err := service.Reconcile(cmd.Context(), id)
				if err != nil {
					return fmt.Errorf("reconcile %s: %w", id, err)
				}
				if err := enc.Encode(result); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func parseIDs(args []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(args))
	for _, arg := range args {
		id, err := uuid.Parse(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid document id %q: %w", arg, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
