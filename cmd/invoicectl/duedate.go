package main

import (
	"fmt"
	"time"

	"github.com/erp/invoicing/internal/domain/invoicing"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

func newDueDateCmd(c *cli) *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "due-date <issue-date> [payment-terms]",
		Short: "Compute the due date for an issue date and payment terms code",
		Example: `  invoicectl due-date 2024-01-31 30DENDMONTH
  invoicectl due-date --list`,
		Args: func(cmd *cobra.Command, args []string) error {
			if list {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.RangeArgs(1, 2)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if list {
				for _, code := range invoicing.PaymentTermsCodes() {
					fmt.Fprintln(out, code)
				}
				return nil
			}

			issue, err := time.Parse(dateLayout, args[0])
			if err != nil {
				return fmt.Errorf("invalid issue date %q, want YYYY-MM-DD: %w", args[0], err)
			}
			var code invoicing.PaymentTermsCode
			if len(args) > 1 {
				code = invoicing.PaymentTermsCode(args[1])
			}

			due, ok := invoicing.ComputeDueDate(issue, code)
			if !ok {
				c.log.Warn("Unknown payment terms, due on issue date", zap.String("payment_terms", string(code)))
			}
			fmt.Fprintln(out, due.Format(dateLayout))
			return nil
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "List known payment terms codes")
	return cmd
}
