// Command invoicectl operates the invoicing service from the shell: schema
// migrations, manual reconciliation, payment event injection and outbox
// maintenance.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
