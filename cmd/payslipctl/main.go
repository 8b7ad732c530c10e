// Command payslipctl runs extractions from the command line against a local
// SQLite usage ledger.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"payslipx/internal/config"
	"payslipx/internal/repository/sqlite"
)

type options struct {
	ledgerPath string
	deviceID   string
}

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:          "payslipctl",
		Short:        "Extract payslips and inspect LLM usage",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.ledgerPath, "ledger", "", "usage ledger file (default from PAYSLIPX_STORAGE_SQLITE_PATH)")
	root.PersistentFlags().StringVar(&opts.deviceID, "device", "cli", "device id recorded in the ledger")

	root.AddCommand(newExtractCmd(opts), newUsageCmd(opts))
	return root
}

// openLedger resolves the ledger path from the flag or the config.
func openLedger(opts *options, cfg *config.Config) (*sqlite.DB, error) {
	path := opts.ledgerPath
	if path == "" {
		path = cfg.Storage.SQLitePath
	}
	db, err := sqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening usage ledger: %w", err)
	}
	return db, nil
}
