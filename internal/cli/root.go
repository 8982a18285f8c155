package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	debugSQL bool
	rootCmd  *cobra.Command
)

func init() {
	rootCmd = &cobra.Command{
		Use:   "qtro-isp",
		Short: "WiFi voucher sales for hotspot operators",
		Long: `qtro-isp runs the voucher portal API: M-Pesa STK push payments, voucher
allocation, commission accounting and tenant payouts.`,
		RunE:          runServe, // Default action is serve
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVar(&debugSQL, "debug-sql", false, "Log every SQL statement")
}

// Execute runs the root command
func Execute(version string) error {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(vouchersCmd)
	rootCmd.AddCommand(adminCmd)

	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}
