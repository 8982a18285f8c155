package cli

import (
	"errors"
	"fmt"

	"qtro-isp/config"
	"qtro-isp/database"
	"qtro-isp/internal/domain/plans"
	"qtro-isp/internal/domain/vouchers"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var vouchersCmd = &cobra.Command{
	Use:   "vouchers",
	Short: "Manage voucher stock",
}

var vouchersGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate random voucher codes for a plan",
	RunE:  runVouchersGenerate,
}

func init() {
	vouchersCmd.AddCommand(vouchersGenerateCmd)

	vouchersGenerateCmd.Flags().String("tenant", "", "Tenant ID (required)")
	vouchersGenerateCmd.Flags().String("plan", "", "Plan ID (required)")
	vouchersGenerateCmd.Flags().Int("count", 10, "Number of codes to generate")
	vouchersGenerateCmd.Flags().String("prefix", vouchers.DefaultPrefix, "Code prefix")
	vouchersGenerateCmd.Flags().Bool("print", false, "Print the generated codes")
	_ = vouchersGenerateCmd.MarkFlagRequired("tenant")
	_ = vouchersGenerateCmd.MarkFlagRequired("plan")
}

func runVouchersGenerate(cmd *cobra.Command, args []string) error {
	dsn, err := config.DatabaseURL()
	if err != nil {
		return err
	}
	db, err := database.Open(dsn, debugSQL)
	if err != nil {
		return err
	}
	return generateVouchers(cmd, db)
}

func generateVouchers(cmd *cobra.Command, db *gorm.DB) error {
	rawTenant, _ := cmd.Flags().GetString("tenant")
	rawPlan, _ := cmd.Flags().GetString("plan")
	count, _ := cmd.Flags().GetInt("count")
	prefix, _ := cmd.Flags().GetString("prefix")
	show, _ := cmd.Flags().GetBool("print")

	tenantID, err := uuid.Parse(rawTenant)
	if err != nil {
		return fmt.Errorf("invalid --tenant: %w", err)
	}
	planID, err := uuid.Parse(rawPlan)
	if err != nil {
		return fmt.Errorf("invalid --plan: %w", err)
	}

	var plan plans.Plan
	if err := db.Where("id = ? AND tenant_id = ?", planID, tenantID).First(&plan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("plan %s not found for tenant %s", planID, tenantID)
		}
		return err
	}

	codes, err := vouchers.GenerateCodes(prefix, count)
	if err != nil {
		return err
	}
	created, err := vouchers.Insert(db, tenantID, plan.ID, codes)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created %d vouchers for %q\n", created, plan.Name)
	if show {
		for _, c := range codes {
			fmt.Fprintln(out, c)
		}
	}
	return nil
}
