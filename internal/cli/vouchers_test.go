package cli

import (
	"bytes"
	"strings"
	"testing"

	"qtro-isp/internal/domain/plans"
	"qtro-isp/internal/domain/tenants"
	"qtro-isp/internal/domain/vouchers"
	"qtro-isp/internal/testutil"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func newGenerateCmd(args map[string]string) *cobra.Command {
	cmd := &cobra.Command{Use: "generate"}
	cmd.Flags().String("tenant", "", "")
	cmd.Flags().String("plan", "", "")
	cmd.Flags().Int("count", 10, "")
	cmd.Flags().String("prefix", vouchers.DefaultPrefix, "")
	cmd.Flags().Bool("print", false, "")
	for k, v := range args {
		_ = cmd.Flags().Set(k, v)
	}
	return cmd
}

func TestGenerateVouchers(t *testing.T) {
	db := testutil.NewDB(t)
	tenant := tenants.Tenant{Email: "cli@example.com", BusinessName: "CLI Net", PhoneNumber: "0700000009"}
	if err := db.Create(&tenant).Error; err != nil {
		t.Fatal(err)
	}
	plan := plans.Plan{TenantID: tenant.ID, Name: "Daily", Price: decimal.NewFromInt(30), Duration: plans.DurationDaily, IsActive: true}
	if err := db.Create(&plan).Error; err != nil {
		t.Fatal(err)
	}

	cmd := newGenerateCmd(map[string]string{
		"tenant": tenant.ID.String(),
		"plan":   plan.ID.String(),
		"count":  "5",
		"prefix": "cli",
		"print":  "true",
	})
	var out bytes.Buffer
	cmd.SetOut(&out)

	if err := generateVouchers(cmd, db); err != nil {
		t.Fatalf("generateVouchers: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 6 {
		t.Fatalf("output lines = %d, want 6:\n%s", len(lines), out.String())
	}
	if !strings.HasPrefix(lines[0], "Created 5 vouchers") {
		t.Errorf("summary = %q", lines[0])
	}
	for _, code := range lines[1:] {
		if !strings.HasPrefix(code, "CLI-") {
			t.Errorf("code = %q", code)
		}
	}

	counts, err := vouchers.CountAvailable(db, tenant.ID)
	if err != nil {
		t.Fatal(err)
	}
	if counts[plan.ID] != 5 {
		t.Errorf("available = %d, want 5", counts[plan.ID])
	}
}

func TestGenerateVouchersRejectsForeignPlan(t *testing.T) {
	db := testutil.NewDB(t)
	cmd := newGenerateCmd(map[string]string{
		"tenant": uuid.NewString(),
		"plan":   uuid.NewString(),
	})
	if err := generateVouchers(cmd, db); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("err = %v, want not found", err)
	}

	cmd = newGenerateCmd(map[string]string{"tenant": "nope", "plan": uuid.NewString()})
	if err := generateVouchers(cmd, db); err == nil {
		t.Error("expected error for invalid tenant id")
	}
}
