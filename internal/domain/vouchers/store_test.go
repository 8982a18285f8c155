package vouchers_test

import (
	"testing"

	"qtro-isp/internal/domain/vouchers"
	"qtro-isp/internal/testutil"

	"github.com/google/uuid"
)

func TestInsertSkipsExistingCodes(t *testing.T) {
	db := testutil.NewDB(t)
	tenantID, planID := uuid.New(), uuid.New()

	n, err := vouchers.Insert(db, tenantID, planID, []string{"WIFI-AAAA2222", "WIFI-BBBB3333"})
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if n != 2 {
		t.Fatalf("inserted %d, want 2", n)
	}

	n, err = vouchers.Insert(db, tenantID, planID, []string{"WIFI-AAAA2222", "WIFI-CCCC4444"})
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if n != 1 {
		t.Errorf("inserted %d, want 1 (duplicate skipped)", n)
	}

	// same code under another tenant is fine
	if n, err := vouchers.Insert(db, uuid.New(), planID, []string{"WIFI-AAAA2222"}); err != nil || n != 1 {
		t.Errorf("other tenant insert = %d, %v", n, err)
	}

	counts, err := vouchers.CountAvailable(db, tenantID)
	if err != nil {
		t.Fatalf("CountAvailable() error = %v", err)
	}
	if counts[planID] != 3 {
		t.Errorf("available = %d, want 3", counts[planID])
	}
}
