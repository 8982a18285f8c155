package vouchers

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Insert stores codes as available vouchers for one plan. Codes the tenant already
// has are skipped; the number actually inserted is returned.
func Insert(db *gorm.DB, tenantID, planID uuid.UUID, codes []string) (int64, error) {
	if len(codes) == 0 {
		return 0, nil
	}
	if len(codes) > MaxBatch {
		return 0, fmt.Errorf("at most %d codes per batch", MaxBatch)
	}

	rows := make([]Voucher, 0, len(codes))
	for _, code := range codes {
		rows = append(rows, Voucher{
			TenantID: tenantID,
			PlanID:   planID,
			Code:     code,
			Status:   StatusAvailable,
		})
	}

	res := db.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&rows, 200)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// CountAvailable returns available voucher counts per plan for a tenant.
func CountAvailable(db *gorm.DB, tenantID uuid.UUID) (map[uuid.UUID]int64, error) {
	var rows []struct {
		PlanID uuid.UUID
		Count  int64
	}
	err := db.Model(&Voucher{}).
		Select("plan_id, COUNT(*) AS count").
		Where("tenant_id = ? AND status = ?", tenantID, StatusAvailable).
		Group("plan_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[uuid.UUID]int64, len(rows))
	for _, r := range rows {
		out[r.PlanID] = r.Count
	}
	return out, nil
}
