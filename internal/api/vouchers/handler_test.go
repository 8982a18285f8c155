package vouchers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"qtro-isp/internal/api/httpx"
	"qtro-isp/internal/domain/plans"
	"qtro-isp/internal/domain/tenants"
	"qtro-isp/internal/domain/vouchers"
	"qtro-isp/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type env struct {
	db     *gorm.DB
	router *gin.Engine
	tenant tenants.Tenant
	plan   plans.Plan
}

func setup(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.NewDB(t)

	tenant := tenants.Tenant{Email: "njeri@example.com", BusinessName: "Njeri Net", PhoneNumber: "0700000002"}
	if err := db.Create(&tenant).Error; err != nil {
		t.Fatal(err)
	}
	plan := plans.Plan{TenantID: tenant.ID, Name: "Weekly", Price: decimal.NewFromInt(300), Duration: plans.DurationWeekly, IsActive: true}
	if err := db.Create(&plan).Error; err != nil {
		t.Fatal(err)
	}

	h := NewHandler(db)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(httpx.KeyTenantID, tenant.ID)
		c.Next()
	})
	r.POST("/vouchers/generate", h.Generate)
	r.POST("/vouchers/bulk", h.BulkCreate)
	r.GET("/vouchers", h.List)
	r.DELETE("/vouchers/:id", h.Delete)
	return &env{db: db, router: r, tenant: tenant, plan: plan}
}

func (e *env) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestGenerate(t *testing.T) {
	e := setup(t)

	w := e.do(t, http.MethodPost, "/vouchers/generate", gin.H{"plan_id": e.plan.ID.String(), "count": 25, "prefix": "njr"})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var list []vouchers.Voucher
	e.db.Where("plan_id = ?", e.plan.ID).Find(&list)
	if len(list) != 25 {
		t.Fatalf("vouchers = %d, want 25", len(list))
	}
	for _, v := range list {
		if !strings.HasPrefix(v.Code, "NJR-") || len(v.Code) != len("NJR-")+8 {
			t.Errorf("code %q has wrong shape", v.Code)
		}
		if v.Status != vouchers.StatusAvailable {
			t.Errorf("status = %q", v.Status)
		}
	}
}

func TestGenerateRejects(t *testing.T) {
	e := setup(t)
	tests := []struct {
		name string
		body gin.H
		want int
	}{
		{"zero count", gin.H{"plan_id": e.plan.ID.String(), "count": 0}, http.StatusBadRequest},
		{"too many", gin.H{"plan_id": e.plan.ID.String(), "count": vouchers.MaxBatch + 1}, http.StatusBadRequest},
		{"bad plan id", gin.H{"plan_id": "abc", "count": 1}, http.StatusBadRequest},
		{"foreign plan", gin.H{"plan_id": "6f1c2a9e-0d55-4bb4-8d1e-0e3f1c1b2a3d", "count": 1}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := e.do(t, http.MethodPost, "/vouchers/generate", tt.body); w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestBulkCreateSkipsDuplicates(t *testing.T) {
	e := setup(t)
	if _, err := vouchers.Insert(e.db, e.tenant.ID, e.plan.ID, []string{"EXIST-1"}); err != nil {
		t.Fatal(err)
	}

	w := e.do(t, http.MethodPost, "/vouchers/bulk", gin.H{
		"plan_id": e.plan.ID.String(),
		"codes":   []string{" exist-1 ", "NEW-1", "new-1", "", "NEW-2"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		Created int64 `json:"created"`
		Skipped int64 `json:"skipped"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Created != 2 || resp.Skipped != 1 {
		t.Errorf("resp = %+v, want 2 created 1 skipped", resp)
	}

	if w := e.do(t, http.MethodPost, "/vouchers/bulk", gin.H{"plan_id": e.plan.ID.String(), "codes": []string{" ", ""}}); w.Code != http.StatusBadRequest {
		t.Errorf("blank codes status = %d", w.Code)
	}
}

func TestListAndDelete(t *testing.T) {
	e := setup(t)
	if _, err := vouchers.Insert(e.db, e.tenant.ID, e.plan.ID, []string{"V-1", "V-2", "V-3"}); err != nil {
		t.Fatal(err)
	}
	var sold vouchers.Voucher
	e.db.Where("voucher_code = ?", "V-2").First(&sold)
	e.db.Model(&sold).Update("status", vouchers.StatusSold)

	w := e.do(t, http.MethodGet, "/vouchers?status=available&pageSize=1", nil)
	var page struct {
		Data       []vouchers.Voucher `json:"data"`
		TotalRows  int64              `json:"totalRows"`
		TotalPages int                `json:"totalPages"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatal(err)
	}
	if page.TotalRows != 2 || page.TotalPages != 2 || len(page.Data) != 1 {
		t.Errorf("page = %+v", page)
	}

	if w := e.do(t, http.MethodDelete, "/vouchers/"+sold.ID.String(), nil); w.Code != http.StatusConflict {
		t.Errorf("delete sold status = %d, want 409", w.Code)
	}

	var avail vouchers.Voucher
	e.db.Where("voucher_code = ?", "V-1").First(&avail)
	if w := e.do(t, http.MethodDelete, "/vouchers/"+avail.ID.String(), nil); w.Code != http.StatusOK {
		t.Errorf("delete available status = %d", w.Code)
	}

	var left int64
	e.db.Model(&vouchers.Voucher{}).Count(&left)
	if left != 2 {
		t.Errorf("remaining = %d, want 2", left)
	}
}
