package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"qtro-isp/config"
	"qtro-isp/internal/app/http/middleware"
	"qtro-isp/internal/domain/tenants"
	"qtro-isp/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const testSecret = "test-secret"

func newRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.NewDB(t)
	cfg := &config.Config{
		JWTSecret:             testSecret,
		AppURL:                "https://wifi.example.com",
		DefaultCommissionRate: decimal.NewFromInt(8),
		DefaultMinimumPayout:  decimal.NewFromInt(1000),
	}

	h := NewHandler(db, cfg, nil)
	r := gin.New()
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	r.POST("/change-password", middleware.AuthMiddleware(testSecret), h.ChangePassword)
	return r, db
}

func post(t *testing.T, r *gin.Engine, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterCreatesTenantWithPortal(t *testing.T) {
	r, db := newRouter(t)

	w := post(t, r, "/auth/register", "", gin.H{
		"business_name": "Kiprono Fast WiFi",
		"phone_number":  "0722333444",
		"email":         "Kiprono@Example.com",
		"password":      "hotspot2024",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		Token     string `json:"token"`
		PortalURL string `json:"portal_url"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Token == "" {
		t.Error("token missing")
	}

	var tenant tenants.Tenant
	if err := db.Where("email = ?", "kiprono@example.com").First(&tenant).Error; err != nil {
		t.Fatalf("tenant not stored: %v", err)
	}
	if tenant.PortalSlug == nil || *tenant.PortalSlug == "" {
		t.Fatal("portal slug not assigned")
	}
	if resp.PortalURL != tenants.PortalURL("https://wifi.example.com", *tenant.PortalSlug) {
		t.Errorf("portal url = %q", resp.PortalURL)
	}
	if !tenant.CommissionRate.Equal(decimal.NewFromInt(8)) || !tenant.MinimumPayout.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("defaults = %s / %s", tenant.CommissionRate, tenant.MinimumPayout)
	}

	dup := post(t, r, "/auth/register", "", gin.H{
		"business_name": "Other",
		"phone_number":  "0722333445",
		"email":         "kiprono@example.com",
		"password":      "hotspot2024",
	})
	if dup.Code != http.StatusConflict {
		t.Errorf("duplicate status = %d, want 409", dup.Code)
	}
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	r, _ := newRouter(t)
	w := post(t, r, "/auth/register", "", gin.H{
		"business_name": "Weak",
		"phone_number":  "0722333444",
		"email":         "weak@example.com",
		"password":      "password",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestLoginAndChangePassword(t *testing.T) {
	r, _ := newRouter(t)
	post(t, r, "/auth/register", "", gin.H{
		"business_name": "Chebet Net",
		"phone_number":  "0711000111",
		"email":         "chebet@example.com",
		"password":      "firstpass1",
	})

	if w := post(t, r, "/auth/login", "", gin.H{"email": "chebet@example.com", "password": "wrongpass1"}); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong password status = %d", w.Code)
	}

	w := post(t, r, "/auth/login", "", gin.H{"email": "chebet@example.com", "password": "firstpass1"})
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d", w.Code)
	}
	var login struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &login); err != nil {
		t.Fatal(err)
	}

	if w := post(t, r, "/change-password", "", gin.H{"old_password": "firstpass1", "new_password": "secondpass2"}); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated change status = %d", w.Code)
	}
	if w := post(t, r, "/change-password", login.Token, gin.H{"old_password": "nope", "new_password": "secondpass2"}); w.Code != http.StatusUnauthorized {
		t.Errorf("bad old password status = %d", w.Code)
	}
	if w := post(t, r, "/change-password", login.Token, gin.H{"old_password": "firstpass1", "new_password": "secondpass2"}); w.Code != http.StatusOK {
		t.Fatalf("change status = %d, body = %s", w.Code, w.Body.String())
	}
	if w := post(t, r, "/auth/login", "", gin.H{"email": "chebet@example.com", "password": "secondpass2"}); w.Code != http.StatusOK {
		t.Errorf("login with new password status = %d", w.Code)
	}
}
