package routes

import (
	"net/http"

	"qtro-isp/config"
	"qtro-isp/internal/api/account"
	adminapi "qtro-isp/internal/api/admin"
	authapi "qtro-isp/internal/api/auth"
	"qtro-isp/internal/api/billing"
	mpesaapi "qtro-isp/internal/api/mpesa"
	"qtro-isp/internal/api/plans"
	portalapi "qtro-isp/internal/api/portal"
	"qtro-isp/internal/api/vouchers"
	"qtro-isp/internal/app/http/middleware"
	"qtro-isp/internal/usecase/adminauth"
	"qtro-isp/internal/usecase/payments"
	"qtro-isp/internal/usecase/payouts"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps is everything the HTTP layer needs, built once at startup.
type Deps struct {
	DB        *gorm.DB
	Config    *config.Config
	Logger    *zap.Logger
	Payments  *payments.Service
	Payouts   *payouts.Service
	AdminAuth *adminauth.Service
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	authH := authapi.NewHandler(d.DB, d.Config, d.Logger)
	accountH := account.NewHandler(d.DB, d.Config.AppURL)
	plansH := plans.NewHandler(d.DB)
	vouchersH := vouchers.NewHandler(d.DB)
	billingH := billing.NewHandler(d.DB, d.Payouts, d.Logger)
	portalH := portalapi.NewHandler(d.DB)
	mpesaH := mpesaapi.NewHandler(d.Payments, d.Logger)
	adminH := adminapi.NewHandler(d.DB, d.AdminAuth, d.Payouts, d.Logger)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// the gateway posts raw JSON; it must reach the parser untouched
	r.POST("/api/mpesa/callback", mpesaH.Callback)
	r.GET("/api/mpesa/callback", mpesaH.CallbackProbe)

	public := r.Group("/")
	public.Use(middleware.SanitizeAndCleanInputMiddleware())

	public.POST("/auth/register", authH.Register)
	public.POST("/auth/login", authH.Login)
	public.GET("/auth/google", authH.GoogleStart)
	public.GET("/auth/google/callback", authH.GoogleCallback)

	public.GET("/portal/:slug", portalH.Get)
	public.POST("/api/mpesa/initiate", mpesaH.Initiate)
	public.GET("/api/mpesa/status", mpesaH.Status)

	// Tenants
	auth := r.Group("/")
	auth.Use(middleware.AuthMiddleware(d.Config.JWTSecret), middleware.RequireRole("tenant"))
	auth.Use(middleware.SanitizeAndCleanInputMiddleware())
	auth.GET("/me", accountH.Me)
	auth.PUT("/settings", accountH.UpdateSettings)
	auth.POST("/change-password", authH.ChangePassword)
	auth.GET("/captive-portal/download", accountH.CaptivePortal)

	auth.GET("/plans", plansH.List)
	auth.POST("/plans", plansH.Create)
	auth.PUT("/plans/:id", plansH.Update)
	auth.DELETE("/plans/:id", plansH.Delete)

	auth.GET("/vouchers", vouchersH.List)
	auth.POST("/vouchers/generate", vouchersH.Generate)
	auth.POST("/vouchers/bulk", vouchersH.BulkCreate)
	auth.DELETE("/vouchers/:id", vouchersH.Delete)

	auth.GET("/transactions", billingH.ListTransactions)
	auth.GET("/earnings", billingH.Earnings)

	// Admin routes
	admin := r.Group("/api/admin")
	admin.Use(middleware.SanitizeAndCleanInputMiddleware())
	admin.POST("/auth/login", adminH.Login)

	guarded := admin.Group("/")
	guarded.Use(middleware.RequireAdminSession(d.AdminAuth))
	guarded.GET("/auth/verify", adminH.Verify)
	guarded.POST("/auth/logout", adminH.Logout)
	guarded.GET("/tenants", adminH.ListTenants)
	guarded.PUT("/tenants/:id/commission", adminH.UpdateCommission)
	guarded.GET("/reports", adminH.Reports)
	guarded.GET("/payouts", adminH.ListPayouts)
	guarded.GET("/payouts/pending", adminH.PendingPayouts)
	guarded.POST("/payouts/create", adminH.CreatePayout)
	guarded.POST("/payouts/mark-paid", adminH.MarkPaid)
}
