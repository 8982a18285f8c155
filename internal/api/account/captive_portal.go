package account

import (
	"bytes"
	"html/template"
	"net/http"
	"strings"

	"qtro-isp/internal/domain/tenants"

	"github.com/gin-gonic/gin"
)

// $(...) placeholders are MikroTik hotspot variables, filled in by the router.
var hotspotLoginTmpl = template.Must(template.New("hotspot-login").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>{{.BusinessName}} - Connect</title>
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; background: #eaf1fb; margin: 0; padding: 0; }
        .container { max-width: 380px; margin: 40px auto 0; padding: 24px; }
        .card { background: #fff; border-radius: 14px; padding: 25px; box-shadow: 0 5px 18px rgba(0,0,0,0.08); }
        .brand { font-size: 28px; font-weight: bold; color: #7e22ce; text-align: center; margin-bottom: 6px; }
        .sub { text-align: center; color: #666; font-size: 14px; margin-bottom: 18px; }
        input[type="text"] { width: 100%; padding: 13px; border: 2px solid #dce2eb; border-radius: 8px; font-size: 16px; margin-bottom: 16px; box-sizing: border-box; }
        .btn-login { width: 100%; padding: 13px; background: #f59e0b; border: none; color: #fff; border-radius: 8px; font-size: 18px; font-weight: bold; cursor: pointer; }
        .error-box { background: #fee2e2; border: 2px solid #ef4444; border-radius: 8px; padding: 12px; margin-bottom: 16px; color: #991b1b; font-size: 14px; text-align: center; }
        .divider { text-align: center; padding: 10px 0; color: #888; font-size: 13px; }
        .iframe-box { width: 100%; height: 480px; border: 2px solid #0a66cc; border-radius: 12px; overflow: hidden; }
        iframe { width: 100%; height: 100%; border: none; }
        .footer { text-align: center; margin-top: 18px; font-size: 12px; color: #666; }
    </style>
</head>
<body>
<div class="container">
    <div class="card">
        <div class="brand">{{.BusinessName}}</div>
        <div class="sub">Fast, affordable Wi-Fi</div>

        $(if error)
        <div class="error-box">
            <strong>Login failed</strong>
            $(error)
            <br><br>
            <small>Please check your voucher code or buy a new voucher below.</small>
        </div>
        $(endif)

        <form name="login" action="$(link-login)" method="post">
            <input type="text" name="username" placeholder="Enter Voucher Code" required />
            <input type="hidden" name="password" value="voucher" />
            <button class="btn-login" type="submit">Connect Now</button>
        </form>

        <div class="divider">OR BUY VOUCHER BELOW</div>

        <div class="iframe-box">
            <iframe src="{{.PortalURL}}" title="Buy Voucher"></iframe>
        </div>
    </div>
    <div class="footer">&copy; {{.Year}} {{.BusinessName}}</div>
</div>
</body>
</html>
`))

type hotspotLoginPage struct {
	BusinessName string
	PortalURL    string
	Year         int
}

// GET /captive-portal/download
// Returns a hotspot login page for the tenant's router that embeds the voucher portal.
func (h *Handler) CaptivePortal(c *gin.Context) {
	tenant, ok := h.loadTenant(c)
	if !ok {
		return
	}
	if tenant.PortalSlug == nil || strings.TrimSpace(*tenant.PortalSlug) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Portal slug not configured"})
		return
	}
	slug := strings.TrimSpace(*tenant.PortalSlug)

	name := tenant.BusinessName
	if name == "" {
		name = "QTRO ISP"
	}

	var buf bytes.Buffer
	err := hotspotLoginTmpl.Execute(&buf, hotspotLoginPage{
		BusinessName: name,
		PortalURL:    tenants.PortalURL(h.appURL, slug),
		Year:         h.now().Year(),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate captive portal"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="hotspot-login-`+slug+`.html"`)
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}
