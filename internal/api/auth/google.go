package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"qtro-isp/internal/domain/tenants"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"
)

func (h *Handler) googleOAuthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.cfg.Google.ClientID,
		ClientSecret: h.cfg.Google.ClientSecret,
		RedirectURL:  h.cfg.Google.RedirectURL,
		Scopes: []string{
			"openid",
			"email",
			"profile",
		},
		Endpoint: google.Endpoint,
	}
}

func randomState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GET /auth/google
func (h *Handler) GoogleStart(c *gin.Context) {
	if !h.cfg.Google.Enabled() {
		c.JSON(http.StatusNotFound, gin.H{"error": "Google sign-in is not enabled"})
		return
	}
	state, err := randomState()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate state"})
		return
	}

	c.SetCookie("oauth_state", state, 300, "/", "", h.cfg.IsProduction(), true)

	c.Redirect(http.StatusFound, h.googleOAuthConfig().AuthCodeURL(state, oauth2.AccessTypeOnline))
}

// GET /auth/google/callback
func (h *Handler) GoogleCallback(c *gin.Context) {
	if !h.cfg.Google.Enabled() {
		c.JSON(http.StatusNotFound, gin.H{"error": "Google sign-in is not enabled"})
		return
	}
	state := c.Query("state")
	code := c.Query("code")
	if code == "" || state == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code/state"})
		return
	}

	cookieState, err := c.Cookie("oauth_state")
	if err != nil || cookieState != state {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid oauth state"})
		return
	}

	tok, err := h.googleOAuthConfig().Exchange(c.Request.Context(), code)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "failed to exchange code"})
		return
	}

	rawIDToken, ok := tok.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing id_token"})
		return
	}

	claims, err := h.verifyGoogleIDToken(c.Request.Context(), rawIDToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	tenant, err := h.findOrCreateGoogleTenant(claims)
	if err != nil {
		h.logger.Error("google sign-in failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create account"})
		return
	}

	tokenString, err := h.issueToken(tenant)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create token"})
		return
	}

	redirect := h.cfg.Google.FrontendRedirect
	if redirect == "" {
		c.JSON(http.StatusOK, gin.H{"token": tokenString})
		return
	}
	c.Redirect(http.StatusFound, redirect+"?token="+url.QueryEscape(tokenString))
}

type googleIDClaims struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

func (h *Handler) verifyGoogleIDToken(ctx context.Context, rawIDToken string) (*googleIDClaims, error) {
	provider, err := oidc.NewProvider(ctx, "https://accounts.google.com")
	if err != nil {
		return nil, errors.New("failed to init google oidc provider")
	}

	verifier := provider.Verifier(&oidc.Config{ClientID: h.cfg.Google.ClientID})
	idToken, err := verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, errors.New("invalid id_token")
	}

	var claims googleIDClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, errors.New("failed to decode token claims")
	}
	if claims.Email == "" || claims.Sub == "" {
		return nil, errors.New("token missing required claims")
	}
	if !claims.EmailVerified {
		return nil, errors.New("google email is not verified")
	}
	return &claims, nil
}

func (h *Handler) findOrCreateGoogleTenant(gc *googleIDClaims) (*tenants.Tenant, error) {
	var tenant tenants.Tenant
	email := strings.ToLower(gc.Email)

	if err := h.db.Where("google_sub = ?", gc.Sub).First(&tenant).Error; err == nil {
		return &tenant, nil
	}

	// link an existing local account by email
	if err := h.db.Where("email = ?", email).First(&tenant).Error; err == nil {
		if tenant.GoogleSub == nil {
			sub := gc.Sub
			tenant.GoogleSub = &sub
			if err := h.db.Model(&tenant).Update("google_sub", sub).Error; err != nil {
				return nil, err
			}
		}
		return &tenant, nil
	}

	sub := gc.Sub
	tenant = tenants.Tenant{
		Email:           email,
		AuthProvider:    tenants.ProviderGoogle,
		GoogleSub:       &sub,
		BusinessName:    firstNonEmpty(gc.Name, strings.Split(email, "@")[0]),
		CommissionRate:  h.cfg.DefaultCommissionRate,
		PayoutFrequency: tenants.PayoutMonthly,
		MinimumPayout:   h.cfg.DefaultMinimumPayout,
	}
	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&tenant).Error; err != nil {
			return err
		}
		_, err := tenants.EnsurePortalSlug(tx, &tenant)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

func firstNonEmpty(s ...string) string {
	for _, v := range s {
		if v != "" {
			return v
		}
	}
	return ""
}
