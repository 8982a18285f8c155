package adminauth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"qtro-isp/internal/domain/admins"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDisabled    = errors.New("admin account is disabled")
	ErrSessionExpired     = errors.New("session expired or invalid")
	ErrEmailTaken         = errors.New("admin email already exists")
)

type Service struct {
	db     *gorm.DB
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

func NewService(db *gorm.DB, ttl time.Duration, logger *zap.Logger) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, ttl: ttl, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

type Session struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	Admin     admins.AdminUser `json:"admin"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Login checks the password and opens a session. Expired sessions are purged on the way.
func (s *Service) Login(ctx context.Context, email, password, ip, userAgent string) (*Session, error) {
	db := s.db.WithContext(ctx)
	now := s.now()

	var admin admins.AdminUser
	if err := db.Where("email = ?", normalizeEmail(email)).First(&admin).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !admin.IsActive {
		return nil, ErrAccountDisabled
	}

	if err := db.Where("expires_at < ?", now).Delete(&admins.AdminSession{}).Error; err != nil {
		s.logger.Warn("failed to purge expired admin sessions", zap.Error(err))
	}

	session := admins.AdminSession{
		AdminUserID:  admin.ID,
		SessionToken: uuid.NewString(),
		ExpiresAt:    now.Add(s.ttl),
		IPAddress:    ip,
		UserAgent:    userAgent,
	}
	if err := db.Create(&session).Error; err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	if err := db.Model(&admins.AdminUser{}).Where("id = ?", admin.ID).Update("last_login", now).Error; err != nil {
		s.logger.Warn("failed to update admin last login", zap.Error(err))
	}
	admin.LastLogin = &now

	s.logger.Info("admin logged in", zap.String("admin_id", admin.ID.String()), zap.String("ip", ip))
	return &Session{Token: session.SessionToken, ExpiresAt: session.ExpiresAt, Admin: admin}, nil
}

// Verify resolves a bearer token to its admin.
func (s *Service) Verify(ctx context.Context, token string) (*admins.AdminUser, error) {
	if token == "" {
		return nil, ErrSessionExpired
	}
	var session admins.AdminSession
	err := s.db.WithContext(ctx).Preload("AdminUser").
		Where("session_token = ? AND expires_at > ?", token, s.now()).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionExpired
	}
	if err != nil {
		return nil, err
	}
	if !session.AdminUser.IsActive {
		return nil, ErrAccountDisabled
	}
	return &session.AdminUser, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	return s.db.WithContext(ctx).Where("session_token = ?", token).Delete(&admins.AdminSession{}).Error
}

// CreateAdmin seeds an administrator account.
func (s *Service) CreateAdmin(ctx context.Context, email, password, fullName string) (*admins.AdminUser, error) {
	email = normalizeEmail(email)
	if email == "" || len(password) < 8 {
		return nil, fmt.Errorf("email and a password of at least 8 characters are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	db := s.db.WithContext(ctx)
	var existing int64
	if err := db.Model(&admins.AdminUser{}).Where("email = ?", email).Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, ErrEmailTaken
	}

	admin := admins.AdminUser{
		Email:        email,
		PasswordHash: string(hash),
		FullName:     fullName,
		Role:         "admin",
		IsActive:     true,
	}
	if err := db.Create(&admin).Error; err != nil {
		return nil, err
	}
	return &admin, nil
}
