package services

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/echodeskai/echodesk-backend/internal/billing"
	"github.com/echodeskai/echodesk-backend/internal/config"
	"github.com/echodeskai/echodesk-backend/internal/dto"
	"github.com/echodeskai/echodesk-backend/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired refresh token")
	ErrAccountNotFound    = errors.New("account not found")
	ErrUnknownKind        = errors.New("kind must be affiliate or customer")
)

type AuthService struct {
	db       *gorm.DB
	cfg      *config.Config
	catalogs billing.CatalogSet
}

func NewAuthService(db *gorm.DB, cfg *config.Config, catalogs billing.CatalogSet) *AuthService {
	return &AuthService{db: db, cfg: cfg, catalogs: catalogs}
}

func (s *AuthService) Register(req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	if len(req.Email) == 0 || len(req.Password) < 8 {
		return nil, errors.New("email required and password must be at least 8 characters")
	}

	catalog, ok := s.catalogs[req.Kind]
	if !ok {
		return nil, ErrUnknownKind
	}

	var existing models.Account
	if err := s.db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	acct := models.Account{
		ID:          uuid.New(),
		Email:       req.Email,
		Password:    string(hash),
		Role:        "user",
		Kind:        req.Kind,
		CompanyName: req.CompanyName,
		PlanCode:    catalog.Base().Code,
	}

	if err := s.db.Create(&acct).Error; err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return s.generateTokenPair(&acct)
}

func (s *AuthService) Login(req *dto.LoginRequest) (*dto.AuthResponse, error) {
	var acct models.Account
	if err := s.db.Where("email = ?", req.Email).First(&acct).Error; err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acct.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.generateTokenPair(&acct)
}

func (s *AuthService) Refresh(req *dto.RefreshRequest) (*dto.AuthResponse, error) {
	tokenHash := hashToken(req.RefreshToken)

	var stored models.RefreshToken
	if err := s.db.Where("token_hash = ? AND revoked = false", tokenHash).First(&stored).Error; err != nil {
		return nil, ErrInvalidToken
	}

	if time.Now().After(stored.ExpiresAt) {
		s.db.Model(&stored).Update("revoked", true)
		return nil, ErrInvalidToken
	}

	s.db.Model(&stored).Update("revoked", true)

	var acct models.Account
	if err := s.db.First(&acct, "id = ?", stored.AccountID).Error; err != nil {
		return nil, fmt.Errorf("account not found: %w", err)
	}

	return s.generateTokenPair(&acct)
}

func (s *AuthService) Logout(req *dto.LogoutRequest) error {
	tokenHash := hashToken(req.RefreshToken)
	return s.db.Model(&models.RefreshToken{}).
		Where("token_hash = ?", tokenHash).
		Update("revoked", true).Error
}

func (s *AuthService) DeleteAccount(accountID uuid.UUID, password string) error {
	var acct models.Account
	if err := s.db.First(&acct, "id = ?", accountID).Error; err != nil {
		return ErrAccountNotFound
	}

	if password == "" {
		return errors.New("password is required")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.Password), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		tx.Where("account_id = ?", accountID).Delete(&models.RefreshToken{})
		tx.Where("account_id = ?", accountID).Delete(&models.Subscription{})
		return tx.Delete(&acct).Error
	})
}

func (s *AuthService) generateTokenPair(acct *models.Account) (*dto.AuthResponse, error) {
	accessToken, err := s.generateAccessToken(acct)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.generateRefreshToken(acct)
	if err != nil {
		return nil, err
	}

	return &dto.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Account: dto.AccountResponse{
			ID:          acct.ID,
			Email:       acct.Email,
			Kind:        acct.Kind,
			CompanyName: acct.CompanyName,
			PlanCode:    acct.PlanCode,
		},
	}, nil
}

func (s *AuthService) generateAccessToken(acct *models.Account) (string, error) {
	claims := jwt.MapClaims{
		"sub":   acct.ID.String(),
		"email": acct.Email,
		"kind":  acct.Kind,
		"role":  acct.Role,
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(s.cfg.JWTAccessExpiry).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

func (s *AuthService) generateRefreshToken(acct *models.Account) (string, error) {
	rawBytes := make([]byte, 32)
	if _, err := rand.Read(rawBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	rawToken := base64.URLEncoding.EncodeToString(rawBytes)
	tokenHash := hashToken(rawToken)

	record := models.RefreshToken{
		ID:        uuid.New(),
		AccountID: acct.ID,
		TokenHash: tokenHash,
		ExpiresAt: time.Now().Add(s.cfg.JWTRefreshExpiry),
	}

	if err := s.db.Create(&record).Error; err != nil {
		return "", fmt.Errorf("failed to store refresh token: %w", err)
	}

	return rawToken, nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", h)
}
