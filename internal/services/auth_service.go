package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/config"
	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/dto"
	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired refresh token")
)

type ProfileAccounts interface {
	FindByID(ctx context.Context, id string) (*models.Profile, error)
	FindByEmail(ctx context.Context, email string) (*models.Profile, error)
	Create(ctx context.Context, p *models.Profile) error
}

type RefreshTokens interface {
	Create(ctx context.Context, t *models.RefreshToken) error
	FindActive(ctx context.Context, hash string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, hash string) error
}

type AuthService struct {
	profiles ProfileAccounts
	tokens   RefreshTokens
	cfg      *config.Config
	now      func() time.Time
}

func NewAuthService(profiles ProfileAccounts, tokens RefreshTokens, cfg *config.Config) *AuthService {
	return &AuthService{profiles: profiles, tokens: tokens, cfg: cfg, now: time.Now}
}

// Register creates an agent profile. Promotion to team lead or admin is an
// out-of-band operation.
func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || len(req.Password) < 8 {
		return nil, apperr.Validation("email required and password must be at least 8 characters")
	}

	_, err := s.profiles.FindByEmail(ctx, email)
	if err == nil {
		return nil, ErrEmailTaken
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	profile := models.Profile{
		ID:       uuid.NewString(),
		Email:    email,
		Password: string(hash),
		FullName: strings.TrimSpace(req.FullName),
		Role:     models.RoleAgent,
	}
	if err := s.profiles.Create(ctx, &profile); err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	return s.generateTokenPair(ctx, &profile)
}

func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	profile, err := s.profiles.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.generateTokenPair(ctx, profile)
}

// Refresh rotates a refresh token. The presented token is revoked either way.
func (s *AuthService) Refresh(ctx context.Context, req *dto.RefreshRequest) (*dto.AuthResponse, error) {
	tokenHash := hashToken(req.RefreshToken)

	stored, err := s.tokens.FindActive(ctx, tokenHash)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if err := s.tokens.Revoke(ctx, tokenHash); err != nil {
		return nil, fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	if s.now().After(stored.ExpiresAt) {
		return nil, ErrInvalidToken
	}

	profile, err := s.profiles.FindByID(ctx, stored.ProfileID)
	if err != nil {
		return nil, fmt.Errorf("profile not found: %w", err)
	}

	return s.generateTokenPair(ctx, profile)
}

func (s *AuthService) Logout(ctx context.Context, req *dto.LogoutRequest) error {
	return s.tokens.Revoke(ctx, hashToken(req.RefreshToken))
}

func (s *AuthService) generateTokenPair(ctx context.Context, profile *models.Profile) (*dto.AuthResponse, error) {
	accessToken, err := s.generateAccessToken(profile)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.generateRefreshToken(ctx, profile)
	if err != nil {
		return nil, err
	}

	return &dto.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Profile:      ProfileResponse(profile),
	}, nil
}

// The role claim is informational. Authorization always reloads the profile.
func (s *AuthService) generateAccessToken(profile *models.Profile) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":   profile.ID,
		"email": profile.Email,
		"role":  string(profile.Role),
		"iat":   now.Unix(),
		"exp":   now.Add(s.cfg.JWTAccessExpiry).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

func (s *AuthService) generateRefreshToken(ctx context.Context, profile *models.Profile) (string, error) {
	rawBytes := make([]byte, 32)
	if _, err := rand.Read(rawBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	rawToken := base64.URLEncoding.EncodeToString(rawBytes)

	record := models.RefreshToken{
		ID:        uuid.NewString(),
		ProfileID: profile.ID,
		TokenHash: hashToken(rawToken),
		ExpiresAt: s.now().Add(s.cfg.JWTRefreshExpiry),
	}
	if err := s.tokens.Create(ctx, &record); err != nil {
		return "", fmt.Errorf("failed to store refresh token: %w", err)
	}

	return rawToken, nil
}

func ProfileResponse(p *models.Profile) dto.ProfileResponse {
	return dto.ProfileResponse{
		ID:         p.ID,
		Email:      p.Email,
		FullName:   p.FullName,
		Role:       string(p.Role),
		TeamLeadID: p.TeamLeadID,
	}
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", h)
}
