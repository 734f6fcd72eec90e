package service

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/MorseWayne/library_api/internal/config"
	"github.com/MorseWayne/library_api/internal/domain"
)

func createTestJWTService() JWTService {
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret-key"
	cfg.JWT.AccessTokenTTL = 15 * time.Minute
	cfg.JWT.RefreshTokenTTL = 24 * time.Hour
	cfg.App.Name = "test-service"

	return NewJWTService(cfg, zap.NewNop())
}

func createTestUser() *domain.User {
	return &domain.User{
		ID:       123,
		Name:     "Test Reader",
		Role:     domain.UserRoleUser,
		IsActive: true,
	}
}

func TestJWTService_GenerateTokenPair(t *testing.T) {
	jwtService := createTestJWTService()
	user := createTestUser()

	tokenPair, err := jwtService.GenerateTokenPair(user)
	if err != nil {
		t.Fatalf("GenerateTokenPair failed: %v", err)
	}

	if tokenPair.AccessToken == "" {
		t.Error("AccessToken should not be empty")
	}
	if tokenPair.RefreshToken == "" {
		t.Error("RefreshToken should not be empty")
	}

	claims, err := jwtService.ValidateAccessToken(tokenPair.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccessToken failed: %v", err)
	}

	if claims.UserID != user.ID {
		t.Errorf("Expected UserID %d, got %d", user.ID, claims.UserID)
	}
	if claims.Name != user.Name {
		t.Errorf("Expected name %s, got %s", user.Name, claims.Name)
	}
	if claims.Role != user.Role {
		t.Errorf("Expected role %s, got %s", user.Role, claims.Role)
	}
	if claims.Type != "access" {
		t.Errorf("Expected token type access, got %s", claims.Type)
	}
}

func TestJWTService_ValidateAccessToken_RejectsRefreshToken(t *testing.T) {
	jwtService := createTestJWTService()

	tokenPair, err := jwtService.GenerateTokenPair(createTestUser())
	if err != nil {
		t.Fatalf("GenerateTokenPair failed: %v", err)
	}

	// 刷新令牌不能当访问令牌用
	if _, err := jwtService.ValidateAccessToken(tokenPair.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken, got %v", err)
	}
}

func TestJWTService_ValidateAccessToken_InvalidToken(t *testing.T) {
	jwtService := createTestJWTService()

	if _, err := jwtService.ValidateAccessToken("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken, got %v", err)
	}
}

func TestJWTService_ValidateAccessToken_WrongSecret(t *testing.T) {
	jwtService := createTestJWTService()

	otherCfg := &config.Config{}
	otherCfg.JWT.Secret = "another-secret"
	otherCfg.JWT.AccessTokenTTL = 15 * time.Minute
	otherCfg.JWT.RefreshTokenTTL = 24 * time.Hour
	otherCfg.App.Name = "test-service"
	otherService := NewJWTService(otherCfg, zap.NewNop())

	tokenPair, err := otherService.GenerateTokenPair(createTestUser())
	if err != nil {
		t.Fatalf("GenerateTokenPair failed: %v", err)
	}

	if _, err := jwtService.ValidateAccessToken(tokenPair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken for wrong secret, got %v", err)
	}
}

func TestJWTService_ValidateAccessToken_Expired(t *testing.T) {
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret-key"
	cfg.JWT.AccessTokenTTL = -time.Minute // 已过期
	cfg.JWT.RefreshTokenTTL = 24 * time.Hour
	cfg.App.Name = "test-service"
	jwtService := NewJWTService(cfg, zap.NewNop())

	tokenPair, err := jwtService.GenerateTokenPair(createTestUser())
	if err != nil {
		t.Fatalf("GenerateTokenPair failed: %v", err)
	}

	if _, err := jwtService.ValidateAccessToken(tokenPair.AccessToken); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("Expected ErrTokenExpired, got %v", err)
	}
}

func TestJWTService_RefreshTokenPair(t *testing.T) {
	jwtService := createTestJWTService()
	user := createTestUser()

	tokenPair, err := jwtService.GenerateTokenPair(user)
	if err != nil {
		t.Fatalf("GenerateTokenPair failed: %v", err)
	}

	newPair, err := jwtService.RefreshTokenPair(tokenPair.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshTokenPair failed: %v", err)
	}

	claims, err := jwtService.ValidateAccessToken(newPair.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccessToken on refreshed token failed: %v", err)
	}
	if claims.UserID != user.ID {
		t.Errorf("Expected UserID %d, got %d", user.ID, claims.UserID)
	}
}

func TestJWTService_RefreshTokenPair_RejectsAccessToken(t *testing.T) {
	jwtService := createTestJWTService()

	tokenPair, err := jwtService.GenerateTokenPair(createTestUser())
	if err != nil {
		t.Fatalf("GenerateTokenPair failed: %v", err)
	}

	if _, err := jwtService.RefreshTokenPair(tokenPair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken, got %v", err)
	}
}
