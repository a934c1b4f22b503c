package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/finlead/membership-backend/internal/config"
	"github.com/finlead/membership-backend/internal/repository"
	"github.com/finlead/membership-backend/internal/types"
)

type AuthService interface {
	Register(ctx context.Context, email, password, name string) (*AuthResponse, error)
	Login(ctx context.Context, email, password string) (*AuthResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	ValidateToken(tokenString string) (*TokenClaims, error)
}

type AuthResponse struct {
	Member       *repository.Member `json:"member"`
	AccessToken  string             `json:"accessToken"`
	RefreshToken string             `json:"refreshToken"`
}

type TokenClaims struct {
	MemberID string `json:"sub"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type authService struct {
	config     *config.Config
	memberRepo repository.MemberRepository
}

func NewAuthService(cfg *config.Config, memberRepo repository.MemberRepository) AuthService {
	return &authService{
		config:     cfg,
		memberRepo: memberRepo,
	}
}

// Register creates a member account. New members start at the base role with
// an active membership and their join date anchors the minimum commitment.
func (s *authService) Register(ctx context.Context, email, password, name string) (*AuthResponse, error) {
	if email == "" || password == "" || name == "" {
		return nil, &ValidationError{Field: "email/password/name", Message: "are required"}
	}
	if len(password) < 8 {
		return nil, &ValidationError{Field: "password", Message: "must be at least 8 characters"}
	}

	existing, err := s.memberRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing member: %w", err)
	}
	if existing != nil {
		return nil, ErrMemberExists
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	member := &repository.Member{
		Email:    email,
		Password: string(hashed),
		Name:     name,
		Role:     types.RoleMember,
		Status:   types.StatusActive,
		JoinedAt: now,
	}
	if err := s.memberRepo.Create(ctx, member); err != nil {
		return nil, fmt.Errorf("failed to create member: %w", err)
	}

	return s.issueTokens(ctx, member)
}

func (s *authService) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	member, err := s.memberRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find member: %w", err)
	}
	if member == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(member.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issueTokens(ctx, member)
}

func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	stored, err := s.memberRepo.FindRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("failed to find refresh token: %w", err)
	}
	if stored == nil || time.Now().After(stored.ExpiresAt) {
		return nil, ErrInvalidToken
	}

	member, err := s.memberRepo.FindByID(ctx, stored.MemberID)
	if err != nil {
		return nil, fmt.Errorf("failed to find member: %w", err)
	}
	if member == nil {
		return nil, ErrMemberNotFound
	}

	// Rotate: the old token is single-use.
	if err := s.memberRepo.DeleteRefreshToken(ctx, refreshToken); err != nil {
		return nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}

	return s.issueTokens(ctx, member)
}

func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	return s.memberRepo.DeleteRefreshToken(ctx, refreshToken)
}

func (s *authService) ValidateToken(tokenString string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.config.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *authService) issueTokens(ctx context.Context, member *repository.Member) (*AuthResponse, error) {
	claims := &TokenClaims{
		MemberID: member.ID,
		Email:    member.Email,
		Role:     string(member.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   member.ID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(s.config.JWTExpiry) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refresh := &repository.RefreshToken{
		Token:     uuid.New().String(),
		MemberID:  member.ID,
		ExpiresAt: time.Now().AddDate(0, 0, s.config.RefreshExpiry),
	}
	if err := s.memberRepo.SaveRefreshToken(ctx, refresh); err != nil {
		return nil, fmt.Errorf("failed to save refresh token: %w", err)
	}

	member.Password = ""
	return &AuthResponse{
		Member:       member,
		AccessToken:  accessToken,
		RefreshToken: refresh.Token,
	}, nil
}
