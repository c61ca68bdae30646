package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"oracle/internal/model/auth"
	"oracle/internal/pkg/id"
	"oracle/internal/pkg/jwt"
	"oracle/internal/pkg/password"
	authRepo "oracle/internal/repository/auth"
)

var (
	ErrAccountExists   = errors.New("username already exists")
	ErrEmailTaken      = errors.New("email already registered")
	ErrInvalidPassword = errors.New("invalid username or password")
	ErrInvalidToken    = errors.New("invalid token")
	ErrExpiredToken    = errors.New("token expired")
)

// AuthService handles registration, login and token lifecycle.
type AuthService struct {
	userRepo         *authRepo.UserRepo
	refreshTokenRepo *authRepo.RefreshTokenRepo
	jwt              *jwt.JWT
	refreshExpiry    time.Duration
}

// NewAuthService creates the auth service.
func NewAuthService(
	userRepo *authRepo.UserRepo,
	refreshTokenRepo *authRepo.RefreshTokenRepo,
	jwtSecret string,
	accessTokenExpiry time.Duration,
	refreshTokenExpiry time.Duration,
) *AuthService {
	return &AuthService{
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
		jwt:              jwt.NewJWT(jwtSecret, accessTokenExpiry),
		refreshExpiry:    refreshTokenExpiry,
	}
}

// RegisterResult is a successful registration.
type RegisterResult struct {
	UserID   string
	Username string
}

// Register creates a new account with a zeroed quota window.
func (s *AuthService) Register(ctx context.Context, username, email, pwd string) (*RegisterResult, error) {
	existing, _ := s.userRepo.FindByUsername(ctx, username)
	if existing != nil {
		return nil, ErrAccountExists
	}

	existing, _ = s.userRepo.FindByEmail(ctx, email)
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hashedPassword, err := password.Hash(pwd)
	if err != nil {
		log.Error().Err(err).Msg("failed to hash password")
		return nil, errors.New("failed to hash password")
	}

	account := &auth.Account{
		ID:       id.New(),
		Username: username,
		Email:    email,
		Password: hashedPassword,
	}

	if err := s.userRepo.Create(ctx, account); err != nil {
		log.Error().Err(err).Msg("failed to create account")
		return nil, errors.New("failed to create account")
	}

	return &RegisterResult{
		UserID:   account.ID,
		Username: account.Username,
	}, nil
}

// LoginResult is a successful login.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
	TokenType    string
	Account      *auth.Account
}

// Login verifies credentials and issues tokens.
func (s *AuthService) Login(ctx context.Context, username, pwd string) (*LoginResult, error) {
	account, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		// Same error as a bad password so usernames cannot be probed.
		return nil, ErrInvalidPassword
	}

	if !password.Verify(pwd, account.Password) {
		return nil, ErrInvalidPassword
	}

	accessToken, err := s.jwt.GenerateToken(account.ID, account.Username)
	if err != nil {
		log.Error().Err(err).Msg("failed to generate access token")
		return nil, errors.New("failed to generate token")
	}

	refreshTokenValue := jwt.GenerateRefreshToken()
	refreshToken := &auth.RefreshToken{
		ID:        id.New(),
		UserID:    account.ID,
		Token:     refreshTokenValue,
		ExpiresAt: time.Now().Add(s.refreshExpiry),
	}

	if err := s.refreshTokenRepo.Create(ctx, refreshToken); err != nil {
		log.Error().Err(err).Msg("failed to create refresh token")
		return nil, errors.New("failed to create refresh token")
	}

	if err := s.userRepo.UpdateLastLoginAt(ctx, account.ID); err != nil {
		// Not worth failing the login over.
		log.Warn().Err(err).Msg("failed to update last login time")
	}

	expiresIn := int(s.jwt.GetExpiration().Seconds())

	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshTokenValue,
		ExpiresIn:    expiresIn,
		TokenType:    "Bearer",
		Account:      account,
	}, nil
}

// RefreshTokenResult is a refreshed access token.
type RefreshTokenResult struct {
	AccessToken string
	ExpiresIn   int
	TokenType   string
}

// RefreshToken exchanges a refresh token for a new access token.
func (s *AuthService) RefreshToken(ctx context.Context, refreshTokenValue string) (*RefreshTokenResult, error) {
	refreshToken, err := s.refreshTokenRepo.FindByToken(ctx, refreshTokenValue)
	if err != nil {
		return nil, ErrInvalidToken
	}

	if refreshToken.IsExpired() {
		_ = s.refreshTokenRepo.DeleteByToken(ctx, refreshTokenValue)
		return nil, ErrExpiredToken
	}

	account, err := s.userRepo.FindByID(ctx, refreshToken.UserID)
	if err != nil {
		return nil, ErrAccountNotFound
	}

	accessToken, err := s.jwt.GenerateToken(account.ID, account.Username)
	if err != nil {
		log.Error().Err(err).Msg("failed to generate access token")
		return nil, errors.New("failed to generate token")
	}

	expiresIn := int(s.jwt.GetExpiration().Seconds())

	return &RefreshTokenResult{
		AccessToken: accessToken,
		ExpiresIn:   expiresIn,
		TokenType:   "Bearer",
	}, nil
}

// Logout invalidates a refresh token.
func (s *AuthService) Logout(ctx context.Context, refreshTokenValue string) error {
	return s.refreshTokenRepo.DeleteByToken(ctx, refreshTokenValue)
}

// GetAccountByID loads an account.
func (s *AuthService) GetAccountByID(ctx context.Context, userID string) (*auth.Account, error) {
	account, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, authRepo.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return account, nil
}

// ValidateToken checks an access token and loads its account.
func (s *AuthService) ValidateToken(tokenString string) (*auth.Account, error) {
	claims, err := s.jwt.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	account, err := s.userRepo.FindByID(context.Background(), claims.UserID)
	if err != nil {
		return nil, ErrAccountNotFound
	}

	return account, nil
}
