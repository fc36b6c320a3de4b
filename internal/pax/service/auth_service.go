package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fernandocuesta/ptp-pax/internal/config"
	"github.com/fernandocuesta/ptp-pax/internal/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrInvalidCredentials = errors.New("credenciales de área inválidas")
	ErrInvalidRefresh     = errors.New("refresh token inválido o expirado")
)

// AuthService exchanges a per-area access key for a JWT pair. The area keys
// live in configuration/environment; approver panels never see them in
// source. Refresh tokens are tracked in redis so a logout revokes them.
type AuthService struct {
	rdb *redis.Client
	cfg *config.Config
}

func NewAuthService(rdb *redis.Client, cfg *config.Config) *AuthService {
	return &AuthService{rdb: rdb, cfg: cfg}
}

// TokenPair Token对
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Login validates the area access key and issues tokens carrying the
// approver's name and area.
func (s *AuthService) Login(ctx context.Context, area, accessKey, name string) (*TokenPair, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: falta el nombre del aprobador", ErrInvalidCredentials)
	}
	want, ok := s.cfg.Areas.AccessKeys[area]
	if !ok || want == "" {
		return nil, fmt.Errorf("%w: área no habilitada %s", ErrInvalidCredentials, area)
	}
	if subtle.ConstantTimeCompare([]byte(want), []byte(accessKey)) != 1 {
		return nil, ErrInvalidCredentials
	}
	return s.generateTokenPair(ctx, name, area)
}

func (s *AuthService) generateTokenPair(ctx context.Context, name, area string) (*TokenPair, error) {
	now := time.Now()

	accessClaims := middleware.JWTClaims{
		Name: name,
		Area: area,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.JWT.Issuer,
			Subject:   area,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWT.AccessTokenExpire)),
			ID:        uuid.New().String(),
		},
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).SignedString([]byte(s.cfg.JWT.Secret))
	if err != nil {
		return nil, fmt.Errorf("firmar access token: %w", err)
	}

	refreshJti := uuid.New().String()
	refreshClaims := jwt.RegisteredClaims{
		Issuer:    s.cfg.JWT.Issuer,
		Subject:   area,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWT.RefreshTokenExpire)),
		ID:        refreshJti,
	}
	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).SignedString([]byte(s.cfg.JWT.Secret))
	if err != nil {
		return nil, fmt.Errorf("firmar refresh token: %w", err)
	}

	// El jti del refresh vive en redis; borrar la clave lo revoca.
	if err := s.rdb.Set(ctx, "token:refresh:"+refreshJti, name+"|"+area, s.cfg.JWT.RefreshTokenExpire).Err(); err != nil {
		return nil, fmt.Errorf("registrar refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.cfg.JWT.AccessTokenExpire.Seconds()),
	}, nil
}

// Refresh rotates a valid refresh token into a new pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	jti, err := s.parseRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	stored, err := s.rdb.Get(ctx, "token:refresh:"+jti).Result()
	if err != nil {
		return nil, ErrInvalidRefresh
	}

	name, area, ok := strings.Cut(stored, "|")
	if !ok {
		return nil, ErrInvalidRefresh
	}

	s.rdb.Del(ctx, "token:refresh:"+jti)
	return s.generateTokenPair(ctx, name, area)
}

// Logout revokes the refresh token.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	jti, err := s.parseRefresh(refreshToken)
	if err != nil {
		return err
	}
	return s.rdb.Del(ctx, "token:refresh:"+jti).Err()
}

func (s *AuthService) parseRefresh(refreshToken string) (string, error) {
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(refreshToken, &claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWT.Secret), nil
	})
	if err != nil || !token.Valid || claims.ID == "" {
		return "", ErrInvalidRefresh
	}
	return claims.ID, nil
}
