// FILE: internal/service/auth_service.go
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"os"
	"time"

	"agent-chat-be/internal/dto"
	"agent-chat-be/internal/entity"
	"agent-chat-be/internal/repository/specification"
	"agent-chat-be/internal/repository/unitofwork"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ErrEmailTaken reports a registration attempt for an email that already
// has a profile. Controllers map it to a conflict response.
var ErrEmailTaken = errors.New("email already registered")

type IAuthService interface {
	RegisterProfile(ctx context.Context, req *dto.RegisterProfileRequest) (*dto.RegisterProfileResponse, error)
	IssueToken(ctx context.Context, req *dto.TokenRequest) (*dto.TokenResponse, error)
	VerifyToken(tokenStr string) (uuid.UUID, error)
}

type authService struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewAuthService(uowFactory unitofwork.RepositoryFactory) IAuthService {
	return &authService{uowFactory: uowFactory}
}

func jwtSecret() []byte {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "default_secret"
	}
	return []byte(secret)
}

func (s *authService) RegisterProfile(ctx context.Context, req *dto.RegisterProfileRequest) (*dto.RegisterProfileResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	profiles := uow.ProfileRepository()

	existing, err := profiles.FindOne(ctx, specification.ByEmail{Email: req.Email})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	rawKey := make([]byte, 32)
	if _, err := rand.Read(rawKey); err != nil {
		return nil, err
	}
	apiKey := hex.EncodeToString(rawKey)

	hash, err := bcrypt.GenerateFromPassword([]byte(apiKey), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	profile := &entity.Profile{
		Id:         uuid.New(),
		Email:      req.Email,
		ApiKeyHash: string(hash),
		CreatedAt:  time.Now(),
	}
	if err := profiles.Create(ctx, profile); err != nil {
		return nil, err
	}

	return &dto.RegisterProfileResponse{
		ProfileId: profile.Id.String(),
		Email:     profile.Email,
		ApiKey:    apiKey,
	}, nil
}

func (s *authService) IssueToken(ctx context.Context, req *dto.TokenRequest) (*dto.TokenResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	profile, err := uow.ProfileRepository().FindOne(ctx, specification.ByEmail{Email: req.Email})
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, errors.New("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.ApiKeyHash), []byte(req.ApiKey)); err != nil {
		return nil, errors.New("invalid credentials")
	}

	expiry := time.Hour * 24
	claims := jwt.MapClaims{
		"user_id": profile.Id.String(),
		"exp":     time.Now().Add(expiry).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(jwtSecret())
	if err != nil {
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken: signed,
		ExpiresIn:   int64(expiry.Seconds()),
	}, nil
}

// VerifyToken validates a bearer token and returns the profile id it was
// issued for. The websocket handshake uses this for its query-param token.
func (s *authService) VerifyToken(tokenStr string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return jwtSecret(), nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, errors.New("invalid claims")
	}
	rawID, ok := claims["user_id"].(string)
	if !ok {
		return uuid.Nil, errors.New("invalid claims")
	}
	profileID, err := uuid.Parse(rawID)
	if err != nil {
		return uuid.Nil, errors.New("invalid claims")
	}
	return profileID, nil
}
