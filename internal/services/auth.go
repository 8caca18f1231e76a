package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/epesi-labs/epesi-backend/internal/logger"
	"github.com/epesi-labs/epesi-backend/internal/repos"
	"github.com/epesi-labs/epesi-backend/internal/requestdata"
	"github.com/epesi-labs/epesi-backend/internal/types"
	"github.com/epesi-labs/epesi-backend/internal/utils"
)

// AuthService stands in for the external identity provider: it issues and
// verifies tokens and attaches the authenticated user id to the request
// context. The rest of the core only ever sees an opaque user id.
type AuthService interface {
	Register(ctx context.Context, email, password, firstName, lastName string) (*types.User, string, error)
	Login(ctx context.Context, email, password string) (*types.User, string, error)
	Refresh(ctx context.Context) (string, error)
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
}

type authService struct {
	log      *logger.Logger
	users    repos.UserRepo
	secret   string
	tokenTTL int
}

func NewAuthService(log *logger.Logger, userRepo repos.UserRepo, secret string, tokenTTLSeconds int) AuthService {
	return &authService{
		log:      log.With("service", "AuthService"),
		users:    userRepo,
		secret:   secret,
		tokenTTL: tokenTTLSeconds,
	}
}

func (s *authService) Register(ctx context.Context, email, password, firstName, lastName string) (*types.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, "", fmt.Errorf("email and password are required")
	}
	exists, err := s.users.EmailExists(ctx, nil, email)
	if err != nil {
		return nil, "", err
	}
	if exists {
		return nil, "", fmt.Errorf("email is already in use")
	}

	hashed, err := utils.HashPassword(password)
	if err != nil {
		return nil, "", err
	}
	now := time.Now().UTC()
	user, err := s.users.Create(ctx, nil, &types.User{
		Email:     email,
		Password:  hashed,
		FirstName: firstName,
		LastName:  lastName,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, "", err
	}

	token, err := utils.GenerateToken(user.ID, s.secret, s.tokenTTL)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*types.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.GetByEmail(ctx, nil, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", fmt.Errorf("invalid email or password")
		}
		return nil, "", err
	}
	if !utils.CheckPassword(user.Password, password) {
		return nil, "", fmt.Errorf("invalid email or password")
	}

	token, err := utils.GenerateToken(user.ID, s.secret, s.tokenTTL)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Refresh issues a fresh token for the already-authenticated caller.
func (s *authService) Refresh(ctx context.Context) (string, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return "", fmt.Errorf("not authenticated")
	}
	if _, err := s.users.GetByID(ctx, nil, rd.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("user no longer exists")
		}
		return "", err
	}
	return utils.GenerateToken(rd.UserID, s.secret, s.tokenTTL)
}

func (s *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	userID, err := utils.ParseToken(tokenString, s.secret)
	if err != nil {
		return ctx, err
	}
	rd := &requestdata.RequestData{
		TokenString: tokenString,
		UserID:      userID,
	}
	return requestdata.WithRequestData(ctx, rd), nil
}
