package service

import (
	"context"
	"errors"

	"go-udhar-pos/internal/model"
	"go-udhar-pos/internal/repository"
	"go-udhar-pos/pkg/jwt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserInactive       = errors.New("user account is inactive")
	ErrWrongPassword      = errors.New("current password is incorrect")
)

type AuthService interface {
	Login(ctx context.Context, username, password string) (*LoginResponse, error)
	// Identify resolves a bearer token to the acting user.
	Identify(ctx context.Context, token string) (*model.Identity, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error
}

type LoginResponse struct {
	Token string             `json:"token"`
	User  model.UserResponse `json:"user"`
}

type authService struct {
	userRepo repository.UserRepository
	log      *zap.Logger
}

func NewAuthService(userRepo repository.UserRepository, log *zap.Logger) AuthService {
	return &authService{userRepo: userRepo, log: log}
}

func (s *authService) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.log.Error("user lookup failed", zap.String("username", username), zap.Error(err))
		}
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	if !user.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}

	token, err := jwt.GenerateToken(user.ID, user.Username, user.Name, user.Role)
	if err != nil {
		return nil, errors.New("failed to generate token")
	}

	s.log.Info("user logged in", zap.String("username", user.Username), zap.String("role", user.Role))
	return &LoginResponse{Token: token, User: user.ToResponse()}, nil
}

func (s *authService) Identify(ctx context.Context, token string) (*model.Identity, error) {
	claims, err := jwt.ValidateToken(token)
	if err != nil {
		return nil, err
	}

	// role and active flag come from the stored user, not the token, so
	// demotions take effect without waiting for expiry
	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	return &model.Identity{ID: user.ID.String(), Name: user.Name, Role: user.Role}, nil
}

func (s *authService) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return ErrUserNotFound
	}
	if !user.CheckPassword(oldPassword) {
		return ErrWrongPassword
	}
	if len(newPassword) < 6 {
		return validationError("change password", "new password must be at least 6 characters")
	}
	if err := user.SetPassword(newPassword); err != nil {
		return errors.New("failed to hash new password")
	}
	return s.userRepo.UpdatePassword(ctx, user.ID, user.Password)
}
