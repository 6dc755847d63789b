package service

import (
	"context"
	"errors"
	"fmt"

	"go-udhar-pos/internal/model"
	"go-udhar-pos/internal/repository"
	"go-udhar-pos/pkg/validator"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CreateUserRequest struct {
	Username string `json:"username" validate:"required,min=3"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name" validate:"required"`
	Role     string `json:"role" validate:"required,oneof=admin staff"`
}

type UserService interface {
	CreateUser(ctx context.Context, req *CreateUserRequest, who model.Identity) (*model.User, error)
	GetAllUsers(ctx context.Context) ([]model.UserResponse, error)
	DeleteUser(ctx context.Context, id uuid.UUID, who model.Identity) error
	// EnsureAdmin creates the bootstrap admin when no user with that name exists.
	EnsureAdmin(ctx context.Context, username, password string) error
}

type userService struct {
	userRepo repository.UserRepository
	log      *zap.Logger
}

func NewUserService(userRepo repository.UserRepository, log *zap.Logger) UserService {
	return &userService{userRepo: userRepo, log: log}
}

func (s *userService) CreateUser(ctx context.Context, req *CreateUserRequest, who model.Identity) (*model.User, error) {
	const op = "create user"
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		first := errs[0]
		return nil, validationError(op, "field '%s' failed on tag '%s'", first.FailedField, first.Tag)
	}

	user := &model.User{
		Username: req.Username,
		Name:     req.Name,
		Role:     req.Role,
		IsActive: true,
	}
	user.CreatedBy = who.Name
	if err := user.SetPassword(req.Password); err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, validationError(op, "username %q already exists", req.Username)
		}
		return nil, persistenceError(op, err)
	}

	s.log.Info("user created", zap.String("username", user.Username), zap.String("role", user.Role), zap.String("by", who.Name))
	return user, nil
}

func (s *userService) GetAllUsers(ctx context.Context) ([]model.UserResponse, error) {
	users, err := s.userRepo.FindAll(ctx)
	if err != nil {
		return nil, persistenceError("list users", err)
	}
	out := make([]model.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, users[i].ToResponse())
	}
	return out, nil
}

func (s *userService) DeleteUser(ctx context.Context, id uuid.UUID, who model.Identity) error {
	const op = "delete user"
	if id.String() == who.ID {
		return validationError(op, "cannot delete your own account")
	}
	if err := s.userRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFoundError(op, "user %s", id)
		}
		return persistenceError(op, err)
	}
	s.log.Info("user deleted", zap.String("user_id", id.String()), zap.String("by", who.Name))
	return nil
}

func (s *userService) EnsureAdmin(ctx context.Context, username, password string) error {
	_, err := s.userRepo.FindByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("find admin: %w", err)
	}

	admin := &model.User{Username: username, Name: "Administrator", Role: model.RoleAdmin, IsActive: true}
	admin.CreatedBy = "system"
	if err := admin.SetPassword(password); err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	if err := s.userRepo.Create(ctx, admin); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	s.log.Warn("bootstrap admin created, change its password", zap.String("username", username))
	return nil
}
