package user

import (
	"context"
	"errors"
	"strings"

	"researchpal-backend/pkg/errutil"
	"researchpal-backend/services/account"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Service struct {
	db   *gorm.DB
	node *snowflake.Node
}

type ServiceParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{db: p.DB, node: p.Node}
}

type RegisterInput struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

// Register creates a new account with a zero credit balance. Session issuance
// is the session layer's job; this returns the user for it to bind.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*account.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errutil.Internal("failed to hash password", err)
	}

	u := &account.User{
		ID:           s.node.Generate().String(),
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: string(hash),
	}

	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE") || strings.Contains(err.Error(), "duplicate") {
			return nil, errutil.Conflict("email already registered", err)
		}
		zap.L().Error("failed to create user", zap.Error(err))
		return nil, errutil.Internal("failed to create user", err)
	}

	return u, nil
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login verifies credentials and returns the user. The same opaque error
// covers an unknown email and a wrong password.
func (s *Service) Login(ctx context.Context, in LoginInput) (*account.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))

	var u account.User
	if err := s.db.WithContext(ctx).First(&u, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errutil.Unauthorized("invalid credentials", nil)
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)); err != nil {
		return nil, errutil.Unauthorized("invalid credentials", nil)
	}

	return &u, nil
}

func (s *Service) Me(ctx context.Context, userID string) (*account.User, error) {
	var u account.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errutil.NotFound("user not found", err)
		}
		return nil, err
	}
	return &u, nil
}

type UpdateProfileInput struct {
	Name string `json:"name" binding:"required"`
}

func (s *Service) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*account.User, error) {
	res := s.db.WithContext(ctx).Model(&account.User{}).
		Where("id = ?", userID).
		Update("name", strings.TrimSpace(in.Name))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, errutil.NotFound("user not found", nil)
	}

	return s.Me(ctx, userID)
}
