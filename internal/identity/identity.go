// Package identity 实现用户账号的创建、凭证校验与资料维护。
//
// 鉴权（谁可以调用哪个操作）不在本包职责内，由调用方通过
// authz 包与路由中间件完成。
package identity

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/kajrofficep/cafeteria/internal/model"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrNotFound 表示目标用户不存在。
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateUsername 表示用户名已被占用。
	ErrDuplicateUsername = errors.New("username already exists")
	// ErrDuplicateEmail 表示邮箱已被占用。
	ErrDuplicateEmail = errors.New("email already exists")
	// ErrDuplicate 表示唯一字段冲突（由存储层的唯一索引兜底检出）。
	ErrDuplicate = errors.New("duplicate value for unique field")
	// ErrInvalidCredentials 表示用户名或密码错误。
	// 用户不存在与密码错误对外返回同一个错误。
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrMissingPassword 表示未提供新密码。
	ErrMissingPassword = errors.New("new password is required")
	// ErrInvalidRole 表示角色取值不在枚举内。
	ErrInvalidRole = errors.New("invalid role")
)

// Store 抽象用户记录的持久化。
// 查不到目标时返回 ErrNotFound。
type Store interface {
	ByID(ctx context.Context, id uint) (*model.User, error)
	ByUsername(ctx context.Context, username string) (*model.User, error)
	ByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	Create(ctx context.Context, u *model.User) error
	Save(ctx context.Context, u *model.User) error
}

// Service 提供账号相关的业务操作。
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService 创建账号服务。
func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// RegisterInput 是注册请求的字段。
type RegisterInput struct {
	Username   string
	FullName   string
	Department string
	Email      string
	Phone      string
	Password   string
}

// Register 创建一个新用户，角色固定为 user。
//
// 用户名与邮箱重复分别返回 ErrDuplicateUsername / ErrDuplicateEmail；
// 其余唯一字段冲突（如电话）由存储层唯一索引检出并返回 ErrDuplicate。
func (s *Service) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(strings.ToLower(in.Email))

	if _, err := s.store.ByUsername(ctx, username); err == nil {
		return nil, ErrDuplicateUsername
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if _, err := s.store.ByEmail(ctx, email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:     username,
		FullName:     strings.TrimSpace(in.FullName),
		Department:   strings.TrimSpace(in.Department),
		Email:        email,
		Phone:        strings.TrimSpace(in.Phone),
		PasswordHash: string(hash),
		Role:         model.RoleUser,
	}
	if err := s.store.Create(ctx, user); err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("user registered", slog.String("username", username))
	}
	return user, nil
}

// VerifyCredential 校验用户名密码。
//
// 无论是用户不存在还是密码错误，一律返回 ErrInvalidCredentials，
// 不向调用方泄露失败原因。
func (s *Service) VerifyCredential(ctx context.Context, username, password string) (*model.User, error) {
	user, err := s.store.ByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// ProfileUpdate 是资料更新的可选字段，nil 表示不修改。
type ProfileUpdate struct {
	FullName   *string
	Department *string
	Email      *string
	Phone      *string
}

// UpdateProfile 更新目标用户的资料字段。
func (s *Service) UpdateProfile(ctx context.Context, userID uint, upd ProfileUpdate) (*model.User, error) {
	user, err := s.store.ByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if upd.FullName != nil {
		user.FullName = strings.TrimSpace(*upd.FullName)
	}
	if upd.Department != nil {
		user.Department = strings.TrimSpace(*upd.Department)
	}
	if upd.Email != nil {
		user.Email = strings.TrimSpace(strings.ToLower(*upd.Email))
	}
	if upd.Phone != nil {
		user.Phone = strings.TrimSpace(*upd.Phone)
	}

	if err := s.store.Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateRole 修改目标用户的角色。调用方必须已通过 admin 鉴权。
func (s *Service) UpdateRole(ctx context.Context, userID uint, role model.Role) (*model.User, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	user, err := s.store.ByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Role = role
	if err := s.store.Save(ctx, user); err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("role updated",
			slog.Uint64("user_id", uint64(userID)),
			slog.String("role", string(role)))
	}
	return user, nil
}

// UpdatePassword 重置目标用户的密码。
func (s *Service) UpdatePassword(ctx context.Context, userID uint, newPassword string) error {
	if strings.TrimSpace(newPassword) == "" {
		return ErrMissingPassword
	}
	user, err := s.store.ByID(ctx, userID)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.PasswordHash = string(hash)
	return s.store.Save(ctx, user)
}

// ByID 按 ID 查找用户。
func (s *Service) ByID(ctx context.Context, id uint) (*model.User, error) {
	return s.store.ByID(ctx, id)
}

// List 返回全部用户。
func (s *Service) List(ctx context.Context) ([]model.User, error) {
	return s.store.List(ctx)
}
