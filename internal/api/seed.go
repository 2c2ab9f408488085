package api

import (
	"context"
	"errors"
	"log/slog"

	"github.com/kajrofficep/cafeteria/internal/model"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedAdminUser 按配置创建初始管理员账号。
//
// 未配置管理员密码时跳过；账号已存在时不做任何修改。
func (s *Server) SeedAdminUser(ctx context.Context) error {
	bs := s.cfg.Bootstrap
	if bs.AdminPassword == "" {
		if s.logger != nil {
			s.logger.Info("admin password not set, skip admin seeding")
		}
		return nil
	}

	var existing model.User
	err := s.db.WithContext(ctx).Where("username = ?", bs.AdminUsername).First(&existing).Error
	if err == nil {
		if s.logger != nil {
			s.logger.Info("admin user already exists", slog.String("username", bs.AdminUsername))
		}
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(bs.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := model.User{
		Username:     bs.AdminUsername,
		FullName:     bs.AdminFullName,
		Department:   bs.AdminDepartment,
		Email:        bs.AdminEmail,
		Phone:        bs.AdminPhone,
		PasswordHash: string(hash),
		Role:         model.RoleAdmin,
	}
	if err := s.db.WithContext(ctx).Create(&admin).Error; err != nil {
		return err
	}

	if s.logger != nil {
		s.logger.Info("admin user created", slog.String("username", admin.Username))
	}
	return nil
}
