package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/kajrofficep/cafeteria/internal/config"
	"github.com/kajrofficep/cafeteria/internal/identity"
	"github.com/kajrofficep/cafeteria/internal/model"
	"github.com/kajrofficep/cafeteria/internal/pkg/logger"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// main 一次性创建初始管理员账号后退出。
//
// 管理员资料取自 bootstrap 配置段，密码必须通过 ADMIN_PASSWORD
// 环境变量或配置文件提供。账号已存在时直接退出，不做修改。
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	appLogger := logger.NewDefault(cfg.App.LogLevel)
	bs := cfg.Bootstrap
	if bs.AdminPassword == "" {
		appLogger.Error("admin password is required, set ADMIN_PASSWORD")
		os.Exit(1)
	}

	db, err := gorm.Open(mysql.Open(cfg.MySQL.DSN), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		appLogger.Error("connect database failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := db.AutoMigrate(&model.User{}, &model.Meal{}); err != nil {
		appLogger.Error("migrate failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ids := identity.NewService(identity.NewGormStore(db), appLogger)
	user, err := ids.Register(ctx, identity.RegisterInput{
		Username:   bs.AdminUsername,
		FullName:   bs.AdminFullName,
		Department: bs.AdminDepartment,
		Email:      bs.AdminEmail,
		Phone:      bs.AdminPhone,
		Password:   bs.AdminPassword,
	})
	if err != nil {
		if errors.Is(err, identity.ErrDuplicateUsername) || errors.Is(err, identity.ErrDuplicateEmail) {
			appLogger.Info("admin user already exists", slog.String("username", bs.AdminUsername))
			return
		}
		appLogger.Error("create admin failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if _, err := ids.UpdateRole(ctx, user.ID, model.RoleAdmin); err != nil {
		appLogger.Error("grant admin role failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	appLogger.Info("admin user created", slog.String("username", user.Username))
}
