package api

import (
	"context"
	"net/http"
	"time"

	"github.com/kajrofficep/cafeteria/internal/api/auth"
	"github.com/kajrofficep/cafeteria/internal/api/middleware"
	"github.com/kajrofficep/cafeteria/internal/config"
	"github.com/kajrofficep/cafeteria/internal/identity"
	"github.com/kajrofficep/cafeteria/internal/meal"
	"github.com/kajrofficep/cafeteria/internal/model"
	"github.com/kajrofficep/cafeteria/internal/pkg/metrics"
	"github.com/kajrofficep/cafeteria/internal/pkg/notify"
	"github.com/kajrofficep/cafeteria/internal/pkg/ratelimit"
	"github.com/kajrofficep/cafeteria/internal/pkg/session"

	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// Server 封装了 API 服务所需的依赖和路由处理。
//
// 它持有数据库连接、Redis 客户端以及 Gin 路由引擎。
type Server struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *gorm.DB
	rdb    *redis.Client
	router *gin.Engine
	auth   *auth.Handler
	ids    IdentityService
	meals  MealService
}

// IdentityService 是账号查询与维护操作的抽象，便于测试替换。
type IdentityService interface {
	ByID(ctx context.Context, id uint) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	UpdateProfile(ctx context.Context, userID uint, upd identity.ProfileUpdate) (*model.User, error)
	UpdateRole(ctx context.Context, userID uint, role model.Role) (*model.User, error)
	UpdatePassword(ctx context.Context, userID uint, newPassword string) error
}

// MealService 是订餐操作的抽象。
type MealService interface {
	Upsert(ctx context.Context, userID uint, date time.Time, sel meal.Selections, rates meal.Rates) (*model.Meal, error)
	ListUpcoming(ctx context.Context, userID uint) ([]model.Meal, error)
}

// NewServer 初始化 API 服务器。
//
// 它负责：
// 1. 连接 MySQL 数据库并执行自动迁移
// 2. 连接 Redis
// 3. 初始化 Gin 路由引擎
func NewServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := gorm.Open(mysql.Open(cfg.MySQL.DSN), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent), // 关闭GORM调试日志
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&model.User{}, &model.Meal{}); err != nil {
		return nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       0,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	metrics.InitMetrics()

	idSvc := identity.NewService(identity.NewGormStore(db), logger)
	mealSvc := meal.NewService(meal.NewGormStore(db), logger)
	revoked := session.NewRevocationList(rdb)
	mailer := notify.NewEmailNotifier(&cfg.Email, logger)
	loginLimiter := ratelimit.NewRedisRateLimiter(rdb, logger, "cafeteria:ratelimit:login", cfg.App.RateLimit, cfg.App.RateBurst)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))

	s := &Server{
		cfg:    cfg,
		logger: logger,
		db:     db,
		rdb:    rdb,
		router: r,
		auth:   auth.NewHandler(idSvc, cfg.Security.JWTSecret, cfg.App.SessionTTL, revoked, mailer, logger),
		ids:    idSvc,
		meals:  mealSvc,
	}
	s.registerRoutes(revoked, loginLimiter)
	return s, nil
}

// Router 返回 HTTP 路由处理器。
func (s *Server) Router() http.Handler {
	return s.router
}

// Close 关闭数据库与缓存连接。
func (s *Server) Close() error {
	var firstErr error
	if s.rdb != nil {
		if err := s.rdb.Close(); err != nil {
			firstErr = err
		}
	}
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
		} else {
			if closeErr := sqlDB.Close(); closeErr != nil {
				if firstErr == nil {
					firstErr = closeErr
				}
			}
		}
	}
	return firstErr
}

// registerRoutes 注册所有的 API 路由。
func (s *Server) registerRoutes(revoked *session.RevocationList, loginLimiter *ratelimit.RateLimiter) {
	// Prometheus metrics 端点
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/healthz", s.handleHealthz)

	s.router.POST("/create_user", s.auth.Register)
	s.router.POST("/login", middleware.LoginRateLimiter(loginLimiter), s.auth.Login)

	authed := s.router.Group("/")
	authed.Use(middleware.AuthMiddleware(s.cfg.Security.JWTSecret, revoked))
	authed.POST("/logout", s.auth.Logout)
	authed.GET("/protected", s.handleProtected)

	authed.GET("/profile", s.handleViewProfile)
	authed.PUT("/profile/update", s.handleUpdateProfile)
	authed.PUT("/profile/update_password", s.handleUpdatePassword)

	authed.GET("/meals", s.handleListMeals)
	authed.POST("/meals", s.handleUpsertMeal)

	authed.GET("/moderator", middleware.RequireRole(model.RoleModerator), s.handleModeratorDashboard)

	admin := authed.Group("/")
	admin.Use(middleware.RequireRole(model.RoleAdmin))
	admin.GET("/admin", s.handleAdminDashboard)
	admin.GET("/users", s.handleListUsers)
	admin.GET("/admin/users", s.handleListUsers)
	admin.POST("/admin/users", s.handleUpdateUserRole)
	admin.GET("/admin/profile/:id", s.handleAdminViewProfile)
	admin.PUT("/admin/profile/:id", s.handleAdminUpdateProfile)
}

func (s *Server) handleHealthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if s.db == nil || s.rdb == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}

	var one int
	if err := s.db.WithContext(ctx).Raw("SELECT 1").Scan(&one).Error; err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleProtected 登录探活接口，返回问候语。
func (s *Server) handleProtected(c *gin.Context) {
	user, err := s.ids.ByID(c.Request.Context(), getUserID(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Hello, " + user.Username + "! This is a protected route."})
}

// handleAdminDashboard 管理员仪表盘。
func (s *Server) handleAdminDashboard(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Welcome to the admin dashboard!"})
}

// handleModeratorDashboard 版主仪表盘。
func (s *Server) handleModeratorDashboard(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Welcome to the moderator dashboard!"})
}

func getUserID(c *gin.Context) uint {
	v, ok := c.Get("userID")
	if !ok {
		return 0
	}
	id, _ := v.(uint)
	return id
}
