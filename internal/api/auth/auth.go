package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/kajrofficep/cafeteria/internal/identity"
	"github.com/kajrofficep/cafeteria/internal/model"
	"github.com/kajrofficep/cafeteria/internal/pkg/metrics"
	"github.com/kajrofficep/cafeteria/internal/pkg/notify"
	"github.com/kajrofficep/cafeteria/internal/pkg/session"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// IdentityService 是 Handler 依赖的账号操作子集。
type IdentityService interface {
	Register(ctx context.Context, in identity.RegisterInput) (*model.User, error)
	VerifyCredential(ctx context.Context, username, password string) (*model.User, error)
}

// Handler 提供注册、登录与注销接口。
type Handler struct {
	ids        IdentityService
	jwtSecret  []byte
	sessionTTL time.Duration
	revoked    *session.RevocationList
	mailer     notify.Notifier
	logger     *slog.Logger
}

// NewHandler 创建 Auth Handler。
func NewHandler(ids IdentityService, jwtSecret string, sessionTTL time.Duration, revoked *session.RevocationList, mailer notify.Notifier, logger *slog.Logger) *Handler {
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &Handler{
		ids:        ids,
		jwtSecret:  []byte(jwtSecret),
		sessionTTL: sessionTTL,
		revoked:    revoked,
		mailer:     mailer,
		logger:     logger,
	}
}

type registerRequest struct {
	Username   string `json:"username" binding:"required"`
	FullName   string `json:"full_name" binding:"required"`
	Department string `json:"department" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	Phone      string `json:"phone" binding:"required"`
	Password   string `json:"password" binding:"required,min=6"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	Token  string `json:"token"`
	UserID uint   `json:"user_id"`
}

type customClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// Register 创建新用户。
//
// POST /create_user
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.ids.Register(c.Request.Context(), identity.RegisterInput{
		Username:   req.Username,
		FullName:   req.FullName,
		Department: req.Department,
		Email:      req.Email,
		Phone:      req.Phone,
		Password:   req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrDuplicateUsername):
			c.JSON(http.StatusBadRequest, gin.H{"error": "username already exists"})
		case errors.Is(err, identity.ErrDuplicateEmail):
			c.JSON(http.StatusBadRequest, gin.H{"error": "email already exists"})
		case errors.Is(err, identity.ErrDuplicate):
			c.JSON(http.StatusBadRequest, gin.H{"error": "duplicate value for unique field"})
		default:
			if h.logger != nil {
				h.logger.Error("create user failed", slog.String("username", req.Username), slog.String("error", err.Error()))
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "create user failed"})
		}
		return
	}

	metrics.UserRegisteredTotal.Inc()
	if h.mailer != nil {
		// 欢迎邮件尽力发送，失败不影响注册结果
		go func(email, fullName string) {
			if err := h.mailer.SendWelcome(email, fullName); err != nil && h.logger != nil {
				h.logger.Warn("send welcome email failed", slog.String("email", email), slog.String("error", err.Error()))
			}
		}(user.Email, user.FullName)
	}

	if h.logger != nil {
		h.logger.Info("user registered", slog.String("username", user.Username))
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
	})
}

// Login 校验凭证并返回 JWT。
//
// POST /login
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.ids.VerifyCredential(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			metrics.LoginFailureTotal.Inc()
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
			return
		}
		if h.logger != nil {
			h.logger.Error("verify credential failed", slog.String("username", req.Username), slog.String("error", err.Error()))
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	token, err := h.issueToken(user.ID, user.Role)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("sign token failed", slog.String("username", user.Username), slog.String("error", err.Error()))
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sign token failed"})
		return
	}

	metrics.LoginSuccessTotal.Inc()
	if h.logger != nil {
		h.logger.Info("user logged in", slog.String("username", user.Username), slog.String("role", string(user.Role)))
	}
	c.JSON(http.StatusOK, tokenResponse{Token: token, UserID: user.ID})
}

// Logout 撤销当前令牌。
//
// POST /logout（需已通过认证中间件）
func (h *Handler) Logout(c *gin.Context) {
	jti := c.GetString("jti")
	var ttl time.Duration
	if expVal, ok := c.Get("tokenExpiresAt"); ok {
		if exp, ok := expVal.(time.Time); ok {
			ttl = time.Until(exp)
		}
	}

	if h.revoked != nil && jti != "" {
		if err := h.revoked.Revoke(c.Request.Context(), jti, ttl); err != nil {
			if h.logger != nil {
				h.logger.Warn("revoke token failed", slog.String("error", err.Error()))
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "logout failed"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (h *Handler) issueToken(userID uint, role model.Role) (string, error) {
	jti, err := randomID(16)
	if err != nil {
		return "", err
	}
	claims := customClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(h.sessionTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ID:        jti,
		},
		Role: string(role),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(h.jwtSecret)
}

func randomID(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
