package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/kajrofficep/cafeteria/internal/identity"
	"github.com/kajrofficep/cafeteria/internal/model"

	"github.com/gin-gonic/gin"
)

type roleUpdateRequest struct {
	UserID uint   `json:"user_id" binding:"required"`
	Role   string `json:"role" binding:"required"`
}

// handleListUsers 返回全部用户列表，仅管理员可访问。
//
// GET /users 及 GET /admin/users
func (s *Server) handleListUsers(c *gin.Context) {
	users, err := s.ids.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list users failed"})
		return
	}

	out := make([]userResponse, 0, len(users))
	for i := range users {
		out = append(out, toUserResponse(&users[i]))
	}
	c.JSON(http.StatusOK, gin.H{"users": out})
}

// handleUpdateUserRole 修改目标用户的角色。
//
// POST /admin/users
func (s *Server) handleUpdateUserRole(c *gin.Context) {
	var req roleUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role, ok := model.ParseRole(req.Role)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
		return
	}

	user, err := s.ids.UpdateRole(c.Request.Context(), req.UserID, role)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		case errors.Is(err, identity.ErrInvalidRole):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "update role failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Role updated successfully!",
		"user":    toUserResponse(user),
	})
}

// handleAdminViewProfile 管理员查看任意用户的资料。
//
// GET /admin/profile/:id
func (s *Server) handleAdminViewProfile(c *gin.Context) {
	id, err := parseUserID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	user, err := s.ids.ByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load profile failed"})
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

// handleAdminUpdateProfile 管理员更新任意用户的资料。
//
// PUT /admin/profile/:id
func (s *Server) handleAdminUpdateProfile(c *gin.Context) {
	id, err := parseUserID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	var req profileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := s.ids.UpdateProfile(c.Request.Context(), id, identity.ProfileUpdate{
		FullName:   req.FullName,
		Department: req.Department,
		Email:      req.Email,
		Phone:      req.Phone,
	})
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		case errors.Is(err, identity.ErrDuplicate):
			c.JSON(http.StatusConflict, gin.H{"error": "duplicate value for unique field"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "update profile failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Profile updated successfully!",
		"user":    toUserResponse(user),
	})
}

func parseUserID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid user id")
	}
	return uint(id), nil
}
