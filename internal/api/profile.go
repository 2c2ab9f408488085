package api

import (
	"errors"
	"net/http"

	"github.com/kajrofficep/cafeteria/internal/identity"
	"github.com/kajrofficep/cafeteria/internal/model"

	"github.com/gin-gonic/gin"
)

type userResponse struct {
	ID         uint   `json:"id"`
	Username   string `json:"username"`
	FullName   string `json:"full_name"`
	Department string `json:"department"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Role       string `json:"role"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:         u.ID,
		Username:   u.Username,
		FullName:   u.FullName,
		Department: u.Department,
		Email:      u.Email,
		Phone:      u.Phone,
		Role:       string(u.Role),
	}
}

type profileUpdateRequest struct {
	FullName   *string `json:"full_name"`
	Department *string `json:"department"`
	Email      *string `json:"email"`
	Phone      *string `json:"phone"`
}

type passwordUpdateRequest struct {
	NewPassword string `json:"new_password"`
}

// handleViewProfile 返回当前登录用户的资料。
//
// GET /profile
func (s *Server) handleViewProfile(c *gin.Context) {
	user, err := s.ids.ByID(c.Request.Context(), getUserID(c))
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load profile failed"})
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

// handleUpdateProfile 更新当前登录用户的资料，未提交的字段保持不变。
//
// PUT /profile/update
func (s *Server) handleUpdateProfile(c *gin.Context) {
	var req profileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := s.ids.UpdateProfile(c.Request.Context(), getUserID(c), identity.ProfileUpdate{
		FullName:   req.FullName,
		Department: req.Department,
		Email:      req.Email,
		Phone:      req.Phone,
	})
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrNotFound):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
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

// handleUpdatePassword 修改当前登录用户的密码。
//
// PUT /profile/update_password
func (s *Server) handleUpdatePassword(c *gin.Context) {
	var req passwordUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := s.ids.UpdatePassword(c.Request.Context(), getUserID(c), req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrMissingPassword):
			c.JSON(http.StatusBadRequest, gin.H{"error": "new password is required"})
		case errors.Is(err, identity.ErrNotFound):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "update password failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully!"})
}
