package handlers

import (
	"context"
	"errors"
	"net/http"

	"store-ratings-api/apperror"
	"store-ratings-api/auth"
	"store-ratings-api/dto"
	"store-ratings-api/middleware"
	"store-ratings-api/models"
	"store-ratings-api/validation"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type RegisterRequest struct {
	Name     string       `json:"name" norm:"trim" binding:"required,max=60" msg:"name is required (max 60 characters)"`
	Email    string       `json:"email" norm:"trim,lower" binding:"required,email" msg:"valid email required"`
	Password string       `json:"password" binding:"required,password"`
	Address  string       `json:"address" norm:"trim" binding:"required,max=400" msg:"address is required (max 400 characters)"`
	Role     *models.Role `json:"role" norm:"trim" binding:"omitnil,oneof=USER OWNER ADMIN"`
}

type LoginRequest struct {
	Email    string `json:"email" norm:"trim,lower" binding:"required,email" msg:"valid email required"`
	Password string `json:"password" binding:"required" msg:"password required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required" msg:"currentPassword required"`
	NewPassword     string `json:"newPassword" binding:"required,password"`
}

// newUser hashes the password and stores the user. Duplicate emails are a Conflict.
func (h *Handler) newUser(ctx context.Context, req RegisterRequest, role models.Role) (*models.User, error) {
	taken, err := h.Users.EmailTaken(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperror.Conflict("Email already registered")
	}

	hash, err := auth.HashPassword(req.Password, h.BcryptCost)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         role,
		Address:      req.Address,
	}
	if err := h.Users.Create(ctx, user); err != nil {
		if apperror.IsUniqueViolation(err) {
			return nil, apperror.Conflict("Email already registered")
		}
		return nil, err
	}
	h.Metrics.UserRegistered(string(role))
	h.Log.WithField("user_id", user.ID).WithField("role", role).Info("user created")
	return user, nil
}

// Register creates a new account. Only an administrator's token may request a
// role other than USER.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := validation.Bind(c, &req); err != nil {
		middleware.RespondError(c, err)
		return
	}

	role := models.RoleUser
	if req.Role != nil && *req.Role != models.RoleUser {
		id, ok := middleware.GetIdentity(c)
		if !ok || id.Role != models.RoleAdmin {
			middleware.RespondError(c, apperror.Forbidden("Only an administrator can assign the "+string(*req.Role)+" role"))
			return
		}
		role = *req.Role
	}

	user, err := h.newUser(c.Request.Context(), req, role)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.CreatedResponse{ID: user.ID})
}

// Login authenticates a user and returns a token
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := validation.Bind(c, &req); err != nil {
		middleware.RespondError(c, err)
		return
	}

	user, err := h.Users.ByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = apperror.Unauthorized("Invalid email or password")
		}
		middleware.RespondError(c, err)
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		middleware.RespondError(c, apperror.Unauthorized("Invalid email or password"))
		return
	}

	token, expires, err := h.Tokens.Issue(user.ID, user.Role)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.LoginResponse{
		Token:     token,
		ExpiresAt: expires,
		User:      dto.NewUserView(user),
	})
}

// GetProfile returns the authenticated user's profile
func (h *Handler) GetProfile(c *gin.Context) {
	id := middleware.MustIdentity(c)
	user, err := h.Users.ByID(c.Request.Context(), id.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = apperror.NotFound("User not found")
		}
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewUserView(user))
}

// ChangePassword replaces the caller's password after checking the current one.
func (h *Handler) ChangePassword(c *gin.Context) {
	id := middleware.MustIdentity(c)
	var req ChangePasswordRequest
	if err := validation.Bind(c, &req); err != nil {
		middleware.RespondError(c, err)
		return
	}

	ctx := c.Request.Context()
	user, err := h.Users.ByID(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = apperror.NotFound("User not found")
		}
		middleware.RespondError(c, err)
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.CurrentPassword) {
		middleware.RespondError(c, apperror.Unauthorized("Current password is incorrect"))
		return
	}

	hash, err := auth.HashPassword(req.NewPassword, h.BcryptCost)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	if err := h.Users.UpdatePassword(ctx, user.ID, hash); err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Password updated"})
}
