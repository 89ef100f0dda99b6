package handlers

import (
	"errors"
	"net/http"

	"store-ratings-api/apperror"
	"store-ratings-api/dto"
	"store-ratings-api/middleware"
	"store-ratings-api/models"
	"store-ratings-api/repository"
	"store-ratings-api/validation"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ListUsersQuery struct {
	Q     string `form:"q" norm:"trim" binding:"max=100"`
	Role  string `form:"role" norm:"trim" binding:"omitempty,oneof=USER OWNER ADMIN"`
	Page  *int   `form:"page" binding:"omitnil,min=1" msg:"page >= 1"`
	Limit *int   `form:"limit" binding:"omitnil,min=1,max=100" msg:"limit 1–100"`
}

type CreateUserRequest struct {
	Name     string      `json:"name" norm:"trim" binding:"required,max=60" msg:"name is required (max 60 characters)"`
	Email    string      `json:"email" norm:"trim,lower" binding:"required,email" msg:"valid email required"`
	Password string      `json:"password" binding:"required,password"`
	Address  string      `json:"address" norm:"trim" binding:"required,max=400" msg:"address is required (max 400 characters)"`
	Role     models.Role `json:"role" norm:"trim" binding:"required,oneof=USER OWNER ADMIN"`
}

type UserIDParam struct {
	ID string `uri:"id" binding:"required,uuid" msg:"id must be UUID"`
}

// AdminListUsers returns a filtered page of users (admin only)
func (h *Handler) AdminListUsers(c *gin.Context) {
	var q ListUsersQuery
	if err := validation.Bind(c, &q); err != nil {
		middleware.RespondError(c, err)
		return
	}

	page := pageOf(q.Page, q.Limit)
	users, total, err := h.Users.List(c.Request.Context(), repository.UserFilter{
		Query: q.Q,
		Role:  models.Role(q.Role),
		Page:  page,
	})
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	items := make([]dto.UserView, len(users))
	for i := range users {
		items[i] = dto.NewUserView(&users[i])
	}
	c.JSON(http.StatusOK, dto.Page[dto.UserView]{
		Items: items,
		Total: total,
		Page:  page.Page,
		Limit: page.Limit,
	})
}

// AdminCreateUser creates an account with any role (admin only)
func (h *Handler) AdminCreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := validation.Bind(c, &req); err != nil {
		middleware.RespondError(c, err)
		return
	}
	user, err := h.newUser(c.Request.Context(), RegisterRequest{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Address:  req.Address,
	}, req.Role)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.CreatedResponse{ID: user.ID})
}

// AdminGetUser returns one user. For owners the response carries the mean
// rating across all of their stores, weighted by rating count.
func (h *Handler) AdminGetUser(c *gin.Context) {
	var p UserIDParam
	if err := validation.Bind(c, &p); err != nil {
		middleware.RespondError(c, err)
		return
	}

	ctx := c.Request.Context()
	user, err := h.Users.ByID(ctx, p.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = apperror.NotFound("User not found")
		}
		middleware.RespondError(c, err)
		return
	}
	view := dto.NewUserView(user)
	if user.Role == models.RoleOwner {
		stores, err := h.Stores.ByOwner(ctx, user.ID)
		if err != nil {
			middleware.RespondError(c, err)
			return
		}
		avg := ownerAverage(stores)
		view.StoreAverage = &avg
	}
	c.JSON(http.StatusOK, view)
}

func ownerAverage(stores []repository.StoreSummary) float64 {
	var sum float64
	var n int64
	for _, s := range stores {
		sum += s.AvgRating * float64(s.RatingCount)
		n += s.RatingCount
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// AdminStats returns platform-wide counts (admin only)
func (h *Handler) AdminStats(c *gin.Context) {
	ctx := c.Request.Context()
	var stats dto.Stats
	var err error
	if stats.Users, err = h.Users.Count(ctx); err != nil {
		middleware.RespondError(c, err)
		return
	}
	if stats.Stores, err = h.Stores.Count(ctx); err != nil {
		middleware.RespondError(c, err)
		return
	}
	if stats.Ratings, err = h.Ratings.Count(ctx); err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// AdminToggleStore flips a store between active and inactive
func (h *Handler) AdminToggleStore(c *gin.Context) {
	var p StoreIDParam
	if err := validation.Bind(c, &p); err != nil {
		middleware.RespondError(c, err)
		return
	}
	active, err := h.Stores.Toggle(c.Request.Context(), p.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = apperror.NotFound("Store not found")
		}
		middleware.RespondError(c, err)
		return
	}
	h.Log.WithField("store_id", p.ID).WithField("active", active).Info("store toggled")
	c.JSON(http.StatusOK, dto.ToggleResponse{ID: p.ID, IsActive: active})
}
