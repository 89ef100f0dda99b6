package handlers

import (
	"errors"
	"net/http"

	"store-ratings-api/apperror"
	"store-ratings-api/dto"
	"store-ratings-api/middleware"
	"store-ratings-api/models"
	"store-ratings-api/validation"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type RateStoreRequest struct {
	StoreID string  `uri:"storeId" binding:"required,uuid" msg:"storeId must be UUID"`
	Rating  int     `json:"rating" binding:"required,min=1,max=5" msg:"rating 1–5"`
	Comment *string `json:"comment" norm:"trim" binding:"omitnil,max=500" msg:"comment max 500 characters"`
}

type ListRatingsRequest struct {
	StoreID string `uri:"storeId" binding:"required,uuid" msg:"storeId must be UUID"`
	Page    *int   `form:"page" binding:"omitnil,min=1" msg:"page >= 1"`
	Limit   *int   `form:"limit" binding:"omitnil,min=1,max=100" msg:"limit 1–100"`
}

// RateStore records the caller's rating of a store. A second rating from the
// same user replaces the first: 201 when created, 200 when overwritten.
func (h *Handler) RateStore(c *gin.Context) {
	id := middleware.MustIdentity(c)
	var req RateStoreRequest
	if err := validation.Bind(c, &req); err != nil {
		middleware.RespondError(c, err)
		return
	}

	ctx := c.Request.Context()
	store, err := h.Stores.ByID(ctx, req.StoreID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = apperror.NotFound("Store not found")
		}
		middleware.RespondError(c, err)
		return
	}
	if !store.IsActive {
		middleware.RespondError(c, apperror.NotFound("Store not found"))
		return
	}

	rating := models.Rating{
		UserID:  id.UserID,
		StoreID: store.ID,
		Value:   req.Rating,
	}
	if req.Comment != nil {
		rating.Comment = *req.Comment
	}
	created, err := h.Ratings.Upsert(ctx, &rating)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	h.Metrics.RatingSubmitted(created)

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, dto.RatingResponse{Created: created, Rating: dto.NewRatingView(&rating)})
}

// ListRatings returns a page of a store's ratings, newest first.
func (h *Handler) ListRatings(c *gin.Context) {
	var req ListRatingsRequest
	if err := validation.Bind(c, &req); err != nil {
		middleware.RespondError(c, err)
		return
	}

	ctx := c.Request.Context()
	store, err := h.Stores.ByID(ctx, req.StoreID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = apperror.NotFound("Store not found")
		}
		middleware.RespondError(c, err)
		return
	}
	// Inactive stores are hidden the same way GetStore hides them.
	if !store.IsActive {
		if id, ok := middleware.GetIdentity(c); !ok || !canManage(id, store) {
			middleware.RespondError(c, apperror.NotFound("Store not found"))
			return
		}
	}

	page := pageOf(req.Page, req.Limit)
	ratings, total, err := h.Ratings.ListByStore(ctx, req.StoreID, page)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	items := make([]dto.RatingView, len(ratings))
	for i := range ratings {
		items[i] = dto.NewRatingView(&ratings[i])
	}
	c.JSON(http.StatusOK, dto.Page[dto.RatingView]{
		Items: items,
		Total: total,
		Page:  page.Page,
		Limit: page.Limit,
	})
}
