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
	"store-ratings-api/repository"
	"store-ratings-api/validation"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ── Request schemas ─────────────────────────────────────────────────────────

type StoreIDParam struct {
	ID string `uri:"id" binding:"required,uuid" msg:"id must be UUID"`
}

type ListStoresQuery struct {
	Page  *int   `form:"page" binding:"omitnil,min=1" msg:"page >= 1"`
	Limit *int   `form:"limit" binding:"omitnil,min=1,max=100" msg:"limit 1–100"`
	Q     string `form:"q" norm:"trim" binding:"max=100"`
	Sort  string `form:"sort" norm:"trim" binding:"omitempty,oneof=name address avgRating"`
	Order string `form:"order" norm:"trim,lower" binding:"omitempty,oneof=asc desc"`
}

type TopStoresQuery struct {
	Limit *int `form:"limit" binding:"omitnil,min=1,max=100" msg:"limit 1–100"`
}

type CreateStoreRequest struct {
	Name       string  `json:"name" norm:"trim" binding:"required,max=100" msg:"name required"`
	Address    string  `json:"address" norm:"trim" binding:"required,max=400" msg:"address required"`
	OwnerEmail *string `json:"ownerEmail" norm:"trim,lower" binding:"omitnil,email" msg:"valid ownerEmail required"`
	Phone      *string `json:"phone" norm:"trim" binding:"omitnil,phone" msg:"invalid phone"`
	IsActive   *bool   `json:"isActive"`
}

type UpdateStoreRequest struct {
	ID         string  `uri:"id" binding:"required,uuid" msg:"id must be UUID"`
	Name       *string `json:"name" norm:"trim" binding:"omitnil,min=1,max=100"`
	Address    *string `json:"address" norm:"trim" binding:"omitnil,min=1,max=400"`
	OwnerEmail *string `json:"ownerEmail" norm:"trim,lower" binding:"omitnil,email" msg:"valid ownerEmail required"`
	Phone      *string `json:"phone" norm:"trim" binding:"omitnil,phone" msg:"invalid phone"`
	IsActive   *bool   `json:"isActive"`
}

// ── Helpers ─────────────────────────────────────────────────────────────────

const defaultTopLimit = 5

func pageOf(page, limit *int) repository.Page {
	var p repository.Page
	if page != nil {
		p.Page = *page
	}
	if limit != nil {
		p.Limit = *limit
	}
	return p.Normalized()
}

func storeView(s repository.StoreSummary) dto.StoreView {
	return dto.StoreView{
		ID:          s.ID,
		Name:        s.Name,
		Address:     s.Address,
		Phone:       s.Phone,
		OwnerID:     s.OwnerID,
		IsActive:    s.IsActive,
		AvgRating:   s.AvgRating,
		RatingCount: s.RatingCount,
	}
}

// storeViews converts summaries and, for an authenticated caller, attaches
// the rating that caller gave each store.
func (h *Handler) storeViews(c *gin.Context, summaries []repository.StoreSummary) ([]dto.StoreView, error) {
	views := make([]dto.StoreView, len(summaries))
	ids := make([]string, len(summaries))
	for i, s := range summaries {
		views[i] = storeView(s)
		ids[i] = s.ID
	}

	id, ok := middleware.GetIdentity(c)
	if !ok {
		return views, nil
	}
	mine, err := h.Ratings.ByUser(c.Request.Context(), id.UserID, ids)
	if err != nil {
		return nil, err
	}
	for i := range views {
		if v, ok := mine[views[i].ID]; ok {
			views[i].UserRating = &v
		}
	}
	return views, nil
}

// resolveOwner finds the user an ownerEmail refers to. The user must hold the
// OWNER role.
func (h *Handler) resolveOwner(ctx context.Context, email string) (*models.User, error) {
	owner, err := h.Users.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("No user with email " + email)
		}
		return nil, err
	}
	if owner.Role != models.RoleOwner {
		return nil, apperror.Validation(apperror.FieldError{
			Field:    "ownerEmail",
			Message:  "ownerEmail must belong to a user with the OWNER role",
			Location: apperror.LocationBody,
		})
	}
	return owner, nil
}

// canManage reports whether the caller may modify store s.
func canManage(id auth.Identity, s *models.Store) bool {
	if id.Role == models.RoleAdmin {
		return true
	}
	return id.Role == models.RoleOwner && s.OwnerID != nil && *s.OwnerID == id.UserID
}

// ── Store handlers ──────────────────────────────────────────────────────────

// ListStores returns a page of stores with their rating aggregates.
// Inactive stores are only listed for administrators.
func (h *Handler) ListStores(c *gin.Context) {
	var q ListStoresQuery
	if err := validation.Bind(c, &q); err != nil {
		middleware.RespondError(c, err)
		return
	}

	id, authed := middleware.GetIdentity(c)
	query := repository.StoreQuery{
		Search:     q.Q,
		Sort:       q.Sort,
		Descending: q.Order == "desc",
		ActiveOnly: !authed || id.Role != models.RoleAdmin,
		Page:       pageOf(q.Page, q.Limit),
	}
	summaries, total, err := h.Stores.List(c.Request.Context(), query)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	items, err := h.storeViews(c, summaries)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Page[dto.StoreView]{
		Items: items,
		Total: total,
		Page:  query.Page.Page,
		Limit: query.Page.Limit,
	})
}

// TopStores returns the best rated active stores.
func (h *Handler) TopStores(c *gin.Context) {
	var q TopStoresQuery
	if err := validation.Bind(c, &q); err != nil {
		middleware.RespondError(c, err)
		return
	}
	limit := defaultTopLimit
	if q.Limit != nil {
		limit = *q.Limit
	}
	summaries, err := h.Stores.Top(c.Request.Context(), limit)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	items, err := h.storeViews(c, summaries)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// GetStore returns a single store
func (h *Handler) GetStore(c *gin.Context) {
	var p StoreIDParam
	if err := validation.Bind(c, &p); err != nil {
		middleware.RespondError(c, err)
		return
	}

	ctx := c.Request.Context()
	summary, err := h.Stores.Summary(ctx, p.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = apperror.NotFound("Store not found")
		}
		middleware.RespondError(c, err)
		return
	}
	id, authed := middleware.GetIdentity(c)
	if !summary.IsActive && (!authed || (id.Role != models.RoleAdmin && !ownsSummary(id, summary))) {
		middleware.RespondError(c, apperror.NotFound("Store not found"))
		return
	}

	views, err := h.storeViews(c, []repository.StoreSummary{*summary})
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	view := views[0]
	if summary.OwnerID != nil {
		if owner, err := h.Users.ByID(ctx, *summary.OwnerID); err == nil {
			view.OwnerEmail = owner.Email
		}
	}
	c.JSON(http.StatusOK, view)
}

func ownsSummary(id auth.Identity, s *repository.StoreSummary) bool {
	return s.OwnerID != nil && *s.OwnerID == id.UserID
}

// CreateStore registers a new store. Owners create stores for themselves;
// administrators may assign any OWNER or leave the store unowned.
func (h *Handler) CreateStore(c *gin.Context) {
	id := middleware.MustIdentity(c)
	var req CreateStoreRequest
	if err := validation.Bind(c, &req); err != nil {
		middleware.RespondError(c, err)
		return
	}

	ctx := c.Request.Context()
	store := models.Store{
		Name:     req.Name,
		Address:  req.Address,
		IsActive: true,
	}
	if req.Phone != nil {
		store.Phone = *req.Phone
	}
	if req.IsActive != nil {
		store.IsActive = *req.IsActive
	}

	switch {
	case req.OwnerEmail != nil:
		owner, err := h.resolveOwner(ctx, *req.OwnerEmail)
		if err != nil {
			middleware.RespondError(c, err)
			return
		}
		if id.Role != models.RoleAdmin && owner.ID != id.UserID {
			middleware.RespondError(c, apperror.Forbidden("Owners can only create stores they own"))
			return
		}
		store.OwnerID = &owner.ID
	case id.Role == models.RoleOwner:
		ownerID := id.UserID
		store.OwnerID = &ownerID
	}

	if err := h.Stores.Create(ctx, &store); err != nil {
		middleware.RespondError(c, err)
		return
	}
	h.Log.WithField("store_id", store.ID).WithField("user_id", id.UserID).Info("store created")
	c.JSON(http.StatusCreated, dto.CreatedResponse{ID: store.ID})
}

// UpdateStore applies a partial update. Only administrators may reassign
// ownership.
func (h *Handler) UpdateStore(c *gin.Context) {
	id := middleware.MustIdentity(c)
	var req UpdateStoreRequest
	if err := validation.Bind(c, &req); err != nil {
		middleware.RespondError(c, err)
		return
	}

	ctx := c.Request.Context()
	store, err := h.Stores.ByID(ctx, req.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = apperror.NotFound("Store not found")
		}
		middleware.RespondError(c, err)
		return
	}
	if !canManage(id, store) {
		middleware.RespondError(c, apperror.Forbidden("You can only modify your own stores"))
		return
	}

	update := map[string]interface{}{}
	if req.Name != nil {
		update["name"] = *req.Name
	}
	if req.Address != nil {
		update["address"] = *req.Address
	}
	if req.Phone != nil {
		update["phone"] = *req.Phone
	}
	if req.IsActive != nil {
		update["is_active"] = *req.IsActive
	}
	if req.OwnerEmail != nil {
		if id.Role != models.RoleAdmin {
			middleware.RespondError(c, apperror.Forbidden("Only an administrator can change a store's owner"))
			return
		}
		owner, err := h.resolveOwner(ctx, *req.OwnerEmail)
		if err != nil {
			middleware.RespondError(c, err)
			return
		}
		update["owner_id"] = owner.ID
	}

	if err := h.Stores.Update(ctx, store.ID, update); err != nil {
		middleware.RespondError(c, err)
		return
	}
	summary, err := h.Stores.Summary(ctx, store.ID)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, storeView(*summary))
}

// DeleteStore removes a store together with its ratings.
func (h *Handler) DeleteStore(c *gin.Context) {
	id := middleware.MustIdentity(c)
	var p StoreIDParam
	if err := validation.Bind(c, &p); err != nil {
		middleware.RespondError(c, err)
		return
	}

	ctx := c.Request.Context()
	store, err := h.Stores.ByID(ctx, p.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = apperror.NotFound("Store not found")
		}
		middleware.RespondError(c, err)
		return
	}
	if !canManage(id, store) {
		middleware.RespondError(c, apperror.Forbidden("You can only delete your own stores"))
		return
	}
	if err := h.Stores.Delete(ctx, store.ID); err != nil {
		middleware.RespondError(c, err)
		return
	}
	h.Log.WithField("store_id", store.ID).WithField("user_id", id.UserID).Info("store deleted")
	c.Status(http.StatusNoContent)
}

// MyStoreRatings lists, for every store the caller owns, who rated it.
func (h *Handler) MyStoreRatings(c *gin.Context) {
	id := middleware.MustIdentity(c)
	ctx := c.Request.Context()

	stores, err := h.Stores.ByOwner(ctx, id.UserID)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	ids := make([]string, len(stores))
	for i, s := range stores {
		ids[i] = s.ID
	}
	ratings, err := h.Ratings.ForStores(ctx, ids)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}

	raters := make(map[string][]dto.Rater, len(stores))
	for _, r := range ratings {
		rater := dto.Rater{UserID: r.UserID, Value: r.Value, Comment: r.Comment}
		if r.User != nil {
			rater.Name = r.User.Name
			rater.Email = r.User.Email
		}
		raters[r.StoreID] = append(raters[r.StoreID], rater)
	}

	out := make([]dto.OwnerStoreRatings, 0, len(stores))
	for _, s := range stores {
		list := raters[s.ID]
		if list == nil {
			list = []dto.Rater{}
		}
		out = append(out, dto.OwnerStoreRatings{
			StoreID:   s.ID,
			StoreName: s.Name,
			Average:   s.AvgRating,
			Raters:    list,
		})
	}
	c.JSON(http.StatusOK, out)
}
