package client

import (
	"context"
	"net/http"
	"net/url"

	"store-ratings-api/dto"
	"store-ratings-api/models"
)

// =============================================================================
// Request types
// =============================================================================

// NewUser is the body of Register and AdminCreateUser.
type NewUser struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Address  string      `json:"address"`
	Role     models.Role `json:"role,omitempty"`
}

type NewStore struct {
	Name       string `json:"name"`
	Address    string `json:"address"`
	OwnerEmail string `json:"ownerEmail,omitempty"`
	Phone      string `json:"phone,omitempty"`
	IsActive   *bool  `json:"isActive,omitempty"`
}

// StorePatch holds the fields to change; nil fields are left alone.
type StorePatch struct {
	Name       *string `json:"name,omitempty"`
	Address    *string `json:"address,omitempty"`
	OwnerEmail *string `json:"ownerEmail,omitempty"`
	Phone      *string `json:"phone,omitempty"`
	IsActive   *bool   `json:"isActive,omitempty"`
}

// StoreListOptions are the query parameters of ListStores. Zero values are omitted.
type StoreListOptions struct {
	Page  int
	Limit int
	Query string
	Sort  string // name, address or avgRating
	Order string // asc or desc
}

type UserListOptions struct {
	Page  int
	Limit int
	Query string
	Role  models.Role
}

type rateBody struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment,omitempty"`
}

type passwordBody struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// =============================================================================
// Auth
// =============================================================================

// Register creates an account. Pass an admin session to assign a role other
// than USER; s may be nil.
func (c *Client) Register(ctx context.Context, s *Session, u NewUser) (string, error) {
	var out dto.CreatedResponse
	if err := c.do(ctx, s, http.MethodPost, "/api/auth/register", nil, u, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// Login authenticates and stores the token in s.
func (c *Client) Login(ctx context.Context, s *Session, email, password string) (*dto.LoginResponse, error) {
	var out dto.LoginResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, nil, http.MethodPost, "/api/auth/login", nil, body, &out); err != nil {
		return nil, err
	}
	if s != nil {
		if err := s.store.Save(out.Token); err != nil {
			return nil, err
		}
	}
	return &out, nil
}

// Logout forgets the session token. Tokens are stateless, so the server is not called.
func (c *Client) Logout(s *Session) error {
	if s == nil {
		return nil
	}
	return s.store.Clear()
}

func (c *Client) Me(ctx context.Context, s *Session) (*dto.UserView, error) {
	var out dto.UserView
	if err := c.do(ctx, s, http.MethodGet, "/api/me", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ChangePassword(ctx context.Context, s *Session, current, next string) error {
	return c.do(ctx, s, http.MethodPatch, "/api/me/password", nil, passwordBody{current, next}, nil)
}

// =============================================================================
// Stores
// =============================================================================

func (c *Client) ListStores(ctx context.Context, s *Session, opts StoreListOptions) (*dto.Page[dto.StoreView], error) {
	q := pageQuery(nil, opts.Page, opts.Limit)
	if opts.Query != "" {
		q.Set("q", opts.Query)
	}
	if opts.Sort != "" {
		q.Set("sort", opts.Sort)
	}
	if opts.Order != "" {
		q.Set("order", opts.Order)
	}
	var out dto.Page[dto.StoreView]
	if err := c.do(ctx, s, http.MethodGet, "/api/stores", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetStore(ctx context.Context, s *Session, id string) (*dto.StoreView, error) {
	var out dto.StoreView
	if err := c.do(ctx, s, http.MethodGet, "/api/stores/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateStore returns the new store's id.
func (c *Client) CreateStore(ctx context.Context, s *Session, st NewStore) (string, error) {
	var out dto.CreatedResponse
	if err := c.do(ctx, s, http.MethodPost, "/api/stores", nil, st, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *Client) UpdateStore(ctx context.Context, s *Session, id string, patch StorePatch) (*dto.StoreView, error) {
	var out dto.StoreView
	if err := c.do(ctx, s, http.MethodPatch, "/api/stores/"+url.PathEscape(id), nil, patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteStore(ctx context.Context, s *Session, id string) error {
	return c.do(ctx, s, http.MethodDelete, "/api/stores/"+url.PathEscape(id), nil, nil, nil)
}

// TopStores returns up to limit stores by descending average; limit 0 uses the server default.
func (c *Client) TopStores(ctx context.Context, s *Session, limit int) ([]dto.StoreView, error) {
	var out []dto.StoreView
	if err := c.do(ctx, s, http.MethodGet, "/api/stores/top", pageQuery(nil, 0, limit), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) MyStoreRatings(ctx context.Context, s *Session) ([]dto.OwnerStoreRatings, error) {
	var out []dto.OwnerStoreRatings
	if err := c.do(ctx, s, http.MethodGet, "/api/stores/mine/ratings", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// =============================================================================
// Ratings
// =============================================================================

// RateStore submits or replaces the session user's rating. The response's
// Created field tells the two apart.
func (c *Client) RateStore(ctx context.Context, s *Session, storeID string, value int, comment string) (*dto.RatingResponse, error) {
	var out dto.RatingResponse
	path := "/api/ratings/" + url.PathEscape(storeID)
	if err := c.do(ctx, s, http.MethodPost, path, nil, rateBody{value, comment}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListRatings(ctx context.Context, s *Session, storeID string, page, limit int) (*dto.Page[dto.RatingView], error) {
	var out dto.Page[dto.RatingView]
	path := "/api/ratings/" + url.PathEscape(storeID)
	if err := c.do(ctx, s, http.MethodGet, path, pageQuery(nil, page, limit), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// =============================================================================
// Admin
// =============================================================================

func (c *Client) AdminStats(ctx context.Context, s *Session) (*dto.Stats, error) {
	var out dto.Stats
	if err := c.do(ctx, s, http.MethodGet, "/api/admin/stats", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AdminListUsers(ctx context.Context, s *Session, opts UserListOptions) (*dto.Page[dto.UserView], error) {
	q := pageQuery(nil, opts.Page, opts.Limit)
	if opts.Query != "" {
		q.Set("q", opts.Query)
	}
	if opts.Role != "" {
		q.Set("role", string(opts.Role))
	}
	var out dto.Page[dto.UserView]
	if err := c.do(ctx, s, http.MethodGet, "/api/admin/users", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AdminCreateUser(ctx context.Context, s *Session, u NewUser) (string, error) {
	var out dto.CreatedResponse
	if err := c.do(ctx, s, http.MethodPost, "/api/admin/users", nil, u, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *Client) AdminGetUser(ctx context.Context, s *Session, id string) (*dto.UserView, error) {
	var out dto.UserView
	if err := c.do(ctx, s, http.MethodGet, "/api/admin/users/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ToggleStore flips a store's isActive flag.
func (c *Client) ToggleStore(ctx context.Context, s *Session, id string) (*dto.ToggleResponse, error) {
	var out dto.ToggleResponse
	path := "/api/admin/stores/" + url.PathEscape(id) + "/toggle"
	if err := c.do(ctx, s, http.MethodPost, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health reports whether the server answered its liveness check.
func (c *Client) Health(ctx context.Context) (bool, error) {
	var out dto.HealthResponse
	if err := c.do(ctx, nil, http.MethodGet, "/health", nil, nil, &out); err != nil {
		return false, err
	}
	return out.OK, nil
}
