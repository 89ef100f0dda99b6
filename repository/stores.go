package repository

import (
	"context"
	"fmt"

	"store-ratings-api/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StoreSummary is a store joined with its rating aggregate.
type StoreSummary struct {
	ID          string
	Name        string
	Address     string
	Phone       string
	OwnerID     *string
	IsActive    bool
	AvgRating   float64
	RatingCount int64
}

// Sort fields accepted by StoreQuery.
const (
	SortName      = "name"
	SortAddress   = "address"
	SortAvgRating = "avgRating"
)

// StoreQuery filters, sorts and pages a store listing.
type StoreQuery struct {
	Search     string
	Sort       string
	Descending bool
	ActiveOnly bool
	Page
}

const summaryColumns = "stores.id, stores.name, stores.address, stores.phone, stores.owner_id, stores.is_active, " +
	"COALESCE(AVG(ratings.value), 0) AS avg_rating, COUNT(ratings.id) AS rating_count"

type StoreRepo struct{ db *gorm.DB }

func NewStoreRepo(db *gorm.DB) *StoreRepo {
	return &StoreRepo{db: db}
}

func (r *StoreRepo) Create(ctx context.Context, s *models.Store) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(s).Error
}

// ByID loads a store with its owner.
func (r *StoreRepo) ByID(ctx context.Context, id string) (*models.Store, error) {
	var s models.Store
	if err := r.db.WithContext(ctx).Preload("Owner").First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// Summary loads one store with its rating aggregate.
func (r *StoreRepo) Summary(ctx context.Context, id string) (*StoreSummary, error) {
	var out []StoreSummary
	err := r.aggregate(ctx).Where("stores.id = ?", id).Scan(&out).Error
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return &out[0], nil
}

// Update applies a partial update. Keys are column names.
func (r *StoreRepo) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&models.Store{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Toggle flips is_active and returns the new value.
func (r *StoreRepo) Toggle(ctx context.Context, id string) (bool, error) {
	var active bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var s models.Store
		if err := tx.First(&s, "id = ?", id).Error; err != nil {
			return err
		}
		active = !s.IsActive
		return tx.Model(&models.Store{}).Where("id = ?", id).Update("is_active", active).Error
	})
	return active, err
}

// Delete removes a store and its ratings.
func (r *StoreRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("store_id = ?", id).Delete(&models.Rating{}).Error; err != nil {
			return fmt.Errorf("delete ratings: %w", err)
		}
		res := tx.Delete(&models.Store{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *StoreRepo) aggregate(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.Store{}).
		Select(summaryColumns).
		Joins("LEFT JOIN ratings ON ratings.store_id = stores.id").
		Group("stores.id")
}

func orderBy(sort string, desc bool) string {
	dir := "ASC"
	if desc {
		dir = "DESC"
	}
	col := "stores.name"
	switch sort {
	case SortAddress:
		col = "stores.address"
	case SortAvgRating:
		col = "avg_rating"
	}
	return fmt.Sprintf("%s %s, stores.id ASC", col, dir)
}

// List returns one page of store summaries and the unpaged total.
func (r *StoreRepo) List(ctx context.Context, q StoreQuery) ([]StoreSummary, int64, error) {
	p := q.Page.Normalized()
	filter := func(db *gorm.DB) *gorm.DB {
		if q.Search != "" {
			like := containsPattern(q.Search)
			db = db.Where(`stores.name LIKE ? ESCAPE '\' OR stores.address LIKE ? ESCAPE '\'`, like, like)
		}
		if q.ActiveOnly {
			db = db.Where("stores.is_active = ?", true)
		}
		return db
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Store{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []StoreSummary
	err := r.aggregate(ctx).Scopes(filter).
		Order(orderBy(q.Sort, q.Descending)).
		Limit(p.Limit).Offset(p.offset()).
		Scan(&out).Error
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Top returns active, rated stores by descending average.
func (r *StoreRepo) Top(ctx context.Context, limit int) ([]StoreSummary, error) {
	if limit < 1 {
		limit = 5
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	var out []StoreSummary
	err := r.aggregate(ctx).
		Where("stores.is_active = ?", true).
		Having("COUNT(ratings.id) > 0").
		Order("avg_rating DESC, rating_count DESC, stores.name ASC").
		Limit(limit).
		Scan(&out).Error
	return out, err
}

// ByOwner returns the summaries of every store owned by ownerID.
func (r *StoreRepo) ByOwner(ctx context.Context, ownerID string) ([]StoreSummary, error) {
	var out []StoreSummary
	err := r.aggregate(ctx).
		Where("stores.owner_id = ?", ownerID).
		Order("stores.name ASC").
		Scan(&out).Error
	return out, err
}

func (r *StoreRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Store{}).Count(&n).Error
	return n, err
}
