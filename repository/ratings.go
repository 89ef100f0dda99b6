package repository

import (
	"context"

	"store-ratings-api/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RatingRepo struct{ db *gorm.DB }

func NewRatingRepo(db *gorm.DB) *RatingRepo {
	return &RatingRepo{db: db}
}

// Upsert stores the caller's rating for a store in one INSERT ... ON CONFLICT
// statement, so concurrent submissions for the same (user, store) pair never
// produce two rows. rt is refreshed with the stored row. created is false when
// an earlier rating was overwritten.
func (r *RatingRepo) Upsert(ctx context.Context, rt *models.Rating) (created bool, err error) {
	newID := uuid.NewString()
	rt.ID = newID
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "store_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "comment", "updated_at"}),
		}).Create(rt).Error
		if err != nil {
			return err
		}
		var stored models.Rating
		if err := tx.Where("user_id = ? AND store_id = ?", rt.UserID, rt.StoreID).First(&stored).Error; err != nil {
			return err
		}
		*rt = stored
		return nil
	})
	if err != nil {
		return false, err
	}
	return rt.ID == newID, nil
}

// ListByStore returns one page of a store's ratings, newest first, with raters loaded.
func (r *RatingRepo) ListByStore(ctx context.Context, storeID string, page Page) ([]models.Rating, int64, error) {
	p := page.Normalized()
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Rating{}).Where("store_id = ?", storeID).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []models.Rating
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("store_id = ?", storeID).
		Order("updated_at DESC").Order("id ASC").
		Limit(p.Limit).Offset(p.offset()).
		Find(&out).Error
	return out, total, err
}

// ByUser maps store id to the value userID gave it, for the given stores.
func (r *RatingRepo) ByUser(ctx context.Context, userID string, storeIDs []string) (map[string]int, error) {
	out := make(map[string]int, len(storeIDs))
	if len(storeIDs) == 0 {
		return out, nil
	}
	var rows []models.Rating
	err := r.db.WithContext(ctx).
		Select("store_id", "value").
		Where("user_id = ? AND store_id IN ?", userID, storeIDs).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, rt := range rows {
		out[rt.StoreID] = rt.Value
	}
	return out, nil
}

// ForStores returns every rating of the given stores with the rater loaded.
func (r *RatingRepo) ForStores(ctx context.Context, storeIDs []string) ([]models.Rating, error) {
	if len(storeIDs) == 0 {
		return nil, nil
	}
	var out []models.Rating
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("store_id IN ?", storeIDs).
		Order("updated_at DESC").
		Find(&out).Error
	return out, err
}

func (r *RatingRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Rating{}).Count(&n).Error
	return n, err
}
