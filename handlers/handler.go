package handlers

import (
	"store-ratings-api/auth"
	"store-ratings-api/metrics"
	"store-ratings-api/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Handler carries the dependencies shared by every resource handler.
type Handler struct {
	Users      *repository.UserRepo
	Stores     *repository.StoreRepo
	Ratings    *repository.RatingRepo
	Tokens     *auth.Issuer
	Metrics    *metrics.Metrics
	Log        logrus.FieldLogger
	BcryptCost int
}

func New(db *gorm.DB, tokens *auth.Issuer, m *metrics.Metrics, log logrus.FieldLogger, bcryptCost int) *Handler {
	return &Handler{
		Users:      repository.NewUserRepo(db),
		Stores:     repository.NewStoreRepo(db),
		Ratings:    repository.NewRatingRepo(db),
		Tokens:     tokens,
		Metrics:    m,
		Log:        log,
		BcryptCost: bcryptCost,
	}
}
