package combos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/adityakhanna/vastra-backend/pkg/db/models"
	"github.com/adityakhanna/vastra-backend/pkg/enums"
)

// ComboRepository defines persistence for combo offers.
type ComboRepository interface {
	Create(ctx context.Context, offer *models.ComboOffer) (*models.ComboOffer, error)
	Update(ctx context.Context, offer *models.ComboOffer) (*models.ComboOffer, error)
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.ComboOffer, error)
	ListLive(ctx context.Context, channel enums.SalesChannel, now time.Time) ([]models.ComboOffer, error)
	ListAll(ctx context.Context) ([]models.ComboOffer, error)
}

// Repository is the GORM-backed combo repository.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, offer *models.ComboOffer) (*models.ComboOffer, error) {
	if err := r.db.WithContext(ctx).Create(offer).Error; err != nil {
		return nil, err
	}
	return offer, nil
}

func (r *Repository) Update(ctx context.Context, offer *models.ComboOffer) (*models.ComboOffer, error) {
	if err := r.db.WithContext(ctx).Save(offer).Error; err != nil {
		return nil, err
	}
	return offer, nil
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.ComboOffer{}, "id = ?", id).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ComboOffer, error) {
	var offer models.ComboOffer
	if err := r.db.WithContext(ctx).First(&offer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &offer, nil
}

// ListLive returns the offers currently redeemable on the given channel.
func (r *Repository) ListLive(ctx context.Context, channel enums.SalesChannel, now time.Time) ([]models.ComboOffer, error) {
	var rows []models.ComboOffer
	err := r.db.WithContext(ctx).
		Where("is_active = true AND channel = ?", channel).
		Where("starts_at IS NULL OR starts_at <= ?", now).
		Where("ends_at IS NULL OR ends_at >= ?", now).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) ListAll(ctx context.Context) ([]models.ComboOffer, error) {
	var rows []models.ComboOffer
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&rows).Error
	return rows, err
}
