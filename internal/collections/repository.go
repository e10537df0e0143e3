package collections

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/adityakhanna/vastra-backend/pkg/db/models"
)

// CollectionRepository defines persistence for curated product groupings.
type CollectionRepository interface {
	Create(ctx context.Context, collection *models.Collection) (*models.Collection, error)
	Update(ctx context.Context, collection *models.Collection) (*models.Collection, error)
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Collection, error)
	FindBySlug(ctx context.Context, slug string) (*models.Collection, error)
	ListActive(ctx context.Context) ([]models.Collection, error)
	ReplaceProducts(ctx context.Context, collectionID uuid.UUID, entries []models.CollectionProduct) error
}

// Repository is the GORM-backed collection repository.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, collection *models.Collection) (*models.Collection, error) {
	if err := r.db.WithContext(ctx).Create(collection).Error; err != nil {
		return nil, err
	}
	return collection, nil
}

func (r *Repository) Update(ctx context.Context, collection *models.Collection) (*models.Collection, error) {
	if err := r.db.WithContext(ctx).Save(collection).Error; err != nil {
		return nil, err
	}
	return collection, nil
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Collection{}, "id = ?", id).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Collection, error) {
	var collection models.Collection
	err := r.db.WithContext(ctx).
		Preload("Products", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Products.Product").
		First(&collection, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &collection, nil
}

// FindBySlug loads an active collection with its products in display order.
func (r *Repository) FindBySlug(ctx context.Context, slug string) (*models.Collection, error) {
	var collection models.Collection
	err := r.db.WithContext(ctx).
		Preload("Products", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Products.Product").
		Where("slug = ? AND is_active = true", slug).
		First(&collection).Error
	if err != nil {
		return nil, err
	}
	return &collection, nil
}

func (r *Repository) ListActive(ctx context.Context) ([]models.Collection, error) {
	var rows []models.Collection
	err := r.db.WithContext(ctx).
		Where("is_active = true").
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

// ReplaceProducts swaps the collection membership atomically.
func (r *Repository) ReplaceProducts(ctx context.Context, collectionID uuid.UUID, entries []models.CollectionProduct) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("collection_id = ?", collectionID).Delete(&models.CollectionProduct{}).Error; err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		return tx.Create(&entries).Error
	})
}
