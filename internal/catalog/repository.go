package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/adityakhanna/vastra-backend/pkg/db/models"
	"github.com/adityakhanna/vastra-backend/pkg/enums"
	"github.com/adityakhanna/vastra-backend/pkg/pagination"
	"github.com/adityakhanna/vastra-backend/pkg/types"
)

// ProductRepository defines persistence operations for catalog listings.
type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) (*models.Product, error)
	Update(ctx context.Context, product *models.Product) (*models.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindBySlug(ctx context.Context, slug string) (*models.Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	List(ctx context.Context, input ListProductsInput) ([]models.Product, error)
	DecrementStockTx(tx *gorm.DB, productID uuid.UUID, size string, quantity int) (bool, error)
	WithTx(tx *gorm.DB) ProductRepository
}

// Repository is the GORM-backed product repository.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) ProductRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

func (r *Repository) Update(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Save(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id).Error
}

// FindByID loads the product without visibility filtering; admin paths use it.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindBySlug loads an active product for the public detail page.
func (r *Repository) FindBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Where("slug = ? AND is_active = true", slug).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByIDs batch-loads products regardless of active state. Callers decide
// how to treat inactive rows; the sanitizer needs to see them.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&rows).Error
	return rows, err
}

// List returns a cursor page of active products for the given channel.
func (r *Repository) List(ctx context.Context, input ListProductsInput) ([]models.Product, error) {
	cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).
		Where("is_active = true")

	if input.Channel.IsValid() {
		query = query.Where("channel = ?", input.Channel)
	}
	if input.Category != "" {
		query = query.Where("category = ?", input.Category)
	}
	if input.InStockOnly {
		query = query.Where("in_stock = true")
	}
	if input.Query != "" {
		query = query.Where("title ILIKE ?", "%"+input.Query+"%")
	}
	if cursor != nil {
		query = query.Where(
			"(created_at, id) < (?, ?)",
			cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Product
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(input.Pagination.Limit)).
		Find(&rows).Error
	return rows, err
}

// DecrementStockTx takes quantity units of a size inside the checkout
// transaction. The row lock serializes concurrent checkouts; false means the
// stock ran out in the meantime and the caller must abort.
func (r *Repository) DecrementStockTx(tx *gorm.DB, productID uuid.UUID, size string, quantity int) (bool, error) {
	var product models.Product
	err := tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&product, "id = ?", productID).Error
	if err != nil {
		return false, err
	}

	available := product.StockBySize.Available(size)
	if available < quantity {
		return false, nil
	}

	if product.StockBySize == nil {
		product.StockBySize = types.SizeStock{}
	}
	product.StockBySize[size] = available - quantity

	err = tx.Model(&models.Product{}).
		Where("id = ?", productID).
		Updates(map[string]interface{}{
			"stock_by_size": product.StockBySize,
			"in_stock":      product.StockBySize.AnyInStock(),
		}).Error
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListProductsInput captures the filter and pagination knobs for the browse endpoint.
type ListProductsInput struct {
	Channel     enums.SalesChannel
	Category    string
	InStockOnly bool
	Query       string
	Pagination  pagination.Params
}
