package collections

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/adityakhanna/vastra-backend/internal/catalog"
	"github.com/adityakhanna/vastra-backend/pkg/db/models"
	pkgerrors "github.com/adityakhanna/vastra-backend/pkg/errors"
)

// Service exposes collection curation plus the public read path.
type Service interface {
	GetBySlug(ctx context.Context, slug string) (*CollectionDTO, error)
	ListActive(ctx context.Context) ([]CollectionSummaryDTO, error)

	Create(ctx context.Context, input CreateCollectionInput) (*CollectionSummaryDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateCollectionInput) (*CollectionSummaryDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SetProducts(ctx context.Context, id uuid.UUID, productIDs []uuid.UUID) error
}

// CreateCollectionInput holds the validated payload to create a collection.
type CreateCollectionInput struct {
	Title       string
	Slug        string
	Description *string
	IsActive    bool
}

// UpdateCollectionInput holds optional mutation values.
type UpdateCollectionInput struct {
	Title       *string
	Slug        *string
	Description *string
	IsActive    *bool
}

// CollectionSummaryDTO is the list projection without product payloads.
type CollectionSummaryDTO struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Description *string   `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// CollectionDTO is the detail projection with priced products in curation order.
type CollectionDTO struct {
	CollectionSummaryDTO
	Products []catalog.ProductDTO `json:"products"`
}

type productChecker interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*catalog.ProductDTO, error)
}

type service struct {
	repo    CollectionRepository
	catalog productChecker
}

// NewService constructs a collections service instance.
func NewService(repo CollectionRepository, catalogSvc productChecker) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("collection repository required")
	}
	if catalogSvc == nil {
		return nil, fmt.Errorf("catalog service required")
	}
	return &service{repo: repo, catalog: catalogSvc}, nil
}

// GetBySlug serves the public collection page. Inactive or deleted member
// products are silently dropped from the payload.
func (s *service) GetBySlug(ctx context.Context, slug string) (*CollectionDTO, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug is required")
	}

	collection, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "collection not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load collection")
	}

	dto := &CollectionDTO{
		CollectionSummaryDTO: toSummary(collection),
		Products:             make([]catalog.ProductDTO, 0, len(collection.Products)),
	}
	for _, entry := range collection.Products {
		if entry.Product == nil || !entry.Product.IsActive {
			continue
		}
		product, err := s.catalog.GetProduct(ctx, entry.ProductID)
		if err != nil {
			if pkgerrors.As(err) != nil && pkgerrors.As(err).Code() == pkgerrors.CodeNotFound {
				continue
			}
			return nil, err
		}
		dto.Products = append(dto.Products, *product)
	}
	return dto, nil
}

func (s *service) ListActive(ctx context.Context) ([]CollectionSummaryDTO, error) {
	rows, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list collections")
	}
	out := make([]CollectionSummaryDTO, 0, len(rows))
	for i := range rows {
		out = append(out, toSummary(&rows[i]))
	}
	return out, nil
}

func (s *service) Create(ctx context.Context, input CreateCollectionInput) (*CollectionSummaryDTO, error) {
	title := strings.TrimSpace(input.Title)
	slug := strings.ToLower(strings.TrimSpace(input.Slug))
	if title == "" || slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title and slug are required")
	}

	collection := &models.Collection{
		Title:       title,
		Slug:        slug,
		Description: input.Description,
		IsActive:    input.IsActive,
	}
	created, err := s.repo.Create(ctx, collection)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create collection")
	}
	summary := toSummary(created)
	return &summary, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateCollectionInput) (*CollectionSummaryDTO, error) {
	collection, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		collection.Title = strings.TrimSpace(*input.Title)
	}
	if input.Slug != nil {
		collection.Slug = strings.ToLower(strings.TrimSpace(*input.Slug))
	}
	if input.Description != nil {
		collection.Description = input.Description
	}
	if input.IsActive != nil {
		collection.IsActive = *input.IsActive
	}
	if collection.Title == "" || collection.Slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title and slug are required")
	}

	updated, err := s.repo.Update(ctx, collection)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update collection")
	}
	summary := toSummary(updated)
	return &summary, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete collection")
	}
	return nil
}

// SetProducts replaces the membership; order of the input slice is the
// curation order.
func (s *service) SetProducts(ctx context.Context, id uuid.UUID, productIDs []uuid.UUID) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}

	seen := map[uuid.UUID]struct{}{}
	entries := make([]models.CollectionProduct, 0, len(productIDs))
	for i, productID := range productIDs {
		if productID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
		}
		if _, dup := seen[productID]; dup {
			return pkgerrors.New(pkgerrors.CodeValidation, "duplicate product in collection")
		}
		seen[productID] = struct{}{}

		if _, err := s.catalog.GetProduct(ctx, productID); err != nil {
			return err
		}
		entries = append(entries, models.CollectionProduct{
			CollectionID: id,
			ProductID:    productID,
			Position:     i,
		})
	}

	if err := s.repo.ReplaceProducts(ctx, id, entries); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace collection products")
	}
	return nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Collection, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "collection id is required")
	}
	collection, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "collection not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load collection")
	}
	return collection, nil
}

func toSummary(collection *models.Collection) CollectionSummaryDTO {
	return CollectionSummaryDTO{
		ID:          collection.ID,
		Title:       collection.Title,
		Slug:        collection.Slug,
		Description: collection.Description,
		IsActive:    collection.IsActive,
		CreatedAt:   collection.CreatedAt,
	}
}
