package combos

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/adityakhanna/vastra-backend/pkg/db/models"
	"github.com/adityakhanna/vastra-backend/pkg/enums"
	pkgerrors "github.com/adityakhanna/vastra-backend/pkg/errors"
	"github.com/adityakhanna/vastra-backend/pkg/types"
)

// Service evaluates combo offers against carts and manages them for admins.
type Service interface {
	Evaluate(ctx context.Context, channel enums.SalesChannel, lines []LineInput, now time.Time) (*types.AppliedCombo, error)

	Create(ctx context.Context, input UpsertComboInput) (*models.ComboOffer, error)
	Update(ctx context.Context, id uuid.UUID, input UpsertComboInput) (*models.ComboOffer, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]models.ComboOffer, error)
}

// UpsertComboInput holds the validated payload to create or replace an offer.
type UpsertComboInput struct {
	Name        string
	MinQuantity int
	ComboPrice  decimal.Decimal
	Channel     enums.SalesChannel
	StartsAt    *time.Time
	EndsAt      *time.Time
	IsActive    bool
}

type service struct {
	repo ComboRepository
}

// NewService constructs a combo service instance.
func NewService(repo ComboRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("combo repository required")
	}
	return &service{repo: repo}, nil
}

// Evaluate returns the best applicable offer for the cart, or nil.
func (s *service) Evaluate(ctx context.Context, channel enums.SalesChannel, lines []LineInput, now time.Time) (*types.AppliedCombo, error) {
	if !channel.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid sales channel")
	}
	if len(lines) == 0 {
		return nil, nil
	}

	offers, err := s.repo.ListLive(ctx, channel, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list combo offers")
	}
	return BestCombo(offers, ExpandUnits(lines), now), nil
}

func (s *service) Create(ctx context.Context, input UpsertComboInput) (*models.ComboOffer, error) {
	if err := validateCombo(input); err != nil {
		return nil, err
	}

	offer := &models.ComboOffer{
		Name:        strings.TrimSpace(input.Name),
		MinQuantity: input.MinQuantity,
		ComboPrice:  input.ComboPrice,
		Channel:     input.Channel,
		StartsAt:    input.StartsAt,
		EndsAt:      input.EndsAt,
		IsActive:    input.IsActive,
	}
	created, err := s.repo.Create(ctx, offer)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create combo offer")
	}
	return created, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpsertComboInput) (*models.ComboOffer, error) {
	if err := validateCombo(input); err != nil {
		return nil, err
	}

	offer, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	offer.Name = strings.TrimSpace(input.Name)
	offer.MinQuantity = input.MinQuantity
	offer.ComboPrice = input.ComboPrice
	offer.Channel = input.Channel
	offer.StartsAt = input.StartsAt
	offer.EndsAt = input.EndsAt
	offer.IsActive = input.IsActive

	updated, err := s.repo.Update(ctx, offer)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update combo offer")
	}
	return updated, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete combo offer")
	}
	return nil
}

func (s *service) List(ctx context.Context) ([]models.ComboOffer, error) {
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list combo offers")
	}
	return rows, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.ComboOffer, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "combo id is required")
	}
	offer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "combo offer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load combo offer")
	}
	return offer, nil
}

func validateCombo(input UpsertComboInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.MinQuantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "min quantity must be positive")
	}
	if input.ComboPrice.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "combo price cannot be negative")
	}
	if !input.Channel.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid sales channel")
	}
	if input.StartsAt != nil && input.EndsAt != nil && input.EndsAt.Before(*input.StartsAt) {
		return pkgerrors.New(pkgerrors.CodeValidation, "ends_at must be after starts_at")
	}
	return nil
}
