package catalog

import (
	"github.com/shopspring/decimal"

	catalogsvc "github.com/adityakhanna/vastra-backend/internal/catalog"
	"github.com/adityakhanna/vastra-backend/pkg/enums"
	pkgerrors "github.com/adityakhanna/vastra-backend/pkg/errors"
	"github.com/adityakhanna/vastra-backend/pkg/types"
)

type createProductRequest struct {
	Title         string          `json:"title" validate:"required,max=200"`
	Slug          string          `json:"slug" validate:"required,max=200"`
	Description   *string         `json:"description,omitempty"`
	Category      string          `json:"category" validate:"required,max=100"`
	Channel       string          `json:"channel" validate:"required,oneof=retail wholesale"`
	BasePrice     decimal.Decimal `json:"base_price"`
	DiscountType  string          `json:"discount_type" validate:"required,oneof=none percentage flat"`
	DiscountValue decimal.Decimal `json:"discount_value"`
	StockBySize   types.SizeStock `json:"stock_by_size" validate:"required"`
	Images        []string        `json:"images,omitempty"`
	IsActive      bool            `json:"is_active"`
}

type updateProductRequest struct {
	Title         *string          `json:"title,omitempty" validate:"omitempty,max=200"`
	Slug          *string          `json:"slug,omitempty" validate:"omitempty,max=200"`
	Description   *string          `json:"description,omitempty"`
	Category      *string          `json:"category,omitempty" validate:"omitempty,max=100"`
	Channel       *string          `json:"channel,omitempty" validate:"omitempty,oneof=retail wholesale"`
	BasePrice     *decimal.Decimal `json:"base_price,omitempty"`
	DiscountType  *string          `json:"discount_type,omitempty" validate:"omitempty,oneof=none percentage flat"`
	DiscountValue *decimal.Decimal `json:"discount_value,omitempty"`
	Images        *[]string        `json:"images,omitempty"`
	IsActive      *bool            `json:"is_active,omitempty"`
}

type setStockRequest struct {
	StockBySize types.SizeStock `json:"stock_by_size" validate:"required"`
}

func toCreateInput(payload createProductRequest) (catalogsvc.CreateProductInput, error) {
	channel, err := enums.ParseSalesChannel(payload.Channel)
	if err != nil {
		return catalogsvc.CreateProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid channel")
	}
	discountType, err := enums.ParseDiscountType(payload.DiscountType)
	if err != nil {
		return catalogsvc.CreateProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid discount type")
	}

	return catalogsvc.CreateProductInput{
		Title:         payload.Title,
		Slug:          payload.Slug,
		Description:   payload.Description,
		Category:      payload.Category,
		Channel:       channel,
		BasePrice:     payload.BasePrice,
		DiscountType:  discountType,
		DiscountValue: payload.DiscountValue,
		StockBySize:   payload.StockBySize,
		Images:        payload.Images,
		IsActive:      payload.IsActive,
	}, nil
}

func toUpdateInput(payload updateProductRequest) (catalogsvc.UpdateProductInput, error) {
	input := catalogsvc.UpdateProductInput{
		Title:         payload.Title,
		Slug:          payload.Slug,
		Description:   payload.Description,
		Category:      payload.Category,
		BasePrice:     payload.BasePrice,
		DiscountValue: payload.DiscountValue,
		Images:        payload.Images,
		IsActive:      payload.IsActive,
	}
	if payload.Channel != nil {
		channel, err := enums.ParseSalesChannel(*payload.Channel)
		if err != nil {
			return catalogsvc.UpdateProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid channel")
		}
		input.Channel = &channel
	}
	if payload.DiscountType != nil {
		discountType, err := enums.ParseDiscountType(*payload.DiscountType)
		if err != nil {
			return catalogsvc.UpdateProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid discount type")
		}
		input.DiscountType = &discountType
	}
	return input, nil
}
