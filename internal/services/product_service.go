package services

import (
	"context"
	"time"

	"stockflow/internal/common"
	"stockflow/internal/models"
	"stockflow/internal/repositories"
	"stockflow/internal/tenancy"

	"github.com/google/uuid"
)

type ProductService interface {
	Create(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error)
}

type productService struct {
	products repositories.ProductRepository
	tenants  TenantLookup
	guard    *SubscriptionGuard
}

func NewProductService(products repositories.ProductRepository, tenants TenantLookup, guard *SubscriptionGuard) ProductService {
	return &productService{products: products, tenants: tenants, guard: guard}
}

// Create adds a product to the current tenant if the plan allows another one.
func (s *productService) Create(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error) {
	if err := common.ValidateRequiredString(req.Name, "name"); err != nil {
		return nil, invalid("name", err)
	}
	if err := common.ValidateOptionalString(req.SKU, "sku", 64); err != nil {
		return nil, invalid("sku", err)
	}
	if err := common.ValidateNonNegativeInt(req.Quantity, "quantity", 1_000_000); err != nil {
		return nil, invalid("quantity", err)
	}
	if err := common.ValidateNonNegativeFloat(req.UnitPrice, "unit_price", 1_000_000); err != nil {
		return nil, invalid("unit_price", err)
	}

	var product *models.Product
	err := s.guard.GuardProductCreation(ctx, func(ctx context.Context) error {
		tenantID, err := tenancy.Require(ctx)
		if err != nil {
			return err
		}
		tenant, err := s.tenants.Get(ctx, tenantID)
		if err != nil {
			return err
		}

		now := time.Now()
		product = &models.Product{
			ID:        uuid.New(),
			TenantID:  tenant.ID,
			Name:      req.Name,
			SKU:       req.SKU,
			Quantity:  req.Quantity,
			UnitPrice: req.UnitPrice,
			Status:    models.ProductStatusActive,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return s.products.Create(ctx, product)
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}
