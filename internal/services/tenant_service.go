package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"stockflow/internal/config"
	"stockflow/internal/models"
	"stockflow/internal/repositories"
	"stockflow/internal/tenancy"

	"github.com/google/uuid"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,62}$`)

// TenantService provisions tenants.
type TenantService interface {
	Create(ctx context.Context, req *CreateTenantRequest) (*models.Tenant, error)
}

type tenantService struct {
	tenantRepo repositories.TenantRepository
	users      UserService
	plans      *config.PlanCatalog
	now        func() time.Time
}

func NewTenantService(tenantRepo repositories.TenantRepository, users UserService, plans *config.PlanCatalog) TenantService {
	return &tenantService{tenantRepo: tenantRepo, users: users, plans: plans, now: time.Now}
}

// CreateTenantRequest describes a new tenant. Admin, when set, is created as
// the tenant's first user.
type CreateTenantRequest struct {
	Slug  string
	Name  string
	Plan  string
	Admin *models.CreateUserRequest
}

// Create stores the tenant on its plan, starting the plan's trial if it has
// one, and then creates the administrator inside the new tenant.
func (s *tenantService) Create(ctx context.Context, req *CreateTenantRequest) (*models.Tenant, error) {
	slug := tenancy.Normalize(req.Slug)
	if !slugPattern.MatchString(slug) || slug == tenancy.PublicTenant {
		return nil, invalid("slug", errors.New("slug must be 1-63 lower case letters, digits or dashes"))
	}

	planID := req.Plan
	if planID == "" {
		planID = s.plans.DefaultPlan
	}
	plan, err := s.plans.Get(planID)
	if err != nil {
		return nil, invalid("plan", err)
	}

	now := s.now()
	tenant := &models.Tenant{
		ID:        uuid.New(),
		Slug:      slug,
		Name:      req.Name,
		Plan:      planID,
		Status:    models.TenantStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if tenant.Name == "" {
		tenant.Name = slug
	}
	if plan.TrialDays > 0 {
		ends := now.AddDate(0, 0, plan.TrialDays)
		tenant.TrialEndsAt = &ends
	}

	if err := s.tenantRepo.Create(ctx, tenant); err != nil {
		return nil, err
	}

	if req.Admin != nil {
		_, err := tenancy.RunAsValue(ctx, slug, func(ctx context.Context) (*models.User, error) {
			return s.users.Create(ctx, req.Admin)
		})
		if err != nil {
			return tenant, fmt.Errorf("tenant %s created but its administrator was not: %w", slug, err)
		}
	}

	return tenant, nil
}
