package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"stockflow/internal/common"
	"stockflow/internal/models"
	"stockflow/internal/repositories"
	"stockflow/internal/tenancy"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

var knownRoles = []string{models.RoleAdmin, models.RoleUser}

type UserService interface {
	Create(ctx context.Context, req *models.CreateUserRequest) (*models.User, error)
}

type userService struct {
	users   repositories.UserRepository
	tenants TenantLookup
	guard   *SubscriptionGuard
}

func NewUserService(users repositories.UserRepository, tenants TenantLookup, guard *SubscriptionGuard) UserService {
	return &userService{users: users, tenants: tenants, guard: guard}
}

// Create adds a user to the current tenant if the plan allows another one.
func (s *userService) Create(ctx context.Context, req *models.CreateUserRequest) (*models.User, error) {
	if err := validateUser(req); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	roles := req.Roles
	if len(roles) == 0 {
		roles = []string{models.RoleUser}
	}

	var user *models.User
	err = s.guard.GuardUserCreation(ctx, func(ctx context.Context) error {
		tenantID, err := tenancy.Require(ctx)
		if err != nil {
			return err
		}
		tenant, err := s.tenants.Get(ctx, tenantID)
		if err != nil {
			return err
		}

		now := time.Now()
		user = &models.User{
			ID:           uuid.New(),
			TenantID:     tenant.ID,
			Username:     req.Username,
			Email:        req.Email,
			PasswordHash: string(hash),
			Roles:        roles,
			Status:       models.UserStatusActive,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		return s.users.Create(ctx, user)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func validateUser(req *models.CreateUserRequest) error {
	if err := common.ValidateRequiredString(req.Username, "username"); err != nil {
		return invalid("username", err)
	}
	if err := common.ValidateRequiredString(req.Email, "email"); err != nil {
		return invalid("email", err)
	}
	if len(req.Password) < minPasswordLength {
		return invalid("password", fmt.Errorf("password must be at least %d characters", minPasswordLength))
	}
	for _, role := range req.Roles {
		if !slices.Contains(knownRoles, role) {
			return invalid("roles", errors.New("unknown role "+role))
		}
	}
	return nil
}
