package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Unlimited marks a plan limit with no cap.
const Unlimited = -1

//go:embed default_plans.yaml
var defaultPlans []byte

// Plan represents a subscription plan and its caps
type Plan struct {
	Name        string `yaml:"name"`
	MaxUsers    int64  `yaml:"max_users"`
	MaxProducts int64  `yaml:"max_products"`
	TrialDays   int    `yaml:"trial_days"`
}

// PlanCatalog is the set of plans keyed by plan id.
type PlanCatalog struct {
	DefaultPlan string          `yaml:"default_plan"`
	Plans       map[string]Plan `yaml:"plans"`
}

var ErrPlanNotFound = errors.New("plan not found")

// LoadPlans reads the plan catalog from path, or the embedded default
// catalog when path is empty.
func LoadPlans(path string) (*PlanCatalog, error) {
	data := defaultPlans
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read plans file: %w", err)
		}
		data = raw
	}
	return ParsePlans(data)
}

// ParsePlans decodes and validates a YAML plan catalog.
func ParsePlans(data []byte) (*PlanCatalog, error) {
	catalog := &PlanCatalog{}
	if err := yaml.Unmarshal(data, catalog); err != nil {
		return nil, fmt.Errorf("failed to decode plans: %w", err)
	}
	if len(catalog.Plans) == 0 {
		return nil, errors.New("plan catalog is empty")
	}
	for id, plan := range catalog.Plans {
		if plan.MaxUsers < Unlimited || plan.MaxProducts < Unlimited {
			return nil, fmt.Errorf("plan %q: limits must be -1 or non-negative", id)
		}
		if plan.TrialDays < 0 {
			return nil, fmt.Errorf("plan %q: trial_days must not be negative", id)
		}
	}
	if _, ok := catalog.Plans[catalog.DefaultPlan]; !ok {
		return nil, fmt.Errorf("default plan %q: %w", catalog.DefaultPlan, ErrPlanNotFound)
	}
	return catalog, nil
}

// Get returns the plan with the given id.
func (c *PlanCatalog) Get(id string) (Plan, error) {
	plan, ok := c.Plans[id]
	if !ok {
		return Plan{}, fmt.Errorf("%w: %s", ErrPlanNotFound, id)
	}
	return plan, nil
}
