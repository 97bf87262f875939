package service

import (
	"context"
	"errors"

	"github.com/mr1hm/safetywatch/internal/apperr"
	"github.com/mr1hm/safetywatch/internal/models"
	"github.com/mr1hm/safetywatch/internal/repository"
)

type RuleService struct {
	rules repository.RuleRepository
	users repository.UserRepository
}

func NewRuleService(rules repository.RuleRepository, users repository.UserRepository) *RuleService {
	return &RuleService{rules: rules, users: users}
}

func (s *RuleService) GetByUser(ctx context.Context, in UserIDInput) (*models.DetectionRule, error) {
	if err := requireID("userId", in.UserID); err != nil {
		return nil, err
	}
	r, err := s.rules.GetRuleByUser(ctx, in.UserID)
	if err != nil {
		return nil, storeError(err, "detection rule for user", in.UserID)
	}
	return r, nil
}

type CreateRuleInput struct {
	UserID            string   `json:"userId" validate:"required"`
	FallSensitivity   *float64 `json:"fallSensitivity,omitempty" validate:"omitempty,gte=0.1,lte=1"`
	ImmobilityTimeout *int     `json:"immobilityTimeout,omitempty" validate:"omitempty,gte=60,lte=3600"`
	IsActive          *bool    `json:"isActive,omitempty"`
}

func (s *RuleService) Create(ctx context.Context, in CreateRuleInput) (*models.DetectionRule, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	if _, err := s.users.GetUser(ctx, in.UserID); err != nil {
		return nil, storeError(err, "user", in.UserID)
	}

	if _, err := s.rules.GetRuleByUser(ctx, in.UserID); err == nil {
		return nil, apperr.Conflict("detection rule already exists for user " + in.UserID)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Internal("failed to look up detection rule", err)
	}

	r := &models.DetectionRule{
		UserID:            in.UserID,
		FallSensitivity:   models.DefaultFallSensitivity,
		ImmobilityTimeout: models.DefaultImmobilityTimeout,
		IsActive:          true,
	}
	if in.FallSensitivity != nil {
		r.FallSensitivity = *in.FallSensitivity
	}
	if in.ImmobilityTimeout != nil {
		r.ImmobilityTimeout = *in.ImmobilityTimeout
	}
	if in.IsActive != nil {
		r.IsActive = *in.IsActive
	}

	if err := s.rules.CreateRule(ctx, r); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("detection rule already exists for user " + in.UserID)
		}
		return nil, apperr.Internal("failed to create detection rule", err)
	}
	return r, nil
}

type UpdateRuleInput struct {
	ID                string   `json:"id" validate:"required"`
	FallSensitivity   *float64 `json:"fallSensitivity,omitempty" validate:"omitempty,gte=0.1,lte=1"`
	ImmobilityTimeout *int     `json:"immobilityTimeout,omitempty" validate:"omitempty,gte=60,lte=3600"`
	IsActive          *bool    `json:"isActive,omitempty"`
}

func (s *RuleService) Update(ctx context.Context, in UpdateRuleInput) (*models.DetectionRule, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if in.FallSensitivity != nil {
		fields["fall_sensitivity"] = *in.FallSensitivity
	}
	if in.ImmobilityTimeout != nil {
		fields["immobility_timeout"] = *in.ImmobilityTimeout
	}
	if in.IsActive != nil {
		fields["is_active"] = *in.IsActive
	}

	r, err := s.rules.UpdateRule(ctx, in.ID, fields)
	if err != nil {
		return nil, storeError(err, "detection rule", in.ID)
	}
	return r, nil
}
