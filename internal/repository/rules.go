package repository

import (
	"context"
	"fmt"

	"github.com/mr1hm/safetywatch/internal/models"
)

func (s *GormStore) CreateRule(ctx context.Context, r *models.DetectionRule) error {
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		return fmt.Errorf("failed to insert detection rule: %w", translate(err))
	}
	return nil
}

func (s *GormStore) GetRule(ctx context.Context, id string) (*models.DetectionRule, error) {
	var r models.DetectionRule
	if err := s.db.WithContext(ctx).First(&r, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to get detection rule %s: %w", id, translate(err))
	}
	return &r, nil
}

func (s *GormStore) GetRuleByUser(ctx context.Context, userID string) (*models.DetectionRule, error) {
	var r models.DetectionRule
	if err := s.db.WithContext(ctx).First(&r, "user_id = ?", userID).Error; err != nil {
		return nil, fmt.Errorf("failed to get detection rule for user %s: %w", userID, translate(err))
	}
	return &r, nil
}

func (s *GormStore) UpdateRule(ctx context.Context, id string, fields map[string]any) (*models.DetectionRule, error) {
	r, err := s.GetRule(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return r, nil
	}
	if err := s.db.WithContext(ctx).Model(r).Updates(fields).Error; err != nil {
		return nil, fmt.Errorf("failed to update detection rule %s: %w", id, translate(err))
	}
	return s.GetRule(ctx, id)
}
