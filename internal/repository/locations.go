package repository

import (
	"context"
	"fmt"

	"github.com/mr1hm/safetywatch/internal/models"
)

func (s *GormStore) AddLocation(ctx context.Context, l *models.Location) error {
	if err := s.db.WithContext(ctx).Create(l).Error; err != nil {
		return fmt.Errorf("failed to insert location: %w", translate(err))
	}
	return nil
}

func (s *GormStore) ListLocations(ctx context.Context, userID string, limit int) ([]models.Location, error) {
	locs := []models.Location{}
	q := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("recorded_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&locs).Error; err != nil {
		return nil, fmt.Errorf("failed to list locations for user %s: %w", userID, err)
	}
	return locs, nil
}
