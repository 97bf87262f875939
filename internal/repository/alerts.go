package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mr1hm/safetywatch/internal/models"
)

// ownerDisplay limits the preloaded owner to the fields shown next to an
// alert. Contact details stay out of lists and snapshots.
func ownerDisplay(db *gorm.DB) *gorm.DB {
	return db.Select("id", "email", "name")
}

func (s *GormStore) CreateAlert(ctx context.Context, a *models.Alert) error {
	if err := s.db.WithContext(ctx).Omit("User").Create(a).Error; err != nil {
		return fmt.Errorf("failed to insert alert: %w", translate(err))
	}
	return nil
}

func (s *GormStore) GetAlert(ctx context.Context, id string) (*models.Alert, error) {
	var a models.Alert
	err := s.db.WithContext(ctx).Preload("User", ownerDisplay).First(&a, "id = ?", id).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get alert %s: %w", id, translate(err))
	}
	return &a, nil
}

func (s *GormStore) ListAlerts(ctx context.Context, opts AlertFilter) ([]models.Alert, error) {
	q := s.db.WithContext(ctx).Model(&models.Alert{}).Preload("User", ownerDisplay)

	if opts.UserID != nil {
		q = q.Where("user_id = ?", *opts.UserID)
	}
	if opts.IsResolved != nil {
		q = q.Where("is_resolved = ?", *opts.IsResolved)
	}

	q = q.Order("created_at DESC").Order("id DESC")
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}

	alerts := []models.Alert{}
	if err := q.Find(&alerts).Error; err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	return alerts, nil
}

func (s *GormStore) MarkResolved(ctx context.Context, id string, at time.Time) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Alert{}).
		Where("id = ? AND is_resolved = ?", id, false).
		Updates(map[string]any{"is_resolved": true, "resolved_at": at})
	if res.Error != nil {
		return false, fmt.Errorf("failed to resolve alert %s: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}
