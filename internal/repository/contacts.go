package repository

import (
	"context"
	"fmt"

	"github.com/mr1hm/safetywatch/internal/models"
)

func (s *GormStore) CreateContact(ctx context.Context, c *models.EmergencyContact) error {
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("failed to insert contact: %w", translate(err))
	}
	return nil
}

func (s *GormStore) GetContact(ctx context.Context, id string) (*models.EmergencyContact, error) {
	var c models.EmergencyContact
	if err := s.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to get contact %s: %w", id, translate(err))
	}
	return &c, nil
}

func (s *GormStore) ListContacts(ctx context.Context, userID string) ([]models.EmergencyContact, error) {
	contacts := []models.EmergencyContact{}
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at ASC").Order("id ASC").Find(&contacts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts for user %s: %w", userID, err)
	}
	return contacts, nil
}

// UpdateContact applies the column/value pairs in fields and returns the
// stored record.
func (s *GormStore) UpdateContact(ctx context.Context, id string, fields map[string]any) (*models.EmergencyContact, error) {
	c, err := s.GetContact(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return c, nil
	}
	if err := s.db.WithContext(ctx).Model(c).Updates(fields).Error; err != nil {
		return nil, fmt.Errorf("failed to update contact %s: %w", id, translate(err))
	}
	return s.GetContact(ctx, id)
}

func (s *GormStore) DeleteContact(ctx context.Context, id string) (*models.EmergencyContact, error) {
	c, err := s.GetContact(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Delete(&models.EmergencyContact{}, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to delete contact %s: %w", id, err)
	}
	return c, nil
}
