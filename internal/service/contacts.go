package service

import (
	"context"
	"strings"

	"github.com/mr1hm/safetywatch/internal/apperr"
	"github.com/mr1hm/safetywatch/internal/models"
	"github.com/mr1hm/safetywatch/internal/repository"
)

type ContactService struct {
	contacts repository.ContactRepository
	users    repository.UserRepository
}

func NewContactService(contacts repository.ContactRepository, users repository.UserRepository) *ContactService {
	return &ContactService{contacts: contacts, users: users}
}

func (s *ContactService) ListByUser(ctx context.Context, in UserIDInput) ([]models.EmergencyContact, error) {
	if err := requireID("userId", in.UserID); err != nil {
		return nil, err
	}
	contacts, err := s.contacts.ListContacts(ctx, in.UserID)
	if err != nil {
		return nil, apperr.Internal("failed to list emergency contacts", err)
	}
	return contacts, nil
}

type CreateContactInput struct {
	UserID   string  `json:"userId" validate:"required"`
	Name     string  `json:"name" validate:"required,max=255"`
	Phone    string  `json:"phone" validate:"required,max=64"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	Relation *string `json:"relation,omitempty" validate:"omitempty,max=64"`
}

func (s *ContactService) Create(ctx context.Context, in CreateContactInput) (*models.EmergencyContact, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	if _, err := s.users.GetUser(ctx, in.UserID); err != nil {
		return nil, storeError(err, "user", in.UserID)
	}

	c := &models.EmergencyContact{
		UserID:   in.UserID,
		Name:     in.Name,
		Phone:    in.Phone,
		Email:    in.Email,
		Relation: in.Relation,
	}
	if err := s.contacts.CreateContact(ctx, c); err != nil {
		return nil, storeError(err, "emergency contact", c.ID)
	}
	return c, nil
}

// UpdateContactInput changes only the fields that are set.
type UpdateContactInput struct {
	ID       string  `json:"id" validate:"required"`
	Name     *string `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,min=1,max=64"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	Relation *string `json:"relation,omitempty" validate:"omitempty,max=64"`
}

func (s *ContactService) Update(ctx context.Context, in UpdateContactInput) (*models.EmergencyContact, error) {
	in.Name = trimmed(in.Name)
	in.Phone = trimmed(in.Phone)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if in.Name != nil {
		fields["name"] = *in.Name
	}
	if in.Phone != nil {
		fields["phone"] = *in.Phone
	}
	if in.Email != nil {
		fields["email"] = *in.Email
	}
	if in.Relation != nil {
		fields["relation"] = *in.Relation
	}

	c, err := s.contacts.UpdateContact(ctx, in.ID, fields)
	if err != nil {
		return nil, storeError(err, "emergency contact", in.ID)
	}
	return c, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

// Delete removes the contact and returns the deleted record.
func (s *ContactService) Delete(ctx context.Context, in IDInput) (*models.EmergencyContact, error) {
	if err := requireID("id", in.ID); err != nil {
		return nil, err
	}
	c, err := s.contacts.DeleteContact(ctx, in.ID)
	if err != nil {
		return nil, storeError(err, "emergency contact", in.ID)
	}
	return c, nil
}
