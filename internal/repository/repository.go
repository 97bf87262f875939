package repository

import (
	"context"
	"errors"
	"time"

	"github.com/mr1hm/safetywatch/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

type AlertFilter struct {
	UserID     *string
	IsResolved *bool
	Limit      int
	Offset     int
}

type UserListOptions struct {
	WithLatestLocation bool
	WithCounts         bool
}

type AlertRepository interface {
	CreateAlert(ctx context.Context, a *models.Alert) error
	GetAlert(ctx context.Context, id string) (*models.Alert, error)
	ListAlerts(ctx context.Context, opts AlertFilter) ([]models.Alert, error)
	// MarkResolved flips an unresolved alert to resolved. It reports false
	// when the alert was already resolved or does not exist.
	MarkResolved(ctx context.Context, id string, at time.Time) (bool, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// GetUserDetail loads the user with its latest location, newest alerts,
	// contacts and detection rules.
	GetUserDetail(ctx context.Context, id string, alertLimit int) (*models.User, error)
	ListUsers(ctx context.Context, opts UserListOptions) ([]models.User, error)
	SetTelegramChatID(ctx context.Context, id, chatID string) error
}

type LocationRepository interface {
	AddLocation(ctx context.Context, l *models.Location) error
	ListLocations(ctx context.Context, userID string, limit int) ([]models.Location, error)
}

type ContactRepository interface {
	CreateContact(ctx context.Context, c *models.EmergencyContact) error
	GetContact(ctx context.Context, id string) (*models.EmergencyContact, error)
	ListContacts(ctx context.Context, userID string) ([]models.EmergencyContact, error)
	UpdateContact(ctx context.Context, id string, fields map[string]any) (*models.EmergencyContact, error)
	DeleteContact(ctx context.Context, id string) (*models.EmergencyContact, error)
}

type RuleRepository interface {
	CreateRule(ctx context.Context, r *models.DetectionRule) error
	GetRule(ctx context.Context, id string) (*models.DetectionRule, error)
	GetRuleByUser(ctx context.Context, userID string) (*models.DetectionRule, error)
	UpdateRule(ctx context.Context, id string, fields map[string]any) (*models.DetectionRule, error)
}

type Store interface {
	AlertRepository
	UserRepository
	LocationRepository
	ContactRepository
	RuleRepository
}
