package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/mr1hm/safetywatch/internal/apperr"
	"github.com/mr1hm/safetywatch/internal/metrics"
	"github.com/mr1hm/safetywatch/internal/models"
	"github.com/mr1hm/safetywatch/internal/repository"
)

const (
	DefaultAlertLimit = 50
	MaxAlertLimit     = 100
)

// Dispatcher hands created alerts to the notification pipeline. It must not
// block.
type Dispatcher interface {
	Dispatch(alert models.Alert)
}

// Refresher is poked after a mutation so live feeds push a fresh snapshot.
type Refresher interface {
	Notify()
}

type AlertService struct {
	alerts     repository.AlertRepository
	users      repository.UserRepository
	dispatcher Dispatcher
	refresher  Refresher
	metrics    *metrics.Metrics
	now        func() time.Time
}

type AlertOption func(*AlertService)

func WithDispatcher(d Dispatcher) AlertOption {
	return func(s *AlertService) { s.dispatcher = d }
}

func WithRefresher(r Refresher) AlertOption {
	return func(s *AlertService) { s.refresher = r }
}

func WithMetrics(m *metrics.Metrics) AlertOption {
	return func(s *AlertService) { s.metrics = m }
}

func WithClock(now func() time.Time) AlertOption {
	return func(s *AlertService) { s.now = now }
}

func NewAlertService(alerts repository.AlertRepository, users repository.UserRepository, opts ...AlertOption) *AlertService {
	s := &AlertService{
		alerts: alerts,
		users:  users,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type ListAlertsInput struct {
	UserID     *string `json:"userId,omitempty"`
	IsResolved *bool   `json:"isResolved,omitempty"`
	// Limit defaults to 50 when zero.
	Limit int `json:"limit,omitempty" validate:"omitempty,min=1,max=100"`
}

func (s *AlertService) List(ctx context.Context, in ListAlertsInput) ([]models.Alert, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	filter := repository.AlertFilter{
		UserID:     in.UserID,
		IsResolved: in.IsResolved,
		Limit:      in.Limit,
	}
	if filter.Limit == 0 {
		filter.Limit = DefaultAlertLimit
	}

	alerts, err := s.alerts.ListAlerts(ctx, filter)
	if err != nil {
		return nil, apperr.Internal("failed to list alerts", err)
	}
	return alerts, nil
}

type CreateAlertInput struct {
	UserID   string               `json:"userId" validate:"required"`
	Category models.AlertCategory `json:"category" validate:"required,alert_category"`
	// Type is accepted as an alias of Category.
	Type      models.AlertCategory `json:"type,omitempty"`
	Severity  models.AlertSeverity `json:"severity" validate:"required,alert_severity"`
	Message   string               `json:"message" validate:"required,max=2000"`
	Latitude  *float64             `json:"latitude,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Longitude *float64             `json:"longitude,omitempty" validate:"omitempty,gte=-180,lte=180"`
}

func (s *AlertService) Create(ctx context.Context, in CreateAlertInput) (*models.Alert, error) {
	if in.Category == "" {
		in.Category = in.Type
	}
	in.Message = strings.TrimSpace(in.Message)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if err := coordinatePair(in.Latitude, in.Longitude); err != nil {
		return nil, err
	}

	user, err := s.users.GetUser(ctx, in.UserID)
	if err != nil {
		return nil, storeError(err, "user", in.UserID)
	}

	alert := &models.Alert{
		UserID:    in.UserID,
		Category:  in.Category,
		Severity:  in.Severity,
		Message:   in.Message,
		Latitude:  in.Latitude,
		Longitude: in.Longitude,
		CreatedAt: s.now(),
	}
	if err := s.alerts.CreateAlert(ctx, alert); err != nil {
		return nil, storeError(err, "alert", alert.ID)
	}
	alert.User = user

	slog.Info("alert created", "alert_id", alert.ID, "user_id", alert.UserID, "category", alert.Category, "severity", alert.Severity)
	s.metrics.AlertCreated(string(alert.Category), string(alert.Severity))

	if s.dispatcher != nil {
		s.dispatcher.Dispatch(*alert)
	}
	if s.refresher != nil {
		s.refresher.Notify()
	}
	return alert, nil
}

// Resolve marks the alert resolved. Resolving an already resolved alert
// returns it unchanged.
func (s *AlertService) Resolve(ctx context.Context, in IDInput) (*models.Alert, error) {
	if err := requireID("id", in.ID); err != nil {
		return nil, err
	}

	existing, err := s.alerts.GetAlert(ctx, in.ID)
	if err != nil {
		return nil, storeError(err, "alert", in.ID)
	}
	if existing.IsResolved {
		return existing, nil
	}

	updated, err := s.alerts.MarkResolved(ctx, in.ID, s.now())
	if err != nil {
		return nil, apperr.Internal("failed to resolve alert", err)
	}

	alert, err := s.alerts.GetAlert(ctx, in.ID)
	if err != nil {
		return nil, storeError(err, "alert", in.ID)
	}

	if updated {
		slog.Info("alert resolved", "alert_id", alert.ID, "user_id", alert.UserID)
		s.metrics.AlertResolved()
		if s.refresher != nil {
			s.refresher.Notify()
		}
	}
	return alert, nil
}
