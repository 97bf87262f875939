package service

import (
	"context"
	"time"

	"github.com/mr1hm/safetywatch/internal/apperr"
	"github.com/mr1hm/safetywatch/internal/models"
	"github.com/mr1hm/safetywatch/internal/repository"
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

type LocationService struct {
	locations repository.LocationRepository
	users     repository.UserRepository
	refresher Refresher
}

func NewLocationService(locations repository.LocationRepository, users repository.UserRepository, refresher Refresher) *LocationService {
	return &LocationService{locations: locations, users: users, refresher: refresher}
}

type RecordLocationInput struct {
	UserID     string     `json:"userId" validate:"required"`
	Latitude   *float64   `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude  *float64   `json:"longitude" validate:"required,gte=-180,lte=180"`
	Accuracy   *float64   `json:"accuracy,omitempty" validate:"omitempty,gte=0"`
	Speed      *float64   `json:"speed,omitempty" validate:"omitempty,gte=0"`
	Heading    *float64   `json:"heading,omitempty" validate:"omitempty,gte=0,lt=360"`
	RecordedAt *time.Time `json:"recordedAt,omitempty"`
}

func (s *LocationService) Record(ctx context.Context, in RecordLocationInput) (*models.Location, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	if _, err := s.users.GetUser(ctx, in.UserID); err != nil {
		return nil, storeError(err, "user", in.UserID)
	}

	l := &models.Location{
		UserID:    in.UserID,
		Latitude:  *in.Latitude,
		Longitude: *in.Longitude,
		Accuracy:  in.Accuracy,
		Speed:     in.Speed,
		Heading:   in.Heading,
	}
	if in.RecordedAt != nil {
		l.RecordedAt = in.RecordedAt.UTC()
	}
	if err := s.locations.AddLocation(ctx, l); err != nil {
		return nil, storeError(err, "location", l.ID)
	}

	if s.refresher != nil {
		s.refresher.Notify()
	}
	return l, nil
}

type LocationHistoryInput struct {
	UserID string `json:"userId" validate:"required"`
	Limit  int    `json:"limit,omitempty" validate:"omitempty,min=1,max=500"`
}

// History returns the user's readings, newest first.
func (s *LocationService) History(ctx context.Context, in LocationHistoryInput) ([]models.Location, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if in.Limit == 0 {
		in.Limit = DefaultHistoryLimit
	}
	locs, err := s.locations.ListLocations(ctx, in.UserID, in.Limit)
	if err != nil {
		return nil, apperr.Internal("failed to list locations", err)
	}
	return locs, nil
}
