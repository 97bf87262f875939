package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr1hm/safetywatch/internal/apperr"
	"github.com/mr1hm/safetywatch/internal/models"
)

func TestRuleService_CreateDefaults(t *testing.T) {
	store := setupStore(t)
	svc := NewRuleService(store, store)
	ctx := context.Background()
	seedUser(t, store, "u1")

	r, err := svc.Create(ctx, CreateRuleInput{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultFallSensitivity, r.FallSensitivity)
	assert.Equal(t, models.DefaultImmobilityTimeout, r.ImmobilityTimeout)
	assert.True(t, r.IsActive)

	_, err = svc.Create(ctx, CreateRuleInput{UserID: "u1"})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	got, err := svc.GetByUser(ctx, UserIDInput{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)
}

func TestRuleService_Bounds(t *testing.T) {
	store := setupStore(t)
	svc := NewRuleService(store, store)
	ctx := context.Background()
	seedUser(t, store, "u1")

	tests := []struct {
		name  string
		in    CreateRuleInput
		field string
	}{
		{"sensitivity too high", CreateRuleInput{UserID: "u1", FallSensitivity: ptr(1.5)}, "fallSensitivity"},
		{"sensitivity zero", CreateRuleInput{UserID: "u1", FallSensitivity: ptr(0.0)}, "fallSensitivity"},
		{"timeout too short", CreateRuleInput{UserID: "u1", ImmobilityTimeout: ptr(30)}, "immobilityTimeout"},
		{"timeout too long", CreateRuleInput{UserID: "u1", ImmobilityTimeout: ptr(7200)}, "immobilityTimeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.in)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
			assert.Contains(t, apperr.FieldsOf(err), tt.field)
		})
	}
}

func TestRuleService_Update(t *testing.T) {
	store := setupStore(t)
	svc := NewRuleService(store, store)
	ctx := context.Background()
	seedUser(t, store, "u1")

	r, err := svc.Create(ctx, CreateRuleInput{UserID: "u1", IsActive: ptr(false)})
	require.NoError(t, err)
	assert.False(t, r.IsActive)

	updated, err := svc.Update(ctx, UpdateRuleInput{ID: r.ID, FallSensitivity: ptr(0.5), IsActive: ptr(true)})
	require.NoError(t, err)
	assert.Equal(t, 0.5, updated.FallSensitivity)
	assert.True(t, updated.IsActive)
	assert.Equal(t, models.DefaultImmobilityTimeout, updated.ImmobilityTimeout)

	_, err = svc.Update(ctx, UpdateRuleInput{ID: r.ID, FallSensitivity: ptr(1.5)})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = svc.Update(ctx, UpdateRuleInput{ID: "missing", IsActive: ptr(true)})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestRuleService_GetByUser_NotFound(t *testing.T) {
	store := setupStore(t)
	svc := NewRuleService(store, store)

	_, err := svc.GetByUser(context.Background(), UserIDInput{UserID: "u1"})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
