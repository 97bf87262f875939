package repository

import (
	"context"
	"fmt"

	"github.com/mr1hm/safetywatch/internal/models"
)

func (s *GormStore) CreateUser(ctx context.Context, u *models.User) error {
	if err := s.db.WithContext(ctx).Omit("Alerts", "Locations", "EmergencyContacts", "DetectionRules").Create(u).Error; err != nil {
		return fmt.Errorf("failed to insert user: %w", translate(err))
	}
	return nil
}

func (s *GormStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", id, translate(err))
	}
	return &u, nil
}

func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, "email = ?", email).Error; err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", translate(err))
	}
	return &u, nil
}

func (s *GormStore) GetUserDetail(ctx context.Context, id string, alertLimit int) (*models.User, error) {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)

	latest, err := s.latestLocations(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	u.Locations = []models.Location{}
	if loc, ok := latest[id]; ok {
		u.Locations = append(u.Locations, loc)
	}

	u.Alerts = []models.Alert{}
	q := db.Where("user_id = ?", id).Order("created_at DESC").Order("id DESC")
	if alertLimit > 0 {
		q = q.Limit(alertLimit)
	}
	if err := q.Find(&u.Alerts).Error; err != nil {
		return nil, fmt.Errorf("failed to load alerts for user %s: %w", id, err)
	}

	u.EmergencyContacts = []models.EmergencyContact{}
	if err := db.Where("user_id = ?", id).Order("created_at ASC").Find(&u.EmergencyContacts).Error; err != nil {
		return nil, fmt.Errorf("failed to load contacts for user %s: %w", id, err)
	}

	u.DetectionRules = []models.DetectionRule{}
	if err := db.Where("user_id = ?", id).Find(&u.DetectionRules).Error; err != nil {
		return nil, fmt.Errorf("failed to load detection rules for user %s: %w", id, err)
	}

	return u, nil
}

func (s *GormStore) ListUsers(ctx context.Context, opts UserListOptions) ([]models.User, error) {
	users := []models.User{}
	if err := s.db.WithContext(ctx).Order("created_at ASC").Order("id ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	if len(users) == 0 {
		return users, nil
	}

	ids := make([]string, len(users))
	for i := range users {
		ids[i] = users[i].ID
	}

	if opts.WithLatestLocation {
		latest, err := s.latestLocations(ctx, ids)
		if err != nil {
			return nil, err
		}
		for i := range users {
			users[i].Locations = []models.Location{}
			if loc, ok := latest[users[i].ID]; ok {
				users[i].Locations = append(users[i].Locations, loc)
			}
		}
	}

	if opts.WithCounts {
		counts, err := s.userCounts(ctx)
		if err != nil {
			return nil, err
		}
		for i := range users {
			c := counts[users[i].ID]
			users[i].Counts = &c
		}
	}

	return users, nil
}

func (s *GormStore) SetTelegramChatID(ctx context.Context, id, chatID string) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("telegram_chat_id", chatID)
	if res.Error != nil {
		return fmt.Errorf("failed to set telegram chat id for user %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("failed to set telegram chat id for user %s: %w", id, ErrNotFound)
	}
	return nil
}

// latestLocations returns the reading with the greatest recorded_at per user.
func (s *GormStore) latestLocations(ctx context.Context, userIDs []string) (map[string]models.Location, error) {
	var locs []models.Location
	err := s.db.WithContext(ctx).
		Table("locations AS l").
		Select("l.*").
		Where("l.user_id IN ?", userIDs).
		Where("l.recorded_at = (SELECT MAX(l2.recorded_at) FROM locations AS l2 WHERE l2.user_id = l.user_id)").
		Order("l.id ASC").
		Find(&locs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load latest locations: %w", err)
	}

	out := make(map[string]models.Location, len(locs))
	for _, l := range locs {
		// Readings sharing the newest timestamp: keep the first.
		if _, ok := out[l.UserID]; !ok {
			out[l.UserID] = l
		}
	}
	return out, nil
}

type countRow struct {
	UserID string
	N      int64
}

func (s *GormStore) userCounts(ctx context.Context) (map[string]models.UserCounts, error) {
	out := map[string]models.UserCounts{}
	db := s.db.WithContext(ctx)

	tally := func(model any, set func(c *models.UserCounts, n int64)) error {
		var rows []countRow
		if err := db.Model(model).Select("user_id, COUNT(*) AS n").Group("user_id").Scan(&rows).Error; err != nil {
			return err
		}
		for _, r := range rows {
			c := out[r.UserID]
			set(&c, r.N)
			out[r.UserID] = c
		}
		return nil
	}

	if err := tally(&models.Alert{}, func(c *models.UserCounts, n int64) { c.Alerts = n }); err != nil {
		return nil, fmt.Errorf("failed to count alerts: %w", err)
	}
	if err := tally(&models.Location{}, func(c *models.UserCounts, n int64) { c.Locations = n }); err != nil {
		return nil, fmt.Errorf("failed to count locations: %w", err)
	}
	if err := tally(&models.EmergencyContact{}, func(c *models.UserCounts, n int64) { c.EmergencyContacts = n }); err != nil {
		return nil, fmt.Errorf("failed to count contacts: %w", err)
	}
	return out, nil
}
