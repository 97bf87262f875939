package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/mr1hm/safetywatch/internal/apperr"
	"github.com/mr1hm/safetywatch/internal/models"
	"github.com/mr1hm/safetywatch/internal/repository"
)

// DetailAlertLimit is how many recent alerts the user aggregate carries.
const DetailAlertLimit = 10

// Welcomer greets a chat when it is linked to a user.
type Welcomer interface {
	SendWelcome(ctx context.Context, chatID, name string) error
}

type UserService struct {
	users    repository.UserRepository
	welcomer Welcomer
}

// NewUserService builds the service. welcomer may be nil, in which case chats
// are linked without a greeting.
func NewUserService(users repository.UserRepository, welcomer Welcomer) *UserService {
	return &UserService{users: users, welcomer: welcomer}
}

// List returns every user with its latest location and relation counts.
func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	users, err := s.users.ListUsers(ctx, repository.UserListOptions{WithLatestLocation: true, WithCounts: true})
	if err != nil {
		return nil, apperr.Internal("failed to list users", err)
	}
	return users, nil
}

func (s *UserService) Get(ctx context.Context, in IDInput) (*models.User, error) {
	if err := requireID("id", in.ID); err != nil {
		return nil, err
	}
	u, err := s.users.GetUserDetail(ctx, in.ID, DetailAlertLimit)
	if err != nil {
		return nil, storeError(err, "user", in.ID)
	}
	return u, nil
}

type CreateUserInput struct {
	Email string  `json:"email" validate:"required,email"`
	Name  *string `json:"name,omitempty" validate:"omitempty,max=255"`
	Phone *string `json:"phone,omitempty" validate:"omitempty,max=64"`
}

func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*models.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	if _, err := s.users.GetUserByEmail(ctx, in.Email); err == nil {
		return nil, apperr.Conflict("a user with this email already exists")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Internal("failed to look up user", err)
	}

	u := &models.User{Email: in.Email, Name: in.Name, Phone: in.Phone}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("a user with this email already exists")
		}
		return nil, apperr.Internal("failed to create user", err)
	}

	slog.Info("user created", "user_id", u.ID)
	return u, nil
}

type LinkTelegramInput struct {
	UserID string `json:"userId" validate:"required"`
	ChatID string `json:"chatId" validate:"required"`
}

// LinkTelegram stores the chat id after a welcome message reached it.
func (s *UserService) LinkTelegram(ctx context.Context, in LinkTelegramInput) (*models.User, error) {
	in.ChatID = strings.TrimSpace(in.ChatID)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	u, err := s.users.GetUser(ctx, in.UserID)
	if err != nil {
		return nil, storeError(err, "user", in.UserID)
	}

	if s.welcomer != nil {
		if err := s.welcomer.SendWelcome(ctx, in.ChatID, u.DisplayName()); err != nil {
			slog.Warn("telegram welcome failed", "user_id", u.ID, "chat_id", in.ChatID, "error", err)
			return nil, apperr.Validation(
				"could not message this chat, start the bot first and check the chat id",
				map[string]string{"chatId": "is not reachable by the bot"},
			)
		}
	}

	if err := s.users.SetTelegramChatID(ctx, u.ID, in.ChatID); err != nil {
		return nil, storeError(err, "user", u.ID)
	}
	u.TelegramChatID = &in.ChatID

	slog.Info("telegram chat linked", "user_id", u.ID, "chat_id", in.ChatID)
	return u, nil
}
