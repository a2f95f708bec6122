package users

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/mcdev12/underline/go/internal/apperr"
	"github.com/mcdev12/underline/go/internal/models"
	"github.com/rs/zerolog/log"
)

// UsersRepository defines what the app layer needs from the repository
type UsersRepository interface {
	CreateUser(ctx context.Context, req CreateUserRequest) (*models.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, id uuid.UUID, req UpdateUserRequest) (*models.User, error)
}

// App handles users business logic. Wallet balances are owned by the wallet
// package and never written here.
type App struct {
	repo UsersRepository
}

// NewApp creates a new users App
func NewApp(repo UsersRepository) *App {
	return &App{
		repo: repo,
	}
}

// CreateUser creates a new user with validation
func (a *App) CreateUser(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := a.validateCreateUserRequest(req); err != nil {
		return nil, err
	}

	if existing, err := a.repo.GetUserByEmail(ctx, req.Email); err == nil && existing != nil {
		return nil, apperr.Validation(apperr.CodeInvalidInput, "email", "user with email %s already exists", req.Email)
	}
	if req.Username != nil {
		if existing, err := a.repo.GetUserByUsername(ctx, *req.Username); err == nil && existing != nil {
			return nil, apperr.Validation(apperr.CodeInvalidInput, "username", "user with username %s already exists", *req.Username)
		}
	}

	user, err := a.repo.CreateUser(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Info().
		Str("user_id", user.ID.String()).
		Str("email", user.Email).
		Bool("free_to_play", user.FreeToPlay).
		Msg("created user")
	return user, nil
}

// GetUser retrieves a user by ID
func (a *App) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// UpdateUser updates profile fields
func (a *App) UpdateUser(ctx context.Context, id uuid.UUID, req UpdateUserRequest) (*models.User, error) {
	existing, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if req.Username != nil && (existing.Username == nil || *existing.Username != *req.Username) {
		if strings.TrimSpace(*req.Username) == "" {
			return nil, apperr.Validation(apperr.CodeInvalidInput, "username", "username cannot be blank")
		}
		if conflict, err := a.repo.GetUserByUsername(ctx, *req.Username); err == nil && conflict != nil {
			return nil, apperr.Validation(apperr.CodeInvalidInput, "username", "user with username %s already exists", *req.Username)
		}
	}

	user, err := a.repo.UpdateUser(ctx, id, req)
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	log.Info().Str("user_id", user.ID.String()).Msg("updated user")
	return user, nil
}

func (a *App) validateCreateUserRequest(req CreateUserRequest) error {
	if req.Email == "" {
		return apperr.Validation(apperr.CodeInvalidInput, "email", "email is required")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return apperr.Validation(apperr.CodeInvalidInput, "email", "email format is invalid")
	}
	if req.Username != nil && strings.TrimSpace(*req.Username) == "" {
		return apperr.Validation(apperr.CodeInvalidInput, "username", "username cannot be blank")
	}
	return nil
}
