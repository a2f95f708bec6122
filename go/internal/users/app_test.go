package users

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/mcdev12/underline/go/internal/apperr"
	"github.com/mcdev12/underline/go/internal/models"
)

type fakeRepo struct {
	users []*models.User
}

func (f *fakeRepo) CreateUser(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	u := &models.User{ID: uuid.New(), Email: req.Email, Username: req.Username, FirstName: req.FirstName, LastName: req.LastName, FreeToPlay: req.FreeToPlay, Creator: req.Creator}
	f.users = append(f.users, u)
	return u, nil
}

func (f *fakeRepo) find(match func(*models.User) bool, key any) (*models.User, error) {
	for _, u := range f.users {
		if match(u) {
			return u, nil
		}
	}
	return nil, apperr.NotFound("user", key)
}

func (f *fakeRepo) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.ID == id }, id)
}

func (f *fakeRepo) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.Username != nil && *u.Username == username }, username)
}

func (f *fakeRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.Email == email }, email)
}

func (f *fakeRepo) UpdateUser(ctx context.Context, id uuid.UUID, req UpdateUserRequest) (*models.User, error) {
	u, err := f.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Username, u.FirstName, u.LastName = req.Username, req.FirstName, req.LastName
	return u, nil
}

func strPtr(s string) *string { return &s }

func TestCreateUser(t *testing.T) {
	ctx := context.Background()
	app := NewApp(&fakeRepo{})

	user, err := app.CreateUser(ctx, CreateUserRequest{Email: " Fan@Example.com ", Username: strPtr("fan"), FreeToPlay: true})
	if err != nil {
		t.Fatalf("CreateUser() error: %v", err)
	}
	if user.Email != "fan@example.com" {
		t.Errorf("email = %q, want normalized", user.Email)
	}

	tests := []struct {
		name  string
		req   CreateUserRequest
		field string
	}{
		{"missing email", CreateUserRequest{}, "email"},
		{"malformed email", CreateUserRequest{Email: "not-an-email"}, "email"},
		{"duplicate email", CreateUserRequest{Email: "FAN@example.com"}, "email"},
		{"duplicate username", CreateUserRequest{Email: "other@example.com", Username: strPtr("fan")}, "username"},
		{"blank username", CreateUserRequest{Email: "third@example.com", Username: strPtr("  ")}, "username"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := app.CreateUser(ctx, tt.req)
			var ve *apperr.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("error = %v, want validation", err)
			}
			if ve.Field != tt.field {
				t.Errorf("field = %q, want %q", ve.Field, tt.field)
			}
		})
	}
}

func TestUpdateUserRejectsTakenUsername(t *testing.T) {
	ctx := context.Background()
	app := NewApp(&fakeRepo{})

	first, _ := app.CreateUser(ctx, CreateUserRequest{Email: "a@example.com", Username: strPtr("alpha")})
	second, _ := app.CreateUser(ctx, CreateUserRequest{Email: "b@example.com", Username: strPtr("beta")})

	if _, err := app.UpdateUser(ctx, second.ID, UpdateUserRequest{Username: strPtr("alpha")}); !apperr.IsValidation(err, "") {
		t.Errorf("error = %v, want validation", err)
	}

	// Keeping one's own username is not a conflict.
	updated, err := app.UpdateUser(ctx, first.ID, UpdateUserRequest{Username: strPtr("alpha"), FirstName: "Ada"})
	if err != nil {
		t.Fatalf("UpdateUser() error: %v", err)
	}
	if updated.FirstName != "Ada" {
		t.Errorf("first name = %q, want Ada", updated.FirstName)
	}
}

func TestGetUserNotFound(t *testing.T) {
	_, err := NewApp(&fakeRepo{}).GetUser(context.Background(), uuid.New())
	if !apperr.IsNotFound(err) {
		t.Errorf("error = %v, want not found", err)
	}
}
