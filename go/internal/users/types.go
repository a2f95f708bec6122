package users

// CreateUserRequest represents the data needed to create a new user
type CreateUserRequest struct {
	Email      string  `json:"email"`
	Username   *string `json:"username,omitempty"`
	FirstName  string  `json:"first_name"`
	LastName   string  `json:"last_name"`
	FreeToPlay bool    `json:"free_to_play"`
	Creator    bool    `json:"creator"`
}

// UpdateUserRequest represents the profile fields a user can change
type UpdateUserRequest struct {
	Username  *string `json:"username,omitempty"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
}
