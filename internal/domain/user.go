package domain

import "time"

// User is the profile the backend returns for an authenticated account.
type User struct {
	ID           string    `json:"_id,omitempty"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	ProfileImage string    `json:"profileImage,omitempty"`
	CreatedAt    time.Time `json:"createdAt,omitzero"`
}

// Account is the backend-side user record, including the password hash.
// Only the mock backend stores it.
type Account struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	ProfileImage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile strips the credentials from an account.
func (a Account) Profile() User {
	return User{
		ID:           formatID(a.ID),
		Username:     a.Username,
		Email:        a.Email,
		ProfileImage: a.ProfileImage,
		CreatedAt:    a.CreatedAt,
	}
}
