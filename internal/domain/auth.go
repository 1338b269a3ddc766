package domain

import (
	"io"
	"strconv"
)

// Credentials are submitted to /auth/login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is submitted to /auth/register.
type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ProfileImage is an optional avatar attached to a registration. When present
// the registration is sent as multipart/form-data.
type ProfileImage struct {
	Filename    string
	ContentType string
	Data        io.Reader
}

// AuthResponse is returned by /auth/login and /auth/register.
type AuthResponse struct {
	Token        string `json:"token"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	ProfileImage string `json:"profileImage,omitempty"`
}

// User extracts the profile part of the response.
func (r AuthResponse) User() User {
	return User{
		Username:     r.Username,
		Email:        r.Email,
		ProfileImage: r.ProfileImage,
	}
}

func formatID(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}
