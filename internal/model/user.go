// Package model defines the data structures used throughout the application.
package model

import (
	"strings"
	"time"
)

// User is a credential record. Email is the login key and is unique at the
// store level. PasswordHash is a bcrypt hash and is never serialized.
type User struct {
	ID           string    `json:"id"        db:"id"`
	Email        string    `json:"email"     db:"email"`
	PasswordHash string    `json:"-"         db:"password_hash"`
	Name         string    `json:"name"      db:"name"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

// DisplayName returns the stored name, falling back to the local part of the
// email (the text before '@') when no name was recorded.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	local, _, _ := strings.Cut(u.Email, "@")
	return local
}

// PublicUser is the shape returned to API clients.
type PublicUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Email: u.Email, Name: u.DisplayName()}
}
