package models

import "time"

// User is a directory record. Authentication lives outside this service;
// the core only reads profiles for projections and creates the AI identity.
type User struct {
	ID         string    `json:"id"`
	FullName   string    `json:"fullName"`
	Email      string    `json:"email,omitempty"`
	ProfilePic string    `json:"profilePic,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Ref returns the projected summary used in message views.
func (u *User) Ref() *UserRef {
	if u == nil {
		return nil
	}
	return &UserRef{ID: u.ID, FullName: u.FullName, ProfilePic: u.ProfilePic}
}
