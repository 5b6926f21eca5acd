package model

import "strings"

// ProfileResult is the GET /me response.
type ProfileResult struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Bio       string `json:"bio"`
	Email     string `json:"email"`
}

// Profile is the authenticated user as shown on the profile screen.
// It is derived once from a ProfileResult and replaced wholesale on refresh.
type Profile struct {
	Username  string `json:"username"`
	Name      string `json:"name"`      // "First Last", empty parts dropped
	LoginName string `json:"loginName"` // "@username"
	Bio       string `json:"bio,omitempty"`
}

// NewProfile derives a Profile from the wire record.
func NewProfile(r ProfileResult) Profile {
	parts := make([]string, 0, 2)
	for _, p := range []string{r.FirstName, r.LastName} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return Profile{
		Username:  r.Username,
		Name:      strings.Join(parts, " "),
		LoginName: "@" + r.Username,
		Bio:       r.Bio,
	}
}

// UserResult is the part of GET /users/{username} we read.
type UserResult struct {
	Username     string       `json:"username"`
	ProfileImage ProfileImage `json:"profile_image"`
}

// ProfileImage lists avatar renditions by size.
type ProfileImage struct {
	Small  string `json:"small"`
	Medium string `json:"medium"`
	Large  string `json:"large"`
}

// AvatarChange is published when the resolved avatar URL changes.
// An empty URL means the avatar was forgotten.
type AvatarChange struct {
	URL string `json:"url"`
}
