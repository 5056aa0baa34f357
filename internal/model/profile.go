package model

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Profile is the local mirror of an identity provider account.
type Profile struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	Name         string    `db:"name" json:"name"`
	Role         string    `db:"role" json:"role"`
	ProfileImage *string   `db:"profile_image" json:"profile_image,omitempty"`
	IsSuspended  bool      `db:"is_suspended" json:"is_suspended"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// IsAdmin reports whether the profile has the admin role.
func (p *Profile) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// Session is the authenticated caller of a request.
type Session struct {
	UserID        string
	Email         string
	EmailVerified bool
	Role          string
	AccessToken   string
}

// MemberSummary is a profile with its subscription and download count, as listed to admins.
type MemberSummary struct {
	Profile       Profile
	Subscription  *Subscription
	DownloadCount int
}
