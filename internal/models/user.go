package models

import "time"

// User roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is the subset of the account record this service reads.
type User struct {
	ID         string    `gorm:"type:uuid;primaryKey" bson:"_id" json:"_id"`
	Nickname   string    `gorm:"not null" bson:"nickname" json:"nickname"`
	ProfileURL string    `bson:"profile_url" json:"profile_url"`
	State      string    `bson:"state" json:"state"`
	Role       string    `gorm:"not null;default:'user'" bson:"role" json:"role"`
	CreatedAt  time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt  time.Time `bson:"updated_at" json:"updatedAt"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Summary returns the public projection attached to items.
func (u *User) Summary() *UserSummary {
	return &UserSummary{
		ID:         u.ID,
		Nickname:   u.Nickname,
		ProfileURL: u.ProfileURL,
		State:      u.State,
	}
}
