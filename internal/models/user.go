package models

import "time"

// User logs in with Email; Username is the public handle.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"not null;size:200;uniqueIndex" json:"email"`
	Username  string    `gorm:"not null;size:150;uniqueIndex" json:"username"`
	FirstName string    `gorm:"not null;size:150" json:"first_name"`
	LastName  string    `gorm:"not null;size:150" json:"last_name"`
	Password  string    `gorm:"not null" json:"-"`
	Role      string    `gorm:"size:20;default:'user'" json:"-"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

const RoleAdmin = "admin"

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
