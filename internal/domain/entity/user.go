package entity

import (
	"time"

	"github.com/google/uuid"
)

// Role represents a user role in the system
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

// User represents the centralized account table. Doctors who linked
// their Google Calendar carry a long-lived refresh token; everyone
// else has it null.
type User struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Email              string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password           string    `gorm:"type:text;not null" json:"-"`
	FullName           string    `gorm:"type:varchar(255);not null" json:"full_name"`
	Role               Role      `gorm:"type:user_role;not null;default:'patient';index" json:"role"`
	IsActive           bool      `gorm:"not null;default:true;index" json:"is_active"`
	GoogleRefreshToken *string   `gorm:"type:text" json:"-"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// IsCalendarLinked reports whether the user stored a Google refresh token.
func (u *User) IsCalendarLinked() bool {
	return u.GoogleRefreshToken != nil && *u.GoogleRefreshToken != ""
}
