package models

import (
	"strings"

	"gorm.io/gorm"
)

// User is a registered account. BeforeSave lower-cases Email.
type User struct {
	BaseModel

	Email     string `gorm:"type:varchar(320);uniqueIndex;not null" json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	IsActive  bool   `gorm:"default:true" json:"is_active"`
}

// BeforeSave normalises the email so lookups can compare lower-cased addresses.
func (u *User) BeforeSave(tx *gorm.DB) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	return nil
}

// DisplayName returns the user's full name, falling back to the email address.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	default:
		return u.Email
	}
}
