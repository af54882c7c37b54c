package models

import "gorm.io/datatypes"

// Namespace is the tenant that owns members, roles, and invitations.
type Namespace struct {
	BaseModel

	Name        string         `gorm:"not null" json:"name"`
	Slug        string         `gorm:"type:varchar(128);uniqueIndex;not null" json:"slug"`
	Description string         `json:"description"`
	Settings    datatypes.JSON `json:"settings"`

	Members []NamespaceMember `gorm:"foreignKey:NamespaceID" json:"members,omitempty"`
	Roles   []Role            `gorm:"foreignKey:NamespaceID" json:"roles,omitempty"`
}
