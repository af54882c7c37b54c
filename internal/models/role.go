package models

// Role is a namespace-scoped grant bundle assigned to members.
type Role struct {
	BaseModel

	NamespaceID uint   `gorm:"not null;uniqueIndex:idx_roles_namespace_name" json:"namespace_id"`
	Name        string `gorm:"type:varchar(128);not null;uniqueIndex:idx_roles_namespace_name" json:"name"`
	Description string `json:"description"`

	Namespace *Namespace `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
