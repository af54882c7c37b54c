package models

import "time"

// MemberStatus enumerates namespace membership states.
type MemberStatus string

const (
	MemberStatusActive    MemberStatus = "active"
	MemberStatusSuspended MemberStatus = "suspended"
	MemberStatusRemoved   MemberStatus = "removed"
)

// NamespaceMember links a user to a namespace.
type NamespaceMember struct {
	BaseModel

	NamespaceID uint         `gorm:"not null;uniqueIndex:idx_namespace_members_pair" json:"namespace_id"`
	UserID      uint         `gorm:"not null;uniqueIndex:idx_namespace_members_pair" json:"user_id"`
	Status      MemberStatus `gorm:"type:varchar(16);not null;default:active;index" json:"status"`
	InvitedBy   *uint        `json:"invited_by,omitempty"`
	JoinedAt    time.Time    `json:"joined_at"`

	Namespace *Namespace `gorm:"constraint:OnDelete:CASCADE" json:"namespace,omitempty"`
	User      *User      `gorm:"constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Roles     []Role     `gorm:"many2many:namespace_member_roles;" json:"roles,omitempty"`
}

// IsActive reports whether the membership counts towards namespace access. Only removed
// memberships are treated as absent.
func (m *NamespaceMember) IsActive() bool {
	return m != nil && m.Status != MemberStatusRemoved
}
