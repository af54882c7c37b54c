package models

import (
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

// InvitationStatus enumerates invitation lifecycle states.
type InvitationStatus string

const (
	InvitationStatusPending  InvitationStatus = "pending"
	InvitationStatusAccepted InvitationStatus = "accepted"
	InvitationStatusDeclined InvitationStatus = "declined"
	InvitationStatusRevoked  InvitationStatus = "revoked"
	InvitationStatusExpired  InvitationStatus = "expired"
)

// InvitationStatuses lists every valid status.
var InvitationStatuses = []InvitationStatus{
	InvitationStatusPending,
	InvitationStatusAccepted,
	InvitationStatusDeclined,
	InvitationStatusRevoked,
	InvitationStatusExpired,
}

// ParseInvitationStatus converts a raw string into a known status.
func ParseInvitationStatus(raw string) (InvitationStatus, bool) {
	candidate := InvitationStatus(strings.ToLower(strings.TrimSpace(raw)))
	for _, status := range InvitationStatuses {
		if status == candidate {
			return status, true
		}
	}
	return "", false
}

// Invitation asks an email address to join a namespace.
type Invitation struct {
	BaseModel

	NamespaceID uint             `gorm:"not null;index" json:"namespace_id"`
	Email       string           `gorm:"type:varchar(320);not null;index" json:"email"`
	RoleID      *uint            `gorm:"index" json:"role_id"`
	Token       string           `gorm:"type:varchar(64);uniqueIndex;not null" json:"token"`
	Status      InvitationStatus `gorm:"type:varchar(16);not null;default:pending;index" json:"status"`
	Message     *string          `gorm:"type:text" json:"message,omitempty"`
	InvitedBy   uint             `gorm:"not null;index" json:"invited_by"`
	ExpiresAt   time.Time        `gorm:"not null;index" json:"expires_at"`
	AcceptedAt  *time.Time       `json:"accepted_at"`

	// PendingKey is non-null only while the invitation is pending; its unique index allows at
	// most one pending invitation per namespace and email.
	PendingKey *string `gorm:"type:varchar(400);uniqueIndex" json:"-"`

	Namespace *Namespace `gorm:"constraint:OnDelete:CASCADE" json:"namespace,omitempty"`
	Role      *Role      `gorm:"constraint:OnDelete:SET NULL" json:"role,omitempty"`
	Inviter   *User      `gorm:"foreignKey:InvitedBy" json:"inviter,omitempty"`

	// InviterName is filled from Inviter when it is preloaded.
	InviterName string `gorm:"-" json:"inviter_name,omitempty"`
}

// AfterFind derives InviterName; preloads have run by the time it is called.
func (i *Invitation) AfterFind(tx *gorm.DB) error {
	if i.Inviter != nil {
		i.InviterName = i.Inviter.DisplayName()
	}
	return nil
}

// IsExpiredAt reports whether the invitation is past its expiry at the supplied instant.
func (i *Invitation) IsExpiredAt(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

// IsPending reports whether the stored status is pending.
func (i *Invitation) IsPending() bool {
	return i.Status == InvitationStatusPending
}

// PendingKeyFor builds the uniqueness key held by a pending invitation.
func PendingKeyFor(namespaceID uint, email string) *string {
	key := strconv.FormatUint(uint64(namespaceID), 10) + ":" + strings.ToLower(strings.TrimSpace(email))
	return &key
}
