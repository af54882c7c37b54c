package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditLog records a state change together with before/after snapshots.
type AuditLog struct {
	ID           uint           `gorm:"primaryKey;autoIncrement" json:"-"`
	UUID         string         `gorm:"type:varchar(36);uniqueIndex;not null" json:"uuid"`
	NamespaceID  *uint          `gorm:"index" json:"namespace_id"`
	ActorID      *uint          `gorm:"index" json:"actor_id"`
	Action       string         `gorm:"not null;index" json:"action"`
	ResourceType string         `gorm:"index" json:"resource_type"`
	ResourceUUID string         `gorm:"index" json:"resource_uuid"`
	Result       string         `gorm:"not null" json:"result"`
	OldValues    datatypes.JSON `json:"old_values,omitempty"`
	NewValues    datatypes.JSON `json:"new_values,omitempty"`
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.UUID == "" {
		a.UUID = uuid.NewString()
	}
	return nil
}
