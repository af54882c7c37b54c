package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/opsapi/internal/models"
)

// CreateMembershipInput describes a namespace membership to materialise.
type CreateMembershipInput struct {
	NamespaceID uint
	UserID      uint
	Status      models.MemberStatus
	InvitedBy   *uint
	RoleIDs     []uint
}

// MembershipService creates namespace memberships. Calls receive the database handle to use
// so callers can run them inside their own transaction.
type MembershipService interface {
	IsActiveMember(ctx context.Context, db *gorm.DB, namespaceID, userID uint) (bool, error)
	Create(ctx context.Context, db *gorm.DB, input CreateMembershipInput) (*models.NamespaceMember, error)
}

// NamespaceMemberService is the GORM-backed MembershipService.
type NamespaceMemberService struct {
	now func() time.Time
}

// NewNamespaceMemberService constructs a NamespaceMemberService. A nil clock uses time.Now.
func NewNamespaceMemberService(now func() time.Time) *NamespaceMemberService {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &NamespaceMemberService{now: now}
}

// IsActiveMember reports whether the user holds a membership that is not removed.
func (s *NamespaceMemberService) IsActiveMember(ctx context.Context, db *gorm.DB, namespaceID, userID uint) (bool, error) {
	var count int64
	err := db.WithContext(ensureContext(ctx)).
		Model(&models.NamespaceMember{}).
		Where("namespace_id = ? AND user_id = ? AND status <> ?", namespaceID, userID, models.MemberStatusRemoved).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("membership service: check member: %w", err)
	}
	return count > 0, nil
}

// Create inserts a membership, or re-activates a previously removed one, and assigns roles
// belonging to the namespace.
func (s *NamespaceMemberService) Create(ctx context.Context, db *gorm.DB, input CreateMembershipInput) (*models.NamespaceMember, error) {
	ctx = ensureContext(ctx)
	if input.NamespaceID == 0 || input.UserID == 0 {
		return nil, errors.New("membership service: namespace and user are required")
	}
	status := input.Status
	if status == "" {
		status = models.MemberStatusActive
	}
	now := s.now()

	var member models.NamespaceMember
	err := db.WithContext(ctx).
		Where("namespace_id = ? AND user_id = ?", input.NamespaceID, input.UserID).
		First(&member).Error
	switch {
	case err == nil:
		if member.IsActive() {
			return nil, ErrMembershipExists
		}
		if err := db.WithContext(ctx).Model(&member).Updates(map[string]any{
			"status":     status,
			"invited_by": input.InvitedBy,
			"joined_at":  now,
		}).Error; err != nil {
			return nil, fmt.Errorf("membership service: reactivate member: %w", err)
		}
		member.Status = status
		member.InvitedBy = input.InvitedBy
		member.JoinedAt = now
	case errors.Is(err, gorm.ErrRecordNotFound):
		member = models.NamespaceMember{
			NamespaceID: input.NamespaceID,
			UserID:      input.UserID,
			Status:      status,
			InvitedBy:   input.InvitedBy,
			JoinedAt:    now,
		}
		if err := db.WithContext(ctx).Create(&member).Error; err != nil {
			if isUniqueConstraintError(err) {
				return nil, ErrMembershipExists
			}
			return nil, fmt.Errorf("membership service: create member: %w", err)
		}
	default:
		return nil, fmt.Errorf("membership service: load member: %w", err)
	}

	roles := []models.Role{}
	if len(input.RoleIDs) > 0 {
		if err := db.WithContext(ctx).
			Where("id IN ? AND namespace_id = ?", input.RoleIDs, input.NamespaceID).
			Find(&roles).Error; err != nil {
			return nil, fmt.Errorf("membership service: load roles: %w", err)
		}
	}
	if err := db.WithContext(ctx).Model(&member).Association("Roles").Replace(roles); err != nil {
		return nil, fmt.Errorf("membership service: assign roles: %w", err)
	}
	member.Roles = roles

	return &member, nil
}
