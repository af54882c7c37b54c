package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/opsapi/internal/auditctx"
	"github.com/charlesng35/opsapi/internal/models"
	apperrors "github.com/charlesng35/opsapi/pkg/errors"
	"github.com/charlesng35/opsapi/pkg/logger"
	"github.com/charlesng35/opsapi/pkg/metrics"
	"github.com/charlesng35/opsapi/pkg/pagination"
	"github.com/charlesng35/opsapi/pkg/validator"
)

// likeEscaper makes LIKE wildcards literal. '!' is used as the escape character because a
// backslash literal is parsed differently by mysql and postgres.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

const (
	defaultInvitationExpiryDays = 7
	maxInvitationExpiryDays     = 365
)

// InvitationOption customises InvitationService behaviour.
type InvitationOption func(*InvitationService)

// WithInvitationClock injects a custom clock primarily for testing.
func WithInvitationClock(clock func() time.Time) InvitationOption {
	return func(s *InvitationService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithMembershipService overrides the service that materialises memberships on acceptance.
func WithMembershipService(members MembershipService) InvitationOption {
	return func(s *InvitationService) {
		if members != nil {
			s.members = members
		}
	}
}

// WithInvitationAudit records lifecycle transitions through the audit service.
func WithInvitationAudit(audit *AuditService) InvitationOption {
	return func(s *InvitationService) {
		s.audit = audit
	}
}

// WithTokenGenerator overrides the token generator.
func WithTokenGenerator(tokens *TokenGenerator) InvitationOption {
	return func(s *InvitationService) {
		if tokens != nil {
			s.tokens = tokens
		}
	}
}

// WithDefaultExpiryDays sets the lifetime used when callers do not supply one.
func WithDefaultExpiryDays(days int) InvitationOption {
	return func(s *InvitationService) {
		if days > 0 {
			s.defaultExpiryDays = days
		}
	}
}

// WithMaxExpiryDays caps the lifetime callers may request.
func WithMaxExpiryDays(days int) InvitationOption {
	return func(s *InvitationService) {
		if days > 0 {
			s.maxExpiryDays = days
		}
	}
}

// CreateInvitationInput captures a new namespace invitation.
type CreateInvitationInput struct {
	Namespace     Ref     `json:"-" validate:"-"`
	Email         string  `json:"email" validate:"required,email,max=320"`
	Role          *Ref    `json:"-" validate:"-"`
	InvitedBy     Ref     `json:"-" validate:"-"`
	Message       *string `json:"message" validate:"omitempty,max=2000"`
	ExpiresInDays *int    `json:"expires_in_days" validate:"omitempty,gte=1"`
}

// ListInvitationsOptions controls pagination and filtering for namespace listings.
type ListInvitationsOptions struct {
	Page    int
	PerPage int
	Status  string
	Search  string
}

// InvitationList is a single page of invitations.
type InvitationList struct {
	Data       []models.Invitation `json:"data"`
	Total      int64               `json:"total"`
	Page       int                 `json:"page"`
	PerPage    int                 `json:"per_page"`
	TotalPages int                 `json:"total_pages"`
}

// InvitationService manages the namespace invitation lifecycle.
type InvitationService struct {
	db                *gorm.DB
	members           MembershipService
	audit             *AuditService
	tokens            *TokenGenerator
	now               func() time.Time
	defaultExpiryDays int
	maxExpiryDays     int
	log               *zap.Logger
}

// NewInvitationService constructs an InvitationService with the provided dependencies.
func NewInvitationService(db *gorm.DB, opts ...InvitationOption) (*InvitationService, error) {
	if db == nil {
		return nil, errors.New("invitation service: db is required")
	}

	service := &InvitationService{
		db:                db,
		now:               func() time.Time { return time.Now().UTC() },
		defaultExpiryDays: defaultInvitationExpiryDays,
		maxExpiryDays:     maxInvitationExpiryDays,
		log:               logger.WithModule("invitations"),
	}

	for _, opt := range opts {
		opt(service)
	}

	if service.members == nil {
		service.members = NewNamespaceMemberService(service.now)
	}
	if service.tokens == nil {
		service.tokens = NewTokenGenerator(InvitationTokenExists(db))
	}

	return service, nil
}

// Create validates the request, issues a unique token, and stores a pending invitation.
// The returned invitation carries the raw token for delivery to the recipient.
func (s *InvitationService) Create(ctx context.Context, input CreateInvitationInput) (*models.Invitation, error) {
	ctx = ensureContext(ctx)

	input.Email = normaliseEmail(input.Email)
	if input.Message != nil {
		message := strings.TrimSpace(*input.Message)
		if message == "" {
			input.Message = nil
		} else {
			input.Message = &message
		}
	}
	if err := validator.Struct(input); err != nil {
		return nil, apperrors.NewBadRequest(err.Error())
	}
	days, err := s.expiryDays(input.ExpiresInDays)
	if err != nil {
		return nil, err
	}

	namespace, err := s.resolveNamespace(ctx, input.Namespace)
	if err != nil {
		return nil, err
	}
	inviter, err := s.resolveUser(ctx, input.InvitedBy)
	if err != nil {
		return nil, err
	}

	if err := s.ensureNotMember(ctx, namespace.ID, input.Email); err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.ensureNoPending(ctx, namespace.ID, input.Email, now); err != nil {
		return nil, err
	}

	roleID, err := s.namespaceRoleID(ctx, namespace.ID, input.Role)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Generate(ctx)
	if err != nil {
		return nil, internalError(err)
	}

	invitation := models.Invitation{
		BaseModel: models.BaseModel{
			CreatedAt: now,
			UpdatedAt: now,
		},
		NamespaceID: namespace.ID,
		Email:       input.Email,
		RoleID:      roleID,
		Token:       token,
		Status:      models.InvitationStatusPending,
		Message:     input.Message,
		InvitedBy:   inviter.ID,
		ExpiresAt:   now.Add(time.Duration(days) * 24 * time.Hour),
		PendingKey:  models.PendingKeyFor(namespace.ID, input.Email),
	}

	if err := s.db.WithContext(ctx).Create(&invitation).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, s.classifyUniqueViolation(ctx, namespace.ID, input.Email, 0, err)
		}
		return nil, internalError(fmt.Errorf("invitation service: create invitation: %w", err))
	}

	metrics.InvitationTransitions.WithLabelValues("create").Inc()
	s.log.Info("invitation created",
		zap.String("uuid", invitation.UUID),
		zap.Uint("namespace_id", namespace.ID),
		zap.Uint("invited_by", inviter.ID),
	)
	s.recordTransition(ctx, "invitation.create", uintPtr(inviter.ID), nil, &invitation)

	return s.reload(ctx, invitation.ID)
}

// FindByToken returns the invitation matching token with namespace, role, and inviter loaded.
// Possession of the token is the only credential checked.
func (s *InvitationService) FindByToken(ctx context.Context, token string) (*models.Invitation, error) {
	ctx = ensureContext(ctx)

	token = strings.TrimSpace(token)
	if validator.Var(token, "token") != nil {
		return nil, ErrInvitationNotFound
	}
	return s.first(ctx, s.withDetails(s.db.WithContext(ctx)).Where("token = ?", token))
}

// Show looks up an invitation by internal id or uuid.
func (s *InvitationService) Show(ctx context.Context, ref Ref) (*models.Invitation, error) {
	ctx = ensureContext(ctx)

	if ref.IsZero() {
		return nil, ErrInvitationNotFound
	}
	return s.first(ctx, ref.scope(s.withDetails(s.db.WithContext(ctx)), "invitations"))
}

// All lists a namespace's invitations, newest first.
func (s *InvitationService) All(ctx context.Context, namespaceRef Ref, opts ListInvitationsOptions) (*InvitationList, error) {
	ctx = ensureContext(ctx)

	namespace, err := s.resolveNamespace(ctx, namespaceRef)
	if err != nil {
		return nil, err
	}

	page := pagination.Normalize(opts.Page, opts.PerPage)

	query := s.db.WithContext(ctx).Model(&models.Invitation{}).Where("namespace_id = ?", namespace.ID)
	if raw := strings.TrimSpace(opts.Status); raw != "" {
		status, ok := models.ParseInvitationStatus(raw)
		if !ok {
			return nil, apperrors.NewBadRequest(fmt.Sprintf("unknown invitation status %q", raw))
		}
		query = query.Where("status = ?", status)
	}
	if search := normaliseEmail(opts.Search); search != "" {
		query = query.Where("LOWER(email) LIKE ? ESCAPE '!'", "%"+likeEscaper.Replace(search)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, internalError(fmt.Errorf("invitation service: count invitations: %w", err))
	}

	invitations := []models.Invitation{}
	if err := s.withDetails(query).
		Order("created_at DESC").
		Order("id DESC").
		Offset(page.Offset()).
		Limit(page.Limit()).
		Find(&invitations).Error; err != nil {
		return nil, internalError(fmt.Errorf("invitation service: list invitations: %w", err))
	}

	return &InvitationList{
		Data:       invitations,
		Total:      total,
		Page:       page.Page,
		PerPage:    page.PerPage,
		TotalPages: pagination.TotalPages(total, page.PerPage),
	}, nil
}

// PendingForEmail returns the open, unexpired invitations addressed to email across namespaces.
func (s *InvitationService) PendingForEmail(ctx context.Context, email string) ([]models.Invitation, error) {
	ctx = ensureContext(ctx)

	email = normaliseEmail(email)
	if email == "" {
		return []models.Invitation{}, nil
	}

	invitations := []models.Invitation{}
	if err := s.withDetails(s.db.WithContext(ctx)).
		Where("email = ? AND status = ? AND expires_at > ?", email, models.InvitationStatusPending, s.now()).
		Order("created_at DESC").
		Order("id DESC").
		Find(&invitations).Error; err != nil {
		return nil, internalError(fmt.Errorf("invitation service: list pending invitations: %w", err))
	}
	return invitations, nil
}

// Accept redeems token on behalf of user and creates the namespace membership.
//
// Two failures still commit a transition: an expired invitation is marked expired, and an
// invitation whose recipient is already a member is marked accepted.
func (s *InvitationService) Accept(ctx context.Context, token string, userRef Ref) (*models.Invitation, error) {
	ctx = ensureContext(ctx)

	invitation, err := s.FindByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if !invitation.IsPending() {
		return nil, invalidState(invitation)
	}

	now := s.now()
	if invitation.IsExpiredAt(now) {
		s.expireLazily(ctx, invitation, now)
		return nil, ErrInvitationExpired
	}

	user, err := s.resolveUser(ctx, userRef)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(strings.TrimSpace(user.Email), invitation.Email) {
		return nil, ErrInvitationWrongEmail
	}

	isMember, err := s.members.IsActiveMember(ctx, s.db, invitation.NamespaceID, user.ID)
	if err != nil {
		return nil, internalError(err)
	}
	if isMember {
		s.acceptExistingMember(ctx, invitation, user.ID, now)
		return nil, ErrInvitationAlreadyMember
	}

	before := *invitation
	var roleIDs []uint
	if invitation.RoleID != nil {
		roleIDs = []uint{*invitation.RoleID}
	}

	var membershipErr error
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.members.Create(ctx, tx, CreateMembershipInput{
			NamespaceID: invitation.NamespaceID,
			UserID:      user.ID,
			Status:      models.MemberStatusActive,
			InvitedBy:   uintPtr(invitation.InvitedBy),
			RoleIDs:     roleIDs,
		}); err != nil {
			membershipErr = err
			return err
		}
		return s.transition(ctx, tx, invitation, models.InvitationStatusAccepted, now,
			map[string]any{"accepted_at": now}, models.InvitationStatusPending)
	})
	switch {
	case err == nil:
	case membershipErr != nil && errors.Is(membershipErr, ErrMembershipExists):
		// Membership appeared between the check and the insert.
		s.acceptExistingMember(ctx, &before, user.ID, now)
		return nil, ErrInvitationAlreadyMember
	case membershipErr != nil:
		s.log.Error("membership creation failed; invitation left pending",
			zap.String("uuid", invitation.UUID), zap.Error(membershipErr))
		return nil, apperrors.ErrInternalServer.WithInternal(
			fmt.Errorf("invitation service: create membership: %w", membershipErr))
	default:
		*invitation = before
		return nil, err
	}

	invitation.AcceptedAt = &now
	metrics.InvitationTransitions.WithLabelValues("accept").Inc()
	s.log.Info("invitation accepted",
		zap.String("uuid", invitation.UUID),
		zap.Uint("namespace_id", invitation.NamespaceID),
		zap.Uint("user_id", user.ID),
	)
	s.recordTransition(ctx, "invitation.accept", uintPtr(user.ID), &before, invitation)

	return invitation, nil
}

// Decline marks a pending invitation as declined. No identity check is performed.
func (s *InvitationService) Decline(ctx context.Context, token string) (*models.Invitation, error) {
	ctx = ensureContext(ctx)

	invitation, err := s.FindByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if !invitation.IsPending() {
		return nil, invalidState(invitation)
	}

	now := s.now()
	if invitation.IsExpiredAt(now) {
		s.expireLazily(ctx, invitation, now)
		return nil, ErrInvitationExpired
	}

	before := *invitation
	if err := s.transition(ctx, s.db, invitation, models.InvitationStatusDeclined, now, nil, models.InvitationStatusPending); err != nil {
		return nil, err
	}

	metrics.InvitationTransitions.WithLabelValues("decline").Inc()
	s.log.Info("invitation declined", zap.String("uuid", invitation.UUID))
	s.recordTransition(ctx, "invitation.decline", nil, &before, invitation)
	return invitation, nil
}

// Revoke withdraws a pending invitation.
func (s *InvitationService) Revoke(ctx context.Context, ref Ref) (*models.Invitation, error) {
	ctx = ensureContext(ctx)

	invitation, err := s.Show(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !invitation.IsPending() {
		return nil, ErrInvitationRevokeNotPending
	}

	before := *invitation
	if err := s.transition(ctx, s.db, invitation, models.InvitationStatusRevoked, s.now(), nil, models.InvitationStatusPending); err != nil {
		if errors.Is(err, ErrInvitationInvalidState) {
			return nil, ErrInvitationRevokeNotPending
		}
		return nil, err
	}

	metrics.InvitationTransitions.WithLabelValues("revoke").Inc()
	s.log.Info("invitation revoked", zap.String("uuid", invitation.UUID))
	s.recordTransition(ctx, "invitation.revoke", nil, &before, invitation)
	return invitation, nil
}

// Resend issues a fresh token and expiry for a pending or expired invitation, returning it to
// pending.
func (s *InvitationService) Resend(ctx context.Context, ref Ref, expiresInDays *int) (*models.Invitation, error) {
	ctx = ensureContext(ctx)

	days, err := s.expiryDays(expiresInDays)
	if err != nil {
		return nil, err
	}

	invitation, err := s.Show(ctx, ref)
	if err != nil {
		return nil, err
	}
	if invitation.Status != models.InvitationStatusPending && invitation.Status != models.InvitationStatusExpired {
		return nil, invalidState(invitation)
	}

	token, err := s.tokens.Generate(ctx)
	if err != nil {
		return nil, internalError(err)
	}

	now := s.now()
	before := *invitation
	expiresAt := now.Add(time.Duration(days) * 24 * time.Hour)
	if err := s.transition(ctx, s.db, invitation, models.InvitationStatusPending, now,
		map[string]any{"token": token, "expires_at": expiresAt},
		models.InvitationStatusPending, models.InvitationStatusExpired); err != nil {
		return nil, err
	}
	invitation.Token = token
	invitation.ExpiresAt = expiresAt

	metrics.InvitationTransitions.WithLabelValues("resend").Inc()
	s.log.Info("invitation resent", zap.String("uuid", invitation.UUID), zap.String("previous_status", string(before.Status)))
	s.recordTransition(ctx, "invitation.resend", nil, &before, invitation)
	return invitation, nil
}

// Destroy permanently deletes an invitation regardless of its status.
func (s *InvitationService) Destroy(ctx context.Context, ref Ref) error {
	ctx = ensureContext(ctx)

	invitation, err := s.Show(ctx, ref)
	if err != nil {
		return err
	}

	result := s.db.WithContext(ctx).Delete(&models.Invitation{}, invitation.ID)
	if result.Error != nil {
		return internalError(fmt.Errorf("invitation service: delete invitation: %w", result.Error))
	}
	if result.RowsAffected == 0 {
		return ErrInvitationNotFound
	}

	metrics.InvitationTransitions.WithLabelValues("destroy").Inc()
	s.log.Info("invitation destroyed", zap.String("uuid", invitation.UUID), zap.String("status", string(invitation.Status)))
	s.recordTransition(ctx, "invitation.destroy", nil, invitation, nil)
	return nil
}

// ExpireOverdue marks every pending invitation past its expiry as expired and returns the
// number of rows changed.
func (s *InvitationService) ExpireOverdue(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)

	now := s.now()
	result := s.db.WithContext(ctx).
		Model(&models.Invitation{}).
		Where("status = ? AND expires_at < ?", models.InvitationStatusPending, now).
		Updates(map[string]any{
			"status":      models.InvitationStatusExpired,
			"pending_key": nil,
			"updated_at":  now,
		})
	if result.Error != nil {
		return 0, internalError(fmt.Errorf("invitation service: expire overdue: %w", result.Error))
	}

	if result.RowsAffected > 0 {
		metrics.InvitationSweepExpired.Add(float64(result.RowsAffected))
		metrics.InvitationTransitions.WithLabelValues("expire").Add(float64(result.RowsAffected))
		s.log.Info("expired overdue invitations", zap.Int64("count", result.RowsAffected))
	}
	return result.RowsAffected, nil
}

// transition moves invitation to status when its stored status is one of from. Zero affected
// rows means another writer got there first.
func (s *InvitationService) transition(ctx context.Context, db *gorm.DB, invitation *models.Invitation, to models.InvitationStatus, now time.Time, extra map[string]any, from ...models.InvitationStatus) error {
	updates := map[string]any{
		"status":      to,
		"pending_key": nil,
		"updated_at":  now,
	}
	var pendingKey *string
	if to == models.InvitationStatusPending {
		pendingKey = models.PendingKeyFor(invitation.NamespaceID, invitation.Email)
		updates["pending_key"] = pendingKey
	}
	for key, value := range extra {
		updates[key] = value
	}

	result := db.WithContext(ctx).
		Model(&models.Invitation{}).
		Where("id = ? AND status IN ?", invitation.ID, from).
		Updates(updates)
	if result.Error != nil {
		if isUniqueConstraintError(result.Error) {
			return s.classifyUniqueViolation(ctx, invitation.NamespaceID, invitation.Email, invitation.ID, result.Error)
		}
		return internalError(fmt.Errorf("invitation service: update status: %w", result.Error))
	}
	if result.RowsAffected == 0 {
		return invalidState(invitation)
	}

	invitation.Status = to
	invitation.PendingKey = pendingKey
	invitation.UpdatedAt = now
	return nil
}

func (s *InvitationService) expireLazily(ctx context.Context, invitation *models.Invitation, now time.Time) {
	before := *invitation
	if err := s.transition(ctx, s.db, invitation, models.InvitationStatusExpired, now, nil, models.InvitationStatusPending); err != nil {
		if !errors.Is(err, ErrInvitationInvalidState) {
			s.log.Warn("failed to mark invitation expired", zap.String("uuid", invitation.UUID), zap.Error(err))
		}
		return
	}
	metrics.InvitationTransitions.WithLabelValues("expire").Inc()
	s.recordTransition(ctx, "invitation.expire", nil, &before, invitation)
}

func (s *InvitationService) acceptExistingMember(ctx context.Context, invitation *models.Invitation, userID uint, now time.Time) {
	before := *invitation
	if err := s.transition(ctx, s.db, invitation, models.InvitationStatusAccepted, now,
		map[string]any{"accepted_at": now}, models.InvitationStatusPending); err != nil {
		if !errors.Is(err, ErrInvitationInvalidState) {
			s.log.Warn("failed to finalise invitation for existing member", zap.String("uuid", invitation.UUID), zap.Error(err))
		}
		return
	}
	invitation.AcceptedAt = &now
	metrics.InvitationTransitions.WithLabelValues("accept").Inc()
	s.log.Info("invitation accepted by existing member", zap.String("uuid", invitation.UUID), zap.Uint("user_id", userID))
	s.recordTransition(ctx, "invitation.accept", uintPtr(userID), &before, invitation)
}

func (s *InvitationService) ensureNotMember(ctx context.Context, namespaceID uint, email string) error {
	var user models.User
	err := s.db.WithContext(ctx).Where("LOWER(email) = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return internalError(fmt.Errorf("invitation service: load recipient: %w", err))
	}

	isMember, err := s.members.IsActiveMember(ctx, s.db, namespaceID, user.ID)
	if err != nil {
		return internalError(err)
	}
	if isMember {
		return ErrInvitationAlreadyMember
	}
	return nil
}

// ensureNoPending rejects a second pending invitation. A stale pending row past its expiry is
// expired on the spot instead of blocking.
func (s *InvitationService) ensureNoPending(ctx context.Context, namespaceID uint, email string, now time.Time) error {
	existing, err := s.findPending(ctx, namespaceID, email, 0)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}
	if existing.IsExpiredAt(now) {
		s.expireLazily(ctx, existing, now)
		if existing.Status == models.InvitationStatusExpired {
			return nil
		}
	}
	return ErrInvitationAlreadyPending
}

func (s *InvitationService) findPending(ctx context.Context, namespaceID uint, email string, excludeID uint) (*models.Invitation, error) {
	query := s.db.WithContext(ctx).
		Where("namespace_id = ? AND LOWER(email) = ? AND status = ?", namespaceID, normaliseEmail(email), models.InvitationStatusPending)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}

	var invitation models.Invitation
	err := query.First(&invitation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, internalError(fmt.Errorf("invitation service: find pending invitation: %w", err))
	}
	return &invitation, nil
}

// classifyUniqueViolation maps a unique-index failure to a pending conflict when another
// pending invitation holds the slot, otherwise to a retryable token collision.
func (s *InvitationService) classifyUniqueViolation(ctx context.Context, namespaceID uint, email string, excludeID uint, cause error) error {
	existing, err := s.findPending(ctx, namespaceID, email, excludeID)
	if err == nil && existing != nil {
		return ErrInvitationAlreadyPending
	}
	return ErrInvitationTokenCollision.WithInternal(cause)
}

func (s *InvitationService) namespaceRoleID(ctx context.Context, namespaceID uint, ref *Ref) (*uint, error) {
	if ref == nil || ref.IsZero() {
		return nil, nil
	}

	var role models.Role
	err := ref.scope(s.db.WithContext(ctx), "").
		Where("namespace_id = ?", namespaceID).
		First(&role).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.log.Debug("dropping role outside namespace", zap.String("role", ref.String()), zap.Uint("namespace_id", namespaceID))
		return nil, nil
	}
	if err != nil {
		return nil, internalError(fmt.Errorf("invitation service: load role: %w", err))
	}
	return &role.ID, nil
}

func (s *InvitationService) resolveNamespace(ctx context.Context, ref Ref) (*models.Namespace, error) {
	if ref.IsZero() {
		return nil, ErrNamespaceNotFound
	}

	var namespace models.Namespace
	err := ref.scope(s.db.WithContext(ctx), "", "uuid", "slug").First(&namespace).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNamespaceNotFound
	}
	if err != nil {
		return nil, internalError(fmt.Errorf("invitation service: load namespace: %w", err))
	}
	return &namespace, nil
}

func (s *InvitationService) resolveUser(ctx context.Context, ref Ref) (*models.User, error) {
	if ref.IsZero() {
		return nil, ErrUserNotFound
	}

	var user models.User
	err := ref.scope(s.db.WithContext(ctx), "").First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, internalError(fmt.Errorf("invitation service: load user: %w", err))
	}
	return &user, nil
}

func (s *InvitationService) expiryDays(requested *int) (int, error) {
	days := s.defaultExpiryDays
	if requested != nil {
		days = *requested
	}
	if days < 1 || days > s.maxExpiryDays {
		return 0, apperrors.NewBadRequest(fmt.Sprintf("expires_in_days must be between 1 and %d", s.maxExpiryDays))
	}
	return days, nil
}

func (s *InvitationService) withDetails(query *gorm.DB) *gorm.DB {
	return query.Preload("Namespace").Preload("Role").Preload("Inviter")
}

func (s *InvitationService) reload(ctx context.Context, id uint) (*models.Invitation, error) {
	return s.first(ctx, s.withDetails(s.db.WithContext(ctx)).Where("invitations.id = ?", id))
}

func (s *InvitationService) first(ctx context.Context, query *gorm.DB) (*models.Invitation, error) {
	var invitation models.Invitation
	err := query.First(&invitation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvitationNotFound
	}
	if err != nil {
		return nil, internalError(fmt.Errorf("invitation service: load invitation: %w", err))
	}
	return &invitation, nil
}

func (s *InvitationService) recordTransition(ctx context.Context, action string, actorID *uint, before, after *models.Invitation) {
	if s.audit == nil {
		return
	}

	subject := after
	if subject == nil {
		subject = before
	}
	if actorID == nil {
		if actor, ok := auditctx.FromContext(ctx); ok {
			actorID = uintPtr(actor.UserID)
		}
	}
	entry := AuditEntry{
		NamespaceID:  uintPtr(subject.NamespaceID),
		ActorID:      actorID,
		Action:       action,
		ResourceType: "invitation",
		ResourceUUID: subject.UUID,
		Result:       "success",
	}
	if before != nil {
		entry.Old = snapshotInvitation(before)
	}
	if after != nil {
		entry.New = snapshotInvitation(after)
	}

	if err := s.audit.Record(ctx, entry); err != nil {
		s.log.Warn("audit record failed", zap.String("action", action), zap.Error(err))
	}
}

// invitationSnapshot is the audited view of an invitation; the token is omitted.
type invitationSnapshot struct {
	Email      string                  `json:"email"`
	Status     models.InvitationStatus `json:"status"`
	RoleID     *uint                   `json:"role_id"`
	ExpiresAt  time.Time               `json:"expires_at"`
	AcceptedAt *time.Time              `json:"accepted_at"`
}

func snapshotInvitation(invitation *models.Invitation) invitationSnapshot {
	return invitationSnapshot{
		Email:      invitation.Email,
		Status:     invitation.Status,
		RoleID:     invitation.RoleID,
		ExpiresAt:  invitation.ExpiresAt,
		AcceptedAt: invitation.AcceptedAt,
	}
}

func invalidState(invitation *models.Invitation) error {
	return ErrInvitationInvalidState.WithMessage(fmt.Sprintf("invitation is %s", invitation.Status))
}
