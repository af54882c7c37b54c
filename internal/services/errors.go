package services

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	apperrors "github.com/charlesng35/opsapi/pkg/errors"
)

var (
	// ErrNamespaceNotFound indicates the referenced namespace does not exist.
	ErrNamespaceNotFound = apperrors.New("namespace.not_found", "Namespace not found", http.StatusNotFound)
	// ErrUserNotFound indicates the referenced user does not exist.
	ErrUserNotFound = apperrors.New("user.not_found", "User not found", http.StatusNotFound)

	// ErrInvitationNotFound indicates no invitation matches the identifier or token.
	ErrInvitationNotFound = apperrors.New("invitation.not_found", "Invitation not found", http.StatusNotFound)
	// ErrInvitationAlreadyPending signals an open invitation already exists for the email.
	ErrInvitationAlreadyPending = apperrors.New("invitation.already_pending", "invitation already pending", http.StatusConflict)
	// ErrInvitationAlreadyMember signals the recipient already belongs to the namespace.
	ErrInvitationAlreadyMember = apperrors.New("invitation.already_member", "already a member", http.StatusConflict)
	// ErrInvitationInvalidState signals the invitation status does not permit the operation.
	ErrInvitationInvalidState = apperrors.New("invitation.invalid_state", "invitation is not pending", http.StatusUnprocessableEntity)
	// ErrInvitationRevokeNotPending signals an attempt to revoke a settled invitation.
	ErrInvitationRevokeNotPending = apperrors.New("invitation.revoke_not_pending", "can only revoke pending invitations", http.StatusUnprocessableEntity)
	// ErrInvitationExpired indicates the token is valid but past its expiry.
	ErrInvitationExpired = apperrors.New("invitation.expired", "invitation has expired", http.StatusGone)
	// ErrInvitationWrongEmail indicates the accepting user is not the invited recipient.
	ErrInvitationWrongEmail = apperrors.New("invitation.wrong_email", "wrong email", http.StatusForbidden)
	// ErrInvitationTokenCollision reports a token unique-constraint violation on insert; callers may retry.
	ErrInvitationTokenCollision = apperrors.New("invitation.token_collision", "invitation token collision, retry", http.StatusInternalServerError)

	// ErrMembershipExists signals the user already has a membership row in the namespace.
	ErrMembershipExists = apperrors.New("membership.exists", "already a member", http.StatusConflict)
)

// internalError wraps unexpected persistence failures.
func internalError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.ErrInternalServer.WithInternal(err)
}

// isUniqueConstraintError detects database uniqueness constraint violations across vendors.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil && pgErr.Code == "23505" {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr != nil && myErr.Number == 1062 {
		return true
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique constraint") ||
		strings.Contains(lower, "duplicate")
}
