package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/opsapi/internal/database/testutil"
	"github.com/charlesng35/opsapi/internal/models"
)

func openServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
}

func seedNamespace(t *testing.T, db *gorm.DB, slug string) *models.Namespace {
	t.Helper()
	ns := &models.Namespace{Name: slug, Slug: slug}
	require.NoError(t, db.Create(ns).Error)
	return ns
}

func seedUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{Email: email, IsActive: true}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedRole(t *testing.T, db *gorm.DB, namespaceID uint, name string) *models.Role {
	t.Helper()
	role := &models.Role{NamespaceID: namespaceID, Name: name}
	require.NoError(t, db.Create(role).Error)
	return role
}

// fixedClock returns a controllable clock for deterministic expiry checks.
type fixedClock struct {
	now time.Time
}

func newFixedClock() *fixedClock {
	return &fixedClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fixedClock) Now() time.Time { return c.now }

func (c *fixedClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// stubMembershipService lets tests force membership outcomes.
type stubMembershipService struct {
	member    bool
	checkErr  error
	createErr error
	created   []CreateMembershipInput
}

func (s *stubMembershipService) IsActiveMember(context.Context, *gorm.DB, uint, uint) (bool, error) {
	return s.member, s.checkErr
}

func (s *stubMembershipService) Create(_ context.Context, _ *gorm.DB, input CreateMembershipInput) (*models.NamespaceMember, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.created = append(s.created, input)
	return &models.NamespaceMember{NamespaceID: input.NamespaceID, UserID: input.UserID, Status: input.Status}, nil
}

var errMembershipBackend = errors.New("membership backend unavailable")
