package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/opsapi/internal/models"
)

func TestAuditServiceRecordAndList(t *testing.T) {
	db := openServiceTestDB(t)
	svc, err := NewAuditService(db)
	require.NoError(t, err)

	ctx := context.Background()
	nsID := uint(7)
	err = svc.Record(ctx, AuditEntry{
		NamespaceID:  &nsID,
		Action:       "invitation.revoke",
		ResourceType: "invitation",
		ResourceUUID: "inv-1",
		Result:       "success",
		Old:          map[string]any{"status": "pending"},
		New:          map[string]any{"status": "revoked"},
	})
	require.NoError(t, err)
	require.NoError(t, svc.Record(ctx, AuditEntry{Action: "invitation.create", Result: "success"}))

	logs, total, err := svc.List(ctx, AuditListOptions{Filters: AuditFilters{NamespaceID: &nsID}})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Len(t, logs, 1)
	require.Equal(t, "invitation.revoke", logs[0].Action)

	var before, after map[string]any
	require.NoError(t, json.Unmarshal(logs[0].OldValues, &before))
	require.NoError(t, json.Unmarshal(logs[0].NewValues, &after))
	require.Equal(t, "pending", before["status"])
	require.Equal(t, "revoked", after["status"])

	_, total, err = svc.List(ctx, AuditListOptions{Filters: AuditFilters{ResourceUUID: "inv-1", Action: "invitation.revoke"}})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
}

func TestAuditServiceRecordValidates(t *testing.T) {
	db := openServiceTestDB(t)
	svc, err := NewAuditService(db)
	require.NoError(t, err)

	require.Error(t, svc.Record(context.Background(), AuditEntry{Result: "success"}))
	require.Error(t, svc.Record(context.Background(), AuditEntry{Action: "x"}))
}

func TestAuditServiceCleanupOlderThan(t *testing.T) {
	db := openServiceTestDB(t)
	svc, err := NewAuditService(db)
	require.NoError(t, err)

	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	oldLog := models.AuditLog{
		Action:    "old.action",
		Result:    "success",
		CreatedAt: now.AddDate(0, 0, -10),
	}
	freshLog := models.AuditLog{
		Action:    "fresh.action",
		Result:    "success",
		CreatedAt: now.AddDate(0, 0, -1),
	}
	require.NoError(t, db.Create(&oldLog).Error)
	require.NoError(t, db.Create(&freshLog).Error)

	rows, err := svc.CleanupOlderThan(context.Background(), 5)
	require.NoError(t, err)
	require.Equal(t, int64(1), rows)

	_, err = svc.CleanupOlderThan(context.Background(), 0)
	require.Error(t, err)
}

func TestNewAuditServiceRequiresDB(t *testing.T) {
	_, err := NewAuditService(nil)
	require.Error(t, err)
}
