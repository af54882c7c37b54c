package services

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/opsapi/internal/models"
)

func TestParseRef(t *testing.T) {
	ref, err := ParseRef(" 42 ")
	require.NoError(t, err)
	id, ok := ref.InternalID()
	require.True(t, ok)
	require.Equal(t, uint(42), id)
	_, ok = ref.ExternalKey()
	require.False(t, ok)

	ref, err = ParseRef("3f0c2a8e-9d7b-4d8e-8a43-0d7f1c2b9a11")
	require.NoError(t, err)
	key, ok := ref.ExternalKey()
	require.True(t, ok)
	require.Equal(t, "3f0c2a8e-9d7b-4d8e-8a43-0d7f1c2b9a11", key)

	ref, err = ParseRef("0")
	require.NoError(t, err)
	_, ok = ref.ExternalKey()
	require.True(t, ok, "zero is not a valid internal id")

	_, err = ParseRef("   ")
	require.Error(t, err)
}

func TestRefStringAndZero(t *testing.T) {
	require.True(t, Ref{}.IsZero())
	require.False(t, ByID(3).IsZero())
	require.Equal(t, "3", ByID(3).String())
	require.Equal(t, "acme", ByKey(" acme ").String())
}

func TestRefScopeResolvesRows(t *testing.T) {
	db := openServiceTestDB(t)
	ns := seedNamespace(t, db, "acme")

	find := func(ref Ref, keyColumns ...string) (*models.Namespace, error) {
		var out models.Namespace
		err := ref.scope(db.Model(&models.Namespace{}), "", keyColumns...).First(&out).Error
		return &out, err
	}

	got, err := find(ByID(ns.ID))
	require.NoError(t, err)
	require.Equal(t, ns.UUID, got.UUID)

	got, err = find(ByKey(ns.UUID))
	require.NoError(t, err)
	require.Equal(t, ns.ID, got.ID)

	got, err = find(ByKey("acme"), "uuid", "slug")
	require.NoError(t, err)
	require.Equal(t, ns.ID, got.ID)

	_, err = find(ByKey("acme"))
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
