package storage

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"filegate/internal/models"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&models.StorageSource{}, &models.FilterRule{}))
	return NewService(gdb), gdb
}

func createSource(t *testing.T, svc *Service, key string) *models.StorageSource {
	t.Helper()
	src := &models.StorageSource{
		Name:   "Source " + key,
		Key:    key,
		Type:   models.StorageTypeLocal,
		Params: datatypes.JSON(`{"root":"/srv/files"}`),
	}
	require.NoError(t, svc.Create(context.Background(), src))
	return src
}

func TestGetByKey(t *testing.T) {
	svc, _ := newTestService(t)
	created := createSource(t, svc, "docs")

	src, err := svc.GetByKey(context.Background(), "docs")
	require.NoError(t, err)
	assert.Equal(t, created.ID, src.ID)

	_, err = svc.GetByKey(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListOrder(t *testing.T) {
	svc, gdb := newTestService(t)
	a := createSource(t, svc, "a")
	b := createSource(t, svc, "b")
	require.NoError(t, gdb.Model(a).Update("sort_order", 2).Error)
	require.NoError(t, gdb.Model(b).Update("sort_order", 1).Error)

	sources, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, "b", sources[0].Key)
	assert.Equal(t, "a", sources[1].Key)
}

func TestDeleteNotifiesSubscribers(t *testing.T) {
	svc, gdb := newTestService(t)
	src := createSource(t, svc, "docs")

	var got []DeleteEvent
	svc.SubscribeDelete(func(ev DeleteEvent) { got = append(got, ev) })

	require.NoError(t, svc.Delete(context.Background(), src.ID))

	require.Len(t, got, 1)
	assert.Equal(t, src.ID, got[0].ID)
	assert.Equal(t, src.Name, got[0].Name)
	assert.Equal(t, models.StorageTypeLocal, got[0].Type)

	var count int64
	require.NoError(t, gdb.Model(&models.StorageSource{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestDeleteUnknownSource(t *testing.T) {
	svc, _ := newTestService(t)

	called := false
	svc.SubscribeDelete(func(DeleteEvent) { called = true })

	err := svc.Delete(context.Background(), 404)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, called)
}

func TestCopyDuplicatesSourceAndNotifies(t *testing.T) {
	svc, _ := newTestService(t)
	src := createSource(t, svc, "docs")

	var got []CopyEvent
	svc.SubscribeCopy(func(ev CopyEvent) { got = append(got, ev) })

	newID, err := svc.Copy(context.Background(), src.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, CopyEvent{FromID: src.ID, NewID: newID}, got[0])

	dup, err := svc.Get(context.Background(), newID)
	require.NoError(t, err)
	assert.Equal(t, src.Type, dup.Type)
	assert.Equal(t, string(src.Params), string(dup.Params))
	assert.Equal(t, "docs-copy", dup.Key)
	assert.NotEqual(t, src.ID, dup.ID)
}

func TestCopyKeyCollision(t *testing.T) {
	svc, _ := newTestService(t)
	src := createSource(t, svc, "docs")

	first, err := svc.Copy(context.Background(), src.ID)
	require.NoError(t, err)
	second, err := svc.Copy(context.Background(), src.ID)
	require.NoError(t, err)

	a, err := svc.Get(context.Background(), first)
	require.NoError(t, err)
	b, err := svc.Get(context.Background(), second)
	require.NoError(t, err)
	assert.NotEqual(t, a.Key, b.Key)
}
