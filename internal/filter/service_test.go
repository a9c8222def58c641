package filter

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"filegate/internal/models"
	"filegate/internal/storage"
)

// stubPerm grants the bypass capability to the listed user ids.
type stubPerm struct {
	bypass map[uint]bool
	err    error
}

func (s stubPerm) HasStoragePermission(ctx context.Context, userID, storageID uint, operator string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.bypass[userID], nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(
		&models.User{},
		&models.StorageSource{},
		&models.FilterRule{},
		&models.UserStorageGrant{},
	))
	return gdb
}

func newTestService(t *testing.T, perm PermissionResolver) (*Service, *gorm.DB) {
	t.Helper()
	gdb := newTestDB(t)
	if perm == nil {
		perm = stubPerm{}
	}
	return NewService(gdb, perm), gdb
}

func seedRules(t *testing.T, gdb *gorm.DB, storageID uint, rules ...models.FilterRule) {
	t.Helper()
	for i := range rules {
		rules[i].StorageID = storageID
		require.NoError(t, gdb.Create(&rules[i]).Error)
	}
}

func TestCheckHiddenEmptyRuleList(t *testing.T) {
	svc, _ := newTestService(t, nil)

	hidden, err := svc.CheckHidden(context.Background(), 0, 1, "a.tmp")
	require.NoError(t, err)
	assert.False(t, hidden)
}

func TestCheckHiddenUnknownStorageIsNotAnError(t *testing.T) {
	svc, gdb := newTestService(t, nil)
	seedRules(t, gdb, 1, models.FilterRule{Expression: "*", Mode: models.RuleModeHidden})

	hidden, err := svc.CheckHidden(context.Background(), 0, 999, "a.tmp")
	require.NoError(t, err)
	assert.False(t, hidden)
}

func TestCheckHiddenMatchesGlob(t *testing.T) {
	svc, gdb := newTestService(t, nil)
	seedRules(t, gdb, 1, models.FilterRule{Expression: "*.tmp", Mode: models.RuleModeHidden})

	hidden, err := svc.CheckHidden(context.Background(), 0, 1, "a.tmp")
	require.NoError(t, err)
	assert.True(t, hidden)

	hidden, err = svc.CheckHidden(context.Background(), 0, 1, "a.txt")
	require.NoError(t, err)
	assert.False(t, hidden)
}

func TestCheckHiddenUsesFullRuleList(t *testing.T) {
	// The hidden check evaluates every rule of the source, whatever its
	// mode; only the inaccessible and disable-download checks use subsets.
	svc, gdb := newTestService(t, nil)
	seedRules(t, gdb, 1, models.FilterRule{Expression: "secret*", Mode: models.RuleModeInaccessible})

	hidden, err := svc.CheckHidden(context.Background(), 0, 1, "secret.txt")
	require.NoError(t, err)
	assert.True(t, hidden)
}

func TestBypassPermissionDisablesFiltering(t *testing.T) {
	svc, gdb := newTestService(t, stubPerm{bypass: map[uint]bool{42: true}})
	seedRules(t, gdb, 1, models.FilterRule{Expression: "*", Mode: models.RuleModeHidden})

	hidden, err := svc.CheckHidden(context.Background(), 42, 1, "anything")
	require.NoError(t, err)
	assert.False(t, hidden)

	// Other users are still filtered.
	hidden, err = svc.CheckHidden(context.Background(), 7, 1, "anything")
	require.NoError(t, err)
	assert.True(t, hidden)
}

func TestPermissionResolverErrorPropagates(t *testing.T) {
	resolverErr := errors.New("resolver down")
	svc, gdb := newTestService(t, stubPerm{err: resolverErr})
	seedRules(t, gdb, 1, models.FilterRule{Expression: "*", Mode: models.RuleModeHidden})

	_, err := svc.CheckHidden(context.Background(), 1, 1, "a")
	assert.ErrorIs(t, err, resolverErr)
}

func TestEmptyExpressionIsInert(t *testing.T) {
	svc, gdb := newTestService(t, nil)
	seedRules(t, gdb, 1,
		models.FilterRule{Expression: "", Mode: models.RuleModeHidden},
		models.FilterRule{Expression: "", Mode: models.RuleModeHidden},
	)

	hidden, err := svc.CheckHidden(context.Background(), 0, 1, "a.tmp")
	require.NoError(t, err)
	assert.False(t, hidden)
}

func TestMalformedExpressionIsSkipped(t *testing.T) {
	svc, gdb := newTestService(t, nil)
	seedRules(t, gdb, 1,
		models.FilterRule{Expression: "[unclosed", Mode: models.RuleModeHidden},
		models.FilterRule{Expression: "*.tmp", Mode: models.RuleModeHidden},
	)

	// The broken first rule must not short-circuit the whole evaluation.
	hidden, err := svc.CheckHidden(context.Background(), 0, 1, "a.tmp")
	require.NoError(t, err)
	assert.True(t, hidden)

	hidden, err = svc.CheckHidden(context.Background(), 0, 1, "a.txt")
	require.NoError(t, err)
	assert.False(t, hidden)
}

func TestFirstMatchWinsInStorageOrder(t *testing.T) {
	svc, gdb := newTestService(t, nil)
	seedRules(t, gdb, 1,
		models.FilterRule{Expression: "*.tmp", Mode: models.RuleModeHidden},
		models.FilterRule{Expression: "a.*", Mode: models.RuleModeHidden},
	)

	hidden, err := svc.CheckHidden(context.Background(), 0, 1, "a.tmp")
	require.NoError(t, err)
	assert.True(t, hidden)
}

func TestCheckInaccessibleUsesSubset(t *testing.T) {
	svc, gdb := newTestService(t, nil)
	seedRules(t, gdb, 1,
		models.FilterRule{Expression: "*.tmp", Mode: models.RuleModeHidden},
		models.FilterRule{Expression: "private*", Mode: models.RuleModeInaccessible},
	)

	denied, err := svc.CheckInaccessible(context.Background(), 0, 1, "private/docs")
	require.NoError(t, err)
	assert.True(t, denied)

	// Hidden-mode rules do not deny access.
	denied, err = svc.CheckInaccessible(context.Background(), 0, 1, "a.tmp")
	require.NoError(t, err)
	assert.False(t, denied)
}

func TestCheckDisableDownloadParentPath(t *testing.T) {
	svc, gdb := newTestService(t, nil)
	seedRules(t, gdb, 1, models.FilterRule{Expression: "dir", Mode: models.RuleModeDisableDownload})

	// Rule written against the directory blocks files beneath it.
	blocked, err := svc.CheckDisableDownload(context.Background(), 0, 1, "dir/file.txt")
	require.NoError(t, err)
	assert.True(t, blocked)

	// Bare name with no parent path: only the name itself is tested.
	blocked, err = svc.CheckDisableDownload(context.Background(), 0, 1, "file.txt")
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestCheckDisableDownloadFileName(t *testing.T) {
	svc, gdb := newTestService(t, nil)
	seedRules(t, gdb, 1, models.FilterRule{Expression: "*.iso", Mode: models.RuleModeDisableDownload})

	blocked, err := svc.CheckDisableDownload(context.Background(), 0, 1, "big.iso")
	require.NoError(t, err)
	assert.True(t, blocked)

	blocked, err = svc.CheckDisableDownload(context.Background(), 0, 1, "big.txt")
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestBatchSaveRoundTrip(t *testing.T) {
	svc, _ := newTestService(t, nil)

	first := []models.FilterRule{
		{Expression: "*.tmp", Mode: models.RuleModeHidden, Description: "temp"},
		{Expression: "*.bak", Mode: models.RuleModeHidden, Description: "backups"},
	}
	require.NoError(t, svc.BatchSave(1, first))

	second := []models.FilterRule{
		{Expression: "*.iso", Mode: models.RuleModeDisableDownload, Description: "images"},
	}
	require.NoError(t, svc.BatchSave(1, second))

	rules, err := svc.FindByStorageID(1)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "*.iso", rules[0].Expression)
	assert.Equal(t, models.RuleModeDisableDownload, rules[0].Mode)
	assert.NotZero(t, rules[0].ID)
}

func TestBatchSaveAssignsFreshIDs(t *testing.T) {
	svc, _ := newTestService(t, nil)

	rules := []models.FilterRule{{ID: 777, Expression: "*.tmp", Mode: models.RuleModeHidden}}
	require.NoError(t, svc.BatchSave(1, rules))

	stored, err := svc.FindByStorageID(1)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.NotEqual(t, uint(777), stored[0].ID)
	assert.Equal(t, uint(1), stored[0].StorageID)
}

func TestBatchSaveAtomicity(t *testing.T) {
	svc, gdb := newTestService(t, nil)

	injected := errors.New("injected insert failure")
	require.NoError(t, gdb.Callback().Create().Before("gorm:create").Register("inject_failure", func(tx *gorm.DB) {
		if rule, ok := tx.Statement.Dest.(*models.FilterRule); ok && rule.Description == "boom" {
			tx.AddError(injected)
		}
	}))

	require.NoError(t, svc.BatchSave(1, []models.FilterRule{
		{Expression: "*.tmp", Mode: models.RuleModeHidden, Description: "old"},
	}))

	err := svc.BatchSave(1, []models.FilterRule{
		{Expression: "*.iso", Mode: models.RuleModeHidden, Description: "new"},
		{Expression: "*.bak", Mode: models.RuleModeHidden, Description: "boom"},
	})
	assert.ErrorIs(t, err, injected)

	// The previous rule set survived the failed replace.
	rules, err := svc.FindByStorageID(1)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "*.tmp", rules[0].Expression)
	assert.Equal(t, "old", rules[0].Description)
}

func TestBatchSaveInvalidatesCache(t *testing.T) {
	svc, _ := newTestService(t, nil)

	require.NoError(t, svc.BatchSave(1, []models.FilterRule{
		{Expression: "*.tmp", Mode: models.RuleModeHidden},
	}))

	// Warm all three views.
	_, err := svc.FindByStorageID(1)
	require.NoError(t, err)
	_, err = svc.FindInaccessible(1)
	require.NoError(t, err)
	_, err = svc.FindDisableDownload(1)
	require.NoError(t, err)

	require.NoError(t, svc.BatchSave(1, []models.FilterRule{
		{Expression: "secret*", Mode: models.RuleModeInaccessible},
	}))

	base, err := svc.FindByStorageID(1)
	require.NoError(t, err)
	require.Len(t, base, 1)
	assert.Equal(t, "secret*", base[0].Expression)

	inaccessible, err := svc.FindInaccessible(1)
	require.NoError(t, err)
	assert.Len(t, inaccessible, 1)

	ddl, err := svc.FindDisableDownload(1)
	require.NoError(t, err)
	assert.Empty(t, ddl)
}

func TestDeleteByStorageID(t *testing.T) {
	svc, _ := newTestService(t, nil)

	require.NoError(t, svc.BatchSave(1, []models.FilterRule{
		{Expression: "*.tmp", Mode: models.RuleModeHidden},
		{Expression: "*.bak", Mode: models.RuleModeHidden},
	}))
	require.NoError(t, svc.BatchSave(2, []models.FilterRule{
		{Expression: "*.iso", Mode: models.RuleModeHidden},
	}))

	deleted, err := svc.DeleteByStorageID(1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	rules, err := svc.FindByStorageID(1)
	require.NoError(t, err)
	assert.Empty(t, rules)

	// Unrelated sources keep their rules.
	rules, err = svc.FindByStorageID(2)
	require.NoError(t, err)
	assert.Len(t, rules, 1)
}

func TestOnStorageDeleteCascades(t *testing.T) {
	svc, _ := newTestService(t, nil)

	require.NoError(t, svc.BatchSave(5, []models.FilterRule{
		{Expression: "*.tmp", Mode: models.RuleModeHidden},
	}))

	svc.OnStorageDelete(storage.DeleteEvent{ID: 5, Name: "gone", Type: models.StorageTypeLocal})

	rules, err := svc.FindByStorageID(5)
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestOnStorageCopyDuplicatesRules(t *testing.T) {
	svc, _ := newTestService(t, nil)

	original := []models.FilterRule{
		{Expression: "*.tmp", Mode: models.RuleModeHidden, Description: "A"},
		{Expression: "private*", Mode: models.RuleModeInaccessible, Description: "B"},
	}
	require.NoError(t, svc.BatchSave(1, original))
	source, err := svc.FindByStorageID(1)
	require.NoError(t, err)

	svc.OnStorageCopy(storage.CopyEvent{FromID: 1, NewID: 2})

	copied, err := svc.FindByStorageID(2)
	require.NoError(t, err)
	require.Len(t, copied, 2)
	for i := range copied {
		assert.Equal(t, source[i].Expression, copied[i].Expression)
		assert.Equal(t, source[i].Mode, copied[i].Mode)
		assert.Equal(t, source[i].Description, copied[i].Description)
		assert.Equal(t, uint(2), copied[i].StorageID)
		assert.NotEqual(t, source[i].ID, copied[i].ID)
	}

	// The source's own rules are unchanged.
	after, err := svc.FindByStorageID(1)
	require.NoError(t, err)
	assert.Equal(t, source, after)
}

func TestCachedReadsServeFromCache(t *testing.T) {
	svc, gdb := newTestService(t, nil)
	seedRules(t, gdb, 1, models.FilterRule{Expression: "*.tmp", Mode: models.RuleModeHidden})

	_, err := svc.FindByStorageID(1)
	require.NoError(t, err)

	// A write bypassing the service is invisible until invalidation.
	require.NoError(t, gdb.Create(&models.FilterRule{StorageID: 1, Expression: "*.bak", Mode: models.RuleModeHidden}).Error)

	rules, err := svc.FindByStorageID(1)
	require.NoError(t, err)
	assert.Len(t, rules, 1)

	hits, _ := svc.CacheStats()
	assert.NotZero(t, hits)
}
