package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dbelyakov/realvista/internal/database/testutil"
	"github.com/dbelyakov/realvista/internal/models"
	"github.com/dbelyakov/realvista/internal/services"
)

func seedAuditEntry(t *testing.T, db *gorm.DB, age time.Duration) string {
	t.Helper()

	entry := models.AuditLog{Action: services.AuditActionLogin, Result: "failure"}
	require.NoError(t, db.Create(&entry).Error)
	require.NoError(t, db.Model(&models.AuditLog{}).Where("id = ?", entry.ID).
		UpdateColumn("created_at", time.Now().Add(-age)).Error)
	return entry.ID
}

func TestRunOncePrunesExpiredEntries(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	audit, err := services.NewAuditService(db)
	require.NoError(t, err)

	oldID := seedAuditEntry(t, db, 10*24*time.Hour)
	recentID := seedAuditEntry(t, db, 24*time.Hour)

	cleaner := NewCleaner(audit, WithRetentionDays(7))
	require.NoError(t, cleaner.RunOnce(context.Background()))

	var remaining []models.AuditLog
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	require.Equal(t, recentID, remaining[0].ID)
	require.NotEqual(t, oldID, remaining[0].ID)
}

func TestRunOnceHonorsInjectedClock(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	audit, err := services.NewAuditService(db)
	require.NoError(t, err)

	seedAuditEntry(t, db, 10*24*time.Hour)

	// With the clock held in the past, nothing has aged out yet.
	past := time.Now().Add(-30 * 24 * time.Hour)
	cleaner := NewCleaner(audit,
		WithRetentionDays(7),
		WithNow(func() time.Time { return past }),
	)
	require.NoError(t, cleaner.RunOnce(context.Background()))

	var count int64
	require.NoError(t, db.Model(&models.AuditLog{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	audit, err := services.NewAuditService(db)
	require.NoError(t, err)

	cleaner := NewCleaner(audit, WithSchedule("not-a-cron-spec"))
	require.Error(t, cleaner.Start())
}

func TestStartAndStop(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	audit, err := services.NewAuditService(db)
	require.NoError(t, err)

	cleaner := NewCleaner(audit)
	require.NoError(t, cleaner.Start())

	done := cleaner.Stop()
	select {
	case <-done.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("cron did not stop in time")
	}
}

func TestStartRequiresAuditService(t *testing.T) {
	cleaner := NewCleaner(nil)
	require.Error(t, cleaner.Start())
}
