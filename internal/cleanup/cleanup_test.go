package cleanup

import (
	"context"
	"errors"
	"testing"
	"time"

	"rental-portal/internal/config"
	"rental-portal/internal/database/dbtest"
	"rental-portal/internal/errorx"
	"rental-portal/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *gorm.DB, uint) {
	t.Helper()
	db := dbtest.New(t)
	s := NewService(db, nil)
	s.now = func() time.Time { return now }

	p := &models.Property{LandlordID: uuid.New(), Title: "Cedar Flats", PropertyType: models.PropertyTypeApartment, DateAdded: now}
	require.NoError(t, db.Create(p).Error)
	unit := &models.Apartment{PropertyID: p.ID, UnitNumber: "1", Rent: decimal.NewFromInt(800), Status: models.OccupancyVacant, DateAdded: now}
	require.NoError(t, db.Create(unit).Error)
	return s, db, unit.ID
}

func booking(t *testing.T, db *gorm.DB, unitID uint, status models.BookingStatus, decidedDaysAgo int) *models.Booking {
	t.Helper()
	b := &models.Booking{
		TenantID:    uuid.New(),
		ApartmentID: unitID,
		StartDate:   now,
		Status:      status,
		CreatedAt:   now.AddDate(0, 0, -decidedDaysAgo-1),
	}
	if status.IsTerminal() {
		decided := now.AddDate(0, 0, -decidedDaysAgo)
		b.DecidedAt = &decided
	}
	require.NoError(t, db.Create(b).Error)
	return b
}

func TestPurge(t *testing.T) {
	s, db, unit := newTestService(t)
	ctx := context.Background()

	oldRejected := booking(t, db, unit, models.BookingRejected, 40)
	oldCancelled := booking(t, db, unit, models.BookingCancelled, 31)
	booking(t, db, unit, models.BookingRejected, 5)  // too recent
	booking(t, db, unit, models.BookingApproved, 90) // never purged
	booking(t, db, unit, models.BookingPending, 0)

	cfg := config.CleanupConfig{RetentionDays: 30, MaxDeletionCount: 10}

	t.Run("dry run deletes nothing", func(t *testing.T) {
		dry := cfg
		dry.DryRun = true
		res, err := s.Purge(ctx, dry)
		require.NoError(t, err)
		assert.True(t, res.DryRun)
		assert.Equal(t, 2, res.TargetCount)
		assert.Equal(t, []uint{oldRejected.ID, oldCancelled.ID}, res.DeletedBookings)

		var count int64
		require.NoError(t, db.Model(&models.Booking{}).Count(&count).Error)
		assert.Equal(t, int64(5), count)
	})

	t.Run("safety limit", func(t *testing.T) {
		small := cfg
		small.MaxDeletionCount = 1
		_, err := s.Purge(ctx, small)
		assert.Error(t, err)
	})

	t.Run("purge writes delete logs", func(t *testing.T) {
		res, err := s.Purge(ctx, cfg)
		require.NoError(t, err)
		assert.Equal(t, 2, res.DeletedCount)
		assert.Zero(t, res.ErrorCount)

		var remaining []models.Booking
		require.NoError(t, db.Order("id").Find(&remaining).Error)
		require.Len(t, remaining, 3)
		for _, b := range remaining {
			assert.NotEqual(t, oldRejected.ID, b.ID)
			assert.NotEqual(t, oldCancelled.ID, b.ID)
		}

		logs, err := s.RecentDeleteLogs(ctx, 0)
		require.NoError(t, err)
		require.Len(t, logs, 2)
		assert.Equal(t, models.DeleteReasonExpired, logs[0].Reason)
		assert.Equal(t, oldCancelled.ID, logs[0].BookingID)
	})

	t.Run("nothing left", func(t *testing.T) {
		res, err := s.Purge(ctx, cfg)
		require.NoError(t, err)
		assert.Zero(t, res.TargetCount)
		assert.Empty(t, res.DeletedBookings)
	})
}

func TestPurge_InvalidRetention(t *testing.T) {
	s, _, _ := newTestService(t)
	_, err := s.Purge(context.Background(), config.CleanupConfig{RetentionDays: 0})
	assert.True(t, errors.Is(err, errorx.ErrValidation))
}

func TestGetDeleteStats(t *testing.T) {
	s, db, unit := newTestService(t)
	ctx := context.Background()

	booking(t, db, unit, models.BookingCancelled, 100)
	booking(t, db, unit, models.BookingRejected, 50)
	require.NoError(t, db.Create(&models.BookingDeleteLog{
		BookingID: 999, TenantID: uuid.New(), ApartmentID: unit, Status: models.BookingPending,
		DeletedAt: now.AddDate(0, 0, -60), Reason: models.DeleteReasonCascade,
	}).Error)

	_, err := s.Purge(ctx, config.CleanupConfig{RetentionDays: 90})
	require.NoError(t, err)

	st, err := s.GetDeleteStats(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.TotalDeleted)
	assert.Equal(t, int64(1), st.ByReason[models.DeleteReasonExpired])
	assert.Equal(t, int64(1), st.ByReason[models.DeleteReasonCascade])
	assert.Equal(t, int64(1), st.DeletedLast30Days)
	assert.Equal(t, 1, st.ReadyForDeletion)
}
