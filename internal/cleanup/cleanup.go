// Package cleanup physically deletes Rejected and Cancelled bookings once
// they are past the retention window, leaving a delete log behind.
package cleanup

import (
	"context"
	"fmt"
	"time"

	"rental-portal/internal/config"
	"rental-portal/internal/errorx"
	"rental-portal/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// purgeable are the terminal states whose bookings expire. Approved
// bookings are tenancy history and are kept.
var purgeable = []models.BookingStatus{models.BookingRejected, models.BookingCancelled}

// Service handles physical deletion of expired bookings
type Service struct {
	db  *gorm.DB
	log *zap.Logger
	now func() time.Time
}

// NewService creates a new cleanup service
func NewService(db *gorm.DB, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{db: db, log: log, now: time.Now}
}

// Result holds the result of a cleanup operation
type Result struct {
	TargetCount     int       `json:"target_count"`  // Number of bookings eligible for deletion
	DeletedCount    int       `json:"deleted_count"` // Number of bookings actually deleted
	ErrorCount      int       `json:"error_count"`
	DryRun          bool      `json:"dry_run"`
	ExecutedAt      time.Time `json:"executed_at"`
	DeletedBookings []uint    `json:"deleted_bookings"`
	Errors          []string  `json:"errors,omitempty"`
}

// FindExpired finds terminal bookings decided more than retentionDays ago
func (s *Service) FindExpired(ctx context.Context, retentionDays int) ([]models.Booking, error) {
	var bookings []models.Booking

	cutoff := s.now().AddDate(0, 0, -retentionDays)

	err := s.db.WithContext(ctx).
		Where("status IN ? AND decided_at < ?", purgeable, cutoff).
		Order("id").
		Find(&bookings).Error
	if err != nil {
		return nil, errorx.FromStore(err, "find expired bookings")
	}

	s.log.Debug("expired bookings found",
		zap.Int("count", len(bookings)),
		zap.Time("cutoff", cutoff),
	)
	return bookings, nil
}

// Purge deletes expired bookings. With cfg.DryRun it only reports what
// would be deleted.
func (s *Service) Purge(ctx context.Context, cfg config.CleanupConfig) (*Result, error) {
	if cfg.RetentionDays <= 0 {
		return nil, errorx.Validation("retention days must be positive, got %d", cfg.RetentionDays)
	}

	result := &Result{
		DryRun:          cfg.DryRun,
		ExecutedAt:      s.now(),
		DeletedBookings: []uint{},
	}

	expired, err := s.FindExpired(ctx, cfg.RetentionDays)
	if err != nil {
		return nil, err
	}

	result.TargetCount = len(expired)
	if result.TargetCount == 0 {
		s.log.Info("no expired bookings found for deletion")
		return result, nil
	}

	// Safety check: abort if too many bookings would be deleted
	if cfg.MaxDeletionCount > 0 && result.TargetCount > cfg.MaxDeletionCount {
		return nil, fmt.Errorf("safety check failed: %d bookings exceed max deletion limit of %d",
			result.TargetCount, cfg.MaxDeletionCount)
	}

	s.log.Info("starting cleanup",
		zap.Int("targets", result.TargetCount),
		zap.Int("retention_days", cfg.RetentionDays),
		zap.Bool("dry_run", cfg.DryRun),
	)

	for _, b := range expired {
		if cfg.DryRun {
			s.log.Info("dry run: would delete booking", zap.Uint("booking_id", b.ID), zap.String("status", string(b.Status)))
			result.DeletedBookings = append(result.DeletedBookings, b.ID)
			result.DeletedCount++
			continue
		}

		if err := s.deleteOne(ctx, b); err != nil {
			msg := fmt.Sprintf("booking %d: %v", b.ID, err)
			s.log.Error("booking deletion failed", zap.Uint("booking_id", b.ID), zap.Error(err))
			result.Errors = append(result.Errors, msg)
			result.ErrorCount++
			continue
		}
		result.DeletedBookings = append(result.DeletedBookings, b.ID)
		result.DeletedCount++
	}

	s.log.Info("cleanup completed",
		zap.Int("deleted", result.DeletedCount),
		zap.Int("targets", result.TargetCount),
		zap.Int("errors", result.ErrorCount),
		zap.Bool("dry_run", cfg.DryRun),
	)
	return result, nil
}

func (s *Service) deleteOne(ctx context.Context, b models.Booking) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry := models.BookingDeleteLog{
			BookingID:   b.ID,
			TenantID:    b.TenantID,
			ApartmentID: b.ApartmentID,
			Status:      b.Status,
			BookedAt:    b.CreatedAt,
			DeletedAt:   s.now(),
			Reason:      models.DeleteReasonExpired,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		// status guard keeps a concurrently changed row out of the purge
		res := tx.Where("id = ? AND status IN ?", b.ID, purgeable).Delete(&models.Booking{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errorx.InvalidTransition("booking %d is no longer purgeable", b.ID)
		}
		return nil
	})
}

// DeleteStats is an overview of deletions
type DeleteStats struct {
	TotalDeleted      int64            `json:"total_deleted"`
	ByReason          map[string]int64 `json:"by_reason"`
	DeletedLast30Days int64            `json:"deleted_last_30_days"`
	ReadyForDeletion  int              `json:"expired_ready_for_deletion"`
}

// GetDeleteStats returns statistics about deleted bookings
func (s *Service) GetDeleteStats(ctx context.Context, retentionDays int) (*DeleteStats, error) {
	db := s.db.WithContext(ctx)
	st := &DeleteStats{ByReason: map[string]int64{}}

	if err := db.Model(&models.BookingDeleteLog{}).Count(&st.TotalDeleted).Error; err != nil {
		return nil, errorx.FromStore(err, "count delete logs")
	}

	var reasonCounts []struct {
		Reason string
		Count  int64
	}
	if err := db.Model(&models.BookingDeleteLog{}).
		Select("reason, count(*) as count").
		Group("reason").
		Scan(&reasonCounts).Error; err != nil {
		return nil, errorx.FromStore(err, "count delete logs by reason")
	}
	for _, rc := range reasonCounts {
		st.ByReason[rc.Reason] = rc.Count
	}

	thirtyDaysAgo := s.now().AddDate(0, 0, -30)
	if err := db.Model(&models.BookingDeleteLog{}).
		Where("deleted_at >= ?", thirtyDaysAgo).
		Count(&st.DeletedLast30Days).Error; err != nil {
		return nil, errorx.FromStore(err, "count recent delete logs")
	}

	expired, err := s.FindExpired(ctx, retentionDays)
	if err != nil {
		return nil, err
	}
	st.ReadyForDeletion = len(expired)

	return st, nil
}

// RecentDeleteLogs returns recent delete log entries
func (s *Service) RecentDeleteLogs(ctx context.Context, limit int) ([]models.BookingDeleteLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var logs []models.BookingDeleteLog
	if err := s.db.WithContext(ctx).Order("deleted_at DESC, id DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, errorx.FromStore(err, "recent delete logs")
	}
	return logs, nil
}
