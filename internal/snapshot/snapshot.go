// Package snapshot records one occupancy snapshot per property per day and
// flags days on which occupancy, unit count or average rent moved.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"rental-portal/internal/errorx"
	"rental-portal/internal/models"
	"rental-portal/internal/stats"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service handles occupancy snapshot operations
type Service struct {
	db    *gorm.DB
	stats *stats.Service
	log   *zap.Logger
	now   func() time.Time
}

// NewService creates a new snapshot service
func NewService(db *gorm.DB, st *stats.Service, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{db: db, stats: st, log: log, now: time.Now}
}

func (s *Service) today() time.Time {
	y, m, d := s.now().UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Capture takes today's snapshot of a property, replacing an earlier one
// from the same day.
func (s *Service) Capture(ctx context.Context, propertyID uint) (*models.OccupancySnapshot, error) {
	st, err := s.stats.ForProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}

	today := s.today()
	snap := &models.OccupancySnapshot{
		PropertyID:    propertyID,
		SnapshotAt:    today,
		TotalUnits:    st.TotalUnits,
		OccupiedUnits: st.OccupiedUnits,
		OccupancyRate: st.OccupancyRate,
		AverageRent:   st.AverageRent,
	}

	db := s.db.WithContext(ctx)

	// Get the most recent snapshot (not today's)
	var last models.OccupancySnapshot
	err = db.Where("property_id = ? AND snapshot_at < ?", propertyID, today).
		Order("snapshot_at DESC").
		First(&last).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		snap.HasChanged = true
		snap.ChangeNote = "new property"
	case err != nil:
		return nil, errorx.FromStore(err, "previous snapshot of property %d", propertyID)
	default:
		if changes := DetectChanges(&last, snap); len(changes) > 0 {
			snap.HasChanged = true
			snap.ChangeNote = strings.Join(changes, "; ")
		}
	}

	// Check if snapshot already exists for today
	var existing models.OccupancySnapshot
	err = db.Where("property_id = ? AND snapshot_at = ?", propertyID, today).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		err = db.Create(snap).Error
	case err != nil:
	default:
		snap.ID = existing.ID
		snap.CreatedAt = existing.CreatedAt
		err = db.Save(snap).Error
	}
	if err != nil {
		return nil, errorx.FromStore(err, "save snapshot of property %d", propertyID)
	}
	return snap, nil
}

// DetectChanges describes how cur differs from prev
func DetectChanges(prev, cur *models.OccupancySnapshot) []string {
	var changes []string
	if prev.TotalUnits != cur.TotalUnits {
		changes = append(changes, fmt.Sprintf("units: %d -> %d", prev.TotalUnits, cur.TotalUnits))
	}
	if !prev.OccupancyRate.Equal(cur.OccupancyRate) {
		changes = append(changes, fmt.Sprintf("occupancy: %s%% -> %s%%", prev.OccupancyRate.StringFixed(1), cur.OccupancyRate.StringFixed(1)))
	}
	if !prev.AverageRent.Equal(cur.AverageRent) {
		changes = append(changes, fmt.Sprintf("average rent: %s -> %s", prev.AverageRent.StringFixed(2), cur.AverageRent.StringFixed(2)))
	}
	return changes
}

// CaptureAll snapshots every property and returns how many succeeded.
// Per-property failures are logged and skipped.
func (s *Service) CaptureAll(ctx context.Context) (int, error) {
	var ids []uint
	if err := s.db.WithContext(ctx).Model(&models.Property{}).Order("id").Pluck("id", &ids).Error; err != nil {
		return 0, errorx.FromStore(err, "list properties")
	}

	captured, changed := 0, 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return captured, err
		}
		snap, err := s.Capture(ctx, id)
		if err != nil {
			s.log.Warn("snapshot failed", zap.Uint("property_id", id), zap.Error(err))
			continue
		}
		captured++
		if snap.HasChanged {
			changed++
		}
	}

	s.log.Info("occupancy snapshots taken",
		zap.Int("properties", len(ids)),
		zap.Int("captured", captured),
		zap.Int("changed", changed),
	)
	return captured, nil
}

// History retrieves snapshot history for a property, newest first
func (s *Service) History(ctx context.Context, propertyID uint, limit int) ([]models.OccupancySnapshot, error) {
	var snapshots []models.OccupancySnapshot
	query := s.db.WithContext(ctx).Where("property_id = ?", propertyID).Order("snapshot_at DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&snapshots).Error; err != nil {
		return nil, errorx.FromStore(err, "snapshot history of property %d", propertyID)
	}

	return snapshots, nil
}

// RecentChanges retrieves snapshots that recorded a change, newest first
func (s *Service) RecentChanges(ctx context.Context, limit int) ([]models.OccupancySnapshot, error) {
	var snapshots []models.OccupancySnapshot
	query := s.db.WithContext(ctx).Where("has_changed = ?", true).Order("snapshot_at DESC, id DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&snapshots).Error; err != nil {
		return nil, errorx.FromStore(err, "recent snapshot changes")
	}

	return snapshots, nil
}
