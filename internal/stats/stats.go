// Package stats computes occupancy and rent statistics on read. Nothing here is
// cached; every call recomputes from the catalog.
package stats

import (
	"context"

	"rental-portal/internal/errorx"
	"rental-portal/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var hundred = decimal.NewFromInt(100)

// Stats is the occupancy summary of a unit scope
type Stats struct {
	TotalUnits    int64           `json:"total_units"`
	OccupiedUnits int64           `json:"occupied_units"`
	VacantUnits   int64           `json:"vacant_units"`
	OccupancyRate decimal.Decimal `json:"occupancy_rate"`
	VacancyRate   decimal.Decimal `json:"vacancy_rate"`
	AverageRent   decimal.Decimal `json:"average_rent"`
}

// Compute derives the rates for a scope of total units of which occupied are
// Occupied. rents are the rents of every unit in the scope.
func Compute(total, occupied int64, rents []decimal.Decimal) (Stats, error) {
	if total < 0 || occupied < 0 || occupied > total {
		return Stats{}, errorx.DataIntegrity("occupied units (%d) exceed total units (%d)", occupied, total)
	}

	s := Stats{
		TotalUnits:    total,
		OccupiedUnits: occupied,
		VacantUnits:   total - occupied,
		OccupancyRate: decimal.Zero,
		VacancyRate:   decimal.Zero,
		AverageRent:   AverageRent(rents),
	}
	if total == 0 {
		return s, nil
	}
	s.OccupancyRate = decimal.NewFromInt(occupied).Mul(hundred).DivRound(decimal.NewFromInt(total), 1)
	s.VacancyRate = hundred.Sub(s.OccupancyRate)
	return s, nil
}

// AverageRent is the arithmetic mean rounded to cents, 0 for no rents
func AverageRent(rents []decimal.Decimal) decimal.Decimal {
	if len(rents) == 0 {
		return decimal.Zero
	}
	return decimal.Avg(rents[0], rents[1:]...).Round(2)
}

// Service computes statistics from the database
type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewService creates a new stats service
func NewService(db *gorm.DB, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{db: db, log: log}
}

type unitRow struct {
	Status models.OccupancyStatus
	Rent   decimal.Decimal
}

func (s *Service) compute(q *gorm.DB, scope string) (Stats, error) {
	var rows []unitRow
	if err := q.Model(&models.Apartment{}).Select("status", "rent").Find(&rows).Error; err != nil {
		return Stats{}, errorx.FromStore(err, "load units for %s", scope)
	}

	var occupied int64
	rents := make([]decimal.Decimal, 0, len(rows))
	for _, r := range rows {
		if r.Status == models.OccupancyOccupied {
			occupied++
		}
		rents = append(rents, r.Rent)
	}

	st, err := Compute(int64(len(rows)), occupied, rents)
	if err != nil {
		s.log.Error("occupancy stats inconsistent", zap.String("scope", scope), zap.Error(err))
		return Stats{}, err
	}
	return st, nil
}

// ForProperty returns the stats of one property's units
func (s *Service) ForProperty(ctx context.Context, propertyID uint) (Stats, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Property{}).Where("id = ?", propertyID).Count(&count).Error; err != nil {
		return Stats{}, errorx.FromStore(err, "property %d", propertyID)
	}
	if count == 0 {
		return Stats{}, errorx.NotFound("property %d not found", propertyID)
	}
	return s.compute(s.db.WithContext(ctx).Where("property_id = ?", propertyID), "property")
}

// ForCatalog returns the stats of every unit
func (s *Service) ForCatalog(ctx context.Context) (Stats, error) {
	return s.compute(s.db.WithContext(ctx), "catalog")
}

// Summary is the home/dashboard overview
type Summary struct {
	Stats
	TotalProperties int64                          `json:"total_properties"`
	Bookings        map[models.BookingStatus]int64 `json:"bookings"`
}

// Summary returns catalog stats with property and booking counts
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	st, err := s.ForCatalog(ctx)
	if err != nil {
		return nil, err
	}
	sum := &Summary{
		Stats: st,
		Bookings: map[models.BookingStatus]int64{
			models.BookingPending:   0,
			models.BookingApproved:  0,
			models.BookingRejected:  0,
			models.BookingCancelled: 0,
		},
	}

	db := s.db.WithContext(ctx)
	if err := db.Model(&models.Property{}).Count(&sum.TotalProperties).Error; err != nil {
		return nil, errorx.FromStore(err, "count properties")
	}

	var counts []struct {
		Status models.BookingStatus
		Count  int64
	}
	if err := db.Model(&models.Booking{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&counts).Error; err != nil {
		return nil, errorx.FromStore(err, "count bookings")
	}
	for _, c := range counts {
		sum.Bookings[c.Status] = c.Count
	}
	return sum, nil
}

// RentBand is one bucket of the rent distribution. Max is exclusive; a nil Max
// is unbounded.
type RentBand struct {
	Label string           `json:"range_label"`
	Min   decimal.Decimal  `json:"min_rent"`
	Max   *decimal.Decimal `json:"max_rent,omitempty"`
	Count int64            `json:"count"`
}

func band(label string, min int64, max int64) RentBand {
	b := RentBand{Label: label, Min: decimal.NewFromInt(min)}
	if max > 0 {
		m := decimal.NewFromInt(max)
		b.Max = &m
	}
	return b
}

// DefaultRentBands are the buckets used by the admin dashboard
func DefaultRentBands() []RentBand {
	return []RentBand{
		band("under 500", 0, 500),
		band("500-1000", 500, 1000),
		band("1000-1500", 1000, 1500),
		band("1500-2000", 1500, 2000),
		band("2000-3000", 2000, 3000),
		band("3000+", 3000, 0),
	}
}

// RentDistribution counts units per rent band
func (s *Service) RentDistribution(ctx context.Context) ([]RentBand, error) {
	bands := DefaultRentBands()
	for i := range bands {
		q := s.db.WithContext(ctx).Model(&models.Apartment{}).Where("rent >= ?", bands[i].Min)
		if bands[i].Max != nil {
			q = q.Where("rent < ?", *bands[i].Max)
		}
		if err := q.Count(&bands[i].Count).Error; err != nil {
			return nil, errorx.FromStore(err, "count units in band %s", bands[i].Label)
		}
	}
	return bands, nil
}

// TypeCount is the number of properties of one type
type TypeCount struct {
	PropertyType models.PropertyType `json:"property_type"`
	Count        int64               `json:"count"`
}

// ByPropertyType counts properties per type, most common first
func (s *Service) ByPropertyType(ctx context.Context) ([]TypeCount, error) {
	var counts []TypeCount
	err := s.db.WithContext(ctx).Model(&models.Property{}).
		Select("property_type, count(*) as count").
		Group("property_type").
		Order("count DESC").
		Scan(&counts).Error
	if err != nil {
		return nil, errorx.FromStore(err, "count properties by type")
	}
	return counts, nil
}
