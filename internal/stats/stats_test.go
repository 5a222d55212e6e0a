package stats

import (
	"context"
	"errors"
	"testing"
	"time"

	"rental-portal/internal/database/dbtest"
	"rental-portal/internal/errorx"
	"rental-portal/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCompute_EmptyScope(t *testing.T) {
	st, err := Compute(0, 0, nil)
	require.NoError(t, err)
	assert.True(t, st.OccupancyRate.IsZero())
	assert.True(t, st.VacancyRate.IsZero())
	assert.True(t, st.AverageRent.IsZero())
	assert.Equal(t, int64(0), st.VacantUnits)
}

func TestCompute_RatesSumToHundred(t *testing.T) {
	for total := int64(1); total <= 12; total++ {
		for occupied := int64(0); occupied <= total; occupied++ {
			st, err := Compute(total, occupied, nil)
			require.NoError(t, err)
			sum := st.OccupancyRate.Add(st.VacancyRate)
			assert.True(t, sum.Equal(hundred), "%d/%d: %s + %s", occupied, total, st.OccupancyRate, st.VacancyRate)
			assert.Equal(t, total-occupied, st.VacantUnits)
		}
	}
}

func TestCompute_Rounding(t *testing.T) {
	tests := []struct {
		total, occupied int64
		occupancy       string
		vacancy         string
	}{
		{3, 1, "33.3", "66.7"},
		{3, 2, "66.7", "33.3"},
		{8, 1, "12.5", "87.5"},
		{4, 4, "100", "0"},
		{7, 0, "0", "100"},
	}
	for _, tt := range tests {
		st, err := Compute(tt.total, tt.occupied, nil)
		require.NoError(t, err)
		assert.True(t, st.OccupancyRate.Equal(d(tt.occupancy)), "got %s", st.OccupancyRate)
		assert.True(t, st.VacancyRate.Equal(d(tt.vacancy)), "got %s", st.VacancyRate)
	}
}

func TestCompute_OccupiedExceedsTotal(t *testing.T) {
	_, err := Compute(2, 3, nil)
	assert.True(t, errors.Is(err, errorx.ErrDataIntegrity))
}

func TestAverageRent(t *testing.T) {
	assert.True(t, AverageRent(nil).IsZero())
	assert.True(t, AverageRent([]decimal.Decimal{d("1000.00")}).Equal(d("1000")))
	assert.True(t, AverageRent([]decimal.Decimal{d("1000.00"), d("1500.50"), d("999.99")}).Equal(d("1166.83")))
}

func seed(t *testing.T, db *gorm.DB, typ models.PropertyType, units ...models.Apartment) *models.Property {
	t.Helper()
	p := &models.Property{
		LandlordID:   uuid.New(),
		Title:        "Seed " + string(typ),
		PropertyType: typ,
		DateAdded:    time.Now(),
	}
	require.NoError(t, db.Create(p).Error)
	for i := range units {
		units[i].PropertyID = p.ID
		units[i].DateAdded = time.Now()
		if units[i].Status == "" {
			units[i].Status = models.OccupancyVacant
		}
		require.NoError(t, db.Create(&units[i]).Error)
	}
	return p
}

func occupiedUnit(label string, rent string) models.Apartment {
	name := "Tenant " + label
	return models.Apartment{UnitNumber: label, Rent: d(rent), Status: models.OccupancyOccupied, TenantName: &name}
}

func TestService_EmptyCatalog(t *testing.T) {
	s := NewService(dbtest.New(t), nil)
	st, err := s.ForCatalog(context.Background())
	require.NoError(t, err)
	assert.True(t, st.OccupancyRate.IsZero())
	assert.True(t, st.VacancyRate.IsZero())

	sum, err := s.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), sum.TotalProperties)
	assert.Equal(t, int64(0), sum.Bookings[models.BookingPending])
}

func TestService_ForProperty(t *testing.T) {
	db := dbtest.New(t)
	s := NewService(db, nil)
	ctx := context.Background()

	p := seed(t, db, models.PropertyTypeHouse,
		models.Apartment{UnitNumber: "1", Rent: d("1000.00")},
		occupiedUnit("2", "1500.00"),
		models.Apartment{UnitNumber: "3", Rent: d("800.00")},
	)
	empty := seed(t, db, models.PropertyTypeStudio)

	st, err := s.ForProperty(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), st.TotalUnits)
	assert.Equal(t, int64(1), st.OccupiedUnits)
	assert.True(t, st.OccupancyRate.Equal(d("33.3")))
	assert.True(t, st.VacancyRate.Equal(d("66.7")))
	assert.True(t, st.AverageRent.Equal(d("1100")))

	st, err = s.ForProperty(ctx, empty.ID)
	require.NoError(t, err)
	assert.True(t, st.OccupancyRate.IsZero())
	assert.True(t, st.AverageRent.IsZero())

	_, err = s.ForProperty(ctx, 9999)
	assert.True(t, errors.Is(err, errorx.ErrNotFound))
}

func TestService_SummaryAndDistribution(t *testing.T) {
	db := dbtest.New(t)
	s := NewService(db, nil)
	ctx := context.Background()

	seed(t, db, models.PropertyTypeHouse,
		models.Apartment{UnitNumber: "1", Rent: d("450.00")},
		occupiedUnit("2", "1200.00"),
	)
	p := seed(t, db, models.PropertyTypeHouse, models.Apartment{UnitNumber: "A", Rent: d("3500.00")})
	seed(t, db, models.PropertyTypeApartment)

	var unit models.Apartment
	require.NoError(t, db.Where("property_id = ?", p.ID).First(&unit).Error)
	require.NoError(t, db.Create(&models.Booking{TenantID: uuid.New(), ApartmentID: unit.ID, StartDate: time.Now(), Status: models.BookingPending}).Error)

	sum, err := s.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), sum.TotalProperties)
	assert.Equal(t, int64(3), sum.TotalUnits)
	assert.Equal(t, int64(1), sum.Bookings[models.BookingPending])

	bands, err := s.RentDistribution(ctx)
	require.NoError(t, err)
	counts := map[string]int64{}
	for _, b := range bands {
		counts[b.Label] = b.Count
	}
	assert.Equal(t, int64(1), counts["under 500"])
	assert.Equal(t, int64(1), counts["1000-1500"])
	assert.Equal(t, int64(1), counts["3000+"])
	assert.Equal(t, int64(0), counts["500-1000"])

	types, err := s.ByPropertyType(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, types)
	assert.Equal(t, models.PropertyTypeHouse, types[0].PropertyType)
	assert.Equal(t, int64(2), types[0].Count)
}
