package listing

import (
	"context"
	"errors"
	"sync"
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

type fakeIndexer struct {
	mu      sync.Mutex
	indexed map[uint]Listing
	removed []uint
}

func (f *fakeIndexer) IndexListing(_ context.Context, l Listing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.indexed == nil {
		f.indexed = map[uint]Listing{}
	}
	f.indexed[l.Property.ID] = l
	return nil
}

func (f *fakeIndexer) RemoveProperty(_ context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, id)
	return nil
}

type countingRecorder struct {
	overrides map[models.OccupancyStatus]int
}

func (c *countingRecorder) ManualOverride(s models.OccupancyStatus) {
	if c.overrides == nil {
		c.overrides = map[models.OccupancyStatus]int{}
	}
	c.overrides[s]++
}

func actor(role models.Role) models.Actor {
	return models.Actor{ID: uuid.New(), Role: role, FullName: string(role) + " user", Authenticated: true}
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func rent(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func newTestService(t *testing.T, opts ...Option) (*Service, *gorm.DB) {
	t.Helper()
	db := dbtest.New(t)
	return NewService(db, nil, opts...), db
}

func mustProperty(t *testing.T, s *Service, owner models.Actor, title, typ, address string) *models.Property {
	t.Helper()
	p, err := s.CreateProperty(context.Background(), owner, PropertyInput{Title: title, PropertyType: typ, Address: address})
	require.NoError(t, err)
	return p
}

func mustUnit(t *testing.T, s *Service, owner models.Actor, propertyID uint, label, amount string) *models.Apartment {
	t.Helper()
	u, err := s.CreateUnit(context.Background(), owner, propertyID, UnitInput{UnitNumber: label, Rent: rent(amount)})
	require.NoError(t, err)
	return u
}

func TestCreateProperty(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	fixed := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	landlord := actor(models.RoleLandlord)
	p, err := s.CreateProperty(ctx, landlord, PropertyInput{Title: " Maple House ", PropertyType: "house", Address: "1 Maple St"})
	require.NoError(t, err)
	assert.Equal(t, "Maple House", p.Title)
	assert.Equal(t, models.PropertyTypeHouse, p.PropertyType)
	assert.Equal(t, landlord.ID, p.LandlordID)
	assert.True(t, fixed.Equal(p.DateAdded))

	_, err = s.CreateProperty(ctx, actor(models.RoleTenant), PropertyInput{Title: "x", PropertyType: "House"})
	assert.True(t, errors.Is(err, errorx.ErrAuthorization))

	_, err = s.CreateProperty(ctx, landlord, PropertyInput{Title: "x", PropertyType: "Castle"})
	assert.True(t, errors.Is(err, errorx.ErrValidation))

	_, err = s.CreateProperty(ctx, landlord, PropertyInput{Title: "  ", PropertyType: "House"})
	assert.True(t, errors.Is(err, errorx.ErrValidation))
}

func TestUpdateProperty_Ownership(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	owner := actor(models.RoleLandlord)
	p := mustProperty(t, s, owner, "Old", "Studio", "Somewhere")

	_, err := s.UpdateProperty(ctx, actor(models.RoleLandlord), p.ID, PropertyInput{Title: "Stolen", PropertyType: "Studio"})
	assert.True(t, errors.Is(err, errorx.ErrAuthorization))

	updated, err := s.UpdateProperty(ctx, actor(models.RoleAdmin), p.ID, PropertyInput{Title: "New", PropertyType: "Apartment", Address: "Elsewhere"})
	require.NoError(t, err)
	assert.Equal(t, "New", updated.Title)

	got, err := s.GetProperty(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PropertyTypeApartment, got.PropertyType)
	assert.Equal(t, "Elsewhere", got.Address)

	_, err = s.UpdateProperty(ctx, owner, 999, PropertyInput{Title: "x", PropertyType: "House"})
	assert.True(t, errors.Is(err, errorx.ErrNotFound))
}

func TestValidateRent(t *testing.T) {
	for _, ok := range []string{"0", "0.00", "1000.00", "999.5", "99999999.99"} {
		assert.NoError(t, ValidateRent(d(ok)), ok)
	}
	for _, bad := range []string{"-0.01", "-100", "10.001", "100000000", "100000000.00"} {
		err := ValidateRent(d(bad))
		assert.True(t, errors.Is(err, errorx.ErrValidation), bad)
	}
}

func TestCreateUnit(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	owner := actor(models.RoleLandlord)
	p := mustProperty(t, s, owner, "Maple", "House", "1 Maple St")

	u, err := s.CreateUnit(ctx, owner, p.ID, UnitInput{
		UnitNumber: "U1",
		Rent:       rent("1000.00"),
		Media: []MediaInput{
			{Ref: "https://cdn.example.com/u1.jpg"},
			{Kind: models.MediaVideo, Ref: "https://cdn.example.com/u1.mp4"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, models.OccupancyVacant, u.Status)
	assert.Nil(t, u.TenantName)
	assert.Equal(t, 1, u.Bedrooms)
	require.NoError(t, u.CheckOccupancy())

	got, err := s.GetUnit(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, got.Media, 2)
	assert.Equal(t, models.MediaImage, got.Media[0].Kind)
	assert.Equal(t, models.MediaVideo, got.Media[1].Kind)
	landlordID, ok := got.LandlordID()
	require.True(t, ok)
	assert.Equal(t, owner.ID, landlordID)

	_, err = s.CreateUnit(ctx, actor(models.RoleLandlord), p.ID, UnitInput{UnitNumber: "U2", Rent: rent("10")})
	assert.True(t, errors.Is(err, errorx.ErrAuthorization))

	_, err = s.CreateUnit(ctx, actor(models.RoleAdmin), p.ID, UnitInput{UnitNumber: "U2", Rent: rent("10")})
	assert.NoError(t, err)

	_, err = s.CreateUnit(ctx, owner, p.ID, UnitInput{UnitNumber: "U3", Rent: rent("12.345")})
	assert.True(t, errors.Is(err, errorx.ErrValidation))

	neg := -1
	_, err = s.CreateUnit(ctx, owner, p.ID, UnitInput{UnitNumber: "U3", Bedrooms: &neg, Rent: rent("10")})
	assert.True(t, errors.Is(err, errorx.ErrValidation))

	_, err = s.CreateUnit(ctx, owner, p.ID, UnitInput{UnitNumber: "U3"})
	assert.True(t, errors.Is(err, errorx.ErrValidation), "rent is required")

	units, err := s.ListUnits(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, units, 2)
}

func TestUpdateUnit_KeepsOccupancy(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	owner := actor(models.RoleLandlord)
	p := mustProperty(t, s, owner, "Maple", "House", "")
	u := mustUnit(t, s, owner, p.ID, "U1", "1000.00")

	_, err := s.UpdateUnitStatus(ctx, owner, u.ID, models.OccupancyOccupied, "Jane Doe")
	require.NoError(t, err)

	three := 3
	updated, err := s.UpdateUnit(ctx, owner, u.ID, UnitInput{UnitNumber: "U1a", Bedrooms: &three, Rent: rent("1100.50"), Media: []MediaInput{}})
	require.NoError(t, err)
	assert.Equal(t, "U1a", updated.UnitNumber)

	got, err := s.GetUnit(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Bedrooms)
	assert.True(t, got.Rent.Equal(d("1100.50")))
	assert.Equal(t, models.OccupancyOccupied, got.Status)
	assert.Equal(t, "Jane Doe", got.TenantLabel())
	assert.Empty(t, got.Media)
}

func TestUpdateUnit_OmittedFields(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	owner := actor(models.RoleLandlord)
	p := mustProperty(t, s, owner, "Maple", "House", "")
	u := mustUnit(t, s, owner, p.ID, "U1", "900.00")

	three := 3
	_, err := s.UpdateUnit(ctx, owner, u.ID, UnitInput{UnitNumber: "U1", Bedrooms: &three, Rent: rent("1000.00")})
	require.NoError(t, err)

	_, err = s.UpdateUnit(ctx, owner, u.ID, UnitInput{UnitNumber: "U1b"})
	assert.True(t, errors.Is(err, errorx.ErrValidation))

	got, err := s.GetUnit(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "U1", got.UnitNumber)
	assert.True(t, got.Rent.Equal(d("1000.00")), "rent must survive a rejected update")

	updated, err := s.UpdateUnit(ctx, owner, u.ID, UnitInput{UnitNumber: "U1b", Rent: rent("1000.00")})
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Bedrooms)

	got, err = s.GetUnit(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "U1b", got.UnitNumber)
	assert.Equal(t, 3, got.Bedrooms)
}

func TestUpdateUnitStatus(t *testing.T) {
	rec := &countingRecorder{}
	s, _ := newTestService(t, WithRecorder(rec))
	ctx := context.Background()
	owner := actor(models.RoleLandlord)
	p := mustProperty(t, s, owner, "Maple", "House", "")
	u := mustUnit(t, s, owner, p.ID, "U1", "1000.00")

	// Occupied needs a tenant name
	_, err := s.UpdateUnitStatus(ctx, owner, u.ID, models.OccupancyOccupied, "   ")
	assert.True(t, errors.Is(err, errorx.ErrValidation))
	got, err := s.GetUnit(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OccupancyVacant, got.Status)

	occupied, err := s.UpdateUnitStatus(ctx, owner, u.ID, models.OccupancyOccupied, "  Jane Doe ")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", occupied.TenantLabel())

	// Vacant clears the name whatever is passed
	vacant, err := s.UpdateUnitStatus(ctx, actor(models.RoleAdmin), u.ID, models.OccupancyVacant, "ignored")
	require.NoError(t, err)
	assert.Nil(t, vacant.TenantName)

	got, err = s.GetUnit(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OccupancyVacant, got.Status)
	assert.Nil(t, got.TenantName)
	require.NoError(t, got.CheckOccupancy())

	_, err = s.UpdateUnitStatus(ctx, actor(models.RoleTenant), u.ID, models.OccupancyOccupied, "Me")
	assert.True(t, errors.Is(err, errorx.ErrAuthorization))

	_, err = s.UpdateUnitStatus(ctx, owner, u.ID, "Reserved", "")
	assert.True(t, errors.Is(err, errorx.ErrValidation))

	_, err = s.UpdateUnitStatus(ctx, owner, 404, models.OccupancyVacant, "")
	assert.True(t, errors.Is(err, errorx.ErrNotFound))

	assert.Equal(t, 1, rec.overrides[models.OccupancyOccupied])
	assert.Equal(t, 1, rec.overrides[models.OccupancyVacant])
}

func TestUpdateUnitStatus_DoesNotTouchBookings(t *testing.T) {
	s, db := newTestService(t)
	ctx := context.Background()
	owner := actor(models.RoleLandlord)
	p := mustProperty(t, s, owner, "Maple", "House", "")
	u := mustUnit(t, s, owner, p.ID, "U1", "1000.00")

	b := &models.Booking{TenantID: uuid.New(), ApartmentID: u.ID, StartDate: time.Now(), Status: models.BookingPending}
	require.NoError(t, db.Create(b).Error)

	_, err := s.UpdateUnitStatus(ctx, owner, u.ID, models.OccupancyOccupied, "Walk-in Tenant")
	require.NoError(t, err)

	var stored models.Booking
	require.NoError(t, db.First(&stored, b.ID).Error)
	assert.Equal(t, models.BookingPending, stored.Status)
}

func TestDeleteProperty_Cascades(t *testing.T) {
	ix := &fakeIndexer{}
	s, db := newTestService(t, WithIndexer(ix))
	ctx := context.Background()
	owner := actor(models.RoleLandlord)
	p := mustProperty(t, s, owner, "Maple", "House", "")
	u1 := mustUnit(t, s, owner, p.ID, "U1", "1000.00")
	u2, err := s.CreateUnit(ctx, owner, p.ID, UnitInput{UnitNumber: "U2", Rent: rent("900"), Media: []MediaInput{{Ref: "a.jpg"}}})
	require.NoError(t, err)
	other := mustProperty(t, s, owner, "Oak", "Studio", "")
	kept := mustUnit(t, s, owner, other.ID, "K1", "500")

	for _, unitID := range []uint{u1.ID, u2.ID, kept.ID} {
		require.NoError(t, db.Create(&models.Booking{TenantID: uuid.New(), ApartmentID: unitID, StartDate: time.Now(), Status: models.BookingPending}).Error)
	}

	err = s.DeleteProperty(ctx, actor(models.RoleLandlord), p.ID)
	assert.True(t, errors.Is(err, errorx.ErrAuthorization))

	require.NoError(t, s.DeleteProperty(ctx, owner, p.ID))

	_, err = s.GetProperty(ctx, p.ID)
	assert.True(t, errors.Is(err, errorx.ErrNotFound))

	var units, bookings, media, logs int64
	db.Model(&models.Apartment{}).Count(&units)
	db.Model(&models.Booking{}).Count(&bookings)
	db.Model(&models.ApartmentMedia{}).Count(&media)
	db.Model(&models.BookingDeleteLog{}).Where("reason = ?", models.DeleteReasonCascade).Count(&logs)
	assert.Equal(t, int64(1), units)
	assert.Equal(t, int64(1), bookings)
	assert.Equal(t, int64(0), media)
	assert.Equal(t, int64(2), logs)

	assert.Equal(t, []uint{p.ID}, ix.removed)
	_, stillIndexed := ix.indexed[other.ID]
	assert.True(t, stillIndexed)
}

func TestReindexOnChanges(t *testing.T) {
	ix := &fakeIndexer{}
	s, _ := newTestService(t, WithIndexer(ix))
	ctx := context.Background()
	owner := actor(models.RoleLandlord)
	p := mustProperty(t, s, owner, "Maple", "House", "")
	u := mustUnit(t, s, owner, p.ID, "U1", "1000.00")

	_, err := s.UpdateUnitStatus(ctx, owner, u.ID, models.OccupancyOccupied, "Jane")
	require.NoError(t, err)

	l := ix.indexed[p.ID]
	assert.Equal(t, int64(1), l.Stats.TotalUnits)
	assert.Equal(t, int64(1), l.Stats.OccupiedUnits)
	assert.Equal(t, models.OccupancyOccupied, l.Availability)
}

func searchFixture(t *testing.T) (*Service, []*models.Property) {
	t.Helper()
	s, _ := newTestService(t)
	owner := actor(models.RoleLandlord)

	p1 := mustProperty(t, s, owner, "Maple", "House", "12 Maple Street, Springfield")
	mustUnit(t, s, owner, p1.ID, "1", "1000.00")
	mustUnit(t, s, owner, p1.ID, "2", "1200.00")

	p2 := mustProperty(t, s, owner, "Oak", "Apartment", "4 Oak Ave, SPRINGFIELD")
	mustUnit(t, s, owner, p2.ID, "1", "2500.00")

	p3 := mustProperty(t, s, owner, "Pine", "House", "9 Pine Rd, Shelbyville")
	mustUnit(t, s, owner, p3.ID, "1", "800.00")

	p4 := mustProperty(t, s, owner, "Empty", "Studio", "100% Real Rd, Springfield")
	return s, []*models.Property{p1, p2, p3, p4}
}

func titles(t *testing.T, s *Service, f Filters) []string {
	t.Helper()
	ls, err := Collect(s.Search(context.Background(), f))
	require.NoError(t, err)
	out := make([]string, 0, len(ls))
	for _, l := range ls {
		out = append(out, l.Property.Title)
	}
	return out
}

func ptr[T any](v T) *T { return &v }

func TestSearch_Filters(t *testing.T) {
	s, _ := searchFixture(t)

	assert.Equal(t, []string{"Maple", "Oak", "Pine", "Empty"}, titles(t, s, Filters{}))
	assert.Equal(t, []string{"Maple", "Oak", "Empty"}, titles(t, s, Filters{Location: ptr("springfield")}))
	assert.Equal(t, []string{"Maple", "Pine"}, titles(t, s, Filters{PropertyType: ptr(models.PropertyTypeHouse)}))
	assert.Equal(t, []string{"Maple", "Pine", "Empty"}, titles(t, s, Filters{MaxPrice: ptr(d("1100"))}))
	assert.Equal(t, []string{"Maple"}, titles(t, s, Filters{
		Location:     ptr("Springfield"),
		PropertyType: ptr(models.PropertyTypeHouse),
		MaxPrice:     ptr(d("1100")),
	}))
	assert.Equal(t, []string{"Empty"}, titles(t, s, Filters{Location: ptr("100%")}))
	assert.Empty(t, titles(t, s, Filters{Location: ptr("_")}))
}

func TestSearch_DerivedFields(t *testing.T) {
	s, _ := searchFixture(t)
	ls, err := Collect(s.Search(context.Background(), Filters{}))
	require.NoError(t, err)
	require.Len(t, ls, 4)

	assert.True(t, ls[0].Stats.AverageRent.Equal(d("1100")))
	assert.Equal(t, models.OccupancyVacant, ls[0].Availability)
	assert.True(t, ls[3].Stats.AverageRent.IsZero())
	assert.Equal(t, models.OccupancyOccupied, ls[3].Availability)
}

func TestSearch_LazyAndRestartable(t *testing.T) {
	s, props := searchFixture(t)
	seq := s.Search(context.Background(), Filters{PageSize: 1})

	first := titles(t, s, Filters{PageSize: 1})
	assert.Equal(t, []string{"Maple", "Oak", "Pine", "Empty"}, first)

	// stop after the second result
	var seen []uint
	for l, err := range seq {
		require.NoError(t, err)
		seen = append(seen, l.Property.ID)
		if len(seen) == 2 {
			break
		}
	}
	assert.Equal(t, []uint{props[0].ID, props[1].ID}, seen)

	// ranging again starts from the beginning and sees new rows
	owner := models.Actor{ID: props[0].LandlordID, Role: models.RoleLandlord, Authenticated: true}
	mustProperty(t, s, owner, "Birch", "House", "")
	again, err := Collect(seq)
	require.NoError(t, err)
	assert.Len(t, again, 5)
	assert.Equal(t, props[0].ID, again[0].Property.ID)
}

func TestSearch_InvalidType(t *testing.T) {
	s, _ := searchFixture(t)
	_, err := Collect(s.Search(context.Background(), Filters{PropertyType: ptr(models.PropertyType("house"))}))
	assert.True(t, errors.Is(err, errorx.ErrValidation))
}
