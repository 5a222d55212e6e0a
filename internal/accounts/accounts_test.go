package accounts

import (
	"context"
	"errors"
	"testing"
	"time"

	"rental-portal/internal/database/dbtest"
	"rental-portal/internal/errorx"
	"rental-portal/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := dbtest.New(t)
	return NewService(db, nil), db
}

func register(t *testing.T, s *Service, username string, role models.Role) *models.Identity {
	t.Helper()
	id, err := s.Register(context.Background(), RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		FullName: username + " Example",
		Role:     role,
	})
	require.NoError(t, err)
	return id
}

func TestRegister_CreatesSingleProfile(t *testing.T) {
	s, db := newTestService(t)
	ctx := context.Background()

	tenant := register(t, s, "tina", models.RoleTenant)
	assert.Equal(t, models.RoleTenant, tenant.Role)
	assert.Equal(t, models.IdentityActive, tenant.Status)

	// the lazy path must not create a second profile
	for i := 0; i < 3; i++ {
		p, err := s.EnsureProfile(ctx, tenant.ID)
		require.NoError(t, err)
		require.NotNil(t, p.Tenant)
		assert.Nil(t, p.Landlord)
	}
	var count int64
	db.Model(&models.TenantProfile{}).Where("identity_id = ?", tenant.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestEnsureProfile_FillsMissingProfile(t *testing.T) {
	s, db := newTestService(t)
	ctx := context.Background()

	landlord := register(t, s, "lou", models.RoleLandlord)
	require.NoError(t, db.Where("identity_id = ?", landlord.ID).Delete(&models.LandlordProfile{}).Error)

	p, err := s.EnsureProfile(ctx, landlord.ID)
	require.NoError(t, err)
	require.NotNil(t, p.Landlord)
	assert.Equal(t, landlord.ID, p.Landlord.IdentityID)

	admin := register(t, s, "ada", models.RoleAdmin)
	_, err = s.EnsureProfile(ctx, admin.ID)
	assert.True(t, errors.Is(err, errorx.ErrValidation))

	_, err = s.EnsureProfile(ctx, uuid.New())
	assert.True(t, errors.Is(err, errorx.ErrNotFound))
}

func TestRegister_Validation(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	cases := []RegisterInput{
		{Username: "", Email: "a@example.com", FullName: "A", Role: models.RoleTenant},
		{Username: "a", Email: "not-an-email", FullName: "A", Role: models.RoleTenant},
		{Username: "a", Email: "a@", FullName: "A", Role: models.RoleTenant},
		{Username: "a", Email: "Jane <a@example.com>", FullName: "A", Role: models.RoleTenant},
		{Username: "a", Email: "a@example.com", FullName: "  ", Role: models.RoleTenant},
		{Username: "a", Email: "a@example.com", FullName: "A", Role: "OWNER"},
	}
	for _, in := range cases {
		_, err := s.Register(ctx, in)
		assert.True(t, errors.Is(err, errorx.ErrValidation), "%+v", in)
	}

	register(t, s, "dup", models.RoleTenant)
	_, err := s.Register(ctx, RegisterInput{Username: "dup", Email: "other@example.com", FullName: "D", Role: models.RoleTenant})
	assert.True(t, errors.Is(err, errorx.ErrValidation))

	// lower-case role strings are accepted
	id, err := s.Register(ctx, RegisterInput{Username: "low", Email: "low@example.com", FullName: "Low", Role: "landlord"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleLandlord, id.Role)
}

func TestVerify(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	admin := models.ActorFor(register(t, s, "ada", models.RoleAdmin))
	landlord := register(t, s, "lou", models.RoleLandlord)

	_, err := s.Verify(ctx, models.ActorFor(landlord), landlord.ID, models.VerificationVerified, "")
	assert.True(t, errors.Is(err, errorx.ErrAuthorization))

	_, err = s.Verify(ctx, admin, landlord.ID, "MAYBE", "")
	assert.True(t, errors.Is(err, errorx.ErrValidation))

	got, err := s.Verify(ctx, admin, landlord.ID, models.VerificationVerified, "permit checked")
	require.NoError(t, err)
	assert.Equal(t, models.VerificationVerified, got.VerificationStatus)

	stored, err := s.Get(ctx, landlord.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VerificationVerified, stored.VerificationStatus)
	assert.Equal(t, "permit checked", stored.VerificationNotes)
	require.NotNil(t, stored.VerifiedByID)
	assert.Equal(t, admin.ID, *stored.VerifiedByID)
	require.NotNil(t, stored.VerificationDate)
	assert.True(t, fixed.Equal(*stored.VerificationDate))
}

func TestSetStatusAndResolveActor(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	admin := models.ActorFor(register(t, s, "ada", models.RoleAdmin))
	tenant := register(t, s, "tina", models.RoleTenant)

	actor, err := s.ResolveActor(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, "tina Example", actor.FullName)
	assert.True(t, actor.Authenticated)

	_, err = s.SetStatus(ctx, admin, tenant.ID, models.IdentitySuspended)
	require.NoError(t, err)
	_, err = s.ResolveActor(ctx, tenant.ID)
	assert.True(t, errors.Is(err, errorx.ErrAuthorization))

	_, err = s.SetStatus(ctx, admin, admin.ID, models.IdentityInactive)
	assert.True(t, errors.Is(err, errorx.ErrValidation))

	_, err = s.SetStatus(ctx, models.ActorFor(tenant), tenant.ID, models.IdentityActive)
	assert.True(t, errors.Is(err, errorx.ErrAuthorization))

	_, err = s.ResolveActor(ctx, uuid.New())
	assert.True(t, errors.Is(err, errorx.ErrNotFound))
}

func TestList(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	admin := models.ActorFor(register(t, s, "ada", models.RoleAdmin))
	register(t, s, "lou", models.RoleLandlord)
	tenant := register(t, s, "tina", models.RoleTenant)

	all, err := s.List(ctx, admin, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	landlords, err := s.List(ctx, admin, models.RoleLandlord)
	require.NoError(t, err)
	require.Len(t, landlords, 1)
	assert.Equal(t, "lou", landlords[0].Username)

	_, err = s.List(ctx, models.ActorFor(tenant), "")
	assert.True(t, errors.Is(err, errorx.ErrAuthorization))

	found, err := s.FindByUsername(ctx, " tina ")
	require.NoError(t, err)
	assert.Equal(t, tenant.ID, found.ID)
	_, err = s.FindByUsername(ctx, "nobody")
	assert.True(t, errors.Is(err, errorx.ErrNotFound))
}

func TestUpdateProfiles(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	landlord := register(t, s, "lou", models.RoleLandlord)
	tenant := register(t, s, "tina", models.RoleTenant)

	p, err := s.UpdateLandlordProfile(ctx, models.ActorFor(landlord), landlord.ID, LandlordProfileInput{
		CompanyName: "Lou Lettings",
		NationalID:  "12345678",
	})
	require.NoError(t, err)
	assert.Equal(t, "Lou Lettings", p.CompanyName)

	again, err := s.EnsureProfile(ctx, landlord.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lou Lettings", again.Landlord.CompanyName)

	_, err = s.UpdateLandlordProfile(ctx, models.ActorFor(tenant), landlord.ID, LandlordProfileInput{})
	assert.True(t, errors.Is(err, errorx.ErrAuthorization))

	_, err = s.UpdateLandlordProfile(ctx, models.ActorFor(tenant), tenant.ID, LandlordProfileInput{})
	assert.True(t, errors.Is(err, errorx.ErrValidation))

	tp, err := s.UpdateTenantProfile(ctx, models.ActorFor(tenant), tenant.ID, TenantProfileInput{Occupation: "Nurse"})
	require.NoError(t, err)
	assert.Equal(t, "Nurse", tp.Occupation)
}
