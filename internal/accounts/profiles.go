package accounts

import (
	"context"

	"rental-portal/internal/errorx"
	"rental-portal/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Profile holds whichever role extension an identity has
type Profile struct {
	Tenant   *models.TenantProfile   `json:"tenant_profile,omitempty"`
	Landlord *models.LandlordProfile `json:"landlord_profile,omitempty"`
}

// EnsureProfile returns the identity's profile. Profiles are normally created
// by the identity insert hook; this lazy path only fills gaps and is a no-op
// when the profile exists.
func (s *Service) EnsureProfile(ctx context.Context, id uuid.UUID) (*Profile, error) {
	identity, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var profile Profile
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		switch identity.Role {
		case models.RoleTenant:
			profile.Tenant, err = ensureTenant(tx, id)
		case models.RoleLandlord:
			profile.Landlord, err = ensureLandlord(tx, id)
		default:
			return errorx.Validation("%s identities have no profile", identity.Role)
		}
		return err
	})
	if err != nil {
		if errorx.KindOf(err) != "" {
			return nil, err
		}
		return nil, errorx.FromStore(err, "ensure profile for %s", id)
	}
	return &profile, nil
}

func ensureTenant(tx *gorm.DB, id uuid.UUID) (*models.TenantProfile, error) {
	var p models.TenantProfile
	err := tx.Where("identity_id = ?", id).First(&p).Error
	if err == nil {
		return &p, nil
	}
	if !isNotFound(err) {
		return nil, err
	}
	if err := insertIgnoringConflict(tx, &models.TenantProfile{IdentityID: id}); err != nil {
		return nil, err
	}
	if err := tx.Where("identity_id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func ensureLandlord(tx *gorm.DB, id uuid.UUID) (*models.LandlordProfile, error) {
	var p models.LandlordProfile
	err := tx.Where("identity_id = ?", id).First(&p).Error
	if err == nil {
		return &p, nil
	}
	if !isNotFound(err) {
		return nil, err
	}
	if err := insertIgnoringConflict(tx, &models.LandlordProfile{IdentityID: id}); err != nil {
		return nil, err
	}
	if err := tx.Where("identity_id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// LandlordProfileInput is the landlord setup form
type LandlordProfileInput struct {
	PropertyName         string `json:"property_name"`
	CompanyName          string `json:"company_name"`
	BusinessPermitNumber string `json:"business_permit_number"`
	Address              string `json:"address"`
	NationalID           string `json:"national_id"`
}

// TenantProfileInput is the tenant setup form
type TenantProfileInput struct {
	CurrentAddress    string `json:"current_address"`
	PreferredLocation string `json:"preferred_location"`
	Occupation        string `json:"occupation"`
}

func (s *Service) authorizeProfileEdit(ctx context.Context, actor models.Actor, id uuid.UUID, role models.Role) error {
	if !actor.Is(id) && !actor.IsAdmin() {
		return errorx.Authorization("cannot edit another account's profile")
	}
	identity, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if identity.Role != role {
		return errorx.Validation("identity %s is %s, not %s", id, identity.Role, role)
	}
	return nil
}

// UpdateLandlordProfile fills in the landlord setup details
func (s *Service) UpdateLandlordProfile(ctx context.Context, actor models.Actor, id uuid.UUID, in LandlordProfileInput) (*models.LandlordProfile, error) {
	if err := s.authorizeProfileEdit(ctx, actor, id, models.RoleLandlord); err != nil {
		return nil, err
	}
	if len(in.NationalID) > 20 {
		return nil, errorx.Validation("national id exceeds 20 characters")
	}

	profile, err := s.EnsureProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	p := profile.Landlord
	p.PropertyName = in.PropertyName
	p.CompanyName = in.CompanyName
	p.BusinessPermitNumber = in.BusinessPermitNumber
	p.Address = in.Address
	p.NationalID = in.NationalID

	if err := s.db.WithContext(ctx).Save(p).Error; err != nil {
		return nil, errorx.FromStore(err, "save landlord profile %s", id)
	}
	s.log.Info("landlord profile updated", zap.String("identity_id", id.String()))
	return p, nil
}

// UpdateTenantProfile fills in the tenant setup details
func (s *Service) UpdateTenantProfile(ctx context.Context, actor models.Actor, id uuid.UUID, in TenantProfileInput) (*models.TenantProfile, error) {
	if err := s.authorizeProfileEdit(ctx, actor, id, models.RoleTenant); err != nil {
		return nil, err
	}

	profile, err := s.EnsureProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	p := profile.Tenant
	p.CurrentAddress = in.CurrentAddress
	p.PreferredLocation = in.PreferredLocation
	p.Occupation = in.Occupation

	if err := s.db.WithContext(ctx).Save(p).Error; err != nil {
		return nil, errorx.FromStore(err, "save tenant profile %s", id)
	}
	s.log.Info("tenant profile updated", zap.String("identity_id", id.String()))
	return p, nil
}
