// Package accounts is the identity store and the per-role profile store.
package accounts

import (
	"context"
	"errors"
	"strings"
	"time"

	"rental-portal/internal/errorx"
	"rental-portal/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service handles identity and profile operations
type Service struct {
	db  *gorm.DB
	log *zap.Logger
	now func() time.Time
}

// NewService creates a new account service
func NewService(db *gorm.DB, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{db: db, log: log, now: time.Now}
}

// validate checks fields of inputs that also arrive outside gin binding
var validate = validator.New()

// RegisterInput carries the fields of a new identity
type RegisterInput struct {
	Username          string          `json:"username" binding:"required"`
	Email             string          `json:"email" binding:"required,email"`
	FullName          string          `json:"full_name" binding:"required"`
	PhoneNumber       string          `json:"phone_number"`
	Bio               string          `json:"bio"`
	ProfilePictureURL models.MediaRef `json:"profile_picture_url"`
	Role              models.Role     `json:"role" binding:"required"`
}

func (in *RegisterInput) normalize() error {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	in.FullName = strings.TrimSpace(in.FullName)

	if in.Username == "" || len(in.Username) > 50 {
		return errorx.Validation("username must be 1-50 characters")
	}
	if err := validate.Var(in.Email, "required,email"); err != nil {
		return errorx.Validation("invalid email %q", in.Email)
	}
	if in.FullName == "" || len(in.FullName) > 100 {
		return errorx.Validation("full name must be 1-100 characters")
	}
	if len(in.PhoneNumber) > 15 {
		return errorx.Validation("phone number exceeds 15 characters")
	}
	role, ok := models.ParseRole(string(in.Role))
	if !ok {
		return errorx.Validation("invalid role %q", in.Role)
	}
	in.Role = role
	return nil
}

// Register persists a new identity. The matching profile is created by the
// identity's AfterCreate hook inside the same transaction.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.Identity, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	identity := &models.Identity{
		Username:          in.Username,
		Email:             in.Email,
		FullName:          in.FullName,
		PhoneNumber:       in.PhoneNumber,
		Bio:               in.Bio,
		ProfilePictureURL: in.ProfilePictureURL,
		Role:              in.Role,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var taken int64
		if err := tx.Model(&models.Identity{}).
			Where("username = ? OR email = ?", in.Username, in.Email).
			Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return errorx.Validation("username or email already registered")
		}
		return tx.Create(identity).Error
	})
	if err != nil {
		if errorx.KindOf(err) != "" {
			return nil, err
		}
		return nil, errorx.FromStore(err, "register identity")
	}

	s.log.Info("identity registered",
		zap.String("identity_id", identity.ID.String()),
		zap.String("role", string(identity.Role)))
	return identity, nil
}

// Get returns an identity by id
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Identity, error) {
	var identity models.Identity
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&identity).Error; err != nil {
		return nil, errorx.FromStore(err, "identity %s", id)
	}
	return &identity, nil
}

// FindByUsername returns an identity by its username
func (s *Service) FindByUsername(ctx context.Context, username string) (*models.Identity, error) {
	var identity models.Identity
	if err := s.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&identity).Error; err != nil {
		return nil, errorx.FromStore(err, "identity %q", username)
	}
	return &identity, nil
}

// List returns identities for an admin, optionally filtered by role
func (s *Service) List(ctx context.Context, actor models.Actor, role models.Role) ([]models.Identity, error) {
	if !actor.IsAdmin() {
		return nil, errorx.Authorization("only administrators can list accounts")
	}
	q := s.db.WithContext(ctx).Order("created_at DESC")
	if role != "" {
		if !role.Valid() {
			return nil, errorx.Validation("invalid role %q", role)
		}
		q = q.Where("role = ?", role)
	}
	var identities []models.Identity
	if err := q.Find(&identities).Error; err != nil {
		return nil, errorx.FromStore(err, "list identities")
	}
	return identities, nil
}

// ResolveActor turns an authenticated identity id into the actor passed to the
// core. Inactive and suspended accounts may not act.
func (s *Service) ResolveActor(ctx context.Context, id uuid.UUID) (models.Actor, error) {
	identity, err := s.Get(ctx, id)
	if err != nil {
		return models.Actor{}, err
	}
	if !identity.IsActive() {
		return models.Actor{}, errorx.Authorization("account %s is %s", id, identity.Status)
	}
	return models.ActorFor(identity), nil
}

// Verify records an admin's verification decision on an identity
func (s *Service) Verify(ctx context.Context, admin models.Actor, id uuid.UUID, status models.VerificationStatus, notes string) (*models.Identity, error) {
	if !admin.IsAdmin() {
		return nil, errorx.Authorization("only administrators can verify accounts")
	}
	if !status.Valid() {
		return nil, errorx.Validation("invalid verification status %q", status)
	}

	identity, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	adminID := admin.ID
	identity.VerificationStatus = status
	identity.VerificationNotes = notes
	identity.VerificationDate = &now
	identity.VerifiedByID = &adminID

	err = s.db.WithContext(ctx).Model(identity).
		Select("verification_status", "verification_notes", "verification_date", "verified_by_id").
		Updates(identity).Error
	if err != nil {
		return nil, errorx.FromStore(err, "verify identity %s", id)
	}

	s.log.Info("identity verification updated",
		zap.String("identity_id", id.String()),
		zap.String("verification_status", string(status)),
		zap.String("admin_id", admin.ID.String()))
	return identity, nil
}

// SetStatus changes the soft lifecycle status of an identity
func (s *Service) SetStatus(ctx context.Context, admin models.Actor, id uuid.UUID, status models.IdentityStatus) (*models.Identity, error) {
	if !admin.IsAdmin() {
		return nil, errorx.Authorization("only administrators can change account status")
	}
	if !status.Valid() {
		return nil, errorx.Validation("invalid account status %q", status)
	}
	if admin.ID == id && status != models.IdentityActive {
		return nil, errorx.Validation("administrators cannot deactivate themselves")
	}

	identity, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	identity.Status = status
	if err := s.db.WithContext(ctx).Model(identity).Update("status", status).Error; err != nil {
		return nil, errorx.FromStore(err, "set status of identity %s", id)
	}

	s.log.Info("identity status changed",
		zap.String("identity_id", id.String()),
		zap.String("status", string(status)))
	return identity, nil
}

// isNotFound is true for a missing row
func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// insertIgnoringConflict inserts a profile unless one already exists for the
// identity. The unique index on identity_id makes this race-free.
func insertIgnoringConflict(tx *gorm.DB, profile any) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "identity_id"}},
		DoNothing: true,
	}).Create(profile).Error
}
