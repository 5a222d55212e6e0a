// Package integrity audits stored units for the occupancy invariant: a unit is
// Occupied exactly when it carries a tenant name.
package integrity

import (
	"context"

	"rental-portal/internal/errorx"
	"rental-portal/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const batchSize = 500

// Gauge receives the violation count of the latest audit
type Gauge interface {
	IntegrityViolations(n int)
}

type nopGauge struct{}

func (nopGauge) IntegrityViolations(int) {}

type Violation struct {
	UnitID     uint                   `json:"unit_id"`
	PropertyID uint                   `json:"property_id"`
	Status     models.OccupancyStatus `json:"status"`
	TenantName string                 `json:"tenant_name,omitempty"`
	Problem    string                 `json:"problem"`
}

type Report struct {
	Checked    int         `json:"checked"`
	Violations []Violation `json:"violations"`
}

// OK reports whether the audit found nothing
func (r *Report) OK() bool { return len(r.Violations) == 0 }

type Auditor struct {
	db    *gorm.DB
	log   *zap.Logger
	gauge Gauge
}

func NewAuditor(db *gorm.DB, log *zap.Logger, gauge Gauge) *Auditor {
	if log == nil {
		log = zap.NewNop()
	}
	if gauge == nil {
		gauge = nopGauge{}
	}
	return &Auditor{db: db, log: log, gauge: gauge}
}

// Audit checks every unit. It reports violations and never repairs them.
func (a *Auditor) Audit(ctx context.Context) (*Report, error) {
	report := &Report{Violations: []Violation{}}

	var units []models.Apartment
	res := a.db.WithContext(ctx).
		Select("id", "property_id", "status", "tenant_name").
		FindInBatches(&units, batchSize, func(tx *gorm.DB, _ int) error {
			for i := range units {
				u := &units[i]
				report.Checked++
				if err := u.CheckOccupancy(); err != nil {
					_, msg := errorx.Describe(err)
					report.Violations = append(report.Violations, Violation{
						UnitID:     u.ID,
						PropertyID: u.PropertyID,
						Status:     u.Status,
						TenantName: u.TenantLabel(),
						Problem:    msg,
					})
				}
			}
			return ctx.Err()
		})
	if res.Error != nil {
		return nil, errorx.FromStore(res.Error, "audit units")
	}

	a.gauge.IntegrityViolations(len(report.Violations))
	if report.OK() {
		a.log.Info("occupancy audit passed", zap.Int("units", report.Checked))
	} else {
		for _, v := range report.Violations {
			a.log.Error("occupancy invariant violated",
				zap.Uint("unit_id", v.UnitID),
				zap.Uint("property_id", v.PropertyID),
				zap.String("problem", v.Problem),
			)
		}
	}
	return report, nil
}
