package repository

import (
	"context"
	"errors"

	"github.com/aquivis/aquivis/internal/property/domain"
	teamdomain "github.com/aquivis/aquivis/internal/team/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) domain.Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CompanyTimezone(ctx context.Context, companyID snowflake.ID) (string, error) {
	var timezones []string
	err := r.db.WithContext(ctx).
		Table("companies").
		Where("id = ?", companyID).
		Limit(1).
		Pluck("timezone", &timezones).Error
	if err != nil {
		return "", err
	}
	if len(timezones) == 0 {
		return "", teamdomain.ErrNoCompany
	}
	return timezones[0], nil
}

func (r *repository) Create(ctx context.Context, property *domain.Property) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO properties (id, company_id, name, address, has_individual_units, timezone, created_by, updated_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		property.ID,
		property.CompanyID,
		property.Name,
		property.Address,
		property.HasIndividualUnits,
		property.Timezone,
		property.CreatedBy,
		property.UpdatedBy,
		property.CreatedAt,
		property.UpdatedAt,
	).Error
}

func (r *repository) Update(ctx context.Context, property *domain.Property) error {
	tx := r.db.WithContext(ctx).Exec(
		`UPDATE properties
		 SET name = ?, address = ?, has_individual_units = ?, timezone = ?, updated_by = ?, updated_at = ?
		 WHERE id = ? AND company_id = ?`,
		property.Name,
		property.Address,
		property.HasIndividualUnits,
		property.Timezone,
		property.UpdatedBy,
		property.UpdatedAt,
		property.ID,
		property.CompanyID,
	)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrPropertyNotFound
	}
	return nil
}

func (r *repository) FindByID(ctx context.Context, companyID, id snowflake.ID) (*domain.Property, error) {
	var property domain.Property
	err := r.db.WithContext(ctx).
		Where("id = ? AND company_id = ?", id, companyID).
		First(&property).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrPropertyNotFound
	}
	if err != nil {
		return nil, err
	}
	return &property, nil
}

func (r *repository) List(ctx context.Context, companyID snowflake.ID) ([]domain.Property, error) {
	var properties []domain.Property
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&properties).Error
	return properties, err
}

func (r *repository) CreateUnit(ctx context.Context, unit *domain.Unit) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO units (id, property_id, company_id, name, unit_type, water_type, volume_litres, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		unit.ID,
		unit.PropertyID,
		unit.CompanyID,
		unit.Name,
		string(unit.UnitType),
		string(unit.WaterType),
		unit.VolumeLitres,
		unit.IsActive,
		unit.CreatedAt,
		unit.UpdatedAt,
	).Error
}

func (r *repository) FindUnit(ctx context.Context, companyID, id snowflake.ID) (*domain.Unit, error) {
	var unit domain.Unit
	err := r.db.WithContext(ctx).
		Where("id = ? AND company_id = ?", id, companyID).
		First(&unit).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrUnitNotFound
	}
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

func (r *repository) ListUnits(ctx context.Context, companyID snowflake.ID, propertyIDs []snowflake.ID) ([]domain.Unit, error) {
	if len(propertyIDs) == 0 {
		return nil, nil
	}
	var units []domain.Unit
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND property_id IN ?", companyID, propertyIDs).
		Order("created_at ASC").
		Order("id ASC").
		Find(&units).Error
	return units, err
}
