package repository

import (
	"context"
	"errors"
	"time"

	"github.com/aquivis/aquivis/internal/company/domain"
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

func (r *repository) SlugTaken(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Company{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}

func (r *repository) Create(ctx context.Context, company *domain.Company) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO companies (id, name, slug, timezone, created_by, updated_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		company.ID,
		company.Name,
		company.Slug,
		company.Timezone,
		company.CreatedBy,
		company.UpdatedBy,
		company.CreatedAt,
		company.UpdatedAt,
	).Error
}

func (r *repository) FindByID(ctx context.Context, id snowflake.ID) (*domain.Company, error) {
	var company domain.Company
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&company).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, teamdomain.ErrNoCompany
	}
	if err != nil {
		return nil, err
	}
	return &company, nil
}

func (r *repository) Update(ctx context.Context, company *domain.Company) error {
	tx := r.db.WithContext(ctx).Exec(
		`UPDATE companies
		 SET name = ?, timezone = ?,
		     business_address = ?, business_address_street = ?, business_address_city = ?,
		     business_address_state = ?, business_address_postal_code = ?, business_address_country = ?,
		     phone = ?, website = ?, tax_id = ?,
		     updated_by = ?, updated_at = ?
		 WHERE id = ?`,
		company.Name,
		company.Timezone,
		company.BusinessAddress,
		company.BusinessAddressStreet,
		company.BusinessAddressCity,
		company.BusinessAddressState,
		company.BusinessAddressPostalCode,
		company.BusinessAddressCountry,
		company.Phone,
		company.Website,
		company.TaxID,
		company.UpdatedBy,
		company.UpdatedAt,
		company.ID,
	)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return teamdomain.ErrNoCompany
	}
	return nil
}

func (r *repository) ClaimOwnership(ctx context.Context, profileID, companyID snowflake.ID, at time.Time) (bool, error) {
	tx := r.db.WithContext(ctx).Exec(
		`UPDATE profiles
		 SET company_id = ?, role = ?, updated_by = ?, updated_at = ?
		 WHERE id = ? AND company_id IS NULL`,
		companyID,
		string(teamdomain.RoleOwner),
		profileID,
		at,
		profileID,
	)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}
