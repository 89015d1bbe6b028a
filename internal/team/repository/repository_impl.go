package repository

import (
	"context"
	"errors"
	"time"

	"github.com/aquivis/aquivis/internal/team/domain"
	"github.com/aquivis/aquivis/pkg/db"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// ownerGuard is true when the row being changed is not an owner or when
// another owner remains. The inner derived table keeps MySQL from rejecting
// a subquery on the table being updated.
const ownerGuard = `(role IS NULL OR role <> 'owner' OR (
	SELECT COUNT(*) FROM (
		SELECT id FROM profiles WHERE company_id = ? AND role = 'owner'
	) owners
) > 1)`

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

func (r *repository) CreateProfile(ctx context.Context, profile *domain.Profile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

func (r *repository) FindProfile(ctx context.Context, id snowflake.ID) (*domain.Profile, error) {
	var profile domain.Profile
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *repository) FindProfilesByIDs(ctx context.Context, ids []snowflake.ID) ([]domain.Profile, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var profiles []domain.Profile
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

func (r *repository) ListMembers(ctx context.Context, companyID snowflake.ID) ([]domain.Member, error) {
	var members []domain.Member
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, email, first_name, last_name, role, created_at
		 FROM profiles
		 WHERE company_id = ?
		 ORDER BY CASE role WHEN 'owner' THEN 0 WHEN 'manager' THEN 1 WHEN 'technician' THEN 2 ELSE 3 END,
		          created_at ASC, id ASC`,
		companyID,
	).Scan(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (r *repository) LockCompany(ctx context.Context, companyID snowflake.ID) error {
	if r.db.Dialector.Name() == db.TypeSQLite {
		// sqlite serializes writers on its own
		return nil
	}
	var id int64
	return r.db.WithContext(ctx).
		Raw(`SELECT id FROM companies WHERE id = ? FOR UPDATE`, companyID).
		Scan(&id).Error
}

func (r *repository) UpdateRoleGuarded(ctx context.Context, in domain.RoleUpdate) (bool, error) {
	tx := r.db.WithContext(ctx).Exec(
		`UPDATE profiles SET role = ?, updated_by = ?, updated_at = ?
		 WHERE id = ? AND company_id = ? AND `+ownerGuard,
		string(in.Role),
		in.UpdatedBy,
		in.At,
		in.MemberID,
		in.CompanyID,
		in.CompanyID,
	)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *repository) DetachGuarded(ctx context.Context, in domain.Detach) (bool, error) {
	tx := r.db.WithContext(ctx).Exec(
		`UPDATE profiles SET company_id = NULL, updated_by = ?, updated_at = ?
		 WHERE id = ? AND company_id = ? AND `+ownerGuard,
		in.UpdatedBy,
		in.At,
		in.MemberID,
		in.CompanyID,
		in.CompanyID,
	)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *repository) UpdateName(ctx context.Context, id snowflake.ID, firstName, lastName string, at time.Time) error {
	tx := r.db.WithContext(ctx).Exec(
		`UPDATE profiles SET first_name = ?, last_name = ?, updated_by = ?, updated_at = ? WHERE id = ?`,
		firstName,
		lastName,
		id,
		at,
		id,
	)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}
