package repository

import (
	"context"
	"errors"
	"time"

	"github.com/aquivis/aquivis/internal/visit/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

const defaultListLimit = 100

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

func (r *repository) Create(ctx context.Context, visit *domain.Visit) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO service_visits (id, company_id, property_id, unit_id, technician_id, service_date, status, notes, created_by, updated_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		visit.ID,
		visit.CompanyID,
		visit.PropertyID,
		visit.UnitID,
		visit.TechnicianID,
		visit.ServiceDate,
		string(visit.Status),
		visit.Notes,
		visit.CreatedBy,
		visit.UpdatedBy,
		visit.CreatedAt,
		visit.UpdatedAt,
	).Error
}

func (r *repository) Update(ctx context.Context, visit *domain.Visit) error {
	tx := r.db.WithContext(ctx).Exec(
		`UPDATE service_visits
		 SET unit_id = ?, technician_id = ?, service_date = ?, status = ?, notes = ?, updated_by = ?, updated_at = ?
		 WHERE id = ? AND company_id = ?`,
		visit.UnitID,
		visit.TechnicianID,
		visit.ServiceDate,
		string(visit.Status),
		visit.Notes,
		visit.UpdatedBy,
		visit.UpdatedAt,
		visit.ID,
		visit.CompanyID,
	)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrVisitNotFound
	}
	return nil
}

func (r *repository) FindByID(ctx context.Context, companyID, id snowflake.ID) (*domain.Visit, error) {
	var visit domain.Visit
	err := r.db.WithContext(ctx).
		Where("id = ? AND company_id = ?", id, companyID).
		First(&visit).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrVisitNotFound
	}
	if err != nil {
		return nil, err
	}
	return &visit, nil
}

func (r *repository) FindRow(ctx context.Context, companyID, id snowflake.ID) (*domain.VisitRow, error) {
	var rows []domain.VisitRow
	err := r.rows(ctx, companyID).
		Where("v.id = ?", id).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.ErrVisitNotFound
	}
	return &rows[0], nil
}

func (r *repository) List(ctx context.Context, companyID snowflake.ID, filter domain.ListFilter) ([]domain.VisitRow, error) {
	query := r.rows(ctx, companyID)
	if filter.PropertyID > 0 {
		query = query.Where("v.property_id = ?", filter.PropertyID)
	}
	if filter.UnitID > 0 {
		query = query.Where("v.unit_id = ?", filter.UnitID)
	}
	if filter.Date != nil {
		day := filter.Date.UTC()
		query = query.Where("v.service_date >= ? AND v.service_date < ?", day, day.Add(24*time.Hour))
	}
	if filter.Status != "" {
		query = query.Where("v.status = ?", string(filter.Status))
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	var rows []domain.VisitRow
	err := query.
		Order("v.service_date DESC").
		Order("v.created_at DESC").
		Order("v.id DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func (r *repository) rows(ctx context.Context, companyID snowflake.ID) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("service_visits AS v").
		Select(`v.*,
			p.name AS property_name, p.address AS property_address,
			u.name AS unit_name,
			t.first_name AS technician_first_name, t.last_name AS technician_last_name, t.email AS technician_email`).
		Joins("JOIN properties p ON p.id = v.property_id").
		Joins("LEFT JOIN units u ON u.id = v.unit_id").
		Joins("LEFT JOIN profiles t ON t.id = v.technician_id").
		Where("v.company_id = ?", companyID)
}

func (r *repository) CreateWaterTest(ctx context.Context, test *domain.WaterTest) error {
	return r.db.WithContext(ctx).Create(test).Error
}

func (r *repository) CreateChemical(ctx context.Context, chemical *domain.ChemicalAddition) error {
	return r.db.WithContext(ctx).Create(chemical).Error
}

func (r *repository) CreateMaintenanceTask(ctx context.Context, task *domain.MaintenanceTask) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO maintenance_tasks (id, visit_id, company_id, task_type, completed, notes, recorded_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID,
		task.VisitID,
		task.CompanyID,
		task.TaskType,
		task.Completed,
		task.Notes,
		task.RecordedBy,
		task.CreatedAt,
	).Error
}

func (r *repository) ListWaterTests(ctx context.Context, visitID snowflake.ID) ([]domain.WaterTest, error) {
	var tests []domain.WaterTest
	err := r.db.WithContext(ctx).Where("visit_id = ?", visitID).Order("created_at ASC").Order("id ASC").Find(&tests).Error
	return tests, err
}

func (r *repository) ListChemicals(ctx context.Context, visitID snowflake.ID) ([]domain.ChemicalAddition, error) {
	var chemicals []domain.ChemicalAddition
	err := r.db.WithContext(ctx).Where("visit_id = ?", visitID).Order("created_at ASC").Order("id ASC").Find(&chemicals).Error
	return chemicals, err
}

func (r *repository) ListMaintenanceTasks(ctx context.Context, visitID snowflake.ID) ([]domain.MaintenanceTask, error) {
	var tasks []domain.MaintenanceTask
	err := r.db.WithContext(ctx).Where("visit_id = ?", visitID).Order("created_at ASC").Order("id ASC").Find(&tasks).Error
	return tasks, err
}
